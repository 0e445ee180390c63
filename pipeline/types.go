//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package pipeline

import "context"

// AppProfile is the result of inspecting the input app.
type AppProfile struct {
	Name     string   `json:"name"`
	BundleID string   `json:"bundle_id,omitempty"`
	Screens  []string `json:"screens,omitempty"`
}

// CaptureInstruction is one unit of capture work planned during analysis.
type CaptureInstruction struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Inspector analyzes the input app and plans capture work. The algorithm
// behind it (static analysis, an LLM, a fixture) is an external
// collaborator; the pipeline only depends on this contract.
type Inspector interface {
	Inspect(ctx context.Context, inputPath string) (*AppProfile, []CaptureInstruction, error)
}

// InterruptRequest is the wire shape of a node-initiated suspension
// requesting external input.
type InterruptRequest struct {
	Question string `json:"question"`
	Hint     string `json:"hint"`
}

// AssetRef points at one captured artifact.
type AssetRef struct {
	TaskID string `json:"task_id"`
	Path   string `json:"path"`
}

// TimelineSection groups assets into one editorial beat of the video.
type TimelineSection struct {
	Title      string   `json:"title"`
	AssetPaths []string `json:"asset_paths"`
	Duration   float64  `json:"duration"`
}

// TimelinePlan is the editorial plan for the whole video.
type TimelinePlan struct {
	Sections      []TimelineSection `json:"sections"`
	TotalDuration float64           `json:"total_duration"`
}

// ClipSpec describes one composed clip of the final video.
type ClipSpec struct {
	Index     int     `json:"index"`
	AssetPath string  `json:"asset_path"`
	Caption   string  `json:"caption"`
	Duration  float64 `json:"duration"`
}

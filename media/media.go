//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package media defines the optional downstream render and music
// collaborators. Their presence is probed once at graph-build time; a nil
// service downgrades the topology instead of failing at runtime.
package media

import "context"

// Result status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RenderSpec describes a render request for an assembled timeline.
type RenderSpec struct {
	AssemblyPath string `json:"assembly_path"`
	OutputPath   string `json:"output_path,omitempty"`
}

// RenderResult is the outcome of a render request.
type RenderResult struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RenderService renders an assembled timeline into a video file.
type RenderService interface {
	Render(ctx context.Context, spec RenderSpec) (*RenderResult, error)
}

// MusicSpec describes a music generation request for a rendered video.
type MusicSpec struct {
	RenderedPath string `json:"rendered_path"`
	Style        string `json:"style,omitempty"`
}

// MusicResult is the outcome of a music generation request.
type MusicResult struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// MusicService generates and mixes a music track for a rendered video.
// It requires the rendered file, so it is only reachable when the render
// phase is present.
type MusicService interface {
	Compose(ctx context.Context, spec MusicSpec) (*MusicResult, error)
}

//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelforge/reelforge/capture"
	"github.com/reelforge/reelforge/graph"
	"github.com/reelforge/reelforge/log"
	"github.com/reelforge/reelforge/media"
	"github.com/reelforge/reelforge/store"
)

// interruptKeyInput identifies the intake interrupt site.
const interruptKeyInput = "intake_input"

// intake validates the input app path, asking the operator for one when
// neither state nor configuration provides it.
func (p *pipeline) intake(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageIntake)

	inputPath := stateString(state, StateKeyInputPath)
	if inputPath == "" {
		inputPath = p.cfg.InputPath
	}

	if inputPath == "" {
		answer, err := graph.Interrupt(state, interruptKeyInput, InterruptRequest{
			Question: "Which app should the video showcase? Provide the project path.",
			Hint:     "e.g. ~/Code/App/App.xcodeproj",
		})
		if err != nil {
			return nil, err
		}
		answered, ok := answer.(string)
		if !ok || strings.TrimSpace(answered) == "" {
			return nil, fmt.Errorf("intake: expected a non-empty path, got %v", answer)
		}
		inputPath = strings.TrimSpace(answered)
	}

	log.Infof("intake accepted input path %s", inputPath)
	return graph.State{
		StateKeyInputPath: inputPath,
		StateKeyMessages:  []string{fmt.Sprintf("intake: input path %s", inputPath)},
	}, nil
}

// analyze creates the project, inspects the app, and persists one pending
// task per planned capture instruction. The resulting queue order is the
// instruction order and stays fixed for the rest of the run.
func (p *pipeline) analyze(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageAnalysis)

	inputPath := stateString(state, StateKeyInputPath)
	if inputPath == "" {
		return nil, errors.New("analyze: input path missing from state")
	}

	projectID, err := p.deps.Projects.Create(ctx, inputPath, "")
	if err != nil {
		return nil, fmt.Errorf("analyze: create project: %w", err)
	}
	p.deps.Session.SetProjectID(projectID)

	profile, instructions, err := p.deps.Inspector.Inspect(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("analyze: inspect %s: %w", inputPath, err)
	}
	if len(instructions) == 0 {
		return nil, fmt.Errorf("analyze: inspector planned no capture work for %s", inputPath)
	}

	taskIDs := make([]string, 0, len(instructions))
	for _, instruction := range instructions {
		taskID, err := p.deps.Tasks.Create(ctx, projectID, instruction.Description, instruction.Type)
		if err != nil {
			return nil, fmt.Errorf("analyze: create task: %w", err)
		}
		p.deps.Session.AddTask(taskID)
		taskIDs = append(taskIDs, taskID)
	}

	log.Infof("analysis planned %d capture tasks for project %s", len(taskIDs), projectID)
	return graph.State{
		StateKeyProjectID:    projectID,
		StateKeyAppProfile:   *profile,
		StateKeyPendingTasks: taskIDs,
		StateKeyTaskCursor:   0,
		StateKeyMessages:     []string{fmt.Sprintf("analysis: planned %d tasks", len(taskIDs))},
	}, nil
}

// loadAssets rebuilds the asset list from persisted task records for an
// existing project, letting the editorial phases run without re-capture.
func (p *pipeline) loadAssets(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageCapture)

	projectID := stateString(state, StateKeyProjectID)
	if projectID == "" {
		projectID = p.cfg.ProjectID
	}
	if projectID == "" {
		return nil, errors.New("load assets: project id is required")
	}

	project, err := p.deps.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load assets: project %s: %w", projectID, err)
	}
	p.deps.Session.SetProjectID(project.ID)

	tasks, err := p.deps.Tasks.GetAll(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("load assets: tasks for %s: %w", project.ID, err)
	}

	assets := make([]AssetRef, 0, len(tasks))
	completed := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if task.Status != store.TaskStatusSuccess || task.ArtifactPath == "" {
			continue
		}
		assets = append(assets, AssetRef{TaskID: task.ID, Path: task.ArtifactPath})
		completed = append(completed, task.ID)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("load assets: project %s has no captured assets", project.ID)
	}

	log.Infof("loaded %d assets for project %s", len(assets), project.ID)
	return graph.State{
		StateKeyProjectID:      project.ID,
		StateKeyInputPath:      project.InputPath,
		StateKeyAssets:         assets,
		StateKeyCompletedTasks: completed,
		StateKeyMessages:       []string{fmt.Sprintf("loaded %d persisted assets", len(assets))},
	}, nil
}

// prepareQueue stages the capture loop. The queue itself was planned by
// analysis; this phase only confirms it and resets the cursor when absent.
func (p *pipeline) prepareQueue(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageCapture)

	queue := stateStringSlice(state, StateKeyPendingTasks)
	log.Infof("capture queue staged with %d tasks", len(queue))
	return graph.State{
		StateKeyTaskCursor: stateInt(state, StateKeyTaskCursor),
		StateKeyMessages:   []string{fmt.Sprintf("capture queue: %d tasks", len(queue))},
	}, nil
}

// captureTask executes the task under the cursor once. Outcomes:
//
//	success           -> record the asset, advance the cursor
//	retryable failure -> bump the attempt counter, keep the cursor
//	terminal failure  -> mark the task failed, advance the cursor
//
// Store write failures escalate as node errors; a capture failure never
// stops the queue on its own.
func (p *pipeline) captureTask(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageCapture)

	queue := stateStringSlice(state, StateKeyPendingTasks)
	cursor := stateInt(state, StateKeyTaskCursor)
	if cursor >= len(queue) {
		return nil, fmt.Errorf("capture: cursor %d beyond queue of %d", cursor, len(queue))
	}
	taskID := queue[cursor]

	task, err := p.deps.Tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("capture: load task %s: %w", taskID, err)
	}

	attempts := stateAttempts(state)[taskID] + 1
	result, execErr := p.deps.Capture.Execute(ctx, task)

	if execErr == nil && result != nil && result.Status == capture.StatusSuccess {
		if err := p.deps.Tasks.UpdateStatus(ctx, taskID, store.TaskStatusSuccess, attempts, result.ArtifactPath, result.Notes); err != nil {
			return nil, fmt.Errorf("capture: record success for %s: %w", taskID, err)
		}
		p.deps.Session.MarkTaskCompleted()
		log.Infof("task %s captured on attempt %d", taskID, attempts)
		update := graph.State{
			StateKeyTaskCursor:     cursor + 1,
			StateKeyTaskAttempts:   map[string]int{taskID: attempts},
			StateKeyCompletedTasks: []string{taskID},
			StateKeyAssets:         []AssetRef{{TaskID: taskID, Path: result.ArtifactPath}},
		}
		if result.Notes != "" {
			update[StateKeyCaptureNotes] = []string{result.Notes}
		}
		return update, nil
	}

	notes := captureFailureNotes(result, execErr)
	if attempts >= p.cfg.MaxAttempts {
		if err := p.deps.Tasks.UpdateStatus(ctx, taskID, store.TaskStatusFailed, attempts, "", notes); err != nil {
			return nil, fmt.Errorf("capture: record failure for %s: %w", taskID, err)
		}
		log.Warnf("task %s failed terminally after %d attempts: %s", taskID, attempts, notes)
		return graph.State{
			StateKeyTaskCursor:   cursor + 1,
			StateKeyTaskAttempts: map[string]int{taskID: attempts},
			StateKeyFailedTasks:  []string{taskID},
			StateKeyCaptureNotes: []string{fmt.Sprintf("task %s: %s", taskID, notes)},
		}, nil
	}

	log.Warnf("task %s attempt %d/%d failed, retrying: %s", taskID, attempts, p.cfg.MaxAttempts, notes)
	return graph.State{
		StateKeyTaskCursor:   cursor,
		StateKeyTaskAttempts: map[string]int{taskID: attempts},
		StateKeyCaptureNotes: []string{fmt.Sprintf("task %s attempt %d: %s", taskID, attempts, notes)},
	}, nil
}

func captureFailureNotes(result *capture.Result, execErr error) string {
	switch {
	case execErr != nil:
		return execErr.Error()
	case result != nil && result.Notes != "":
		return result.Notes
	default:
		return "capture failed"
	}
}

// aggregate summarizes the capture phase. A run with zero captured assets
// has nothing to edit, so it fails here rather than producing an empty
// video downstream.
func (p *pipeline) aggregate(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageAggregate)

	completed := stateStringSlice(state, StateKeyCompletedTasks)
	failed := stateStringSlice(state, StateKeyFailedTasks)
	assets := stateAssets(state)

	log.Infof("capture finished: %d succeeded, %d failed", len(completed), len(failed))
	if len(assets) == 0 {
		return nil, fmt.Errorf("aggregate: no assets captured (%d tasks failed)", len(failed))
	}

	return graph.State{
		StateKeyMessages: []string{
			fmt.Sprintf("capture: %d succeeded, %d failed", len(completed), len(failed)),
		},
	}, nil
}

// planTimeline groups captured assets into ordered sections. The grouping
// is deterministic in asset order, so re-running planning over the same
// assets yields the same plan.
func (p *pipeline) planTimeline(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StagePlanning)

	assets := stateAssets(state)
	if len(assets) == 0 {
		return nil, errors.New("plan timeline: no assets to plan")
	}

	const sectionSize = 3
	const clipDuration = 4.0

	plan := TimelinePlan{}
	for start := 0; start < len(assets); start += sectionSize {
		end := start + sectionSize
		if end > len(assets) {
			end = len(assets)
		}
		section := TimelineSection{
			Title:    fmt.Sprintf("Section %d", len(plan.Sections)+1),
			Duration: float64(end-start) * clipDuration,
		}
		for _, asset := range assets[start:end] {
			section.AssetPaths = append(section.AssetPaths, asset.Path)
		}
		plan.Sections = append(plan.Sections, section)
		plan.TotalDuration += section.Duration
	}

	log.Infof("planned timeline: %d sections, %.0fs total", len(plan.Sections), plan.TotalDuration)
	return graph.State{
		StateKeyTimelinePlan: plan,
		StateKeyMessages:     []string{fmt.Sprintf("planned %d sections", len(plan.Sections))},
	}, nil
}

// composeClips expands the timeline plan into per-clip specifications.
func (p *pipeline) composeClips(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageComposing)

	plan, ok := state[StateKeyTimelinePlan].(TimelinePlan)
	if !ok || len(plan.Sections) == 0 {
		return nil, errors.New("compose clips: timeline plan missing from state")
	}

	var clips []ClipSpec
	for _, section := range plan.Sections {
		perClip := section.Duration / float64(len(section.AssetPaths))
		for _, assetPath := range section.AssetPaths {
			clips = append(clips, ClipSpec{
				Index:     len(clips),
				AssetPath: assetPath,
				Caption:   section.Title,
				Duration:  perClip,
			})
		}
	}

	log.Infof("composed %d clips", len(clips))
	return graph.State{
		StateKeyClipSpecs: clips,
		StateKeyMessages:  []string{fmt.Sprintf("composed %d clips", len(clips))},
	}, nil
}

// assemblyDescriptor is the JSON document the assemble phase writes for
// the render collaborator.
type assemblyDescriptor struct {
	ProjectID string       `json:"project_id"`
	Plan      TimelinePlan `json:"plan"`
	Clips     []ClipSpec   `json:"clips"`
}

// assemble writes the timeline descriptor under the working directory.
func (p *pipeline) assemble(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageAssembly)

	clips, _ := state[StateKeyClipSpecs].([]ClipSpec)
	if len(clips) == 0 {
		return nil, errors.New("assemble: no clips to assemble")
	}
	plan, _ := state[StateKeyTimelinePlan].(TimelinePlan)

	workDir := p.cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("assemble: create work dir: %w", err)
	}

	descriptor := assemblyDescriptor{
		ProjectID: stateString(state, StateKeyProjectID),
		Plan:      plan,
		Clips:     clips,
	}
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("assemble: encode descriptor: %w", err)
	}

	assemblyPath := filepath.Join(workDir, "assembly.json")
	if err := os.WriteFile(assemblyPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("assemble: write descriptor: %w", err)
	}

	log.Infof("assembled timeline descriptor at %s", assemblyPath)
	return graph.State{
		StateKeyAssemblyPath: assemblyPath,
		StateKeyMessages:     []string{fmt.Sprintf("assembled %s", assemblyPath)},
	}, nil
}

// render invokes the render collaborator on the assembled timeline.
func (p *pipeline) render(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageRender)

	assemblyPath := stateString(state, StateKeyAssemblyPath)
	result, err := p.deps.Render.Render(ctx, media.RenderSpec{AssemblyPath: assemblyPath})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	if result.Status != media.StatusSuccess {
		log.Warnf("render failed: %s", result.Error)
	} else {
		log.Infof("rendered video at %s", result.Path)
	}
	return graph.State{
		StateKeyRenderResult: *result,
		StateKeyMessages:     []string{fmt.Sprintf("render: %s", result.Status)},
	}, nil
}

// music invokes the music collaborator on the rendered video.
func (p *pipeline) music(ctx context.Context, state graph.State) (any, error) {
	p.deps.Session.SetStage(StageMusic)

	renderResult, _ := state[StateKeyRenderResult].(media.RenderResult)
	result, err := p.deps.Music.Compose(ctx, media.MusicSpec{
		RenderedPath: renderResult.Path,
		Style:        p.cfg.MusicStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("music: %w", err)
	}

	if result.Status != media.StatusSuccess {
		log.Warnf("music generation failed: %s", result.Error)
	} else {
		log.Infof("music track mixed into %s", result.Path)
	}
	return graph.State{
		StateKeyMusicResult: *result,
		StateKeyMessages:    []string{fmt.Sprintf("music: %s", result.Status)},
	}, nil
}

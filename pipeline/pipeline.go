//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package pipeline assembles the product-video generation workflow on the
// graph engine: intake, analysis, sequential capture with bounded retries,
// aggregation, editorial planning, composition, assembly, and the optional
// render and music phases.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/reelforge/reelforge/capture"
	"github.com/reelforge/reelforge/graph"
	"github.com/reelforge/reelforge/log"
	"github.com/reelforge/reelforge/media"
	"github.com/reelforge/reelforge/session"
	"github.com/reelforge/reelforge/store"
)

// Node identifiers.
const (
	NodeIntake       = "intake"
	NodeAnalyze      = "analyze"
	NodeLoadAssets   = "load_assets"
	NodePrepareQueue = "prepare_queue"
	NodeCaptureTask  = "capture_task"
	NodeAggregate    = "aggregate"
	NodePlanTimeline = "plan_timeline"
	NodeComposeClips = "compose_clips"
	NodeAssemble     = "assemble"
	NodeRender       = "render"
	NodeMusic        = "music"
)

// Stage names reported to the session tracker.
const (
	StageIntake    = "intake"
	StageAnalysis  = "analysis"
	StageCapture   = "capture"
	StageAggregate = "aggregation"
	StagePlanning  = "planning"
	StageComposing = "composition"
	StageAssembly  = "assembly"
	StageRender    = "render"
	StageMusic     = "music"
)

// EntryMode selects the first node of the built topology. This is a
// static topology choice, not a conditional edge.
type EntryMode string

const (
	// EntryModeFull runs the whole pipeline starting at intake.
	EntryModeFull EntryMode = "full"
	// EntryModeResumeAssets enters directly at asset loading for an
	// existing project, skipping intake, analysis, and capture.
	EntryModeResumeAssets EntryMode = "resume_assets"
)

// DefaultMaxAttempts bounds capture retries per task.
const DefaultMaxAttempts = 3

// Config is the runtime configuration the topology is built from.
type Config struct {
	EntryMode     EntryMode
	IncludeRender bool
	IncludeMusic  bool
	// MaxAttempts bounds capture attempts per task, first try included.
	MaxAttempts int
	// InputPath seeds intake; empty triggers an interrupt asking for it.
	InputPath string
	// ProjectID identifies the project to load in resume_assets mode.
	ProjectID string
	// WorkDir receives assembly descriptors and render outputs.
	WorkDir string
	// MusicStyle is forwarded to the music collaborator.
	MusicStyle string
}

// Deps are the external collaborators the pipeline drives.
type Deps struct {
	Tasks     store.TaskStore
	Projects  store.ProjectStore
	Inspector Inspector
	Capture   capture.Backend
	Render    media.RenderService
	Music     media.MusicService
	Session   *session.Session
}

// Capabilities are the optional-phase availability flags, resolved once
// before the graph is built rather than checked inside node bodies.
type Capabilities struct {
	Render bool
	Music  bool
}

// ResolveCapabilities decides which optional phases the topology gets.
// A music phase without a render phase is impossible: music requires the
// rendered file, so an unavailable renderer downgrades both.
func ResolveCapabilities(cfg Config, deps Deps) Capabilities {
	caps := Capabilities{
		Render: cfg.IncludeRender && deps.Render != nil,
	}
	caps.Music = cfg.IncludeMusic && caps.Render && deps.Music != nil
	if cfg.IncludeRender && !caps.Render {
		log.Warnf("render service unavailable; dropping render phase")
	}
	if cfg.IncludeMusic && !caps.Music {
		log.Warnf("music phase unavailable (requires render); dropping music phase")
	}
	return caps
}

// pipeline carries config and collaborators into node functions.
type pipeline struct {
	cfg  Config
	deps Deps
	caps Capabilities
}

// Build assembles the topology for the given configuration. Optional
// phases whose collaborators are unavailable are omitted here, at build
// time; the routers that would have selected them route to End instead.
func Build(cfg Config, deps Deps) (*graph.Graph, error) {
	if err := validateDeps(deps); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.EntryMode == "" {
		cfg.EntryMode = EntryModeFull
	}

	p := &pipeline{cfg: cfg, deps: deps, caps: ResolveCapabilities(cfg, deps)}
	sg := graph.NewStateGraph(Schema())

	switch cfg.EntryMode {
	case EntryModeFull:
		p.addCapturePhases(sg)
		p.addEditorialPhases(sg)
		sg.AddEdge(NodeAggregate, NodePlanTimeline)
	case EntryModeResumeAssets:
		if cfg.ProjectID == "" {
			return nil, errors.New("resume_assets mode requires a project id")
		}
		sg.AddNode(NodeLoadAssets, p.loadAssets,
			graph.WithDescription("load persisted assets for an existing project")).
			SetEntryPoint(NodeLoadAssets)
		p.addEditorialPhases(sg)
		sg.AddEdge(NodeLoadAssets, NodePlanTimeline)
	default:
		return nil, fmt.Errorf("unknown entry mode %q", cfg.EntryMode)
	}

	return sg.Compile()
}

// addCapturePhases wires intake through the sequential capture queue.
// The queue is deliberately not a fan-out: the capture backend supports a
// single active session, and the absence of parallel dispatch edges
// encodes that constraint in the topology itself.
func (p *pipeline) addCapturePhases(sg *graph.StateGraph) {
	sg.AddNode(NodeIntake, p.intake,
		graph.WithDescription("validate the input app path")).
		AddNode(NodeAnalyze, p.analyze,
			graph.WithDescription("inspect the app and plan capture tasks")).
		AddNode(NodePrepareQueue, p.prepareQueue,
			graph.WithDescription("stage the capture task queue")).
		AddNode(NodeCaptureTask, p.captureTask,
			graph.WithDescription("execute one capture task with bounded retries")).
		SetEntryPoint(NodeIntake).
		AddEdge(NodeIntake, NodeAnalyze).
		AddEdge(NodeAnalyze, NodePrepareQueue).
		AddNode(NodeAggregate, p.aggregate,
			graph.WithDescription("summarize capture outcomes")).
		AddConditionalEdges(NodePrepareQueue, queueAdvance, queuePathMap()).
		AddConditionalEdges(NodeCaptureTask, queueAdvance, queuePathMap())
}

// addEditorialPhases wires planning through assembly plus whichever
// optional phases survived capability resolution. The caller connects the
// entry-mode specific head of the graph to NodePlanTimeline.
func (p *pipeline) addEditorialPhases(sg *graph.StateGraph) {
	sg.AddNode(NodePlanTimeline, p.planTimeline,
		graph.WithDescription("plan the video timeline")).
		AddNode(NodeComposeClips, p.composeClips,
			graph.WithDescription("compose clip specifications")).
		AddNode(NodeAssemble, p.assemble,
			graph.WithDescription("assemble the timeline descriptor")).
		AddEdge(NodePlanTimeline, NodeComposeClips).
		AddEdge(NodeComposeClips, NodeAssemble)

	if !p.caps.Render {
		sg.SetFinishPoint(NodeAssemble)
		return
	}

	sg.AddNode(NodeRender, p.render,
		graph.WithDescription("render the assembled timeline")).
		AddConditionalEdges(NodeAssemble, renderGate, map[string]string{
			NodeRender: NodeRender,
			graph.End:  graph.End,
		})

	if !p.caps.Music {
		sg.SetFinishPoint(NodeRender)
		return
	}

	sg.AddNode(NodeMusic, p.music,
		graph.WithDescription("generate and mix the music track")).
		AddConditionalEdges(NodeRender, musicGate, map[string]string{
			NodeMusic: NodeMusic,
			graph.End: graph.End,
		}).
		SetFinishPoint(NodeMusic)
}

func validateDeps(deps Deps) error {
	switch {
	case deps.Tasks == nil:
		return errors.New("task store is required")
	case deps.Projects == nil:
		return errors.New("project store is required")
	case deps.Inspector == nil:
		return errors.New("inspector is required")
	case deps.Capture == nil:
		return errors.New("capture backend is required")
	case deps.Session == nil:
		return errors.New("session is required")
	}
	return nil
}

func queuePathMap() map[string]string {
	return map[string]string{
		NodeCaptureTask: NodeCaptureTask,
		NodeAggregate:   NodeAggregate,
	}
}

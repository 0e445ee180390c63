//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Command reelforge runs the product-video generation pipeline from the
// terminal. It wires configuration, persistence, the capture and media
// collaborators, the graph topology, and the execution driver.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/reelforge/reelforge/capture"
	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/graph"
	checkpointinmemory "github.com/reelforge/reelforge/graph/checkpoint/inmemory"
	checkpointsqlite "github.com/reelforge/reelforge/graph/checkpoint/sqlite"
	"github.com/reelforge/reelforge/log"
	"github.com/reelforge/reelforge/media"
	"github.com/reelforge/reelforge/pipeline"
	"github.com/reelforge/reelforge/runner"
	"github.com/reelforge/reelforge/session"
	"github.com/reelforge/reelforge/store"
	storeinmemory "github.com/reelforge/reelforge/store/inmemory"
	storesqlite "github.com/reelforge/reelforge/store/sqlite"
	"github.com/reelforge/reelforge/telemetry/trace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reelforge:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath    = flag.String("config", "", "path to YAML configuration file")
		storePath     = flag.String("store", "", "sqlite database path (empty: in-memory)")
		inputPath     = flag.String("input", "", "app project path to showcase")
		projectID     = flag.String("project", "", "project id to resume assets from")
		entryMode     = flag.String("entry-mode", "", "entry mode: full or resume_assets")
		includeRender = flag.Bool("render", false, "include the render phase")
		includeMusic  = flag.Bool("music", false, "include the music phase (requires render)")
		logLevel      = flag.String("log-level", "", "log level: debug, info, warn, error")
		workDir       = flag.String("work-dir", "", "working directory for outputs")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(&cfg, map[string]func(){
		"store":      func() { cfg.StorePath = *storePath },
		"input":      func() { cfg.InputPath = *inputPath },
		"project":    func() { cfg.ProjectID = *projectID },
		"entry-mode": func() { cfg.EntryMode = *entryMode },
		"render":     func() { cfg.IncludeRender = *includeRender },
		"music":      func() { cfg.IncludeMusic = *includeMusic },
		"log-level":  func() { cfg.LogLevel = *logLevel },
		"work-dir":   func() { cfg.WorkDir = *workDir },
	})

	log.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := trace.Start(ctx,
			trace.WithEndpoint(cfg.OTLPEndpoint),
			trace.WithServiceName("reelforge"),
		)
		if err != nil {
			return fmt.Errorf("start tracing: %w", err)
		}
		defer func() {
			if err := shutdown(); err != nil {
				log.Warnf("trace shutdown: %v", err)
			}
		}()
	}

	tasks, projects, saver, closeStores, err := openStores(cfg.StorePath)
	if err != nil {
		return err
	}
	defer closeStores()

	sess := session.New(uuid.New().String())
	deps := pipeline.Deps{
		Tasks:     tasks,
		Projects:  projects,
		Inspector: &localInspector{},
		Capture:   &localCapture{dir: filepath.Join(cfg.WorkDir, "captures")},
		Session:   sess,
	}
	if cfg.IncludeRender {
		deps.Render = &localRender{dir: cfg.WorkDir}
	}
	if cfg.IncludeMusic {
		deps.Music = &localMusic{dir: cfg.WorkDir}
	}

	pipelineCfg := pipeline.Config{
		EntryMode:     pipeline.EntryMode(cfg.EntryMode),
		IncludeRender: cfg.IncludeRender,
		IncludeMusic:  cfg.IncludeMusic,
		MaxAttempts:   cfg.MaxAttempts,
		InputPath:     cfg.InputPath,
		ProjectID:     cfg.ProjectID,
		WorkDir:       cfg.WorkDir,
		MusicStyle:    cfg.MusicStyle,
	}
	g, err := pipeline.Build(pipelineCfg, deps)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	r, err := runner.New(runner.Options{
		Graph:    g,
		Saver:    saver,
		Tasks:    tasks,
		Projects: projects,
		Session:  sess,
		Prompter: runner.NewIOPrompter(os.Stdin, os.Stdout),
	})
	if err != nil {
		return err
	}

	initial := graph.State{}
	if cfg.InputPath != "" {
		initial[pipeline.StateKeyInputPath] = cfg.InputPath
	}
	if cfg.ProjectID != "" {
		initial[pipeline.StateKeyProjectID] = cfg.ProjectID
	}

	log.Infof("starting run %s", sess.RunID())
	_, err = r.Run(ctx, initial)
	return err
}

// applyFlagOverrides applies only the flags the operator actually set, so
// the configuration file keeps authority over unset ones.
func applyFlagOverrides(cfg *config.Config, overrides map[string]func()) {
	flag.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})
}

// openStores builds the persistence layer. A path selects sqlite-backed
// stores and checkpoints sharing one database handle; empty selects the
// in-memory implementations.
func openStores(path string) (store.TaskStore, store.ProjectStore, graph.CheckpointSaver, func(), error) {
	if path == "" {
		return storeinmemory.NewTaskStore(), storeinmemory.NewProjectStore(),
			checkpointinmemory.NewSaver(), func() {}, nil
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open store %s: %w", path, err)
	}
	tasks, err := storesqlite.NewTaskStore(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}
	projects, err := storesqlite.NewProjectStore(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}
	saver, err := checkpointsqlite.NewSaver(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}
	return tasks, projects, saver, func() { db.Close() }, nil
}

// localInspector plans a fixed capture walkthrough from the app path. It
// stands in for a real static-analysis collaborator.
type localInspector struct{}

func (localInspector) Inspect(ctx context.Context, inputPath string) (*pipeline.AppProfile, []pipeline.CaptureInstruction, error) {
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	profile := &pipeline.AppProfile{
		Name:    name,
		Screens: []string{"launch", "main", "detail"},
	}
	instructions := []pipeline.CaptureInstruction{
		{Description: "launch screen walkthrough", Type: "screen_recording"},
		{Description: "main feature demonstration", Type: "screen_recording"},
		{Description: "detail view highlights", Type: "screenshot"},
	}
	return profile, instructions, nil
}

// localCapture writes a placeholder artifact per task. It stands in for a
// simulator-driven capture backend.
type localCapture struct {
	dir string
}

func (c *localCapture) Execute(ctx context.Context, task *store.Task) (*capture.Result, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, err
	}
	artifact := filepath.Join(c.dir, task.ID+".mov")
	if err := os.WriteFile(artifact, []byte(task.Description+"\n"), 0o644); err != nil {
		return nil, err
	}
	return &capture.Result{Status: capture.StatusSuccess, ArtifactPath: artifact}, nil
}

// localRender writes a placeholder rendered file next to the assembly.
type localRender struct {
	dir string
}

func (r *localRender) Render(ctx context.Context, spec media.RenderSpec) (*media.RenderResult, error) {
	out := filepath.Join(r.dir, "video.mp4")
	if err := os.WriteFile(out, []byte("rendered from "+spec.AssemblyPath+"\n"), 0o644); err != nil {
		return &media.RenderResult{Status: media.StatusFailed, Error: err.Error()}, nil
	}
	return &media.RenderResult{Status: media.StatusSuccess, Path: out}, nil
}

// localMusic writes a placeholder mixed file next to the rendered video.
type localMusic struct {
	dir string
}

func (m *localMusic) Compose(ctx context.Context, spec media.MusicSpec) (*media.MusicResult, error) {
	out := filepath.Join(m.dir, "video-with-music.mp4")
	if err := os.WriteFile(out, []byte("mixed from "+spec.RenderedPath+"\n"), 0o644); err != nil {
		return &media.MusicResult{Status: media.StatusFailed, Error: err.Error()}, nil
	}
	return &media.MusicResult{Status: media.StatusSuccess, Path: out}, nil
}

//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package config loads the engine configuration from a YAML file, with
// flag-friendly defaults for every field.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration.
type Config struct {
	// StorePath is the sqlite database file backing tasks, projects, and
	// checkpoints. Empty selects the in-memory implementations.
	StorePath string `yaml:"store_path"`
	// LogLevel is one of debug, info, warn, error, fatal.
	LogLevel string `yaml:"log_level"`
	// MaxAttempts bounds capture attempts per task.
	MaxAttempts int `yaml:"max_attempts"`
	// IncludeRender requests the render phase.
	IncludeRender bool `yaml:"include_render"`
	// IncludeMusic requests the music phase. Requires render.
	IncludeMusic bool `yaml:"include_music"`
	// EntryMode is "full" or "resume_assets".
	EntryMode string `yaml:"entry_mode"`
	// InputPath is the app to showcase. Empty triggers an intake prompt.
	InputPath string `yaml:"input_path"`
	// ProjectID selects the project to load in resume_assets mode.
	ProjectID string `yaml:"project_id"`
	// WorkDir receives assembly descriptors and render outputs.
	WorkDir string `yaml:"work_dir"`
	// MusicStyle is forwarded to the music collaborator.
	MusicStyle string `yaml:"music_style"`
	// OTLPEndpoint enables trace export when set, e.g. "localhost:4317".
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel:    "info",
		MaxAttempts: 3,
		EntryMode:   "full",
		WorkDir:     "reelforge-work",
	}
}

// Load reads a YAML configuration file, filling unset fields from
// Default. A missing path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = Default().MaxAttempts
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}
	if cfg.EntryMode == "" {
		cfg.EntryMode = Default().EntryMode
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = Default().WorkDir
	}
	return cfg, nil
}

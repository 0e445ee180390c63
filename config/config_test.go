//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, "full", cfg.EntryMode)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
store_path: /var/lib/reelforge.db
log_level: debug
max_attempts: 5
include_render: true
include_music: true
entry_mode: resume_assets
input_path: /apps/demo
project_id: project-1
work_dir: /tmp/reelforge
music_style: upbeat
otlp_endpoint: localhost:4317
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/reelforge.db", cfg.StorePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.True(t, cfg.IncludeRender)
	assert.True(t, cfg.IncludeMusic)
	assert.Equal(t, "resume_assets", cfg.EntryMode)
	assert.Equal(t, "/apps/demo", cfg.InputPath)
	assert.Equal(t, "project-1", cfg.ProjectID)
	assert.Equal(t, "/tmp/reelforge", cfg.WorkDir)
	assert.Equal(t, "upbeat", cfg.MusicStyle)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
}

func TestLoadFillsMissingFieldsWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("include_render: true\nmax_attempts: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IncludeRender)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "full", cfg.EntryMode)
	assert.NotEmpty(t, cfg.WorkDir)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_attempts: [not a number"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

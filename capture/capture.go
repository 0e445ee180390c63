//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package capture defines the screen-capture collaborator. The backend is
// single-session and stateful: it supports exactly one active capture at a
// time and must be invoked sequentially. The pipeline encodes that
// constraint structurally (no parallel dispatch edges reach the capture
// node), not with a runtime lock.
package capture

import (
	"context"

	"github.com/reelforge/reelforge/store"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Result is the outcome of a single capture attempt.
type Result struct {
	Status       string `json:"status"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Backend executes capture tasks against the device or simulator.
type Backend interface {
	// Execute runs one capture task to completion. A non-nil error marks
	// the attempt as retryable; a Result with StatusFailed marks it as
	// failed without a transport-level error.
	Execute(ctx context.Context, task *store.Task) (*Result, error)
}

// Func is an adapter to allow ordinary functions to be used as capture
// backends.
type Func func(ctx context.Context, task *store.Task) (*Result, error)

// Execute calls f(ctx, task).
func (f Func) Execute(ctx context.Context, task *store.Task) (*Result, error) {
	return f(ctx, task)
}

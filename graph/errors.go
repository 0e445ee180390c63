//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package graph

import "errors"

// Errors.
var (
	ErrLineageIDRequired  = errors.New("lineage_id is required")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrUnknownStateKey    = errors.New("state update contains key not declared in schema")
	ErrNoEntryPoint       = errors.New("graph must have an entry point")
)

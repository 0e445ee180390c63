//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package graph

// Config map keys (used under config["configurable"]).
const (
	CfgKeyConfigurable = "configurable"
	CfgKeyLineageID    = "lineage_id"
	CfgKeyCheckpointID = "checkpoint_id"
	CfgKeyCheckpointNS = "checkpoint_ns"
)

// internalKeyPrefix marks state keys owned by the engine. Internal keys
// bypass schema validation and are stripped from checkpoints.
const internalKeyPrefix = "__"

// State map keys (stored into execution state).
const (
	// StateKeyCommand carries a resume command injected before re-entry.
	StateKeyCommand = "__command__"
	// StateKeyResume carries a single pending resume value.
	StateKeyResume = "__resume__"
	// StateKeyResumeMap maps interrupt keys to resume values.
	StateKeyResumeMap = "__resume_map__"
	// StateKeyUsedInterrupts records interrupt keys already answered so a
	// re-executed node observes the same answer. Unlike the other engine
	// keys it is persisted in checkpoints: a node with several interrupt
	// sites must keep its earlier answers across resume round-trips.
	StateKeyUsedInterrupts = "__used_interrupts__"
)

// Checkpoint Metadata.Source enumeration values.
const (
	SourceInput     = "input"
	SourceLoop      = "loop"
	SourceInterrupt = "interrupt"
)

// isInternalStateKey returns true when a state key is internal/ephemeral
// and should not be serialized into checkpoints. The used-interrupts map
// is deliberately not listed: it must survive the checkpoint round-trip.
func isInternalStateKey(key string) bool {
	switch key {
	case StateKeyCommand, StateKeyResume, StateKeyResumeMap:
		return true
	default:
		return false
	}
}

//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// CheckpointVersion is the current version of the checkpoint format.
	CheckpointVersion = 1
	// DefaultCheckpointNamespace is the default namespace for checkpoints.
	DefaultCheckpointNamespace = ""
	// DefaultMaxCheckpointsPerLineage is the default maximum number of
	// checkpoints retained per lineage.
	DefaultMaxCheckpointsPerLineage = 100
)

// Checkpoint represents a snapshot of graph state at a specific point in time.
type Checkpoint struct {
	// Version is the version of the checkpoint format.
	Version int `json:"v"`
	// ID is the unique identifier for this checkpoint.
	ID string `json:"id"`
	// Timestamp is when the checkpoint was created.
	Timestamp time.Time `json:"ts"`
	// Values contains the state values at checkpoint time.
	Values map[string]any `json:"values"`
	// ParentCheckpointID is the ID of the parent checkpoint.
	ParentCheckpointID string `json:"parent_checkpoint_id,omitempty"`
	// InterruptState holds interrupt details when the run is paused.
	InterruptState *InterruptState `json:"interrupt_state,omitempty"`
	// NextNodes contains the next nodes to execute on resume.
	NextNodes []string `json:"next_nodes,omitempty"`
}

// InterruptState represents the state of an interrupted execution.
type InterruptState struct {
	// NodeID is the ID of the node where execution was interrupted.
	NodeID string `json:"node_id"`
	// Key identifies the interrupt site within the node.
	Key string `json:"key"`
	// InterruptValue is the payload that was passed to Interrupt().
	InterruptValue any `json:"interrupt_value"`
	// Step is the step number when the interrupt occurred.
	Step int `json:"step"`
}

// CheckpointMetadata contains metadata about a checkpoint.
type CheckpointMetadata struct {
	// Source indicates how the checkpoint was created.
	Source string `json:"source"`
	// Step is the step number (-1 for input, 0+ for loop steps).
	Step int `json:"step"`
	// Extra holds additional metadata fields.
	Extra map[string]any `json:"extra,omitempty"`
}

// CheckpointTuple wraps a checkpoint with its configuration and metadata.
type CheckpointTuple struct {
	// Config contains the configuration used to create this checkpoint.
	Config map[string]any `json:"config"`
	// Checkpoint is the actual checkpoint data.
	Checkpoint *Checkpoint `json:"checkpoint"`
	// Metadata contains additional checkpoint information.
	Metadata *CheckpointMetadata `json:"metadata"`
}

// CheckpointFilter defines filtering criteria for listing checkpoints.
type CheckpointFilter struct {
	// Limit is the maximum number of checkpoints to return.
	Limit int `json:"limit,omitempty"`
}

// PutRequest contains all data needed to store a checkpoint.
type PutRequest struct {
	Config     map[string]any
	Checkpoint *Checkpoint
	Metadata   *CheckpointMetadata
}

// CheckpointSaver defines the interface for checkpoint storage
// implementations, keyed by lineage (run identity) and namespace.
type CheckpointSaver interface {
	// Get retrieves a checkpoint by configuration.
	Get(ctx context.Context, config map[string]any) (*Checkpoint, error)
	// GetTuple retrieves a checkpoint tuple by configuration.
	GetTuple(ctx context.Context, config map[string]any) (*CheckpointTuple, error)
	// List retrieves checkpoints matching criteria, newest first.
	List(ctx context.Context, config map[string]any, filter *CheckpointFilter) ([]*CheckpointTuple, error)
	// Put stores a checkpoint.
	Put(ctx context.Context, req PutRequest) (map[string]any, error)
	// DeleteLineage removes all checkpoints for a lineage.
	DeleteLineage(ctx context.Context, lineageID string) error
	// Close releases resources held by the saver.
	Close() error
}

// NewCheckpoint creates a new checkpoint with the given state values.
func NewCheckpoint(values map[string]any) *Checkpoint {
	if values == nil {
		values = make(map[string]any)
	}
	return &Checkpoint{
		Version:   CheckpointVersion,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Values:    values,
	}
}

// NewCheckpointMetadata creates new checkpoint metadata.
func NewCheckpointMetadata(source string, step int) *CheckpointMetadata {
	return &CheckpointMetadata{
		Source: source,
		Step:   step,
		Extra:  make(map[string]any),
	}
}

// IsInterrupted checks if a checkpoint represents an interrupted execution.
func (c *Checkpoint) IsInterrupted() bool {
	return c.InterruptState != nil && c.InterruptState.NodeID != ""
}

// SetInterruptState records interrupt details on the checkpoint.
func (c *Checkpoint) SetInterruptState(nodeID, key string, value any, step int) {
	c.InterruptState = &InterruptState{
		NodeID:         nodeID,
		Key:            key,
		InterruptValue: value,
		Step:           step,
	}
}

// CreateCheckpointConfig creates a checkpoint configuration map.
func CreateCheckpointConfig(lineageID, checkpointID, namespace string) map[string]any {
	if lineageID == "" {
		panic("lineage_id cannot be empty")
	}
	configurable := map[string]any{
		CfgKeyLineageID:    lineageID,
		CfgKeyCheckpointNS: namespace,
	}
	if checkpointID != "" {
		configurable[CfgKeyCheckpointID] = checkpointID
	}
	return map[string]any{CfgKeyConfigurable: configurable}
}

// GetLineageID extracts lineage ID from configuration.
func GetLineageID(config map[string]any) string {
	return configString(config, CfgKeyLineageID)
}

// GetCheckpointID extracts checkpoint ID from configuration.
func GetCheckpointID(config map[string]any) string {
	return configString(config, CfgKeyCheckpointID)
}

// GetNamespace extracts namespace from configuration.
func GetNamespace(config map[string]any) string {
	return configString(config, CfgKeyCheckpointNS)
}

func configString(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	if configurable, ok := config[CfgKeyConfigurable].(map[string]any); ok {
		if value, ok := configurable[key].(string); ok {
			return value
		}
	}
	return ""
}

// CheckpointManager provides high-level checkpoint management functionality.
type CheckpointManager struct {
	saver CheckpointSaver
}

// NewCheckpointManager creates a new checkpoint manager.
func NewCheckpointManager(saver CheckpointSaver) *CheckpointManager {
	return &CheckpointManager{saver: saver}
}

// CreateCheckpoint snapshots the given state under the lineage in config.
// Internal engine keys are stripped; everything else is deep-copied so the
// snapshot is isolated from later node mutations.
func (cm *CheckpointManager) CreateCheckpoint(
	ctx context.Context, config map[string]any, state State, source string, step int,
) (*Checkpoint, error) {
	if cm.saver == nil {
		return nil, fmt.Errorf("checkpoint saver is not configured")
	}

	values := make(map[string]any, len(state))
	for k, v := range state {
		if isInternalStateKey(k) {
			continue
		}
		values[k] = deepCopyAny(v)
	}
	checkpoint := NewCheckpoint(values)

	req := PutRequest{
		Config:     config,
		Checkpoint: checkpoint,
		Metadata:   NewCheckpointMetadata(source, step),
	}
	if _, err := cm.saver.Put(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to store checkpoint: %w", err)
	}
	return checkpoint, nil
}

// Latest returns the most recent checkpoint for a lineage and namespace,
// or nil when none exists.
func (cm *CheckpointManager) Latest(
	ctx context.Context, lineageID, namespace string,
) (*CheckpointTuple, error) {
	if cm.saver == nil {
		return nil, fmt.Errorf("checkpoint saver is not configured")
	}
	config := CreateCheckpointConfig(lineageID, "", namespace)
	checkpoints, err := cm.saver.List(ctx, config, &CheckpointFilter{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(checkpoints) == 0 {
		return nil, nil
	}
	return checkpoints[0], nil
}

// ResumeFromLatest loads state from the latest checkpoint and injects the
// resume command for the executor to consume on re-entry.
func (cm *CheckpointManager) ResumeFromLatest(
	ctx context.Context, lineageID, namespace string, cmd *ResumeCommand,
) (State, error) {
	latest, err := cm.Latest(ctx, lineageID, namespace)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: lineage %s", ErrCheckpointNotFound, lineageID)
	}
	state := make(State, len(latest.Checkpoint.Values))
	for k, v := range latest.Checkpoint.Values {
		state[k] = v
	}
	if cmd != nil {
		state[StateKeyCommand] = cmd
	}
	return state, nil
}

// GetTuple retrieves a checkpoint tuple by configuration.
func (cm *CheckpointManager) GetTuple(
	ctx context.Context, config map[string]any,
) (*CheckpointTuple, error) {
	if cm.saver == nil {
		return nil, fmt.Errorf("checkpoint saver is not configured")
	}
	return cm.saver.GetTuple(ctx, config)
}

// DeleteLineage removes all checkpoints for a lineage.
func (cm *CheckpointManager) DeleteLineage(ctx context.Context, lineageID string) error {
	if cm.saver == nil {
		return fmt.Errorf("checkpoint saver is not configured")
	}
	return cm.saver.DeleteLineage(ctx, lineageID)
}

// deepCopyAny performs a deep copy using JSON round-tripping. Values that
// do not marshal cleanly are returned as-is.
func deepCopyAny(src any) any {
	if src == nil {
		return nil
	}
	data, err := json.Marshal(src)
	if err != nil {
		return src
	}
	var result any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&result); err != nil {
		return src
	}
	return result
}

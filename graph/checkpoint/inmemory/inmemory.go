//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory checkpoint storage implementation
// for graph execution state persistence and recovery. It is suitable for
// tests and dry runs, not for durable suspend-for-arbitrary-time use.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/reelforge/reelforge/graph"
)

// Saver provides an in-memory implementation of graph.CheckpointSaver.
type Saver struct {
	mu sync.RWMutex
	// lineageID -> namespace -> checkpointID -> tuple
	storage map[string]map[string]map[string]*graph.CheckpointTuple
	// maxCheckpointsPerLineage limits the number of checkpoints per lineage.
	maxCheckpointsPerLineage int
}

// NewSaver creates a new in-memory checkpoint saver.
func NewSaver() *Saver {
	return &Saver{
		storage:                  make(map[string]map[string]map[string]*graph.CheckpointTuple),
		maxCheckpointsPerLineage: graph.DefaultMaxCheckpointsPerLineage,
	}
}

// WithMaxCheckpointsPerLineage sets the maximum number of checkpoints per lineage.
func (s *Saver) WithMaxCheckpointsPerLineage(max int) *Saver {
	s.maxCheckpointsPerLineage = max
	return s
}

// Get retrieves a checkpoint by configuration.
func (s *Saver) Get(ctx context.Context, config map[string]any) (*graph.Checkpoint, error) {
	tuple, err := s.GetTuple(ctx, config)
	if err != nil {
		return nil, err
	}
	if tuple == nil {
		return nil, nil
	}
	return tuple.Checkpoint, nil
}

// GetTuple retrieves a checkpoint tuple by configuration. When the config
// carries no checkpoint ID the latest checkpoint is returned.
func (s *Saver) GetTuple(ctx context.Context, config map[string]any) (*graph.CheckpointTuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineageID := graph.GetLineageID(config)
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	namespace := graph.GetNamespace(config)
	checkpointID := graph.GetCheckpointID(config)

	byID := s.storage[lineageID][namespace]
	if len(byID) == 0 {
		return nil, nil
	}
	if checkpointID != "" {
		return byID[checkpointID], nil
	}
	var latest *graph.CheckpointTuple
	for _, tuple := range byID {
		if latest == nil || tuple.Checkpoint.Timestamp.After(latest.Checkpoint.Timestamp) {
			latest = tuple
		}
	}
	return latest, nil
}

// List retrieves checkpoints for a lineage/namespace, newest first.
func (s *Saver) List(
	ctx context.Context, config map[string]any, filter *graph.CheckpointFilter,
) ([]*graph.CheckpointTuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineageID := graph.GetLineageID(config)
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	namespace := graph.GetNamespace(config)

	var tuples []*graph.CheckpointTuple
	for _, tuple := range s.storage[lineageID][namespace] {
		tuples = append(tuples, tuple)
	}
	sort.Slice(tuples, func(i, j int) bool {
		return tuples[i].Checkpoint.Timestamp.After(tuples[j].Checkpoint.Timestamp)
	})
	if filter != nil && filter.Limit > 0 && len(tuples) > filter.Limit {
		tuples = tuples[:filter.Limit]
	}
	return tuples, nil
}

// Put stores a checkpoint.
func (s *Saver) Put(ctx context.Context, req graph.PutRequest) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lineageID := graph.GetLineageID(req.Config)
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	namespace := graph.GetNamespace(req.Config)

	if s.storage[lineageID] == nil {
		s.storage[lineageID] = make(map[string]map[string]*graph.CheckpointTuple)
	}
	if s.storage[lineageID][namespace] == nil {
		s.storage[lineageID][namespace] = make(map[string]*graph.CheckpointTuple)
	}

	updatedConfig := graph.CreateCheckpointConfig(lineageID, req.Checkpoint.ID, namespace)
	s.storage[lineageID][namespace][req.Checkpoint.ID] = &graph.CheckpointTuple{
		Config:     updatedConfig,
		Checkpoint: req.Checkpoint,
		Metadata:   req.Metadata,
	}
	s.enforceLimit(lineageID, namespace)
	return updatedConfig, nil
}

// DeleteLineage removes all checkpoints for a lineage.
func (s *Saver) DeleteLineage(ctx context.Context, lineageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.storage, lineageID)
	return nil
}

// Close releases resources held by the saver.
func (s *Saver) Close() error {
	return nil
}

// enforceLimit drops the oldest checkpoints beyond the per-lineage cap.
// Caller must hold the write lock.
func (s *Saver) enforceLimit(lineageID, namespace string) {
	byID := s.storage[lineageID][namespace]
	if s.maxCheckpointsPerLineage <= 0 || len(byID) <= s.maxCheckpointsPerLineage {
		return
	}
	var tuples []*graph.CheckpointTuple
	for _, tuple := range byID {
		tuples = append(tuples, tuple)
	}
	sort.Slice(tuples, func(i, j int) bool {
		return tuples[i].Checkpoint.Timestamp.Before(tuples[j].Checkpoint.Timestamp)
	})
	for _, tuple := range tuples[:len(byID)-s.maxCheckpointsPerLineage] {
		delete(byID, tuple.Checkpoint.ID)
	}
}

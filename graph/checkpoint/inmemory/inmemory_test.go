//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/graph"
)

func putCheckpoint(t *testing.T, s *Saver, lineageID string, step int, at time.Time) *graph.Checkpoint {
	t.Helper()
	ckpt := graph.NewCheckpoint(map[string]any{"step": step})
	ckpt.Timestamp = at
	_, err := s.Put(context.Background(), graph.PutRequest{
		Config:     graph.CreateCheckpointConfig(lineageID, "", graph.DefaultCheckpointNamespace),
		Checkpoint: ckpt,
		Metadata:   graph.NewCheckpointMetadata(graph.SourceLoop, step),
	})
	require.NoError(t, err)
	return ckpt
}

func TestPutAndGetLatest(t *testing.T) {
	s := NewSaver()
	ctx := context.Background()
	base := time.Now().UTC()

	putCheckpoint(t, s, "lineage-1", 1, base)
	newest := putCheckpoint(t, s, "lineage-1", 2, base.Add(time.Second))

	got, err := s.Get(ctx, graph.CreateCheckpointConfig("lineage-1", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newest.ID, got.ID)
}

func TestGetByCheckpointID(t *testing.T) {
	s := NewSaver()
	ctx := context.Background()
	base := time.Now().UTC()

	first := putCheckpoint(t, s, "lineage-1", 1, base)
	putCheckpoint(t, s, "lineage-1", 2, base.Add(time.Second))

	tuple, err := s.GetTuple(ctx, graph.CreateCheckpointConfig("lineage-1", first.ID, graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	require.NotNil(t, tuple)
	assert.Equal(t, first.ID, tuple.Checkpoint.ID)
	assert.Equal(t, first.ID, graph.GetCheckpointID(tuple.Config))
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s := NewSaver()
	ctx := context.Background()
	base := time.Now().UTC()

	for step := 1; step <= 3; step++ {
		putCheckpoint(t, s, "lineage-1", step, base.Add(time.Duration(step)*time.Second))
	}

	config := graph.CreateCheckpointConfig("lineage-1", "", graph.DefaultCheckpointNamespace)
	tuples, err := s.List(ctx, config, nil)
	require.NoError(t, err)
	require.Len(t, tuples, 3)
	assert.Equal(t, 3, tuples[0].Metadata.Step)
	assert.Equal(t, 1, tuples[2].Metadata.Step)

	limited, err := s.List(ctx, config, &graph.CheckpointFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 3, limited[0].Metadata.Step)
}

func TestDeleteLineage(t *testing.T) {
	s := NewSaver()
	ctx := context.Background()

	putCheckpoint(t, s, "lineage-1", 1, time.Now().UTC())
	putCheckpoint(t, s, "lineage-2", 1, time.Now().UTC())

	require.NoError(t, s.DeleteLineage(ctx, "lineage-1"))

	got, err := s.Get(ctx, graph.CreateCheckpointConfig("lineage-1", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get(ctx, graph.CreateCheckpointConfig("lineage-2", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestLineageIDRequired(t *testing.T) {
	s := NewSaver()
	ctx := context.Background()

	_, err := s.GetTuple(ctx, map[string]any{})
	assert.ErrorIs(t, err, graph.ErrLineageIDRequired)
	_, err = s.List(ctx, map[string]any{}, nil)
	assert.ErrorIs(t, err, graph.ErrLineageIDRequired)
	_, err = s.Put(ctx, graph.PutRequest{Config: map[string]any{}, Checkpoint: graph.NewCheckpoint(nil)})
	assert.ErrorIs(t, err, graph.ErrLineageIDRequired)
}

func TestMaxCheckpointsPerLineage(t *testing.T) {
	s := NewSaver().WithMaxCheckpointsPerLineage(2)
	ctx := context.Background()
	base := time.Now().UTC()

	for step := 1; step <= 4; step++ {
		putCheckpoint(t, s, "lineage-1", step, base.Add(time.Duration(step)*time.Second))
	}

	config := graph.CreateCheckpointConfig("lineage-1", "", graph.DefaultCheckpointNamespace)
	tuples, err := s.List(ctx, config, nil)
	require.NoError(t, err)
	require.Len(t, tuples, 2)
	// Only the newest survive.
	assert.Equal(t, 4, tuples[0].Metadata.Step)
	assert.Equal(t, 3, tuples[1].Metadata.Step)
}

func TestNamespaceIsolation(t *testing.T) {
	s := NewSaver()
	ctx := context.Background()

	ckpt := graph.NewCheckpoint(map[string]any{"ns": "a"})
	_, err := s.Put(ctx, graph.PutRequest{
		Config:     graph.CreateCheckpointConfig("lineage-1", "", "ns-a"),
		Checkpoint: ckpt,
		Metadata:   graph.NewCheckpointMetadata(graph.SourceLoop, 1),
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, graph.CreateCheckpointConfig("lineage-1", "", "ns-b"))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get(ctx, graph.CreateCheckpointConfig("lineage-1", "", "ns-a"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ckpt.ID, got.ID)
}

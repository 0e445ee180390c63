//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package sqlite

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/graph"
)

func openTestSaver(t *testing.T) *Saver {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	saver, err := NewSaver(db)
	require.NoError(t, err)
	return saver
}

func put(t *testing.T, s *Saver, lineageID string, step int, values map[string]any) *graph.Checkpoint {
	t.Helper()
	ckpt := graph.NewCheckpoint(values)
	_, err := s.Put(context.Background(), graph.PutRequest{
		Config:     graph.CreateCheckpointConfig(lineageID, "", graph.DefaultCheckpointNamespace),
		Checkpoint: ckpt,
		Metadata:   graph.NewCheckpointMetadata(graph.SourceLoop, step),
	})
	require.NoError(t, err)
	return ckpt
}

func TestNewSaverRejectsNilDB(t *testing.T) {
	_, err := NewSaver(nil)
	require.Error(t, err)
}

func TestPutAndGetRoundTrip(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	ckpt := put(t, s, "lineage-1", 1, map[string]any{"cursor": 2, "tasks": []any{"a", "b"}})

	got, err := s.Get(ctx, graph.CreateCheckpointConfig("lineage-1", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ckpt.ID, got.ID)
	assert.Contains(t, got.Values, "cursor")
	assert.Contains(t, got.Values, "tasks")
}

func TestLatestWinsWithoutCheckpointID(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	put(t, s, "lineage-1", 1, map[string]any{"step": 1})
	newest := put(t, s, "lineage-1", 2, map[string]any{"step": 2})

	tuple, err := s.GetTuple(ctx, graph.CreateCheckpointConfig("lineage-1", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	require.NotNil(t, tuple)
	assert.Equal(t, newest.ID, tuple.Checkpoint.ID)
	assert.Equal(t, 2, tuple.Metadata.Step)
}

func TestGetByCheckpointID(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	first := put(t, s, "lineage-1", 1, map[string]any{"step": 1})
	put(t, s, "lineage-1", 2, map[string]any{"step": 2})

	tuple, err := s.GetTuple(ctx, graph.CreateCheckpointConfig("lineage-1", first.ID, graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	require.NotNil(t, tuple)
	assert.Equal(t, first.ID, tuple.Checkpoint.ID)
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	got, err := s.Get(ctx, graph.CreateCheckpointConfig("missing", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	for step := 1; step <= 3; step++ {
		put(t, s, "lineage-1", step, map[string]any{"step": step})
	}

	config := graph.CreateCheckpointConfig("lineage-1", "", graph.DefaultCheckpointNamespace)
	tuples, err := s.List(ctx, config, nil)
	require.NoError(t, err)
	require.Len(t, tuples, 3)
	assert.Equal(t, 3, tuples[0].Metadata.Step)
	assert.Equal(t, 1, tuples[2].Metadata.Step)

	limited, err := s.List(ctx, config, &graph.CheckpointFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 3, limited[0].Metadata.Step)
}

func TestInterruptStateSurvivesRoundTrip(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	ckpt := graph.NewCheckpoint(map[string]any{"cursor": 1})
	ckpt.SetInterruptState("intake", "intake_input", map[string]any{"question": "which app?"}, 3)
	ckpt.NextNodes = []string{"intake"}
	_, err := s.Put(ctx, graph.PutRequest{
		Config:     graph.CreateCheckpointConfig("lineage-int", "", graph.DefaultCheckpointNamespace),
		Checkpoint: ckpt,
		Metadata:   graph.NewCheckpointMetadata(graph.SourceInterrupt, 3),
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, graph.CreateCheckpointConfig("lineage-int", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.IsInterrupted())
	assert.Equal(t, "intake", got.InterruptState.NodeID)
	assert.Equal(t, "intake_input", got.InterruptState.Key)
	assert.Equal(t, []string{"intake"}, got.NextNodes)
}

func TestDeleteLineage(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	put(t, s, "lineage-1", 1, nil)
	put(t, s, "lineage-2", 1, nil)

	require.NoError(t, s.DeleteLineage(ctx, "lineage-1"))

	got, err := s.Get(ctx, graph.CreateCheckpointConfig("lineage-1", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get(ctx, graph.CreateCheckpointConfig("lineage-2", "", graph.DefaultCheckpointNamespace))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestLineageIDRequired(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	_, err := s.GetTuple(ctx, map[string]any{})
	assert.ErrorIs(t, err, graph.ErrLineageIDRequired)
	_, err = s.List(ctx, map[string]any{}, nil)
	assert.ErrorIs(t, err, graph.ErrLineageIDRequired)
	assert.ErrorIs(t, s.DeleteLineage(ctx, ""), graph.ErrLineageIDRequired)
}

func TestExecutorPersistsThroughSQLite(t *testing.T) {
	// End to end: a graph executed with this saver leaves a resumable trail.
	s := openTestSaver(t)
	schema := graph.NewStateSchema()
	g, err := graph.NewStateGraph(schema).
		AddNode("only", func(ctx context.Context, state graph.State) (any, error) { return nil, nil }).
		SetEntryPoint("only").
		SetFinishPoint("only").
		Compile()
	require.NoError(t, err)

	exec, err := graph.NewExecutor(g, graph.WithCheckpointSaver(s))
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), graph.State{}, "lineage-e2e")
	require.NoError(t, err)

	manager := graph.NewCheckpointManager(s)
	latest, err := manager.Latest(context.Background(), "lineage-e2e", graph.DefaultCheckpointNamespace)
	require.NoError(t, err)
	require.NotNil(t, latest)
}

//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopNode(ctx context.Context, state State) (any, error) {
	return nil, nil
}

func TestBuilderCompile(t *testing.T) {
	g, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		AddNode("b", noopNode).
		SetEntryPoint("a").
		AddEdge("a", "b").
		SetFinishPoint("b").
		Compile()
	require.NoError(t, err)

	node, exists := g.Node("a")
	require.True(t, exists)
	assert.Equal(t, "a", node.Name)
	assert.Equal(t, "a", g.EntryPoint())
	assert.Len(t, g.Nodes(), 2)
}

func TestBuilderNodeOptions(t *testing.T) {
	g, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode, WithName("alpha"), WithDescription("first")).
		SetEntryPoint("a").
		SetFinishPoint("a").
		Compile()
	require.NoError(t, err)

	node, _ := g.Node("a")
	assert.Equal(t, "alpha", node.Name)
	assert.Equal(t, "first", node.Description)
}

func TestBuilderRejectsMissingEntryPoint(t *testing.T) {
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		SetFinishPoint("a").
		Compile()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestBuilderRejectsUnknownEdgeTarget(t *testing.T) {
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		SetEntryPoint("a").
		AddEdge("a", "missing").
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestBuilderRejectsDuplicateNode(t *testing.T) {
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		AddNode("a", noopNode).
		SetEntryPoint("a").
		SetFinishPoint("a").
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestBuilderConditionalEdgeValidatesPathMap(t *testing.T) {
	router := func(ctx context.Context, state State) (string, error) {
		return "a", nil
	}
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		SetEntryPoint("a").
		AddConditionalEdges("a", router, map[string]string{
			"a":       "a",
			"missing": "nowhere",
		}).
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestBuilderConditionalEdgeAllowsEnd(t *testing.T) {
	router := func(ctx context.Context, state State) (string, error) {
		return End, nil
	}
	g, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		SetEntryPoint("a").
		AddConditionalEdges("a", router, map[string]string{End: End}).
		Compile()
	require.NoError(t, err)

	edge, exists := g.ConditionalEdge("a")
	require.True(t, exists)
	assert.NotNil(t, edge.Condition)
}

func TestMustCompilePanicsOnInvalidGraph(t *testing.T) {
	assert.Panics(t, func() {
		NewStateGraph(NewStateSchema()).MustCompile()
	})
}

//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package pipeline

import (
	"context"

	"github.com/reelforge/reelforge/graph"
	"github.com/reelforge/reelforge/media"
)

// Routers are pure with respect to state: the same state always routes the
// same way, which keeps re-entry after a resume deterministic.

// queueAdvance dispatches the next queued task, or moves to aggregation
// once the cursor has passed the end of the queue.
func queueAdvance(ctx context.Context, state graph.State) (string, error) {
	queue := stateStringSlice(state, StateKeyPendingTasks)
	cursor := stateInt(state, StateKeyTaskCursor)
	if cursor < len(queue) {
		return NodeCaptureTask, nil
	}
	return NodeAggregate, nil
}

// renderGate proceeds to the render phase only when an error-free
// assembly artifact exists. The render node is only wired into topologies
// whose render collaborator resolved as available, so the gate never
// routes to a missing phase.
func renderGate(ctx context.Context, state graph.State) (string, error) {
	if stateString(state, StateKeyAssemblyPath) == "" {
		return graph.End, nil
	}
	return NodeRender, nil
}

// musicGate proceeds to the music phase only when the render phase
// produced an error-free file for the track to be mixed against.
func musicGate(ctx context.Context, state graph.State) (string, error) {
	result, ok := state[StateKeyRenderResult].(media.RenderResult)
	if !ok || result.Status != media.StatusSuccess || result.Path == "" {
		return graph.End, nil
	}
	return NodeMusic, nil
}

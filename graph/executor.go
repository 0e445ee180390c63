//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"

	"github.com/reelforge/reelforge/log"
	"github.com/reelforge/reelforge/telemetry/trace"
)

// Executor executes a graph with the given initial state.
//
// Execution is single-threaded and cooperative: exactly one node runs at a
// time, fan-out dispatches run sequentially in router order, and
// cancellation is observed between nodes, never mid-node.
type Executor struct {
	graph    *Graph
	maxSteps int
	saver    CheckpointSaver
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*ExecutorOptions)

// ExecutorOptions contains configuration options for creating an Executor.
type ExecutorOptions struct {
	// MaxSteps is the maximum number of steps for graph execution.
	MaxSteps int
	// CheckpointSaver persists state after each step when set.
	CheckpointSaver CheckpointSaver
}

// WithMaxSteps sets the maximum number of steps for graph execution.
func WithMaxSteps(maxSteps int) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.MaxSteps = maxSteps
	}
}

// WithCheckpointSaver sets the checkpoint saver used to persist state.
func WithCheckpointSaver(saver CheckpointSaver) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.CheckpointSaver = saver
	}
}

// NewExecutor creates a new graph executor.
func NewExecutor(graph *Graph, opts ...ExecutorOption) (*Executor, error) {
	if err := graph.validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	options := ExecutorOptions{
		MaxSteps: 100,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Executor{
		graph:    graph,
		maxSteps: options.MaxSteps,
		saver:    options.CheckpointSaver,
	}, nil
}

// Execute runs the graph to completion, pause, or failure. The lineageID
// keys checkpoints for this run. The returned error is a *InterruptError
// when a node suspended the run awaiting external input.
func (e *Executor) Execute(ctx context.Context, initialState State, lineageID string) (State, error) {
	ctx, span := trace.Tracer.Start(ctx, "execute_graph")
	defer span.End()
	span.SetAttributes(attribute.String("reelforge.lineage_id", lineageID))

	state := initialState.Clone()
	frontier := []Dispatch{{To: e.graph.EntryPoint()}}

	resuming := false
	if cmdVal, ok := state[StateKeyCommand]; ok {
		cmd, ok := cmdVal.(*ResumeCommand)
		if !ok {
			return state, fmt.Errorf("invalid resume command type: %T", cmdVal)
		}
		delete(state, StateKeyCommand)
		var err error
		if state, frontier, err = e.applyResume(ctx, state, cmd, lineageID); err != nil {
			return state, err
		}
		resuming = true
	}

	if e.saver != nil && !resuming {
		if err := e.checkpoint(ctx, lineageID, state, SourceInput, -1, dispatchTargets(frontier), nil); err != nil {
			return state, err
		}
	}

	var step int
	for len(frontier) > 0 {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}
		step++
		if step > e.maxSteps {
			return state, fmt.Errorf("maximum execution steps (%d) exceeded", e.maxSteps)
		}

		current := frontier[0]
		frontier = frontier[1:]
		if current.To == End {
			continue
		}

		next, fanOut, newState, err := e.executeNode(ctx, state, current, step, frontier, lineageID)
		state = newState
		if err != nil {
			return state, err
		}
		for _, d := range next {
			// Converging static and conditional edges coalesce on a
			// pending target; fan-out dispatches are queued as returned,
			// duplicate targets included.
			if fanOut || !containsDispatch(frontier, d.To) {
				frontier = append(frontier, d)
			}
		}

		if e.saver != nil {
			if err := e.checkpoint(ctx, lineageID, state, SourceLoop, step, dispatchTargets(frontier), nil); err != nil {
				return state, err
			}
		}
	}
	return state, nil
}

// applyResume restores checkpointed state shape, applies the command's
// explicit update and resume values, and selects the re-entry frontier.
func (e *Executor) applyResume(
	ctx context.Context, state State, cmd *ResumeCommand, lineageID string,
) (State, []Dispatch, error) {
	state = restoreStateWithSchema(e.graph.Schema(), state)

	if cmd.Update != nil {
		var err error
		state, err = e.graph.Schema().ApplyUpdate(state, cmd.Update)
		if err != nil {
			return state, nil, fmt.Errorf("resume update rejected: %w", err)
		}
	}
	if cmd.Resume != nil {
		state[StateKeyResume] = cmd.Resume
	}
	if len(cmd.ResumeMap) > 0 {
		resumeMap := make(map[string]any, len(cmd.ResumeMap))
		for k, v := range cmd.ResumeMap {
			resumeMap[k] = v
		}
		state[StateKeyResumeMap] = resumeMap
	}

	frontier := []Dispatch{{To: e.graph.EntryPoint()}}
	switch {
	case cmd.GoTo != "":
		if _, ok := e.graph.Node(cmd.GoTo); !ok && cmd.GoTo != End {
			return state, nil, fmt.Errorf("resume target node %s does not exist", cmd.GoTo)
		}
		frontier = []Dispatch{{To: cmd.GoTo}}
	case e.saver != nil:
		latest, err := NewCheckpointManager(e.saver).Latest(ctx, lineageID, DefaultCheckpointNamespace)
		if err != nil {
			return state, nil, err
		}
		if latest != nil && len(latest.Checkpoint.NextNodes) > 0 {
			frontier = frontier[:0]
			for _, n := range latest.Checkpoint.NextNodes {
				frontier = append(frontier, Dispatch{To: n})
			}
		}
	}
	return state, frontier, nil
}

// executeNode executes a single dispatch and returns its successors. The
// returned bool reports whether the successors came from a fan-out edge.
func (e *Executor) executeNode(
	ctx context.Context, state State, d Dispatch, step int, frontier []Dispatch, lineageID string,
) ([]Dispatch, bool, State, error) {
	nodeID := d.To
	node, exists := e.graph.Node(nodeID)
	if !exists {
		return nil, false, state, fmt.Errorf("node %s not found", nodeID)
	}

	ctx, span := trace.Tracer.Start(ctx, fmt.Sprintf("execute_node %s", nodeID))
	defer span.End()
	span.SetAttributes(
		attribute.String("reelforge.node_id", nodeID),
		attribute.Int("reelforge.step", step),
	)
	log.Debugf("executing node %s (step %d)", nodeID, step)

	// A dispatch overlay is visible to this invocation only; the shared
	// state receives nothing but the update the node returns.
	execState := state
	if d.State != nil {
		var err error
		execState, err = e.graph.Schema().ApplyUpdate(state, d.State)
		if err != nil {
			return nil, false, state, fmt.Errorf("node %s: dispatch overlay rejected: %w", nodeID, err)
		}
	}

	var goTo string
	if node.Function != nil {
		result, err := node.Function(ctx, execState)
		if err != nil {
			if ie, ok := AsInterruptError(err); ok {
				ie.NodeID = nodeID
				ie.Step = step
				if e.saver != nil {
					// The interrupted node re-enters first on resume.
					nextNodes := append([]string{nodeID}, dispatchTargets(frontier)...)
					if cerr := e.checkpoint(ctx, lineageID, execState, SourceInterrupt, step, nextNodes, ie); cerr != nil {
						return nil, false, state, cerr
					}
				}
				return nil, false, state, ie
			}
			span.SetAttributes(attribute.String("reelforge.error", err.Error()))
			return nil, false, state, fmt.Errorf("error executing node %s: %w", nodeID, err)
		}
		switch r := result.(type) {
		case nil:
		case *Command:
			if r.Update != nil {
				state, err = e.graph.Schema().ApplyUpdate(state, r.Update)
				if err != nil {
					return nil, false, state, fmt.Errorf("node %s: %w", nodeID, err)
				}
			}
			goTo = r.GoTo
		case State:
			state, err = e.graph.Schema().ApplyUpdate(state, r)
			if err != nil {
				return nil, false, state, fmt.Errorf("node %s: %w", nodeID, err)
			}
		default:
			return nil, false, state, fmt.Errorf("node %s returned invalid result type: %T", nodeID, result)
		}
	}

	if goTo != "" {
		span.SetAttributes(attribute.String("reelforge.next_node", goTo))
		return []Dispatch{{To: goTo}}, false, state, nil
	}
	next, fanOut, err := e.selectNextNodes(ctx, state, nodeID)
	if err != nil {
		return nil, false, state, err
	}
	return next, fanOut, state, nil
}

// selectNextNodes selects the successors based on edges and routing logic.
// The bool result reports whether they came from a fan-out edge.
func (e *Executor) selectNextNodes(ctx context.Context, state State, currentNodeID string) ([]Dispatch, bool, error) {
	if condEdge, exists := e.graph.ConditionalEdge(currentNodeID); exists {
		if condEdge.MultiCondition != nil {
			results, err := condEdge.MultiCondition(ctx, state)
			if err != nil {
				return nil, false, fmt.Errorf("fan-out edge evaluation failed: %w", err)
			}
			dispatches := make([]Dispatch, 0, len(results))
			for _, result := range results {
				target, err := resolvePath(condEdge, result.To)
				if err != nil {
					return nil, false, err
				}
				dispatches = append(dispatches, Dispatch{To: target, State: result.State})
			}
			return dispatches, true, nil
		}
		result, err := condEdge.Condition(ctx, state)
		if err != nil {
			return nil, false, fmt.Errorf("conditional edge evaluation failed: %w", err)
		}
		target, err := resolvePath(condEdge, result)
		if err != nil {
			return nil, false, err
		}
		return []Dispatch{{To: target}}, false, nil
	}
	edges := e.graph.Edges(currentNodeID)
	if len(edges) == 0 {
		// No outgoing edges, assume we should go to End.
		return []Dispatch{{To: End}}, false, nil
	}
	return []Dispatch{{To: edges[0].To}}, false, nil
}

func resolvePath(condEdge *ConditionalEdge, result string) (string, error) {
	if len(condEdge.PathMap) == 0 {
		return result, nil
	}
	if target, ok := condEdge.PathMap[result]; ok {
		return target, nil
	}
	return "", fmt.Errorf("condition result %s not found in path map", result)
}

// checkpoint persists the current state under the run's lineage.
func (e *Executor) checkpoint(
	ctx context.Context, lineageID string, state State,
	source string, step int, nextNodes []string, ie *InterruptError,
) error {
	values := make(map[string]any, len(state))
	for k, v := range state {
		if isInternalStateKey(k) {
			continue
		}
		values[k] = deepCopyAny(v)
	}
	ckpt := NewCheckpoint(values)
	ckpt.NextNodes = append([]string{}, nextNodes...)
	if ie != nil {
		ckpt.SetInterruptState(ie.NodeID, ie.Key, ie.Value, ie.Step)
	}
	req := PutRequest{
		Config:     CreateCheckpointConfig(lineageID, "", DefaultCheckpointNamespace),
		Checkpoint: ckpt,
		Metadata:   NewCheckpointMetadata(source, step),
	}
	if _, err := e.saver.Put(ctx, req); err != nil {
		return fmt.Errorf("failed to store checkpoint: %w", err)
	}
	return nil
}

// restoreStateWithSchema converts checkpoint values that lost their Go
// types during JSON serialization back to the schema-declared types.
func restoreStateWithSchema(schema *StateSchema, state State) State {
	for key, value := range state {
		field, ok := schema.Field(key)
		if !ok || field.Type == nil || value == nil {
			continue
		}
		if reflect.TypeOf(value).AssignableTo(field.Type) {
			continue
		}
		data, err := json.Marshal(value)
		if err != nil {
			continue
		}
		ptr := reflect.New(field.Type)
		if err := json.Unmarshal(data, ptr.Interface()); err != nil {
			continue
		}
		state[key] = ptr.Elem().Interface()
	}
	return state
}

func containsDispatch(frontier []Dispatch, id string) bool {
	for _, d := range frontier {
		if d.To == id {
			return true
		}
	}
	return false
}

// dispatchTargets projects a frontier to node IDs for checkpointing.
// Overlays are in-run state: a resume re-enters the recorded targets with
// the shared checkpoint values.
func dispatchTargets(frontier []Dispatch) []string {
	ids := make([]string, 0, len(frontier))
	for _, d := range frontier {
		ids = append(ids, d.To)
	}
	return ids
}

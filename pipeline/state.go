//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package pipeline

import (
	"encoding/json"
	"reflect"

	"github.com/reelforge/reelforge/graph"
	"github.com/reelforge/reelforge/media"
)

// State keys. Each phase-scoped key is written by exactly one phase and
// readable by every downstream phase.
const (
	// StateKeyInputPath is the validated app input path written by intake.
	StateKeyInputPath = "input_path"
	// StateKeyProjectID is assigned once analysis completes; immutable thereafter.
	StateKeyProjectID = "project_id"
	// StateKeyAppProfile is the inspected app profile written by analysis.
	StateKeyAppProfile = "app_profile"
	// StateKeyPendingTasks is the ordered list of queued task ids.
	StateKeyPendingTasks = "pending_tasks"
	// StateKeyTaskCursor is the queue cursor; monotonically non-decreasing
	// within a run and never exceeding the queue length.
	StateKeyTaskCursor = "task_cursor"
	// StateKeyCompletedTasks accumulates successfully captured task ids.
	StateKeyCompletedTasks = "completed_tasks"
	// StateKeyFailedTasks accumulates terminally failed task ids.
	StateKeyFailedTasks = "failed_tasks"
	// StateKeyTaskAttempts maps task id to attempt count.
	StateKeyTaskAttempts = "task_attempts"
	// StateKeyCaptureNotes accumulates per-attempt capture notes.
	StateKeyCaptureNotes = "capture_notes"
	// StateKeyAssets accumulates captured artifacts.
	StateKeyAssets = "assets"
	// StateKeyTimelinePlan is the editorial plan written by planning.
	StateKeyTimelinePlan = "timeline_plan"
	// StateKeyClipSpecs accumulates composed clip specifications.
	StateKeyClipSpecs = "clip_specs"
	// StateKeyAssemblyPath is the assembled timeline descriptor path.
	StateKeyAssemblyPath = "assembly_path"
	// StateKeyRenderResult is the optional render outcome.
	StateKeyRenderResult = "render_result"
	// StateKeyMusicResult is the optional music outcome.
	StateKeyMusicResult = "music_result"
	// StateKeyMessages accumulates operator-visible run notes.
	StateKeyMessages = "messages"
)

// Schema returns the pipeline state schema: the explicit reducer table
// deciding, per field, whether node updates replace or append.
func Schema() *graph.StateSchema {
	return graph.NewStateSchema().
		AddField(StateKeyInputPath, graph.StateField{
			Type: reflect.TypeOf(""),
		}).
		AddField(StateKeyProjectID, graph.StateField{
			Type: reflect.TypeOf(""),
		}).
		AddField(StateKeyAppProfile, graph.StateField{
			Type: reflect.TypeOf(AppProfile{}),
		}).
		AddField(StateKeyPendingTasks, graph.StateField{
			Type: reflect.TypeOf([]string{}),
		}).
		AddField(StateKeyTaskCursor, graph.StateField{
			Type:    reflect.TypeOf(0),
			Default: func() any { return 0 },
		}).
		AddField(StateKeyCompletedTasks, graph.StateField{
			Type:    reflect.TypeOf([]string{}),
			Reducer: graph.StringSliceReducer,
			Default: func() any { return []string{} },
		}).
		AddField(StateKeyFailedTasks, graph.StateField{
			Type:    reflect.TypeOf([]string{}),
			Reducer: graph.StringSliceReducer,
			Default: func() any { return []string{} },
		}).
		AddField(StateKeyTaskAttempts, graph.StateField{
			Type:    reflect.TypeOf(map[string]int{}),
			Reducer: attemptsReducer,
			Default: func() any { return map[string]int{} },
		}).
		AddField(StateKeyCaptureNotes, graph.StateField{
			Type:    reflect.TypeOf([]string{}),
			Reducer: graph.StringSliceReducer,
			Default: func() any { return []string{} },
		}).
		AddField(StateKeyAssets, graph.StateField{
			Type:    reflect.TypeOf([]AssetRef{}),
			Reducer: assetSliceReducer,
			Default: func() any { return []AssetRef{} },
		}).
		AddField(StateKeyTimelinePlan, graph.StateField{
			Type: reflect.TypeOf(TimelinePlan{}),
		}).
		AddField(StateKeyClipSpecs, graph.StateField{
			Type:    reflect.TypeOf([]ClipSpec{}),
			Reducer: clipSliceReducer,
			Default: func() any { return []ClipSpec{} },
		}).
		AddField(StateKeyAssemblyPath, graph.StateField{
			Type: reflect.TypeOf(""),
		}).
		AddField(StateKeyRenderResult, graph.StateField{
			Type: reflect.TypeOf(media.RenderResult{}),
		}).
		AddField(StateKeyMusicResult, graph.StateField{
			Type: reflect.TypeOf(media.MusicResult{}),
		}).
		AddField(StateKeyMessages, graph.StateField{
			Type:    reflect.TypeOf([]string{}),
			Reducer: graph.StringSliceReducer,
			Default: func() any { return []string{} },
		})
}

// attemptsReducer merges per-task attempt counters.
func attemptsReducer(existing, update any) any {
	if existing == nil {
		existing = map[string]int{}
	}
	existingMap, ok1 := existing.(map[string]int)
	updateMap, ok2 := update.(map[string]int)
	if !ok1 || !ok2 {
		return update
	}
	result := make(map[string]int, len(existingMap)+len(updateMap))
	for k, v := range existingMap {
		result[k] = v
	}
	for k, v := range updateMap {
		result[k] = v
	}
	return result
}

// assetSliceReducer appends captured assets in execution order.
func assetSliceReducer(existing, update any) any {
	if existing == nil {
		existing = []AssetRef{}
	}
	existingSlice, ok1 := existing.([]AssetRef)
	updateSlice, ok2 := update.([]AssetRef)
	if !ok1 || !ok2 {
		return update
	}
	return append(existingSlice, updateSlice...)
}

// clipSliceReducer appends composed clip specs in execution order.
func clipSliceReducer(existing, update any) any {
	if existing == nil {
		existing = []ClipSpec{}
	}
	existingSlice, ok1 := existing.([]ClipSpec)
	updateSlice, ok2 := update.([]ClipSpec)
	if !ok1 || !ok2 {
		return update
	}
	return append(existingSlice, updateSlice...)
}

// stateString reads a string field, tolerating absence.
func stateString(state graph.State, key string) string {
	value, _ := state[key].(string)
	return value
}

// stateInt reads an int field, tolerating absence and values that lost
// their Go type during checkpoint serialization.
func stateInt(state graph.State, key string) int {
	switch v := state[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}

// stateStringSlice reads a []string field, tolerating absence.
func stateStringSlice(state graph.State, key string) []string {
	value, _ := state[key].([]string)
	return value
}

// stateAssets reads the assets accumulator.
func stateAssets(state graph.State) []AssetRef {
	value, _ := state[StateKeyAssets].([]AssetRef)
	return value
}

// stateAttempts reads the per-task attempt counters.
func stateAttempts(state graph.State) map[string]int {
	value, _ := state[StateKeyTaskAttempts].(map[string]int)
	return value
}

//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"errors"
	"fmt"
	"time"
)

// InterruptError represents an interrupt in graph execution that can be
// resumed. It is returned from Executor.Execute when a node suspends the
// run awaiting external input.
type InterruptError struct {
	// Value is the payload that was passed to Interrupt().
	Value any
	// Key identifies the interrupt site within the node.
	Key string
	// NodeID is the ID of the node where the interrupt occurred.
	NodeID string
	// Step is the step number when the interrupt occurred.
	Step int
	// Timestamp is when the interrupt occurred.
	Timestamp time.Time
}

// Error returns the error message for the interrupt.
func (e *InterruptError) Error() string {
	return fmt.Sprintf("graph interrupted at node %s (step %d): %v", e.NodeID, e.Step, e.Value)
}

// NewInterruptError creates a new InterruptError with the given key and value.
func NewInterruptError(key string, value any) *InterruptError {
	return &InterruptError{
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UTC(),
	}
}

// IsInterruptError checks if an error is an InterruptError.
func IsInterruptError(err error) bool {
	var ie *InterruptError
	return errors.As(err, &ie)
}

// AsInterruptError extracts an InterruptError from an error.
func AsInterruptError(err error) (*InterruptError, bool) {
	var ie *InterruptError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// ResumeCommand carries the external answer and routing instruction used
// to continue a paused run.
type ResumeCommand struct {
	// Resume is the value handed back to the interrupted node.
	Resume any
	// ResumeMap maps interrupt keys to resume values.
	ResumeMap map[string]any
	// GoTo overrides the node to re-enter; empty means the node recorded
	// by the interrupt checkpoint.
	GoTo string
	// Update is an explicit state update applied before re-entry.
	Update State
}

// NewResumeCommand creates a new resume command.
func NewResumeCommand() *ResumeCommand {
	return &ResumeCommand{ResumeMap: make(map[string]any)}
}

// WithResume sets the resume value.
func (c *ResumeCommand) WithResume(value any) *ResumeCommand {
	c.Resume = value
	return c
}

// WithGoTo sets the node to re-enter.
func (c *ResumeCommand) WithGoTo(nodeID string) *ResumeCommand {
	c.GoTo = nodeID
	return c
}

// WithUpdate sets a state update applied before re-entry.
func (c *ResumeCommand) WithUpdate(update State) *ResumeCommand {
	c.Update = update
	return c
}

// AddResumeValue adds a resume value for a specific interrupt key.
func (c *ResumeCommand) AddResumeValue(key string, value any) *ResumeCommand {
	if c.ResumeMap == nil {
		c.ResumeMap = make(map[string]any)
	}
	c.ResumeMap[key] = value
	return c
}

// Interrupt suspends execution at the current node and surfaces the given
// prompt value. On resume it returns the externally supplied answer. The
// key makes the call idempotent: if the node re-executes after already
// consuming an answer for the key, the same answer is returned instead of
// interrupting again.
func Interrupt(state State, key string, prompt any) (any, error) {
	usedMap, _ := state[StateKeyUsedInterrupts].(map[string]any)
	if usedMap == nil {
		usedMap = make(map[string]any)
		state[StateKeyUsedInterrupts] = usedMap
	}

	// Already answered during this invocation.
	if usedValue, exists := usedMap[key]; exists {
		return usedValue, nil
	}

	// Single pending resume value.
	if resumeValue, exists := state[StateKeyResume]; exists {
		usedMap[key] = resumeValue
		delete(state, StateKeyResume)
		return resumeValue, nil
	}

	// Keyed resume values.
	if resumeMap, ok := state[StateKeyResumeMap].(map[string]any); ok {
		if resumeValue, exists := resumeMap[key]; exists {
			usedMap[key] = resumeValue
			delete(resumeMap, key)
			return resumeValue, nil
		}
	}

	// Not resuming, so interrupt with the prompt.
	return nil, NewInterruptError(key, prompt)
}

// ResumeValue extracts a resume value from the state with type safety.
func ResumeValue[T any](state State, key string) (T, bool) {
	var zero T

	if resumeValue, exists := state[StateKeyResume]; exists {
		if typedValue, ok := resumeValue.(T); ok {
			delete(state, StateKeyResume)
			return typedValue, true
		}
	}

	if resumeMap, ok := state[StateKeyResumeMap].(map[string]any); ok {
		if resumeValue, exists := resumeMap[key]; exists {
			if typedValue, ok := resumeValue.(T); ok {
				delete(resumeMap, key)
				return typedValue, true
			}
		}
	}

	return zero, false
}

// HasResumeValue checks if a resume value is available for the given key.
func HasResumeValue(state State, key string) bool {
	if _, exists := state[StateKeyResume]; exists {
		return true
	}
	if resumeMap, ok := state[StateKeyResumeMap].(map[string]any); ok {
		if _, exists := resumeMap[key]; exists {
			return true
		}
	}
	return false
}

// ClearResumeValues clears all pending resume values from the state.
func ClearResumeValues(state State) {
	delete(state, StateKeyResume)
	delete(state, StateKeyResumeMap)
}

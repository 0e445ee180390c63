//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package session tracks the resources created during a single pipeline
// run. The tracker is an observability/cleanup sidecar: every phase writes
// to it, but only the execution driver's cancellation path reads it, so no
// phase may depend on its contents for control flow. It is not persisted.
package session

import (
	"fmt"
	"sync"
)

// Session is the process-wide record of a run in progress. The engine runs
// one logical pipeline at a time; the session is created at run start and
// discarded at run end. Pass it explicitly rather than through a package
// global so tests can run concurrently.
type Session struct {
	mu sync.Mutex

	runID          string
	stage          string
	projectID      string
	taskIDs        []string
	completedTasks int
	interrupted    bool
}

// New creates a session for the given run identity.
func New(runID string) *Session {
	return &Session{runID: runID}
}

// RunID returns the run identity the session tracks.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// SetStage records the pipeline phase currently executing.
func (s *Session) SetStage(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

// SetProjectID records the project created for this run.
func (s *Session) SetProjectID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectID = id
}

// AddTask records a task created for this run.
func (s *Session) AddTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskIDs = append(s.taskIDs, id)
}

// MarkTaskCompleted increments the completed-task counter.
func (s *Session) MarkTaskCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedTasks++
}

// MarkInterrupted flags the run as interrupted. The execution driver
// checks this between nodes; the running node always finishes first.
func (s *Session) MarkInterrupted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = true
}

// Interrupted reports whether the run was flagged as interrupted.
func (s *Session) Interrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

// Summary is the operator-facing snapshot of what a run has created.
type Summary struct {
	RunID          string   `json:"run_id"`
	Stage          string   `json:"stage"`
	ProjectID      string   `json:"project_id,omitempty"`
	TaskIDs        []string `json:"task_ids"`
	TotalTasks     int      `json:"total_tasks"`
	CompletedTasks int      `json:"completed_tasks"`
	Interrupted    bool     `json:"interrupted"`
}

// Summary returns a snapshot of the session.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	taskIDs := make([]string, len(s.taskIDs))
	copy(taskIDs, s.taskIDs)
	return Summary{
		RunID:          s.runID,
		Stage:          s.stage,
		ProjectID:      s.projectID,
		TaskIDs:        taskIDs,
		TotalTasks:     len(s.taskIDs),
		CompletedTasks: s.completedTasks,
		Interrupted:    s.interrupted,
	}
}

// String renders the summary for terminal output.
func (s Summary) String() string {
	return fmt.Sprintf(
		"run %s: stage=%s project=%s tasks=%d completed=%d interrupted=%v",
		s.RunID, s.Stage, s.ProjectID, s.TotalTasks, s.CompletedTasks, s.Interrupted,
	)
}

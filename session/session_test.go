//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionTracksRunResources(t *testing.T) {
	s := New("run-1")
	assert.Equal(t, "run-1", s.RunID())

	s.SetStage("capture")
	s.SetProjectID("project-1")
	s.AddTask("task-1")
	s.AddTask("task-2")
	s.MarkTaskCompleted()

	summary := s.Summary()
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "capture", summary.Stage)
	assert.Equal(t, "project-1", summary.ProjectID)
	assert.Equal(t, []string{"task-1", "task-2"}, summary.TaskIDs)
	assert.Equal(t, 2, summary.TotalTasks)
	assert.Equal(t, 1, summary.CompletedTasks)
	assert.False(t, summary.Interrupted)
}

func TestMarkInterrupted(t *testing.T) {
	s := New("run-1")
	assert.False(t, s.Interrupted())
	s.MarkInterrupted()
	assert.True(t, s.Interrupted())
	assert.True(t, s.Summary().Interrupted)
}

func TestSummaryIsSnapshot(t *testing.T) {
	s := New("run-1")
	s.AddTask("task-1")

	summary := s.Summary()
	s.AddTask("task-2")

	assert.Equal(t, []string{"task-1"}, summary.TaskIDs)
	assert.Equal(t, 2, s.Summary().TotalTasks)
}

func TestSummaryString(t *testing.T) {
	s := New("run-1")
	s.SetStage("render")
	s.SetProjectID("project-1")

	text := s.Summary().String()
	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "stage=render")
	assert.Contains(t, text, "project=project-1")
}

func TestConcurrentAccess(t *testing.T) {
	s := New("run-1")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddTask("task")
			s.MarkTaskCompleted()
			s.SetStage("capture")
			_ = s.Summary()
		}()
	}
	wg.Wait()

	summary := s.Summary()
	assert.Equal(t, 10, summary.TotalTasks)
	assert.Equal(t, 10, summary.CompletedTasks)
}

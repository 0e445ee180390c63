//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides in-memory task and project stores for tests
// and dry runs.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge/store"
)

// TaskStore is an in-memory implementation of store.TaskStore.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*store.Task
	seq   int
	// order preserves creation order per project.
	order map[string]int
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*store.Task),
		order: make(map[string]int),
	}
}

// Create stores a new pending task and returns its id.
func (s *TaskStore) Create(ctx context.Context, projectID, description, taskType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.seq++
	s.order[id] = s.seq
	s.tasks[id] = &store.Task{
		ID:          id,
		ProjectID:   projectID,
		Description: description,
		Type:        taskType,
		Status:      store.TaskStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	return id, nil
}

// UpdateStatus sets status, attempt count, and capture outcome.
func (s *TaskStore) UpdateStatus(ctx context.Context, id, status string, attempts int, artifactPath, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	task.Status = status
	task.Attempts = attempts
	if artifactPath != "" {
		task.ArtifactPath = artifactPath
	}
	if notes != "" {
		task.Notes = notes
	}
	return nil
}

// Get returns a task by id.
func (s *TaskStore) Get(ctx context.Context, id string) (*store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	clone := *task
	return &clone, nil
}

// GetPending returns the project's pending tasks in creation order.
func (s *TaskStore) GetPending(ctx context.Context, projectID string) ([]*store.Task, error) {
	return s.list(projectID, store.TaskStatusPending)
}

// GetAll returns all of the project's tasks in creation order.
func (s *TaskStore) GetAll(ctx context.Context, projectID string) ([]*store.Task, error) {
	return s.list(projectID, "")
}

// Delete removes a task.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	delete(s.order, id)
	return nil
}

func (s *TaskStore) list(projectID, status string) ([]*store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []*store.Task
	for _, task := range s.tasks {
		if task.ProjectID != projectID {
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		clone := *task
		tasks = append(tasks, &clone)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return s.order[tasks[i].ID] < s.order[tasks[j].ID]
	})
	return tasks, nil
}

// ProjectStore is an in-memory implementation of store.ProjectStore.
type ProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*store.Project
}

// NewProjectStore creates an empty in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{projects: make(map[string]*store.Project)}
}

// Create stores a new active project and returns its id.
func (s *ProjectStore) Create(ctx context.Context, inputPath, projectContext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.projects[id] = &store.Project{
		ID:        id,
		InputPath: inputPath,
		Context:   projectContext,
		Status:    store.ProjectStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

// UpdateStatus sets the project status.
func (s *ProjectStore) UpdateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrProjectNotFound, id)
	}
	project.Status = status
	return nil
}

// Get returns a project by id.
func (s *ProjectStore) Get(ctx context.Context, id string) (*store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrProjectNotFound, id)
	}
	clone := *project
	return &clone, nil
}

// Delete removes a project.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrProjectNotFound, id)
	}
	delete(s.projects, id)
	return nil
}

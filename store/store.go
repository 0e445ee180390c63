//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package store defines the task and project persistence collaborators
// consumed by the pipeline. Implementations live in subpackages.
package store

import (
	"context"
	"errors"
	"time"
)

// Task status values.
const (
	TaskStatusPending = "pending"
	TaskStatusSuccess = "success"
	TaskStatusFailed  = "failed"
)

// Project status values.
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Errors.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
)

// Task is an independent unit of capturable work. Tasks are created during
// analysis, mutated during capture, and never deleted during a run;
// deletion only happens as part of session cleanup after cancellation.
type Task struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Description  string    `json:"description"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Project is the product-video project a run operates on.
type Project struct {
	ID        string    `json:"id"`
	InputPath string    `json:"input_path"`
	Context   string    `json:"context,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskStore persists tasks.
type TaskStore interface {
	// Create stores a new pending task and returns its id.
	Create(ctx context.Context, projectID, description, taskType string) (string, error)
	// UpdateStatus sets status, attempt count, and capture outcome.
	UpdateStatus(ctx context.Context, id, status string, attempts int, artifactPath, notes string) error
	// Get returns a task by id.
	Get(ctx context.Context, id string) (*Task, error)
	// GetPending returns the project's pending tasks in creation order.
	GetPending(ctx context.Context, projectID string) ([]*Task, error)
	// GetAll returns all of the project's tasks in creation order.
	GetAll(ctx context.Context, projectID string) ([]*Task, error)
	// Delete removes a task. Used only by session cleanup.
	Delete(ctx context.Context, id string) error
}

// ProjectStore persists projects.
type ProjectStore interface {
	// Create stores a new active project and returns its id.
	Create(ctx context.Context, inputPath, context string) (string, error)
	// UpdateStatus sets the project status.
	UpdateStatus(ctx context.Context, id, status string) error
	// Get returns a project by id.
	Get(ctx context.Context, id string) (*Project, error)
	// Delete removes a project. Used only by session cleanup.
	Delete(ctx context.Context, id string) error
}

//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides SQLite-backed task and project stores. The
// caller supplies the *sql.DB and keeps ownership of it; a driver such as
// github.com/mattn/go-sqlite3 must be registered by the importing binary.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge/store"
)

const (
	createTasksTable = "CREATE TABLE IF NOT EXISTS tasks (" +
		"id TEXT PRIMARY KEY, " +
		"project_id TEXT NOT NULL, " +
		"description TEXT NOT NULL, " +
		"task_type TEXT NOT NULL, " +
		"status TEXT NOT NULL, " +
		"attempts INTEGER NOT NULL DEFAULT 0, " +
		"artifact_path TEXT NOT NULL DEFAULT '', " +
		"notes TEXT NOT NULL DEFAULT '', " +
		"created_at INTEGER NOT NULL" +
		")"

	createProjectsTable = "CREATE TABLE IF NOT EXISTS projects (" +
		"id TEXT PRIMARY KEY, " +
		"input_path TEXT NOT NULL, " +
		"context TEXT NOT NULL DEFAULT '', " +
		"status TEXT NOT NULL, " +
		"created_at INTEGER NOT NULL" +
		")"

	selectTask = "SELECT id, project_id, description, task_type, status, attempts, artifact_path, notes, created_at " +
		"FROM tasks"
)

// TaskStore is a SQLite implementation of store.TaskStore.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a task store on the given database, creating the
// tasks table when absent.
func NewTaskStore(db *sql.DB) (*TaskStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if _, err := db.Exec(createTasksTable); err != nil {
		return nil, fmt.Errorf("failed to create tasks table: %w", err)
	}
	return &TaskStore{db: db}, nil
}

// Create stores a new pending task and returns its id.
func (s *TaskStore) Create(ctx context.Context, projectID, description, taskType string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (id, project_id, description, task_type, status, attempts, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)",
		id, projectID, description, taskType, store.TaskStatusPending, time.Now().UTC().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert task: %w", err)
	}
	return id, nil
}

// UpdateStatus sets status, attempt count, and capture outcome.
func (s *TaskStore) UpdateStatus(ctx context.Context, id, status string, attempts int, artifactPath, notes string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ?, attempts = ?, "+
			"artifact_path = CASE WHEN ? != '' THEN ? ELSE artifact_path END, "+
			"notes = CASE WHEN ? != '' THEN ? ELSE notes END "+
			"WHERE id = ?",
		status, attempts, artifactPath, artifactPath, notes, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	return nil
}

// Get returns a task by id.
func (s *TaskStore) Get(ctx context.Context, id string) (*store.Task, error) {
	row := s.db.QueryRowContext(ctx, selectTask+" WHERE id = ?", id)
	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	return task, err
}

// GetPending returns the project's pending tasks in creation order.
func (s *TaskStore) GetPending(ctx context.Context, projectID string) ([]*store.Task, error) {
	return s.query(ctx, selectTask+" WHERE project_id = ? AND status = ? ORDER BY created_at, rowid",
		projectID, store.TaskStatusPending)
}

// GetAll returns all of the project's tasks in creation order.
func (s *TaskStore) GetAll(ctx context.Context, projectID string) ([]*store.Task, error) {
	return s.query(ctx, selectTask+" WHERE project_id = ? ORDER BY created_at, rowid", projectID)
}

// Delete removes a task.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	return nil
}

func (s *TaskStore) query(ctx context.Context, query string, args ...any) ([]*store.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*store.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(scan func(...any) error) (*store.Task, error) {
	var task store.Task
	var createdAt int64
	err := scan(&task.ID, &task.ProjectID, &task.Description, &task.Type,
		&task.Status, &task.Attempts, &task.ArtifactPath, &task.Notes, &createdAt)
	if err != nil {
		return nil, err
	}
	task.CreatedAt = time.Unix(0, createdAt).UTC()
	return &task, nil
}

// ProjectStore is a SQLite implementation of store.ProjectStore.
type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore creates a project store on the given database, creating
// the projects table when absent.
func NewProjectStore(db *sql.DB) (*ProjectStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if _, err := db.Exec(createProjectsTable); err != nil {
		return nil, fmt.Errorf("failed to create projects table: %w", err)
	}
	return &ProjectStore{db: db}, nil
}

// Create stores a new active project and returns its id.
func (s *ProjectStore) Create(ctx context.Context, inputPath, projectContext string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, input_path, context, status, created_at) VALUES (?, ?, ?, ?, ?)",
		id, inputPath, projectContext, store.ProjectStatusActive, time.Now().UTC().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert project: %w", err)
	}
	return id, nil
}

// UpdateStatus sets the project status.
func (s *ProjectStore) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE projects SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update project %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrProjectNotFound, id)
	}
	return nil
}

// Get returns a project by id.
func (s *ProjectStore) Get(ctx context.Context, id string) (*store.Project, error) {
	var project store.Project
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, input_path, context, status, created_at FROM projects WHERE id = ?", id).
		Scan(&project.ID, &project.InputPath, &project.Context, &project.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	project.CreatedAt = time.Unix(0, createdAt).UTC()
	return &project, nil
}

// Delete removes a project.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrProjectNotFound, id)
	}
	return nil
}

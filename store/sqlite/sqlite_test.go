//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

package sqlite

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewStoresRejectNilDB(t *testing.T) {
	_, err := NewTaskStore(nil)
	require.Error(t, err)
	_, err = NewProjectStore(nil)
	require.Error(t, err)
}

func TestTaskLifecycle(t *testing.T) {
	s, err := NewTaskStore(openTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	id, err := s.Create(ctx, "project-1", "launch walkthrough", "screen_recording")
	require.NoError(t, err)

	task, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.TaskStatusPending, task.Status)
	assert.Equal(t, "launch walkthrough", task.Description)
	assert.Equal(t, "screen_recording", task.Type)
	assert.False(t, task.CreatedAt.IsZero())

	require.NoError(t, s.UpdateStatus(ctx, id, store.TaskStatusSuccess, 3, "/a.mov", "done"))
	task, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.TaskStatusSuccess, task.Status)
	assert.Equal(t, 3, task.Attempts)
	assert.Equal(t, "/a.mov", task.ArtifactPath)
	assert.Equal(t, "done", task.Notes)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestUpdateStatusKeepsPreviousOutcomeWhenEmpty(t *testing.T) {
	s, err := NewTaskStore(openTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	id, err := s.Create(ctx, "project-1", "demo", "screenshot")
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, id, store.TaskStatusSuccess, 1, "/a.mov", "first"))
	require.NoError(t, s.UpdateStatus(ctx, id, store.TaskStatusFailed, 2, "", ""))

	task, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/a.mov", task.ArtifactPath)
	assert.Equal(t, "first", task.Notes)
	assert.Equal(t, 2, task.Attempts)
}

func TestQueriesFilterByProjectAndStatus(t *testing.T) {
	s, err := NewTaskStore(openTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	var ids []string
	for _, description := range []string{"first", "second", "third"} {
		id, err := s.Create(ctx, "project-1", description, "screen_recording")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	otherID, err := s.Create(ctx, "project-2", "other", "screenshot")
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, ids[0], store.TaskStatusSuccess, 1, "/a.mov", ""))

	all, err := s.GetAll(ctx, "project-1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, task := range all {
		assert.Equal(t, ids[i], task.ID)
	}

	pending, err := s.GetPending(ctx, "project-1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[1], pending[0].ID)
	assert.Equal(t, ids[2], pending[1].ID)

	other, err := s.GetAll(ctx, "project-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, otherID, other[0].ID)
}

func TestTaskNotFoundErrors(t *testing.T) {
	s, err := NewTaskStore(openTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.ErrorIs(t, s.UpdateStatus(ctx, "missing", store.TaskStatusFailed, 1, "", ""), store.ErrTaskNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), store.ErrTaskNotFound)
}

func TestProjectLifecycle(t *testing.T) {
	s, err := NewProjectStore(openTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	id, err := s.Create(ctx, "/apps/demo", "marketing video")
	require.NoError(t, err)

	project, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.ProjectStatusActive, project.Status)
	assert.Equal(t, "/apps/demo", project.InputPath)
	assert.Equal(t, "marketing video", project.Context)
	assert.False(t, project.CreatedAt.IsZero())

	require.NoError(t, s.UpdateStatus(ctx, id, store.ProjectStatusCancelled))
	project, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.ProjectStatusCancelled, project.Status)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestStoresShareOneDatabase(t *testing.T) {
	db := openTestDB(t)
	tasks, err := NewTaskStore(db)
	require.NoError(t, err)
	projects, err := NewProjectStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	projectID, err := projects.Create(ctx, "/apps/demo", "")
	require.NoError(t, err)
	taskID, err := tasks.Create(ctx, projectID, "demo", "screenshot")
	require.NoError(t, err)

	task, err := tasks.Get(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, projectID, task.ProjectID)
}

//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides a SQLite-based checkpoint storage implementation
// for graph execution state persistence and recovery. The caller supplies
// the *sql.DB and keeps ownership of it; a driver such as
// github.com/mattn/go-sqlite3 must be registered by the importing binary.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reelforge/reelforge/graph"
)

const (
	createCheckpointsTable = "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"lineage_id TEXT NOT NULL, " +
		"checkpoint_ns TEXT NOT NULL, " +
		"checkpoint_id TEXT NOT NULL, " +
		"parent_checkpoint_id TEXT, " +
		"ts INTEGER NOT NULL, " +
		"checkpoint_json BLOB NOT NULL, " +
		"metadata_json BLOB NOT NULL, " +
		"PRIMARY KEY (lineage_id, checkpoint_ns, checkpoint_id)" +
		")"

	insertCheckpoint = "INSERT OR REPLACE INTO checkpoints " +
		"(lineage_id, checkpoint_ns, checkpoint_id, parent_checkpoint_id, ts, checkpoint_json, metadata_json) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?)"

	selectLatest = "SELECT checkpoint_id, checkpoint_json, metadata_json FROM checkpoints " +
		"WHERE lineage_id = ? AND checkpoint_ns = ? ORDER BY ts DESC, rowid DESC LIMIT 1"

	selectByID = "SELECT checkpoint_id, checkpoint_json, metadata_json FROM checkpoints " +
		"WHERE lineage_id = ? AND checkpoint_ns = ? AND checkpoint_id = ?"

	selectList = "SELECT checkpoint_id, checkpoint_json, metadata_json FROM checkpoints " +
		"WHERE lineage_id = ? AND checkpoint_ns = ? ORDER BY ts DESC, rowid DESC"

	deleteByLineage = "DELETE FROM checkpoints WHERE lineage_id = ?"
)

// Saver provides a SQLite implementation of graph.CheckpointSaver.
type Saver struct {
	db *sql.DB
}

// NewSaver creates a new SQLite checkpoint saver on the given database,
// creating the checkpoints table when absent.
func NewSaver(db *sql.DB) (*Saver, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if _, err := db.Exec(createCheckpointsTable); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints table: %w", err)
	}
	return &Saver{db: db}, nil
}

// Get retrieves a checkpoint by configuration.
func (s *Saver) Get(ctx context.Context, config map[string]any) (*graph.Checkpoint, error) {
	tuple, err := s.GetTuple(ctx, config)
	if err != nil {
		return nil, err
	}
	if tuple == nil {
		return nil, nil
	}
	return tuple.Checkpoint, nil
}

// GetTuple retrieves a checkpoint tuple by configuration. When the config
// carries no checkpoint ID the latest checkpoint is returned.
func (s *Saver) GetTuple(ctx context.Context, config map[string]any) (*graph.CheckpointTuple, error) {
	lineageID := graph.GetLineageID(config)
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	namespace := graph.GetNamespace(config)
	checkpointID := graph.GetCheckpointID(config)

	var row *sql.Row
	if checkpointID == "" {
		row = s.db.QueryRowContext(ctx, selectLatest, lineageID, namespace)
	} else {
		row = s.db.QueryRowContext(ctx, selectByID, lineageID, namespace, checkpointID)
	}
	tuple, err := scanTuple(row, lineageID, namespace)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tuple, err
}

// List retrieves checkpoints for a lineage/namespace, newest first.
func (s *Saver) List(
	ctx context.Context, config map[string]any, filter *graph.CheckpointFilter,
) ([]*graph.CheckpointTuple, error) {
	lineageID := graph.GetLineageID(config)
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	namespace := graph.GetNamespace(config)

	query := selectList
	args := []any{lineageID, namespace}
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var tuples []*graph.CheckpointTuple
	for rows.Next() {
		var (
			checkpointID   string
			checkpointJSON []byte
			metadataJSON   []byte
		)
		if err := rows.Scan(&checkpointID, &checkpointJSON, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		tuple, err := decodeTuple(checkpointJSON, metadataJSON, lineageID, namespace, checkpointID)
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, tuple)
	}
	return tuples, rows.Err()
}

// Put stores a checkpoint.
func (s *Saver) Put(ctx context.Context, req graph.PutRequest) (map[string]any, error) {
	lineageID := graph.GetLineageID(req.Config)
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	namespace := graph.GetNamespace(req.Config)

	checkpointJSON, err := json.Marshal(req.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = graph.NewCheckpointMetadata(graph.SourceLoop, 0)
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertCheckpoint,
		lineageID, namespace, req.Checkpoint.ID, req.Checkpoint.ParentCheckpointID,
		time.Now().UTC().UnixNano(), checkpointJSON, metadataJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return graph.CreateCheckpointConfig(lineageID, req.Checkpoint.ID, namespace), nil
}

// DeleteLineage removes all checkpoints for a lineage.
func (s *Saver) DeleteLineage(ctx context.Context, lineageID string) error {
	if lineageID == "" {
		return graph.ErrLineageIDRequired
	}
	if _, err := s.db.ExecContext(ctx, deleteByLineage, lineageID); err != nil {
		return fmt.Errorf("failed to delete lineage %s: %w", lineageID, err)
	}
	return nil
}

// Close releases resources held by the saver. The *sql.DB is owned by the
// caller and is not closed here.
func (s *Saver) Close() error {
	return nil
}

func scanTuple(row *sql.Row, lineageID, namespace string) (*graph.CheckpointTuple, error) {
	var (
		checkpointID   string
		checkpointJSON []byte
		metadataJSON   []byte
	)
	if err := row.Scan(&checkpointID, &checkpointJSON, &metadataJSON); err != nil {
		return nil, err
	}
	return decodeTuple(checkpointJSON, metadataJSON, lineageID, namespace, checkpointID)
}

func decodeTuple(
	checkpointJSON, metadataJSON []byte, lineageID, namespace, checkpointID string,
) (*graph.CheckpointTuple, error) {
	var checkpoint graph.Checkpoint
	if err := json.Unmarshal(checkpointJSON, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", checkpointID, err)
	}
	var metadata graph.CheckpointMetadata
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint metadata %s: %w", checkpointID, err)
	}
	return &graph.CheckpointTuple{
		Config:     graph.CreateCheckpointConfig(lineageID, checkpointID, namespace),
		Checkpoint: &checkpoint,
		Metadata:   &metadata,
	}, nil
}

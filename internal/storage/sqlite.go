// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/vcpchat-tui/internal/model"
)

// DatabaseFile is the SQLite file name inside the storage directory.
const DatabaseFile = "history.db"

// SchemaVersion tracks the database schema version for migrations.
const SchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS histories (
    agent_id TEXT NOT NULL,
    topic_id TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    message_count INTEGER NOT NULL,
    preview TEXT NOT NULL,
    messages TEXT NOT NULL,
    PRIMARY KEY (agent_id, topic_id)
);

CREATE INDEX IF NOT EXISTS idx_histories_updated ON histories(updated_at);

INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps every topic as one row of a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore opens or creates <dir>/history.db.
func NewSQLiteStore(dir string, logger *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	path := filepath.Join(dir, DatabaseFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger.Named("storage"),
		now:    time.Now,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// SaveChatHistory implements HistoryStore.
func (s *SQLiteStore) SaveChatHistory(ctx context.Context, agentID, topicID string, msgs []model.Message) error {
	if err := validateKey(agentID, topicID); err != nil {
		return err
	}
	msgs = storable(msgs)
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO histories (agent_id, topic_id, updated_at, message_count, preview, messages)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id, topic_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			message_count = excluded.message_count,
			preview = excluded.preview,
			messages = excluded.messages`,
		agentID, topicID, s.now().UnixMilli(), len(msgs), previewOf(msgs), string(data))
	if err != nil {
		return fmt.Errorf("save history %s/%s: %w", agentID, topicID, err)
	}
	s.logger.Debug("saved history",
		zap.String("agent_id", agentID),
		zap.String("topic_id", topicID),
		zap.Int("messages", len(msgs)))
	return nil
}

// LoadChatHistory implements HistoryStore.
func (s *SQLiteStore) LoadChatHistory(ctx context.Context, agentID, topicID string) ([]model.Message, error) {
	if err := validateKey(agentID, topicID); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT messages FROM histories WHERE agent_id = ? AND topic_id = ?`,
		agentID, topicID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load history %s/%s: %w", agentID, topicID, err)
	}

	var msgs []model.Message
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		return nil, fmt.Errorf("parse history %s/%s: %w", agentID, topicID, err)
	}
	return msgs, nil
}

// ListTopics implements HistoryStore.
func (s *SQLiteStore) ListTopics(ctx context.Context, agentID string) ([]TopicMeta, error) {
	query := `SELECT agent_id, topic_id, updated_at, message_count, preview FROM histories`
	var args []any
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY updated_at DESC, topic_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	metas := []TopicMeta{}
	for rows.Next() {
		var m TopicMeta
		var updated int64
		if err := rows.Scan(&m.AgentID, &m.TopicID, &updated, &m.MessageCount, &m.Preview); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		m.UpdatedAt = time.UnixMilli(updated)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// DeleteTopic implements HistoryStore.
func (s *SQLiteStore) DeleteTopic(ctx context.Context, agentID, topicID string) error {
	if err := validateKey(agentID, topicID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM histories WHERE agent_id = ? AND topic_id = ?`, agentID, topicID)
	if err != nil {
		return fmt.Errorf("delete history %s/%s: %w", agentID, topicID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrHistoryNotFound
	}
	return nil
}

// Close implements HistoryStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

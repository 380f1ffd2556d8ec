// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/util"
)

// historyFile is the file name inside each topic directory.
const historyFile = "history.json"

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps each topic in <dir>/<agent>/topics/<topic>/history.json,
// the layout used by the desktop client.
type FileStore struct {
	dir    string
	logger *zap.Logger

	// Serializes writes. Atomic renames keep readers safe without it.
	mu sync.Mutex
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, logger: logger.Named("storage")}, nil
}

// Dir returns the store root.
func (s *FileStore) Dir() string {
	return s.dir
}

// SaveChatHistory implements HistoryStore.
func (s *FileStore) SaveChatHistory(ctx context.Context, agentID, topicID string, msgs []model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(agentID, topicID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.historyPath(agentID, topicID)
	if err := util.WriteJSONFile(path, storable(msgs), 0644); err != nil {
		return fmt.Errorf("save history %s/%s: %w", agentID, topicID, err)
	}
	s.logger.Debug("saved history",
		zap.String("agent_id", agentID),
		zap.String("topic_id", topicID),
		zap.Int("messages", len(msgs)))
	return nil
}

// LoadChatHistory implements HistoryStore.
func (s *FileStore) LoadChatHistory(ctx context.Context, agentID, topicID string) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(agentID, topicID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.historyPath(agentID, topicID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}

	var msgs []model.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parse history %s/%s: %w", agentID, topicID, err)
	}
	return msgs, nil
}

// ListTopics implements HistoryStore. Unreadable histories are skipped.
func (s *FileStore) ListTopics(ctx context.Context, agentID string) ([]TopicMeta, error) {
	agentIDs := []string{agentID}
	if agentID == "" {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return nil, err
		}
		agentIDs = agentIDs[:0]
		for _, e := range entries {
			if e.IsDir() {
				agentIDs = append(agentIDs, e.Name())
			}
		}
	}

	metas := []TopicMeta{}
	for _, aid := range agentIDs {
		entries, err := os.ReadDir(filepath.Join(s.dir, aid, "topics"))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			meta, err := s.topicMeta(ctx, aid, e.Name())
			if err != nil {
				s.logger.Debug("skipping topic",
					zap.String("agent_id", aid),
					zap.String("topic_id", e.Name()),
					zap.Error(err))
				continue
			}
			metas = append(metas, meta)
		}
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

func (s *FileStore) topicMeta(ctx context.Context, agentID, topicID string) (TopicMeta, error) {
	info, err := os.Stat(s.historyPath(agentID, topicID))
	if err != nil {
		return TopicMeta{}, err
	}
	msgs, err := s.LoadChatHistory(ctx, agentID, topicID)
	if err != nil {
		return TopicMeta{}, err
	}
	return TopicMeta{
		AgentID:      agentID,
		TopicID:      topicID,
		UpdatedAt:    info.ModTime(),
		MessageCount: len(msgs),
		Preview:      previewOf(msgs),
	}, nil
}

// DeleteTopic implements HistoryStore. The topic directory is removed with
// everything in it.
func (s *FileStore) DeleteTopic(ctx context.Context, agentID, topicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(agentID, topicID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.historyPath(agentID, topicID))
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return ErrHistoryNotFound
		}
		return err
	}
	return os.RemoveAll(dir)
}

// Close implements HistoryStore.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) historyPath(agentID, topicID string) string {
	return filepath.Join(s.dir, agentID, "topics", topicID, historyFile)
}

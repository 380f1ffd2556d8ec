// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/model"
)

// =============================================================================
// HISTORY STORE
// =============================================================================

// HistoryStore persists the message history of agent topics.
type HistoryStore interface {
	// SaveChatHistory replaces the stored history of a topic.
	SaveChatHistory(ctx context.Context, agentID, topicID string, msgs []model.Message) error

	// LoadChatHistory returns the stored history of a topic, or
	// ErrHistoryNotFound.
	LoadChatHistory(ctx context.Context, agentID, topicID string) ([]model.Message, error)

	// ListTopics returns topic metadata, most recently updated first. An
	// empty agentID lists every agent.
	ListTopics(ctx context.Context, agentID string) ([]TopicMeta, error)

	// DeleteTopic removes a topic's history.
	DeleteTopic(ctx context.Context, agentID, topicID string) error

	Close() error
}

// TopicMeta describes a stored topic for listing.
type TopicMeta struct {
	AgentID      string    `json:"agent_id"`
	TopicID      string    `json:"topic_id"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // first user message, truncated
}

// PreviewLength is the rune limit of TopicMeta.Preview.
const PreviewLength = 80

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the history store for a backend rooted at dir.
func Open(backend, dir string, logger *zap.Logger) (HistoryStore, error) {
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return NewFileStore(dir, logger)
	case BackendSQLite:
		return NewSQLiteStore(dir, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// NewTopicID returns a fresh topic id.
func NewTopicID() string {
	return "topic_" + uuid.NewString()
}

// storable drops thinking placeholders, which never outlive a session.
func storable(msgs []model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsThinking {
			continue
		}
		out = append(out, m)
	}
	return out
}

// previewOf returns the first user message preview.
func previewOf(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Role == model.RoleUser && m.Content != "" {
			return m.Preview(PreviewLength)
		}
	}
	return ""
}

// validateKey rejects ids that could escape the storage directory.
func validateKey(agentID, topicID string) error {
	for _, id := range []string{agentID, topicID} {
		if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, id)
		}
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrHistoryNotFound is returned when a topic has no stored history.
	// Use errors.Is(err, ErrHistoryNotFound) to check for this error.
	ErrHistoryNotFound = &HistoryError{Message: "history not found"}

	// ErrInvalidKey is returned for agent or topic ids that are not a single
	// path element.
	ErrInvalidKey = &HistoryError{Message: "invalid agent or topic id"}
)

// HistoryError is a storage error comparable with errors.Is.
type HistoryError struct {
	Message string
}

// Error implements the error interface.
func (e *HistoryError) Error() string {
	return e.Message
}

// Is reports whether target is a HistoryError with the same message.
func (e *HistoryError) Is(target error) bool {
	t, ok := target.(*HistoryError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"context"
	"fmt"

	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
)

// =============================================================================
// LOADING
// =============================================================================

// Load reads a stored topic into a Conversation. Agent display name and
// avatar come from agents when it is non-nil and knows the agent.
func Load(ctx context.Context, store storage.HistoryStore, agents chatview.AgentSource, agentID, topicID string) (*Conversation, error) {
	msgs, err := store.LoadChatHistory(ctx, agentID, topicID)
	if err != nil {
		return nil, fmt.Errorf("load topic %s/%s: %w", agentID, topicID, err)
	}

	conv := &Conversation{
		AgentID:  agentID,
		TopicID:  topicID,
		Messages: msgs,
	}

	if agents != nil {
		if cfg, err := agents.AgentConfig(ctx, agentID); err == nil && cfg != nil {
			conv.AgentName = cfg.DisplayName()
			conv.AgentAvatar = cfg.Avatar
		}
	}

	topics, err := store.ListTopics(ctx, agentID)
	if err == nil {
		for _, t := range topics {
			if t.TopicID == topicID {
				conv.UpdatedAt = t.UpdatedAt
				break
			}
		}
	}

	return conv, nil
}

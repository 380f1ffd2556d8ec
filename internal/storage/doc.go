// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat histories per agent and topic.
//
// # Key Types
//
//   - HistoryStore: the persistence interface used by the chat view
//   - FileStore: one history.json per topic, shared with the desktop client
//   - SQLiteStore: all topics in a single SQLite database
//   - TopicMeta: lightweight metadata for listing
//
// # Usage
//
//	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir, logger)
//	err = store.SaveChatHistory(ctx, agentID, topicID, msgs)
//	msgs, err := store.LoadChatHistory(ctx, agentID, topicID)
//
// Thinking placeholders are never written.
package storage

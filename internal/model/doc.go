// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages and history.
//
// # Key Types
//
//   - Message: one chat message with role, raw content, timestamp, attachments
//     and streaming metadata (IsThinking, FinishReason)
//   - Attachment: a file attached to a message, classified by MIME type
//   - Store: the ordered history of one topic, one entry per id
//   - Role: message role enumeration (user, assistant, system)
//
// # Usage
//
// Build a history and grow a streaming reply:
//
//	store := model.NewStore(nil)
//	store.Append(model.NewUserMessage("Hello!"))
//	reply := model.Message{ID: "m1", Role: model.RoleAssistant}
//	store.Append(reply)
//	store.AppendContent("m1", "Hi ")
//	store.AppendContent("m1", "there")
//
// Truncate before a message that is being regenerated:
//
//	removed := store.Truncate(store.Index("m1"))
package model

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// FinishCancelled is the finish reason recorded when the user stops a reply.
const FinishCancelled = "cancelled_by_user"

// Indicator labels.
const (
	LabelThinking     = "Thinking"
	LabelReceiving    = "Receiving"
	LabelRegenerating = "Regenerating"
)

// =============================================================================
// CHUNKS
// =============================================================================

// Chunk is one streamed increment. vcp.StreamChunk implements it.
type Chunk interface {
	GetContent() string
}

// TextChunk is a chunk that is already plain text.
type TextChunk string

// GetContent returns the text.
func (c TextChunk) GetContent() string { return string(c) }

// RawChunk is a payload that could not be decoded. It is shown verbatim.
type RawChunk struct {
	Raw string
	Err error
}

// GetContent returns Raw, flagged when decoding failed.
func (c RawChunk) GetContent() string {
	if c.Err != nil {
		return c.Raw + " (parse error)"
	}
	return c.Raw
}

// StreamDelay returns the heavy re-render delay for the accumulated text.
// Open tool requests and diary blocks wait longer so their sentinels can
// arrive before the annotator runs.
func StreamDelay(text string, normal, pending time.Duration) time.Duration {
	if strings.Contains(text, render.DailyNoteStart) || strings.Contains(text, render.ToolRequestStart) {
		return pending
	}
	return normal
}

// =============================================================================
// STREAM CONTROLLER
// =============================================================================

// StartStreamingMessage begins streaming into msg.ID. An existing node for
// the id, normally a thinking placeholder, is converted; otherwise an empty
// assistant bubble is created. The store entry exists when this returns.
func (v *View) StartStreamingMessage(msg model.Message) *html.Node {
	if msg.ID == "" {
		v.logger.Error("cannot start stream without message id")
		return nil
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = model.NowMillis()
	}

	item := v.nodes[msg.ID]
	if item == nil {
		item = v.attach(model.Message{
			ID:        msg.ID,
			Role:      model.RoleAssistant,
			Timestamp: msg.Timestamp,
		})
		if item == nil {
			return nil
		}
	}
	render.RemoveClass(item, ClassThinking)
	render.AddClass(item, ClassStreaming)
	if content := contentOf(item); content != nil {
		render.RemoveChildren(content)
		content.AppendChild(indicator(LabelReceiving))
	}
	v.activeID = msg.ID

	if m, ok := v.store.Get(msg.ID); ok {
		v.logger.Warn("stream restarted for existing message", zap.String("message_id", msg.ID))
		m.Content = ""
		m.IsThinking = false
		m.FinishReason = ""
		m.Timestamp = msg.Timestamp
	} else {
		_, _ = v.store.Append(model.Message{
			ID:        msg.ID,
			Role:      model.RoleAssistant,
			Timestamp: msg.Timestamp,
		})
	}
	return item
}

// AppendStreamChunk appends a chunk to the active stream. Chunks for any
// other id are ignored.
func (v *View) AppendStreamChunk(id string, chunk Chunk) {
	if id == "" || id != v.activeID || chunk == nil {
		return
	}
	v.adoptPlaceholder(id)
	text, ok := v.store.AppendContent(id, chunk.GetContent())
	if !ok {
		v.logger.Warn("stream chunk for missing message", zap.String("message_id", id))
		return
	}
	item := v.nodes[id]
	if item == nil {
		return
	}

	if content := contentOf(item); content != nil {
		v.fill(content, text)
	}
	v.debounce.schedule(id, StreamDelay(text, v.opts.StreamDelay, v.opts.PendingBlockDelay), func() {
		v.heavyPass(id)
	})
}

// adoptPlaceholder starts the stream for id when its first event arrives
// before the completer has returned. The transport posts events as soon as
// the response body opens, which can be ahead of the completion result.
func (v *View) adoptPlaceholder(id string) {
	if _, ok := v.store.Get(id); ok {
		return
	}
	item := v.nodes[id]
	if item == nil || !render.HasClass(item, ClassThinking) {
		return
	}
	v.logger.Debug("stream event ahead of completion result", zap.String("message_id", id))
	v.StartStreamingMessage(model.Message{ID: id, Role: model.RoleAssistant})
}

// heavyPass re-renders a streaming bubble with math and annotation.
func (v *View) heavyPass(id string) {
	item := v.nodes[id]
	if item == nil || !render.IsAttached(item, v.root) {
		return
	}
	m, ok := v.store.Get(id)
	if !ok {
		return
	}
	content := contentOf(item)
	if content == nil {
		return
	}
	render.ClearMarks(content)
	v.paint(content, m)
}

// FinalizeStreamedMessage ends the active stream with a finish reason.
func (v *View) FinalizeStreamedMessage(id, finishReason string) {
	if id == "" || id != v.activeID {
		v.logger.Warn("finalize for inactive stream",
			zap.String("message_id", id),
			zap.String("active_id", v.activeID))
		return
	}
	v.adoptPlaceholder(id)
	v.activeID = ""
	v.debounce.cancel(id)

	m, ok := v.store.Get(id)
	if ok {
		m.FinishReason = finishReason
		if m.Timestamp == 0 {
			m.Timestamp = model.NowMillis()
		}
	}

	if item := v.nodes[id]; item != nil {
		render.RemoveClass(item, ClassStreaming)
		if ok {
			if content := contentOf(item); content != nil {
				render.ClearMarks(content)
				v.paint(content, m)
			}
			v.ensureTimestamp(item, m)
		}
	}
	v.logger.Debug("stream finalized",
		zap.String("message_id", id),
		zap.String("finish_reason", finishReason))
	v.persist()
}

// ActiveStream returns the id of the message receiving a reply, if any.
func (v *View) ActiveStream() string {
	return v.activeID
}

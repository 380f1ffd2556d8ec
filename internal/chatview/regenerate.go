// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// Regenerate replaces an assistant reply and everything after it with a new
// reply to the preceding history. A reply still in progress is cancelled
// first. The truncated history is saved before any
// request is made. Failures after that point are shown as notices, not
// returned.
func (v *View) Regenerate(ctx context.Context, id string) error {
	if err := v.canComplete(); err != nil {
		return err
	}
	idx := v.store.Index(id)
	if idx < 0 {
		return ErrNotFound
	}
	if v.store.At(idx).Role != model.RoleAssistant {
		return ErrNotAssistant
	}
	v.supersedeActive()
	if v.edit != nil {
		v.leaveEdit()
	}
	v.menu = nil

	removed := v.store.Truncate(idx)
	v.persistNow()
	v.removeFrom(id)

	v.logger.Info("regenerating reply",
		zap.String("message_id", id),
		zap.Int("dropped", len(removed)))

	_, err := v.beginCompletion(ctx, v.store.Snapshot(), "regen", LabelRegenerating, " (regenerate)")
	return err
}

// removeFrom detaches the item for id and every later item.
func (v *View) removeFrom(id string) {
	n := v.nodes[id]
	for n != nil {
		next := n.NextSibling
		if mid, ok := render.GetAttr(n, AttrMessageID); ok {
			v.removeItem(mid)
		} else {
			render.Detach(n)
		}
		n = next
	}
}

// SendUserMessage renders a user message, saves it and requests a reply to
// the whole history. Like Regenerate, it cancels a reply still in progress.
func (v *View) SendUserMessage(ctx context.Context, text string, attachments []model.Attachment) error {
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return ErrEmptyMessage
	}
	if err := v.canComplete(); err != nil {
		return err
	}
	v.supersedeActive()
	if v.edit != nil {
		v.leaveEdit()
	}

	v.RenderMessage(model.NewUserMessage(text, attachments...), false)
	_, err := v.beginCompletion(ctx, v.store.Snapshot(), "msg", LabelThinking, "")
	return err
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/vcpchat-tui/internal/attach"
	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

// maxAttachmentWorkers bounds concurrent attachment reads per message.
const maxAttachmentWorkers = 4

// convertedAttachment is an attachment after its file was read.
type convertedAttachment struct {
	model.Attachment
	Data string // base64, for media
	Text string // extracted, for documents
	Err  error
}

// convertHistory turns stored messages into request messages. User turns
// become a text part followed by media parts, with document text appended
// to the text. Attachments that fail to load are skipped with a warning.
func convertHistory(ctx context.Context, mat Materializer, logger *zap.Logger, history []model.Message) ([]vcp.Message, error) {
	out := make([]vcp.Message, len(history))
	for i, m := range history {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.Role != model.RoleUser {
			out[i] = vcp.NewTextMessage(string(m.Role), m.Content)
			continue
		}
		atts := materialize(ctx, mat, logger, m.Attachments)
		out[i] = userMessage(logger, m.Content, atts)
	}
	return out, nil
}

// materialize reads every attachment concurrently. Failures are recorded
// per attachment and never fail the group.
func materialize(ctx context.Context, mat Materializer, logger *zap.Logger, atts []model.Attachment) []convertedAttachment {
	out := make([]convertedAttachment, len(atts))
	if len(atts) == 0 {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxAttachmentWorkers)
	for i, att := range atts {
		out[i].Attachment = att
		class := attach.Classify(att.Type, att.Name)
		if class == attach.ClassSkip {
			continue
		}
		if mat == nil {
			out[i].Err = fmt.Errorf("no materializer for %s", att.Name)
			continue
		}
		g.Go(func() error {
			switch class {
			case attach.ClassMedia:
				data, err := mat.FileAsBase64(gctx, att.Src)
				if err != nil {
					out[i].Err = fmt.Errorf("failed to load data: %w", err)
					return nil
				}
				out[i].Data = data
			case attach.ClassDocument:
				text, err := mat.TextContent(gctx, att.Src, att.Type)
				if err != nil {
					out[i].Err = fmt.Errorf("failed to extract text: %w", err)
					return nil
				}
				out[i].Text = text
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, a := range out {
		if a.Err != nil {
			logger.Warn("skipping attachment",
				zap.String("name", a.Name),
				zap.String("type", a.Type),
				zap.Error(a.Err))
		}
	}
	return out
}

// userMessage builds the parts of a user turn.
func userMessage(logger *zap.Logger, text string, atts []convertedAttachment) vcp.Message {
	var media []vcp.ContentPart
	var docs []string
	for _, a := range atts {
		if a.Err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(a.Type, "image/") && a.Data != "":
			media = append(media, vcp.ImagePart(attach.DataURL(a.Type, a.Data)))
		case strings.HasPrefix(a.Type, "audio/") && a.Data != "":
			media = append(media, vcp.AudioPart(attach.DataURL(a.Type, a.Data)))
		case a.Text != "":
			docs = append(docs, fmt.Sprintf("[Document %d-%s: %s]", len(docs)+1, a.Name, a.Text))
		}
	}

	if len(docs) > 0 {
		if text != "" {
			text += "\n\n"
		}
		text += strings.Join(docs, "\n")
	}
	if len(media) > 0 || len(docs) > 0 {
		logger.Debug("user turn with attachments",
			zap.Int("media", len(media)),
			zap.Int("documents", len(docs)))
	}

	parts := append([]vcp.ContentPart{vcp.TextPart(text)}, media...)
	return vcp.NewPartsMessage(string(model.RoleUser), parts...)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/agents"
	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

// completion is one request for a reply into a thinking placeholder. It is
// built on the event thread and carries copies of everything the
// background half reads.
type completion struct {
	placeholderID string
	// label tags notices, e.g. " (regenerate)".
	label string

	agentID   string
	serverURL string
	apiKey    string
	history   []model.Message
}

// =============================================================================
// PIPELINE
// =============================================================================

// runCompletion resolves the agent, converts the history and calls the
// completer off the event thread, then applies the result on it.
func (v *View) runCompletion(ctx context.Context, c completion) {
	refs := v.refs
	logger := v.logger.With(zap.String("message_id", c.placeholderID))

	v.runner.Go(func() func() {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(v.ctx, cancel)
		defer stop()

		req, err := buildRequest(ctx, refs, logger, c)
		if err != nil {
			return func() { v.completionFailed(c, err) }
		}
		res, err := refs.Completer.SendToVCP(ctx, req)
		if err != nil {
			return func() { v.completionFailed(c, err) }
		}
		return func() { v.completionDone(c, req.Stream, res) }
	})
}

// buildRequest runs off the event thread.
func buildRequest(ctx context.Context, refs Refs, logger *zap.Logger, c completion) (vcp.Request, error) {
	cfg, err := refs.AgentSource.AgentConfig(ctx, c.agentID)
	if err != nil {
		return vcp.Request{}, fmt.Errorf("load agent %s: %w", c.agentID, err)
	}
	if cfg == nil {
		cfg = agents.Default(c.agentID)
	}
	if cfg.ID == "" {
		named := *cfg
		named.ID = c.agentID
		cfg = &named
	}

	msgs, err := convertHistory(ctx, refs.Materializer, logger, c.history)
	if err != nil {
		return vcp.Request{}, err
	}
	if prompt := cfg.ExpandedSystemPrompt(); strings.TrimSpace(prompt) != "" {
		msgs = append([]vcp.Message{vcp.NewTextMessage(string(model.RoleSystem), prompt)}, msgs...)
	}

	return vcp.Request{
		ServerURL: c.serverURL,
		APIKey:    c.apiKey,
		Messages:  msgs,
		ModelConfig: vcp.ModelConfig{
			Model:       cfg.Model,
			Temperature: float64(cfg.Temperature),
			MaxTokens:   int(cfg.MaxOutputTokens),
			Stream:      bool(cfg.StreamOutput),
		},
		CorrelationID: c.placeholderID,
	}, nil
}

// completionDone applies a completer result on the event thread.
func (v *View) completionDone(c completion, stream bool, res *vcp.Result) {
	if v.closed {
		return
	}
	if _, ok := v.nodes[c.placeholderID]; !ok {
		v.logger.Info("reply arrived for removed placeholder", zap.String("message_id", c.placeholderID))
		return
	}
	if res == nil {
		v.completionFailed(c, errors.New("empty response"))
		return
	}

	if stream {
		switch {
		case res.StreamingStarted:
			if v.streamStarted(c.placeholderID) {
				return
			}
			v.StartStreamingMessage(model.Message{ID: c.placeholderID, Role: model.RoleAssistant})
		case res.StreamError != "":
			v.dropPlaceholder(c.placeholderID)
			v.notice(fmt.Sprintf("VCP stream error%s: %s", c.label, res.StreamError))
		default:
			v.completionFailed(c, errors.New("stream did not start"))
		}
		return
	}

	v.dropPlaceholder(c.placeholderID)
	switch {
	case res.Error != "":
		v.notice(fmt.Sprintf("VCP error%s: %s", c.label, res.Error))
	case len(res.Choices) > 0:
		reply := model.NewMessage(model.RoleAssistant, res.Content())
		reply.FinishReason = res.Choices[0].FinishReason
		v.RenderMessage(reply, false)
	default:
		v.notice(fmt.Sprintf("VCP returned an unknown response format%s.", c.label))
	}
	v.persist()
}

// streamStarted reports whether stream events for id already converted the
// placeholder, or already finished the stream.
func (v *View) streamStarted(id string) bool {
	if v.activeID != id {
		return true
	}
	_, ok := v.store.Get(id)
	return ok
}

// completionFailed clears the placeholder and reports err.
func (v *View) completionFailed(c completion, err error) {
	if v.closed {
		return
	}
	v.logger.Error("completion failed",
		zap.String("message_id", c.placeholderID),
		zap.Error(err))
	v.dropPlaceholder(c.placeholderID)
	v.notice(fmt.Sprintf("Error%s: %s", c.label, err))
	v.persist()
}

// dropPlaceholder removes a placeholder from the view and the history.
func (v *View) dropPlaceholder(id string) {
	v.removeItem(id)
	v.store.Remove(id)
	if v.activeID == id {
		v.activeID = ""
	}
}

// beginCompletion shows a thinking placeholder and starts a completion for
// history. It fails fast when the view cannot complete.
func (v *View) beginCompletion(ctx context.Context, history []model.Message, prefix, label, noticeLabel string) (string, error) {
	placeholder := model.NewThinkingMessage(prefix, label)
	if v.attach(placeholder) == nil {
		return "", ErrNotFound
	}
	v.activeID = placeholder.ID

	v.runCompletion(ctx, completion{
		placeholderID: placeholder.ID,
		label:         noticeLabel,
		agentID:       v.agentID,
		serverURL:     v.opts.ServerURL,
		apiKey:        v.opts.APIKey,
		history:       history,
	})
	return placeholder.ID, nil
}

func (v *View) canComplete() error {
	switch {
	case v.agentID == "" || v.topicID == "":
		return ErrNoTopic
	case v.refs.Completer == nil || v.refs.AgentSource == nil:
		return ErrNoCompleter
	}
	return nil
}

// supersedeActive cancels the reply in progress so a new one can take its
// place. Events still in flight for the old id fail the activeID check.
func (v *View) supersedeActive() {
	id := v.activeID
	if id == "" {
		return
	}
	v.logger.Info("reply superseded", zap.String("message_id", id))
	v.cancelReply(id)
	if v.activeID == id {
		v.activeID = ""
	}
}

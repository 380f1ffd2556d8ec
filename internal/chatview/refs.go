// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/agents"
	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Completer sends completion requests. *vcp.Client implements it.
type Completer interface {
	SendToVCP(ctx context.Context, req vcp.Request) (*vcp.Result, error)
}

// AgentSource resolves agent configs. *agents.Registry implements it.
type AgentSource interface {
	AgentConfig(ctx context.Context, agentID string) (*agents.Config, error)
}

// Materializer reads attachment files. *attach.Materializer implements it.
type Materializer interface {
	FileAsBase64(ctx context.Context, src string) (string, error)
	TextContent(ctx context.Context, src, mime string) (string, error)
}

// Persister saves a topic's history. storage.HistoryStore implements it.
type Persister interface {
	SaveChatHistory(ctx context.Context, agentID, topicID string, msgs []model.Message) error
}

// Shell is the host surface: windows, clipboard, dialogs. Calls are made on
// the event thread. Confirm must call done on the event thread too.
type Shell interface {
	OpenImageInNewWindow(src, title string)
	ShowImageContextMenu(src string)
	OpenTextInNewWindow(text, title, theme string)
	OpenPath(path string) error
	WriteClipboard(text string) error
	ReadClipboard() (string, error)
	Confirm(prompt string, done func(bool))
}

// Refs carries everything a View talks to. Parser and Logger are required.
// A nil Completer or AgentSource disables regenerate and send; a nil
// Persister disables saving; a nil Shell turns shell actions into no-ops.
type Refs struct {
	Parser       render.Parser
	Typesetter   render.Typesetter
	Completer    Completer
	AgentSource  AgentSource
	Materializer Materializer
	Persister    Persister
	Shell        Shell

	// OnCreateBranch receives the history up to and including messageID.
	OnCreateBranch func(agentID, topicID, messageID string, prefix []model.Message)
	// OnCancelStream is called when the user cancels a reply, so the host
	// can abort the transport for that correlation id.
	OnCancelStream func(id string)

	Logger *zap.Logger
}

// =============================================================================
// OPTIONS
// =============================================================================

// Default re-render delays while streaming.
const (
	DefaultStreamDelay       = 400 * time.Millisecond
	DefaultPendingBlockDelay = 1000 * time.Millisecond
)

// Default avatar sources used when a configured avatar is missing.
const (
	DefaultAgentAvatar = "assets/default_avatar.png"
	DefaultUserAvatar  = "assets/default_user_avatar.png"
)

// Options tunes a View.
type Options struct {
	// StreamDelay is the heavy re-render delay while streaming.
	StreamDelay time.Duration
	// PendingBlockDelay replaces StreamDelay while a tool request or diary
	// block is open. It is never shorter than StreamDelay.
	PendingBlockDelay time.Duration

	DiaryLabelPrefixes []string

	ServerURL string
	APIKey    string

	// Theme is passed to reading mode. Empty means "dark".
	Theme string

	// Dispatcher runs functions on the event thread. Without one the view
	// is synchronous: a ManualScheduler holds timers, and work and history
	// saves run inline. With one, saves run on a background writer.
	Dispatcher Dispatcher
	Scheduler  Scheduler
	Runner     Runner

	// Headless views never persist. Export renders through one.
	Headless bool

	// PersistTimeout bounds each history save. Zero means 10s.
	PersistTimeout time.Duration
}

// Errors returned by View actions.
var (
	ErrMissingParser  = errors.New("chatview: parser is required")
	ErrNoTopic        = errors.New("chatview: no agent or topic selected")
	ErrNotFound       = errors.New("chatview: message not found")
	ErrNotAssistant   = errors.New("chatview: only assistant messages can be regenerated")
	ErrStreamActive   = errors.New("chatview: a reply is already in progress")
	ErrNoCompleter    = errors.New("chatview: no completer configured")
	ErrNoMenu         = errors.New("chatview: no context menu open")
	ErrUnavailable    = errors.New("chatview: action not available")
	ErrEmptyMessage   = errors.New("chatview: message is empty")
	ErrNotEditing     = errors.New("chatview: not editing")
	ErrNoShell        = errors.New("chatview: no shell configured")
	ErrNotAttachment  = errors.New("chatview: no such attachment")
	ErrNoPreviewImage = errors.New("chatview: no such image")
)

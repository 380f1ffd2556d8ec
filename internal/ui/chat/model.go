// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/agents"
	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/config"
	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
	"github.com/jeranaias/vcpchat-tui/internal/ui/paint"
	"github.com/jeranaias/vcpchat-tui/internal/ui/styles"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps wires the chat screen to the rest of the program. Config and Store
// are required. Without a Client or Completer the screen is read-only.
type Deps struct {
	Config *config.Config
	Store  storage.HistoryStore
	Agents *agents.Registry

	// Client streams replies. Its StreamHandler is replaced by New.
	Client *vcp.Client
	// Completer overrides Client for completion calls.
	Completer    chatview.Completer
	Materializer chatview.Materializer

	System System
	Logger *zap.Logger

	// AgentID and TopicID select the topic to open. An empty topic opens the
	// agent's most recent one, or a new topic.
	AgentID string
	TopicID string

	// WatchAgents reloads the agent name and avatar when its files change.
	WatchAgents bool
}

// loadTimeout bounds the initial history load.
const loadTimeout = 10 * time.Second

// ErrNoStore is returned by New without a history store.
var ErrNoStore = errors.New("chat: history store is required")

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen. It hosts one
// chatview.View and is its event thread: functions posted to the event loop
// run inside Update.
type Model struct {
	cfg    *config.Config
	store  storage.HistoryStore
	agents *agents.Registry
	client *vcp.Client
	sys    System
	logger *zap.Logger

	loop    *chatview.EventLoop
	view    *chatview.View
	painter *paint.Painter
	theme   *styles.Theme
	keys    KeyMap

	ctx    context.Context
	cancel context.CancelFunc

	agentID   string
	agentName string
	topicID   string
	watching  bool

	// UI components
	viewport viewport.Model
	input    textarea.Model
	editor   textarea.Model
	spinner  spinner.Model
	help     help.Model

	width, height int
	mode          Mode
	prevMode      Mode
	focusID       string
	ids           []string
	frame         int
	pending       []model.Attachment

	// Overlays
	menuCursor   int
	confirm      *confirmDialog
	reader       *reader
	imageMenu    *imageMenu
	imagePrefix  bool
	showFullHelp bool

	editingID string
	status    string
	statusErr bool
	quitting  bool
}

// New builds the chat screen and loads the selected topic.
func New(deps Deps) (*Model, error) {
	if deps.Store == nil {
		return nil, ErrNoStore
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("tui")

	theme := styles.NewTheme(cfg.UI.Theme)
	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		cfg:     cfg,
		store:   deps.Store,
		agents:  deps.Agents,
		client:  deps.Client,
		sys:     deps.System.withDefaults(),
		logger:  logger,
		loop:    chatview.NewEventLoop(0),
		painter: paint.New(theme),
		theme:   theme,
		keys:    DefaultKeyMap(),
		ctx:     ctx,
		cancel:  cancel,
		agentID: deps.AgentID,
		topicID: deps.TopicID,
		help:    help.New(),
	}
	if m.agentID == "" {
		m.agentID = cfg.Chat.DefaultAgent
	}
	if m.topicID == "" {
		m.topicID = cfg.Chat.DefaultTopic
	}

	refs := chatview.Refs{
		Parser:         render.NewMarkdown(),
		Typesetter:     render.MathMarker{},
		Persister:      deps.Store,
		Shell:          termShell{m},
		OnCreateBranch: m.createBranch,
		OnCancelStream: m.cancelStream,
		Logger:         logger,
	}
	switch {
	case deps.Completer != nil:
		refs.Completer = deps.Completer
	case deps.Client != nil:
		refs.Completer = deps.Client
	}
	if deps.Agents != nil {
		refs.AgentSource = deps.Agents
	}
	if deps.Materializer != nil {
		refs.Materializer = deps.Materializer
	}

	view, err := chatview.New(refs, chatview.Options{
		StreamDelay:        cfg.Chat.Debounce(),
		PendingBlockDelay:  cfg.Chat.PendingBlockDebounce(),
		DiaryLabelPrefixes: cfg.Chat.DiaryLabelPrefixes,
		ServerURL:          cfg.Server.URL,
		APIKey:             cfg.Server.APIKey,
		Theme:              theme.Name,
		Dispatcher:         m.loop,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create chat view: %w", err)
	}
	m.view = view
	view.SetUserName(cfg.User.Name)
	view.SetUserAvatar(cfg.User.Avatar)

	if deps.Client != nil {
		deps.Client.WithHandler(m.streamHandler())
	}

	m.initComponents()
	if err := m.openTopic(); err != nil {
		m.Close()
		return nil, err
	}

	if deps.WatchAgents && deps.Agents != nil {
		if err := deps.Agents.Watch(0, m.agentChanged); err != nil {
			logger.Warn("agent watcher not started", zap.Error(err))
		} else {
			m.watching = true
		}
	}
	return m, nil
}

func (m *Model) initComponents() {
	in := textarea.New()
	in.Placeholder = "Type a message..."
	in.Prompt = "> "
	in.ShowLineNumbers = false
	in.CharLimit = 0
	in.SetHeight(3)
	in.KeyMap.InsertNewline.SetEnabled(false)
	in.Focus()
	m.input = in

	ed := textarea.New()
	ed.Prompt = ""
	ed.ShowLineNumbers = false
	ed.CharLimit = 0
	ed.SetHeight(6)
	ed.KeyMap.InsertNewline.SetEnabled(false)
	m.editor = ed

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 3,
	}
	sp.Style = m.theme.StreamBadge
	m.spinner = sp

	m.viewport = viewport.New(80, 20)
	m.help.ShortSeparator = "  "
}

// =============================================================================
// TOPICS AND AGENTS
// =============================================================================

// openTopic resolves the agent and topic and loads its history.
func (m *Model) openTopic() error {
	ctx, cancel := context.WithTimeout(m.ctx, loadTimeout)
	defer cancel()

	m.applyAgent(m.loadAgent(ctx, m.agentID))

	if m.topicID == "" {
		topics, err := m.store.ListTopics(ctx, m.agentID)
		if err != nil {
			m.logger.Warn("list topics failed", zap.String("agent_id", m.agentID), zap.Error(err))
		}
		if len(topics) > 0 {
			m.topicID = topics[0].TopicID
		} else {
			m.topicID = storage.NewTopicID()
		}
	}

	history, err := m.store.LoadChatHistory(ctx, m.agentID, m.topicID)
	switch {
	case errors.Is(err, storage.ErrHistoryNotFound):
		history = nil
	case err != nil:
		return fmt.Errorf("load history %s/%s: %w", m.agentID, m.topicID, err)
	}
	m.view.LoadTopic(m.agentID, m.topicID, history)
	m.logger.Info("topic opened",
		zap.String("agent_id", m.agentID),
		zap.String("topic_id", m.topicID),
		zap.Int("messages", len(history)))
	return nil
}

// loadAgent reads an agent config, falling back to the defaults.
func (m *Model) loadAgent(ctx context.Context, id string) *agents.Config {
	if m.agents == nil {
		return agents.Default(id)
	}
	cfg, err := m.agents.AgentConfig(ctx, id)
	if err != nil {
		if !errors.Is(err, agents.ErrAgentNotFound) {
			m.logger.Warn("agent config not loaded", zap.String("agent_id", id), zap.Error(err))
		}
		return agents.Default(id)
	}
	return cfg
}

// applyAgent updates the displayed agent. Items already shown keep their
// name until they are rendered again.
func (m *Model) applyAgent(cfg *agents.Config) {
	if cfg == nil {
		return
	}
	m.agentName = cfg.DisplayName()
	m.view.SetCurrentAgentName(m.agentName)
	m.view.SetCurrentAgentAvatar(cfg.Avatar)
}

// agentChanged runs on the watcher goroutine.
func (m *Model) agentChanged(id string) {
	if id != m.agentID {
		return
	}
	cfg := m.loadAgent(m.ctx, id)
	m.loop.Post(func() {
		m.applyAgent(cfg)
		m.setStatus("Agent " + cfg.DisplayName() + " reloaded")
	})
}

// createBranch saves the history prefix as a new topic and switches to it.
func (m *Model) createBranch(agentID, topicID, messageID string, prefix []model.Message) {
	history := append([]model.Message(nil), prefix...)
	branch := storage.NewTopicID()
	m.setStatus("Creating branch...")

	go func() {
		ctx, cancel := context.WithTimeout(m.ctx, loadTimeout)
		defer cancel()
		err := m.store.SaveChatHistory(ctx, agentID, branch, history)
		m.loop.Post(func() {
			if err != nil {
				m.logger.Error("branch not saved",
					zap.String("topic_id", topicID),
					zap.String("message_id", messageID),
					zap.Error(err))
				m.setError(fmt.Errorf("create branch: %w", err))
				return
			}
			m.switchTopic(branch, history)
			m.setStatus("Branched from " + topicID)
		})
	}()
}

// switchTopic shows another topic of the current agent.
func (m *Model) switchTopic(topicID string, history []model.Message) {
	m.topicID = topicID
	m.focusID = ""
	m.view.LoadTopic(m.agentID, topicID, history)
}

// =============================================================================
// STREAMING
// =============================================================================

// streamHandler routes background stream events onto the event loop.
func (m *Model) streamHandler() vcp.StreamHandler {
	return vcp.StreamHandler{
		OnChunk: func(id string, chunk vcp.StreamChunk) {
			m.loop.Post(func() { m.view.AppendStreamChunk(id, chunk) })
		},
		OnMalformed: func(id, raw string, err error) {
			m.loop.Post(func() {
				m.view.AppendStreamChunk(id, chatview.RawChunk{Raw: raw, Err: err})
			})
		},
		OnEnd: func(id, finishReason string) {
			m.loop.Post(func() { m.view.FinalizeStreamedMessage(id, finishReason) })
		},
		OnError: func(id string, err error) {
			m.loop.Post(func() {
				m.view.AppendStreamChunk(id, chatview.TextChunk("\n\n[Stream error: "+err.Error()+"]"))
				m.view.FinalizeStreamedMessage(id, "error")
			})
		},
	}
}

func (m *Model) cancelStream(id string) {
	if m.client != nil {
		m.client.Cancel(id)
	}
}

// cancelActive cancels the reply in progress, if any.
func (m *Model) cancelActive() bool {
	id := m.view.ActiveStream()
	if id == "" {
		return false
	}
	if m.view.OpenContextMenu(id) == nil {
		return false
	}
	if err := m.view.SelectMenuItem(m.ctx, chatview.ActionCancel); err != nil {
		m.setError(err)
		return false
	}
	m.setStatus("Reply cancelled")
	return true
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Close stops the watcher, the view and the event loop. The history store
// and client belong to the caller.
func (m *Model) Close() {
	if m.watching && m.agents != nil {
		if err := m.agents.Close(); err != nil {
			m.logger.Debug("agent watcher close", zap.Error(err))
		}
		m.watching = false
	}
	if m.view != nil {
		m.view.Close()
	}
	m.loop.Close()
	m.cancel()
}

// ChatView returns the hosted chat view.
func (m *Model) ChatView() *chatview.View { return m.view }

// AgentID returns the current agent.
func (m *Model) AgentID() string { return m.agentID }

// TopicID returns the current topic.
func (m *Model) TopicID() string { return m.topicID }

// Mode returns the current input mode.
func (m *Model) Mode() Mode { return m.mode }

// Init starts the event loop pump and the animation ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.spinner.Tick, textarea.Blink)
}

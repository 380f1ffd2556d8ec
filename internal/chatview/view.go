// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// ClassContainer is the class of the root node holding message items.
const ClassContainer = "chat-messages"

const defaultPersistTimeout = 10 * time.Second

// =============================================================================
// VIEW
// =============================================================================

// View owns one chat's message history and its rendered node tree.
//
// Every method must be called from the event thread. Background work and
// timers come back to that thread through the configured Dispatcher.
type View struct {
	refs   Refs
	opts   Options
	logger *zap.Logger

	annotator  *render.Annotator
	typesetter render.Typesetter
	sched      Scheduler
	runner     Runner
	debounce   *debouncer
	saver      *saver

	root  *html.Node
	store *model.Store
	nodes map[string]*html.Node // message id -> item

	activeID string
	menu     *Menu
	edit     *editState

	agentID     string
	agentName   string
	agentAvatar string
	topicID     string
	userName    string
	userAvatar  string

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New creates a View with an empty history.
func New(refs Refs, opts Options) (*View, error) {
	if refs.Parser == nil {
		return nil, ErrMissingParser
	}
	logger := refs.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	typesetter := refs.Typesetter
	if typesetter == nil {
		typesetter = render.NopTypesetter{}
	}

	if opts.StreamDelay <= 0 {
		opts.StreamDelay = DefaultStreamDelay
	}
	if opts.PendingBlockDelay <= 0 {
		opts.PendingBlockDelay = DefaultPendingBlockDelay
	}
	if opts.PendingBlockDelay < opts.StreamDelay {
		opts.PendingBlockDelay = opts.StreamDelay
	}
	if opts.Theme == "" {
		opts.Theme = "dark"
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}

	sched, runner := opts.Scheduler, opts.Runner
	if opts.Dispatcher == nil {
		if sched == nil {
			sched = NewManualScheduler()
		}
		if runner == nil {
			runner = InlineRunner{}
		}
	} else {
		if sched == nil {
			sched = NewScheduler(opts.Dispatcher)
		}
		if runner == nil {
			runner = NewRunner(opts.Dispatcher)
		}
	}

	logger = logger.Named("chatview")
	var sv *saver
	if refs.Persister != nil {
		sv = newSaver(refs.Persister, logger, opts.PersistTimeout, opts.Dispatcher != nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		refs:       refs,
		opts:       opts,
		logger:     logger,
		annotator:  render.NewAnnotator(opts.DiaryLabelPrefixes...),
		typesetter: typesetter,
		sched:      sched,
		runner:     runner,
		debounce:   newDebouncer(sched),
		saver:      sv,
		root:       render.NewElement("div", render.Class(ClassContainer)),
		store:      model.NewStore(nil),
		nodes:      make(map[string]*html.Node),
		userName:   "User",
		ctx:        ctx,
		cancel:     cancel,
	}
	return v, nil
}

// Close cancels in-flight work and pending timers, then waits for queued
// history saves. The view must not be used afterwards.
func (v *View) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	v.debounce.cancelAll()
	v.cancel()
	v.Flush()
	v.menu = nil
	v.edit = nil
	return nil
}

// =============================================================================
// CONTEXT SETTERS
// =============================================================================

// SetCurrentAgentID sets the agent whose topic is shown.
func (v *View) SetCurrentAgentID(id string) { v.agentID = id }

// SetCurrentAgentName sets the sender name shown on assistant messages.
func (v *View) SetCurrentAgentName(name string) { v.agentName = name }

// SetCurrentTopicID sets the topic saved to.
func (v *View) SetCurrentTopicID(id string) { v.topicID = id }

// SetCurrentAgentAvatar sets the assistant avatar source.
func (v *View) SetCurrentAgentAvatar(src string) { v.agentAvatar = src }

// SetUserAvatar sets the user avatar source.
func (v *View) SetUserAvatar(src string) { v.userAvatar = src }

// SetUserName sets the sender name shown on user messages.
func (v *View) SetUserName(name string) {
	if name == "" {
		name = "User"
	}
	v.userName = name
}

// SetServer sets the completion endpoint and key used by regenerate and send.
func (v *View) SetServer(url, apiKey string) {
	v.opts.ServerURL = url
	v.opts.APIKey = apiKey
}

// AgentID returns the current agent id.
func (v *View) AgentID() string { return v.agentID }

// TopicID returns the current topic id.
func (v *View) TopicID() string { return v.topicID }

// =============================================================================
// HISTORY
// =============================================================================

// LoadTopic replaces the history and re-renders it. Persisted thinking
// placeholders are dropped.
func (v *View) LoadTopic(agentID, topicID string, history []model.Message) {
	v.debounce.cancelAll()
	v.activeID = ""
	v.menu = nil
	v.edit = nil
	v.agentID = agentID
	v.topicID = topicID

	render.RemoveChildren(v.root)
	v.nodes = make(map[string]*html.Node)
	v.store.Reset(history)

	for _, m := range v.store.Snapshot() {
		v.RenderMessage(m, true)
	}
	v.logger.Debug("topic loaded",
		zap.String("agent_id", agentID),
		zap.String("topic_id", topicID),
		zap.Int("messages", v.store.Len()))
}

// Messages returns a copy of the history.
func (v *View) Messages() []model.Message {
	return v.store.Snapshot()
}

// Message returns a copy of one message.
func (v *View) Message(id string) (model.Message, bool) {
	m, ok := v.store.Get(id)
	if !ok {
		return model.Message{}, false
	}
	return m.Clone(), true
}

// Root returns the container holding every message item.
func (v *View) Root() *html.Node {
	return v.root
}

// Node returns the item rendered for id.
func (v *View) Node(id string) *html.Node {
	return v.nodes[id]
}

// ItemIDs returns the message ids of the rendered items in document order,
// including transient notices.
func (v *View) ItemIDs() []string {
	var ids []string
	for c := v.root.FirstChild; c != nil; c = c.NextSibling {
		if id, ok := render.GetAttr(c, AttrMessageID); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// notice shows a transient system message that is never stored.
func (v *View) notice(text string) *html.Node {
	msg := model.NewSystemMessage(text)
	item := v.attach(msg)
	if item != nil {
		render.AddClass(item, ClassEphemeral)
	}
	v.logger.Info("notice", zap.String("text", text))
	return item
}

// removeItem drops a node and any state keyed by its id.
func (v *View) removeItem(id string) {
	v.debounce.cancel(id)
	if n := v.nodes[id]; n != nil {
		render.Detach(n)
		delete(v.nodes, id)
	}
	if v.menu != nil && v.menu.MessageID == id {
		v.menu = nil
	}
	if v.edit != nil && v.edit.id == id {
		v.edit = nil
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/agents"
	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

// =============================================================================
// FAKES
// =============================================================================

type savedHistory struct {
	agentID string
	topicID string
	msgs    []model.Message
}

type fakePersister struct {
	saves []savedHistory
	err   error
}

func (p *fakePersister) SaveChatHistory(_ context.Context, agentID, topicID string, msgs []model.Message) error {
	p.saves = append(p.saves, savedHistory{agentID, topicID, msgs})
	return p.err
}

func (p *fakePersister) last() []model.Message {
	if len(p.saves) == 0 {
		return nil
	}
	return p.saves[len(p.saves)-1].msgs
}

type readCall struct {
	text, title, theme string
}

type fakeShell struct {
	clipboard  string
	clipErr    error
	images     []string
	imageMenus []string
	reads      []readCall
	paths      []string
	prompts    []string
	confirm    bool
}

func (s *fakeShell) OpenImageInNewWindow(src, title string) {
	s.images = append(s.images, src+"|"+title)
}
func (s *fakeShell) ShowImageContextMenu(src string) { s.imageMenus = append(s.imageMenus, src) }
func (s *fakeShell) OpenTextInNewWindow(text, title, theme string) {
	s.reads = append(s.reads, readCall{text, title, theme})
}
func (s *fakeShell) OpenPath(path string) error {
	s.paths = append(s.paths, path)
	return nil
}
func (s *fakeShell) WriteClipboard(text string) error {
	if s.clipErr != nil {
		return s.clipErr
	}
	s.clipboard = text
	return nil
}
func (s *fakeShell) ReadClipboard() (string, error) { return s.clipboard, s.clipErr }
func (s *fakeShell) Confirm(prompt string, done func(bool)) {
	s.prompts = append(s.prompts, prompt)
	done(s.confirm)
}

type fakeCompleter struct {
	reqs   []vcp.Request
	result *vcp.Result
	err    error
}

func (c *fakeCompleter) SendToVCP(_ context.Context, req vcp.Request) (*vcp.Result, error) {
	c.reqs = append(c.reqs, req)
	return c.result, c.err
}

type fakeAgents struct {
	cfg *agents.Config
	err error
}

func (a *fakeAgents) AgentConfig(_ context.Context, id string) (*agents.Config, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.cfg, nil
}

// fakeMaterializer serves fixed content. It is read concurrently, so tests
// must fill it before use.
type fakeMaterializer struct {
	b64  map[string]string
	text map[string]string
}

func (m *fakeMaterializer) FileAsBase64(_ context.Context, src string) (string, error) {
	if d, ok := m.b64[src]; ok {
		return d, nil
	}
	return "", errors.New("no such file")
}

func (m *fakeMaterializer) TextContent(_ context.Context, src, _ string) (string, error) {
	if t, ok := m.text[src]; ok {
		return t, nil
	}
	return "", errors.New("no such file")
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

type testEnv struct {
	view      *View
	sched     *ManualScheduler
	persister *fakePersister
	shell     *fakeShell
	completer *fakeCompleter
	agents    *fakeAgents
	mat       *fakeMaterializer
	logs      *observer.ObservedLogs
	cancelled []string
	branches  [][]model.Message
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	env := &testEnv{
		sched:     NewManualScheduler(),
		persister: &fakePersister{},
		shell:     &fakeShell{confirm: true},
		completer: &fakeCompleter{},
		agents: &fakeAgents{cfg: &agents.Config{
			ID:           "nova",
			Name:         "Nova",
			SystemPrompt: "You are {{AgentName}}.",
			Model:        "test-model",
			Temperature:  0.5,
			StreamOutput: true,
		}},
		mat:  &fakeMaterializer{b64: map[string]string{}, text: map[string]string{}},
		logs: logs,
	}
	refs := Refs{
		Parser:       render.NewMarkdown(),
		Typesetter:   render.MathMarker{},
		Completer:    env.completer,
		AgentSource:  env.agents,
		Materializer: env.mat,
		Persister:    env.persister,
		Shell:        env.shell,
		OnCreateBranch: func(_, _, _ string, prefix []model.Message) {
			env.branches = append(env.branches, prefix)
		},
		OnCancelStream: func(id string) { env.cancelled = append(env.cancelled, id) },
		Logger:         zap.New(core),
	}
	v, err := New(refs, Options{
		Scheduler: env.sched,
		Runner:    InlineRunner{},
		ServerURL: "http://vcp.test/v1/chat/completions",
		APIKey:    "test-key",
	})
	require.NoError(t, err)
	v.SetCurrentAgentID("nova")
	v.SetCurrentAgentName("Nova")
	v.SetCurrentTopicID("topic_1")
	t.Cleanup(func() { v.Close() })
	env.view = v
	return env
}

// seed loads settled messages without persisting.
func (e *testEnv) seed(msgs ...model.Message) {
	e.view.LoadTopic("nova", "topic_1", msgs)
}

func msg(id string, role model.Role, content string) model.Message {
	return model.Message{ID: id, Role: role, Content: content, Timestamp: 1714550400000}
}

func contentText(t *testing.T, v *View, id string) string {
	t.Helper()
	content := contentOf(v.Node(id))
	require.NotNil(t, content, "no content for %s", id)
	return render.TextContent(content)
}

func findClass(n *html.Node, class string) *html.Node {
	return render.FindFirst(n, render.ByClass(class))
}

func zapNop() *zap.Logger { return zap.NewNop() }

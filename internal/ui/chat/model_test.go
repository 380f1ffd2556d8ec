// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/agents"
	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/config"
	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeCompleter struct {
	mu     sync.Mutex
	result *vcp.Result
	reqs   []vcp.Request
}

func (f *fakeCompleter) SendToVCP(ctx context.Context, req vcp.Request) (*vcp.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.result, nil
}

func (f *fakeCompleter) requests() []vcp.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vcp.Request(nil), f.reqs...)
}

type fakeSystem struct {
	opened    []string
	clipboard string
}

func (f *fakeSystem) system(dir string) System {
	return System{
		Open: func(target string) error {
			f.opened = append(f.opened, target)
			return nil
		},
		WriteClipboard: func(text string) error {
			f.clipboard = text
			return nil
		},
		ReadClipboard: func() (string, error) {
			return f.clipboard, nil
		},
		TempDir: dir,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

type testEnv struct {
	m         *Model
	store     *storage.FileStore
	registry  *agents.Registry
	completer *fakeCompleter
	sys       *fakeSystem
}

func replyResult(text string) *vcp.Result {
	return &vcp.Result{Choices: []vcp.Choice{{
		Message:      vcp.NewTextMessage("assistant", text),
		FinishReason: "stop",
	}}}
}

func newTestEnv(t *testing.T, stream bool, history ...model.Message) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewFileStore(filepath.Join(dir, "history"), zap.NewNop())
	require.NoError(t, err)
	registry := agents.NewRegistry(filepath.Join(dir, "agents"), zap.NewNop())
	agent := agents.Default("nova")
	agent.Name = "Nova"
	agent.StreamOutput = agents.LooseBool(stream)
	require.NoError(t, registry.Save(agent))

	if len(history) > 0 {
		require.NoError(t, store.SaveChatHistory(context.Background(), "nova", "topic_1", history))
	}

	cfg := config.Default()
	cfg.Server.URL = "http://localhost:6005/v1/chat/completions"
	cfg.Server.APIKey = "test-key"
	cfg.User.Name = "Sam"
	cfg.UI.Theme = "dark"
	// Keep debounce timers out of the way of the event assertions.
	cfg.Chat.DebounceMs = 60_000
	cfg.Chat.PendingBlockDebounceMs = 60_000

	env := &testEnv{
		store:     store,
		registry:  registry,
		completer: &fakeCompleter{result: replyResult("Hello back")},
		sys:       &fakeSystem{},
	}
	m, err := New(Deps{
		Config:    cfg,
		Store:     store,
		Agents:    registry,
		Completer: env.completer,
		System:    env.sys.system(dir),
		Logger:    zap.NewNop(),
		AgentID:   "nova",
		TopicID:   "topic_1",
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	env.m = m
	return env
}

func msg(id string, role model.Role, content string) model.Message {
	return model.Message{ID: id, Role: role, Content: content, Timestamp: 1700000000000}
}

// pump applies the next function posted to the event loop.
func pump(t *testing.T, m *Model) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	fn, ok := m.loop.Next(ctx)
	require.True(t, ok, "nothing was posted to the event loop")
	m.Update(loopEventMsg{fn: fn})
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func pressRune(m *Model, r rune) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func pressAltRune(m *Model, r rune) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true})
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func (e *testEnv) saved(t *testing.T) []model.Message {
	t.Helper()
	e.m.view.Flush()
	msgs, err := e.store.LoadChatHistory(context.Background(), "nova", e.m.TopicID())
	require.NoError(t, err)
	return msgs
}

// =============================================================================
// TOPICS
// =============================================================================

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestNew_LoadsHistory(t *testing.T) {
	env := newTestEnv(t, false,
		msg("u1", model.RoleUser, "hi there"),
		msg("a1", model.RoleAssistant, "Hello, Sam"),
	)
	m := env.m

	assert.Equal(t, "nova", m.AgentID())
	assert.Equal(t, "topic_1", m.TopicID())
	assert.Len(t, m.ChatView().Messages(), 2)

	out := m.View()
	assert.Contains(t, out, "Nova")
	assert.Contains(t, out, "topic_1")
	assert.Contains(t, out, "Hello, Sam")
	assert.Contains(t, out, "COMPOSE")
}

func TestNew_MissingTopicStartsEmpty(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Empty(t, env.m.ChatView().Messages())
	assert.Equal(t, "topic_1", env.m.TopicID())
}

func TestNew_PicksNewestTopic(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.SaveChatHistory(ctx, "nova", "old", []model.Message{msg("u1", model.RoleUser, "old")}))
	require.NoError(t, store.SaveChatHistory(ctx, "nova", "recent", []model.Message{msg("u2", model.RoleUser, "recent")}))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "nova", "topics", "old", "history.json"), past, past))

	m, err := New(Deps{Store: store, AgentID: "nova", System: (&fakeSystem{}).system(dir)})
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, "recent", m.TopicID())
	assert.Equal(t, "nova", m.agentName)
}

// =============================================================================
// SENDING
// =============================================================================

func TestSend_NonStreamingReply(t *testing.T) {
	env := newTestEnv(t, false)
	m := env.m

	typeText(m, "hello")
	press(m, tea.KeyEnter)

	msgs := m.ChatView().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	ids := m.ChatView().ItemIDs()
	require.Len(t, ids, 2)
	assert.True(t, render.HasClass(m.ChatView().Node(ids[1]), chatview.ClassThinking))
	assert.Empty(t, m.input.Value())
	assert.True(t, m.busy())

	pump(t, m)

	msgs = m.ChatView().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello back", msgs[1].Content)
	assert.False(t, m.busy())
	assert.Contains(t, m.View(), "Hello back")

	reqs := env.completer.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "test-key", reqs[0].APIKey)
	assert.False(t, reqs[0].Stream)

	saved := env.saved(t)
	require.Len(t, saved, 2)
	assert.Equal(t, "Hello back", saved[1].Content)
}

func TestSend_Streaming(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.m
	env.completer.result = &vcp.Result{StreamingStarted: true}

	typeText(m, "tell me")
	press(m, tea.KeyEnter)
	pump(t, m)

	id := m.ChatView().ActiveStream()
	require.NotEmpty(t, id)
	assert.Contains(t, m.View(), chatview.LabelReceiving)

	h := m.streamHandler()
	h.OnChunk(id, vcp.StreamChunk{Choices: []vcp.StreamChoice{{Delta: vcp.Delta{Content: "Once "}}}})
	pump(t, m)
	h.OnChunk(id, vcp.StreamChunk{Choices: []vcp.StreamChoice{{Delta: vcp.Delta{Content: "upon a time"}}}})
	pump(t, m)
	h.OnEnd(id, "stop")
	pump(t, m)

	got, ok := m.ChatView().Message(id)
	require.True(t, ok)
	assert.Equal(t, "Once upon a time", got.Content)
	assert.Equal(t, "stop", got.FinishReason)
	assert.False(t, m.busy())
	assert.Contains(t, m.View(), "Once upon a time")
}

func TestSend_StreamError(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.m
	env.completer.result = &vcp.Result{StreamingStarted: true}

	typeText(m, "tell me")
	press(m, tea.KeyEnter)
	pump(t, m)
	id := m.ChatView().ActiveStream()
	require.NotEmpty(t, id)

	m.streamHandler().OnError(id, assert.AnError)
	pump(t, m)

	got, ok := m.ChatView().Message(id)
	require.True(t, ok)
	assert.Contains(t, got.Content, "[Stream error: "+assert.AnError.Error()+"]")
	assert.Equal(t, "error", got.FinishReason)
}

func TestCancel_StopsReplyThenQuits(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.m
	env.completer.result = &vcp.Result{StreamingStarted: true}

	typeText(m, "tell me")
	press(m, tea.KeyEnter)
	pump(t, m)
	id := m.ChatView().ActiveStream()
	require.NotEmpty(t, id)

	assert.False(t, isQuit(press(m, tea.KeyCtrlC)))
	got, ok := m.ChatView().Message(id)
	require.True(t, ok)
	assert.Equal(t, chatview.FinishCancelled, got.FinishReason)
	assert.False(t, m.busy())

	assert.True(t, isQuit(press(m, tea.KeyCtrlC)))
}

func TestCancel_KeepsTypedInput(t *testing.T) {
	env := newTestEnv(t, false)
	typeText(env.m, "draft")
	assert.False(t, isQuit(press(env.m, tea.KeyCtrlC)))
	assert.Equal(t, "draft", env.m.input.Value())
}

func TestQuit(t *testing.T) {
	env := newTestEnv(t, false)
	assert.True(t, isQuit(press(env.m, tea.KeyCtrlQ)))
	assert.Empty(t, env.m.View())
}

func TestNewlineInCompose(t *testing.T) {
	env := newTestEnv(t, false)
	typeText(env.m, "a")
	press(env.m, tea.KeyCtrlJ)
	typeText(env.m, "b")
	assert.Equal(t, "a\nb", env.m.input.Value())
	assert.Empty(t, env.m.ChatView().Messages())
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestCommand_AttachAndSend(t *testing.T) {
	env := newTestEnv(t, false)
	m := env.m
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("remember the milk"), 0o644))

	typeText(m, "/attach "+file)
	press(m, tea.KeyEnter)
	require.Len(t, m.pending, 1)
	assert.Equal(t, "notes.txt", m.pending[0].Name)
	assert.Contains(t, m.View(), "notes.txt")

	typeText(m, "see attached")
	press(m, tea.KeyEnter)
	assert.Empty(t, m.pending)

	msgs := m.ChatView().Messages()
	require.NotEmpty(t, msgs)
	require.Len(t, msgs[0].Attachments, 1)
	assert.Equal(t, "notes.txt", msgs[0].Attachments[0].Name)
	pump(t, m)
}

func TestCommand_Errors(t *testing.T) {
	env := newTestEnv(t, false)
	m := env.m

	typeText(m, "/attach")
	press(m, tea.KeyEnter)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "usage")
	assert.Equal(t, "/attach", m.input.Value())

	m.input.Reset()
	typeText(m, "/bogus")
	press(m, tea.KeyEnter)
	assert.Contains(t, m.status, "unknown command")
}

func TestCommand_NewAndDetach(t *testing.T) {
	env := newTestEnv(t, false, msg("u1", model.RoleUser, "hi"))
	m := env.m
	m.pending = []model.Attachment{{Name: "x.png", Type: "image/png", Src: "file:///x.png"}}

	typeText(m, "/detach")
	press(m, tea.KeyEnter)
	assert.Empty(t, m.pending)

	typeText(m, "/new")
	press(m, tea.KeyEnter)
	assert.NotEqual(t, "topic_1", m.TopicID())
	assert.Empty(t, m.ChatView().Messages())
}

// =============================================================================
// NAVIGATION AND ACTIONS
// =============================================================================

func TestNavigate_FocusMoves(t *testing.T) {
	env := newTestEnv(t, false,
		msg("u1", model.RoleUser, "one"),
		msg("a1", model.RoleAssistant, "two"),
		msg("u2", model.RoleUser, "three"),
	)
	m := env.m

	press(m, tea.KeyTab)
	assert.Equal(t, ModeNavigate, m.Mode())
	assert.Equal(t, "u2", m.focusID)

	pressRune(m, 'k')
	assert.Equal(t, "a1", m.focusID)
	pressRune(m, 'g')
	assert.Equal(t, "u1", m.focusID)
	pressRune(m, 'k')
	assert.Equal(t, "u1", m.focusID)
	pressRune(m, 'G')
	assert.Equal(t, "u2", m.focusID)
	assert.Contains(t, m.View(), "MESSAGES")

	press(m, tea.KeyEsc)
	assert.Equal(t, ModeCompose, m.Mode())
}

func TestNavigate_DeleteAsksFirst(t *testing.T) {
	env := newTestEnv(t, false,
		msg("u1", model.RoleUser, "keep me"),
		msg("a1", model.RoleAssistant, "delete me"),
	)
	m := env.m
	press(m, tea.KeyTab)

	pressRune(m, 'd')
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "Delete this assistant message?")

	pressRune(m, 'n')
	assert.Nil(t, m.confirm)
	assert.Len(t, m.ChatView().Messages(), 2)

	pressRune(m, 'd')
	pressRune(m, 'y')
	assert.Nil(t, m.confirm)
	msgs := m.ChatView().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "u1", msgs[0].ID)
	assert.Len(t, env.saved(t), 1)
	assert.Equal(t, "u1", m.focusID)
}

func TestNavigate_MenuOverlay(t *testing.T) {
	env := newTestEnv(t, false, msg("a1", model.RoleAssistant, "answer"))
	m := env.m
	press(m, tea.KeyTab)

	press(m, tea.KeyEnter)
	require.NotNil(t, m.ChatView().ContextMenu())
	out := m.View()
	assert.Contains(t, out, "Message")
	assert.Contains(t, out, "Copy")

	press(m, tea.KeyDown)
	assert.Equal(t, 1, m.menuCursor)
	press(m, tea.KeyEsc)
	assert.Nil(t, m.ChatView().ContextMenu())
	assert.Equal(t, ModeNavigate, m.Mode())
}

func TestNavigate_CopyAndRead(t *testing.T) {
	env := newTestEnv(t, false, msg("a1", model.RoleAssistant, "# Title\n\nsome **body** text"))
	m := env.m
	press(m, tea.KeyTab)

	pressRune(m, 'c')
	assert.Equal(t, "# Title\n\nsome **body** text", env.sys.clipboard)
	assert.Equal(t, "Copied to clipboard", m.status)

	pressRune(m, 'v')
	require.NotNil(t, m.reader)
	out := m.View()
	assert.Contains(t, out, "Read mode")
	assert.Contains(t, out, "body")

	press(m, tea.KeyEsc)
	assert.Nil(t, m.reader)
}

func TestNavigate_Branch(t *testing.T) {
	env := newTestEnv(t, false,
		msg("u1", model.RoleUser, "one"),
		msg("a1", model.RoleAssistant, "two"),
		msg("u2", model.RoleUser, "three"),
	)
	m := env.m
	press(m, tea.KeyTab)
	pressRune(m, 'k')

	pressRune(m, 'b')
	pump(t, m)

	assert.NotEqual(t, "topic_1", m.TopicID())
	msgs := m.ChatView().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "a1", msgs[1].ID)
	assert.Len(t, env.saved(t), 2)
	assert.Contains(t, m.status, "topic_1")
}

func TestNavigate_RegenerateNeedsAssistant(t *testing.T) {
	env := newTestEnv(t, false,
		msg("u1", model.RoleUser, "one"),
		msg("a1", model.RoleAssistant, "two"),
	)
	m := env.m
	press(m, tea.KeyTab)

	pressRune(m, 'k')
	pressRune(m, 'r')
	assert.True(t, m.statusErr)
	assert.Nil(t, m.ChatView().ContextMenu())

	pressRune(m, 'j')
	pressRune(m, 'r')
	assert.True(t, m.busy())
	pump(t, m)
	msgs := m.ChatView().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello back", msgs[1].Content)
}

func TestNavigate_Images(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "cat.png")
	doc := filepath.Join(dir, "notes.txt")
	m := msg("u1", model.RoleUser, "look")
	m.Attachments = []model.Attachment{
		{Type: "image/png", Src: "file://" + filepath.ToSlash(img), Name: "cat.png"},
		{Type: "text/plain", Src: "file://" + filepath.ToSlash(doc), Name: "notes.txt"},
	}
	env := newTestEnv(t, false, m)
	press(env.m, tea.KeyTab)

	pressRune(env.m, '1')
	require.Len(t, env.sys.opened, 1)
	assert.Equal(t, filepath.ToSlash(img), env.sys.opened[0])

	pressAltRune(env.m, '2')
	require.Len(t, env.sys.opened, 2)
	assert.Equal(t, filepath.ToSlash(doc), env.sys.opened[1])

	pressRune(env.m, 'i')
	pressRune(env.m, '1')
	require.NotNil(t, env.m.imageMenu)
	press(env.m, tea.KeyDown)
	press(env.m, tea.KeyEnter)
	assert.Nil(t, env.m.imageMenu)
	assert.Equal(t, "file://"+filepath.ToSlash(img), env.sys.clipboard)

	pressRune(env.m, '7')
	assert.True(t, env.m.statusErr)
}

// =============================================================================
// EDITING
// =============================================================================

func TestEdit_Save(t *testing.T) {
	env := newTestEnv(t, false, msg("a1", model.RoleAssistant, "Hello there"))
	m := env.m
	press(m, tea.KeyTab)

	pressRune(m, 'e')
	require.Equal(t, ModeEdit, m.Mode())
	assert.Equal(t, "Hello there", m.editor.Value())
	assert.Contains(t, m.View(), "EDIT")

	typeText(m, "!")
	press(m, tea.KeyEnter)

	assert.Equal(t, ModeNavigate, m.Mode())
	assert.Empty(t, m.ChatView().EditingID())
	got, ok := m.ChatView().Message("a1")
	require.True(t, ok)
	assert.Equal(t, "Hello there!", got.Content)
	assert.Equal(t, "Hello there!", env.saved(t)[0].Content)
}

func TestEdit_Discard(t *testing.T) {
	env := newTestEnv(t, false, msg("a1", model.RoleAssistant, "Hello there"))
	m := env.m
	press(m, tea.KeyTab)
	pressRune(m, 'e')
	typeText(m, " friend")

	press(m, tea.KeyEsc)
	assert.Equal(t, ModeNavigate, m.Mode())
	got, _ := m.ChatView().Message("a1")
	assert.Equal(t, "Hello there", got.Content)
}

func TestEdit_CutAndPaste(t *testing.T) {
	env := newTestEnv(t, false, msg("a1", model.RoleAssistant, "move me"))
	m := env.m
	press(m, tea.KeyTab)
	pressRune(m, 'e')

	press(m, tea.KeyCtrlX)
	assert.Equal(t, "move me", env.sys.clipboard)
	assert.Empty(t, m.editor.Value())

	press(m, tea.KeyCtrlV)
	press(m, tea.KeyCtrlV)
	assert.Equal(t, "move memove me", m.editor.Value())

	press(m, tea.KeyCtrlJ)
	text, cursor := m.ChatView().EditBuffer()
	assert.Equal(t, "move memove me\n", text)
	assert.Equal(t, len([]rune(text)), cursor)
}

func TestEditorCursorRoundTrip(t *testing.T) {
	ta := textarea.New()
	ta.SetWidth(40)
	ta.Focus()

	for _, tc := range []struct {
		text   string
		cursor int
	}{
		{"hello", 0},
		{"hello", 3},
		{"hello", 5},
		{"ab\ncd", 4},
		{"ab\ncd\nef", 2},
		{"héllo\nwörld", 9},
	} {
		setEditorValue(&ta, tc.text, tc.cursor)
		assert.Equal(t, tc.text, ta.Value())
		assert.Equal(t, tc.cursor, editorCursor(ta), "text %q", tc.text)
	}
}

// =============================================================================
// AGENTS AND SHELL
// =============================================================================

func TestAgentChanged(t *testing.T) {
	env := newTestEnv(t, false)
	m := env.m

	agent := agents.Default("nova")
	agent.Name = "Nova Prime"
	require.NoError(t, env.registry.Save(agent))

	m.agentChanged("someone-else")
	m.agentChanged("nova")
	pump(t, m)

	assert.Equal(t, "Nova Prime", m.agentName)
	assert.Contains(t, m.View(), "Nova Prime")
}

func TestWriteDataURL(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("\x89PNG fake")
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	path, err := writeDataURL(dir, src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))
	assert.Equal(t, ".png", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	_, err = writeDataURL(dir, "data:image/png,plain")
	assert.ErrorIs(t, err, errBadDataURL)
	_, err = writeDataURL(dir, "data:image/png;base64,!!!")
	assert.ErrorIs(t, err, errBadDataURL)
}

func TestConfirm_ReplacesPending(t *testing.T) {
	env := newTestEnv(t, false)
	shell := termShell{env.m}

	var first []bool
	shell.Confirm("first?", func(ok bool) { first = append(first, ok) })
	shell.Confirm("second?", func(bool) {})

	assert.Equal(t, []bool{false}, first)
	require.NotNil(t, env.m.confirm)
	assert.Equal(t, "second?", env.m.confirm.prompt)
}

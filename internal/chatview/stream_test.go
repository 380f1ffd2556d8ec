// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

const toolRequest = "```\n" +
	"<<<[TOOL_REQUEST]>>>\n" +
	"tool_name:「始」Calc「末」\n" +
	"expression:「始」1+1「末」\n" +
	"<<<[END_TOOL_REQUEST]>>>\n" +
	"```"

func TestStream_HelloWorld(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	require.NotNil(t, v.StartStreamingMessage(model.Message{ID: "m1"}))
	v.AppendStreamChunk("m1", TextChunk("Hello "))
	v.AppendStreamChunk("m1", TextChunk("world"))
	v.FinalizeStreamedMessage("m1", "stop")

	msgs := v.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "Hello world", msgs[0].Content)
	assert.Equal(t, "stop", msgs[0].FinishReason)
	assert.Equal(t, model.RoleAssistant, msgs[0].Role)

	assert.Equal(t, []string{"m1"}, v.ItemIDs())
	item := v.Node("m1")
	assert.False(t, render.HasClass(item, ClassStreaming))
	assert.NotNil(t, findClass(item, ClassTimestamp))
	assert.Equal(t, "Hello world", contentText(t, v, "m1"))
	assert.Empty(t, v.ActiveStream())

	require.NotEmpty(t, env.persister.saves)
	assert.Equal(t, "Hello world", env.persister.last()[0].Content)
}

func TestStream_StartInstallsEntry(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	item := v.StartStreamingMessage(model.Message{ID: "m1"})
	require.NotNil(t, item)
	assert.True(t, render.HasClass(item, ClassStreaming))
	assert.Contains(t, contentText(t, v, "m1"), LabelReceiving)

	m, ok := v.Message("m1")
	require.True(t, ok)
	assert.Empty(t, m.Content)
	assert.False(t, m.IsThinking)
	assert.Equal(t, "m1", v.ActiveStream())
}

func TestStream_StartWithoutIDLogsError(t *testing.T) {
	env := newTestEnv(t)

	assert.Nil(t, env.view.StartStreamingMessage(model.Message{}))
	assert.Equal(t, 1, env.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Empty(t, env.view.Messages())
}

func TestStream_ConvertsThinkingPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	thinking := model.NewThinkingMessage("msg", "")
	placeholder := v.RenderMessage(thinking, false)
	require.NotNil(t, placeholder)
	assert.True(t, render.HasClass(placeholder, ClassThinking))
	assert.Empty(t, v.Messages(), "thinking messages are not stored")

	item := v.StartStreamingMessage(model.Message{ID: thinking.ID})
	assert.Same(t, placeholder, item)
	assert.False(t, render.HasClass(item, ClassThinking))
	assert.True(t, render.HasClass(item, ClassStreaming))
	assert.Len(t, v.Messages(), 1)
}

func TestStream_EventsAdoptActivePlaceholder(t *testing.T) {
	tests := []struct {
		name   string
		events func(v *View, id string)
		want   string
	}{
		{
			name: "chunk first",
			events: func(v *View, id string) {
				v.AppendStreamChunk(id, TextChunk("early"))
				v.FinalizeStreamedMessage(id, "stop")
			},
			want: "early",
		},
		{
			name: "finalize only",
			events: func(v *View, id string) {
				v.FinalizeStreamedMessage(id, "stop")
			},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			v := env.view
			thinking := model.NewThinkingMessage("msg", "")
			v.RenderMessage(thinking, false)
			v.activeID = thinking.ID

			tt.events(v, thinking.ID)

			m, ok := v.Message(thinking.ID)
			require.True(t, ok)
			assert.Equal(t, tt.want, m.Content)
			assert.Equal(t, "stop", m.FinishReason)
			assert.Empty(t, v.ActiveStream())
			assert.False(t, render.HasClass(v.Node(thinking.ID), ClassThinking))
			assert.True(t, v.streamStarted(thinking.ID))
		})
	}
}

func TestStream_RestartResetsEntry(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	v.AppendStreamChunk("m1", TextChunk("partial"))
	v.StartStreamingMessage(model.Message{ID: "m1"})

	m, _ := v.Message("m1")
	assert.Empty(t, m.Content)
	assert.Equal(t, 1, env.logs.FilterMessage("stream restarted for existing message").Len())
	assert.Len(t, v.Messages(), 1)
}

func TestStream_AppendIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	prev := 0
	for _, c := range []string{"a", "", "bc", "$x$", "\n```go\n", "fmt.Println()"} {
		v.AppendStreamChunk("m1", TextChunk(c))
		m, _ := v.Message("m1")
		require.GreaterOrEqual(t, len(m.Content), prev)
		prev = len(m.Content)
	}
	v.FinalizeStreamedMessage("m1", "stop")
	m, _ := v.Message("m1")
	assert.Equal(t, prev, len(m.Content))
}

func TestStream_IdentityGuard(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	v.AppendStreamChunk("m1", TextChunk("kept"))
	before := render.OuterHTML(v.Root())
	msgs := v.Messages()

	v.AppendStreamChunk("m2", TextChunk("stray"))
	v.AppendStreamChunk("", TextChunk("stray"))
	v.FinalizeStreamedMessage("m2", "stop")

	assert.Equal(t, before, render.OuterHTML(v.Root()))
	assert.Equal(t, msgs, v.Messages())
	assert.Equal(t, "m1", v.ActiveStream())
	assert.Equal(t, 1, env.logs.FilterMessage("finalize for inactive stream").Len())
}

func TestStream_ChunkKinds(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	v.AppendStreamChunk("m1", vcp.StreamChunk{Choices: []vcp.StreamChoice{{Delta: vcp.Delta{Content: "a"}}}})
	v.AppendStreamChunk("m1", TextChunk("b"))
	v.AppendStreamChunk("m1", RawChunk{Raw: "{bad", Err: errors.New("invalid json")})
	v.AppendStreamChunk("m1", RawChunk{Raw: "c"})

	m, _ := v.Message("m1")
	assert.Equal(t, "ab{bad (parse error)c", m.Content)
}

func TestStream_FastPathSkipsAnnotation(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	v.AppendStreamChunk("m1", TextChunk(toolRequest))

	assert.NotNil(t, render.FindFirst(v.Node("m1"), render.ByTag("pre")))
	assert.Contains(t, contentText(t, v, "m1"), render.ToolRequestStart)
	assert.Nil(t, findClass(v.Node("m1"), render.ClassToolBubble))
}

func TestStream_HeavyPassWaitsLongerForOpenBlocks(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	v.AppendStreamChunk("m1", TextChunk(toolRequest))
	require.Equal(t, 1, env.sched.Pending())

	env.sched.Advance(DefaultStreamDelay)
	assert.Nil(t, findClass(v.Node("m1"), render.ClassToolBubble))

	env.sched.Advance(DefaultPendingBlockDelay - DefaultStreamDelay)
	bubble := findClass(v.Node("m1"), render.ClassToolBubble)
	require.NotNil(t, bubble)
	assert.Equal(t, "Calc", render.TextContent(findClass(bubble, render.ClassToolName)))
	assert.NotContains(t, contentText(t, v, "m1"), render.ToolRequestStart)
	assert.Equal(t, 0, env.sched.Pending())
}

func TestStream_DebounceReplacesPendingTask(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	v.AppendStreamChunk("m1", TextChunk("one "))
	env.sched.Advance(300 * time.Millisecond)
	v.AppendStreamChunk("m1", TextChunk("$x$"))
	assert.Equal(t, 1, env.sched.Pending())

	env.sched.Advance(300 * time.Millisecond)
	assert.Nil(t, findClass(v.Node("m1"), render.ClassMathInline), "first task was cancelled")

	env.sched.Advance(100 * time.Millisecond)
	assert.NotNil(t, findClass(v.Node("m1"), render.ClassMathInline))
}

func TestStream_FinalizeCancelsPendingAndAnnotates(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	v.AppendStreamChunk("m1", TextChunk(toolRequest))
	v.FinalizeStreamedMessage("m1", "stop")

	assert.Equal(t, 0, env.sched.Pending())
	assert.NotNil(t, findClass(v.Node("m1"), render.ClassToolBubble))
}

func TestStream_HeavyPassSkipsDetachedNode(t *testing.T) {
	env := newTestEnv(t)
	v := env.view

	v.StartStreamingMessage(model.Message{ID: "m1"})
	v.AppendStreamChunk("m1", TextChunk(toolRequest))
	item := v.Node("m1")
	render.Detach(item)

	env.sched.Advance(DefaultPendingBlockDelay)
	assert.Nil(t, findClass(item, render.ClassToolBubble))
}

func TestStreamDelay(t *testing.T) {
	normal, pending := 400*time.Millisecond, time.Second
	tests := []struct {
		name string
		text string
		want time.Duration
	}{
		{"plain", "hello", normal},
		{"empty", "", normal},
		{"tool request", "x " + render.ToolRequestStart, pending},
		{"diary", render.DailyNoteStart + "\nMaid: Nova", pending},
		{"closed tool request", toolRequest, pending},
		{"end sentinel only", render.ToolRequestEnd, normal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StreamDelay(tt.text, normal, pending))
		})
	}
}

func TestNew_PendingDelayNotShorterThanStreamDelay(t *testing.T) {
	v, err := New(Refs{Parser: render.NewMarkdown()}, Options{
		StreamDelay:       2 * time.Second,
		PendingBlockDelay: time.Second,
	})
	require.NoError(t, err)
	defer v.Close()
	assert.Equal(t, 2*time.Second, v.opts.PendingBlockDelay)
}

func TestNew_RequiresParser(t *testing.T) {
	_, err := New(Refs{}, Options{})
	assert.ErrorIs(t, err, ErrMissingParser)
}

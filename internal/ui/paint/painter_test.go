// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package paint

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
	"github.com/jeranaias/vcpchat-tui/internal/ui/styles"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func plain(s string) string { return ansi.ReplaceAllString(s, "") }

const ts = int64(1714550400000)

func newView(t *testing.T, msgs ...model.Message) *chatview.View {
	t.Helper()
	v, err := chatview.New(chatview.Refs{
		Parser:     render.NewMarkdown(),
		Typesetter: render.MathMarker{},
	}, chatview.Options{Headless: true})
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	v.SetCurrentAgentName("Nova")
	v.SetUserName("Sam")
	v.LoadTopic("nova", "topic_1", msgs)
	return v
}

func paintOne(t *testing.T, width int, m model.Message, opts Options) string {
	t.Helper()
	v := newView(t, m)
	p := New(styles.NewTheme(styles.ModeDark))
	p.SetWidth(width)
	return plain(p.Item(v.Node(m.ID), opts))
}

func TestItem_Header(t *testing.T) {
	out := paintOne(t, 80, model.Message{ID: "u1", Role: model.RoleUser, Content: "hi", Timestamp: ts}, Options{})
	first := strings.SplitN(out, "\n", 2)[0]

	assert.Contains(t, first, "Sam")
	assert.Contains(t, first, time.UnixMilli(ts).Format("15:04"))
	assert.Contains(t, out, "hi")

	hidden := paintOne(t, 80, model.Message{ID: "u1", Role: model.RoleUser, Content: "hi", Timestamp: ts}, Options{HideTimestamps: true, Focused: true})
	assert.NotContains(t, hidden, time.UnixMilli(ts).Format("15:04"))
	assert.True(t, strings.HasPrefix(hidden, "▌ Sam"))
}

func TestItem_Markdown(t *testing.T) {
	content := "Some **bold** and `code`.\n\n" +
		"- one\n- two\n\n" +
		"1. first\n2. second\n\n" +
		"> quoted\n\n" +
		"```go\nfmt.Println(1)\n```\n\n" +
		"| a | bb |\n|---|----|\n| 1 | 2 |"
	out := paintOne(t, 80, model.Message{ID: "a1", Role: model.RoleAssistant, Content: content, Timestamp: ts}, Options{})

	assert.Contains(t, out, "Nova")
	assert.Contains(t, out, "Some bold and code.")
	assert.Contains(t, out, "• one")
	assert.Contains(t, out, "• two")
	assert.Contains(t, out, "1. first")
	assert.Contains(t, out, "2. second")
	assert.Contains(t, out, "quoted")
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "fmt.Println(1)")
	assert.Contains(t, out, "a │ bb")
	assert.Contains(t, out, "1 │ 2")
}

func TestItem_ToolAndDiaryBubbles(t *testing.T) {
	content := "```\n<<<[TOOL_REQUEST]>>>\ntool_name:「始」Calc「末」\n<<<[END_TOOL_REQUEST]>>>\n```\n\n" +
		"```\n<<<DailyNoteStart>>>\nMaid: Nova\nDate: today\n<<<DailyNoteEnd>>>\n```"
	out := paintOne(t, 80, model.Message{ID: "a1", Role: model.RoleAssistant, Content: content, Timestamp: ts}, Options{})

	assert.Contains(t, out, "ToolUse: Calc")
	assert.NotContains(t, out, "TOOL_REQUEST")
	assert.Contains(t, out, "Maid: Nova")
	assert.Contains(t, out, "Date: today")
}

func TestItem_Thinking(t *testing.T) {
	m := model.Message{ID: "t1", Role: model.RoleAssistant, IsThinking: true}
	v, err := chatview.New(chatview.Refs{Parser: render.NewMarkdown()}, chatview.Options{Headless: true})
	require.NoError(t, err)
	defer v.Close()
	v.RenderMessage(m, false)

	p := New(styles.NewTheme(styles.ModeDark))
	assert.Contains(t, plain(p.Item(v.Node("t1"), Options{Frame: 0})), "Thinking.")
	assert.Contains(t, plain(p.Item(v.Node("t1"), Options{Frame: 2})), "Thinking...")
}

func TestItem_ImagesAreNumbered(t *testing.T) {
	m := model.Message{
		ID: "u1", Role: model.RoleUser, Content: "look ![cat](https://example.com/cat.png)", Timestamp: ts,
		Attachments: []model.Attachment{
			{Type: "image/png", Src: "/tmp/photo.png", Name: "photo.png"},
			{Type: "text/plain", Src: "/tmp/notes.txt", Name: "notes.txt"},
		},
	}
	out := paintOne(t, 80, m, Options{})

	assert.Contains(t, out, "[image 1: cat]")
	assert.Contains(t, out, "[image 2: photo.png]")
	assert.Contains(t, out, "[file 2: notes.txt]")
}

func TestItem_NoticeAndEditor(t *testing.T) {
	out := paintOne(t, 80, model.Message{ID: "s1", Role: model.RoleSystem, Content: "topic created", Timestamp: ts}, Options{})
	assert.Contains(t, out, "topic created")

	v := newView(t, model.Message{ID: "a1", Role: model.RoleAssistant, Content: "original", Timestamp: ts})
	require.True(t, v.ToggleEdit("a1"))
	p := New(styles.NewTheme(styles.ModeDark))
	frame := p.Transcript(v.Root(), "a1", Options{Editor: "EDITOR"})
	got := plain(frame.Content)
	assert.Contains(t, got, "EDITOR")
	assert.Contains(t, got, "editing")
	assert.NotContains(t, got, "original")
}

func TestItem_WrapsToWidth(t *testing.T) {
	long := strings.Repeat("word ", 60) + strings.Repeat("x", 90)
	out := paintOne(t, 40, model.Message{ID: "a1", Role: model.RoleAssistant, Content: long, Timestamp: ts}, Options{})

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, runewidth.StringWidth(line), 40, "line %q", line)
	}
}

func TestTranscript_Offsets(t *testing.T) {
	v := newView(t,
		model.Message{ID: "u1", Role: model.RoleUser, Content: "question\n\nmore", Timestamp: ts},
		model.Message{ID: "a1", Role: model.RoleAssistant, Content: "answer", Timestamp: ts},
	)
	p := New(styles.NewTheme(styles.ModeDark))
	frame := p.Transcript(v.Root(), "", Options{})

	assert.Equal(t, []string{"u1", "a1"}, frame.IDs)
	lines := strings.Split(plain(frame.Content), "\n")
	assert.Equal(t, 0, frame.Offsets["u1"])
	require.Less(t, frame.Offsets["a1"], len(lines))
	assert.Contains(t, lines[frame.Offsets["a1"]], "Nova")
	assert.Contains(t, lines[frame.Offsets["u1"]], "Sam")
}

func TestDots(t *testing.T) {
	assert.Equal(t, ".", dots(0))
	assert.Equal(t, "..", dots(1))
	assert.Equal(t, "...", dots(2))
	assert.Equal(t, ".", dots(3))
}

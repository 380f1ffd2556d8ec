// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const toolBlock = "```\n" +
	"<<<[TOOL_REQUEST]>>>\n" +
	"tool_name:「始」Calc「末」\n" +
	"expression:「始」1+1「末」\n" +
	"<<<[END_TOOL_REQUEST]>>>\n" +
	"```"

const diaryBlock = "```\n" +
	"<<<DailyNoteStart>>>\n" +
	"Maid: Nova\n" +
	"Date: 2025.5.1\n" +
	"Content: tidied the archive\n" +
	"<<<DailyNoteEnd>>>\n" +
	"```"

// renderContent runs the full pipeline into a detached md-content div.
func renderContent(t *testing.T, text string) *html.Node {
	t.Helper()
	out, err := NewMarkdown().Parse(Normalize(text))
	require.NoError(t, err)
	content := NewElement("div", Class("md-content"))
	require.NoError(t, SetInnerHTML(content, out))
	return content
}

// =============================================================================
// TOOL BLOCK TESTS
// =============================================================================

func TestAnnotate_ToolBlock(t *testing.T) {
	content := renderContent(t, "Let me compute.\n\n"+toolBlock)

	n := NewAnnotator().Annotate(content)
	require.Equal(t, 1, n)

	pre := FindFirst(content, ByTag("pre"))
	require.NotNil(t, pre)
	assert.True(t, HasClass(pre, ClassToolBubble))
	v, _ := GetAttr(pre, AttrToolMark)
	assert.Equal(t, "true", v)

	name := FindFirst(pre, ByClass(ClassToolName))
	require.NotNil(t, name)
	assert.Equal(t, "Calc", TextContent(name))

	label := FindFirst(pre, ByClass(ClassToolLabel))
	require.NotNil(t, label)
	assert.Equal(t, "ToolUse:", TextContent(label))

	text := TextContent(content)
	assert.NotContains(t, text, "TOOL_REQUEST")
	assert.NotContains(t, text, "1+1")
	assert.Contains(t, text, "Let me compute.")
}

func TestAnnotate_UnknownTool(t *testing.T) {
	content := renderContent(t, "```\n<<<[TOOL_REQUEST]>>>\nexpression: 2\n<<<[END_TOOL_REQUEST]>>>\n```")
	NewAnnotator().Annotate(content)

	name := FindFirst(content, ByClass(ClassToolName))
	require.NotNil(t, name)
	assert.Equal(t, UnknownTool, TextContent(name))
}

func TestAnnotate_ToolNameIsText(t *testing.T) {
	content := renderContent(t, "```\n<<<[TOOL_REQUEST]>>>\ntool_name:「始」<b>x</b>「末」\n<<<[END_TOOL_REQUEST]>>>\n```")
	NewAnnotator().Annotate(content)

	assert.Empty(t, FindAll(content, ByTag("b")))
	name := FindFirst(content, ByClass(ClassToolName))
	require.NotNil(t, name)
	assert.Equal(t, "<b>x</b>", TextContent(name))
}

func TestAnnotate_Idempotent(t *testing.T) {
	content := renderContent(t, toolBlock+"\n\n"+diaryBlock)
	a := NewAnnotator()

	require.Equal(t, 2, a.Annotate(content))
	first := OuterHTML(content)

	assert.Equal(t, 0, a.Annotate(content))
	assert.Equal(t, first, OuterHTML(content))
}

func TestAnnotate_RemovesCopyButtons(t *testing.T) {
	content := NewElement("div")
	require.NoError(t, SetInnerHTML(content,
		`<pre><code>`+ToolRequestStart+`tool_name:「始」Web「末」`+ToolRequestEnd+`</code><span class="code-copy">copy</span></pre>`))

	NewAnnotator().Annotate(content)
	assert.Empty(t, FindAll(content, ByClass("code-copy")))
}

func TestAnnotate_PlainBlockUntouched(t *testing.T) {
	content := renderContent(t, "```go\nfmt.Println(1)\n```")
	before := OuterHTML(content)

	assert.Equal(t, 0, NewAnnotator().Annotate(content))
	assert.Equal(t, before, OuterHTML(content))
}

func TestAnnotate_SentinelsOutOfOrder(t *testing.T) {
	content := renderContent(t, "```\n"+ToolRequestEnd+"\n"+ToolRequestStart+"\n```")
	assert.Equal(t, 0, NewAnnotator().Annotate(content))
}

// =============================================================================
// DIARY BLOCK TESTS
// =============================================================================

func TestAnnotate_DiaryBlock(t *testing.T) {
	content := renderContent(t, diaryBlock)
	require.Equal(t, 1, NewAnnotator().Annotate(content))

	pre := FindFirst(content, ByTag("pre"))
	require.NotNil(t, pre)
	assert.True(t, HasClass(pre, ClassDiaryBubble))

	code := FindFirst(pre, ByTag("code"))
	require.NotNil(t, code)
	assert.Equal(t,
		`<span class="maid-label">Maid: Nova</span>Date: 2025.5.1<br/>Content: tidied the archive`,
		InnerHTML(code))
}

func TestAnnotate_DiaryWithoutLabel(t *testing.T) {
	content := renderContent(t, "```\n<<<DailyNoteStart>>>\nfirst\nsecond\n<<<DailyNoteEnd>>>\n```")
	NewAnnotator().Annotate(content)

	code := FindFirst(content, ByTag("code"))
	require.NotNil(t, code)
	assert.Equal(t, "first<br/>second", InnerHTML(code))
	assert.Nil(t, FindFirst(content, ByClass(ClassDiaryLabel)))
}

func TestAnnotate_CustomLabelPrefix(t *testing.T) {
	content := renderContent(t, "```\n<<<DailyNoteStart>>>\nButler: Alfred\nnote\n<<<DailyNoteEnd>>>\n```")
	NewAnnotator("Butler").Annotate(content)

	label := FindFirst(content, ByClass(ClassDiaryLabel))
	require.NotNil(t, label)
	assert.Equal(t, "Butler: Alfred", TextContent(label))
}

func TestClearMarks(t *testing.T) {
	content := renderContent(t, toolBlock)
	NewAnnotator().Annotate(content)

	ClearMarks(content)
	pre := FindFirst(content, ByTag("pre"))
	assert.False(t, IsMarked(pre))
	assert.False(t, HasClass(pre, ClassToolBubble))
}

func TestToolName(t *testing.T) {
	tests := map[string]string{
		"tool_name:「始」Calc「末」":         "Calc",
		"tool_name:  「始」Web Search「末」": "Web Search",
		"tool_name: Calc":               UnknownTool,
		"":                              UnknownTool,
	}
	for in, want := range tests {
		if got := ToolName(in); got != want {
			t.Errorf("ToolName(%q) = %q, want %q", in, got, want)
		}
	}
}

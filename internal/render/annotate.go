// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// =============================================================================
// SENTINELS
// =============================================================================

// Block sentinels emitted by VCP agents inside fenced code blocks.
const (
	ToolRequestStart = "<<<[TOOL_REQUEST]>>>"
	ToolRequestEnd   = "<<<[END_TOOL_REQUEST]>>>"
	DailyNoteStart   = "<<<DailyNoteStart>>>"
	DailyNoteEnd     = "<<<DailyNoteEnd>>>"
)

// Annotation marks set on decorated pre elements.
const (
	AttrToolMark  = "data-vcp-prettified"
	AttrDiaryMark = "data-maid-diary-prettified"
)

// Classes added to decorated blocks.
const (
	ClassToolBubble  = "vcp-tool-use-bubble"
	ClassToolLabel   = "vcp-tool-label"
	ClassToolName    = "vcp-tool-name-highlight"
	ClassDiaryBubble = "maid-diary-bubble"
	ClassDiaryLabel  = "maid-label"
)

// UnknownTool is shown when a tool request carries no recognizable name.
const UnknownTool = "UnknownTool"

// DefaultDiaryLabelPrefix is the first-line prefix rendered as a diary label.
const DefaultDiaryLabelPrefix = "Maid"

var toolNamePattern = regexp.MustCompile(`tool_name:\s*「始」([^「」]+)「末」`)

// ToolName extracts the tool name from the body of a tool request.
func ToolName(body string) string {
	m := toolNamePattern.FindStringSubmatch(body)
	if m == nil {
		return UnknownTool
	}
	return m[1]
}

// =============================================================================
// ANNOTATOR
// =============================================================================

// Annotator decorates tool-use and diary blocks in rendered message content.
type Annotator struct {
	labelPrefixes []string
}

// NewAnnotator creates an annotator. Without prefixes the diary label prefix
// defaults to "Maid".
func NewAnnotator(labelPrefixes ...string) *Annotator {
	prefixes := make([]string, 0, len(labelPrefixes))
	for _, p := range labelPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		prefixes = []string{DefaultDiaryLabelPrefix}
	}
	return &Annotator{labelPrefixes: prefixes}
}

// Annotate decorates every unmarked pre block under container and returns
// how many were decorated. Marked blocks are never touched again.
func (a *Annotator) Annotate(container *html.Node) int {
	decorated := 0
	for _, pre := range FindAll(container, ByTag("pre")) {
		if IsMarked(pre) {
			continue
		}
		target := pre
		if code := FindFirst(pre, ByTag("code")); code != nil {
			target = code
		}
		text := TextContent(target)

		if body, ok := between(text, ToolRequestStart, ToolRequestEnd); ok {
			removeCopyAffordances(pre)
			decorateTool(pre, target, strings.TrimSpace(body))
			decorated++
			continue
		}
		if body, ok := between(text, DailyNoteStart, DailyNoteEnd); ok {
			removeCopyAffordances(pre)
			a.decorateDiary(pre, target, strings.TrimSpace(body))
			decorated++
		}
	}
	return decorated
}

// IsMarked reports whether pre carries either annotation mark.
func IsMarked(pre *html.Node) bool {
	if v, ok := GetAttr(pre, AttrToolMark); ok && v == "true" {
		return true
	}
	v, ok := GetAttr(pre, AttrDiaryMark)
	return ok && v == "true"
}

// ClearMarks removes annotation marks and bubble classes under container so
// a fresh pass can decorate again.
func ClearMarks(container *html.Node) {
	for _, pre := range FindAll(container, ByTag("pre")) {
		if !IsMarked(pre) {
			continue
		}
		RemoveAttr(pre, AttrToolMark)
		RemoveAttr(pre, AttrDiaryMark)
		RemoveClass(pre, ClassToolBubble)
		RemoveClass(pre, ClassDiaryBubble)
	}
}

func decorateTool(pre, target *html.Node, body string) {
	RemoveChildren(target)

	label := NewElement("span", Class(ClassToolLabel))
	label.AppendChild(NewText("ToolUse:"))
	target.AppendChild(label)

	name := NewElement("span", Class(ClassToolName))
	name.AppendChild(NewText(ToolName(body)))
	target.AppendChild(name)

	AddClass(pre, ClassToolBubble)
	SetAttr(pre, AttrToolMark, "true")
}

func (a *Annotator) decorateDiary(pre, target *html.Node, body string) {
	RemoveChildren(target)

	lines := strings.Split(body, "\n")
	if first := strings.TrimSpace(lines[0]); a.isLabel(first) {
		label := NewElement("span", Class(ClassDiaryLabel))
		label.AppendChild(NewText(first))
		target.AppendChild(label)
		lines = lines[1:]
	}
	for i, line := range lines {
		if i > 0 {
			target.AppendChild(NewElement("br"))
		}
		if line = strings.TrimSuffix(line, "\r"); line != "" {
			target.AppendChild(NewText(line))
		}
	}

	AddClass(pre, ClassDiaryBubble)
	SetAttr(pre, AttrDiaryMark, "true")
}

func (a *Annotator) isLabel(line string) bool {
	for _, p := range a.labelPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// removeCopyAffordances drops copy buttons injected by highlighters.
func removeCopyAffordances(pre *html.Node) {
	for _, n := range FindAll(pre, func(n *html.Node) bool {
		return n.Type == html.ElementNode && (HasClass(n, "code-copy") || HasClass(n, "fa-copy"))
	}) {
		Detach(n)
	}
}

// between returns the text between the first start and the next end after it.
func between(text, start, end string) (string, bool) {
	i := strings.Index(text, start)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

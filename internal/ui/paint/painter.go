// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package paint

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
	"github.com/jeranaias/vcpchat-tui/internal/ui/styles"
)

// =============================================================================
// PAINTER
// =============================================================================

// MinWidth is the narrowest width a Painter lays out for.
const MinWidth = 20

// gutter is the width of the focus marker column.
const gutter = 2

// Painter turns chat view message trees into styled terminal text.
type Painter struct {
	theme *styles.Theme
	width int
}

// New creates a painter for theme, 80 columns wide.
func New(theme *styles.Theme) *Painter {
	return &Painter{theme: theme, width: 80}
}

// SetWidth sets the layout width in columns.
func (p *Painter) SetWidth(width int) {
	if width < MinWidth {
		width = MinWidth
	}
	p.width = width
}

// Width returns the layout width.
func (p *Painter) Width() int { return p.width }

// Options control how one message is painted.
type Options struct {
	// Focused draws the focus marker.
	Focused bool
	// Frame advances the thinking dots.
	Frame int
	// HideTimestamps drops the time from message headers.
	HideTimestamps bool
	// Editor replaces the body of a message in edit mode.
	Editor string
}

// Frame is a painted transcript.
type Frame struct {
	Content string
	// IDs lists message ids in display order.
	IDs []string
	// Offsets maps a message id to its first line in Content.
	Offsets map[string]int
}

// Transcript paints every visible item under root. focusID gets the focus
// marker. editor is shown in place of the item being edited.
func (p *Painter) Transcript(root *html.Node, focusID string, opts Options) Frame {
	frame := Frame{Offsets: make(map[string]int)}
	var sb strings.Builder
	line := 0

	for item := root.FirstChild; item != nil; item = item.NextSibling {
		if item.Type != html.ElementNode || render.IsHidden(item) {
			continue
		}
		id, _ := render.GetAttr(item, chatview.AttrMessageID)

		o := opts
		o.Focused = id != "" && id == focusID
		if !render.HasClass(item, chatview.ClassEditing) {
			o.Editor = ""
		}
		painted := p.Item(item, o)

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
			line += 2
		}
		if id != "" {
			frame.IDs = append(frame.IDs, id)
			frame.Offsets[id] = line
		}
		sb.WriteString(painted)
		line += strings.Count(painted, "\n")
	}

	frame.Content = sb.String()
	return frame
}

// Item paints one message item.
func (p *Painter) Item(item *html.Node, opts Options) string {
	content := render.FindFirst(item, render.ByClass(chatview.ClassContent))
	st := &state{frame: opts.Frame}

	if render.HasClass(item, chatview.ClassSystemLayout) {
		body := ""
		if content != nil {
			body = strings.Join(p.blocks(content, p.width-gutter*2, st), "\n\n")
		}
		style := p.theme.SystemBubble
		if render.HasClass(item, chatview.ClassEphemeral) {
			style = p.theme.NoticeBubble
		}
		return p.marker(opts.Focused) + indentRest(style.Render(body), gutter)
	}

	inner := p.width - gutter - 2 // bubble border and padding
	if inner < MinWidth-gutter-2 {
		inner = MinWidth - gutter - 2
	}

	var body string
	switch {
	case opts.Editor != "":
		body = opts.Editor
	case content != nil:
		body = strings.Join(p.blocks(content, inner, st), "\n\n")
	}

	bubble := p.theme.AgentBubble
	if render.HasClass(item, string(model.RoleUser)) {
		bubble = p.theme.UserBubble
	}
	if opts.Editor != "" {
		bubble = lipgloss.NewStyle()
	}

	header := p.header(item, opts)
	return header + "\n" + indent.String(bubble.Render(body), gutter)
}

// header renders the marker, sender, time and stream state of an item.
func (p *Painter) header(item *html.Node, opts Options) string {
	name := ""
	if n := render.FindFirst(item, render.ByClass(chatview.ClassSenderName)); n != nil {
		name = render.TextContent(n)
	}
	nameStyle := p.theme.AgentName
	if render.HasClass(item, string(model.RoleUser)) {
		nameStyle = p.theme.UserName
	}

	var sb strings.Builder
	sb.WriteString(p.marker(opts.Focused))
	sb.WriteString(nameStyle.Render(name))

	if !opts.HideTimestamps {
		if ts := render.FindFirst(item, render.ByClass(chatview.ClassTimestamp)); ts != nil {
			sb.WriteString("  ")
			sb.WriteString(p.theme.Timestamp.Render(render.TextContent(ts)))
		}
	}
	switch {
	case opts.Editor != "":
		sb.WriteString("  ")
		sb.WriteString(p.theme.StreamBadge.Render("editing"))
	case render.HasClass(item, chatview.ClassStreaming):
		sb.WriteString("  ")
		sb.WriteString(p.theme.StreamBadge.Render(strings.ToLower(chatview.LabelReceiving) + dots(opts.Frame)))
	}
	return sb.String()
}

func (p *Painter) marker(focused bool) string {
	if focused {
		return p.theme.FocusMarker.Render("▌ ")
	}
	return strings.Repeat(" ", gutter)
}

// =============================================================================
// HELPERS
// =============================================================================

// state carries counters across one item.
type state struct {
	frame  int
	images int
}

// dots returns one to three dots for an animation frame.
func dots(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return strings.Repeat(".", frame%3+1)
}

// indentRest indents every line but the first.
func indentRest(s string, n int) string {
	lines := strings.Split(s, "\n")
	pad := strings.Repeat(" ", n)
	for i := 1; i < len(lines); i++ {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package paint

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// =============================================================================
// INLINE TEXT
// =============================================================================

// inlineWriter joins styled inline runs with HTML whitespace rules: runs of
// whitespace collapse to one space and nothing is emitted at line starts.
type inlineWriter struct {
	sb        strings.Builder
	lineStart bool
	space     bool
}

func (w *inlineWriter) text(s string, style lipgloss.Style) {
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" {
			w.space = true
		}
		return
	}
	if s[0] == ' ' || s[0] == '\n' || s[0] == '\t' || s[0] == '\r' {
		w.space = true
	}
	w.raw(style.Render(strings.Join(words, " ")))
	last := s[len(s)-1]
	w.space = last == ' ' || last == '\n' || last == '\t' || last == '\r'
}

func (w *inlineWriter) raw(s string) {
	if s == "" {
		return
	}
	if w.space && !w.lineStart {
		w.sb.WriteByte(' ')
	}
	w.sb.WriteString(s)
	w.space = false
	w.lineStart = false
}

func (w *inlineWriter) newline() {
	w.sb.WriteByte('\n')
	w.lineStart = true
	w.space = false
}

// inline renders a run of inline nodes as one styled paragraph.
func (p *Painter) inline(nodes []*html.Node, st *state) string {
	w := &inlineWriter{lineStart: true}
	for _, n := range nodes {
		p.inlineNode(w, n, lipgloss.NewStyle(), st)
	}
	return strings.TrimRight(w.sb.String(), "\n")
}

func (p *Painter) inlineNode(w *inlineWriter, n *html.Node, style lipgloss.Style, st *state) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data, style)
		return
	case html.ElementNode:
	default:
		return
	}
	if render.IsHidden(n) {
		return
	}

	switch n.Data {
	case "br":
		w.newline()
		return
	case "strong", "b":
		style = style.Bold(true)
	case "em", "i":
		style = style.Italic(true)
	case "del", "s", "strike":
		style = style.Strikethrough(true)
	case "u", "ins":
		style = style.Underline(true)
	case "code", "kbd", "samp":
		w.raw(p.theme.InlineCode.Render(render.TextContent(n)))
		return
	case "img":
		w.raw(p.imageRef(n, st))
		return
	case "a":
		p.link(w, n, style, st)
		return
	case "span":
		if render.HasClass(n, render.ClassMathInline) || render.HasClass(n, render.ClassMathDisplay) {
			tex, ok := render.GetAttr(n, "data-tex")
			if !ok {
				tex = render.TextContent(n)
			}
			if render.HasClass(n, render.ClassMathDisplay) {
				w.newline()
				w.raw("  " + p.theme.Math.Render(strings.TrimSpace(tex)))
				w.newline()
				return
			}
			w.raw(p.theme.Math.Render(tex))
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.inlineNode(w, c, style, st)
	}
}

func (p *Painter) link(w *inlineWriter, n *html.Node, style lipgloss.Style, st *state) {
	linkStyle := style.Inherit(p.theme.Link)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.inlineNode(w, c, linkStyle, st)
	}
	href, _ := render.GetAttr(n, "href")
	text := collapse(render.TextContent(n))
	if href != "" && href != "#" && href != text && !strings.HasPrefix(strings.ToLower(href), "javascript:") {
		w.space = true
		w.raw(p.theme.Timestamp.Render("(" + href + ")"))
	}
}

// imageRef names an image. Preview images are numbered in document order,
// matching the indexes View.ActivateImage takes.
func (p *Painter) imageRef(n *html.Node, st *state) string {
	if title, ok := render.GetAttr(n, chatview.AttrPreview); ok {
		st.images++
		return p.theme.ImageRef.Render(fmt.Sprintf("[image %d: %s]", st.images, title))
	}
	alt, _ := render.GetAttr(n, "alt")
	return p.theme.ImageRef.Render("[image: " + alt + "]")
}

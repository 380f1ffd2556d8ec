// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package paint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// =============================================================================
// BLOCK LAYOUT
// =============================================================================

var blockTags = map[string]bool{
	"p": true, "div": true, "pre": true, "ul": true, "ol": true, "li": true,
	"blockquote": true, "hr": true, "table": true, "section": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"audio": true, "video": true, "figure": true, "details": true, "textarea": true,
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if blockTags[n.Data] {
		return true
	}
	return n.Data == "span" && (render.HasClass(n, render.ClassMathDisplay) || render.HasClass(n, chatview.ClassIndicator))
}

// blocks lays out the children of parent as a list of blocks, each already
// wrapped to width. Runs of inline children form one paragraph.
func (p *Painter) blocks(parent *html.Node, width int, st *state) []string {
	var out []string
	var run []*html.Node

	flush := func() {
		if len(run) == 0 {
			return
		}
		if text := p.inline(run, st); text != "" {
			out = append(out, wrapText(text, width))
		}
		run = nil
	}

	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if !isBlock(c) {
			run = append(run, c)
			continue
		}
		flush()
		if render.IsHidden(c) {
			continue
		}
		out = append(out, p.block(c, width, st)...)
	}
	flush()
	return out
}

func (p *Painter) block(n *html.Node, width int, st *state) []string {
	switch n.Data {
	case "p":
		if text := p.inline(children(n), st); text != "" {
			return []string{wrapText(text, width)}
		}
		return nil

	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(n.Data[1:])
		title := strings.Repeat("#", level) + " " + collapse(render.TextContent(n))
		return []string{wrapText(p.theme.Heading.Render(title), width)}

	case "pre":
		switch {
		case render.HasClass(n, render.ClassToolBubble):
			return []string{p.toolBubble(n, width)}
		case render.HasClass(n, render.ClassDiaryBubble):
			return []string{p.diaryBubble(n, width)}
		}
		return []string{p.codeBlock(n, width)}

	case "ul", "ol":
		return []string{p.list(n, width, st)}

	case "blockquote":
		inner := p.blocks(n, width-2, st)
		return []string{p.theme.Quote.Render(strings.Join(inner, "\n\n"))}

	case "hr":
		return []string{p.theme.Rule.Render(strings.Repeat("─", width))}

	case "table":
		return []string{p.table(n, width, st)}

	case "audio", "video":
		src, _ := render.GetAttr(n, "src")
		icon := "♪"
		if n.Data == "video" {
			icon = "▶"
		}
		return []string{p.theme.Attachment.Render(icon + " " + src)}

	case "span":
		if render.HasClass(n, chatview.ClassIndicator) {
			return []string{p.thinking(n, st)}
		}
		tex, ok := render.GetAttr(n, "data-tex")
		if !ok {
			tex = render.TextContent(n)
		}
		return []string{"  " + p.theme.Math.Render(strings.TrimSpace(tex))}

	case "textarea":
		return nil

	case "div":
		if render.HasClass(n, chatview.ClassAttachments) {
			return []string{p.attachments(n, st)}
		}
	}
	return p.blocks(n, width, st)
}

// =============================================================================
// DECORATED BLOCKS
// =============================================================================

func (p *Painter) thinking(n *html.Node, st *state) string {
	label := ""
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			label += c.Data
		}
	}
	return p.theme.ThinkingText.Render(strings.TrimSpace(label) + dots(st.frame))
}

func (p *Painter) toolBubble(pre *html.Node, width int) string {
	name := render.UnknownTool
	if n := render.FindFirst(pre, render.ByClass(render.ClassToolName)); n != nil {
		name = render.TextContent(n)
	}
	line := p.theme.ToolLabel.Render("ToolUse: ") + p.theme.ToolName.Render(name)
	return p.theme.ToolBubble.Render(wrapText(line, width-4))
}

func (p *Painter) diaryBubble(pre *html.Node, width int) string {
	var label string
	var sb strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				sb.WriteString(c.Data)
			case c.Type != html.ElementNode:
			case render.HasClass(c, render.ClassDiaryLabel):
				label = render.TextContent(c)
			case c.Data == "br":
				sb.WriteString("\n")
			default:
				walk(c)
			}
		}
	}
	walk(pre)

	body := strings.TrimLeft(sb.String(), "\n")
	if label != "" {
		body = p.theme.DiaryLabel.Render(label) + "\n" + body
	}
	return p.theme.DiaryBubble.Render(wrapText(body, width-4))
}

func (p *Painter) attachments(box *html.Node, st *state) string {
	var lines []string
	file := 0
	for c := box.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		file++
		switch c.Data {
		case "img":
			st.images++
			title, _ := render.GetAttr(c, chatview.AttrPreview)
			lines = append(lines, p.theme.ImageRef.Render(fmt.Sprintf("🖼 [image %d: %s]", st.images, title)))
		case "a":
			name := strings.TrimSpace(strings.TrimPrefix(render.TextContent(c), "📄"))
			lines = append(lines, p.theme.Attachment.Render(fmt.Sprintf("📄 [file %d: %s]", file, name)))
		case "audio", "video":
			lines = append(lines, p.block(c, p.width, st)...)
		}
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// LISTS AND TABLES
// =============================================================================

func (p *Painter) list(n *html.Node, width int, st *state) string {
	ordered := n.Data == "ol"
	num := 1
	if s, ok := render.GetAttr(n, "start"); ok {
		if v, err := strconv.Atoi(s); err == nil {
			num = v
		}
	}

	var items []string
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		marker := "• "
		if ordered {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		pad := runewidth.StringWidth(marker)
		inner := strings.Join(p.blocks(li, width-pad, st), "\n")
		lines := strings.Split(inner, "\n")
		for i := range lines {
			if i == 0 {
				lines[i] = marker + lines[i]
			} else {
				lines[i] = strings.Repeat(" ", pad) + lines[i]
			}
		}
		items = append(items, strings.Join(lines, "\n"))
	}
	return strings.Join(items, "\n")
}

func (p *Painter) table(n *html.Node, width int, st *state) string {
	var rows [][]string
	header := -1
	for _, tr := range render.FindAll(n, render.ByTag("tr")) {
		var row []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				row = append(row, collapse(render.TextContent(c)))
				if c.Data == "th" && header < 0 {
					header = len(rows)
				}
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return ""
	}

	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	widths := make([]int, cols)
	for _, r := range rows {
		for i, cell := range r {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	total := 3 * (cols - 1)
	for _, w := range widths {
		total += w
	}

	var lines []string
	for i, r := range rows {
		var line string
		if total <= width {
			cells := make([]string, cols)
			for j := range cells {
				cell := ""
				if j < len(r) {
					cell = r[j]
				}
				cells[j] = runewidth.FillRight(cell, widths[j])
			}
			line = strings.Join(cells, " │ ")
		} else {
			line = wrapText(strings.Join(r, " │ "), width)
		}
		if i == header {
			line = p.theme.TableHeader.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// HELPERS
// =============================================================================

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// wrapText word-wraps styled text to width, hard-breaking overlong words.
func wrapText(s string, width int) string {
	if width < 1 {
		width = 1
	}
	return wrap.String(wordwrap.String(s, width), width)
}

// collapse folds whitespace runs to single spaces and trims.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

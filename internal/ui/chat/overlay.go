// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/ui/styles"
)

// =============================================================================
// OVERLAY STATE
// =============================================================================

// confirmDialog is a pending yes/no question from the chat view.
type confirmDialog struct {
	prompt string
	done   func(bool)
}

// imageMenu is the context menu of one image.
type imageMenu struct {
	src    string
	cursor int
}

// Image menu entries.
const (
	imageOpen = iota
	imageCopyAddress
)

var imageMenuLabels = []string{"Open image", "Copy image address"}

// reader shows a message as plain Markdown in a scrollable box.
type reader struct {
	title string
	vp    viewport.Model
}

func newReader(text, title, theme string, width, height int) *reader {
	w := max(width-6, 20)
	h := max(height-6, 5)
	vp := viewport.New(w, h)
	vp.SetContent(renderMarkdown(text, theme, w))
	return &reader{title: title, vp: vp}
}

// renderMarkdown renders text with glamour. It falls back to the raw text.
func renderMarkdown(text, theme string, width int) string {
	if theme != styles.ModeLight {
		theme = styles.ModeDark
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// OVERLAY KEYS
// =============================================================================

// handleOverlayKey routes a key to the topmost overlay. It reports false
// when no overlay is open.
func (m *Model) handleOverlayKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case m.confirm != nil:
		m.handleConfirmKey(msg)
		return true, nil
	case m.reader != nil:
		return true, m.handleReaderKey(msg)
	case m.imageMenu != nil:
		m.handleImageMenuKey(msg)
		return true, nil
	case m.view.ContextMenu() != nil:
		m.handleMenuKey(msg)
		return true, nil
	}
	return false, nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) {
	var answer bool
	switch {
	case key.Matches(msg, m.keys.Confirm):
		answer = true
	case key.Matches(msg, m.keys.Deny):
	default:
		return
	}
	dialog := m.confirm
	m.confirm = nil
	dialog.done(answer)
}

func (m *Model) handleReaderKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q", "enter":
		m.reader = nil
		return nil
	}
	var cmd tea.Cmd
	m.reader.vp, cmd = m.reader.vp.Update(msg)
	return cmd
}

func (m *Model) handleImageMenuKey(msg tea.KeyMsg) {
	im := m.imageMenu
	switch {
	case msg.String() == "esc":
		m.imageMenu = nil
	case key.Matches(msg, m.keys.Up):
		im.cursor = (im.cursor + len(imageMenuLabels) - 1) % len(imageMenuLabels)
	case key.Matches(msg, m.keys.Down):
		im.cursor = (im.cursor + 1) % len(imageMenuLabels)
	case msg.String() == "enter":
		m.imageMenu = nil
		m.runImageAction(im.src, im.cursor)
	}
}

func (m *Model) runImageAction(src string, action int) {
	switch action {
	case imageOpen:
		termShell{m}.OpenImageInNewWindow(src, "image")
	case imageCopyAddress:
		if err := (termShell{m}).WriteClipboard(src); err != nil {
			m.setError(err)
		}
	}
}

func (m *Model) handleMenuKey(msg tea.KeyMsg) {
	menu := m.view.ContextMenu()
	n := len(menu.Items)
	switch {
	case msg.String() == "esc":
		m.view.ClickOutside()
		return
	case key.Matches(msg, m.keys.Up):
		m.menuCursor = (m.menuCursor + n - 1) % n
		return
	case key.Matches(msg, m.keys.Down):
		m.menuCursor = (m.menuCursor + 1) % n
		return
	case msg.String() == "enter":
	default:
		if d := digit(msg); d >= 1 && d <= n {
			m.menuCursor = d - 1
			break
		}
		return
	}

	item := menu.Items[m.menuCursor]
	m.menuCursor = 0
	m.syncEditBuffer()
	if err := m.view.SelectMenuItem(m.ctx, item.Action); err != nil {
		m.setError(err)
	}
	m.loadEditBuffer()
}

// =============================================================================
// OVERLAY RENDERING
// =============================================================================

// overlay renders the topmost overlay box, or "" when none is open.
func (m *Model) overlay() string {
	t := m.theme
	switch {
	case m.confirm != nil:
		body := t.MenuTitle.Render("Confirm") + "\n\n" + m.confirm.prompt + "\n\n" +
			t.ShortcutKey.Render("y") + t.ShortcutDesc.Render(" yes  ") +
			t.ShortcutKey.Render("n") + t.ShortcutDesc.Render(" no")
		return t.ConfirmBox.Render(body)

	case m.reader != nil:
		body := t.ReaderTitle.Render(m.reader.title) + "\n" + m.reader.vp.View()
		return t.ReaderBox.Render(body)

	case m.imageMenu != nil:
		return m.renderMenu("Image", imageMenuLabels, m.imageMenu.cursor, -1)

	case m.view.ContextMenu() != nil:
		menu := m.view.ContextMenu()
		labels := make([]string, len(menu.Items))
		danger := -1
		for i, it := range menu.Items {
			labels[i] = fmt.Sprintf("%d  %s", i+1, it.Label)
			if it.Action == chatview.ActionDelete {
				danger = i
			}
		}
		return m.renderMenu("Message", labels, m.menuCursor, danger)
	}
	return ""
}

func (m *Model) renderMenu(title string, labels []string, cursor, danger int) string {
	t := m.theme
	lines := []string{t.MenuTitle.Render(title)}
	for i, label := range labels {
		style := t.MenuItem
		switch {
		case i == cursor:
			style = t.MenuItemSelected
		case i == danger:
			style = t.MenuItemDanger
		}
		lines = append(lines, style.Render(label))
	}
	return t.MenuBox.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// digit returns the value of a single digit key, or -1.
func digit(msg tea.KeyMsg) int {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 || msg.Alt {
		return -1
	}
	r := msg.Runes[0]
	if r < '0' || r > '9' {
		return -1
	}
	return int(r - '0')
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/render"
	"github.com/jeranaias/vcpchat-tui/internal/ui/paint"
)

// =============================================================================
// LAYOUT
// =============================================================================

// resize applies a new terminal size.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.painter.SetWidth(width - 1)
	m.input.SetWidth(max(width-2, 10))
	m.editor.SetWidth(max(m.painter.Width()-8, 10))
	m.help.Width = width
	m.refresh()
}

// layout sizes the viewport to what the other rows leave.
func (m *Model) layout() {
	used := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderStatus())
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = max(m.height-used, 1)
}

// refresh repaints the transcript into the viewport.
func (m *Model) refresh() {
	m.syncMode()

	var editor string
	if m.mode == ModeEdit {
		editor = m.theme.EditorBox.Render(m.editor.View()) + "\n" +
			m.theme.EditorHint.Render("Enter save  M-Enter newline  Esc cancel  C-o menu")
	}
	focus := ""
	if m.mode != ModeCompose {
		focus = m.focusID
	}

	frame := m.painter.Transcript(m.view.Root(), focus, paint.Options{
		Frame:          m.frame,
		HideTimestamps: !m.cfg.UI.ShowTimestamps,
		Editor:         editor,
	})
	m.ids = frame.IDs
	if m.focusID != "" && m.indexOf(m.focusID) < 0 {
		m.focusID = ""
		if m.mode == ModeNavigate && len(m.ids) > 0 {
			m.focusID = m.ids[len(m.ids)-1]
			focus = m.focusID
		}
	}

	follow := m.viewport.AtBottom()
	m.layout()
	m.viewport.SetContent(frame.Content)

	switch {
	case m.mode == ModeCompose:
		if follow {
			m.viewport.GotoBottom()
		}
	case focus != "":
		m.scrollTo(frame.Offsets[focus])
	}
}

// scrollTo brings a transcript line into view.
func (m *Model) scrollTo(line int) {
	top := m.viewport.YOffset
	if line < top || line >= top+m.viewport.Height {
		m.viewport.SetYOffset(line)
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	body := m.viewport.View()
	switch ov := m.overlay(); {
	case ov != "":
		body = lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, ov)
	case m.showFullHelp:
		full := m.help.FullHelpView(helpKeyMap{keys: m.keys, mode: m.mode}.FullHelp())
		body = lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
			m.theme.MenuBox.Render(full))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderStatus(),
	)
}

func (m *Model) renderHeader() string {
	t := m.theme
	title := t.HeaderTitle.Render(m.agentName)
	sub := t.HeaderSubtitle.Render("  " + m.topicID)
	line := truncate.String(title+sub, uint(max(m.width-2, 1)))
	return t.Header.Width(max(m.width, 1)).Render(line)
}

func (m *Model) renderInput() string {
	t := m.theme
	var lines []string
	if len(m.pending) > 0 {
		names := make([]string, len(m.pending))
		for i, a := range m.pending {
			names[i] = a.Name
		}
		lines = append(lines, t.Attachment.Render("📎 "+strings.Join(names, ", ")))
	}
	lines = append(lines, m.input.View())
	return t.InputContainer.Width(max(m.width, 1)).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderStatus() string {
	t := m.theme

	left := t.ShortcutKey.Render(m.mode.String())
	if m.busy() {
		label := chatview.LabelReceiving
		if item := m.view.Node(m.view.ActiveStream()); item != nil && !isStreaming(item) {
			label = chatview.LabelThinking
		}
		left += "  " + m.spinner.View() + " " + t.StreamBadge.Render(label)
	}
	if m.status != "" {
		style := t.ShortcutDesc
		if m.statusErr {
			style = t.StatusError
		}
		left += "  " + style.Render(m.status)
	}

	width := max(m.width-2, 1)
	right := m.help.ShortHelpView(helpKeyMap{keys: m.keys, mode: m.mode}.ShortHelp())
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	var line string
	if gap >= 2 {
		line = left + strings.Repeat(" ", gap) + right
	} else {
		line = truncate.String(left, uint(width))
	}
	return t.StatusBar.Width(max(m.width, 1)).Render(line)
}

func isStreaming(item *html.Node) bool {
	return render.HasClass(item, chatview.ClassStreaming)
}

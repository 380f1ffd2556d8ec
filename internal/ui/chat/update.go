// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/attach"
	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
)

// =============================================================================
// MESSAGES
// =============================================================================

// loopEventMsg carries one function posted to the event loop.
type loopEventMsg struct{ fn func() }

// loopClosedMsg is sent once the event loop stops.
type loopClosedMsg struct{}

// waitForEvent blocks until a function is posted to the event loop.
func (m *Model) waitForEvent() tea.Cmd {
	loop, ctx := m.loop, m.ctx
	return func() tea.Msg {
		fn, ok := loop.Next(ctx)
		if !ok {
			return loopClosedMsg{}
		}
		return loopEventMsg{fn: fn}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case loopEventMsg:
		msg.fn()
		m.loop.Drain()
		m.refresh()
		return m, m.waitForEvent()

	case loopClosedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.frame++
		if m.busy() {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		if m.quitting {
			return m, tea.Quit
		}
		m.refresh()
		return m, cmd
	}

	// Cursor blink, mouse and anything else.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	switch m.mode {
	case ModeEdit:
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)
	case ModeCompose:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// busy reports whether a reply is in progress.
func (m *Model) busy() bool {
	return m.view.ActiveStream() != ""
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return nil
	}
	m.status, m.statusErr = "", false

	if key.Matches(msg, m.keys.Cancel) && m.confirm == nil {
		if !m.cancelActive() && m.mode == ModeCompose && m.input.Value() == "" {
			m.quitting = true
		}
		return nil
	}
	if handled, cmd := m.handleOverlayKey(msg); handled {
		return cmd
	}
	if m.showFullHelp {
		m.showFullHelp = false
		if key.Matches(msg, m.keys.Help) {
			return nil
		}
	}

	switch m.mode {
	case ModeEdit:
		return m.handleEditKey(msg)
	case ModeNavigate:
		m.handleNavKey(msg)
		return nil
	default:
		return m.handleComposeKey(msg)
	}
}

// handleComposeKey handles keys for the message input.
func (m *Model) handleComposeKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Send):
		m.submit()
		return nil
	case key.Matches(msg, m.keys.Newline):
		m.input.InsertString("\n")
		return nil
	case key.Matches(msg, m.keys.Mode):
		m.enterNavigate()
		return nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// handleNavKey handles keys while moving over messages.
func (m *Model) handleNavKey(msg tea.KeyMsg) {
	if m.imagePrefix {
		m.imagePrefix = false
		if d := digit(msg); d >= 1 {
			if err := m.view.ImageContextMenu(m.focusID, d-1); err != nil {
				m.setError(err)
			}
		}
		return
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.Top):
		if len(m.ids) > 0 {
			m.focusID = m.ids[0]
		}
	case key.Matches(msg, m.keys.Bottom):
		if len(m.ids) > 0 {
			m.focusID = m.ids[len(m.ids)-1]
		}
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
	case key.Matches(msg, m.keys.Menu):
		if m.view.OpenContextMenu(m.focusID) == nil {
			m.setStatus("No actions for this message")
		}
		m.menuCursor = 0
	case key.Matches(msg, m.keys.Edit):
		if !m.view.ToggleEdit(m.focusID) {
			m.setError(fmt.Errorf("%w: edit", chatview.ErrUnavailable))
		}
	case key.Matches(msg, m.keys.Copy):
		m.runAction(chatview.ActionCopy)
	case key.Matches(msg, m.keys.Branch):
		m.runAction(chatview.ActionBranch)
	case key.Matches(msg, m.keys.Read):
		m.runAction(chatview.ActionRead)
	case key.Matches(msg, m.keys.Regenerate):
		m.runAction(chatview.ActionRegenerate)
	case key.Matches(msg, m.keys.Delete):
		m.runAction(chatview.ActionDelete)
	case key.Matches(msg, m.keys.ImageMenu):
		m.imagePrefix = true
		m.setStatus("Image number?")
	case key.Matches(msg, m.keys.Help):
		m.showFullHelp = true
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Mode):
		m.enterCompose()
	default:
		if d := digit(msg); d >= 1 {
			if err := m.view.ActivateImage(m.focusID, d-1); err != nil {
				m.setError(err)
			}
		} else if d := altDigit(msg); d >= 1 {
			if err := m.view.ActivateAttachment(m.focusID, d-1); err != nil {
				m.setError(err)
			}
		}
	}
}

// handleEditKey handles keys for the inline message editor.
func (m *Model) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Save):
		m.syncEditBuffer()
		if !m.view.HandleEditKey(chatview.EditKey{Name: "enter"}) {
			m.setError(errors.New("message not saved"))
		} else {
			m.setStatus("Message saved")
		}
	case key.Matches(msg, m.keys.EditBreak):
		m.syncEditBuffer()
		m.view.HandleEditKey(chatview.EditKey{Name: "enter", Shift: true})
		m.loadEditBuffer()
	case key.Matches(msg, m.keys.Discard):
		m.view.HandleEditKey(chatview.EditKey{Name: "escape"})
	case key.Matches(msg, m.keys.Cut):
		m.editAction(chatview.ActionCut)
	case key.Matches(msg, m.keys.Paste):
		m.editAction(chatview.ActionPaste)
	case key.Matches(msg, m.keys.EditMenu):
		m.syncEditBuffer()
		m.view.OpenContextMenu(m.view.EditingID())
		m.menuCursor = 0
	default:
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return cmd
	}
	return nil
}

// =============================================================================
// ACTIONS
// =============================================================================

// runAction runs a context menu action on the focused message.
func (m *Model) runAction(action chatview.Action) {
	if m.focusID == "" {
		return
	}
	menu := m.view.OpenContextMenu(m.focusID)
	if !menu.Has(action) {
		m.view.CloseContextMenu()
		m.setError(fmt.Errorf("%w: %s", chatview.ErrUnavailable, action))
		return
	}
	if err := m.view.SelectMenuItem(m.ctx, action); err != nil {
		m.setError(err)
	}
}

// editAction runs a menu action on the message being edited, keeping the
// editor and the view's edit buffer in step.
func (m *Model) editAction(action chatview.Action) {
	id := m.view.EditingID()
	m.syncEditBuffer()
	if !m.view.OpenContextMenu(id).Has(action) {
		m.view.CloseContextMenu()
		return
	}
	if err := m.view.SelectMenuItem(m.ctx, action); err != nil {
		m.setError(err)
	}
	m.loadEditBuffer()
}

// submit sends the input, or runs it as a slash command.
func (m *Model) submit() {
	text := m.input.Value()
	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, "/") {
		if err := m.runCommand(trimmed); err != nil {
			m.setError(err)
			return
		}
		m.input.Reset()
		return
	}

	if err := m.view.SendUserMessage(m.ctx, text, m.pending); err != nil {
		m.setError(err)
		return
	}
	m.input.Reset()
	m.pending = nil
	m.viewport.GotoBottom()
}

// runCommand handles the compose-line commands.
func (m *Model) runCommand(line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/attach":
		if arg == "" {
			return errors.New("usage: /attach PATH")
		}
		att, err := attach.FromPath(arg)
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}
		m.pending = append(m.pending, att)
		if attach.Classify(att.Type, att.Name) == attach.ClassSkip {
			m.setStatus("Attached " + att.Name + " (shown only, not sent to the model)")
		} else {
			m.setStatus("Attached " + att.Name)
		}
	case "/detach":
		m.pending = nil
		m.setStatus("Attachments cleared")
	case "/new":
		if m.busy() {
			return chatview.ErrStreamActive
		}
		m.switchTopic(storage.NewTopicID(), nil)
		m.setStatus("New topic " + m.topicID)
	default:
		return fmt.Errorf("unknown command %s (try /attach, /detach, /new)", name)
	}
	return nil
}

// =============================================================================
// FOCUS AND MODES
// =============================================================================

func (m *Model) enterNavigate() {
	m.mode = ModeNavigate
	m.input.Blur()
	if m.indexOf(m.focusID) < 0 && len(m.ids) > 0 {
		m.focusID = m.ids[len(m.ids)-1]
	}
}

func (m *Model) enterCompose() {
	m.mode = ModeCompose
	m.input.Focus()
	m.viewport.GotoBottom()
}

func (m *Model) moveFocus(delta int) {
	if len(m.ids) == 0 {
		return
	}
	i := m.indexOf(m.focusID)
	if i < 0 {
		i = len(m.ids) - 1
	} else {
		i = min(max(i+delta, 0), len(m.ids)-1)
	}
	m.focusID = m.ids[i]
}

func (m *Model) indexOf(id string) int {
	for i, v := range m.ids {
		if v == id {
			return i
		}
	}
	return -1
}

// syncMode follows the view into and out of edit mode.
func (m *Model) syncMode() {
	editing := m.view.EditingID()
	switch {
	case editing != "" && editing != m.editingID:
		if m.mode != ModeEdit {
			m.prevMode = m.mode
		}
		m.mode = ModeEdit
		m.editingID = editing
		m.focusID = editing
		m.input.Blur()
		m.editor.Focus()
		m.loadEditBuffer()
	case editing == "" && m.editingID != "":
		m.editingID = ""
		m.editor.Blur()
		m.editor.Reset()
		m.mode = m.prevMode
		if m.mode == ModeCompose {
			m.input.Focus()
		}
	}
}

// =============================================================================
// EDIT BUFFER
// =============================================================================

// syncEditBuffer copies the editor text and cursor into the view.
func (m *Model) syncEditBuffer() {
	if m.view.EditingID() == "" {
		return
	}
	m.view.SetEditBuffer(m.editor.Value(), editorCursor(m.editor))
}

// loadEditBuffer copies the view's edit buffer into the editor.
func (m *Model) loadEditBuffer() {
	if m.view.EditingID() == "" {
		return
	}
	text, cursor := m.view.EditBuffer()
	setEditorValue(&m.editor, text, cursor)
}

// editorCursor returns the cursor of ta as a rune offset into its value.
func editorCursor(ta textarea.Model) int {
	lines := strings.Split(ta.Value(), "\n")
	row := ta.Line()
	off := 0
	for i := 0; i < row && i < len(lines); i++ {
		off += utf8.RuneCountInString(lines[i]) + 1
	}
	li := ta.LineInfo()
	return off + li.StartColumn + li.ColumnOffset
}

// setEditorValue replaces the text of ta and puts the cursor at a rune
// offset.
func setEditorValue(ta *textarea.Model, text string, cursor int) {
	ta.SetValue(text)
	runes := []rune(text)
	cursor = min(max(cursor, 0), len(runes))
	before := string(runes[:cursor])
	row := strings.Count(before, "\n")
	col := utf8.RuneCountInString(before[strings.LastIndex(before, "\n")+1:])

	for i := 0; ta.Line() > row && i <= len(runes); i++ {
		ta.CursorUp()
	}
	ta.SetCursor(col)
}

// =============================================================================
// STATUS
// =============================================================================

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(err error) {
	m.logger.Debug("action failed", zap.Error(err))
	m.status, m.statusErr = err.Error(), true
}

// altDigit returns the value of an alt+digit key, or -1.
func altDigit(msg tea.KeyMsg) int {
	if !msg.Alt {
		return -1
	}
	plain := msg
	plain.Alt = false
	return digit(plain)
}

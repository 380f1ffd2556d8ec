// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// Edit mode classes.
const (
	ClassEditing      = "message-item-editing"
	ClassEditTextarea = "message-edit-textarea"
	ClassEditControls = "message-edit-controls"
)

// editState is the inline editor of one message.
type editState struct {
	id       string
	buffer   []rune
	cursor   int // rune offset into buffer
	textarea *html.Node
	controls *html.Node
}

// EditKey is a key press delivered to the inline editor.
type EditKey struct {
	// Name is "enter", "escape" or any other key name.
	Name  string
	Shift bool
}

// =============================================================================
// TOGGLE
// =============================================================================

// ToggleEdit switches a message between its rendered bubble and a raw text
// editor. It reports whether the message is now being edited.
func (v *View) ToggleEdit(id string) bool {
	if v.edit != nil && v.edit.id == id {
		v.leaveEdit()
		return false
	}
	if v.edit != nil {
		v.leaveEdit()
	}

	item := v.nodes[id]
	m, ok := v.store.Get(id)
	if item == nil || !ok || render.HasClass(item, ClassThinking) || render.HasClass(item, ClassStreaming) {
		return false
	}
	content := contentOf(item)
	if content == nil {
		return false
	}

	render.SetHidden(content, true)
	for _, n := range editHidden(item) {
		render.SetHidden(n, true)
	}
	render.AddClass(item, ClassEditing)

	textarea := render.NewElement("textarea", render.Class(ClassEditTextarea))
	render.SetText(textarea, m.Content)
	controls := render.NewElement("div", render.Class(ClassEditControls))
	for _, label := range []string{"Save", "Cancel"} {
		btn := render.NewElement("button", render.Attr("data-action", label))
		render.SetText(btn, label)
		controls.AppendChild(btn)
	}
	content.Parent.AppendChild(textarea)
	content.Parent.AppendChild(controls)

	buf := []rune(m.Content)
	v.edit = &editState{
		id:       id,
		buffer:   buf,
		cursor:   len(buf),
		textarea: textarea,
		controls: controls,
	}
	return true
}

// leaveEdit restores the bubble from the current history text.
func (v *View) leaveEdit() {
	e := v.edit
	v.edit = nil
	if e == nil {
		return
	}
	render.Detach(e.textarea)
	render.Detach(e.controls)

	item := v.nodes[e.id]
	if item == nil {
		return
	}
	render.RemoveClass(item, ClassEditing)
	for _, n := range editHidden(item) {
		render.SetHidden(n, false)
	}
	content := contentOf(item)
	if content == nil {
		return
	}
	render.SetHidden(content, false)
	if m, ok := v.store.Get(e.id); ok {
		render.ClearMarks(content)
		v.paint(content, m)
	}
}

// editHidden returns the avatar and name block hidden while editing.
func editHidden(item *html.Node) []*html.Node {
	var out []*html.Node
	if n := render.FindFirst(item, render.ByClass(ClassAvatar)); n != nil {
		out = append(out, n)
	}
	if n := render.FindFirst(item, render.ByClass(ClassNameTime)); n != nil {
		out = append(out, n)
	}
	return out
}

// =============================================================================
// BUFFER
// =============================================================================

// EditingID returns the id of the message being edited, if any.
func (v *View) EditingID() string {
	if v.edit == nil {
		return ""
	}
	return v.edit.id
}

// EditBuffer returns the editor text and cursor.
func (v *View) EditBuffer() (string, int) {
	if v.edit == nil {
		return "", 0
	}
	return string(v.edit.buffer), v.edit.cursor
}

// SetEditBuffer replaces the editor text. The cursor is clamped.
func (v *View) SetEditBuffer(text string, cursor int) {
	if v.edit == nil {
		return
	}
	v.edit.buffer = []rune(text)
	v.edit.setCursor(cursor)
	render.SetText(v.edit.textarea, text)
}

func (e *editState) setCursor(c int) {
	if c < 0 {
		c = 0
	}
	if c > len(e.buffer) {
		c = len(e.buffer)
	}
	e.cursor = c
}

func (e *editState) insert(s string) {
	ins := []rune(s)
	buf := make([]rune, 0, len(e.buffer)+len(ins))
	buf = append(buf, e.buffer[:e.cursor]...)
	buf = append(buf, ins...)
	buf = append(buf, e.buffer[e.cursor:]...)
	e.buffer = buf
	e.cursor += len(ins)
	render.SetText(e.textarea, string(buf))
}

// HandleEditKey applies editor keys: Enter saves, Shift+Enter inserts a
// newline, Escape cancels. It reports whether the key was consumed.
func (v *View) HandleEditKey(key EditKey) bool {
	if v.edit == nil {
		return false
	}
	switch key.Name {
	case "enter":
		if key.Shift {
			v.edit.insert("\n")
			return true
		}
		return v.SaveEdit() == nil
	case "escape", "esc":
		v.CancelEdit()
		return true
	}
	return false
}

// SaveEdit stores the editor text, saves and shows the re-rendered bubble.
func (v *View) SaveEdit() error {
	e := v.edit
	if e == nil {
		return ErrNotEditing
	}
	m, ok := v.store.Get(e.id)
	if !ok {
		v.edit = nil
		return ErrNotFound
	}
	m.Content = string(e.buffer)
	v.persist()
	v.leaveEdit()
	v.logger.Debug("message edited", zap.String("message_id", m.ID))
	return nil
}

// CancelEdit leaves the editor without saving.
func (v *View) CancelEdit() {
	v.leaveEdit()
}

// cutEditBuffer moves the editor text to the clipboard.
func (v *View) cutEditBuffer() error {
	if v.edit == nil {
		return ErrNotEditing
	}
	if v.refs.Shell == nil {
		return ErrNoShell
	}
	if err := v.refs.Shell.WriteClipboard(string(v.edit.buffer)); err != nil {
		return err
	}
	v.SetEditBuffer("", 0)
	return nil
}

// pasteIntoEditBuffer inserts clipboard text at the cursor.
func (v *View) pasteIntoEditBuffer() error {
	if v.edit == nil {
		return ErrNotEditing
	}
	if v.refs.Shell == nil {
		return ErrNoShell
	}
	text, err := v.refs.Shell.ReadClipboard()
	if err != nil {
		return err
	}
	v.edit.insert(text)
	return nil
}

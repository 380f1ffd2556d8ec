// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// Action identifies a context menu entry.
type Action string

// Menu actions.
const (
	ActionCancel     Action = "cancel"
	ActionEdit       Action = "edit"
	ActionCopy       Action = "copy"
	ActionCut        Action = "cut"
	ActionPaste      Action = "paste"
	ActionBranch     Action = "branch"
	ActionRead       Action = "read"
	ActionRegenerate Action = "regenerate"
	ActionDelete     Action = "delete"
)

// MenuItem is one entry of a context menu.
type MenuItem struct {
	Action Action
	Label  string
}

// Menu is the open context menu of one message.
type Menu struct {
	MessageID string
	Items     []MenuItem
}

// Has reports whether the menu offers action.
func (m *Menu) Has(action Action) bool {
	if m == nil {
		return false
	}
	for _, it := range m.Items {
		if it.Action == action {
			return true
		}
	}
	return false
}

// deletePreviewLen is how much content the delete prompt quotes.
const deletePreviewLen = 50

var (
	imgTagPattern   = regexp.MustCompile(`(?i)<img[^>]*>`)
	mediaTagPattern = regexp.MustCompile(`(?is)<img[^>]*>|<audio[^>]*>.*?</audio>|<video[^>]*>.*?</video>|</?(audio|video)[^>]*>`)
)

// =============================================================================
// OPEN AND CLOSE
// =============================================================================

// OpenContextMenu opens the menu for a message, closing any other one.
// System messages and unknown ids get no menu and nil is returned.
func (v *View) OpenContextMenu(id string) *Menu {
	v.CloseContextMenu()

	item := v.nodes[id]
	if item == nil {
		return nil
	}
	if render.HasClass(item, string(model.RoleSystem)) {
		return nil
	}

	menu := &Menu{MessageID: id}
	switch {
	case render.HasClass(item, ClassThinking):
		menu.Items = []MenuItem{{ActionCancel, "Force remove"}}
	case render.HasClass(item, ClassStreaming):
		menu.Items = []MenuItem{{ActionCancel, "Cancel reply"}}
	default:
		m, ok := v.store.Get(id)
		if !ok {
			return nil
		}
		editing := v.edit != nil && v.edit.id == id
		if !editing {
			menu.Items = append(menu.Items, MenuItem{ActionEdit, "Edit"})
		}
		menu.Items = append(menu.Items, MenuItem{ActionCopy, "Copy"})
		if editing {
			menu.Items = append(menu.Items,
				MenuItem{ActionCut, "Cut"},
				MenuItem{ActionPaste, "Paste"})
		}
		menu.Items = append(menu.Items,
			MenuItem{ActionBranch, "Create branch"},
			MenuItem{ActionRead, "Reading mode"})
		if m.Role == model.RoleAssistant {
			menu.Items = append(menu.Items, MenuItem{ActionRegenerate, "Regenerate"})
		}
		menu.Items = append(menu.Items, MenuItem{ActionDelete, "Delete"})
	}

	v.menu = menu
	return menu
}

// ContextMenu returns the open menu, if any.
func (v *View) ContextMenu() *Menu {
	return v.menu
}

// CloseContextMenu closes the open menu.
func (v *View) CloseContextMenu() {
	v.menu = nil
}

// ClickOutside closes the menu, as a click anywhere else would.
func (v *View) ClickOutside() {
	v.CloseContextMenu()
}

// SelectMenuItem runs an action of the open menu and closes it.
func (v *View) SelectMenuItem(ctx context.Context, action Action) error {
	menu := v.menu
	if menu == nil {
		return ErrNoMenu
	}
	if !menu.Has(action) {
		return fmt.Errorf("%w: %s", ErrUnavailable, action)
	}
	v.menu = nil
	id := menu.MessageID

	switch action {
	case ActionCancel:
		v.cancelReply(id)
		return nil
	case ActionEdit:
		v.ToggleEdit(id)
		return nil
	case ActionCopy:
		return v.copyMessage(id)
	case ActionCut:
		return v.cutEditBuffer()
	case ActionPaste:
		return v.pasteIntoEditBuffer()
	case ActionBranch:
		return v.createBranch(id)
	case ActionRead:
		return v.readingMode(id)
	case ActionRegenerate:
		return v.Regenerate(ctx, id)
	case ActionDelete:
		return v.confirmDelete(id)
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, action)
}

// =============================================================================
// ACTIONS
// =============================================================================

// cancelReply stops a streaming reply or removes a thinking placeholder.
func (v *View) cancelReply(id string) {
	item := v.nodes[id]
	if item == nil {
		return
	}
	if v.refs.OnCancelStream != nil {
		v.refs.OnCancelStream(id)
	}

	if render.HasClass(item, ClassStreaming) && v.activeID == id {
		v.FinalizeStreamedMessage(id, FinishCancelled)
		return
	}

	v.removeItem(id)
	if v.activeID == id {
		v.activeID = ""
	}
	if v.store.Remove(id) {
		v.persist()
	}
	v.logger.Info("thinking placeholder removed", zap.String("message_id", id))
}

func (v *View) copyMessage(id string) error {
	m, ok := v.store.Get(id)
	if !ok {
		return ErrNotFound
	}
	if v.refs.Shell == nil {
		return ErrNoShell
	}
	text := strings.TrimSpace(imgTagPattern.ReplaceAllString(m.Content, ""))
	return v.refs.Shell.WriteClipboard(text)
}

func (v *View) createBranch(id string) error {
	idx := v.store.Index(id)
	if idx < 0 {
		return ErrNotFound
	}
	if v.agentID == "" || v.topicID == "" {
		return ErrNoTopic
	}
	if v.refs.OnCreateBranch == nil {
		return fmt.Errorf("%w: branch", ErrUnavailable)
	}
	v.refs.OnCreateBranch(v.agentID, v.topicID, id, v.store.Prefix(idx+1))
	return nil
}

// readingMode opens the message text without media in a reader window.
func (v *View) readingMode(id string) error {
	m, ok := v.store.Get(id)
	if !ok {
		return ErrNotFound
	}
	if v.refs.Shell == nil {
		return ErrNoShell
	}
	text := mediaTagPattern.ReplaceAllString(m.Content, "")
	short := id
	if len(short) > 12 {
		short = short[:12]
	}
	v.refs.Shell.OpenTextInNewWindow(text, "Read mode: "+short+"...", v.opts.Theme)
	return nil
}

// DeletePrompt returns the confirmation text for deleting m: the role and a
// one-line preview of the content.
func DeletePrompt(m model.Message) string {
	return fmt.Sprintf("Delete this %s message?\n\"%s\"", m.Role, m.Preview(deletePreviewLen))
}

func (v *View) confirmDelete(id string) error {
	m, ok := v.store.Get(id)
	if !ok {
		return ErrNotFound
	}
	if v.refs.Shell == nil {
		return ErrNoShell
	}
	v.refs.Shell.Confirm(DeletePrompt(*m), func(ok bool) {
		if ok {
			v.DeleteMessage(id)
		}
	})
	return nil
}

// DeleteMessage removes a message from the history and the view and saves.
func (v *View) DeleteMessage(id string) bool {
	if !v.store.Remove(id) {
		return false
	}
	v.removeItem(id)
	if v.activeID == id {
		v.activeID = ""
	}
	v.persist()
	return true
}

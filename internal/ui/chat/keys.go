// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat screen. Some keys mean
// different things in compose and navigation mode; the handlers only consult
// the bindings of their own mode.
type KeyMap struct {
	// Global
	Quit   key.Binding
	Cancel key.Binding
	Mode   key.Binding
	Help   key.Binding

	// Compose mode
	Send     key.Binding
	Newline  key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Navigation mode
	Up         key.Binding
	Down       key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Menu       key.Binding
	Edit       key.Binding
	Copy       key.Binding
	Branch     key.Binding
	Read       key.Binding
	Regenerate key.Binding
	Delete     key.Binding
	ImageMenu  key.Binding
	Back       key.Binding

	// Editor
	Save      key.Binding
	EditBreak key.Binding
	Discard   key.Binding
	Cut       key.Binding
	Paste     key.Binding
	EditMenu  key.Binding

	// Overlays
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("C-q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "cancel reply"),
		),
		Mode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "messages/compose"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),

		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("M-Enter", "newline"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "first"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "last"),
		),
		Menu: key.NewBinding(
			key.WithKeys("enter", "m"),
			key.WithHelp("Enter/m", "menu"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c", "y"),
			key.WithHelp("c", "copy"),
		),
		Branch: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "branch"),
		),
		Read: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "read"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "regenerate"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		ImageMenu: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i N", "image menu"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "compose"),
		),

		Save: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "save"),
		),
		EditBreak: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("M-Enter", "newline"),
		),
		Discard: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel"),
		),
		Cut: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "cut all"),
		),
		Paste: key.NewBinding(
			key.WithKeys("ctrl+v"),
			key.WithHelp("C-v", "paste"),
		),
		EditMenu: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "menu"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("y", "yes"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "no"),
		),
	}
}

// =============================================================================
// HELP
// =============================================================================

// Mode is the focus of the chat screen.
type Mode int

const (
	// ModeCompose sends keys to the message input.
	ModeCompose Mode = iota
	// ModeNavigate moves a focus marker over messages.
	ModeNavigate
	// ModeEdit sends keys to the inline message editor.
	ModeEdit
)

// String returns the mode label shown in the status bar.
func (m Mode) String() string {
	switch m {
	case ModeNavigate:
		return "MESSAGES"
	case ModeEdit:
		return "EDIT"
	default:
		return "COMPOSE"
	}
}

// helpKeyMap adapts KeyMap to help.KeyMap for one mode.
type helpKeyMap struct {
	keys KeyMap
	mode Mode
}

// ShortHelp returns the bindings shown in the status bar.
func (h helpKeyMap) ShortHelp() []key.Binding {
	k := h.keys
	switch h.mode {
	case ModeNavigate:
		return []key.Binding{k.Menu, k.Edit, k.Regenerate, k.Delete, k.Mode, k.Help}
	case ModeEdit:
		return []key.Binding{k.Save, k.EditBreak, k.Discard, k.EditMenu}
	default:
		return []key.Binding{k.Send, k.Newline, k.Mode, k.Cancel, k.Quit}
	}
}

// FullHelp returns every binding of the mode, grouped.
func (h helpKeyMap) FullHelp() [][]key.Binding {
	k := h.keys
	switch h.mode {
	case ModeNavigate:
		return [][]key.Binding{
			{k.Up, k.Down, k.Top, k.Bottom},
			{k.Menu, k.Edit, k.Copy, k.Branch},
			{k.Read, k.Regenerate, k.Delete, k.ImageMenu},
			{k.Back, k.Cancel, k.Help, k.Quit},
		}
	case ModeEdit:
		return [][]key.Binding{
			{k.Save, k.EditBreak, k.Discard},
			{k.Cut, k.Paste, k.EditMenu},
		}
	default:
		return [][]key.Binding{
			{k.Send, k.Newline, k.PageUp, k.PageDown},
			{k.Mode, k.Cancel, k.Help, k.Quit},
		}
	}
}

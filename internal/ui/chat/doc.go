// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the terminal chat screen of vcpchat.

The screen hosts a chatview.View and acts as its event thread. Stream
callbacks, debounce timers, agent reloads and background completion work
post functions to a chatview.EventLoop; a Bubble Tea command waits on the
loop and Update runs each function before repainting.

# Key Components

## Model (model.go)

Wires the view to the history store, the agent registry and the VCP client,
and routes StreamHandler events to AppendStreamChunk and
FinalizeStreamedMessage.

## Update Loop (update.go)

Three modes share the keyboard:
  - Compose: the message input, with /attach, /detach and /new commands
  - Messages: a focus marker over the transcript and per-message actions
  - Edit: the inline editor, kept in step with the view's edit buffer

## Overlays (overlay.go)

The message context menu, delete confirmation, the reading-mode box
rendered with glamour and the image menu.

## Shell (shell.go)

Implements chatview.Shell on top of System: the platform opener and the
system clipboard.

# Usage

	m, err := chat.New(chat.Deps{
		Config: cfg,
		Store:  store,
		Agents: registry,
		Client: client,
		AgentID: "nova",
	})
	if err != nil {
		return err
	}
	defer m.Close()
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
*/
package chat

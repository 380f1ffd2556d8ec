// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatview owns a chat's message history and renders it to an HTML
// node tree.
//
// A View is single-threaded: every method runs on one event thread. Stream
// chunks, timers and completion results produced elsewhere are posted back
// through a Dispatcher, normally an EventLoop drained by the terminal UI.
//
// # Key Types
//
//   - View: message rendering, the stream controller, context menu, inline
//     editor, regenerate and send
//   - Refs: injected collaborators (parser, completer, agents, storage, shell)
//   - EventLoop, Scheduler, Runner: event thread plumbing
//   - ManualScheduler: a clock driven by hand, for headless views and tests
//
// # Streaming
//
// StartStreamingMessage installs the history entry, AppendStreamChunk adds
// text and re-renders quickly, and a debounced heavy pass adds math and tool
// and diary decoration. FinalizeStreamedMessage cancels the pending pass,
// renders once more and saves.
//
// # Usage
//
//	loop := chatview.NewEventLoop(0)
//	view, err := chatview.New(chatview.Refs{
//		Parser:     render.NewMarkdown(),
//		Typesetter: render.MathMarker{},
//		Completer:  client,
//		Persister:  store,
//		Logger:     logger,
//	}, chatview.Options{Dispatcher: loop})
//	if err != nil {
//		return err
//	}
//	view.LoadTopic(agentID, topicID, history)
package chatview

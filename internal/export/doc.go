// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes stored chat topics to standalone files.
//
// HTML export runs the history through a headless chatview.View, so the page
// carries exactly the markup the chat screen is built from, styled with the
// embedded stylesheet.
//
// # Key Types
//
//   - Conversation: one agent topic with display metadata
//   - Exporter: HTMLExporter, MarkdownExporter, JSONExporter
//   - Options: output location, metadata and theme
//
// # Usage
//
//	conv, err := export.Load(ctx, store, registry, "nova", "topic_1")
//	if err != nil {
//		return err
//	}
//	exporter, _ := export.ForFormat("html", opts)
//	path, err := export.ExportToFile(conv, exporter, opts)
package export

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package paint draws chat view message trees as terminal text.
//
// The chat view keeps an HTML node tree per message. Painter walks that tree
// and lays it out with lipgloss styles: paragraphs are word-wrapped with
// reflow, fenced code is highlighted with chroma, tables are aligned with
// go-runewidth, and tool and diary blocks get their own bubbles. Images are
// numbered in document order so keyboard commands can address them.
package paint

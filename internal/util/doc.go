// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across vcpchat.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe writes through a synced temp file
//   - WriteJSONFile: indented JSON written atomically
//   - OpenPath: hand a file to the desktop opener
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadRight: terminal column aware helpers
//   - SingleLine: collapse line breaks for one-line previews
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0644)
//	cell := util.PadRight(util.TruncateWidth(title, 30), 30)
package util

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger shared by every vcpchat package.
//
// The terminal UI owns the screen, so logs go to a file unless the
// configured file is "-".
package logging

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the vcpchat terminal UI.

All colors use Lip Gloss AdaptiveColor. NewTheme resolves the configured mode
("dark", "light" or "auto") once and tells lipgloss which side to use, so the
palette follows the user's setting rather than the terminal's guess.

# Color System (colors.go)

  - Purple, Cyan: agent and user accents
  - Emerald, Amber: tool request and diary bubbles
  - Rose: errors and destructive menu entries
  - Surface, Overlay and Text tiers for depth and hierarchy

# Theme System (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	header := theme.HeaderTitle.Render("Nova")

Theme.CodeStyle names the chroma style matching the mode; Theme.Name is the
resolved mode passed to the reading-mode renderer.
*/
package styles

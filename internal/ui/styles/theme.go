// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeDark  = "dark"
	ModeLight = "light"
	ModeAuto  = "auto"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Name is "dark" or "light", after resolving auto.
	Name string
	// CodeStyle is the chroma style used for fenced code.
	CodeStyle string

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// FRAME
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	StatusBar      lipgloss.Style
	StatusError    lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserName      lipgloss.Style
	AgentName     lipgloss.Style
	SystemName    lipgloss.Style
	Timestamp     lipgloss.Style
	FocusMarker   lipgloss.Style
	StreamBadge   lipgloss.Style
	UserBubble    lipgloss.Style
	AgentBubble   lipgloss.Style
	SystemBubble  lipgloss.Style
	NoticeBubble  lipgloss.Style
	ThinkingText  lipgloss.Style
	EditorBox     lipgloss.Style
	EditorHint    lipgloss.Style
	Attachment    lipgloss.Style
	ImageRef      lipgloss.Style

	// ==========================================================================
	// CONTENT
	// ==========================================================================

	Heading     lipgloss.Style
	Bold        lipgloss.Style
	Italic      lipgloss.Style
	Strike      lipgloss.Style
	InlineCode  lipgloss.Style
	Link        lipgloss.Style
	Quote       lipgloss.Style
	Rule        lipgloss.Style
	CodeBlock   lipgloss.Style
	CodeLang    lipgloss.Style
	ToolBubble  lipgloss.Style
	ToolLabel   lipgloss.Style
	ToolName    lipgloss.Style
	DiaryBubble lipgloss.Style
	DiaryLabel  lipgloss.Style
	Math        lipgloss.Style
	TableHeader lipgloss.Style

	// ==========================================================================
	// OVERLAYS
	// ==========================================================================

	MenuBox          lipgloss.Style
	MenuTitle        lipgloss.Style
	MenuItem         lipgloss.Style
	MenuItemSelected lipgloss.Style
	MenuItemDanger   lipgloss.Style
	ConfirmBox       lipgloss.Style
	ReaderBox        lipgloss.Style
	ReaderTitle      lipgloss.Style
}

// NewTheme creates a theme. mode is "dark", "light" or "auto"; auto asks the
// terminal for its background.
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()

	isDark := true
	switch mode {
	case ModeLight:
		isDark = false
	case ModeDark:
	default:
		isDark = termenv.HasDarkBackground()
	}
	// Adaptive colors follow the resolved mode, not the terminal guess.
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
		Name:         ModeDark,
		CodeStyle:    "monokai",
	}
	if !isDark {
		t.Name = ModeLight
		t.CodeStyle = "github"
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Frame
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	// Messages
	t.UserName = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.AgentName = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.SystemName = lipgloss.NewStyle().
		Foreground(Amber)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.FocusMarker = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StreamBadge = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)

	t.AgentBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)

	t.SystemBubble = lipgloss.NewStyle().
		Foreground(SystemBubbleFg).
		Italic(true).
		PaddingLeft(2)

	t.NoticeBubble = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		PaddingLeft(2)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.EditorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan)

	t.EditorHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Attachment = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.ImageRef = lipgloss.NewStyle().
		Foreground(LinkColor)

	// Content
	t.Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Bold = lipgloss.NewStyle().Bold(true)
	t.Italic = lipgloss.NewStyle().Italic(true)
	t.Strike = lipgloss.NewStyle().Strikethrough(true)

	t.InlineCode = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(Cyan)

	// Underline provides a non-color cue for links.
	t.Link = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)

	t.Quote = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(OverlayDim).
		PaddingLeft(1)

	t.Rule = lipgloss.NewStyle().
		Foreground(OverlayDim)

	t.CodeBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.CodeLang = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(OverlayDim).
		Padding(0, 1).
		Bold(true)

	t.ToolBubble = lipgloss.NewStyle().
		Foreground(ToolBubbleFg).
		Background(ToolBubbleBg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Emerald).
		Padding(0, 1)

	t.ToolLabel = lipgloss.NewStyle().
		Foreground(ToolBubbleFg).
		Background(ToolBubbleBg)

	t.ToolName = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald).
		Background(ToolBubbleBg)

	t.DiaryBubble = lipgloss.NewStyle().
		Foreground(DiaryBubbleFg).
		Background(DiaryBubbleBg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Amber).
		Padding(0, 1)

	t.DiaryLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)

	t.Math = lipgloss.NewStyle().
		Foreground(MathFg)

	t.TableHeader = lipgloss.NewStyle().
		Bold(true).
		Underline(true)

	// Overlays
	t.MenuBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.MenuTitle = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.MenuItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.MenuItemSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true).
		PaddingLeft(2)

	t.MenuItemDanger = lipgloss.NewStyle().
		Foreground(Rose).
		PaddingLeft(2)

	t.ConfirmBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Rose).
		Padding(1, 2)

	t.ReaderBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan)

	t.ReaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Padding(0, 1)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

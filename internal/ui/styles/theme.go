// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	ErrorBubble     lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style
	AttachmentChip  lipgloss.Style

	// ==========================================================================
	// THINKING TRACE STYLES
	// ==========================================================================

	TraceBlock     lipgloss.Style
	TraceHeader    lipgloss.Style
	TraceEntry     lipgloss.Style
	TraceSearch    lipgloss.Style
	TraceURL       lipgloss.Style
	TraceCollapsed lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusState  lipgloss.Style
	StatusError  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// SPINNER AND LOADING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
	ThinkingTime lipgloss.Style

	// ==========================================================================
	// SESSION LIST STYLES
	// ==========================================================================

	SessionID    lipgloss.Style
	SessionTitle lipgloss.Style
	SessionMeta  lipgloss.Style

	// ==========================================================================
	// WELCOME SCREEN STYLES
	// ==========================================================================

	WelcomeBox     lipgloss.Style
	WelcomeLogo    lipgloss.Style
	WelcomeVersion lipgloss.Style
	WelcomeInfo    lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)
	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(ErrorBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(ErrorBubbleBorder).
		PaddingLeft(1)
	t.RoleLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.AttachmentChip = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	// Thinking trace
	t.TraceBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(TraceBorder).
		PaddingLeft(1)
	t.TraceHeader = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)
	t.TraceEntry = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.TraceSearch = lipgloss.NewStyle().
		Foreground(TraceSearch)
	t.TraceURL = lipgloss.NewStyle().
		Foreground(TraceURL).
		Underline(true)
	t.TraceCollapsed = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusState = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Spinner
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.ThinkingTime = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Session list
	t.SessionID = lipgloss.NewStyle().
		Foreground(Cyan)
	t.SessionTitle = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.SessionMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Welcome
	t.WelcomeBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3)
	t.WelcomeLogo = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.WelcomeVersion = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.WelcomeInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	return t
}

// Resize updates the theme's layout dimensions.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - lipgloss styles for plain-terminal CLI output.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

var (
	// ErrorLabelStyle renders the [error] prefix on stderr messages.
	ErrorLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	// PromptStyle renders the interactive chat prompt.
	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// HeadingStyle renders section headings in command output.
	HeadingStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	// InfoStyle renders secondary explanatory text.
	InfoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	// MutedStyle renders de-emphasized detail lines.
	MutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// TraceStyle renders streamed thinking-trace lines.
	TraceStyle = lipgloss.NewStyle().
			Foreground(styles.TraceSearch)

	// SeverityStyles maps violation severities to their display style.
	SeverityStyles = map[string]lipgloss.Style{
		"critical": lipgloss.NewStyle().Foreground(styles.Rose).Bold(true),
		"high":     lipgloss.NewStyle().Foreground(styles.Rose),
		"medium":   lipgloss.NewStyle().Foreground(styles.Amber),
		"low":      lipgloss.NewStyle().Foreground(styles.Cyan),
	}
)

// severityStyle returns the style for a severity label, defaulting to
// the muted style for unknown values.
func severityStyle(severity string) lipgloss.Style {
	if s, ok := SeverityStyles[severity]; ok {
		return s
	}
	return MutedStyle
}

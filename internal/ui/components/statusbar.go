// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/comply-tui/internal/ui/styles"
	"github.com/jeranaias/comply-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar renders the single-line footer with turn state, session id,
// and key hints.
type StatusBar struct {
	theme *styles.Theme
}

// NewStatusBar creates a status bar using the given theme.
func NewStatusBar(theme *styles.Theme) StatusBar {
	return StatusBar{theme: theme}
}

// shortcuts shown on the right edge.
var shortcuts = []struct{ key, desc string }{
	{"enter", "send"},
	{"ctrl+t", "trace"},
	{"esc", "cancel"},
	{"ctrl+c", "quit"},
}

// Render renders the bar at the given width.
func (b StatusBar) Render(state, sessionID string, isError bool, width int) string {
	stateStyle := b.theme.StatusState
	if isError {
		stateStyle = b.theme.StatusError
	}

	left := stateStyle.Render(state)
	if sessionID != "" {
		left += " " + b.theme.SessionMeta.Render("session "+util.TruncateRunes(sessionID, 12))
	}

	var hints []string
	for _, s := range shortcuts {
		hints = append(hints, b.theme.ShortcutKey.Render(s.key)+" "+b.theme.ShortcutDesc.Render(s.desc))
	}
	right := strings.Join(hints, "  ")

	gap := width - util.StringWidth(left) - util.StringWidth(right) - 2
	if gap < 1 {
		return b.theme.StatusBar.Render(left)
	}
	return b.theme.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN
// =============================================================================

const logo = `
 _____ _____ _____ _____ __    __ __
|     |     |     |  _  |  |  |  |  |
|   --|  |  | | | |   __|  |__|_   _|
|_____|_____|_|_|_|__|  |_____| |_|
`

// Welcome renders the empty-transcript welcome box.
type Welcome struct {
	theme   *styles.Theme
	version string
}

// NewWelcome creates a welcome view.
func NewWelcome(theme *styles.Theme, version string) Welcome {
	return Welcome{theme: theme, version: version}
}

// Render renders the welcome box.
func (w Welcome) Render() string {
	var sb strings.Builder
	sb.WriteString(w.theme.WelcomeLogo.Render(strings.TrimLeft(logo, "\n")))
	sb.WriteString("\n")
	sb.WriteString(w.theme.WelcomeVersion.Render("policy compliance assistant " + w.version))
	sb.WriteString("\n\n")
	sb.WriteString(w.theme.WelcomeInfo.Render("Ask about policy requirements, or attach a document with /attach."))
	sb.WriteString("\n")
	sb.WriteString(w.theme.WelcomeInfo.Render("Type /help for commands."))
	return w.theme.WelcomeBox.Render(sb.String())
}

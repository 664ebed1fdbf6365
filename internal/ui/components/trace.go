// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the comply TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/jeranaias/comply-tui/internal/chat"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
	"github.com/jeranaias/comply-tui/internal/util"
)

// =============================================================================
// THINKING TRACE VIEW
// =============================================================================

// TraceView renders the reasoning trace that accumulates under an
// assistant reply. Collapsed traces show a one-line summary that can be
// toggled back open.
type TraceView struct {
	theme *styles.Theme
}

// NewTraceView creates a trace view using the given theme.
func NewTraceView(theme *styles.Theme) TraceView {
	return TraceView{theme: theme}
}

// Render renders the trace entries for one turn. Returns "" when there is
// nothing to show.
func (v TraceView) Render(entries []chat.TraceEntry, collapsed bool, width int) string {
	if len(entries) == 0 {
		return ""
	}

	if collapsed {
		return v.theme.TraceCollapsed.Render(collapsedLabel(len(entries)))
	}

	var lines []string
	for _, entry := range entries {
		lines = append(lines, v.renderEntry(entry, width))
	}
	header := v.theme.TraceHeader.Render("Thinking")
	body := strings.Join(lines, "\n")
	return v.theme.TraceBlock.Render(header + "\n" + body)
}

// renderEntry renders a single trace step according to its kind.
func (v TraceView) renderEntry(entry chat.TraceEntry, width int) string {
	maxWidth := width - 4
	if maxWidth < 10 {
		maxWidth = 10
	}

	switch entry.Kind {
	case chat.EntrySearchStart:
		return v.theme.TraceSearch.Render(util.TruncateWidth("> "+entry.Text, maxWidth))

	case chat.EntrySearchResults:
		var sb strings.Builder
		if entry.Text != "" {
			sb.WriteString(v.theme.TraceSearch.Render(util.TruncateWidth("* "+entry.Text, maxWidth)))
		}
		for _, u := range entry.URLs {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("  " + v.theme.TraceURL.Render(util.TruncateWidth(u, maxWidth-2)))
		}
		return sb.String()

	default:
		return v.theme.TraceEntry.Render(wrapText(entry.Text, maxWidth))
	}
}

// collapsedLabel builds the one-line summary for a folded trace.
func collapsedLabel(n int) string {
	step := "steps"
	if n == 1 {
		step = "step"
	}
	return "Thinking (" + strconv.Itoa(n) + " " + step + ", press ctrl+t to expand)"
}

// wrapText wraps text at word boundaries to fit the given display width.
// Words longer than the width are hard-truncated rather than overflowing.
func wrapText(text string, width int) string {
	if width <= 0 || util.StringWidth(text) <= width {
		return text
	}

	var sb strings.Builder
	lineWidth := 0
	for _, word := range strings.Fields(text) {
		w := util.StringWidth(word)
		if w > width {
			word = util.TruncateWidth(word, width)
			w = util.StringWidth(word)
		}
		if lineWidth > 0 && lineWidth+1+w > width {
			sb.WriteString("\n")
			lineWidth = 0
		} else if lineWidth > 0 {
			sb.WriteString(" ")
			lineWidth++
		}
		sb.WriteString(word)
		lineWidth += w
	}
	return sb.String()
}

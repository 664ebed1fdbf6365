// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// =============================================================================
// THINKING SPINNER
// =============================================================================

// ThinkingSpinner shows an animated indicator with elapsed time while a
// reply streams.
type ThinkingSpinner struct {
	theme     *styles.Theme
	spinner   spinner.Model
	startTime time.Time
	active    bool
}

// NewThinkingSpinner creates a spinner with ASCII-compatible frames.
func NewThinkingSpinner(theme *styles.Theme) ThinkingSpinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	return ThinkingSpinner{theme: theme, spinner: s}
}

// Start activates the spinner and records the start time.
func (s *ThinkingSpinner) Start() tea.Cmd {
	s.active = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *ThinkingSpinner) Stop() {
	s.active = false
}

// IsActive returns whether the spinner is running.
func (s ThinkingSpinner) IsActive() bool {
	return s.active
}

// Update handles spinner tick messages.
func (s ThinkingSpinner) Update(msg tea.Msg) (ThinkingSpinner, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner line.
func (s ThinkingSpinner) View() string {
	if !s.active {
		return ""
	}
	out := s.theme.Spinner.Render(s.spinner.View()) + " " +
		s.theme.ThinkingText.Render("Thinking...")
	if !s.startTime.IsZero() {
		out += " " + s.theme.ThinkingTime.Render("("+formatElapsed(time.Since(s.startTime))+")")
	}
	return out
}

// formatElapsed formats a duration for display.
func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return strconv.Itoa(seconds) + "s"
	}
	return strconv.Itoa(seconds/60) + "m " + strconv.Itoa(seconds%60) + "s"
}

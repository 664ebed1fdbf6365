// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/comply-tui/internal/chat"
	"github.com/jeranaias/comply-tui/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the complete chat screen.
// Layout: header (1 line) + transcript viewport + [notice] + input + status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	sections := []string{m.renderHeader(), m.viewport.View()}
	if m.notice != "" {
		sections = append(sections, m.renderNotice())
	}
	sections = append(sections, m.renderInput(), m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("comply")
	subtitle := m.theme.HeaderSubtitle.Render(" policy compliance assistant")
	return m.theme.Header.Width(m.width).Render(title + subtitle)
}

func (m Model) renderNotice() string {
	if m.noticeErr {
		return m.theme.StatusError.Render(m.notice)
	}
	return m.theme.SessionMeta.Render(m.notice)
}

func (m Model) renderInput() string {
	line := m.input.View()
	if m.controller.Attachment() != nil {
		chip := m.theme.AttachmentChip.Render("@ " + m.controller.Attachment().Name)
		line = chip + " " + line
	}
	return m.theme.InputContainer.Width(m.width).Render(line)
}

func (m Model) renderStatusBar() string {
	state := m.controller.State()
	return m.statusBar.Render(state.String(), m.controller.SessionID(), state == chat.StateError, m.width)
}

// refreshViewport rebuilds the transcript content and pins the view to
// the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// renderTranscript renders messages interleaved with their thinking
// traces. A trace belongs to the user turn that started it and renders
// under the assistant reply for that turn.
func (m Model) renderTranscript() string {
	conv := m.controller.Conversation()
	if conv.IsEmpty() {
		return m.welcome.Render()
	}

	traces := m.controller.Traces()
	var blocks []string
	lastUserTurn := -1

	for i, msg := range conv.Messages {
		if msg.Role == model.RoleUser {
			lastUserTurn = i
		}
		blocks = append(blocks, m.messageView.Render(msg, m.width))

		if msg.Role == model.RoleAssistant && lastUserTurn >= 0 {
			if trace := m.traceView.Render(traces.Entries(lastUserTurn), traces.Collapsed(lastUserTurn), m.width); trace != "" {
				blocks = append(blocks, trace)
			}
		}
	}

	// While streaming, the trace for the active turn renders below the
	// transcript with the spinner.
	if m.controller.Busy() {
		turn := m.controller.ActiveTurn()
		if trace := m.traceView.Render(traces.Entries(turn), traces.Collapsed(turn), m.width); trace != "" {
			blocks = append(blocks, trace)
		}
		if sp := m.spinner.View(); sp != "" {
			blocks = append(blocks, sp)
		}
	}

	return strings.Join(blocks, "\n\n")
}

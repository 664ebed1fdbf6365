// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/comply-tui/internal/chat"
	"github.com/jeranaias/comply-tui/internal/storage"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all Bubble Tea messages for the chat view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamEventMsg:
		m = m.handleStreamEvent(msg.Event)
		// Re-arm the event pump.
		return m, m.waitForEvent()

	case streamDoneMsg:
		m.spinner.Stop()
		m.cancelMgr.set(nil)
		if msg.Err != nil {
			switch {
			case errors.Is(msg.Err, context.Canceled):
				m.setNotice("Stream canceled.", false)
			case errors.Is(msg.Err, chat.ErrTurnInFlight):
				m.setNotice("A reply is already streaming.", true)
			default:
				// Transport errors already produced a transcript
				// message through the controller.
			}
		}
		m.refreshViewport()
		return m, m.persistHistoryCmd()

	case sessionsLoadedMsg:
		if msg.Err != nil {
			m.setNotice("Failed to list sessions: "+msg.Err.Error(), true)
		} else {
			m.setNotice(formatSessions(msg.Sessions, m.cfg.Chat.HistoryLimit), false)
		}
		return m, nil

	case transcriptLoadedMsg:
		return m.handleTranscriptLoaded(msg), nil

	case attachmentReadyMsg:
		if msg.Err != nil {
			m.setNotice("Upload failed: "+msg.Err.Error(), true)
		} else {
			m.controller.SetAttachment(msg.Attachment)
			m.setNotice("Attached "+msg.Attachment.Name+" to the next message.", false)
		}
		return m, nil

	case sessionDeletedMsg:
		if msg.Err != nil {
			m.setNotice("Delete failed: "+msg.Err.Error(), true)
		} else {
			m.setNotice("Deleted session "+msg.SessionID+".", false)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleResize recalculates the layout.
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.Resize(msg.Width, msg.Height)

	// header(1) + input(2) + status(1), plus the notice line when shown.
	chrome := 4
	if m.notice != "" {
		chrome++
	}
	vpHeight := msg.Height - chrome
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.Width = msg.Width - 4

	m.refreshViewport()
	return m
}

// handleKey dispatches keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.fire()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.cancelMgr.fire() {
			m.spinner.Stop()
			m.setNotice("Canceling...", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleTrace):
		if m.traceTurn >= 0 {
			m.controller.Traces().ToggleCollapse(m.traceTurn)
			m.refreshViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.submit()

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the typed text as a command or a chat turn.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.handleCommand(text)
	}

	if m.controller.Busy() {
		m.setNotice("A reply is already streaming.", true)
		return m, nil
	}

	m.input.Reset()
	m.clearNotice()
	return m.startTurn(text)
}

// startTurn launches the blocking Send on its own goroutine.
func (m Model) startTurn(text string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	ctrl := m.controller
	sendCmd := func() tea.Msg {
		err := ctrl.Send(ctx, text)
		cancel()
		return streamDoneMsg{Err: err}
	}

	m.refreshViewport()
	return m, tea.Batch(m.spinner.Start(), sendCmd)
}

// handleStreamEvent applies a controller event to the view.
func (m *Model) handleStreamEvent(ev chat.Event) Model {
	switch ev.Kind {
	case chat.EventTrace:
		m.traceTurn = ev.Turn
	case chat.EventMessage:
		m.spinner.Stop()
		m.traceTurn = ev.Turn
	case chat.EventSession:
		// Session id already persisted through the controller hook.
	}
	m.refreshViewport()
	return *m
}

// handleTranscriptLoaded installs a fetched transcript.
func (m Model) handleTranscriptLoaded(msg transcriptLoadedMsg) Model {
	if msg.Err != nil {
		m.setNotice("Failed to load session: "+msg.Err.Error(), true)
		return m
	}
	if err := m.controller.LoadTranscript(msg.SessionID, msg.Messages); err != nil {
		m.setNotice(err.Error(), true)
		return m
	}
	if m.sessions != nil {
		m.sessions.Set(msg.SessionID)
	}
	m.traceTurn = -1
	m.setNotice("Loaded session "+msg.SessionID+".", false)
	m.refreshViewport()
	return m
}

// persistHistoryCmd snapshots the conversation into the local cache.
func (m Model) persistHistoryCmd() tea.Cmd {
	if m.history == nil {
		return nil
	}

	conv := m.controller.Conversation()
	if conv.IsEmpty() {
		return nil
	}
	sess := storage.CachedSession{
		ID:    m.controller.SessionID(),
		Title: conv.Title,
	}
	for _, msg := range conv.Messages {
		sess.Messages = append(sess.Messages, storage.CachedMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	history := m.history
	return func() tea.Msg {
		// Cache writes are best effort; the backend owns the transcript.
		_ = history.SaveSession(sess)
		return nil
	}
}

// setNotice sets the transient line above the input.
func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeErr = false
}

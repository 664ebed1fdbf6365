// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/model"
	"github.com/jeranaias/comply-tui/internal/util"
)

// commandTimeout bounds the REST calls behind slash commands.
const commandTimeout = 30 * time.Second

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand dispatches a typed slash command.
func (m Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		m.setNotice(helpText(), false)
		return m, nil

	case "/new":
		return m.commandNew()

	case "/sessions":
		return m, m.loadSessionsCmd()

	case "/load":
		if len(args) != 1 {
			m.setNotice("Usage: /load <session-id>", true)
			return m, nil
		}
		return m, m.loadTranscriptCmd(args[0])

	case "/delete":
		if len(args) != 1 {
			m.setNotice("Usage: /delete <session-id>", true)
			return m, nil
		}
		return m, m.deleteSessionCmd(args[0])

	case "/attach":
		if len(args) != 1 {
			m.setNotice("Usage: /attach <path>", true)
			return m, nil
		}
		return m.commandAttach(args[0])

	case "/detach":
		m.controller.ClearAttachment()
		m.setNotice("Attachment removed.", false)
		return m, nil

	case "/trace":
		if m.traceTurn >= 0 {
			m.controller.Traces().ToggleCollapse(m.traceTurn)
			m.refreshViewport()
		}
		return m, nil

	case "/quit":
		m.cancelMgr.fire()
		return m, tea.Quit

	default:
		m.setNotice("Unknown command "+cmd+". Type /help.", true)
		return m, nil
	}
}

// commandNew rotates to a fresh session and clears the transcript.
func (m Model) commandNew() (tea.Model, tea.Cmd) {
	if m.controller.Busy() {
		m.setNotice("Cannot start a new chat while a reply is streaming.", true)
		return m, nil
	}

	id := ""
	if m.sessions != nil {
		var err error
		if id, err = m.sessions.Rotate(); err != nil {
			m.setNotice("Failed to rotate session: "+err.Error(), true)
			return m, nil
		}
	}
	if err := m.controller.Reset(id); err != nil {
		m.setNotice(err.Error(), true)
		return m, nil
	}
	m.traceTurn = -1
	m.setNotice("Started a new chat.", false)
	m.refreshViewport()
	return m, nil
}

// commandAttach validates and uploads a local file.
func (m Model) commandAttach(path string) (tea.Model, tea.Cmd) {
	info, err := os.Stat(path)
	if err != nil {
		m.setNotice("Cannot read "+path+": "+err.Error(), true)
		return m, nil
	}
	if maxBytes := m.cfg.Upload.MaxFileSizeMB * 1024 * 1024; info.Size() > maxBytes {
		m.setNotice("File exceeds the upload limit.", true)
		return m, nil
	}

	m.setNotice("Uploading "+filepath.Base(path)+"...", false)
	return m, m.uploadCmd(path, info.Size())
}

// =============================================================================
// COMMAND EXECUTION
// =============================================================================

func (m Model) loadSessionsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		sessions, err := client.ListSessions(ctx)
		return sessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

func (m Model) loadTranscriptCmd(sessionID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		remote, err := client.SessionMessages(ctx, sessionID)
		if err != nil {
			return transcriptLoadedMsg{SessionID: sessionID, Err: err}
		}
		msgs := make([]*model.Message, 0, len(remote))
		for _, rm := range remote {
			msgs = append(msgs, model.NewMessage(model.Role(rm.Role), rm.Content))
		}
		return transcriptLoadedMsg{SessionID: sessionID, Messages: msgs}
	}
}

func (m Model) deleteSessionCmd(sessionID string) tea.Cmd {
	client := m.client
	history := m.history
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		err := client.DeleteSession(ctx, sessionID)
		if err == nil && history != nil {
			_ = history.DeleteSession(sessionID)
		}
		return sessionDeletedMsg{SessionID: sessionID, Err: err}
	}
}

func (m Model) uploadCmd(path string, size int64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		file, err := os.Open(path)
		if err != nil {
			return attachmentReadyMsg{Err: err}
		}
		defer file.Close()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		result, err := client.UploadDocument(ctx, filepath.Base(path), file)
		if err != nil {
			return attachmentReadyMsg{Err: err}
		}
		contentType := mime.TypeByExtension(filepath.Ext(path))
		return attachmentReadyMsg{Attachment: &model.Attachment{
			Name: filepath.Base(path),
			URL:  result.DocumentURL(),
			Type: model.DocumentTypeFor(contentType),
			Size: size,
		}}
	}
}

// =============================================================================
// FORMATTING
// =============================================================================

// formatSessions renders the remote session list for the notice area.
func formatSessions(sessions []backend.Session, limit int) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	var sb strings.Builder
	sb.WriteString("Sessions (use /load <id>):")
	for _, s := range sessions {
		sb.WriteString("\n  " + s.ID)
		if s.Title != "" {
			sb.WriteString("  " + util.TruncateRunes(s.Title, 48))
		}
	}
	return sb.String()
}

func helpText() string {
	return strings.Join([]string{
		"Commands:",
		"  /new              start a new chat session",
		"  /sessions         list remote sessions",
		"  /load <id>        load a session transcript",
		"  /delete <id>      delete a remote session",
		"  /attach <path>    upload a document for the next message",
		"  /detach           remove the pending attachment",
		"  /trace            toggle the thinking trace (also ctrl+t)",
		"  /quit             exit",
	}, "\n")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/chat"
	"github.com/jeranaias/comply-tui/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

// streamEventMsg carries a controller event (trace entry, final message,
// or session change) into the Bubble Tea loop.
type streamEventMsg struct {
	Event chat.Event
}

// streamDoneMsg signals that the Send call returned.
type streamDoneMsg struct {
	Err error
}

// sessionsLoadedMsg carries the remote session list for /sessions.
type sessionsLoadedMsg struct {
	Sessions []backend.Session
	Err      error
}

// transcriptLoadedMsg carries a fetched transcript for /load.
type transcriptLoadedMsg struct {
	SessionID string
	Messages  []*model.Message
	Err       error
}

// attachmentReadyMsg carries an uploaded document for the next turn.
type attachmentReadyMsg struct {
	Attachment *model.Attachment
	Err        error
}

// sessionDeletedMsg reports the result of /delete.
type sessionDeletedMsg struct {
	SessionID string
	Err       error
}

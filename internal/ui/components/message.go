// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/comply-tui/internal/model"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
	"github.com/jeranaias/comply-tui/internal/util"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// MessageView renders transcript messages as left-bordered bubbles.
type MessageView struct {
	theme          *styles.Theme
	showTimestamps bool
}

// NewMessageView creates a message view using the given theme.
func NewMessageView(theme *styles.Theme, showTimestamps bool) MessageView {
	return MessageView{theme: theme, showTimestamps: showTimestamps}
}

// Render renders one message for the transcript viewport.
func (v MessageView) Render(msg *model.Message, width int) string {
	if msg == nil {
		return ""
	}

	label := v.theme.RoleLabel.Render(msg.Role.DisplayName())
	if v.showTimestamps {
		label += " " + v.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	body := msg.Content
	if maxWidth := width - 4; maxWidth > 10 {
		// Fenced code in assistant replies gets syntax highlighting;
		// wrapping would corrupt the ANSI sequences, so those messages
		// skip the wrapper.
		if msg.Role == model.RoleAssistant && !msg.IsError && strings.Contains(body, "```") {
			body = ParseCodeBlocks(body, maxWidth)
		} else {
			body = wrapLines(body, maxWidth)
		}
	}

	bubble := v.bubbleFor(msg)
	content := label + "\n" + body

	if msg.Attachment != nil {
		chip := v.theme.AttachmentChip.Render("@ " + util.TruncateRunes(msg.Attachment.Name, 40))
		content += "\n" + chip
	}

	return bubble.Render(content)
}

// bubbleFor picks the bubble style by role and error state.
func (v MessageView) bubbleFor(msg *model.Message) (style interface{ Render(...string) string }) {
	switch {
	case msg.IsError:
		return v.theme.ErrorBubble
	case msg.Role == model.RoleUser:
		return v.theme.UserBubble
	default:
		return v.theme.AssistantBubble
	}
}

// wrapLines wraps each existing line independently, preserving blank lines
// and explicit newlines in message content.
func wrapLines(text string, width int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wrapText(line, width)
	}
	return strings.Join(lines, "\n")
}

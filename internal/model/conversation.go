// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// MaxMessages caps how many messages a conversation accepts. Turn indexes
// key the thinking-trace store, so history is never pruned mid-session;
// past the cap new messages are rejected instead.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat transcript with metadata. SessionID is the
// backend's checkpoint id once one has been issued; it is empty for a
// conversation that has not completed a turn yet.
type Conversation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// NewConversation creates a new conversation with a generated local ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        generateConversationID(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message and returns its index in the transcript.
// The index of a user message is the turn key used by the trace store.
func (c *Conversation) AddMessage(msg *Message) int {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	return len(c.Messages) - 1
}

// AddUserMessage creates and appends a user message, returning its index.
func (c *Conversation) AddUserMessage(content string, attachment *Attachment) (int, *Message) {
	msg := NewUserMessage(content)
	msg.Attachment = attachment
	return c.AddMessage(msg), msg
}

// AddAssistantMessage creates and appends an assistant message.
func (c *Conversation) AddAssistantMessage(content string) *Message {
	msg := NewAssistantMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddErrorMessage creates and appends an assistant error message.
func (c *Conversation) AddErrorMessage(content string) *Message {
	msg := NewErrorMessage(content)
	c.AddMessage(msg)
	return msg
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// MessageCount returns the number of messages in the conversation.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clone returns a deep copy of the conversation. Used when handing the
// transcript to a renderer while the stream goroutine keeps appending.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]*Message, len(c.Messages))
	for i, msg := range c.Messages {
		m := *msg
		if msg.Attachment != nil {
			a := *msg.Attachment
			m.Attachment = &a
		}
		clone.Messages[i] = &m
	}
	return &clone
}

// updateTitle derives the title from the first user message.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			title := strings.TrimSpace(msg.Content)
			if len([]rune(title)) > 50 {
				title = string([]rune(title)[:47]) + "..."
			}
			c.Title = title
			return
		}
	}
}

// Full reports whether the conversation has hit the message cap.
func (c *Conversation) Full() bool {
	return len(c.Messages) >= MaxMessages
}

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}

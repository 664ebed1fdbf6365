// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// and attachments exchanged with the compliance assistant.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// DocumentType classifies an uploaded attachment for the backend.
type DocumentType string

const (
	DocumentImage DocumentType = "image"
	DocumentFile  DocumentType = "document"
)

// DocumentTypeFor returns the backend document type for a MIME content type.
// Anything that is not an image is treated as a document.
func DocumentTypeFor(contentType string) DocumentType {
	if len(contentType) >= 6 && contentType[:6] == "image/" {
		return DocumentImage
	}
	return DocumentFile
}

// Attachment is a file the user has uploaded and pinned to the next turn.
// URL is the backend's storage URL returned by the upload endpoint.
type Attachment struct {
	Name string       `json:"name"`
	URL  string       `json:"url"`
	Type DocumentType `json:"type"`
	Size int64        `json:"size,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Attachment pinned to a user message, if any.
	Attachment *Attachment `json:"attachment,omitempty"`

	// IsError marks assistant messages that carry an error line rather
	// than an answer. Rendered differently, never synced upstream.
	IsError bool `json:"is_error,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

// NewErrorMessage creates an assistant message carrying an error line.
func NewErrorMessage(content string) *Message {
	msg := NewMessage(RoleAssistant, content)
	msg.IsError = true
	return msg
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// and attachments.
//
// # Key Types
//
//   - Conversation: Container for a chat transcript with metadata
//   - Message: Single message with role, content, timestamp, and optional attachment
//   - Attachment: Uploaded document pinned to a user turn
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a new conversation:
//
//	conv := model.NewConversation()
//	idx, _ := conv.AddUserMessage("Does this clause violate GDPR?", nil)
//
// The returned index is the turn key used by the thinking-trace store.
package model

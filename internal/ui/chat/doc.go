// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
//
// The view wires the turn controller to Bubble Tea: controller events
// cross from the stream goroutine through a channel that the event pump
// command drains, so all rendering happens on the Bubble Tea loop.
//
// Slash commands (/new, /sessions, /load, /attach, ...) drive the REST
// surface of the backend; plain text starts a streaming turn.
package chat

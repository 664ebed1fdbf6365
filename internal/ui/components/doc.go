// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the comply TUI.
//
// # Components
//
//   - TraceView: the reasoning trace block with collapse/expand
//   - MessageView: transcript message bubbles with attachment chips
//   - ThinkingSpinner: animated streaming indicator with elapsed time
//   - StatusBar: footer with turn state, session id, and key hints
//   - Welcome: empty-transcript welcome box
package components

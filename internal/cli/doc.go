// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the comply command-line interface.
//
// The package owns argument parsing, command dispatch constants, exit
// codes, and the handlers for every non-TUI command (chat, ask,
// analyze, sessions, auth, config, subscription, admin). The TUI itself
// lives under internal/ui; main.go routes between the two based on the
// parsed command.
package cli

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the HTTP client for the compliance-assistant
// backend: the streaming query endpoint (SSE), remote session management,
// document upload and analysis, recommendations, and account operations.
//
// # Key Types
//
//   - Client: REST client with bearer-token auth and rate limiting
//   - Decoder: incremental SSE frame decoder for the query stream
//   - APIError: typed error carrying the HTTP status and backend message
//
// All blocking operations take a context.Context; cancelling the context
// aborts in-flight requests and stops an open stream.
package backend

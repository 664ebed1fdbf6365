// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error variables for common backend failures.
var (
	// ErrNotConfigured indicates no auth token is available.
	ErrNotConfigured = errors.New("not signed in: run 'comply auth login'")

	// ErrUnauthorized indicates the token was rejected (expired or invalid).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the account lacks permission for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested session or resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents an error response from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// Is maps well-known status codes onto the sentinel errors so callers can
// use errors.Is without inspecting the status themselves.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == 401
	case ErrForbidden:
		return e.Status == 403
	case ErrNotFound:
		return e.Status == 404
	case ErrRateLimited:
		return e.Status == 429
	}
	return false
}

// apiErrorResponse covers the error body shapes the backend emits.
type apiErrorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
}

// newAPIError builds an APIError from a status code and response body,
// extracting the backend's message when the body is JSON.
func newAPIError(status int, body []byte) *APIError {
	var parsed apiErrorResponse
	msg := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			msg = parsed.Message
		case parsed.Detail != "":
			msg = parsed.Detail
		case parsed.Error != "":
			msg = parsed.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	return &APIError{Status: status, Message: msg}
}

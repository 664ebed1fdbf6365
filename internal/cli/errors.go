// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for CLI commands.
//
// Every handler returns errors instead of printing and swallowing them;
// main.go displays the error once and exits with a code that reflects
// the failure category.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/comply-tui/internal/auth"
	"github.com/jeranaias/comply-tui/internal/backend"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates authentication or authorization failure
	ExitAuthError = 4
	// ExitNetworkError indicates a network or backend connectivity error
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 6
	// ExitTimeoutError indicates an operation timed out or was canceled
	ExitTimeoutError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError indicates the command was invoked with bad arguments. The
// message should tell the user what a correct invocation looks like.
type UsageError struct {
	Message string
	Usage   string // example of a valid invocation (optional)
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Message, e.Usage)
	}
	return e.Message
}

// NewUsageError creates a usage error with an example invocation.
func NewUsageError(message, usage string) error {
	return &UsageError{Message: message, Usage: usage}
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return NewUsageError("missing required argument: "+argName, usage)
}

// =============================================================================
// DISPLAY AND EXIT
// =============================================================================

// DisplayError prints an error in a consistent format on stderr.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		printJSONError(err)
		return
	}
	label := "[error]"
	if ColorEnabled() {
		label = ErrorLabelStyle.Render(label)
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", label, err.Error())
}

// HandleErrorAndExit displays an error and exits with its exit code.
func HandleErrorAndExit(err error, jsonMode bool) {
	if err == nil {
		return
	}
	DisplayError(err, jsonMode)
	os.Exit(GetExitCode(err))
}

// GetExitCode maps an error onto a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	switch {
	case errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrCorruptCredentials),
		errors.Is(err, backend.ErrNotConfigured),
		errors.Is(err, backend.ErrUnauthorized),
		errors.Is(err, backend.ErrForbidden):
		return ExitAuthError

	case errors.Is(err, backend.ErrNotFound):
		return ExitNotFoundError

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ExitTimeoutError
	}

	// Fall back on message content for errors that cross package
	// boundaries without a typed cause.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "config"):
		return ExitConfigError
	case strings.Contains(msg, "connection") || strings.Contains(msg, "dial") ||
		strings.Contains(msg, "unreachable") || strings.Contains(msg, "backend error"):
		return ExitNetworkError
	}

	return ExitGeneralError
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

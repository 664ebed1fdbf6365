// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared wiring for CLI command handlers.
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/time/rate"

	"github.com/jeranaias/comply-tui/internal/auth"
	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/config"
)

// =============================================================================
// BACKEND WIRING
// =============================================================================

// NewBackendClient builds a backend client from the active config and
// the stored credentials. Global flags can override the base URL.
func NewBackendClient(args Args) (*backend.Client, *auth.Store, error) {
	cfg := config.Global()

	store, err := auth.NewStore()
	if err != nil {
		return nil, nil, WrapError(err, "failed to open credential store")
	}

	baseURL := cfg.Backend.BaseURL
	if args.BaseURL != "" {
		baseURL = args.BaseURL
	}

	client := backend.NewClient(baseURL, store).
		WithRateLimit(rate.Limit(cfg.Backend.RateLimitPerSec), cfg.Backend.RateLimitBurst)
	return client, store, nil
}

// RequireAuth returns an error if no token is stored. Commands that hit
// authenticated endpoints call this first so the failure is immediate
// and actionable instead of a 401 mid-stream.
func RequireAuth(store *auth.Store) error {
	if !store.HasToken() {
		return auth.ErrNoToken
	}
	return nil
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for terminal output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(DefaultTerminalWidth),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails.
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display, returning the
// original content if rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayMarkdown prints content with markdown rendering when stdout is
// a TTY and --plain was not given. Piped output stays raw.
func displayMarkdown(content string, plain bool) {
	if !plain && IsStdoutTTY() {
		fmt.Print(renderMarkdown(content))
		return
	}
	fmt.Print(content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Println()
	}
}

// =============================================================================
// JSON OUTPUT
// =============================================================================

// printJSON writes an indented JSON document to stdout.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
	}
}

// printJSONError writes a structured error document to stdout.
func printJSONError(err error) {
	printJSON(map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

// =============================================================================
// PROMPTS
// =============================================================================

// promptLine reads one line from stdin with a visible prompt.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirmAction asks for explicit confirmation unless the --confirm
// flag was already given. Refuses in non-interactive environments.
func confirmAction(prompt string, preConfirmed bool) (bool, error) {
	if preConfirmed {
		return true, nil
	}
	if !IsTTY() {
		return false, fmt.Errorf("refusing destructive action without --confirm in non-interactive mode")
	}
	answer, err := promptLine(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

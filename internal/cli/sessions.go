// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Session management commands.
//
// "comply sessions" works against two stores: the backend owns the
// authoritative session list, and the local sqlite cache holds
// transcripts for offline export and full-text search.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/config"
	"github.com/jeranaias/comply-tui/internal/storage"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
	"github.com/jeranaias/comply-tui/internal/util"
)

// commandTimeout bounds the REST calls behind CLI commands.
const commandTimeout = 30 * time.Second

// openHistoryCache opens the local transcript cache at the configured
// path.
func openHistoryCache(cfg *config.Config) (*storage.History, error) {
	path := cfg.History.DBPath
	if path == "" {
		var err error
		if path, err = storage.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}

// HandleSessions handles the "sessions" command and its subcommands.
func HandleSessions(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "list", "ls", "":
		return sessionsList(args)
	case "show":
		return sessionsShow(args, parser)
	case "export":
		return sessionsExport(args, parser)
	case "search":
		return sessionsSearch(args, parser)
	case "delete":
		return sessionsDelete(args, parser)
	case "clear-cache":
		return sessionsClearCache(args, parser)
	default:
		return NewUsageError("unknown sessions subcommand: "+parser.Subcommand(),
			"comply sessions [list|show|export|search|delete|clear-cache]")
	}
}

// sessionsList prints the backend's session list.
func sessionsList(args Args) error {
	client, store, err := NewBackendClient(args)
	if err != nil {
		return err
	}
	if err := RequireAuth(store); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		printJSON(sessions)
		return nil
	}
	printSessionList(sessions)
	return nil
}

// printSessionList renders remote sessions as an aligned list.
func printSessionList(sessions []backend.Session) {
	if len(sessions) == 0 {
		fmt.Println(styles.RenderInfo("No sessions found."))
		return
	}

	fmt.Println(HeadingStyle.Render("Sessions"))
	for _, s := range sessions {
		line := "  " + s.ID
		if s.Title != "" {
			line += "  " + util.TruncateRunes(s.Title, 60)
		}
		fmt.Println(line)
		if s.UpdatedAt != "" {
			fmt.Println(MutedStyle.Render("      updated " + s.UpdatedAt))
		}
	}
}

// sessionsShow prints a session transcript from the backend.
func sessionsShow(args Args, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return ErrMissingArgument("session id", "comply sessions show <id>")
	}

	client, store, err := NewBackendClient(args)
	if err != nil {
		return err
	}
	if err := RequireAuth(store); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	messages, err := client.SessionMessages(ctx, id)
	if err != nil {
		return err
	}

	if args.JSON {
		printJSON(messages)
		return nil
	}

	for _, m := range messages {
		fmt.Println(MutedStyle.Render(m.Role + ":"))
		displayMarkdown(m.Content, args.Plain)
		fmt.Println()
	}
	return nil
}

// sessionsExport writes a cached transcript as Markdown.
func sessionsExport(args Args, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return ErrMissingArgument("session id", "comply sessions export <id> [--output FILE]")
	}

	history, err := openHistoryCache(config.Global())
	if err != nil {
		return WrapError(err, "failed to open local cache")
	}
	defer history.Close()

	sess, err := history.GetSession(id)
	if err != nil {
		return err
	}
	md := sess.ExportMarkdown()

	if out := parser.Flag("output"); out != "" {
		if err := os.WriteFile(out, []byte(md), 0600); err != nil {
			return WrapError(err, "failed to write export")
		}
		if !args.Quiet {
			fmt.Println(styles.RenderSuccess("Exported to " + out))
		}
		return nil
	}

	fmt.Print(md)
	return nil
}

// sessionsSearch runs a full-text search over cached transcripts.
func sessionsSearch(args Args, parser *ArgParser) error {
	query := util.TruncateRunes(joinFrom(parser, 1), 200)
	if query == "" {
		return ErrMissingArgument("query", "comply sessions search <query>")
	}

	history, err := openHistoryCache(config.Global())
	if err != nil {
		return WrapError(err, "failed to open local cache")
	}
	defer history.Close()

	results, err := history.Search(query)
	if err != nil {
		return err
	}

	if args.JSON {
		printJSON(results)
		return nil
	}
	if len(results) == 0 {
		fmt.Println(styles.RenderInfo("No matches."))
		return nil
	}
	fmt.Print(storage.FormatSessionList(results))
	return nil
}

// sessionsDelete removes a session from the backend and the cache.
func sessionsDelete(args Args, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return ErrMissingArgument("session id", "comply sessions delete <id> --confirm")
	}

	ok, err := confirmAction("Delete session "+id+"?", parser.BoolFlag("confirm"))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(styles.RenderInfo("Aborted."))
		return nil
	}

	client, store, err := NewBackendClient(args)
	if err != nil {
		return err
	}
	if err := RequireAuth(store); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := client.DeleteSession(ctx, id); err != nil {
		return err
	}

	// Best effort on the cache; the backend copy is gone either way.
	if history, err := openHistoryCache(config.Global()); err == nil {
		_ = history.DeleteSession(id)
		history.Close()
	}

	if !args.Quiet {
		fmt.Println(styles.RenderSuccess("Deleted " + id))
	}
	return nil
}

// sessionsClearCache drops every cached transcript.
func sessionsClearCache(args Args, parser *ArgParser) error {
	ok, err := confirmAction("Clear the local transcript cache?", parser.BoolFlag("confirm"))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(styles.RenderInfo("Aborted."))
		return nil
	}

	history, err := openHistoryCache(config.Global())
	if err != nil {
		return WrapError(err, "failed to open local cache")
	}
	defer history.Close()

	if err := history.Clear(); err != nil {
		return err
	}
	if !args.Quiet {
		fmt.Println(styles.RenderSuccess("Local cache cleared."))
	}
	return nil
}

// joinFrom joins positional args from index into one string.
func joinFrom(parser *ArgParser, index int) string {
	return strings.Join(parser.PositionalFrom(index), " ")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// main.go - Entry point for comply.
//
// Routes between the Bubble Tea TUI (the default) and the plain CLI
// commands in internal/cli. All command semantics live in the packages;
// this file only parses, wires, and exits.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/comply-tui/internal/auth"
	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/cli"
	"github.com/jeranaias/comply-tui/internal/config"
	"github.com/jeranaias/comply-tui/internal/session"
	"github.com/jeranaias/comply-tui/internal/storage"
	uichat "github.com/jeranaias/comply-tui/internal/ui/chat"
	"golang.org/x/time/rate"
)

// Version information (overridden at build time via -ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	// Config loads before any command runs; a broken config file should
	// fail loudly here, not deep inside a handler.
	cfg, err := config.Load()
	if err != nil {
		cli.HandleErrorAndExit(err, args.JSON)
	}
	config.SetGlobal(cfg)

	switch cmd {
	case cli.CmdTUI:
		if err := runTUI(args); err != nil {
			cli.HandleErrorAndExit(err, args.JSON)
		}

	case cli.CmdAsk:
		exitOn(cli.HandleAsk(args), args)

	case cli.CmdChat:
		exitOn(cli.HandleChat(args), args)

	case cli.CmdAnalyze:
		exitOn(cli.HandleAnalyze(args), args)

	case cli.CmdRecommend:
		exitOn(cli.HandleRecommend(args), args)

	case cli.CmdPolicy:
		exitOn(cli.HandlePolicy(args), args)

	case cli.CmdSessions:
		exitOn(cli.HandleSessions(args), args)

	case cli.CmdAuth:
		exitOn(cli.HandleAuth(args), args)

	case cli.CmdConfig:
		exitOn(cli.HandleConfig(args), args)

	case cli.CmdSubscription:
		exitOn(cli.HandleSubscription(args), args)

	case cli.CmdAdmin:
		exitOn(cli.HandleAdmin(args), args)

	case cli.CmdVersion:
		cli.HandleVersion(args)

	case cli.CmdHelp:
		cli.HandleHelp()

	default:
		cli.PrintUsage()
		os.Exit(cli.ExitUsageError)
	}
}

// exitOn displays an error and exits with its mapped code.
func exitOn(err error, args cli.Args) {
	if err != nil {
		cli.HandleErrorAndExit(err, args.JSON)
	}
}

// runTUI assembles the chat view and runs the Bubble Tea program.
func runTUI(args cli.Args) error {
	cfg := config.Global()

	store, err := auth.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	if !store.HasToken() {
		return auth.ErrNoToken
	}

	baseURL := cfg.Backend.BaseURL
	if args.BaseURL != "" {
		baseURL = args.BaseURL
	}
	client := backend.NewClient(baseURL, store).
		WithRateLimit(rate.Limit(cfg.Backend.RateLimitPerSec), cfg.Backend.RateLimitBurst)

	sessions, err := session.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open session state: %w", err)
	}

	var history *storage.History
	if cfg.History.Enabled {
		path := cfg.History.DBPath
		if path == "" {
			if path, err = storage.DefaultDBPath(); err != nil {
				path = ""
			}
		}
		if path != "" {
			// Cache failures degrade to no local history, never block the UI.
			if h, err := storage.Open(path); err == nil {
				history = h
				defer h.Close()
			}
		}
	}

	// Hot-reload config edits while the TUI runs. The watcher swaps the
	// global config; the model picks changes up on its next read.
	if cfgPath, err := config.ConfigPath(); err == nil {
		if watcher, err := config.NewWatcher(cfgPath, nil); err == nil {
			if watcher.Watch() == nil {
				defer watcher.Close()
			}
		}
	}

	m := uichat.New(uichat.Options{
		Client:   client,
		Sessions: sessions,
		History:  history,
		Config:   cfg,
		Version:  Version,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Argument parsing and command routing for the comply CLI.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdAnalyze
	CmdRecommend
	CmdPolicy
	CmdSessions
	CmdAuth
	CmdConfig
	CmdSubscription
	CmdAdmin
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool   // Output in JSON format
	Plain   bool   // Disable markdown rendering even on a TTY
	BaseURL string // Override the configured backend URL

	// Command-specific
	Query      string
	File       string
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options (e.g., --format, --output)
	Options map[string]string
}

const usageText = `comply - policy compliance assistant for the terminal

Comply is a terminal front-end for a policy compliance backend. It
streams assistant replies over SSE, shows the thinking trace behind
each answer, and analyzes uploaded documents against policy sets.

Usage:
  comply                        Start the TUI (default)
  comply ask "question"         Ask a single question
  comply chat                   Interactive chat in the plain terminal
  comply analyze <file>         Analyze a document for policy violations
  comply recommend <file>       Analyze and generate recommendations
  comply policy <url>           Fetch and render a policy document
  comply sessions [subcommand]  Session management
  comply auth [subcommand]      Sign in and credential management
  comply config [show|get|set]  Configuration
  comply subscription <plan>    Select a subscription plan
  comply admin [subcommand]     Administrative operations
  comply version                Show version information

Ask Command:
  comply ask "question"             Stream one answer and exit
    --file PATH                     Attach a document to the question
    --trace                         Print the thinking trace as it arrives

Analyze Commands:
  comply analyze <file>             Upload and analyze a document
    --policies a,b,c                Restrict the analysis to named policies
    --json                          Emit the raw violation list as JSON
  comply recommend <file>           Analyze, then generate recommendations
    --policies a,b,c                Restrict the analysis to named policies

Session Commands:
  comply sessions list              List sessions on the backend
  comply sessions show <id>         Print a session transcript
  comply sessions export <id>       Export a cached transcript as Markdown
    --output FILE                   Write to a file instead of stdout
  comply sessions search <query>    Full-text search the local cache
  comply sessions delete <id>       Delete a session from the backend
    --confirm                       Required confirmation flag
  comply sessions clear-cache       Drop the local transcript cache
    --confirm                       Required confirmation flag

Auth Commands:
  comply auth login                 Prompt for an API token and store it
  comply auth status                Show whether a token is stored
  comply auth logout                Remove the stored token

Config Commands:
  comply config show                Print the active configuration
  comply config get <key>           Print one value (e.g. ui.theme)
  comply config set <key> <value>   Set and persist one value
  comply config path                Print the config file location
  comply config keys                List available keys

Admin Commands:
  comply admin create-user          Create a backend user (prompts for
    --email ADDR --role ROLE        the password; requires admin token)

Global Flags:
  -q, --quiet     Minimal output
  -v, --verbose   Debug output
  --json          Output in JSON format where supported
  --plain         Disable markdown rendering
  --base-url URL  Override the configured backend URL

Examples:
  comply                                      Start the TUI
  comply ask "What does our retention policy require?"
  comply ask "Summarize this" --file notes.md
  comply analyze contract.pdf --policies gdpr,hipaa
  comply sessions export 42 --output transcript.md
  comply config set ui.theme light

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("comply version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses os.Args and returns the command and parsed arguments.
func Parse() (Command, Args) {
	return ParseFrom(os.Args[1:])
}

// ParseFrom parses the given argument list. Split out from Parse so
// tests can drive it without touching os.Args.
func ParseFrom(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	// No command defaults to the TUI.
	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "ask":
		parseAskArgs(&args, remaining)
		return CmdAsk, args

	case "chat":
		return CmdChat, args

	case "analyze":
		parseDocumentArgs(&args, remaining)
		return CmdAnalyze, args

	case "recommend", "recommendations":
		parseDocumentArgs(&args, remaining)
		return CmdRecommend, args

	case "policy", "policies":
		if len(remaining) > 0 {
			args.Query = remaining[0]
		}
		return CmdPolicy, args

	case "session", "sessions":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdSessions, args

	case "auth", "login", "logout":
		if cmd == "auth" {
			if len(remaining) > 0 {
				args.Subcommand = remaining[0]
			}
		} else {
			// "comply login" and "comply logout" are shorthands.
			args.Subcommand = cmd
		}
		return CmdAuth, args

	case "config":
		parseConfigArgs(&args, remaining)
		return CmdConfig, args

	case "subscription", "plan":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdSubscription, args

	case "admin":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdAdmin, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		// Unknown first word is treated as a question for ask. This makes
		// `comply "what does the policy say"` do the obvious thing.
		args.Raw = append([]string{cmd}, remaining...)
		parseAskArgs(&args, args.Raw)
		return CmdAsk, args
	}
}

// parseGlobalFlags extracts global flags from argv and returns the rest.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	args := Args{Options: make(map[string]string)}

	i := 0
	for i < len(argv) {
		arg := argv[i]

		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "--plain":
			args.Plain = true
		case "--base-url":
			if i+1 < len(argv) {
				i++
				args.BaseURL = argv[i]
			}
		default:
			if strings.HasPrefix(arg, "--base-url=") {
				args.BaseURL = strings.TrimPrefix(arg, "--base-url=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, args
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "-f", "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		case "--trace":
			args.Options["trace"] = "true"
		default:
			if strings.HasPrefix(arg, "--file=") {
				args.File = strings.TrimPrefix(arg, "--file=")
			} else if !strings.HasPrefix(arg, "-") {
				query = append(query, arg)
			}
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}

// parseDocumentArgs parses analyze/recommend arguments. The first
// positional argument is the document path.
func parseDocumentArgs(args *Args, remaining []string) {
	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "--policies", "-p":
			if i+1 < len(remaining) {
				i++
				args.Options["policies"] = remaining[i]
			}
		default:
			if strings.HasPrefix(arg, "--policies=") {
				args.Options["policies"] = strings.TrimPrefix(arg, "--policies=")
			} else if !strings.HasPrefix(arg, "-") && args.File == "" {
				args.File = arg
			}
		}
		i++
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = remaining[2]
		}
	}
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		printJSON(map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
		})
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

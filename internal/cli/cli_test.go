// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/jeranaias/comply-tui/internal/auth"
	"github.com/jeranaias/comply-tui/internal/backend"
)

func TestArgParserFlagFormats(t *testing.T) {
	p := NewArgParser([]string{"export", "42", "--output", "out.md", "--confirm", "--format=json"})

	if got := p.Subcommand(); got != "export" {
		t.Errorf("Subcommand() = %q, want export", got)
	}
	if got := p.Positional(1); got != "42" {
		t.Errorf("Positional(1) = %q, want 42", got)
	}
	if got := p.Flag("output"); got != "out.md" {
		t.Errorf("Flag(output) = %q, want out.md", got)
	}
	if got := p.Flag("format"); got != "json" {
		t.Errorf("Flag(format) = %q, want json", got)
	}
	if !p.BoolFlag("confirm") {
		t.Error("BoolFlag(confirm) = false, want true")
	}
	if p.BoolFlag("missing") {
		t.Error("BoolFlag(missing) = true, want false")
	}
}

func TestArgParserExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--confirm=false", "--json=true"})
	if p.BoolFlag("confirm") {
		t.Error("--confirm=false should parse as false")
	}
	if !p.BoolFlag("json") {
		t.Error("--json=true should parse as true")
	}
}

func TestArgParserPositionals(t *testing.T) {
	p := NewArgParser([]string{"search", "data", "retention"})
	if got := p.PositionalCount(); got != 3 {
		t.Fatalf("PositionalCount() = %d, want 3", got)
	}
	rest := p.PositionalFrom(1)
	if len(rest) != 2 || rest[0] != "data" || rest[1] != "retention" {
		t.Errorf("PositionalFrom(1) = %v", rest)
	}
	if got := p.Positional(9); got != "" {
		t.Errorf("out of range positional = %q, want empty", got)
	}
}

func TestParseFromDefaultsToTUI(t *testing.T) {
	cmd, _ := ParseFrom(nil)
	if cmd != CmdTUI {
		t.Errorf("empty argv parsed to %v, want CmdTUI", cmd)
	}
}

func TestParseFromRouting(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"chat"}, CmdChat},
		{[]string{"analyze", "doc.pdf"}, CmdAnalyze},
		{[]string{"recommend", "doc.pdf"}, CmdRecommend},
		{[]string{"policy", "https://example.com/p"}, CmdPolicy},
		{[]string{"sessions", "list"}, CmdSessions},
		{[]string{"auth", "login"}, CmdAuth},
		{[]string{"login"}, CmdAuth},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"subscription", "pro"}, CmdSubscription},
		{[]string{"admin", "create-user"}, CmdAdmin},
		{[]string{"version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
	}
	for _, tt := range tests {
		if cmd, _ := ParseFrom(tt.argv); cmd != tt.want {
			t.Errorf("ParseFrom(%v) = %v, want %v", tt.argv, cmd, tt.want)
		}
	}
}

func TestParseFromGlobalFlags(t *testing.T) {
	cmd, args := ParseFrom([]string{"--json", "-q", "--base-url=http://localhost:9000", "sessions", "list"})
	if cmd != CmdSessions {
		t.Fatalf("cmd = %v, want CmdSessions", cmd)
	}
	if !args.JSON || !args.Quiet {
		t.Error("global flags not parsed")
	}
	if args.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q", args.BaseURL)
	}
	if args.Subcommand != "list" {
		t.Errorf("Subcommand = %q, want list", args.Subcommand)
	}
}

func TestParseFromAsk(t *testing.T) {
	cmd, args := ParseFrom([]string{"ask", "what", "applies", "--file", "notes.md", "--trace"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "what applies" {
		t.Errorf("Query = %q", args.Query)
	}
	if args.File != "notes.md" {
		t.Errorf("File = %q", args.File)
	}
	if args.Options["trace"] != "true" {
		t.Error("--trace not recorded")
	}
}

func TestParseFromBareQuestionFallsBackToAsk(t *testing.T) {
	cmd, args := ParseFrom([]string{"what", "does", "the", "policy", "say"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "what does the policy say" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseDocumentArgs(t *testing.T) {
	cmd, args := ParseFrom([]string{"analyze", "contract.pdf", "--policies", "gdpr,hipaa"})
	if cmd != CmdAnalyze {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.File != "contract.pdf" {
		t.Errorf("File = %q", args.File)
	}
	if args.Options["policies"] != "gdpr,hipaa" {
		t.Errorf("policies = %q", args.Options["policies"])
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{NewUsageError("bad", ""), ExitUsageError},
		{auth.ErrNoToken, ExitAuthError},
		{backend.ErrUnauthorized, ExitAuthError},
		{&backend.APIError{Status: 401}, ExitAuthError},
		{&backend.APIError{Status: 404}, ExitNotFoundError},
		{context.DeadlineExceeded, ExitTimeoutError},
		{context.Canceled, ExitTimeoutError},
		{errors.New("invalid configuration value"), ExitConfigError},
		{errors.New("dial tcp: connection refused"), ExitNetworkError},
		{errors.New("something else"), ExitGeneralError},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.err); got != tt.want {
			t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestValidPlan(t *testing.T) {
	for _, p := range knownPlans {
		if !validPlan(p) {
			t.Errorf("validPlan(%q) = false", p)
		}
	}
	if validPlan("platinum") {
		t.Error("validPlan(platinum) = true")
	}
}

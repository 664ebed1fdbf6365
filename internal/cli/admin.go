// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// admin.go - Administrative commands.
//
// Requires an admin token on the backend side; the CLI only relays the
// request and lets the backend enforce authorization.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// HandleAdmin handles the "admin" command and its subcommands.
func HandleAdmin(args Args) error {
	switch args.Subcommand {
	case "create-user":
		return adminCreateUser(args)
	default:
		return NewUsageError("unknown admin subcommand: "+args.Subcommand,
			"comply admin create-user --email ADDR --role ROLE")
	}
}

// adminCreateUser creates a backend user, prompting for the password.
func adminCreateUser(args Args) error {
	parser := NewArgParser(args.Raw)

	email := parser.Flag("email")
	if email == "" {
		return ErrMissingArgument("--email", "comply admin create-user --email ADDR --role ROLE")
	}
	if !strings.Contains(email, "@") {
		return NewUsageError("invalid email: "+email, "comply admin create-user --email user@example.com --role user")
	}
	role := parser.FlagOrDefault("role", "user")

	client, store, err := NewBackendClient(args)
	if err != nil {
		return err
	}
	if err := RequireAuth(store); err != nil {
		return err
	}

	creds, err := store.Load()
	if err != nil {
		return err
	}

	if !IsTTY() {
		return fmt.Errorf("admin create-user requires an interactive terminal for the password prompt")
	}
	fmt.Print("Password for " + email + ": ")
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return WrapError(err, "failed to read password")
	}
	if len(passBytes) < 8 {
		return NewUsageError("password must be at least 8 characters", "")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	req := backend.CreateUserRequest{
		Email:    email,
		Password: string(passBytes),
		Role:     role,
		AdminID:  creds.UserID,
	}
	if err := client.CreateUser(ctx, req); err != nil {
		return WrapError(err, "user creation failed")
	}

	if !args.Quiet {
		fmt.Println(styles.RenderSuccess("Created user " + email + " with role " + role + "."))
	}
	return nil
}

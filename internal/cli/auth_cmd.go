// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Sign-in and credential management commands.
//
// Tokens are issued out of band (the backend's web console) and pasted
// into the login prompt. They are stored sealed at rest; see
// internal/auth for the encryption scheme.
package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/jeranaias/comply-tui/internal/auth"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// HandleAuth handles the "auth" command and its subcommands.
func HandleAuth(args Args) error {
	store, err := auth.NewStore()
	if err != nil {
		return WrapError(err, "failed to open credential store")
	}

	switch args.Subcommand {
	case "login", "":
		return authLogin(store, args)
	case "status":
		return authStatus(store, args)
	case "logout":
		return authLogout(store, args)
	default:
		return NewUsageError("unknown auth subcommand: "+args.Subcommand,
			"comply auth [login|status|logout]")
	}
}

// authLogin prompts for credentials and stores them encrypted.
func authLogin(store *auth.Store, args Args) error {
	if !IsTTY() {
		return fmt.Errorf("auth login requires an interactive terminal")
	}

	email, err := promptLine("Email (optional): ")
	if err != nil {
		return err
	}
	// The user id feeds subscription and admin calls; it is optional for
	// plain chat use.
	userID, err := promptLine("User ID (optional): ")
	if err != nil {
		return err
	}

	// Read the token without echo.
	fmt.Print("API token: ")
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return WrapError(err, "failed to read token")
	}
	token := string(tokenBytes)
	if token == "" {
		return NewUsageError("token must not be empty", "comply auth login")
	}

	creds := auth.Credentials{Token: token, UserID: userID, Email: email}
	if err := store.Save(creds); err != nil {
		return WrapError(err, "failed to store credentials")
	}

	if !args.Quiet {
		fmt.Println(styles.RenderSuccess("Signed in. Credentials stored encrypted."))
	}
	return nil
}

// authStatus reports whether credentials are stored, without printing
// any part of the token.
func authStatus(store *auth.Store, args Args) error {
	if !store.HasToken() {
		if args.JSON {
			printJSON(map[string]any{"signed_in": false})
			return nil
		}
		fmt.Println(styles.RenderInfo("Not signed in. Run 'comply auth login'."))
		return nil
	}

	creds, err := store.Load()
	if err != nil {
		return err
	}

	if args.JSON {
		printJSON(map[string]any{"signed_in": true, "email": creds.Email})
		return nil
	}

	fmt.Println(styles.RenderSuccess("Signed in."))
	if creds.Email != "" {
		fmt.Println(InfoStyle.Render("  account: " + creds.Email))
	}
	return nil
}

// authLogout removes the stored credentials.
func authLogout(store *auth.Store, args Args) error {
	if err := store.Clear(); err != nil {
		return WrapError(err, "failed to remove credentials")
	}
	if !args.Quiet {
		fmt.Println(styles.RenderSuccess("Signed out."))
	}
	return nil
}

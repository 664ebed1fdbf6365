// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// subscription.go - Subscription plan selection.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// knownPlans lists the plans the backend accepts.
var knownPlans = []string{"free", "pro", "enterprise"}

// HandleSubscription handles the "subscription" command.
func HandleSubscription(args Args) error {
	plan := strings.ToLower(args.Subcommand)
	if plan == "" || strings.HasPrefix(plan, "-") {
		plan = strings.ToLower(NewArgParser(args.Raw).Flag("plan"))
	}
	if plan == "" {
		return ErrMissingArgument("plan", "comply subscription <free|pro|enterprise>")
	}
	if !validPlan(plan) {
		return NewUsageError("unknown plan: "+plan,
			"comply subscription <"+strings.Join(knownPlans, "|")+">")
	}

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
	if creds.UserID == "" {
		return fmt.Errorf("stored credentials carry no user id; sign in again with 'comply auth login'")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := client.SelectSubscription(ctx, creds.UserID, plan); err != nil {
		return WrapError(err, "subscription change failed")
	}

	if !args.Quiet {
		fmt.Println(styles.RenderSuccess("Subscription set to " + plan + "."))
	}
	return nil
}

func validPlan(plan string) bool {
	for _, p := range knownPlans {
		if p == plan {
			return true
		}
	}
	return false
}

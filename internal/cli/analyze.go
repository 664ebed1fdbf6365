// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// analyze.go - Document analysis, recommendations, and policy fetch.
//
// "comply analyze" uploads a document and reports policy violations.
// "comply recommend" does the same, then asks the backend for
// remediation recommendations based on the violations found.
// "comply policy" fetches a policy document and renders it.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/config"
	"github.com/jeranaias/comply-tui/internal/session"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// analyzeTimeout bounds the upload-analyze-recommend pipeline. Analysis
// of large documents is slow on the backend side.
const analyzeTimeout = 3 * time.Minute

// HandleAnalyze handles the "analyze" command.
func HandleAnalyze(args Args) error {
	result, _, err := runAnalysis(args)
	if err != nil {
		return err
	}

	if args.JSON {
		printJSON(result)
		return nil
	}
	printViolations(result.Violations)
	return nil
}

// HandleRecommend handles the "recommend" command: analyze first, then
// generate remediation recommendations from the violations.
func HandleRecommend(args Args) error {
	result, env, err := runAnalysis(args)
	if err != nil {
		return err
	}

	if len(result.Violations) == 0 {
		if args.JSON {
			printJSON(map[string]any{"violations": []any{}, "recommendations": []any{}})
			return nil
		}
		fmt.Println(styles.RenderSuccess("No violations found, nothing to recommend."))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	recs, err := env.client.GenerateRecommendations(ctx, env.sessionID, result.Violations, result.PairedContexts)
	if err != nil {
		return WrapError(err, "recommendation generation failed")
	}

	if args.JSON {
		printJSON(map[string]any{
			"violations":      result.Violations,
			"recommendations": recs,
		})
		return nil
	}

	printViolations(result.Violations)
	printRecommendations(recs, args.Plain)
	return nil
}

// HandlePolicy fetches a policy document and renders it.
func HandlePolicy(args Args) error {
	docURL := strings.TrimSpace(args.Query)
	if docURL == "" {
		return ErrMissingArgument("policy url", "comply policy <url>")
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

	content, err := client.FetchPolicyDocument(ctx, docURL)
	if err != nil {
		return err
	}

	displayMarkdown(content, args.Plain)
	return nil
}

// =============================================================================
// ANALYSIS PIPELINE
// =============================================================================

// analysisEnv carries the wiring runAnalysis sets up so HandleRecommend
// can make the follow-up call.
type analysisEnv struct {
	client    *backend.Client
	sessionID string
}

// runAnalysis uploads the document and runs the violation analysis.
func runAnalysis(args Args) (*backend.AnalyzeResult, *analysisEnv, error) {
	path := args.File
	if path == "" {
		return nil, nil, ErrMissingArgument("document", "comply analyze <file>")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, WrapError(err, "cannot read "+path)
	}
	maxBytes := config.Global().Upload.MaxFileSizeMB * 1024 * 1024
	if info.Size() > maxBytes {
		return nil, nil, fmt.Errorf("file too large: %d bytes (limit %d)", info.Size(), maxBytes)
	}

	client, store, err := NewBackendClient(args)
	if err != nil {
		return nil, nil, err
	}
	if err := RequireAuth(store); err != nil {
		return nil, nil, err
	}

	sessions, err := session.NewManager()
	if err != nil {
		return nil, nil, WrapError(err, "failed to open session state")
	}
	sessionID, err := sessions.GetOrCreate()
	if err != nil {
		return nil, nil, WrapError(err, "failed to create session")
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, WrapError(err, "cannot open "+path)
	}
	upload, uploadErr := client.UploadDocument(ctx, filepath.Base(path), file)
	file.Close()
	if uploadErr != nil {
		return nil, nil, WrapError(uploadErr, "upload failed")
	}

	if !args.Quiet {
		fmt.Fprintln(os.Stderr, styles.RenderInfo("Uploaded "+filepath.Base(path)+", analyzing..."))
	}

	var policies []string
	if raw := args.Options["policies"]; raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				policies = append(policies, p)
			}
		}
	}

	result, err := client.AnalyzeDocument(ctx, sessionID, upload.DocumentURL(), policies)
	if err != nil {
		return nil, nil, WrapError(err, "analysis failed")
	}

	return result, &analysisEnv{client: client, sessionID: sessionID}, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// printViolations renders the violation list grouped by severity label.
func printViolations(violations []backend.Violation) {
	if len(violations) == 0 {
		fmt.Println(styles.RenderSuccess("No violations found."))
		return
	}

	fmt.Println(HeadingStyle.Render(fmt.Sprintf("Violations (%d)", len(violations))))
	for _, v := range violations {
		sev := strings.ToLower(v.Severity)
		label := severityStyle(sev).Render("[" + strings.ToUpper(sev) + "]")
		fmt.Printf("  %s %s\n", label, v.Title)
		if v.PolicyID != "" {
			fmt.Println(MutedStyle.Render("      policy: " + v.PolicyID))
		}
		if v.Description != "" {
			fmt.Println(InfoStyle.Render("      " + v.Description))
		}
	}
}

// printRecommendations renders remediation suggestions.
func printRecommendations(recs []backend.Recommendation, plain bool) {
	if len(recs) == 0 {
		fmt.Println(styles.RenderInfo("No recommendations returned."))
		return
	}

	fmt.Println()
	fmt.Println(HeadingStyle.Render(fmt.Sprintf("Recommendations (%d)", len(recs))))
	for i, r := range recs {
		title := r.Title
		if title == "" {
			title = fmt.Sprintf("Recommendation %d", i+1)
		}
		fmt.Printf("  %d. %s\n", i+1, title)
		if r.PolicyID != "" {
			fmt.Println(MutedStyle.Render("     policy: " + r.PolicyID))
		}
		body := r.Suggestion
		if body == "" {
			body = r.Description
		}
		if body != "" {
			displayMarkdown(body, plain)
		}
	}
}

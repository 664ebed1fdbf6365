// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Handles "comply ask": streams a single answer and exits. The command
// reuses the interactive turn controller so decode, trace aggregation,
// and error semantics match the TUI exactly.
//
// Examples:
//   comply ask "What does our retention policy require?"
//   comply ask "Summarize this" --file notes.md
//   comply ask --trace "Which policies apply to PII exports?"
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/chat"
	"github.com/jeranaias/comply-tui/internal/config"
	"github.com/jeranaias/comply-tui/internal/model"
	"github.com/jeranaias/comply-tui/internal/session"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// askTimeout bounds a single streamed answer.
const askTimeout = 5 * time.Minute

// documentUploader is the slice of the backend client attachFile needs.
type documentUploader interface {
	UploadDocument(ctx context.Context, name string, content io.Reader) (*backend.UploadResult, error)
}

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return ErrMissingArgument("question", `comply ask "question"`)
	}

	client, store, err := NewBackendClient(args)
	if err != nil {
		return err
	}
	if err := RequireAuth(store); err != nil {
		return err
	}

	sessions, err := session.NewManager()
	if err != nil {
		return WrapError(err, "failed to open session state")
	}
	sessionID, err := sessions.GetOrCreate()
	if err != nil {
		return WrapError(err, "failed to create session")
	}

	ctrl := chat.NewController(client, sessionID)
	ctrl.SetSessionHook(func(id string) {
		_ = sessions.Set(id)
	})

	showTrace := args.Options["trace"] == "true" || config.Global().Chat.ShowThinking && args.Verbose
	var answer *model.Message
	ctrl.SetEmitter(func(ev chat.Event) {
		switch ev.Kind {
		case chat.EventTrace:
			if showTrace && ev.Entry != nil {
				fmt.Fprintln(os.Stderr, TraceStyle.Render("  . "+traceLine(ev.Entry)))
			}
		case chat.EventMessage:
			answer = ev.Message
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	if args.File != "" {
		if err := attachFile(ctx, ctrl, client, args.File); err != nil {
			return err
		}
	}

	if err := ctrl.Send(ctx, query); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return WrapError(err, "query failed")
	}

	if answer == nil {
		return fmt.Errorf("backend returned no answer")
	}
	if answer.IsError {
		return errors.New(answer.Content)
	}

	if args.JSON {
		printJSON(map[string]string{
			"session_id": ctrl.SessionID(),
			"answer":     answer.Content,
		})
		return nil
	}

	displayMarkdown(answer.Content, args.Plain)
	return nil
}

// attachFile uploads a local document and pins it to the next turn.
func attachFile(ctx context.Context, ctrl *chat.Controller, uploader documentUploader, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return WrapError(err, "cannot read "+path)
	}
	maxBytes := config.Global().Upload.MaxFileSizeMB * 1024 * 1024
	if info.Size() > maxBytes {
		return fmt.Errorf("file too large: %d bytes (limit %d)", info.Size(), maxBytes)
	}

	file, err := os.Open(path)
	if err != nil {
		return WrapError(err, "cannot open "+path)
	}
	defer file.Close()

	result, err := uploader.UploadDocument(ctx, filepath.Base(path), file)
	if err != nil {
		return WrapError(err, "upload failed")
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	ctrl.SetAttachment(&model.Attachment{
		Name: filepath.Base(path),
		URL:  result.DocumentURL(),
		Type: model.DocumentTypeFor(contentType),
		Size: info.Size(),
	})

	fmt.Fprintln(os.Stderr, styles.RenderInfo("Attached "+filepath.Base(path)))
	return nil
}

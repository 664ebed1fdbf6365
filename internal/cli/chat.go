// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive plain-terminal chat command.
//
// Handles "comply chat": a readline-style REPL over the same turn
// controller the TUI uses. Useful over SSH or anywhere the full
// alternate-screen TUI is unwanted.
//
// Interactive commands (during chat):
//   /help           Show available commands
//   /new            Start a new session
//   /sessions       List remote sessions
//   /load <id>      Load a session transcript
//   /trace          Toggle thinking-trace output
//   /quit           Exit chat
//   Ctrl+C          Cancel current generation
//   Ctrl+D          Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/chat"
	"github.com/jeranaias/comply-tui/internal/config"
	"github.com/jeranaias/comply-tui/internal/model"
	"github.com/jeranaias/comply-tui/internal/session"
	"github.com/jeranaias/comply-tui/internal/storage"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history loaded from the config dir.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.loadHistory()
	return c
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists command history with owner-only permissions.
func (c *ChatCLI) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.saveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// chatREPL holds the state for one interactive chat run.
type chatREPL struct {
	cfg        *config.Config
	client     *backend.Client
	controller *chat.Controller
	sessions   *session.Manager
	history    *storage.History // nil when the local cache is disabled
	input      *ChatCLI

	showTrace bool
	plain     bool
	quiet     bool
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	cfg := config.Global()

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

	repl := &chatREPL{
		cfg:        cfg,
		client:     client,
		controller: chat.NewController(client, sessionID),
		sessions:   sessions,
		input:      NewChatCLI(),
		showTrace:  cfg.Chat.ShowThinking,
		plain:      args.Plain,
		quiet:      args.Quiet,
	}
	defer repl.input.Close()

	if cfg.History.Enabled {
		if h, err := openHistoryCache(cfg); err == nil {
			repl.history = h
			defer h.Close()
		}
	}

	repl.controller.SetEmitter(repl.printEvent)
	repl.controller.SetSessionHook(func(id string) {
		_ = sessions.Set(id)
	})

	if !repl.quiet {
		fmt.Println(HeadingStyle.Render("comply chat"))
		fmt.Println(InfoStyle.Render("Type /help for commands, /quit to exit."))
		fmt.Println()
	}

	return repl.loop()
}

// loop runs the read-send-print cycle until the user exits.
func (r *chatREPL) loop() error {
	for {
		input, err := r.input.ReadInput(PromptStyle.Render("> "))
		if err != nil {
			// Ctrl+D ends the session; Ctrl+C at the prompt just clears it.
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, err := r.command(input)
			if err != nil {
				fmt.Println(styles.RenderError(err.Error()))
			}
			if done {
				return nil
			}
			continue
		}

		r.sendTurn(input)
	}
}

// sendTurn streams one reply, canceling on Ctrl+C.
func (r *chatREPL) sendTurn(text string) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := r.controller.Send(ctx, text)
	cancel()
	signal.Stop(sigs)

	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println(styles.RenderWarning("Canceled."))
	case err != nil:
		fmt.Println(styles.RenderError(err.Error()))
	}

	r.persistTurn()
}

// printEvent renders controller events as they arrive. Send runs on
// this goroutine, so printing inline keeps output ordered.
func (r *chatREPL) printEvent(ev chat.Event) {
	switch ev.Kind {
	case chat.EventTrace:
		if r.showTrace && ev.Entry != nil {
			fmt.Println(TraceStyle.Render("  . " + traceLine(ev.Entry)))
		}
	case chat.EventMessage:
		if ev.Message == nil {
			return
		}
		if ev.Message.IsError {
			fmt.Println(styles.RenderError(ev.Message.Content))
			return
		}
		fmt.Println()
		displayMarkdown(ev.Message.Content, r.plain)
	}
}

// traceLine flattens a trace entry into one line of text.
func traceLine(e *chat.TraceEntry) string {
	text := strings.TrimSpace(e.Text)
	if len(e.URLs) > 0 {
		text += " [" + strings.Join(e.URLs, ", ") + "]"
	}
	return text
}

// command handles a slash command; done=true means exit the REPL.
func (r *chatREPL) command(input string) (done bool, err error) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help", "/h":
		fmt.Println(InfoStyle.Render(strings.Join([]string{
			"  /new            start a new session",
			"  /sessions       list remote sessions",
			"  /load <id>      load a session transcript",
			"  /trace          toggle thinking-trace output",
			"  /quit           exit",
		}, "\n")))
		return false, nil

	case "/new":
		id, err := r.sessions.Rotate()
		if err != nil {
			return false, err
		}
		if err := r.controller.Reset(id); err != nil {
			return false, err
		}
		fmt.Println(styles.RenderSuccess("Started a new session."))
		return false, nil

	case "/sessions":
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		sessions, err := r.client.ListSessions(ctx)
		if err != nil {
			return false, err
		}
		printSessionList(sessions)
		return false, nil

	case "/load":
		if len(args) != 1 {
			return false, NewUsageError("missing session id", "/load <id>")
		}
		return false, r.loadTranscript(args[0])

	case "/trace":
		r.showTrace = !r.showTrace
		if r.showTrace {
			fmt.Println(styles.RenderInfo("Thinking trace on."))
		} else {
			fmt.Println(styles.RenderInfo("Thinking trace off."))
		}
		return false, nil

	case "/quit", "/q", "/exit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// loadTranscript replaces the conversation with a remote transcript.
func (r *chatREPL) loadTranscript(sessionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	remote, err := r.client.SessionMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	msgs := make([]*model.Message, 0, len(remote))
	for _, rm := range remote {
		msgs = append(msgs, model.NewMessage(model.Role(rm.Role), rm.Content))
	}
	if err := r.controller.LoadTranscript(sessionID, msgs); err != nil {
		return err
	}
	_ = r.sessions.Set(sessionID)

	fmt.Println(styles.RenderSuccess(fmt.Sprintf("Loaded %d messages from %s.", len(msgs), sessionID)))
	for _, m := range msgs {
		fmt.Println(MutedStyle.Render(m.Role.DisplayName() + ":"))
		displayMarkdown(m.Content, r.plain)
	}
	return nil
}

// persistTurn snapshots the conversation into the local cache.
func (r *chatREPL) persistTurn() {
	if r.history == nil {
		return
	}
	conv := r.controller.Conversation()
	if conv.IsEmpty() {
		return
	}

	cached := storage.CachedSession{
		ID:    r.controller.SessionID(),
		Title: conv.Title,
	}
	for _, msg := range conv.Messages {
		cached.Messages = append(cached.Messages, storage.CachedMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	_ = r.history.SaveSession(cached)
}

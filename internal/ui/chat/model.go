// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/comply-tui/internal/backend"
	"github.com/jeranaias/comply-tui/internal/chat"
	"github.com/jeranaias/comply-tui/internal/config"
	"github.com/jeranaias/comply-tui/internal/session"
	"github.com/jeranaias/comply-tui/internal/storage"
	"github.com/jeranaias/comply-tui/internal/ui/components"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// eventBuffer sizes the controller-to-UI event channel. Trace events
// arrive in bursts while a reply streams.
const eventBuffer = 64

// =============================================================================
// CANCEL MANAGER
// =============================================================================

// cancelManager holds the active stream's cancel function. It lives behind
// a pointer so Bubble Tea's model copies share one instance.
type cancelManager struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *cancelManager) set(fn context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = fn
}

// fire cancels the active stream, if any. Returns whether there was one.
func (c *cancelManager) fire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	return true
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int
	ready  bool

	// Core wiring
	controller *chat.Controller
	client     *backend.Client
	sessions   *session.Manager
	history    *storage.History // nil when the local cache is disabled
	cfg        *config.Config

	// Controller events cross from the stream goroutine to the Bubble Tea
	// loop through this channel.
	events chan chat.Event

	// UI components
	viewport    viewport.Model
	input       textinput.Model
	spinner     components.ThinkingSpinner
	traceView   components.TraceView
	messageView components.MessageView
	statusBar   components.StatusBar
	welcome     components.Welcome

	// Key bindings
	keys KeyMap

	// Stream cancellation
	cancelMgr *cancelManager

	// Turn whose trace is currently on screen. ctrl+t toggles it.
	traceTurn int

	// Transient notice shown above the input (session lists, errors).
	notice    string
	noticeErr bool
}

// Options configures a new chat model.
type Options struct {
	Client   *backend.Client
	Sessions *session.Manager
	History  *storage.History
	Config   *config.Config
	Version  string
}

// New creates the chat model and wires the turn controller to the UI
// event channel.
func New(opts Options) Model {
	theme := styles.NewTheme()

	input := textinput.New()
	input.Placeholder = "Ask about policy requirements..."
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	sessionID := ""
	if opts.Sessions != nil {
		sessionID, _ = opts.Sessions.GetOrCreate()
	}

	ctrl := chat.NewController(opts.Client, sessionID)
	events := make(chan chat.Event, eventBuffer)
	ctrl.SetEmitter(func(ev chat.Event) {
		events <- ev
	})
	if opts.Sessions != nil {
		mgr := opts.Sessions
		ctrl.SetSessionHook(func(id string) {
			mgr.Set(id)
		})
	}

	m := Model{
		theme:       theme,
		controller:  ctrl,
		client:      opts.Client,
		sessions:    opts.Sessions,
		history:     opts.History,
		cfg:         cfg,
		events:      events,
		input:       input,
		spinner:     components.NewThinkingSpinner(theme),
		traceView:   components.NewTraceView(theme),
		messageView: components.NewMessageView(theme, cfg.UI.ShowTimestamps),
		statusBar:   components.NewStatusBar(theme),
		welcome:     components.NewWelcome(theme, opts.Version),
		keys:        DefaultKeyMap(),
		cancelMgr:   &cancelManager{},
		traceTurn:   -1,
	}
	return m
}

// Init starts the input cursor blink and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent())
}

// waitForEvent blocks on the controller event channel and forwards the
// next event into the Bubble Tea loop.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return streamEventMsg{Event: <-events}
	}
}

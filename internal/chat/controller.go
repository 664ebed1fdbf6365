// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/comply-tui/internal/model"
)

// ====== TURN LIFECYCLE ======

// TurnState tracks where the active turn is in its lifecycle.
type TurnState int

const (
	// StateComposing means no turn is in flight; input is editable.
	StateComposing TurnState = iota
	// StateSent means the user turn was dispatched but no stream payload
	// has arrived yet.
	StateSent
	// StateStreaming means payloads are arriving for the active turn.
	StateStreaming
	// StateFinal means the active turn completed with an answer.
	StateFinal
	// StateError means the active turn completed with an error line.
	StateError
)

// String returns a short name for the state.
func (s TurnState) String() string {
	switch s {
	case StateComposing:
		return "composing"
	case StateSent:
		return "sent"
	case StateStreaming:
		return "streaming"
	case StateFinal:
		return "final"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// TransportErrorMessage is the bot line shown when the stream request
// itself fails, as opposed to the backend reporting an error payload.
const TransportErrorMessage = "Error contacting backend (stream)."

// Error variables for send preconditions.
var (
	// ErrEmptyMessage indicates a blank input submit; callers ignore it.
	ErrEmptyMessage = errors.New("empty message")

	// ErrTurnInFlight indicates a send while a turn is still streaming.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrConversationFull indicates the transcript hit its message cap.
	ErrConversationFull = errors.New("conversation is full")
)

// ====== EVENTS ======

// EventKind discriminates controller events.
type EventKind int

const (
	// EventTrace means a trace entry was appended to the active turn.
	EventTrace EventKind = iota
	// EventMessage means a bot message (answer or error line) landed.
	EventMessage
	// EventSession means the backend issued a new session checkpoint.
	EventSession
)

// Event is a notification from the controller to its UI. Events fire from
// the goroutine driving the stream.
type Event struct {
	Kind      EventKind
	Turn      int
	Entry     *TraceEntry    // set for EventTrace
	Message   *model.Message // set for EventMessage
	SessionID string         // set for EventSession
}

// ====== STREAMER ======

// Streamer opens a streaming query against the backend and delivers each
// decoded payload to the handler in stream order.
type Streamer interface {
	Stream(ctx context.Context, sessionID, message string, attachment *model.Attachment, handler func(Payload)) error
}

// ====== CONTROLLER ======

// Controller drives chat turns: it appends the user message, opens a trace
// slot, runs the stream, folds payloads into the trace, and lands the bot
// message when the turn resolves. One turn is in flight at a time.
type Controller struct {
	mu sync.Mutex

	conv      *model.Conversation
	traces    *TraceStore
	streamer  Streamer
	sessionID string

	state      TurnState
	activeTurn int

	attachment *model.Attachment

	emit      func(Event)
	onSession func(id string)
}

// NewController creates a controller over a fresh conversation.
func NewController(streamer Streamer, sessionID string) *Controller {
	return &Controller{
		conv:       model.NewConversation(),
		traces:     NewTraceStore(),
		streamer:   streamer,
		sessionID:  sessionID,
		state:      StateComposing,
		activeTurn: -1,
		emit:       func(Event) {},
		onSession:  func(string) {},
	}
}

// SetEmitter registers the event sink. Must be set before Send; events
// fire from the streaming goroutine.
func (c *Controller) SetEmitter(fn func(Event)) {
	if fn == nil {
		fn = func(Event) {}
	}
	c.mu.Lock()
	c.emit = fn
	c.mu.Unlock()
}

// SetSessionHook registers a callback fired when a checkpoint changes the
// session id, in addition to the EventSession event. Used to persist the
// id to disk.
func (c *Controller) SetSessionHook(fn func(string)) {
	if fn == nil {
		fn = func(string) {}
	}
	c.mu.Lock()
	c.onSession = fn
	c.mu.Unlock()
}

// SessionID returns the current backend session id.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetSessionID replaces the session id, e.g. when the user switches to
// another remote session.
func (c *Controller) SetSessionID(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

// State returns the active turn's lifecycle state.
func (c *Controller) State() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveTurn returns the turn index the stream is feeding, or -1.
func (c *Controller) ActiveTurn() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeTurn
}

// Busy reports whether a turn is currently in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateSent || c.state == StateStreaming
}

// Conversation returns a snapshot of the transcript.
func (c *Controller) Conversation() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Clone()
}

// Traces exposes the trace store for rendering and collapse toggling.
func (c *Controller) Traces() *TraceStore {
	return c.traces
}

// Attachment returns the file pinned to the next turn, or nil.
func (c *Controller) Attachment() *model.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachment
}

// SetAttachment pins an uploaded file to the next turn.
func (c *Controller) SetAttachment(a *model.Attachment) {
	c.mu.Lock()
	c.attachment = a
	c.mu.Unlock()
}

// ClearAttachment unpins the attachment without sending it.
func (c *Controller) ClearAttachment() {
	c.mu.Lock()
	c.attachment = nil
	c.mu.Unlock()
}

// LoadTranscript replaces the conversation with messages fetched from a
// remote session. Only allowed while composing.
func (c *Controller) LoadTranscript(sessionID string, msgs []*model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSent || c.state == StateStreaming {
		return ErrTurnInFlight
	}
	conv := model.NewConversation()
	conv.SessionID = sessionID
	for _, m := range msgs {
		conv.AddMessage(m)
	}
	c.conv = conv
	c.traces = NewTraceStore()
	c.sessionID = sessionID
	c.state = StateComposing
	c.activeTurn = -1
	return nil
}

// Reset starts a new conversation with the given session id.
func (c *Controller) Reset(sessionID string) error {
	return c.LoadTranscript(sessionID, nil)
}

// Send runs one chat turn to completion. It blocks until the stream ends,
// so callers run it on their own goroutine (the TUI wraps it in a tea.Cmd,
// the REPL calls it directly). Cancelling the context aborts the stream
// and returns the turn to the composing state with its partial trace kept.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state == StateSent || c.state == StateStreaming {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	if c.conv.Full() {
		c.mu.Unlock()
		return ErrConversationFull
	}
	attachment := c.attachment
	turn, _ := c.conv.AddUserMessage(text, attachment)
	c.traces.InitSlot(turn)
	c.state = StateSent
	c.activeTurn = turn
	sessionID := c.sessionID
	c.mu.Unlock()

	err := c.streamer.Stream(ctx, sessionID, text, attachment, func(p Payload) {
		c.handlePayload(p, turn)
	})

	c.mu.Lock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// User cancel: keep the partial trace, no bot message.
			c.state = StateComposing
			c.mu.Unlock()
			return err
		}
		// A turn that already resolved (final answer or error payload)
		// stays resolved; a late connection drop adds nothing.
		if c.state == StateFinal || c.state == StateError {
			c.mu.Unlock()
			return err
		}
		// Transport failure: the turn resolves with a generic error
		// line. The partial trace stays visible for debugging. The
		// emitter runs outside the lock, like every handlePayload path.
		msg := c.conv.AddErrorMessage(TransportErrorMessage)
		c.state = StateError
		c.attachment = nil
		emit := c.emit
		c.mu.Unlock()
		emit(Event{Kind: EventMessage, Turn: turn, Message: msg})
		return err
	}

	// Stream ended without a final or error payload. The trace holds
	// whatever arrived; input unlocks.
	if c.state == StateSent || c.state == StateStreaming {
		c.state = StateComposing
	}
	c.mu.Unlock()
	return nil
}

// handlePayload folds one stream payload into the turn. Runs on the
// streaming goroutine.
func (c *Controller) handlePayload(p Payload, turn int) {
	c.mu.Lock()
	if c.state == StateSent {
		c.state = StateStreaming
	}
	c.mu.Unlock()

	result := Dispatch(c.traces, p, turn)

	switch result.Kind {
	case ResultFinal:
		c.mu.Lock()
		msg := c.conv.AddAssistantMessage(result.Content)
		c.state = StateFinal
		c.attachment = nil
		emit := c.emit
		c.mu.Unlock()
		emit(Event{Kind: EventMessage, Turn: turn, Message: msg})

	case ResultError:
		c.mu.Lock()
		msg := c.conv.AddErrorMessage(result.Message)
		c.state = StateError
		c.attachment = nil
		emit := c.emit
		c.mu.Unlock()
		emit(Event{Kind: EventMessage, Turn: turn, Message: msg})

	default:
		// Checkpoints ride on trace-class payloads; a new id is
		// adopted for the next turn and persisted via the hook.
		if p.Type() == "checkpoint" {
			if id := strings.TrimSpace(p.field("checkpoint_id")); id != "" {
				c.mu.Lock()
				c.sessionID = id
				c.conv.SessionID = id
				emit := c.emit
				hook := c.onSession
				c.mu.Unlock()
				hook(id)
				emit(Event{Kind: EventSession, Turn: turn, SessionID: id})
				return
			}
		}
		if result.Entry != nil {
			c.mu.Lock()
			emit := c.emit
			c.mu.Unlock()
			emit(Event{Kind: EventTrace, Turn: turn, Entry: result.Entry})
		}
	}
}

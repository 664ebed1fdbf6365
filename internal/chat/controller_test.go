// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/comply-tui/internal/model"
)

// scriptStreamer replays a fixed payload sequence to the handler.
type scriptStreamer struct {
	payloads []Payload
	err      error

	mu       sync.Mutex
	lastSess string
	lastMsg  string
	lastAtt  *model.Attachment
}

func (s *scriptStreamer) Stream(ctx context.Context, sessionID, message string, attachment *model.Attachment, handler func(Payload)) error {
	s.mu.Lock()
	s.lastSess = sessionID
	s.lastMsg = message
	s.lastAtt = attachment
	s.mu.Unlock()

	for _, p := range s.payloads {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		handler(p)
	}
	return s.err
}

// collectEvents returns an emitter that records events under a lock.
func collectEvents(events *[]Event, mu *sync.Mutex) func(Event) {
	return func(e Event) {
		mu.Lock()
		*events = append(*events, e)
		mu.Unlock()
	}
}

func TestControllerRejectsBlankInput(t *testing.T) {
	c := NewController(&scriptStreamer{}, "sess-1")
	err := c.Send(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.True(t, c.Conversation().IsEmpty())
	assert.Equal(t, StateComposing, c.State())
}

func TestControllerSuccessfulTurn(t *testing.T) {
	streamer := &scriptStreamer{payloads: []Payload{
		{"type": "search_start", "query": "retention policy"},
		{"type": "content", "content": "Looking..."},
		{"type": "final", "content": "Here is the answer."},
	}}
	c := NewController(streamer, "sess-1")

	var mu sync.Mutex
	var events []Event
	c.SetEmitter(collectEvents(&events, &mu))

	err := c.Send(context.Background(), "is this compliant?")
	require.NoError(t, err)

	conv := c.Conversation()
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "is this compliant?", conv.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Here is the answer.", conv.Messages[1].Content)
	assert.False(t, conv.Messages[1].IsError)

	assert.Equal(t, StateFinal, c.State())
	assert.Equal(t, "sess-1", streamer.lastSess)
	assert.True(t, c.Traces().Collapsed(0), "final should collapse the trace")

	entries := c.Traces().Entries(0)
	require.Len(t, entries, 2)
	assert.Equal(t, EntrySearchStart, entries[0].Kind)
	assert.Equal(t, EntryContent, entries[1].Kind)

	mu.Lock()
	defer mu.Unlock()
	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{EventTrace, EventTrace, EventMessage}, kinds)
}

func TestControllerErrorPayload(t *testing.T) {
	streamer := &scriptStreamer{payloads: []Payload{
		{"type": "thinking", "content": "partial"},
		{"type": "error", "error": "boom"},
	}}
	c := NewController(streamer, "sess-1")

	err := c.Send(context.Background(), "hello")
	require.NoError(t, err)

	conv := c.Conversation()
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, "Error: boom", conv.Messages[1].Content)
	assert.True(t, conv.Messages[1].IsError)
	assert.Equal(t, StateError, c.State())
	assert.Nil(t, c.Traces().Entries(0), "error must clear the turn's trace")
}

func TestControllerTransportFailure(t *testing.T) {
	streamer := &scriptStreamer{
		payloads: []Payload{{"type": "content", "content": "partial"}},
		err:      errors.New("connection reset"),
	}
	c := NewController(streamer, "sess-1")

	err := c.Send(context.Background(), "hello")
	require.Error(t, err)

	conv := c.Conversation()
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, TransportErrorMessage, conv.Messages[1].Content)
	assert.True(t, conv.Messages[1].IsError)
	assert.Equal(t, StateError, c.State())
	// Unlike backend error payloads, a transport failure keeps the
	// partial trace for inspection.
	assert.Len(t, c.Traces().Entries(0), 1)
}

func TestControllerTransportFailureEmitterReadsState(t *testing.T) {
	streamer := &scriptStreamer{err: errors.New("connection reset")}
	c := NewController(streamer, "sess-1")

	// The emitter may call back into the controller (the REPL does).
	// Send must never hold its lock across an emit.
	var seenState TurnState
	var seenCount int
	c.SetEmitter(func(ev Event) {
		seenState = c.State()
		seenCount = c.Conversation().MessageCount()
	})

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hello") }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked with a re-entrant emitter on the transport-failure path")
	}

	assert.Equal(t, StateError, seenState)
	assert.Equal(t, 2, seenCount)
}

func TestControllerTransportFailureAfterFinalKeepsAnswer(t *testing.T) {
	// The connection drops after the final payload already landed. The
	// resolved turn must not gain a synthetic error line.
	streamer := &scriptStreamer{
		payloads: []Payload{{"type": "final", "content": "the answer"}},
		err:      errors.New("connection reset during drain"),
	}
	c := NewController(streamer, "sess-1")

	err := c.Send(context.Background(), "hello")
	require.Error(t, err)

	conv := c.Conversation()
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, "the answer", conv.Messages[1].Content)
	assert.False(t, conv.Messages[1].IsError)
	assert.Equal(t, StateFinal, c.State())
}

func TestControllerCheckpointUpdatesSession(t *testing.T) {
	streamer := &scriptStreamer{payloads: []Payload{
		{"type": "checkpoint", "checkpoint_id": "sess-2"},
		{"type": "final", "content": "done"},
	}}
	c := NewController(streamer, "sess-1")

	var hooked string
	c.SetSessionHook(func(id string) { hooked = id })

	require.NoError(t, c.Send(context.Background(), "hello"))

	assert.Equal(t, "sess-2", c.SessionID())
	assert.Equal(t, "sess-2", hooked)
	assert.Empty(t, c.Traces().Entries(0), "checkpoint itself yields no entry")
}

func TestControllerAttachmentLifecycle(t *testing.T) {
	streamer := &scriptStreamer{payloads: []Payload{
		{"type": "final", "content": "analyzed"},
	}}
	c := NewController(streamer, "sess-1")
	att := &model.Attachment{Name: "contract.pdf", URL: "https://files/contract.pdf", Type: model.DocumentFile}
	c.SetAttachment(att)

	require.NoError(t, c.Send(context.Background(), "check this"))

	assert.Equal(t, att, streamer.lastAtt, "attachment rides the request")
	assert.Nil(t, c.Attachment(), "final releases the attachment")
	conv := c.Conversation()
	require.NotNil(t, conv.Messages[0].Attachment)
	assert.Equal(t, "contract.pdf", conv.Messages[0].Attachment.Name)
}

func TestControllerBusyRejectsSecondSend(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	blocker := &blockingStreamer{release: release, started: started}
	c := NewController(blocker, "sess-1")

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()
	<-started

	err := c.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(release)
	require.NoError(t, <-done)
}

type blockingStreamer struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingStreamer) Stream(ctx context.Context, sessionID, message string, attachment *model.Attachment, handler func(Payload)) error {
	close(b.started)
	<-b.release
	handler(Payload{"type": "final", "content": "ok"})
	return nil
}

func TestControllerStreamEndWithoutTerminalUnlocks(t *testing.T) {
	streamer := &scriptStreamer{payloads: []Payload{
		{"type": "content", "content": "only trace"},
	}}
	c := NewController(streamer, "sess-1")

	require.NoError(t, c.Send(context.Background(), "hello"))
	assert.Equal(t, StateComposing, c.State())
	assert.Equal(t, 1, c.Conversation().MessageCount(), "no bot message without a terminal payload")
}

func TestControllerLoadTranscript(t *testing.T) {
	c := NewController(&scriptStreamer{}, "sess-1")
	msgs := []*model.Message{
		model.NewUserMessage("old question"),
		model.NewAssistantMessage("old answer"),
	}
	require.NoError(t, c.LoadTranscript("sess-9", msgs))

	assert.Equal(t, "sess-9", c.SessionID())
	assert.Equal(t, 2, c.Conversation().MessageCount())
	assert.Equal(t, StateComposing, c.State())
}

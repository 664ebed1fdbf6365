// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "testing"

func TestDispatchFinalWithContent(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntryContent, Text: "ignored"})

	res := Dispatch(s, Payload{"type": "final", "content": "the answer"}, 0)
	if res.Kind != ResultFinal {
		t.Fatalf("kind = %v, want final", res.Kind)
	}
	if res.Content != "the answer" {
		t.Errorf("content = %q", res.Content)
	}
	if !s.Collapsed(0) {
		t.Error("final must collapse the turn's trace")
	}
}

func TestDispatchFinalSynthesizesFromTrace(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntryContent, Text: "Hello "})
	s.Append(0, &TraceEntry{Kind: EntryText, Text: "world"})

	res := Dispatch(s, Payload{"type": "final"}, 0)
	if res.Kind != ResultFinal || res.Content != "Hello world" {
		t.Fatalf("result = %+v, want synthesized %q", res, "Hello world")
	}
}

func TestDispatchFinalBlankContentSynthesizes(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntryContent, Text: "fallback"})

	res := Dispatch(s, Payload{"type": "final", "content": "   "}, 0)
	if res.Content != "fallback" {
		t.Errorf("content = %q, want trace synthesis", res.Content)
	}
}

func TestDispatchFinalEmptyTracePlaceholder(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)

	res := Dispatch(s, Payload{"type": "final"}, 0)
	if res.Content != NoContentPlaceholder {
		t.Errorf("content = %q, want %q", res.Content, NoContentPlaceholder)
	}
}

func TestDispatchError(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntryContent, Text: "partial"})

	res := Dispatch(s, Payload{"type": "error", "error": "boom"}, 0)
	if res.Kind != ResultError {
		t.Fatalf("kind = %v, want error", res.Kind)
	}
	if res.Message != "Error: boom" {
		t.Errorf("message = %q, want %q", res.Message, "Error: boom")
	}
	if got := s.Entries(0); got != nil {
		t.Errorf("error must clear the trace, got %+v", got)
	}
}

func TestDispatchTracePayloadsAppendInOrder(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)

	resA := Dispatch(s, Payload{"type": "content", "content": "A"}, 0)
	resB := Dispatch(s, Payload{"type": "content", "content": "B"}, 0)
	if resA.Kind != ResultTrace || resB.Kind != ResultTrace {
		t.Fatalf("kinds = %v, %v, want trace", resA.Kind, resB.Kind)
	}
	if resA.Entry == nil || resA.Entry.Text != "A" {
		t.Errorf("first entry = %+v", resA.Entry)
	}

	entries := s.Entries(0)
	if len(entries) != 2 || entries[0].Text != "A" || entries[1].Text != "B" {
		t.Errorf("entries = %+v", entries)
	}
	for _, e := range entries {
		if e.Kind != EntryContent {
			t.Errorf("kind = %v, want content", e.Kind)
		}
	}
}

func TestDispatchCheckpointLeavesTraceUntouched(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)

	res := Dispatch(s, Payload{"type": "checkpoint", "checkpoint_id": "ck-1"}, 0)
	if res.Kind != ResultTrace || res.Entry != nil {
		t.Fatalf("result = %+v, want empty trace result", res)
	}
	if got := s.Entries(0); got != nil {
		t.Errorf("checkpoint must not touch the trace, got %+v", got)
	}
}

func TestDispatchUndisplayablePayloadNoEntry(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)

	res := Dispatch(s, Payload{"type": "search_start"}, 0)
	if res.Kind != ResultTrace || res.Entry != nil {
		t.Fatalf("result = %+v", res)
	}
	if got := s.Entries(0); got != nil {
		t.Errorf("entries = %+v", got)
	}
}

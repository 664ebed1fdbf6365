// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"testing"
)

func TestTraceStoreAppendOrder(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntryContent, Text: "A"})
	s.Append(0, &TraceEntry{Kind: EntryContent, Text: "B"})

	entries := s.Entries(0)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Text != "A" || entries[1].Text != "B" {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestTraceStoreAppendDropsInvalid(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, nil)
	s.Append(0, &TraceEntry{Kind: EntryText, Text: "   "})
	s.Append(-1, &TraceEntry{Kind: EntryText, Text: "negative turn"})

	if got := s.Entries(0); got != nil {
		t.Errorf("expected empty log, got %+v", got)
	}
	if got := s.Entries(-1); got != nil {
		t.Errorf("expected nothing at turn -1, got %+v", got)
	}
}

func TestTraceStoreURLsOnlyEntryKept(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntrySearchResults, URLs: []string{"https://a.example"}})
	if got := s.Entries(0); len(got) != 1 {
		t.Fatalf("entries = %+v", got)
	}
}

func TestTraceStoreInitSlotResets(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(2)
	s.Append(2, &TraceEntry{Kind: EntryText, Text: "old"})
	s.Collapse(2)

	s.InitSlot(2)
	if got := s.Entries(2); got != nil {
		t.Errorf("expected reset log, got %+v", got)
	}
	if s.Collapsed(2) {
		t.Error("InitSlot should expand the slot")
	}
}

func TestTraceStoreClear(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntryText, Text: "x"})
	s.Clear(0)
	if got := s.Entries(0); got != nil {
		t.Errorf("expected cleared log, got %+v", got)
	}
}

func TestTraceStoreCollapsePerTurn(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.InitSlot(2)

	s.ToggleCollapse(0)
	if !s.Collapsed(0) {
		t.Error("turn 0 should be collapsed")
	}
	if s.Collapsed(2) {
		t.Error("turn 2 must be unaffected by turn 0's toggle")
	}

	s.ToggleCollapse(0)
	if s.Collapsed(0) {
		t.Error("second toggle should expand turn 0")
	}

	s.Collapse(2)
	if !s.Collapsed(2) {
		t.Error("Collapse should mark turn 2")
	}
}

func TestTraceStoreEntriesReturnsCopy(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntryText, Text: "original"})

	entries := s.Entries(0)
	entries[0].Text = "mutated"

	if got := s.Entries(0); got[0].Text != "original" {
		t.Errorf("store was mutated through the returned slice: %q", got[0].Text)
	}
}

func TestTraceStoreConcurrentAppendAndRead(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Append(0, &TraceEntry{Kind: EntryText, Text: "entry"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Entries(0)
			_ = s.Collapsed(0)
		}
	}()
	wg.Wait()

	if got := len(s.Entries(0)); got != 200 {
		t.Errorf("len = %d, want 200", got)
	}
}

func TestTraceStoreSynthesize(t *testing.T) {
	s := NewTraceStore()
	s.InitSlot(0)
	s.Append(0, &TraceEntry{Kind: EntryContent, Text: "Hello "})
	s.Append(0, &TraceEntry{Kind: EntryText, Text: "world"})

	if got := s.synthesize(0); got != "Hello world" {
		t.Errorf("synthesize = %q, want %q", got, "Hello world")
	}
	if got := s.synthesize(9); got != "" {
		t.Errorf("empty turn synthesize = %q, want empty", got)
	}
}

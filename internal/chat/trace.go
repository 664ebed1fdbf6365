// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
)

// ====== TRACE STORE ======

// TraceStore keeps the thinking trace for each turn of a conversation,
// keyed by the index of the user message the trace belongs to. The UI
// reads entries while the stream goroutine appends, so all access is
// mutex-guarded and reads return copies.
type TraceStore struct {
	mu        sync.Mutex
	logs      map[int][]TraceEntry
	collapsed map[int]bool
}

// NewTraceStore creates an empty trace store.
func NewTraceStore() *TraceStore {
	return &TraceStore{
		logs:      make(map[int][]TraceEntry),
		collapsed: make(map[int]bool),
	}
}

// InitSlot resets the trace for a turn to an empty, expanded log.
// Called when the user turn is sent, before any stream event arrives.
func (s *TraceStore) InitSlot(turn int) {
	if turn < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[turn] = nil
	delete(s.collapsed, turn)
}

// Append adds an entry to a turn's trace. Nil entries, blank entries
// without URLs, and invalid turn indexes are ignored so callers can pass
// Normalize output straight through.
func (s *TraceStore) Append(turn int, e *TraceEntry) {
	if turn < 0 || e == nil {
		return
	}
	if strings.TrimSpace(e.Text) == "" && len(e.URLs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[turn] = append(s.logs[turn], *e)
}

// Entries returns a copy of a turn's trace log in arrival order.
func (s *TraceStore) Entries(turn int) []TraceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[turn]
	if len(log) == 0 {
		return nil
	}
	out := make([]TraceEntry, len(log))
	copy(out, log)
	return out
}

// Clear removes a turn's trace entirely. Used when the backend reports an
// error so a stale partial trace never lingers under the failed turn.
func (s *TraceStore) Clear(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, turn)
}

// Collapse marks a turn's trace as collapsed. Applied automatically when
// the final answer lands.
func (s *TraceStore) Collapse(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collapsed[turn] = true
}

// ToggleCollapse flips a turn's collapse flag. Each turn's flag is
// independent of every other turn's.
func (s *TraceStore) ToggleCollapse(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collapsed[turn] = !s.collapsed[turn]
}

// Collapsed reports whether a turn's trace is currently collapsed.
func (s *TraceStore) Collapsed(turn int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collapsed[turn]
}

// synthesize joins a turn's entry texts in order with no separator.
// Used when a final payload arrives without content of its own.
func (s *TraceStore) synthesize(turn int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, e := range s.logs[turn] {
		b.WriteString(e.Text)
	}
	return b.String()
}

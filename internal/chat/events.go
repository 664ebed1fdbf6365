// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the client side of a compliance-assistant
// conversation: normalizing the backend's stream events into thinking-trace
// entries, storing those traces per turn, and driving a turn through the
// Composing -> Sent -> Streaming -> Terminal lifecycle.
//
// The backend emits loosely-typed JSON events. Field names drift between
// pipeline nodes, so every extraction here runs through an explicit priority
// list rather than a single struct tag.
package chat

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ====== STREAM PAYLOADS ======

// Payload is a single decoded stream event. Events are schemaless on the
// wire, so they are kept as a generic map and read through typed accessors.
type Payload map[string]any

// Type returns the event discriminator, or "" when absent or not a string.
func (p Payload) Type() string {
	s, _ := p["type"].(string)
	return s
}

// field returns the raw string value of key, or "" when the value is absent
// or not a string. No trimming is applied here; callers that need the
// trim-and-skip-blank rule go through pickString.
func (p Payload) field(key string) string {
	s, _ := p[key].(string)
	return s
}

// object returns a nested event object, or nil.
func (p Payload) object(key string) Payload {
	m, _ := p[key].(map[string]any)
	return m
}

// pickString returns the first candidate that is non-blank after trimming,
// trimmed. Blank and missing candidates are skipped.
func pickString(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

// Stringify renders an arbitrary decoded JSON value the way the backend's
// other clients do: strings verbatim, scalars in their literal form, and
// composites re-marshaled. Used for the non-streaming fallback and for
// final-content values that arrive as non-strings.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// ====== TRACE ENTRIES ======

// EntryKind discriminates the normalized trace entry variants.
type EntryKind int

const (
	// EntrySearchStart marks the beginning of a retrieval step.
	EntrySearchStart EntryKind = iota
	// EntrySearchResults carries a retrieval summary plus source URLs.
	EntrySearchResults
	// EntryContent is streamed partial answer text.
	EntryContent
	// EntryText is generic progress text (raw frames, pipeline events,
	// unrecognized payload types).
	EntryText
)

// String returns the wire-facing name of the kind.
func (k EntryKind) String() string {
	switch k {
	case EntrySearchStart:
		return "search_start"
	case EntrySearchResults:
		return "search_results"
	case EntryContent:
		return "content"
	default:
		return "text"
	}
}

// TraceEntry is one normalized line of the thinking trace shown beneath a
// user turn while the backend works.
type TraceEntry struct {
	Kind EntryKind
	Text string
	URLs []string // populated only for EntrySearchResults
}

// ====== NORMALIZER ======

// Normalize converts a raw stream payload into a trace entry, or returns nil
// when the payload carries nothing displayable. Every branch trims its text
// and drops the entry rather than emit a blank line.
func Normalize(p Payload) *TraceEntry {
	if p == nil {
		return nil
	}

	switch p.Type() {
	case "search_start":
		text := pickString(p.field("query"), p.field("message"))
		if text == "" {
			return nil
		}
		return &TraceEntry{Kind: EntrySearchStart, Text: text}

	case "search_results":
		text := pickString(p.field("message"), p.field("summary"))
		urls := stringURLs(p["urls"])
		if text == "" && len(urls) == 0 {
			return nil
		}
		return &TraceEntry{Kind: EntrySearchResults, Text: text, URLs: urls}

	case "content", "thinking":
		text := pickString(p.field("content"), p.field("message"), p.field("preview"))
		if text == "" {
			return nil
		}
		return &TraceEntry{Kind: EntryContent, Text: text}

	case "raw":
		text := pickString(p.field("raw"))
		if text == "" {
			return nil
		}
		return &TraceEntry{Kind: EntryText, Text: text}

	case "event":
		return normalizeEvent(p)

	default:
		text := pickString(p.field("content"), p.field("message"), p.field("preview"))
		if text == "" {
			return nil
		}
		return &TraceEntry{Kind: EntryText, Text: text}
	}
}

// normalizeEvent handles wrapped pipeline events. Token deltas from the
// model node surface as content; everything else becomes a labeled text
// line so the user can see which node is active.
func normalizeEvent(p Payload) *TraceEntry {
	inner := p.object("event")

	if inner.Type() == "llm_stream" {
		text := pickString(inner.field("content"))
		if text == "" {
			return nil
		}
		return &TraceEntry{Kind: EntryContent, Text: text}
	}

	label := ""
	if node := strings.TrimSpace(inner.field("node")); node != "" {
		label = "[" + node + "] "
	}
	text := pickString(inner.field("message"), inner.field("content"), p.field("message"))
	combined := strings.TrimSpace(label + text)
	if combined == "" {
		return nil
	}
	return &TraceEntry{Kind: EntryText, Text: combined}
}

// stringURLs filters a decoded urls value down to its non-blank strings.
func stringURLs(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	urls := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && s != "" {
			urls = append(urls, s)
		}
	}
	if len(urls) == 0 {
		return nil
	}
	return urls
}

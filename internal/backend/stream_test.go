// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"reflect"
	"testing"

	"github.com/jeranaias/comply-tui/internal/chat"
)

// feedAll pushes the whole input through a fresh decoder in one chunk.
func feedAll(t *testing.T, input string) []string {
	t.Helper()
	dec := NewDecoder()
	payloads, err := dec.Feed([]byte(input))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	return payloads
}

func TestDecoderSingleFrame(t *testing.T) {
	payloads := feedAll(t, "data: {\"type\":\"content\"}\n\n")
	if len(payloads) != 1 || payloads[0] != `{"type":"content"}` {
		t.Fatalf("payloads = %q", payloads)
	}
}

func TestDecoderMultipleFramesInOneChunk(t *testing.T) {
	payloads := feedAll(t, "data: one\n\ndata: two\n\n")
	want := []string{"one", "two"}
	if !reflect.DeepEqual(payloads, want) {
		t.Fatalf("payloads = %q, want %q", payloads, want)
	}
}

func TestDecoderMultiLineData(t *testing.T) {
	payloads := feedAll(t, "data: line1\ndata: line2\n\n")
	if len(payloads) != 1 || payloads[0] != "line1\nline2" {
		t.Fatalf("payloads = %q", payloads)
	}
}

func TestDecoderIgnoresNonDataLines(t *testing.T) {
	payloads := feedAll(t, "event: message\nid: 7\ndata: body\nretry: 100\n\n")
	if len(payloads) != 1 || payloads[0] != "body" {
		t.Fatalf("payloads = %q", payloads)
	}
}

func TestDecoderFrameWithoutDataSkipped(t *testing.T) {
	payloads := feedAll(t, ": keepalive\n\nid: 3\n\ndata: real\n\n")
	if len(payloads) != 1 || payloads[0] != "real" {
		t.Fatalf("payloads = %q", payloads)
	}
}

func TestDecoderStripsSingleLeadingSpace(t *testing.T) {
	payloads := feedAll(t, "data:  two spaces\n\ndata:none\n\n")
	want := []string{" two spaces", "none"}
	if !reflect.DeepEqual(payloads, want) {
		t.Fatalf("payloads = %q, want %q", payloads, want)
	}
}

// Splitting the same stream at every byte position must yield the same
// payload sequence, including splits inside multi-byte runes.
func TestDecoderChunkSplitInvariance(t *testing.T) {
	input := "data: {\"type\":\"content\",\"content\":\"héllo wörld\"}\n\ndata: {\"type\":\"final\"}\n\n"
	want := feedAll(t, input)
	if len(want) != 2 {
		t.Fatalf("baseline payloads = %q", want)
	}

	raw := []byte(input)
	for split := 1; split < len(raw); split++ {
		dec := NewDecoder()
		var got []string
		a, err := dec.Feed(raw[:split])
		if err != nil {
			t.Fatalf("split %d: %v", split, err)
		}
		got = append(got, a...)
		b, err := dec.Feed(raw[split:])
		if err != nil {
			t.Fatalf("split %d: %v", split, err)
		}
		got = append(got, b...)

		if !reflect.DeepEqual(got, want) {
			t.Fatalf("split %d: payloads = %q, want %q", split, got, want)
		}
	}
}

func TestDecoderFlushValidJSON(t *testing.T) {
	dec := NewDecoder()
	if _, err := dec.Feed([]byte("data: {\"type\":\"final\",\"content\":\"tail\"}")); err != nil {
		t.Fatal(err)
	}
	p, ok := dec.Flush()
	if !ok {
		t.Fatal("expected trailing payload")
	}
	if p.Type() != "final" {
		t.Errorf("type = %q", p.Type())
	}
}

func TestDecoderFlushInvalidJSONIgnored(t *testing.T) {
	dec := NewDecoder()
	if _, err := dec.Feed([]byte("data: {broken")); err != nil {
		t.Fatal(err)
	}
	if p, ok := dec.Flush(); ok {
		t.Fatalf("invalid trailing JSON must be dropped, got %v", p)
	}
}

func TestDecoderFlushEmpty(t *testing.T) {
	dec := NewDecoder()
	if p, ok := dec.Flush(); ok {
		t.Fatalf("empty buffer must flush nothing, got %v", p)
	}
}

func TestParsePayloadJSONObject(t *testing.T) {
	p := ParsePayload(`{"type":"content","content":"hi"}`)
	if p == nil || p.Type() != "content" {
		t.Fatalf("payload = %v", p)
	}
}

func TestParsePayloadRawDowngrade(t *testing.T) {
	p := ParsePayload("not-json")
	if p == nil {
		t.Fatal("expected raw payload")
	}
	if p.Type() != "raw" {
		t.Errorf("type = %q, want raw", p.Type())
	}
	if p["raw"] != "not-json" {
		t.Errorf("raw = %v", p["raw"])
	}

	// A raw downgrade normalizes into a text trace entry.
	entry := chat.Normalize(p)
	if entry == nil || entry.Kind != chat.EntryText || entry.Text != "not-json" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestParsePayloadNonObjectJSONDropped(t *testing.T) {
	for _, data := range []string{`3`, `"quoted"`, `[1,2]`, `true`} {
		if p := ParsePayload(data); p != nil {
			t.Errorf("ParsePayload(%q) = %v, want nil", data, p)
		}
	}
}

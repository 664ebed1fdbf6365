// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "strings"

// ====== TURN DISPATCH ======

// NoContentPlaceholder is shown when a turn finishes with an empty answer
// and an empty trace.
const NoContentPlaceholder = "(no content)"

// ResultKind classifies the outcome of dispatching one payload.
type ResultKind int

const (
	// ResultTrace means the payload was folded into the thinking trace
	// (or carried nothing displayable); the turn keeps streaming.
	ResultTrace ResultKind = iota
	// ResultFinal means the turn is complete and Content holds the
	// assistant's answer.
	ResultFinal
	// ResultError means the backend reported a failure; Message holds
	// the user-facing error line.
	ResultError
)

// Result is the outcome of dispatching a single stream payload against a
// turn's trace.
type Result struct {
	Kind    ResultKind
	Content string      // set for ResultFinal
	Message string      // set for ResultError
	Entry   *TraceEntry // set for ResultTrace when the payload yielded an entry
}

// Dispatch routes one stream payload for the given turn. Trace-bearing
// payloads are normalized and appended to the store; final payloads resolve
// the answer (falling back to a synthesis of the accumulated trace); error
// payloads clear the trace and produce an error line.
//
// Dispatch is safe to call with any payload the decoder hands over,
// including types it has never seen: unknown types degrade to trace text.
func Dispatch(store *TraceStore, p Payload, turn int) Result {
	switch p.Type() {
	case "final":
		content := Stringify(p["content"])
		if strings.TrimSpace(content) == "" {
			content = store.synthesize(turn)
		}
		if content == "" {
			content = NoContentPlaceholder
		}
		store.Collapse(turn)
		return Result{Kind: ResultFinal, Content: content}

	case "error":
		store.Clear(turn)
		return Result{Kind: ResultError, Message: "Error: " + Stringify(p["error"])}

	default:
		// "thinking", "search_start", "search_results", "content",
		// "raw", "event", and anything unrecognized all feed the trace.
		// Normalize returns nil for undisplayable payloads (checkpoints
		// among them) and Append drops nil, so those pass through
		// without effect.
		entry := Normalize(p)
		store.Append(turn, entry)
		return Result{Kind: ResultTrace, Entry: entry}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/comply-tui/internal/chat"
	"github.com/jeranaias/comply-tui/internal/model"
)

// STREAMING: stateful SSE decoding across arbitrary chunk boundaries

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// streamReadSize is the read buffer size for the query stream.
const streamReadSize = 4096

// MaxFrameSize is the maximum allowed size for a single buffered SSE frame.
// A frame larger than this indicates a misbehaving backend.
const MaxFrameSize = 1 * 1024 * 1024

// frameSeparator terminates an SSE frame.
var frameSeparator = []byte("\n\n")

// =============================================================================
// STREAM ERRORS
// =============================================================================

// StreamError represents a failure while reading the query stream, noting
// how many frames were dispatched before the connection broke.
type StreamError struct {
	Frames int
	Err    error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Frames > 0 {
		return fmt.Sprintf("stream error after %d frames: %v", e.Frames, e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE DECODER
// =============================================================================

// Decoder incrementally splits a byte stream into SSE frames. Chunks may
// tear frames, lines, or multi-byte runes at any position; the decoder
// buffers bytes until a complete frame terminator arrives and only then
// converts to a string, so splits never corrupt text.
//
// The decoder is not safe for concurrent use.
type Decoder struct {
	buf []byte
}

// NewDecoder creates an empty stream decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns the data payloads of every frame
// completed by it, in order. Frames without data lines yield nothing.
// Feeding the same stream split at different byte positions produces the
// same payload sequence.
func (d *Decoder) Feed(p []byte) ([]string, error) {
	d.buf = append(d.buf, p...)
	if len(d.buf) > MaxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes buffered", len(d.buf))
	}

	var payloads []string
	for {
		i := bytes.Index(d.buf, frameSeparator)
		if i < 0 {
			return payloads, nil
		}
		frame := string(d.buf[:i])
		d.buf = d.buf[i+len(frameSeparator):]

		if data, ok := frameData(frame); ok {
			payloads = append(payloads, data)
		}
	}
}

// Flush drains the trailing buffer after EOF. A complete JSON object left
// in the buffer is returned as a payload; anything else is discarded, since
// a torn tail frame is expected when a stream ends mid-frame.
func (d *Decoder) Flush() (chat.Payload, bool) {
	rest := string(d.buf)
	d.buf = nil
	if strings.TrimSpace(rest) == "" {
		return nil, false
	}
	data, ok := frameData(rest)
	if !ok {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, false
	}
	return chat.Payload(m), true
}

// frameData extracts and joins the data lines of one frame. Returns false
// when the frame carries no data lines (comments, ids, keepalives).
func frameData(frame string) (string, bool) {
	var dataLines []string
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		line = strings.TrimPrefix(line, "data:")
		// At most one leading space belongs to the field syntax; the
		// rest of the line is payload.
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			line = line[1:]
		}
		dataLines = append(dataLines, line)
	}
	if len(dataLines) == 0 {
		return "", false
	}
	return strings.Join(dataLines, "\n"), true
}

// ParsePayload decodes one frame's data text into a payload. Invalid JSON
// downgrades to a raw-text payload rather than killing the stream; valid
// JSON that is not an object carries nothing dispatchable and returns nil.
func ParsePayload(data string) chat.Payload {
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		if json.Valid([]byte(data)) {
			return nil
		}
		return chat.Payload{"type": "raw", "raw": data}
	}
	return chat.Payload(m)
}

// =============================================================================
// STREAMING QUERY
// =============================================================================

// QueryRequest is the body of a streaming chat query. DocumentURL and
// DocumentType are null on the wire when the turn has no attachment.
type QueryRequest struct {
	SessionID    string  `json:"session_id"`
	Message      string  `json:"message"`
	DocumentURL  *string `json:"document_url"`
	DocumentType *string `json:"document_type"`
}

// PayloadHandler is called for each decoded payload, in stream order, from
// the goroutine running StreamQuery.
type PayloadHandler func(p chat.Payload)

// StreamQuery sends a chat message and decodes the SSE response, invoking
// the handler once per payload. It returns when the stream ends, the
// context is cancelled, or the connection fails.
//
// A non-streaming response (the backend answered with plain JSON instead
// of an event stream) is delivered as a single final payload.
func (c *Client) StreamQuery(ctx context.Context, req QueryRequest, handler PayloadHandler) error {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/queries/analyze/stream", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(httpReq); err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxFrameSize))
		return newAPIError(resp.StatusCode, body)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return c.fallbackResponse(resp.Body, handler)
	}

	return c.processStream(ctx, resp.Body, handler)
}

// processStream reads and decodes the SSE body until EOF.
func (c *Client) processStream(ctx context.Context, body io.Reader, handler PayloadHandler) error {
	dec := NewDecoder()
	frames := 0
	buf := make([]byte, streamReadSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			payloads, decErr := dec.Feed(buf[:n])
			if decErr != nil {
				return &StreamError{Frames: frames, Err: decErr}
			}
			for _, data := range payloads {
				if p := ParsePayload(data); p != nil {
					frames++
					handler(p)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				if p, ok := dec.Flush(); ok {
					handler(p)
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &StreamError{Frames: frames, Err: err}
		}
	}
}

// Stream adapts StreamQuery to the chat controller's Streamer interface,
// translating an attachment into the wire's document fields.
func (c *Client) Stream(ctx context.Context, sessionID, message string, attachment *model.Attachment, handler func(chat.Payload)) error {
	req := QueryRequest{SessionID: sessionID, Message: message}
	if attachment != nil {
		docURL := attachment.URL
		docType := string(attachment.Type)
		req.DocumentURL = &docURL
		req.DocumentType = &docType
	}
	return c.StreamQuery(ctx, req, PayloadHandler(handler))
}

// fallbackResponse handles a backend that answered the streaming endpoint
// with a plain JSON body. The whole value becomes one final payload.
func (c *Client) fallbackResponse(body io.Reader, handler PayloadHandler) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxFrameSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	handler(chat.Payload{"type": "final", "content": chat.Stringify(v)})
	return nil
}

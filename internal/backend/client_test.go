// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/comply-tui/internal/chat"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, StaticToken("test-token")).WithHTTPClient(srv.Client())
}

func TestListSessions(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/chat/sessions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"sessions":[{"id":"s1","title":"First"},{"id":"s2"}]}`)
	}))

	sessions, err := c.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, "First", sessions[0].Title)
}

func TestSessionMessages(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/sessions/s%201/messages", r.URL.EscapedPath())
		fmt.Fprint(w, `{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)
	}))

	msgs, err := c.SessionMessages(context.Background(), "s 1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestDeleteSessionNotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"no such session"}`)
	}))

	err := c.DeleteSession(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, "no such session", apiErr.Message)
}

func TestUnauthorizedMapping(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.ListSessions(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMissingTokenFailsFast(t *testing.T) {
	called := false
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	c.tokens = StaticToken("")

	_, err := c.ListSessions(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, called, "no request should reach the server without a token")
}

func TestUploadDocument(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "contract.pdf", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, "pdf-bytes", string(content))
		fmt.Fprint(w, `{"url":"https://files/contract.pdf"}`)
	}))

	result, err := c.UploadDocument(context.Background(), "/tmp/contract.pdf", bytes.NewBufferString("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://files/contract.pdf", result.DocumentURL())
}

func TestAnalyzeDocumentPlainJSON(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sess-1", body["session_id"])
		assert.Equal(t, "https://files/doc.pdf", body["document_url"])
		fmt.Fprint(w, `{"violations":[{"type":"Violation","title":"Missing clause","severity":"high"}],"paired_contexts":[{"page":1}]}`)
	}))

	result, err := c.AnalyzeDocument(context.Background(), "sess-1", "https://files/doc.pdf", []string{"gdpr"})
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "Missing clause", result.Violations[0].Title)
	require.Len(t, result.PairedContexts, 1)
}

func TestAnalyzeDocumentStringWrappedResult(t *testing.T) {
	// The backend sometimes returns the analysis JSON as a string with
	// markdown fences around it.
	inner := "```json\n{\"violations\":[{\"title\":\"Fenced\"}],\"paired_contexts\":[]}\n```"
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(inner))
	}))

	result, err := c.AnalyzeDocument(context.Background(), "sess-1", "url", nil)
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "Fenced", result.Violations[0].Title)
}

func TestAnalyzeDocumentBareArrayCompat(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"title":"Old shape"}]`)
	}))

	result, err := c.AnalyzeDocument(context.Background(), "sess-1", "url", nil)
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "Old shape", result.Violations[0].Title)
}

func TestGenerateRecommendations(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recommendations/generate", r.URL.Path)
		fmt.Fprint(w, `{"recommendations":[{"title":"Add retention clause"}]}`)
	}))

	recs, err := c.GenerateRecommendations(context.Background(), "sess-1", []Violation{{Title: "v"}}, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Add retention clause", recs[0].Title)
}

func TestGenerateRecommendationsResultKeyCompat(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":[{"title":"From result key"}]}`)
	}))

	recs, err := c.GenerateRecommendations(context.Background(), "sess-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "From result key", recs[0].Title)
}

func TestSelectSubscriptionEndpointTypo(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The misspelled path is the wire contract.
		assert.Equal(t, "/user/subscrition", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u-1", body["userId"])
		assert.Equal(t, "pro", body["plan"])
		fmt.Fprint(w, `{}`)
	}))

	require.NoError(t, c.SelectSubscription(context.Background(), "u-1", "pro"))
}

func TestCreateUser(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/admin/create-user", r.URL.Path)
		var body CreateUserRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "employee", body.Role)
		fmt.Fprint(w, `{}`)
	}))

	err := c.CreateUser(context.Background(), CreateUserRequest{
		Email:    "new@example.com",
		Password: "secret",
		Role:     "employee",
		AdminID:  "admin-1",
	})
	require.NoError(t, err)
}

func TestFetchPolicyDocumentJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":"policy text"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok")).WithHTTPClient(srv.Client())
	text, err := c.FetchPolicyDocument(context.Background(), srv.URL+"/doc")
	require.NoError(t, err)
	assert.Equal(t, "policy text", text)
}

func TestFetchPolicyDocumentPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "raw policy body")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok")).WithHTTPClient(srv.Client())
	text, err := c.FetchPolicyDocument(context.Background(), srv.URL+"/doc")
	require.NoError(t, err)
	assert.Equal(t, "raw policy body", text)
}

// =============================================================================
// STREAMING
// =============================================================================

func TestStreamQueryEndToEnd(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/queries/analyze/stream", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.SessionID)
		assert.Equal(t, "check this", req.Message)
		assert.Nil(t, req.DocumentURL)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range []string{
			"data: {\"type\":\"search_start\",\"query\":\"q\"}\n\n",
			"data: {\"type\":\"checkpoint\",\"checkpoint_id\":\"sess-2\"}\n\n",
			"data: not-json\n\n",
			"data: {\"type\":\"final\",\"content\":\"done\"}\n\n",
		} {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
	}))

	var payloads []chat.Payload
	err := c.StreamQuery(context.Background(), QueryRequest{SessionID: "sess-1", Message: "check this"}, func(p chat.Payload) {
		payloads = append(payloads, p)
	})
	require.NoError(t, err)

	require.Len(t, payloads, 4)
	assert.Equal(t, "search_start", payloads[0].Type())
	assert.Equal(t, "checkpoint", payloads[1].Type())
	assert.Equal(t, "raw", payloads[2].Type())
	assert.Equal(t, "not-json", payloads[2]["raw"])
	assert.Equal(t, "final", payloads[3].Type())
}

func TestStreamQueryTrailingFrameFlushed(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		// Terminator missing on the last frame; the decoder flushes it
		// at EOF because it is complete JSON.
		fmt.Fprint(w, "data: {\"type\":\"content\",\"content\":\"a\"}\n\ndata: {\"type\":\"final\",\"content\":\"tail\"}")
	}))

	var payloads []chat.Payload
	err := c.StreamQuery(context.Background(), QueryRequest{SessionID: "s", Message: "m"}, func(p chat.Payload) {
		payloads = append(payloads, p)
	})
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, "final", payloads[1].Type())
}

func TestStreamQueryNonStreamingFallback(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"answer":"plain"}`)
	}))

	var payloads []chat.Payload
	err := c.StreamQuery(context.Background(), QueryRequest{SessionID: "s", Message: "m"}, func(p chat.Payload) {
		payloads = append(payloads, p)
	})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "final", payloads[0].Type())
	assert.Equal(t, `{"answer":"plain"}`, payloads[0]["content"])
}

func TestStreamQueryErrorStatus(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"detail":"not allowed"}`)
	}))

	err := c.StreamQuery(context.Background(), QueryRequest{SessionID: "s", Message: "m"}, func(chat.Payload) {
		t.Fatal("no payload should be delivered on an error status")
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStreamQueryContextCancel(t *testing.T) {
	started := make(chan struct{})
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"content\",\"content\":\"a\"}\n\n")
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := c.StreamQuery(ctx, QueryRequest{SessionID: "s", Message: "m"}, func(chat.Payload) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

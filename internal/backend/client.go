// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the development backend address.
	DefaultBaseURL = "http://127.0.0.1:5000"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	// defaultRateLimit is the request rate allowed against the backend.
	defaultRateLimit = rate.Limit(5)

	// defaultRateBurst is the burst size for the rate limiter.
	defaultRateBurst = 10
)

var (
	// Shared HTTP client with connection pooling for all JSON requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No client
	// timeout; lifetime is controlled via the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// TokenProvider supplies the bearer token attached to every request.
type TokenProvider interface {
	Token() (string, error)
}

// StaticToken is a TokenProvider wrapping a fixed token string. Useful in
// tests and for one-shot commands that already loaded the token.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNotConfigured
	}
	return string(t), nil
}

// Client is a client for the compliance-assistant backend API.
type Client struct {
	baseURL      string
	tokens       TokenProvider
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a backend client. The token provider may return
// ErrNotConfigured, in which case every authorized call fails fast.
func NewClient(baseURL string, tokens TokenProvider) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokens:       tokens,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		limiter:      rate.NewLimiter(defaultRateLimit, defaultRateBurst),
	}
}

// WithHTTPClient overrides both HTTP clients. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

// WithRateLimit overrides the request rate limiter.
func (c *Client) WithRateLimit(limit rate.Limit, burst int) *Client {
	c.limiter = rate.NewLimiter(limit, burst)
	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders attaches the bearer token to a request.
func (c *Client) setHeaders(req *http.Request) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// doJSON performs an authorized request with an optional JSON body and
// returns the response body bytes after status handling.
func (c *Client) doJSON(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req); err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// Session is a remote chat session summary.
type Session struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// SessionMessage is one stored message of a remote session.
type SessionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ListSessions returns the account's chat sessions.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/chat/sessions", nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return parsed.Sessions, nil
}

// SessionMessages returns the transcript of one remote session.
func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]SessionMessage, error) {
	path := "/chat/sessions/" + url.PathEscape(sessionID) + "/messages"
	data, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Messages []SessionMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return parsed.Messages, nil
}

// DeleteSession removes a remote session and its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := "/chat/sessions/" + url.PathEscape(sessionID)
	_, err := c.doJSON(ctx, http.MethodDelete, path, nil)
	return err
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// UploadResult is the backend's record of an uploaded document.
type UploadResult struct {
	URL     string `json:"url"`
	FileURL string `json:"file_url,omitempty"`
	Message string `json:"message,omitempty"`
}

// DocumentURL returns whichever URL field the backend populated.
func (r *UploadResult) DocumentURL() string {
	if r.URL != "" {
		return r.URL
	}
	return r.FileURL
}

// UploadDocument uploads a file as multipart form data under the "file"
// field and returns the stored document's URL.
func (c *Client) UploadDocument(ctx context.Context, name string, content io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req); err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, data)
	}

	var result UploadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode upload result: %w", err)
	}
	return &result, nil
}

// =============================================================================
// ANALYSIS
// =============================================================================

// Violation is one finding from document analysis.
type Violation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	PolicyID    string `json:"policy_id,omitempty"`
}

// PairedContext links a violation to the document passage it refers to.
// The backend's shape varies between pipeline versions, so it stays generic.
type PairedContext map[string]any

// AnalyzeResult is the outcome of analyzing a document against policies.
type AnalyzeResult struct {
	Violations     []Violation     `json:"violations"`
	PairedContexts []PairedContext `json:"paired_contexts"`
}

// analyzeRequest is the body of an analysis request.
type analyzeRequest struct {
	SessionID        string   `json:"session_id"`
	DocumentURL      string   `json:"document_url"`
	SelectedPolicies []string `json:"selected_policies"`
}

// codeFenceRe strips markdown code fences the backend sometimes leaves
// around JSON answers.
var codeFenceRe = regexp.MustCompile("```json|```")

// AnalyzeDocument runs policy analysis over an uploaded document. The
// backend occasionally returns the result JSON wrapped in a string, with
// or without markdown fences; both shapes are unwrapped here.
func (c *Client) AnalyzeDocument(ctx context.Context, sessionID, documentURL string, policies []string) (*AnalyzeResult, error) {
	body := analyzeRequest{
		SessionID:        sessionID,
		DocumentURL:      documentURL,
		SelectedPolicies: policies,
	}
	data, err := c.doJSON(ctx, http.MethodPost, "/documents/analyze", body)
	if err != nil {
		return nil, err
	}

	// Unwrap a string-encoded result before decoding the real shape.
	var wrapped string
	if err := json.Unmarshal(data, &wrapped); err == nil {
		wrapped = strings.TrimSpace(codeFenceRe.ReplaceAllString(wrapped, ""))
		data = []byte(wrapped)
	}

	var result AnalyzeResult
	if err := json.Unmarshal(data, &result); err == nil && result.Violations != nil {
		return &result, nil
	}

	// Backward-compat: older backends returned a bare violations array.
	var violations []Violation
	if err := json.Unmarshal(data, &violations); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &AnalyzeResult{Violations: violations}, nil
}

// =============================================================================
// RECOMMENDATIONS
// =============================================================================

// Recommendation is one remediation suggestion for a violation.
type Recommendation struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	PolicyID    string `json:"policy_id,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// recommendRequest is the body of a recommendations request.
type recommendRequest struct {
	Violations     []Violation     `json:"violations"`
	SessionID      string          `json:"session_id"`
	PairedContexts []PairedContext `json:"paired_contexts"`
}

// GenerateRecommendations asks the backend for remediation suggestions.
// The result list arrives under "recommendations" or, from older
// backends, "result".
func (c *Client) GenerateRecommendations(ctx context.Context, sessionID string, violations []Violation, contexts []PairedContext) ([]Recommendation, error) {
	body := recommendRequest{
		Violations:     violations,
		SessionID:      sessionID,
		PairedContexts: contexts,
	}
	data, err := c.doJSON(ctx, http.MethodPost, "/recommendations/generate", body)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Recommendations []Recommendation `json:"recommendations"`
		Result          []Recommendation `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}
	if parsed.Recommendations != nil {
		return parsed.Recommendations, nil
	}
	return parsed.Result, nil
}

// =============================================================================
// POLICY DOCUMENTS
// =============================================================================

// FetchPolicyDocument retrieves the full text of a policy document by URL
// with the account's token attached. JSON responses yield their content or
// text field; anything else is returned verbatim.
func (c *Client) FetchPolicyDocument(ctx context.Context, docURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req); err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newAPIError(resp.StatusCode, data)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed struct {
			Content string `json:"content"`
			Text    string `json:"text"`
		}
		if err := json.Unmarshal(data, &parsed); err == nil {
			if parsed.Content != "" {
				return parsed.Content, nil
			}
			if parsed.Text != "" {
				return parsed.Text, nil
			}
		}
	}
	return string(data), nil
}

// =============================================================================
// ACCOUNT
// =============================================================================

// subscriptionRequest is the body of a plan selection. The endpoint path
// misspells "subscription"; that typo is part of the wire contract.
type subscriptionRequest struct {
	UserID string `json:"userId"`
	Plan   string `json:"plan"`
}

// SelectSubscription records the account's chosen plan.
func (c *Client) SelectSubscription(ctx context.Context, userID, plan string) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/user/subscrition", subscriptionRequest{
		UserID: userID,
		Plan:   plan,
	})
	return err
}

// CreateUserRequest is the body of an admin user-creation call.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	AdminID  string `json:"admin_id"`
}

// CreateUser provisions a new account. Requires an admin token.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/user/admin/create-user", req)
	return err
}

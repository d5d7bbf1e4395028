// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the managed auth/database
// backend (a Supabase project): the GoTrue auth endpoints under /auth/v1 and
// the PostgREST row endpoints under /rest/v1.
//
// The client is deliberately thin. Session bookkeeping lives in the session
// package and favorites semantics in the favorites package.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jeranaias/fipepro/internal/logging"
)

const (
	// DefaultTimeout bounds a single backend request.
	DefaultTimeout = 20 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 2 * 1024 * 1024
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the backend URL or public key is missing.
	ErrNotConfigured = errors.New("backend not configured")

	// ErrUnauthorized indicates a missing, invalid or expired access token.
	ErrUnauthorized = &APIError{Status: http.StatusUnauthorized, Message: "unauthorized"}
)

// APIError is a non-2xx response from the backend. Message holds the
// provider-supplied text unchanged so it can be shown to the user as is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error returns the provider's message verbatim.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend request failed (HTTP %d)", e.Status)
}

// Is treats every 401/403 as ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok || t != ErrUnauthorized {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// apiErrorBody covers the error shapes GoTrue and PostgREST produce.
type apiErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one backend project. It is safe for concurrent use.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the project at baseURL using its public
// (anon) key. Either may be empty, in which case every call fails with
// ErrNotConfigured.
func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// IsConfigured reports whether the client can make requests.
func (c *Client) IsConfigured() bool {
	return c != nil && c.baseURL != "" && c.anonKey != ""
}

// request describes one backend call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	token  string
	header map[string]string
}

// do performs req and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, req)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend request failed", "method", req.method, "path", req.path, "error", err)
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := readResponse(resp)
	if err != nil {
		return err
	}
	c.logger.Debug("backend request", "method", req.method, "path", req.path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse backend response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(httpReq *http.Request, req request) {
	httpReq.Header.Set("apikey", c.anonKey)
	token := req.token
	if token == "" {
		token = c.anonKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.header {
		httpReq.Header.Set(k, v)
	}
}

// readResponse reads at most MaxResponseSize bytes of the body.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse extracts the most specific message the backend gave.
func handleErrorResponse(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.ErrorDescription != "":
			apiErr.Message = parsed.ErrorDescription
		case parsed.Msg != "":
			apiErr.Message = parsed.Msg
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case parsed.Error != "":
			apiErr.Message = parsed.Error
		}
		switch {
		case parsed.ErrorCode != "":
			apiErr.Code = parsed.ErrorCode
		case parsed.Error != "" && parsed.ErrorDescription != "":
			apiErr.Code = parsed.Error
		case parsed.Code != nil:
			apiErr.Code = fmt.Sprint(parsed.Code)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

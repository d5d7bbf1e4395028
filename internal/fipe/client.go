// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fipe provides the HTTP client for the public vehicle pricing API
// (FIPE table, parallelum v2).
//
// Every operation is an idempotent GET. Failures come back as
// *RetrievalError; nothing is retried or cached here.
package fipe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
)

const (
	// DefaultBaseURL is the public pricing API.
	DefaultBaseURL = "https://fipe.parallelum.com.br/api/v2"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 20 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 4 * 1024 * 1024

	// subscriptionHeader carries the optional API token that raises the
	// provider's anonymous quota.
	subscriptionHeader = "X-Subscription-Token"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the pricing client.
type ClientConfig struct {
	// BaseURL is the API root (default: DefaultBaseURL).
	BaseURL string

	// Token is the optional subscription token.
	Token string

	// Timeout per request (default: DefaultTimeout).
	Timeout time.Duration

	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the pricing API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		}
	}
	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: hc,
		logger:     logging.OrDiscard(cfg.Logger),
	}
}

// BaseURL returns the API root in use.
func (c *Client) BaseURL() string { return c.baseURL }

// =============================================================================
// LOOKUP OPERATIONS
// =============================================================================

// ListBrands returns the brands of a category.
func (c *Client) ListBrands(ctx context.Context, cat model.Category) ([]model.Item, error) {
	seg, err := segment(cat)
	if err != nil {
		return nil, err
	}
	var items []model.Item
	if err := c.get(ctx, join(seg, "brands"), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListModels returns the models of a brand.
func (c *Client) ListModels(ctx context.Context, cat model.Category, brand string) ([]model.Item, error) {
	seg, err := segment(cat)
	if err != nil {
		return nil, err
	}
	if err := required("brand", brand); err != nil {
		return nil, err
	}
	var items []model.Item
	if err := c.get(ctx, join(seg, "brands", brand, "models"), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListYears returns the model years available for a brand and model.
func (c *Client) ListYears(ctx context.Context, cat model.Category, brand, modelCode string) ([]model.Item, error) {
	seg, err := segment(cat)
	if err != nil {
		return nil, err
	}
	if err := required("brand", brand); err != nil {
		return nil, err
	}
	if err := required("model", modelCode); err != nil {
		return nil, err
	}
	var items []model.Item
	if err := c.get(ctx, join(seg, "brands", brand, "models", modelCode, "years"), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListYearsByBrand returns every model year offered by a brand. Used by the
// year-first flow order.
func (c *Client) ListYearsByBrand(ctx context.Context, cat model.Category, brand string) ([]model.Item, error) {
	seg, err := segment(cat)
	if err != nil {
		return nil, err
	}
	if err := required("brand", brand); err != nil {
		return nil, err
	}
	var items []model.Item
	if err := c.get(ctx, join(seg, "brands", brand, "years"), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListModelsByYear returns the models of a brand available in a year. Used
// by the year-first flow order.
func (c *Client) ListModelsByYear(ctx context.Context, cat model.Category, brand, year string) ([]model.Item, error) {
	seg, err := segment(cat)
	if err != nil {
		return nil, err
	}
	if err := required("brand", brand); err != nil {
		return nil, err
	}
	if err := required("year", year); err != nil {
		return nil, err
	}
	var items []model.Item
	if err := c.get(ctx, join(seg, "brands", brand, "years", year, "models"), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetResult fetches the priced result for a brand, model and year.
func (c *Client) GetResult(ctx context.Context, cat model.Category, brand, modelCode, year string) (model.PricedResult, error) {
	seg, err := segment(cat)
	if err != nil {
		return model.PricedResult{}, err
	}
	for _, arg := range [][2]string{{"brand", brand}, {"model", modelCode}, {"year", year}} {
		if err := required(arg[0], arg[1]); err != nil {
			return model.PricedResult{}, err
		}
	}
	var r model.PricedResult
	if err := c.get(ctx, join(seg, "brands", brand, "models", modelCode, "years", year), nil, &r); err != nil {
		return model.PricedResult{}, err
	}
	return r, nil
}

// GetResultByCode fetches the priced result for a lookup code and year.
// reference selects a historical pricing period; nil means the latest.
func (c *Client) GetResultByCode(ctx context.Context, cat model.Category, code, year string, reference *int) (model.PricedResult, error) {
	seg, err := segment(cat)
	if err != nil {
		return model.PricedResult{}, err
	}
	if err := required("code", code); err != nil {
		return model.PricedResult{}, err
	}
	if err := required("year", year); err != nil {
		return model.PricedResult{}, err
	}
	var query url.Values
	if reference != nil {
		query = url.Values{"reference": {strconv.Itoa(*reference)}}
	}
	var r model.PricedResult
	if err := c.get(ctx, join(seg, "models", code, "years", year), query, &r); err != nil {
		return model.PricedResult{}, err
	}
	return r, nil
}

// ListReferences returns the available pricing periods, newest first as
// the provider orders them.
func (c *Client) ListReferences(ctx context.Context) ([]model.Reference, error) {
	var refs []model.Reference
	if err := c.get(ctx, "/references", nil, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &RetrievalError{Type: ErrTypeInvalidArgument, Path: path, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(subscriptionHeader, c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("pricing request failed", "path", path, "error", err)
		return &RetrievalError{Type: ErrTypeConnection, Path: path, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return &RetrievalError{Type: ErrTypeMalformed, Path: path, Status: resp.StatusCode, Message: "failed to read body", Cause: err}
	}
	c.logger.Debug("pricing request", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("pricing payload malformed", "path", path, "error", err)
		return &RetrievalError{Type: ErrTypeMalformed, Path: path, Status: resp.StatusCode, Message: "malformed payload", Cause: err}
	}
	return nil
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

// handleErrorResponse converts a non-2xx response into a RetrievalError,
// keeping the provider's {"error": "..."} message when there is one.
func handleErrorResponse(path string, status int, body []byte) error {
	msg := http.StatusText(status)
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if apiErr.Error != "" {
			msg = apiErr.Error
		} else if apiErr.Message != "" {
			msg = apiErr.Message
		}
	}

	typ := ErrTypeStatus
	if status == http.StatusNotFound {
		typ = ErrTypeNotFound
	}
	return &RetrievalError{Type: typ, Path: path, Status: status, Message: msg}
}

func segment(cat model.Category) (string, error) {
	if !cat.Valid() {
		return "", &RetrievalError{Type: ErrTypeInvalidArgument, Path: "/", Message: fmt.Sprintf("invalid category %d", cat)}
	}
	return cat.PathSegment(), nil
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return &RetrievalError{Type: ErrTypeInvalidArgument, Path: "/", Message: name + " code is required"}
	}
	return nil
}

// join builds an escaped path from segments.
func join(parts ...string) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(p))
	}
	return sb.String()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// =============================================================================
// OLLAMA
// =============================================================================

// Ollama generates text with a local Ollama server.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama returns an Ollama generator. hc may be nil.
func NewOllama(baseURL, model string, hc *http.Client) *Ollama {
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: hc,
	}
}

// Name implements Generator.
func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate implements Generator.
func (o *Ollama) Generate(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: prompt, System: system})
	if err != nil {
		return "", &GenerateError{Provider: o.Name(), Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &GenerateError{Provider: o.Name(), Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &GenerateError{Provider: o.Name(), Message: "request timed out", Cause: err}
		}
		return "", &GenerateError{Provider: o.Name(), Message: "Ollama is not running", Cause: err}
	}
	defer resp.Body.Close()

	var out ollamaResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(&out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &GenerateError{Provider: o.Name(), Message: "request failed: " + resp.Status}
		}
		return "", &GenerateError{Provider: o.Name(), Message: "failed to decode response", Cause: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", &GenerateError{Provider: o.Name(), Message: "model not found: " + o.model}
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = "request failed: " + resp.Status
		}
		return "", &GenerateError{Provider: o.Name(), Message: msg}
	}
	return out.Response, nil
}

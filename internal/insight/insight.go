// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package insight produces a short AI commentary for a priced vehicle.
//
// Two generators are available: the hosted Gemini API and a local Ollama
// server. Both receive the same fixed system instruction and prompt.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrUnavailable is returned when the service failed or produced no text.
var ErrUnavailable = errors.New("insight unavailable")

// GenerateError wraps a generator failure. It matches ErrUnavailable.
type GenerateError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *GenerateError) Error() string {
	msg := e.Provider + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *GenerateError) Unwrap() error { return e.Cause }

func (e *GenerateError) Is(target error) bool { return target == ErrUnavailable }

// =============================================================================
// GENERATOR
// =============================================================================

// Generator turns a prompt into text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// DefaultTimeout bounds one generation.
const DefaultTimeout = 60 * time.Second

// Client builds prompts and calls a Generator.
type Client struct {
	gen      Generator
	location string
	timeout  time.Duration
	logger   *slog.Logger
}

// Options configures a Client.
type Options struct {
	// Location is the default region hint.
	Location string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// New returns a client over gen. A nil gen yields a client whose Insight
// always fails with ErrUnavailable.
func New(gen Generator, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		gen:      gen,
		location: opts.Location,
		timeout:  opts.Timeout,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// Available reports whether a generator is configured.
func (c *Client) Available() bool {
	return c != nil && c.gen != nil
}

// Location returns the default region hint.
func (c *Client) Location() string {
	if c == nil {
		return ""
	}
	return c.location
}

// Insight returns commentary for result. location overrides the client's
// default hint when non-empty.
func (c *Client) Insight(ctx context.Context, result model.PricedResult, location string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	if strings.TrimSpace(location) == "" {
		location = c.location
	}

	ctx, span := otel.Tracer("fipepro/insight").Start(ctx, "insight.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("insight.provider", c.gen.Name()),
		attribute.String("fipe.code", result.CodeFipe),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.gen.Generate(ctx, SystemInstruction, BuildPrompt(result, location))
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("insight generation failed", "provider", c.gen.Name(), "error", err)
		if errors.Is(err, ErrUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &GenerateError{Provider: c.gen.Name(), Message: "empty response"}
	}
	c.logger.Debug("insight generated", "provider", c.gen.Name(), "duration", time.Since(start), "chars", len(text))
	return text, nil
}

// FromConfig builds a client for the configured provider. When the
// provider is not usable the client is returned without a generator.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	ic := cfg.Insight
	opts := Options{
		Location: ic.Location,
		Timeout:  time.Duration(ic.TimeoutSecs) * time.Second,
		Logger:   logger,
	}
	if !cfg.InsightEnabled() {
		return New(nil, opts)
	}
	if strings.EqualFold(ic.Provider, config.ProviderOllama) {
		return New(NewOllama(ic.OllamaURL, ic.OllamaModel, nil), opts)
	}
	return New(NewGemini(GeminiConfig{BaseURL: ic.BaseURL, APIKey: ic.APIKey, Model: ic.Model}), opts)
}

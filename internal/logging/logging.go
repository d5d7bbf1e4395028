// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured logger shared by every fipepro
// component.
//
// The TUI owns the terminal, so records go to a log file under the config
// directory. CLI commands may additionally mirror records to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options controls where and how much is logged.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string

	// File is the log file path. Empty disables file output.
	File string

	// Stderr mirrors records to standard error.
	Stderr bool

	// JSON switches from the text handler to the JSON handler.
	JSON bool
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from opts. The returned closer releases the log file
// and must be called on shutdown; it is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	closer := io.Closer(nopCloser{})

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, closer, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, closer, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if opts.Stderr {
		writers = append(writers, os.Stderr)
	}
	if len(writers) == 0 {
		return Discard(), closer, nil
	}

	return slog.New(newHandler(io.MultiWriter(writers...), opts)), closer, nil
}

// NewWriter builds a logger writing to w. Used by tests and by callers that
// already own an output stream.
func NewWriter(w io.Writer, opts Options) *slog.Logger {
	return slog.New(newHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard returns l, or a discarding logger when l is nil. Constructors
// use it so a nil logger option is always safe.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if opts.JSON {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

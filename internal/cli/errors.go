// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/fipepro/internal/backend"
	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/favorites"
	"github.com/jeranaias/fipepro/internal/fipe"
	"github.com/jeranaias/fipepro/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a missing or malformed command argument.
type UsageError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += "\nUsage: " + e.Example
	}
	return msg
}

// NewUsageError creates a usage error for field.
func NewUsageError(field, value, reason string) error {
	return &UsageError{Field: field, Value: value, Reason: reason}
}

// CommandError wraps a failure with the command that produced it.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

func wrap(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON envelope in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.ErrorType = errorType(err)
		_ = resp.Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERRO]"), err.Error())
}

func errorType(err error) string {
	var usage *UsageError
	switch {
	case errors.As(err, &usage):
		return "usage_error"
	case fipe.IsNotFound(err):
		return "not_found"
	case fipe.IsRetrieval(err):
		return "retrieval_error"
	case isAuthError(err):
		return "auth_error"
	default:
		return "error"
	}
}

// GetExitCode maps err to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var cfgErr config.ValidationError
	var cfgErrs config.ValidateErrors
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfgErr), errors.As(err, &cfgErrs):
		return ExitConfigError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case fipe.IsNotFound(err):
		return ExitNotFoundError
	case fipe.IsRetrieval(err):
		return ExitNetworkError
	case isAuthError(err):
		return ExitAuthError
	default:
		return ExitGeneralError
	}
}

func isAuthError(err error) bool {
	var apiErr *backend.APIError
	return errors.Is(err, session.ErrUnavailable) ||
		errors.Is(err, favorites.ErrAuthRequired) ||
		errors.Is(err, backend.ErrNotConfigured) ||
		errors.As(err, &apiErr)
}

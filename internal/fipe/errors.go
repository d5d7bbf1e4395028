// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fipe

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes retrieval failures.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeStatus
	ErrTypeMalformed
	ErrTypeConnection
	ErrTypeNotFound
	ErrTypeInvalidArgument
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeStatus:
		return "status"
	case ErrTypeMalformed:
		return "malformed"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// RetrievalError is returned by every Client operation that fails.
type RetrievalError struct {
	Type ErrorType

	// Path is the provider path that was requested.
	Path string

	// Status is the HTTP status, zero when no response was received.
	Status int

	Message string
	Cause   error
}

func (e *RetrievalError) Error() string {
	msg := fmt.Sprintf("pricing retrieval failed for %s: %s", e.Path, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("pricing retrieval failed for %s (HTTP %d): %s", e.Path, e.Status, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RetrievalError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type so errors.Is(err, ErrNotFound) works on
// any not-found failure regardless of path.
func (e *RetrievalError) Is(target error) bool {
	t, ok := target.(*RetrievalError)
	if !ok {
		return false
	}
	return t.Path == "" && t.Type == e.Type
}

// Sentinel errors for easy checking.
var (
	ErrNotFound        = &RetrievalError{Type: ErrTypeNotFound, Message: "not found"}
	ErrMalformed       = &RetrievalError{Type: ErrTypeMalformed, Message: "malformed payload"}
	ErrConnection      = &RetrievalError{Type: ErrTypeConnection, Message: "connection failed"}
	ErrInvalidArgument = &RetrievalError{Type: ErrTypeInvalidArgument, Message: "invalid argument"}
)

// IsRetrieval reports whether err came from the pricing client.
func IsRetrieval(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}

// IsNotFound reports whether the provider had no data for the request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides string-keyed on-device persistence for fipepro.
//
// A slot holds one serialized value (the history list is the main user).
// Two backends are available: a single JSON document written atomically,
// and a SQLite database for users who prefer it.
package storage

import (
	"errors"
	"fmt"
)

// =============================================================================
// SLOTS INTERFACE
// =============================================================================

// Slots is a string-keyed value store.
type Slots interface {
	// Get returns the value stored under key and whether it exists.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value. The write
	// is durable when Set returns.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists stored keys in sorted order.
	Keys() ([]string, error)

	// Close releases resources held by the backend.
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrEmptyKey is returned when a slot key is empty.
var ErrEmptyKey = errors.New("storage: empty slot key")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// CorruptError reports a backing file that could not be decoded.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("storage: corrupt store %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// =============================================================================
// CONSTRUCTION
// =============================================================================

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open opens the slot store for the named backend at path. As with
// OpenFile, a *CorruptError comes back alongside a usable store.
func Open(backend, path string) (Slots, error) {
	switch backend {
	case BackendFile, "":
		s, err := OpenFile(path)
		if s == nil {
			return nil, err
		}
		return s, err
	case BackendSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps the bounded, most-recent-first list of results the
// user has viewed on this device.
//
// The list is read once from slot storage when the store opens and written
// back after every mutation. Unreadable or malformed storage yields an empty
// history rather than an error, so a damaged file never blocks the app.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/storage"
)

const (
	// SlotKey is the storage slot holding the serialized list.
	SlotKey = "fipe_history_v2"

	// MaxEntries caps the list length.
	MaxEntries = 10
)

// ErrNotFound is returned by Restore for an unknown entry id.
var ErrNotFound = errors.New("history: entry not found")

// Store is the history list. It is safe for concurrent use.
type Store struct {
	slots  storage.Slots
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries []model.HistoryEntry
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence problems.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the history from slots. slots may be nil, in which case the
// history lives in memory only.
func Open(slots storage.Slots, opts ...Option) *Store {
	s := &Store{slots: slots, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	s.entries = s.load()
	return s
}

func (s *Store) load() []model.HistoryEntry {
	if s.slots == nil {
		return nil
	}
	raw, ok, err := s.slots.Get(SlotKey)
	if err != nil {
		s.logger.Warn("history storage unavailable, starting empty", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("history data malformed, starting empty", "error", err)
		return nil
	}
	return normalize(entries)
}

// normalize keeps the first (newest) entry of each vehicle and caps the
// list at MaxEntries.
func normalize(entries []model.HistoryEntry) []model.HistoryEntry {
	out := make([]model.HistoryEntry, 0, min(len(entries), MaxEntries))
	for _, e := range entries {
		if len(out) == MaxEntries {
			break
		}
		dup := false
		for _, kept := range out {
			if model.SameVehicle(kept.Result, e.Result) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

// Record adds result to the front of the list. Any earlier entry for the
// same lookup code and model year is removed first and the list is then
// capped at MaxEntries. The in-memory list is always updated; the returned
// error only reports a failure to persist it.
func (s *Store) Record(result model.PricedResult, yearID string, cat model.Category) (model.HistoryEntry, error) {
	entry := model.NewHistoryEntry(result, yearID, cat, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.HistoryEntry, 0, MaxEntries)
	next = append(next, entry)
	for _, e := range s.entries {
		if model.SameVehicle(e.Result, result) {
			continue
		}
		if len(next) == MaxEntries {
			break
		}
		next = append(next, e)
	}
	s.entries = next

	return entry, s.persistLocked()
}

// List returns the entries, newest first.
func (s *Store) List() []model.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Restore returns the stored entry with the given id. It never contacts the
// pricing provider.
func (s *Store) Restore(id string) (model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.HistoryEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Clear empties the history and persists the empty list.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.persistLocked()
}

func (s *Store) copyLocked() []model.HistoryEntry {
	out := make([]model.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// persistLocked writes the list while s.mu is held, so concurrent records
// reach storage in the same order they were applied in memory.
func (s *Store) persistLocked() error {
	if s.slots == nil {
		return nil
	}
	entries := s.entries
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	if err := s.slots.Set(SlotKey, string(raw)); err != nil {
		s.logger.Error("failed to persist history", "error", err)
		return fmt.Errorf("history: persist: %w", err)
	}
	return nil
}

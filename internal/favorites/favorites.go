// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package favorites keeps the signed-in user's saved vehicles. The list
// lives in the backend; this package holds the local copy and only changes
// it after the backend confirms a mutation.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/session"
)

var (
	// ErrAuthRequired is returned by Toggle when nobody is signed in.
	ErrAuthRequired = errors.New("faça login para salvar favoritos")

	// ErrToggleInFlight is returned when the same favorite is already
	// being added or removed.
	ErrToggleInFlight = errors.New("favorite change already in progress")
)

// Store is the local view of one user's favorites.
type Store struct {
	remote Remote
	logger *slog.Logger

	mu      sync.Mutex
	owner   uuid.UUID
	items   []model.Favorite
	pending map[model.FavoriteKey]bool

	// gen increments on every load or clear so a slow load for a previous
	// identity cannot overwrite the current one.
	gen uint64
}

// New returns an empty store.
func New(remote Remote, logger *slog.Logger) *Store {
	return &Store{
		remote:  remote,
		logger:  logging.OrDiscard(logger),
		pending: make(map[model.FavoriteKey]bool),
	}
}

// Available reports whether favorites can be used at all.
func (s *Store) Available() bool {
	return s != nil && s.remote != nil
}

// LoadForSession replaces the local list with the remote list of sess.
// A nil session clears it.
func (s *Store) LoadForSession(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		s.Clear()
		return nil
	}
	if !s.Available() {
		return session.ErrUnavailable
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	favs, err := s.remote.List(ctx, sess.AccessToken)
	if err != nil {
		s.logger.Warn("failed to load favorites", "error", err)
		return fmt.Errorf("load favorites: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.owner = sess.UserID
	s.items = favs
	s.logger.Debug("favorites loaded", "count", len(favs))
	return nil
}

// Toggle adds the result to favorites, or removes it when it is already
// there. It reports whether the favorite is present afterwards. With no
// session it returns ErrAuthRequired and changes nothing.
func (s *Store) Toggle(ctx context.Context, result model.PricedResult, yearID string, cat model.Category, sess *session.Session) (bool, error) {
	if sess == nil {
		return false, ErrAuthRequired
	}
	if !s.Available() {
		return false, session.ErrUnavailable
	}

	fav := model.FavoriteFromResult(result, yearID, cat)
	key := fav.Key()

	s.mu.Lock()
	if s.pending[key] {
		s.mu.Unlock()
		return s.Contains(key), ErrToggleInFlight
	}
	s.pending[key] = true
	present := s.indexLocked(key) >= 0
	gen := s.gen
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
	}()

	userID := sess.UserID.String()
	if present {
		if err := s.remote.Delete(ctx, sess.AccessToken, userID, key); err != nil {
			s.logger.Warn("failed to remove favorite", "key", key.String(), "error", err)
			return true, fmt.Errorf("remove favorite: %w", err)
		}
	} else {
		if err := s.remote.Insert(ctx, sess.AccessToken, userID, fav); err != nil {
			s.logger.Warn("failed to save favorite", "key", key.String(), "error", err)
			return false, fmt.Errorf("save favorite: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The list was reloaded or cleared for another identity meanwhile.
	if gen != s.gen || (s.owner != uuid.Nil && s.owner != sess.UserID) {
		return !present, nil
	}
	s.owner = sess.UserID
	if present {
		if i := s.indexLocked(key); i >= 0 {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
		}
		return false, nil
	}
	if s.indexLocked(key) < 0 {
		s.items = append([]model.Favorite{fav}, s.items...)
	}
	return true, nil
}

// Contains reports whether key is a favorite.
func (s *Store) Contains(key model.FavoriteKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(key) >= 0
}

// Pending reports whether key is mid-toggle.
func (s *Store) Pending(key model.FavoriteKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[key]
}

// List returns a copy of the favorites, newest first.
func (s *Store) List() []model.Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Favorite, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear drops the local list. Remote rows are untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.owner = uuid.Nil
	s.items = nil
}

func (s *Store) indexLocked(key model.FavoriteKey) int {
	for i, f := range s.items {
		if f.Key() == key {
			return i
		}
	}
	return -1
}

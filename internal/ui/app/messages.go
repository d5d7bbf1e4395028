// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/favorites"
	"github.com/jeranaias/fipepro/internal/fipe"
	"github.com/jeranaias/fipepro/internal/flow"
	"github.com/jeranaias/fipepro/internal/insight"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/session"
)

// remoteTimeout bounds the favorites and auth calls issued from the UI.
const remoteTimeout = 20 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// flowMsg carries a finished selection fetch back to the UI goroutine.
type flowMsg struct {
	outcome flow.Outcome
}

// insightMsg carries generated commentary for one lookup code.
type insightMsg struct {
	code string
	text string
	err  error
}

// trendMsg carries the price trend for one (code, year) pair.
type trendMsg struct {
	key    string
	points []model.TrendPoint
	err    error
}

// favToggledMsg reports the end of a favorite toggle.
type favToggledMsg struct {
	key     model.FavoriteKey
	present bool
	err     error
}

// favLoadedMsg reports the end of a favorites load.
type favLoadedMsg struct {
	err error
}

// sessionLoadedMsg carries the session found at startup.
type sessionLoadedMsg struct {
	sess *session.Session
	err  error
}

// configReloadedMsg carries a config file change.
type configReloadedMsg struct {
	cfg *config.Config
}

// authResultMsg reports the end of an account form submission.
type authResultMsg struct {
	mode   formMode
	sess   *session.Session
	signUp session.SignUpResult
	err    error
}

// =============================================================================
// COMMANDS
// =============================================================================

// runRequest runs a flow request off the UI goroutine. A nil request is a
// no-op.
func runRequest(req *flow.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	return func() tea.Msg {
		return flowMsg{outcome: req.Run(context.Background())}
	}
}

func fetchInsight(c *insight.Client, result model.PricedResult, location string) tea.Cmd {
	code := result.CodeFipe
	return func() tea.Msg {
		text, err := c.Insight(context.Background(), result, location)
		return insightMsg{code: code, text: text, err: err}
	}
}

func fetchTrend(t Trends, cat model.Category, code, yearID string) tea.Cmd {
	key := trendKey(code, yearID)
	return func() tea.Msg {
		points, err := t.PriceTrend(context.Background(), cat, code, yearID, fipe.DefaultTrendPoints)
		return trendMsg{key: key, points: points, err: err}
	}
}

func toggleFavorite(store *favorites.Store, result model.PricedResult, yearID string, cat model.Category, sess *session.Session) tea.Cmd {
	key := model.FavoriteFromResult(result, yearID, cat).Key()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		present, err := store.Toggle(ctx, result, yearID, cat, sess)
		return favToggledMsg{key: key, present: present, err: err}
	}
}

func loadFavorites(store *favorites.Store, sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return favLoadedMsg{err: store.LoadForSession(ctx, sess)}
	}
}

func loadSession(s Sessions) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		sess, err := s.Current(ctx)
		return sessionLoadedMsg{sess: sess, err: err}
	}
}

// waitForSession blocks until the session store reports a change.
// forwardSession queues msg without blocking the notifier. When the queue is
// full the oldest pending event is dropped so the latest one always lands.
func forwardSession(ch chan session.ChangedMsg, msg session.ChangedMsg, logger *slog.Logger) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case old := <-ch:
			logger.Debug("session event coalesced", "dropped", old.Event.String(), "latest", msg.Event.String())
		default:
		}
	}
}

func waitForSession(ch <-chan session.ChangedMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// waitForReload blocks until the config watcher delivers a new config.
func waitForReload(ch <-chan *config.Config) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return configReloadedMsg{cfg: cfg}
	}
}

func trendKey(code, yearID string) string {
	return code + "/" + yearID
}

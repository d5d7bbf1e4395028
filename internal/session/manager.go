// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fipepro/internal/backend"
	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/util"
)

// Auth is the subset of the backend client the manager needs.
type Auth interface {
	IsConfigured() bool
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*backend.SignUpResponse, error)
	SignInWithPassword(ctx context.Context, email, password string) (*backend.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.TokenResponse, error)
	SignOut(ctx context.Context, accessToken string) error
	RecoverPassword(ctx context.Context, email, redirectTo string) error
	Verify(ctx context.Context, typ backend.VerifyType, email, code string) (*backend.TokenResponse, error)
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager implements Store on top of the managed auth service.
type Manager struct {
	auth   Auth
	caps   Capabilities
	path   string
	logger *slog.Logger
	now    func() time.Time

	// refreshSkew is how long before expiry a token is refreshed.
	refreshSkew time.Duration

	mu        sync.Mutex
	current   *Session
	listeners map[int]Listener
	nextID    int

	// refreshMu serializes refreshes so a burst of Current calls only
	// spends the refresh token once.
	refreshMu sync.Mutex
}

// Config holds configuration for the session manager.
type Config struct {
	Capabilities Capabilities

	// Path is the session file. Empty keeps the session in memory only.
	Path string

	// RefreshSkew defaults to one minute.
	RefreshSkew time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// NewManager creates a manager and restores any persisted session.
func NewManager(auth Auth, cfg Config) *Manager {
	m := &Manager{
		auth:        auth,
		caps:        cfg.Capabilities,
		path:        cfg.Path,
		logger:      logging.OrDiscard(cfg.Logger),
		now:         cfg.Now,
		refreshSkew: cfg.RefreshSkew,
		listeners:   make(map[int]Listener),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.refreshSkew <= 0 {
		m.refreshSkew = time.Minute
	}
	m.current = m.loadPersisted()
	return m
}

// Available reports whether the backend is configured.
func (m *Manager) Available() bool {
	return m.auth != nil && m.auth.IsConfigured()
}

// Capabilities implements Store.
func (m *Manager) Capabilities() Capabilities {
	return m.caps
}

// =============================================================================
// AUTH OPERATIONS
// =============================================================================

// SignUp validates the form and registers the account. When the backend
// returns a session the user is signed in immediately; otherwise the result
// asks the caller to have the user confirm their email and sign in.
func (m *Manager) SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error) {
	if !m.Available() {
		return SignUpResult{}, ErrUnavailable
	}
	if err := ValidateSignUp(req); err != nil {
		return SignUpResult{}, err
	}

	resp, err := m.auth.SignUp(ctx, strings.TrimSpace(req.Email), req.Password,
		map[string]any{"full_name": strings.TrimSpace(req.FullName)})
	if err != nil {
		m.logger.Info("sign-up rejected", "error", err)
		return SignUpResult{}, err
	}
	if resp.Session == nil {
		return SignUpResult{NeedsConfirmation: true}, nil
	}

	s, err := fromToken(resp.Session, m.now())
	if err != nil {
		return SignUpResult{}, err
	}
	m.set(s, EventSignedIn)
	return SignUpResult{Session: s}, nil
}

// SignIn exchanges credentials for a session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if !m.Available() {
		return nil, ErrUnavailable
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	tok, err := m.auth.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		m.logger.Info("sign-in rejected", "error", err)
		return nil, err
	}
	s, err := fromToken(tok, m.now())
	if err != nil {
		return nil, err
	}
	m.set(s, EventSignedIn)
	return s, nil
}

// VerifyCode completes a sign-up (or, with recovery set, a password reset)
// using the one-time code sent by email.
func (m *Manager) VerifyCode(ctx context.Context, email, code string, recovery bool) (*Session, error) {
	if !m.Available() {
		return nil, ErrUnavailable
	}
	if !m.caps.VerificationCode {
		return nil, errors.New("verification codes are not enabled for this backend")
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrCodeRequired
	}

	typ := backend.VerifySignUp
	if recovery {
		typ = backend.VerifyRecovery
	}
	tok, err := m.auth.Verify(ctx, typ, strings.TrimSpace(email), code)
	if err != nil {
		return nil, err
	}
	s, err := fromToken(tok, m.now())
	if err != nil {
		return nil, err
	}
	m.set(s, EventSignedIn)
	return s, nil
}

// SignOut clears the session. The remote revoke is best effort; the local
// session is dropped even if it fails.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return nil
	}

	if m.Available() {
		if err := m.auth.SignOut(ctx, s.AccessToken); err != nil {
			m.logger.Warn("remote sign-out failed", "error", err)
		}
	}
	m.set(nil, EventSignedOut)
	return nil
}

// RequestPasswordReset asks the backend to email a reset link or code.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	if !m.Available() {
		return ErrUnavailable
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return m.auth.RecoverPassword(ctx, strings.TrimSpace(email), "")
}

// Current returns the signed-in session, refreshing it first when it is
// about to expire. It returns nil when nobody is signed in. A rejected
// refresh signs the user out.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return nil, nil
	}
	if !s.NeedsRefresh(m.now(), m.refreshSkew) {
		return s, nil
	}
	return m.refresh(ctx)
}

// Peek returns the session without refreshing it.
func (m *Manager) Peek() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) refresh(ctx context.Context) (*Session, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return nil, nil
	}
	// Another caller may have refreshed while we waited.
	if !s.NeedsRefresh(m.now(), m.refreshSkew) {
		return s, nil
	}
	if !m.Available() || s.RefreshToken == "" {
		if s.Expired(m.now()) {
			m.set(nil, EventSignedOut)
			return nil, nil
		}
		return s, nil
	}

	tok, err := m.auth.Refresh(ctx, s.RefreshToken)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			m.logger.Info("session refresh rejected, signing out", "error", err)
			m.set(nil, EventSignedOut)
			return nil, nil
		}
		if s.Expired(m.now()) {
			return nil, fmt.Errorf("session expired and refresh failed: %w", err)
		}
		m.logger.Warn("session refresh failed, keeping current token", "error", err)
		return s, nil
	}

	next, err := fromToken(tok, m.now())
	if err != nil {
		return nil, err
	}
	if next.RefreshToken == "" {
		next.RefreshToken = s.RefreshToken
	}
	m.set(next, EventTokenRefreshed)
	return next, nil
}

// =============================================================================
// CHANGE NOTIFICATIONS
// =============================================================================

// OnChange registers fn for session changes and returns a function that
// unregisters it.
func (m *Manager) OnChange(fn Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// set swaps the current session, persists it and notifies listeners
// outside the lock.
func (m *Manager) set(s *Session, e Event) {
	m.mu.Lock()
	m.current = s
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	if err := m.persist(s); err != nil {
		m.logger.Warn("failed to persist session", "error", err)
	}
	for _, l := range listeners {
		l(e, s)
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (m *Manager) loadPersisted() *Session {
	if m.path == "" {
		return nil
	}
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("failed to read session file", "error", err)
		}
		return nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.AccessToken == "" {
		m.logger.Warn("ignoring malformed session file", "path", m.path)
		return nil
	}
	return &s
}

func (m *Manager) persist(s *Session) error {
	if m.path == "" {
		return nil
	}
	if s == nil {
		if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(m.path, raw, 0600)
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickInterval is how often the TUI checks whether to refresh the token.
const TickInterval = 30 * time.Second

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// ChangedMsg carries a session change into the TUI.
type ChangedMsg struct {
	Event   Event
	Session *Session
}

// TickCmd returns a command that ticks after TickInterval.
func TickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick refreshes the token in the background when it is close to
// expiry and schedules the next tick. The refresh itself reports through
// OnChange listeners.
func (m *Manager) HandleTick() tea.Cmd {
	cmds := []tea.Cmd{TickCmd()}

	s := m.Peek()
	if s != nil && s.NeedsRefresh(m.now(), m.refreshSkew) {
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultTimeout)
			defer cancel()
			if _, err := m.Current(ctx); err != nil {
				m.logger.Warn("background session refresh failed", "error", err)
			}
			return nil
		})
	}
	return tea.Batch(cmds...)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/fipepro/internal/backend"
)

const testUserID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func signToken(t *testing.T, sub, email, name string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   exp.Unix(),
		"user_metadata": map[string]any{
			"full_name": name,
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

// fakeAuth is an in-memory Auth.
type fakeAuth struct {
	mu         sync.Mutex
	configured bool
	tok        *backend.TokenResponse
	signUp     *backend.SignUpResponse
	err        error
	refreshErr error
	refreshes  int
	signOuts   int
	resets     []string
	verified   []backend.VerifyType
	metadata   map[string]any
}

func (f *fakeAuth) IsConfigured() bool { return f.configured }

func (f *fakeAuth) SignUp(_ context.Context, _, _ string, metadata map[string]any) (*backend.SignUpResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata = metadata
	return f.signUp, f.err
}

func (f *fakeAuth) SignInWithPassword(context.Context, string, string) (*backend.TokenResponse, error) {
	return f.tok, f.err
}

func (f *fakeAuth) Refresh(context.Context, string) (*backend.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.tok, nil
}

func (f *fakeAuth) SignOut(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return f.err
}

func (f *fakeAuth) RecoverPassword(_ context.Context, email, _ string) error {
	f.resets = append(f.resets, email)
	return f.err
}

func (f *fakeAuth) Verify(_ context.Context, typ backend.VerifyType, _, _ string) (*backend.TokenResponse, error) {
	f.verified = append(f.verified, typ)
	return f.tok, f.err
}

func tokenFor(t *testing.T, exp time.Time) *backend.TokenResponse {
	return &backend.TokenResponse{
		AccessToken:  signToken(t, testUserID, "ana@example.com", "Ana Souza", exp),
		RefreshToken: "refresh-1",
		ExpiresAt:    exp.Unix(),
	}
}

func TestSignIn_BuildsSessionFromClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	auth := &fakeAuth{configured: true, tok: tokenFor(t, now.Add(time.Hour))}
	m := NewManager(auth, Config{Now: func() time.Time { return now }})

	s, err := m.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, testUserID, s.UserID.String())
	assert.Equal(t, "ana@example.com", s.Email)
	assert.Equal(t, "Ana Souza", s.Name())
	assert.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresAt.Unix())

	cur, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, s, cur)
}

func TestSignIn_Errors(t *testing.T) {
	m := NewManager(&fakeAuth{configured: false}, Config{})
	_, err := m.SignIn(context.Background(), "ana@example.com", "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, m.Available())

	m = NewManager(&fakeAuth{configured: true}, Config{})
	_, err = m.SignIn(context.Background(), "not-an-email", "x")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	provider := &backend.APIError{Status: 400, Message: "Invalid login credentials"}
	m = NewManager(&fakeAuth{configured: true, err: provider}, Config{})
	_, err = m.SignIn(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
	assert.Nil(t, m.Peek())
}

func TestSignUp(t *testing.T) {
	valid := SignUpRequest{Email: "ana@example.com", Password: "secret1", ConfirmPassword: "secret1", FullName: " Ana Souza "}

	t.Run("needs confirmation", func(t *testing.T) {
		auth := &fakeAuth{configured: true, signUp: &backend.SignUpResponse{}}
		m := NewManager(auth, Config{})
		res, err := m.SignUp(context.Background(), valid)
		require.NoError(t, err)
		assert.True(t, res.NeedsConfirmation)
		assert.Nil(t, res.Session)
		assert.Equal(t, "Ana Souza", auth.metadata["full_name"])
		assert.Nil(t, m.Peek())
	})

	t.Run("auto confirmed", func(t *testing.T) {
		tok := tokenFor(t, time.Now().Add(time.Hour))
		auth := &fakeAuth{configured: true, signUp: &backend.SignUpResponse{Session: tok}}
		m := NewManager(auth, Config{})
		res, err := m.SignUp(context.Background(), valid)
		require.NoError(t, err)
		assert.False(t, res.NeedsConfirmation)
		require.NotNil(t, res.Session)
		assert.Same(t, res.Session, m.Peek())
	})

	t.Run("validation", func(t *testing.T) {
		m := NewManager(&fakeAuth{configured: true}, Config{})
		cases := []struct {
			req  SignUpRequest
			want error
		}{
			{SignUpRequest{Email: "ana@example.com", Password: "secret1", ConfirmPassword: "secret1"}, ErrNameRequired},
			{SignUpRequest{Email: "bad", Password: "secret1", ConfirmPassword: "secret1", FullName: "Ana"}, ErrInvalidEmail},
			{SignUpRequest{Email: "ana@example.com", Password: "secret1", ConfirmPassword: "secret2", FullName: "Ana"}, ErrPasswordMismatch},
			{SignUpRequest{Email: "ana@example.com", Password: "abc", ConfirmPassword: "abc", FullName: "Ana"}, ErrPasswordTooShort},
		}
		for _, tc := range cases {
			_, err := m.SignUp(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		}
	})
}

func TestSignOut_AlwaysClearsLocally(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	auth := &fakeAuth{configured: true, tok: tokenFor(t, time.Now().Add(time.Hour))}
	m := NewManager(auth, Config{Path: path})

	_, err := m.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	auth.err = errors.New("network down")
	require.NoError(t, m.SignOut(context.Background()))
	assert.Nil(t, m.Peek())
	assert.Equal(t, 1, auth.signOuts)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Signing out again is a no-op.
	require.NoError(t, m.SignOut(context.Background()))
	assert.Equal(t, 1, auth.signOuts)
}

func TestPersistence_RestoresSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	auth := &fakeAuth{configured: true, tok: tokenFor(t, time.Now().Add(time.Hour))}

	first := NewManager(auth, Config{Path: path})
	_, err := first.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second := NewManager(auth, Config{Path: path})
	s := second.Peek()
	require.NotNil(t, s)
	assert.Equal(t, testUserID, s.UserID.String())
	assert.Equal(t, "Ana Souza", s.DisplayName)
}

func TestPersistence_MalformedFileIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	m := NewManager(&fakeAuth{configured: true}, Config{Path: path})
	assert.Nil(t, m.Peek())
}

func TestCurrent_Refresh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	t.Run("refreshes near expiry", func(t *testing.T) {
		auth := &fakeAuth{configured: true, tok: tokenFor(t, now.Add(30*time.Second))}
		m := NewManager(auth, Config{Now: clock})
		_, err := m.SignIn(context.Background(), "ana@example.com", "secret1")
		require.NoError(t, err)

		auth.tok = tokenFor(t, now.Add(time.Hour))
		auth.tok.RefreshToken = ""

		var events []Event
		m.OnChange(func(e Event, _ *Session) { events = append(events, e) })

		s, err := m.Current(context.Background())
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresAt.Unix())
		assert.Equal(t, "refresh-1", s.RefreshToken, "old refresh token kept when none returned")
		assert.Equal(t, []Event{EventTokenRefreshed}, events)
		assert.Equal(t, 1, auth.refreshes)
	})

	t.Run("rejected refresh signs out", func(t *testing.T) {
		auth := &fakeAuth{configured: true, tok: tokenFor(t, now.Add(30*time.Second))}
		m := NewManager(auth, Config{Now: clock})
		_, err := m.SignIn(context.Background(), "ana@example.com", "secret1")
		require.NoError(t, err)

		auth.refreshErr = &backend.APIError{Status: 400, Message: "Invalid Refresh Token"}
		s, err := m.Current(context.Background())
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Nil(t, m.Peek())
	})

	t.Run("network failure keeps valid token", func(t *testing.T) {
		auth := &fakeAuth{configured: true, tok: tokenFor(t, now.Add(30*time.Second))}
		m := NewManager(auth, Config{Now: clock})
		_, err := m.SignIn(context.Background(), "ana@example.com", "secret1")
		require.NoError(t, err)

		auth.refreshErr = errors.New("dial tcp: connection refused")
		s, err := m.Current(context.Background())
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("no refresh when fresh", func(t *testing.T) {
		auth := &fakeAuth{configured: true, tok: tokenFor(t, now.Add(time.Hour))}
		m := NewManager(auth, Config{Now: clock})
		_, err := m.SignIn(context.Background(), "ana@example.com", "secret1")
		require.NoError(t, err)

		_, err = m.Current(context.Background())
		require.NoError(t, err)
		assert.Zero(t, auth.refreshes)
	})
}

func TestOnChange_Cancel(t *testing.T) {
	auth := &fakeAuth{configured: true, tok: tokenFor(t, time.Now().Add(time.Hour))}
	m := NewManager(auth, Config{})

	calls := 0
	cancel := m.OnChange(func(Event, *Session) { calls++ })
	_, err := m.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	cancel()
	require.NoError(t, m.SignOut(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestVerifyCode(t *testing.T) {
	auth := &fakeAuth{configured: true, tok: tokenFor(t, time.Now().Add(time.Hour))}

	m := NewManager(auth, Config{})
	_, err := m.VerifyCode(context.Background(), "ana@example.com", "123456", false)
	require.Error(t, err, "capability disabled")

	m = NewManager(auth, Config{Capabilities: Capabilities{VerificationCode: true}})
	_, err = m.VerifyCode(context.Background(), "ana@example.com", " ", false)
	assert.ErrorIs(t, err, ErrCodeRequired)

	s, err := m.VerifyCode(context.Background(), "ana@example.com", "123456", true)
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, []backend.VerifyType{backend.VerifyRecovery}, auth.verified)
}

func TestRequestPasswordReset(t *testing.T) {
	auth := &fakeAuth{configured: true}
	m := NewManager(auth, Config{})

	assert.ErrorIs(t, m.RequestPasswordReset(context.Background(), "nope"), ErrInvalidEmail)
	require.NoError(t, m.RequestPasswordReset(context.Background(), " ana@example.com "))
	assert.Equal(t, []string{"ana@example.com"}, auth.resets)
}

func TestManager_WithHTTPBackend(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	access := signToken(t, testUserID, "ana@example.com", "Ana", exp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			w.Write([]byte(`{"access_token":"` + access + `","refresh_token":"rt","expires_in":3600,"user":{"id":"` + testUserID + `","email":"ana@example.com"}}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := backend.New(srv.URL, "anon", backend.WithHTTPClient(srv.Client()))
	var _ Store = NewManager(client, Config{})
	m := NewManager(client, Config{})

	s, err := m.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", s.Name())
	require.NoError(t, m.SignOut(context.Background()))
	assert.Nil(t, m.Peek())
}

func TestSessionExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	s := &Session{ExpiresAt: now.Add(30 * time.Second)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.NeedsRefresh(now, time.Minute))
	assert.False(t, s.NeedsRefresh(now, 10*time.Second))
	assert.True(t, s.Expired(now.Add(time.Minute)))

	assert.Equal(t, "a@b.c", (&Session{Email: "a@b.c"}).Name())
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the signed-in identity: sign-up, sign-in,
// sign-out, password reset, token refresh and change notifications, backed
// by the managed auth service. The current session is persisted to a
// private file so it survives restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jeranaias/fipepro/internal/backend"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is an authenticated identity. The tokens are opaque to callers;
// UserID and Email are what the rest of the app uses.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// NeedsRefresh reports whether the token expires within skew of now.
func (s *Session) NeedsRefresh(now time.Time, skew time.Duration) bool {
	return !s.ExpiresAt.IsZero() && !now.Add(skew).Before(s.ExpiresAt)
}

// Name returns the display name, falling back to the email address.
func (s *Session) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Email
}

// accessClaims is the part of the backend's access token fipepro reads.
type accessClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// fromToken builds a Session from a token response. Response fields win;
// the access token's claims fill anything the response left out. The token
// signature is not checked here because only the backend can verify it and
// it does so on every request.
func fromToken(tok *backend.TokenResponse, now time.Time) (*Session, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, errors.New("session: token response has no access token")
	}

	s := &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Email:        tok.User.Email,
		DisplayName:  tok.User.DisplayName(),
	}
	switch {
	case tok.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	subject := tok.User.ID
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, &claims); err == nil {
		if subject == "" {
			subject = claims.Subject
		}
		if s.Email == "" {
			s.Email = claims.Email
		}
		if s.DisplayName == "" {
			if name, ok := claims.UserMetadata["full_name"].(string); ok {
				s.DisplayName = name
			}
		}
		if s.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
	}

	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("session: invalid user id %q: %w", subject, err)
	}
	s.UserID = id
	return s, nil
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Event describes a session change.
type Event int

const (
	EventSignedIn Event = iota
	EventSignedOut
	EventTokenRefreshed
)

func (e Event) String() string {
	switch e {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventTokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Listener is notified of session changes. s is nil after sign-out.
type Listener func(e Event, s *Session)

// Capabilities describe optional behaviors of the configured backend
// project. They are configuration, not something the app can negotiate.
type Capabilities struct {
	// ConfirmEmail is set when new accounts must confirm their email
	// before signing in.
	ConfirmEmail bool

	// VerificationCode is set when sign-up and password reset use a
	// one-time email code instead of (or as well as) a link.
	VerificationCode bool
}

// SignUpRequest carries the sign-up form.
type SignUpRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
}

// SignUpResult reports how sign-up ended. Exactly one of Session or
// NeedsConfirmation is set.
type SignUpResult struct {
	Session           *Session
	NeedsConfirmation bool
}

// Store is the session contract the UI and the favorites store depend on.
type Store interface {
	SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string, recovery bool) (*Session, error)
	Current(ctx context.Context) (*Session, error)
	OnChange(fn Listener) (cancel func())
	Capabilities() Capabilities
	Available() bool
}

// =============================================================================
// VALIDATION
// =============================================================================

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	ErrInvalidEmail     = errors.New("Informe um e-mail válido.")
	ErrPasswordMismatch = errors.New("As senhas não coincidem.")
	ErrPasswordTooShort = fmt.Errorf("A senha deve ter pelo menos %d caracteres.", MinPasswordLength)
	ErrNameRequired     = errors.New("Informe seu nome.")
	ErrCodeRequired     = errors.New("Informe o código recebido por e-mail.")

	// ErrUnavailable is returned when the backend is not configured.
	ErrUnavailable = errors.New("Login indisponível: backend não configurado.")
)

// ValidateEmail checks the address syntax.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateSignUp checks the form before anything is sent.
func ValidateSignUp(req SignUpRequest) error {
	if strings.TrimSpace(req.FullName) == "" {
		return ErrNameRequired
	}
	if err := ValidateEmail(req.Email); err != nil {
		return err
	}
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len([]rune(req.Password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

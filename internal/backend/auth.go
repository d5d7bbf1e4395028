// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// =============================================================================
// AUTH TYPES
// =============================================================================

// User is the subset of the auth user record fipepro uses.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	ConfirmedAt  string         `json:"confirmed_at,omitempty"`
}

// DisplayName returns the full_name metadata, if any.
func (u User) DisplayName() string {
	if u.UserMetadata == nil {
		return ""
	}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		return name
	}
	return ""
}

// TokenResponse is a session issued by the auth service.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// SignUpResponse is what the sign-up endpoint returns. When the project
// requires email confirmation no session is issued and Session is nil.
type SignUpResponse struct {
	Session *TokenResponse
	User    User
}

// VerifyType names the one-time code flows.
type VerifyType string

const (
	VerifySignUp   VerifyType = "signup"
	VerifyRecovery VerifyType = "recovery"
	VerifyEmail    VerifyType = "email"
)

// =============================================================================
// AUTH OPERATIONS
// =============================================================================

// SignUp registers a new account. metadata is stored as user metadata
// (fipepro sends full_name).
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResponse, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/signup", body: body}, &raw); err != nil {
		return nil, err
	}

	// With auto-confirm the response is a full session; otherwise it is the
	// bare user record.
	var tok TokenResponse
	if err := json.Unmarshal(raw, &tok); err == nil && tok.AccessToken != "" {
		return &SignUpResponse{Session: &tok, User: tok.User}, nil
	}
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}
	return &SignUpResponse{User: user}, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.token(ctx, "password", map[string]any{"email": email, "password": password})
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.token(ctx, "refresh_token", map[string]any{"refresh_token": refreshToken})
}

func (c *Client) token(ctx context.Context, grant string, body map[string]any) (*TokenResponse, error) {
	var tok TokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grant}},
		body:   body,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// SignOut revokes the session's refresh tokens.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout", token: accessToken}, nil)
}

// RecoverPassword sends a password-reset email. redirectTo is optional.
func (c *Client) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	req := request{
		method: http.MethodPost,
		path:   "/auth/v1/recover",
		body:   map[string]any{"email": email},
	}
	if redirectTo != "" {
		req.query = url.Values{"redirect_to": {redirectTo}}
	}
	return c.do(ctx, req, nil)
}

// Verify exchanges a one-time email code for a session.
func (c *Client) Verify(ctx context.Context, typ VerifyType, email, code string) (*TokenResponse, error) {
	var tok TokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/verify",
		body: map[string]any{
			"type":  string(typ),
			"email": email,
			"token": strings.TrimSpace(code),
		},
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", token: accessToken}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePassword sets a new password for the signed-in user, completing a
// recovery flow.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/auth/v1/user",
		token:  accessToken,
		body:   map[string]any{"password": password},
	}, nil)
}

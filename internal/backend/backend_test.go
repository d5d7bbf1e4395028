// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "anon-key", WithHTTPClient(srv.Client()))
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestNotConfigured(t *testing.T) {
	c := New("", "")
	assert.False(t, c.IsConfigured())

	_, err := c.SignInWithPassword(context.Background(), "a@b.c", "secret1")
	assert.ErrorIs(t, err, ErrNotConfigured)

	var nilClient *Client
	assert.False(t, nilClient.IsConfigured())
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "ana@example.com", body["email"])

		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"6f1c","email":"ana@example.com","user_metadata":{"full_name":"Ana"}}}`))
	})

	tok, err := c.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	assert.Equal(t, "Ana", tok.User.DisplayName())
}

func TestSignIn_ErrorMessageVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := c.SignInWithPassword(context.Background(), "a@b.c", "wrong!")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid_grant", apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestHandleErrorResponse_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
		code string
	}{
		{"gotrue msg", `{"code":422,"error_code":"weak_password","msg":"Password should be at least 6 characters."}`, "Password should be at least 6 characters.", "weak_password"},
		{"postgrest", `{"code":"23505","message":"duplicate key value violates unique constraint","details":null}`, "duplicate key value violates unique constraint", "23505"},
		{"plain text", `upstream timeout`, "upstream timeout", ""},
		{"empty", ``, "Conflict", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleErrorResponse(http.StatusConflict, []byte(tt.body))
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.msg, apiErr.Message)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestUnauthorizedIs(t *testing.T) {
	assert.ErrorIs(t, &APIError{Status: 401, Message: "JWT expired"}, ErrUnauthorized)
	assert.ErrorIs(t, &APIError{Status: 403}, ErrUnauthorized)
	assert.NotErrorIs(t, &APIError{Status: 500}, ErrUnauthorized)
}

func TestSignUp_WithAndWithoutSession(t *testing.T) {
	autoConfirm := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		body := decodeBody(t, r)
		data, _ := body["data"].(map[string]any)
		assert.Equal(t, "Ana Souza", data["full_name"])

		if autoConfirm {
			w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u1","email":"ana@example.com"}}`))
			return
		}
		w.Write([]byte(`{"id":"u1","email":"ana@example.com","confirmation_sent_at":"2026-10-17T10:00:00Z"}`))
	})
	meta := map[string]any{"full_name": "Ana Souza"}

	resp, err := c.SignUp(context.Background(), "ana@example.com", "secret1", meta)
	require.NoError(t, err)
	require.NotNil(t, resp.Session)
	assert.Equal(t, "u1", resp.User.ID)

	autoConfirm = false
	resp, err = c.SignUp(context.Background(), "ana@example.com", "secret1", meta)
	require.NoError(t, err)
	assert.Nil(t, resp.Session)
	assert.Equal(t, "ana@example.com", resp.User.Email)
}

func TestRefreshRecoverVerifySignOut(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		switch r.URL.Path {
		case "/auth/v1/token", "/auth/v1/verify":
			w.Write([]byte(`{"access_token":"new","refresh_token":"rt2","expires_in":3600}`))
		case "/auth/v1/logout":
			assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		}
	})
	ctx := context.Background()

	tok, err := c.Refresh(ctx, "rt")
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)

	require.NoError(t, c.RecoverPassword(ctx, "ana@example.com", ""))

	tok, err = c.Verify(ctx, VerifySignUp, "ana@example.com", " 123456 ")
	require.NoError(t, err)
	assert.Equal(t, "rt2", tok.RefreshToken)

	require.NoError(t, c.SignOut(ctx, "at"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /auth/v1/token?grant_type=refresh_token",
		"POST /auth/v1/recover?",
		"POST /auth/v1/verify?",
		"POST /auth/v1/logout?",
	}, paths)
}

func TestSelectInsertDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/favorites", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		q := r.URL.Query()

		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "*", q.Get("select"))
			assert.Equal(t, "created_at.desc", q.Get("order"))
			assert.Equal(t, "eq.u1", q.Get("user_id"))
			w.Write([]byte(`[{"fipe_code":"001004-9","year_id":"2015-1"}]`))
		case http.MethodPost:
			assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
			body := decodeBody(t, r)
			assert.Equal(t, "001004-9", body["fipe_code"])
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			assert.Equal(t, "eq.001004-9", q.Get("fipe_code"))
			assert.Equal(t, "eq.2015-1", q.Get("year_id"))
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	var rows []map[string]string
	err := c.Select(ctx, "user-token", "favorites", Query{
		Filters: []Filter{Eq("user_id", "u1")},
		Order:   "created_at.desc",
	}, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2015-1", rows[0]["year_id"])

	require.NoError(t, c.Insert(ctx, "user-token", "favorites", map[string]string{"fipe_code": "001004-9"}, nil))
	require.NoError(t, c.Delete(ctx, "user-token", "favorites", Eq("fipe_code", "001004-9"), Eq("year_id", "2015-1")))
}

func TestDelete_RequiresFilter(t *testing.T) {
	c := New("https://proj.supabase.co", "anon")
	err := c.Delete(context.Background(), "t", "favorites")
	require.Error(t, err)
}

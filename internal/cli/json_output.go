// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/fipepro/internal/model"
)

// JSONResponse is the envelope every command prints in --json mode.
type JSONResponse struct {
	Success bool `json:"success"`

	// Data is the command payload; null on failure.
	Data any `json:"data"`

	// Error is the failure message; null on success.
	Error     *string `json:"error"`
	ErrorType string  `json:"error_type,omitempty"`

	Timestamp string `json:"timestamp"`
	Command   string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response, indented, to w.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND PAYLOADS
// =============================================================================

// ResultData is printed by price, code and favorites toggle.
type ResultData struct {
	Result   model.PricedResult `json:"result"`
	YearID   string             `json:"year_id"`
	Category string             `json:"category"`
	Favorite *bool              `json:"favorite,omitempty"`
}

// TrendData is printed by trend.
type TrendData struct {
	CodeFipe string             `json:"code_fipe"`
	YearID   string             `json:"year_id"`
	Points   []model.TrendPoint `json:"points"`
}

// InsightData is printed by insight.
type InsightData struct {
	Result   model.PricedResult `json:"result"`
	Location string             `json:"location,omitempty"`
	Text     string             `json:"text"`
}

// AccountData describes the signed-in user.
type AccountData struct {
	SignedIn  bool      `json:"signed_in"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Confirmed *bool     `json:"confirmed,omitempty"`
}

// VersionData is printed by version.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

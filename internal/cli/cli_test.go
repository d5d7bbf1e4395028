// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/fipe"
	"github.com/jeranaias/fipepro/internal/history"
	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/session"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{name: "no args starts the interface", argv: nil, wantCmd: CmdTUI},
		{name: "command with args", argv: []string{"brands", "car"}, wantCmd: CmdBrands,
			check: func(t *testing.T, a Args) {
				if len(a.Raw) != 1 || a.Raw[0] != "car" {
					t.Errorf("Raw = %v", a.Raw)
				}
			}},
		{name: "global flags anywhere", argv: []string{"price", "--json", "car", "-v", "21"}, wantCmd: CmdPrice,
			check: func(t *testing.T, a Args) {
				if !a.JSON || !a.Verbose {
					t.Errorf("JSON=%v Verbose=%v", a.JSON, a.Verbose)
				}
				if strings.Join(a.Raw, " ") != "car 21" {
					t.Errorf("Raw = %v", a.Raw)
				}
			}},
		{name: "config path with equals", argv: []string{"--config=/tmp/x.toml", "whoami"}, wantCmd: CmdWhoami,
			check: func(t *testing.T, a Args) {
				if a.ConfigPath != "/tmp/x.toml" {
					t.Errorf("ConfigPath = %q", a.ConfigPath)
				}
			}},
		{name: "config path separate", argv: []string{"--config", "c.toml", "serve"}, wantCmd: CmdServe,
			check: func(t *testing.T, a Args) {
				if a.ConfigPath != "c.toml" {
					t.Errorf("ConfigPath = %q", a.ConfigPath)
				}
			}},
		{name: "portuguese alias", argv: []string{"marcas", "motos"}, wantCmd: CmdBrands},
		{name: "help flag", argv: []string{"--help"}, wantCmd: CmdHelp},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "unknown", argv: []string{"brnads"}, wantCmd: CmdUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			if cmd != tt.wantCmd {
				t.Fatalf("Parse(%v) cmd = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"clear", "--yes", "extra", "--search", "gol", "--reference=320", "--points", "-3"}, "yes")

	if p.Positional(0) != "clear" || p.Positional(1) != "extra" {
		t.Errorf("positionals = %q %q", p.Positional(0), p.Positional(1))
	}
	if !p.BoolFlag("yes") {
		t.Error("--yes should be boolean")
	}
	if p.Flag("search") != "gol" {
		t.Errorf("Flag(search) = %q", p.Flag("search"))
	}
	if n, ok, err := p.FlagInt("reference"); err != nil || !ok || n != 320 {
		t.Errorf("FlagInt(reference) = %d %v %v", n, ok, err)
	}
	if _, ok, _ := p.FlagInt("missing"); ok {
		t.Error("missing flag reported present")
	}
	if p.Flag("points") != "" || !p.HasFlag("points") {
		t.Error("a flag followed by a number keeps the number positional")
	}
	if p.PositionalCount() != 3 || p.Positional(2) != "-3" {
		t.Errorf("negative number should be positional, got %d positionals", p.PositionalCount())
	}

	bad := NewArgParser([]string{"--points", "abc"})
	if _, _, err := bad.FlagInt("points"); GetExitCode(err) != ExitUsageError {
		t.Errorf("non-numeric flag error = %v", err)
	}
}

func TestArgParser_Require(t *testing.T) {
	p := NewArgParser([]string{"car"})
	_, err := p.Require("fipepro models <categoria> <marca>", "category", "brand")
	var usage *UsageError
	if !errors.As(err, &usage) || usage.Field != "brand" {
		t.Fatalf("Require error = %v, want missing brand", err)
	}
	if !strings.Contains(err.Error(), "fipepro models") {
		t.Error("usage error should include the usage line")
	}
}

func TestSuggestCommand(t *testing.T) {
	tests := map[string]string{
		"brnads":   "brands",
		"whoam":    "whoami",
		"favorits": "favorites",
		"x":        "",
		"price":    "",
		"zzzzzzz":  "",
	}
	for in, want := range tests {
		if got := SuggestCommand(in); got != want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{NewUsageError("category", "boat", "must be car"), ExitUsageError},
		{wrap("code", "", fipe.ErrNotFound), ExitNotFoundError},
		{wrap("brands", "", fipe.ErrConnection), ExitNetworkError},
		{wrap("login", "", session.ErrUnavailable), ExitAuthError},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), ExitTimeoutError},
		{config.ValidateErrors{{Field: "flow.order", Message: "bad"}}, ExitConfigError},
		{errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.err); got != tt.want {
			t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "code", wrap("code", "", fipe.ErrNotFound), true)

	var resp JSONResponse
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if resp.Success || resp.Error == nil || resp.ErrorType != "not_found" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func pricingServer(t *testing.T) *fipe.Client {
	t.Helper()
	result := model.PricedResult{
		Price: "R$ 48.123,00", Brand: "Fiat", Model: "Argo 1.0", ModelYear: 2015,
		Fuel: "Gasolina", CodeFipe: "001004-9", ReferenceMonth: "outubro de 2026", VehicleType: 1,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/cars/brands", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Item{{Code: "21", Name: "Fiat"}, {Code: "23", Name: "Citroën"}})
	})
	mux.HandleFunc("/cars/brands/21/models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Item{{Code: "4828", Name: "Argo 1.0"}})
	})
	mux.HandleFunc("/cars/brands/21/models/4828/years", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Item{{Code: "2015-1", Name: "2015 Gasolina"}})
	})
	mux.HandleFunc("/cars/brands/21/models/4828/years/2015-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(result)
	})
	mux.HandleFunc("/cars/models/001004-9/years/2015-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(result)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fipe.NewClientWithConfig(&fipe.ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func newTestEnv(t *testing.T, jsonMode bool, name string, raw ...string) (*Env, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &Env{
		Args:       Args{JSON: jsonMode, Name: name, Raw: raw},
		Config:     config.Default(),
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Logger:     logging.Discard(),
		Out:        &out,
		Pricing:    pricingServer(t),
		History:    history.Open(nil),
	}, &out
}

func TestBrands_SearchIsAccentInsensitive(t *testing.T) {
	env, out := newTestEnv(t, true, "brands", "car", "--search", "citroe")
	if err := runBrands(env); err != nil {
		t.Fatalf("runBrands: %v", err)
	}

	var resp struct {
		Success bool         `json:"success"`
		Data    []model.Item `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || len(resp.Data) != 1 || resp.Data[0].Code != "23" {
		t.Errorf("unexpected brands: %+v", resp)
	}
}

func TestBrands_UnknownCategory(t *testing.T) {
	env, _ := newTestEnv(t, false, "brands", "boat")
	if err := runBrands(env); GetExitCode(err) != ExitUsageError {
		t.Errorf("err = %v, want a usage error", err)
	}
}

func TestPrice_WalksFlowAndRecordsHistory(t *testing.T) {
	env, out := newTestEnv(t, false, "price", "car", "21", "4828", "2015-1")
	if err := runPrice(env); err != nil {
		t.Fatalf("runPrice: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Fiat Argo 1.0", "R$ 48.123,00", "001004-9", "outubro de 2026"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	entries := env.History.List()
	if len(entries) != 1 || entries[0].YearID != "2015-1" || entries[0].Category != model.CategoryCar {
		t.Errorf("history = %+v", entries)
	}
}

func TestCode_ReferenceLookupSkipsHistory(t *testing.T) {
	env, _ := newTestEnv(t, true, "code", "car", "001004-9", "2015-1", "--reference", "320")
	if err := runCode(env); err != nil {
		t.Fatalf("runCode: %v", err)
	}
	if env.History.Len() != 0 {
		t.Error("a historical reference lookup should not be recorded")
	}

	env, _ = newTestEnv(t, true, "code", "car", "001004-9", "2015-1")
	if err := runCode(env); err != nil {
		t.Fatalf("runCode: %v", err)
	}
	if env.History.Len() != 1 {
		t.Error("a current lookup should be recorded")
	}
}

func TestCode_NotFound(t *testing.T) {
	env, _ := newTestEnv(t, false, "code", "car", "999999-9", "2015-1")
	if err := runCode(env); GetExitCode(err) != ExitNotFoundError {
		t.Errorf("err = %v (exit %d), want not found", err, GetExitCode(err))
	}
}

func TestHistory_ClearNeedsConfirmationInJSONMode(t *testing.T) {
	env, _ := newTestEnv(t, true, "history", "clear")
	if _, err := env.History.Record(model.PricedResult{CodeFipe: "1"}, "2015-1", model.CategoryCar); err != nil {
		t.Fatal(err)
	}
	if err := runHistory(env); GetExitCode(err) != ExitUsageError {
		t.Fatalf("err = %v, want usage error", err)
	}
	if env.History.Len() != 1 {
		t.Error("history should be untouched")
	}

	env.Args.Raw = []string{"clear", "--yes"}
	if err := runHistory(env); err != nil {
		t.Fatalf("clear --yes: %v", err)
	}
	if env.History.Len() != 0 {
		t.Error("history should be empty")
	}
}

func TestConfigSet_DoesNotPersistEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret-from-env")
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := setConfigValue(path, "flow.order", "year-first"); err != nil {
		t.Fatalf("setConfigValue: %v", err)
	}
	cfg := config.Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Flow.Order != "year-first" {
		t.Errorf("flow.order = %q", cfg.Flow.Order)
	}
	if cfg.Insight.APIKey != "" {
		t.Error("environment secret written to the config file")
	}

	if err := setConfigValue(path, "flow.order", "sideways"); err == nil {
		t.Error("invalid value should be rejected")
	}
}

func TestMaskIfSecret(t *testing.T) {
	if got := maskIfSecret("insight.api_key", "AIzaSyExample1234"); got != "AIza****1234" {
		t.Errorf("masked = %q", got)
	}
	if got := maskIfSecret("pricing.token", "short"); got != "****" {
		t.Errorf("masked short = %q", got)
	}
	if got := maskIfSecret("flow.order", "year-first"); got != "year-first" {
		t.Errorf("non-secret changed: %q", got)
	}
}

func TestPrompter_ReaderFallback(t *testing.T) {
	var out bytes.Buffer
	p := newReaderPrompter(strings.NewReader("ana@example.com\n\nsim\n"), &out)

	email, err := p.Ask("E-mail", "")
	if err != nil || email != "ana@example.com" {
		t.Errorf("Ask = %q, %v", email, err)
	}
	def, err := p.Ask("Local", "São Paulo")
	if err != nil || def != "São Paulo" {
		t.Errorf("default = %q, %v", def, err)
	}
	ok, err := p.Confirm("Continuar?")
	if err != nil || !ok {
		t.Errorf("Confirm = %v, %v", ok, err)
	}
	if _, err := p.Ask("Mais", ""); !errors.Is(err, ErrPromptAborted) {
		t.Errorf("EOF should abort, got %v", err)
	}
	if !strings.Contains(out.String(), "E-mail: ") {
		t.Errorf("prompt not written: %q", out.String())
	}
}

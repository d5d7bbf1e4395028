// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package insight

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/model"
)

func civic() model.PricedResult {
	return model.PricedResult{
		Price:     "R$ 98.000,00",
		Brand:     "Honda",
		Model:     "Civic EXL 2.0",
		ModelYear: 2020,
		CodeFipe:  "014082-9",
	}
}

type stubGenerator struct {
	text   string
	err    error
	system string
	prompt string
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	s.system, s.prompt = system, prompt
	return s.text, s.err
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(civic(), "")
	assert.Contains(t, p, "Honda Civic EXL 2.0 ano 2020")
	assert.Contains(t, p, "Valor FIPE: R$ 98.000,00")
	assert.Contains(t, p, "mercado nacional brasileiro")
	assert.Contains(t, p, "desvalorização")
	assert.Contains(t, p, "Liquidez")
	assert.Contains(t, p, "manutenção")

	p = BuildPrompt(civic(), "  Curitiba ")
	assert.Contains(t, p, `região de "Curitiba"`)
	assert.NotContains(t, p, "mercado nacional brasileiro")

	zero := civic()
	zero.ModelYear = model.ZeroKMYear
	assert.Contains(t, BuildPrompt(zero, ""), model.ZeroKMLabel)
}

func TestInsight(t *testing.T) {
	t.Run("success uses default location", func(t *testing.T) {
		gen := &stubGenerator{text: "  - Boa liquidez.\n"}
		c := New(gen, Options{Location: "Recife"})
		text, err := c.Insight(context.Background(), civic(), "")
		require.NoError(t, err)
		assert.Equal(t, "- Boa liquidez.", text)
		assert.Equal(t, SystemInstruction, gen.system)
		assert.Contains(t, gen.prompt, "Recife")
	})

	t.Run("explicit location wins", func(t *testing.T) {
		gen := &stubGenerator{text: "ok"}
		c := New(gen, Options{Location: "Recife"})
		_, err := c.Insight(context.Background(), civic(), "Manaus")
		require.NoError(t, err)
		assert.Contains(t, gen.prompt, "Manaus")
	})

	t.Run("empty text is unavailable", func(t *testing.T) {
		c := New(&stubGenerator{text: "   "}, Options{})
		_, err := c.Insight(context.Background(), civic(), "")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("generator error is unavailable", func(t *testing.T) {
		c := New(&stubGenerator{err: errors.New("quota exceeded")}, Options{})
		_, err := c.Insight(context.Background(), civic(), "")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("no generator", func(t *testing.T) {
		c := New(nil, Options{})
		assert.False(t, c.Available())
		_, err := c.Insight(context.Background(), civic(), "")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestGemini(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-3-flash-preview:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		raw, _ := io.ReadAll(r.Body)
		var req geminiRequest
		assert.NoError(t, json.Unmarshal(raw, &req))
		if assert.NotNil(t, req.SystemInstruction) {
			assert.Equal(t, "persona", req.SystemInstruction.Parts[0].Text)
		}
		assert.Equal(t, "prompt", req.Contents[0].Parts[0].Text)

		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Parte 1. "},{"text":"Parte 2."}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{BaseURL: srv.URL + "/v1beta/", APIKey: "secret", Model: "gemini-3-flash-preview", HTTPClient: srv.Client()})
	text, err := g.Generate(context.Background(), "persona", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Parte 1. Parte 2.", text)
}

func TestGemini_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{BaseURL: srv.URL, APIKey: "bad", Model: "m", HTTPClient: srv.Client()})
	_, err := g.Generate(context.Background(), "", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "API key not valid")

	_, err = NewGemini(GeminiConfig{BaseURL: srv.URL, Model: "m"}).Generate(context.Background(), "", "p")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2.5:7b", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "persona", req.System)
		if strings.Contains(req.Prompt, "missing") {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"model not found"}`))
			return
		}
		w.Write([]byte(`{"response":"Texto gerado","done":true}`))
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "qwen2.5:7b", srv.Client())
	text, err := o.Generate(context.Background(), "persona", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Texto gerado", text)

	_, err = o.Generate(context.Background(), "persona", "missing")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	assert.False(t, FromConfig(cfg, nil).Available())

	cfg.Insight.APIKey = "key"
	c := FromConfig(cfg, nil)
	require.True(t, c.Available())
	assert.Equal(t, "gemini", c.gen.Name())

	cfg.Insight.Provider = config.ProviderOllama
	assert.Equal(t, "ollama", FromConfig(cfg, nil).gen.Name())
}

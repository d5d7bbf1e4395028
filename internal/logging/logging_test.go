// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, Options{Level: "warn"})

	log.Info("hidden", "k", 1)
	log.Warn("shown", "brand", "Fiat")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered:\n%s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "brand=Fiat") {
		t.Errorf("expected warn record with attribute:\n%s", out)
	}
}

func TestNewWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, Options{Level: "debug", JSON: true})
	log.Debug("lookup", "code", "005340-6")

	if !strings.Contains(buf.String(), `"code":"005340-6"`) {
		t.Errorf("expected JSON attribute, got %s", buf.String())
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fipepro.log")
	log, closer, err := New(Options{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Info("started")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=started") {
		t.Errorf("log file missing record: %s", data)
	}
}

func TestNew_NoOutputsDiscards(t *testing.T) {
	log, closer, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	log.Error("dropped")
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Error("OrDiscard should return the given logger")
	}
}

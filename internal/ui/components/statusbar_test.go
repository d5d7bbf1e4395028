// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fipepro/internal/ui/styles"
)

func TestStatusBar_View(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme("dark"))
	sb.SetWidth(100)
	sb.Stage = "Escolha o modelo"
	sb.User = "Ana"
	sb.Shortcuts = []Shortcut{{"tab", "próximo"}, {"f", "favoritar"}, {"q", "sair"}}

	out := sb.View()
	for _, want := range []string{"Escolha o modelo", "Ana", "favoritar"} {
		if !strings.Contains(out, want) {
			t.Errorf("status bar should contain %q:\n%s", want, out)
		}
	}
	if w := lipgloss.Width(out); w > 100 {
		t.Errorf("status bar is %d wide, want <= 100", w)
	}
}

func TestStatusBar_DropsShortcutsThatDontFit(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme("dark"))
	sb.SetWidth(30)
	sb.Stage = "Pronto"
	sb.Shortcuts = []Shortcut{{"tab", "próximo campo"}, {"ctrl+y", "copiar código"}}

	out := sb.View()
	if strings.Contains(out, "copiar código") {
		t.Errorf("narrow bar should drop trailing shortcuts:\n%s", out)
	}
	if !strings.Contains(out, "visitante") {
		t.Error("signed-out bar should say visitante")
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(5e9); got != "5s" {
		t.Errorf("got %q", got)
	}
	if got := formatElapsed(65e9); got != "1m 5s" {
		t.Errorf("got %q", got)
	}
}

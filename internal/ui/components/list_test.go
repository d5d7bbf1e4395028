// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fipepro/internal/ui/styles"
)

func newTestList() SelectList {
	l := NewSelectList(styles.NewTheme("dark"), "brand", "Marca")
	l.SetOptions([]Option{
		{ID: "21", Label: "Fiat"},
		{ID: "23", Label: "GM - Chevrolet"},
		{ID: "26", Label: "Citroën"},
		{ID: "59", Label: "VW - VolksWagen"},
	})
	l.Focus()
	return l
}

func typeText(l SelectList, s string) SelectList {
	for _, r := range s {
		l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return l
}

func TestSelectList_FilterIsAccentInsensitive(t *testing.T) {
	l := typeText(newTestList(), "citroe")
	if l.Len() != 1 {
		t.Fatalf("expected one match, got %d", l.Len())
	}
	opt, ok := l.Highlighted()
	if !ok || opt.ID != "26" {
		t.Errorf("expected Citroën highlighted, got %+v", opt)
	}

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	if l.Len() != 4 {
		t.Errorf("clearing the filter should restore all options, got %d", l.Len())
	}
}

func TestSelectList_NavigateAndChoose(t *testing.T) {
	l := newTestList()
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyUp})

	l, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should emit a command")
	}
	msg, ok := cmd().(SelectedMsg)
	if !ok {
		t.Fatalf("expected SelectedMsg, got %T", cmd())
	}
	if msg.List != "brand" || msg.Option.ID != "23" {
		t.Errorf("unexpected selection %+v", msg)
	}
	if l.Chosen() != "23" || l.ChosenLabel() != "GM - Chevrolet" {
		t.Errorf("chosen not recorded: %q", l.Chosen())
	}
}

func TestSelectList_CursorClamps(t *testing.T) {
	l := newTestList()
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyUp})
	if opt, _ := l.Highlighted(); opt.ID != "21" {
		t.Errorf("cursor should stay at top, got %+v", opt)
	}
	for i := 0; i < 10; i++ {
		l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if opt, _ := l.Highlighted(); opt.ID != "59" {
		t.Errorf("cursor should stay at bottom, got %+v", opt)
	}
}

func TestSelectList_EmptyFilterResultDoesNotChoose(t *testing.T) {
	l := typeText(newTestList(), "zzz")
	_, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("enter with no matches should do nothing")
	}
}

func TestSelectList_DisabledIgnoresInput(t *testing.T) {
	l := newTestList()
	l.Disabled = true
	l.Placeholder = "Escolha uma marca primeiro"
	l, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || l.Chosen() != "" {
		t.Error("disabled list should not choose")
	}
	if !strings.Contains(l.View(40), "Escolha uma marca primeiro") {
		t.Error("disabled list should show its placeholder")
	}
}

func TestSelectList_ResetAndView(t *testing.T) {
	l := newTestList()
	l.SetHeight(2)
	view := l.View(40)
	if !strings.Contains(view, "Fiat") || strings.Contains(view, "Citroën") {
		t.Errorf("view should only show the first rows:\n%s", view)
	}

	l.SetChosen("21")
	l.Reset()
	if l.Len() != 0 || l.Chosen() != "" || l.Filter() != "" {
		t.Error("reset should clear everything")
	}
}

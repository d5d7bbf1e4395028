// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fipepro/internal/ui/styles"
	"github.com/jeranaias/fipepro/internal/util"
)

// Shortcut is a key hint shown in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom bar: stage on the left, user and shortcuts on the
// right.
type StatusBar struct {
	Stage     string
	User      string
	Busy      bool
	Shortcuts []Shortcut
	Width     int

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, Width: 80}
}

// SetWidth updates the available width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar. Shortcuts that don't fit are dropped from
// the end.
func (s *StatusBar) View() string {
	t := s.theme
	inner := max(s.Width-t.StatusBar.GetHorizontalFrameSize(), 10)

	left := s.Stage
	if s.Busy {
		left = styles.StatusIndicators.Pending + " " + left
	}
	if s.User != "" {
		left += "  " + s.User
	} else {
		left += "  visitante"
	}
	left = util.TruncateWidth(left, inner)

	budget := inner - lipgloss.Width(left) - 2
	var parts []string
	used := 0
	for _, sc := range s.Shortcuts {
		w := util.StringWidth(sc.Key) + 1 + util.StringWidth(sc.Desc)
		if len(parts) > 0 {
			w += 2
		}
		if used+w > budget {
			break
		}
		parts = append(parts, t.ShortcutKey.Render(sc.Key)+" "+t.ShortcutDesc.Render(sc.Desc))
		used += w
	}
	right := strings.Join(parts, "  ")

	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return t.StatusBar.Width(s.Width).Render(left + strings.Repeat(" ", gap) + right)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fipepro/internal/ui/styles"
)

// =============================================================================
// SPINNER
// =============================================================================

// Spinner is an ASCII-safe loading indicator with an elapsed timer.
type Spinner struct {
	spinner   spinner.Model
	theme     *styles.Theme
	message   string
	startTime time.Time
	active    bool
}

// NewSpinner creates an inactive spinner.
func NewSpinner(theme *styles.Theme) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	return Spinner{spinner: s, theme: theme, message: "Carregando"}
}

// Start activates the spinner. Calling Start on an active spinner only
// updates the message.
func (s *Spinner) Start(message string) tea.Cmd {
	s.message = message
	if s.active {
		return nil
	}
	s.active = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.active = false
}

// Tick advances an already started spinner.
func (s Spinner) Tick() tea.Msg {
	return s.spinner.Tick()
}

// IsActive returns whether the spinner is running.
func (s Spinner) IsActive() bool {
	return s.active
}

// Update advances the animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner, or nothing when inactive.
func (s Spinner) View() string {
	if !s.active {
		return ""
	}
	out := s.theme.Spinner.Render(s.spinner.View()) + " " + s.theme.Muted.Render(s.message+"...")
	if elapsed := time.Since(s.startTime); elapsed >= time.Second {
		out += s.theme.Muted.Render(" (" + formatElapsed(elapsed) + ")")
	}
	return out
}

// formatElapsed formats a duration as "12s" or "1m 5s".
func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return strconv.Itoa(seconds) + "s"
	}
	return strconv.Itoa(seconds/60) + "m " + strconv.Itoa(seconds%60) + "s"
}

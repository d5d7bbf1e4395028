// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/ui/app"
)

// runTUI starts the interactive application. Config file changes are
// pushed into the running program.
func runTUI(env *Env) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &UsageError{Field: "terminal", Reason: "is required for the interactive interface", Example: "fipepro price car 21 4828 2015-1"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan *config.Config, 1)
	if env.ConfigPath != "" {
		w, err := config.NewWatcher(env.ConfigPath, 0, func(cfg *config.Config, err error) {
			if err != nil {
				env.Logger.Warn("config reload failed", "path", env.ConfigPath, "error", err)
				return
			}
			select {
			case reloads <- cfg:
			default:
				// Drop the stale pending reload in favor of this one.
				select {
				case <-reloads:
				default:
				}
				reloads <- cfg
			}
		})
		if err != nil {
			env.Logger.Warn("config watcher unavailable", "error", err)
		} else {
			go w.Run(ctx)
		}
	}

	m := app.New(app.Options{
		Config:    env.Config,
		Flow:      env.NewFlow(),
		Trends:    env.Pricing,
		History:   env.History,
		Favorites: env.Favorites,
		Sessions:  env.Sessions,
		Insight:   env.Insight,
		Reloads:   reloads,
		Logger:    env.Logger,
	})
	defer m.Close()

	env.Logger.Info("starting interface", "version", Version)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("interface: %w", err)
	}
	return nil
}

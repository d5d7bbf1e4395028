// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/fipepro/internal/backend"
	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/favorites"
	"github.com/jeranaias/fipepro/internal/fipe"
	"github.com/jeranaias/fipepro/internal/flow"
	"github.com/jeranaias/fipepro/internal/history"
	"github.com/jeranaias/fipepro/internal/insight"
	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/session"
	"github.com/jeranaias/fipepro/internal/storage"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env holds the configured services shared by every command.
type Env struct {
	Args       Args
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Out        io.Writer

	Pricing   *fipe.Client
	History   *history.Store
	Backend   *backend.Client
	Sessions  *session.Manager
	Favorites *favorites.Store
	Insight   *insight.Client

	newPrompter func() *Prompter
	closers     []io.Closer
}

// NewEnv loads the configuration and builds the services.
func NewEnv(args Args, out io.Writer) (*Env, error) {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}

	path := args.ConfigPath
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		path, _ = config.ConfigPath()
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}

	env := &Env{Args: args, Config: cfg, ConfigPath: path, Out: out, newPrompter: NewPrompter}

	logOpts := logging.Options{Level: cfg.Log.Level}
	if logPath, err := cfg.LogPath(); err == nil {
		logOpts.File = logPath
	}
	if args.Verbose {
		logOpts.Level = "debug"
		// The TUI owns the terminal; verbose output goes to the file only.
		logOpts.Stderr = args.Name != "" && args.Name != "tui"
	}
	logger, closer, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		logger = logging.Discard()
	}
	env.Logger = logger
	env.closers = append(env.closers, closer)
	for _, w := range cfg.Warnings() {
		logger.Info("feature disabled", "reason", w)
	}

	env.Pricing = fipe.NewClientWithConfig(&fipe.ClientConfig{
		BaseURL: cfg.Pricing.BaseURL,
		Token:   cfg.Pricing.Token,
		Timeout: cfg.Pricing.Timeout(),
		Logger:  logger,
	})

	env.History = history.Open(env.openSlots(), history.WithLogger(logger))

	env.Backend = backend.New(cfg.Backend.URL, cfg.Backend.AnonKey, backend.WithLogger(logger))
	sessionPath, _ := config.SessionPath()
	env.Sessions = session.NewManager(env.Backend, session.Config{
		Capabilities: session.Capabilities{
			ConfirmEmail:     cfg.Backend.ConfirmEmail,
			VerificationCode: cfg.Backend.VerificationCode,
		},
		Path:   sessionPath,
		Logger: logger,
	})

	var remote favorites.Remote
	if cfg.BackendEnabled() {
		remote = favorites.NewRows(env.Backend, cfg.Backend.FavoritesTable)
	}
	env.Favorites = favorites.New(remote, logger)
	env.Insight = insight.FromConfig(cfg, logger)
	return env, nil
}

// openSlots opens the history storage. A failure leaves history in memory.
func (e *Env) openSlots() storage.Slots {
	path, err := e.Config.StoragePath()
	if err != nil {
		e.Logger.Warn("history storage unavailable", "error", err)
		return nil
	}
	slots, err := storage.Open(e.Config.Storage.Backend, path)
	if slots == nil {
		e.Logger.Warn("history storage unavailable", "backend", e.Config.Storage.Backend, "path", path, "error", err)
		return nil
	}
	if err != nil {
		e.Logger.Warn("history storage recovered", "path", path, "error", err)
	}
	e.closers = append(e.closers, slots)
	return slots
}

// Close releases storage and the log file, newest first.
func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

// Context returns a context cancelled on interrupt.
func (e *Env) Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// NewFlow builds a selection controller from the flow settings.
func (e *Env) NewFlow() *flow.Controller {
	order, err := flow.ParseOrder(e.Config.Flow.Order)
	if err != nil {
		e.Logger.Warn("invalid flow order, using model-first", "order", e.Config.Flow.Order)
	}
	return flow.New(e.Pricing, e.History, flow.Options{
		Order:     order,
		KeepStale: !e.Config.Flow.DiscardStale,
		Logger:    e.Logger,
	})
}

// emit prints data as a JSON envelope in JSON mode and calls text
// otherwise.
func (e *Env) emit(data any, text func(w io.Writer)) error {
	if e.Args.JSON {
		return NewJSONResponse(e.Args.Name, data).Write(e.Out)
	}
	text(e.Out)
	return nil
}

func parseCategory(s string) (model.Category, error) {
	cat, err := model.ParseCategory(s)
	if err != nil {
		return cat, &UsageError{Field: "category", Value: s, Reason: "must be car, motorcycle or truck"}
	}
	return cat, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/fipepro/internal/config"
)

// secretKeys are never printed in clear.
var secretKeys = map[string]bool{
	"backend.anon_key": true,
	"insight.api_key":  true,
	"pricing.token":    true,
}

func runConfig(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	switch sub := p.Positional(0); sub {
	case "", "show":
		return env.emit(redacted(env.Config), func(w io.Writer) {
			fmt.Fprintln(w, TitleStyle.Render("Configuração ("+env.ConfigPath+")"))
			fmt.Fprintln(w, env.Config.String())
		})

	case "path":
		return env.emit(map[string]string{"path": env.ConfigPath}, func(w io.Writer) {
			fmt.Fprintln(w, env.ConfigPath)
		})

	case "keys":
		keys := config.Keys()
		return env.emit(keys, func(w io.Writer) {
			for _, k := range keys {
				fmt.Fprintln(w, k)
			}
		})

	case "get":
		key := p.Positional(1)
		if key == "" {
			return &UsageError{Field: "key", Reason: "is required", Example: "fipepro config get flow.order"}
		}
		v, err := env.Config.Get(key)
		if err != nil {
			return wrap("config", "get", err)
		}
		shown := maskIfSecret(key, fmt.Sprint(v))
		return env.emit(map[string]any{"key": key, "value": shown}, func(w io.Writer) {
			fmt.Fprintln(w, shown)
		})

	case "set":
		key, value := p.Positional(1), strings.Join(env.Args.Raw[min(2, len(env.Args.Raw)):], " ")
		if key == "" || p.PositionalCount() < 3 {
			return &UsageError{Field: "key and value", Reason: "are required", Example: "fipepro config set ui.theme dark"}
		}
		if err := setConfigValue(env.ConfigPath, key, value); err != nil {
			return wrap("config", "set", err)
		}
		return env.emit(map[string]string{"key": key, "value": maskIfSecret(key, value)}, func(w io.Writer) {
			fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("Salvo:"), key, maskIfSecret(key, value))
		})

	default:
		return &UsageError{Field: "subcommand", Value: sub, Reason: "must be show, get, set, path or keys"}
	}
}

// setConfigValue edits the file at path. The file is decoded on its own,
// without environment overrides, so secrets from the environment are not
// written to disk.
func setConfigValue(path, key, value string) error {
	cfg := config.Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.SaveTo(cfg, path)
}

func maskIfSecret(key, value string) string {
	if !secretKeys[key] || value == "" {
		return value
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}

func redacted(cfg *config.Config) *config.Config {
	safe := cfg.Clone()
	for _, s := range []*string{&safe.Backend.AnonKey, &safe.Insight.APIKey, &safe.Pricing.Token} {
		*s = maskIfSecret("pricing.token", *s)
	}
	return safe
}

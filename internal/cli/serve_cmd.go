// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/fipepro/internal/server"
)

func runServe(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	sc := env.Config.Server
	cfg := server.Config{
		Addr:           p.FlagOrDefault("addr", sc.Addr),
		AllowedOrigins: sc.AllowedOrigins,
		RatePerSecond:  sc.RatePerSecond,
		RateBurst:      sc.RateBurst,
	}
	srv := server.New(cfg, env.Pricing, env.History, env.Logger)

	ctx, cancel := env.Context()
	defer cancel()

	fmt.Fprintf(os.Stderr, "%s http://%s (Ctrl+C para parar)\n", SuccessStyle.Render("API local em"), srv.Addr())
	if err := srv.Run(ctx); err != nil {
		return wrap("serve", "", err)
	}
	return nil
}

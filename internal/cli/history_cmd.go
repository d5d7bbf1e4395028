// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/fipepro/internal/favorites"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/session"
)

// =============================================================================
// HISTORY
// =============================================================================

func runHistory(env *Env) error {
	p := NewArgParser(env.Args.Raw, "yes", "y")
	switch sub := p.Positional(0); sub {
	case "", "list", "ls":
		return listHistory(env)
	case "clear":
		if !p.BoolFlag("yes") && !p.BoolFlag("y") {
			if env.Args.JSON || !IsTTY() {
				return &UsageError{Field: "--yes", Reason: "is required to clear history non-interactively", Example: "fipepro history clear --yes"}
			}
			pr := env.newPrompter()
			ok, err := pr.Confirm(fmt.Sprintf("Apagar %d consultas recentes?", env.History.Len()))
			pr.Close()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(env.Out, DimStyle.Render("Nada foi apagado."))
				return nil
			}
		}
		if err := env.History.Clear(); err != nil {
			return wrap("history", "clear", err)
		}
		return env.emit(map[string]int{"remaining": 0}, func(w io.Writer) {
			fmt.Fprintln(w, SuccessStyle.Render("Histórico limpo."))
		})
	default:
		return &UsageError{Field: "subcommand", Value: sub, Reason: "must be list or clear", Example: "fipepro history [list|clear]"}
	}
}

func listHistory(env *Env) error {
	entries := env.History.List()
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return env.emit(entries, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render("Consultas recentes"))
		if len(entries) == 0 {
			fmt.Fprintln(w, DimStyle.Render("Nenhuma consulta recente."))
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "  %s  %s %s\n",
				DimStyle.Render(e.Time().Format("02/01/2006 15:04")),
				ValueStyle.Render(e.Result.Title()),
				DimStyle.Render(e.Result.YearLabel()))
			fmt.Fprintf(w, "  %s  %s  %s\n",
				DimStyle.Render("                "),
				PriceStyle.Render(e.Result.Price),
				DimStyle.Render(e.Category.String()+" "+e.Result.CodeFipe+" "+e.YearID))
		}
	})
}

// =============================================================================
// FAVORITES
// =============================================================================

func runFavorites(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	ctx, cancel := env.Context()
	defer cancel()

	if !env.Favorites.Available() {
		return wrap("favorites", "", session.ErrUnavailable)
	}
	sess, err := env.Sessions.Current(ctx)
	if err != nil {
		return wrap("favorites", "", err)
	}
	if sess == nil {
		return wrap("favorites", "", favorites.ErrAuthRequired)
	}
	if err := env.Favorites.LoadForSession(ctx, sess); err != nil {
		return wrap("favorites", "load", err)
	}

	switch sub := p.Positional(0); sub {
	case "", "list", "ls":
		favs := env.Favorites.List()
		if favs == nil {
			favs = []model.Favorite{}
		}
		return env.emit(favs, func(w io.Writer) {
			fmt.Fprintln(w, TitleStyle.Render("Favoritos de "+sess.Name()))
			if len(favs) == 0 {
				fmt.Fprintln(w, DimStyle.Render("Nenhum favorito salvo."))
				return
			}
			for _, f := range favs {
				fmt.Fprintf(w, "  %s %s  %s\n", ValueStyle.Render(f.BrandName), ValueStyle.Render(f.ModelName),
					DimStyle.Render(f.Category.String()+" "+f.FipeCode+" "+f.YearID))
				fmt.Fprintf(w, "    %s  %s\n", PriceStyle.Render(f.SavedPrice), DimStyle.Render(f.SavedReference))
			}
		})

	case "toggle":
		pos, err := NewArgParser(env.Args.Raw[1:]).Require(
			"fipepro favorites toggle <categoria> <codigoFipe> <ano>", "category", "code", "year")
		if err != nil {
			return err
		}
		cat, err := parseCategory(pos[0])
		if err != nil {
			return err
		}
		result, err := env.Pricing.GetResultByCode(ctx, cat, pos[1], pos[2], nil)
		if err != nil {
			return wrap("favorites", "toggle", err)
		}
		present, err := env.Favorites.Toggle(ctx, result, pos[2], cat, sess)
		if err != nil {
			if errors.Is(err, favorites.ErrToggleInFlight) {
				return nil
			}
			return wrap("favorites", "toggle", err)
		}
		data := ResultData{Result: result, YearID: pos[2], Category: cat.String(), Favorite: &present}
		return env.emit(data, func(w io.Writer) {
			writeResult(w, result, cat)
			fmt.Fprintln(w)
			if present {
				fmt.Fprintln(w, SuccessStyle.Render("Adicionado aos favoritos."))
			} else {
				fmt.Fprintln(w, SuccessStyle.Render("Removido dos favoritos."))
			}
		})

	default:
		return &UsageError{Field: "subcommand", Value: sub, Reason: "must be list or toggle", Example: "fipepro favorites [list|toggle ...]"}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/fipepro/internal/fipe"
	"github.com/jeranaias/fipepro/internal/flow"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/util"
)

// =============================================================================
// LIST COMMANDS
// =============================================================================

func runBrands(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	pos, err := p.Require("fipepro brands <categoria> [--search texto]", "category")
	if err != nil {
		return err
	}
	cat, err := parseCategory(pos[0])
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	items, err := env.Pricing.ListBrands(ctx, cat)
	if err != nil {
		return wrap("brands", "", err)
	}
	return env.printItems(filterItems(items, p.Flag("search")), "Marcas · "+cat.Label())
}

func runModels(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	pos, err := p.Require("fipepro models <categoria> <marca> [--search texto]", "category", "brand")
	if err != nil {
		return err
	}
	cat, err := parseCategory(pos[0])
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	items, err := env.Pricing.ListModels(ctx, cat, pos[1])
	if err != nil {
		return wrap("models", "", err)
	}
	return env.printItems(filterItems(items, p.Flag("search")), "Modelos · marca "+pos[1])
}

func runYears(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	pos, err := p.Require("fipepro years <categoria> <marca> <modelo>", "category", "brand", "model")
	if err != nil {
		return err
	}
	cat, err := parseCategory(pos[0])
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	items, err := env.Pricing.ListYears(ctx, cat, pos[1], pos[2])
	if err != nil {
		return wrap("years", "", err)
	}
	labelled := make([]model.Item, len(items))
	for i, it := range items {
		labelled[i] = model.Item{Code: it.Code, Name: model.YearLabel(it.Name)}
	}
	return env.printItems(labelled, "Anos · modelo "+pos[2])
}

func filterItems(items []model.Item, query string) []model.Item {
	if strings.TrimSpace(query) == "" {
		return items
	}
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if util.ContainsFold(it.Name, query) {
			out = append(out, it)
		}
	}
	return out
}

func (e *Env) printItems(items []model.Item, title string) error {
	if items == nil {
		items = []model.Item{}
	}
	return e.emit(items, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render(title))
		if len(items) == 0 {
			fmt.Fprintln(w, DimStyle.Render("Nenhum item encontrado."))
			return
		}
		width := 0
		for _, it := range items {
			width = max(width, util.StringWidth(it.Code))
		}
		for _, it := range items {
			fmt.Fprintf(w, "  %s  %s\n", DimStyle.Render(util.PadRight(it.Code, width)), ValueStyle.Render(it.Name))
		}
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d itens", len(items))))
	})
}

// =============================================================================
// PRICE LOOKUPS
// =============================================================================

// runPrice walks the selection flow end to end, so the lookup is recorded
// in history exactly as the interactive application does.
func runPrice(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	pos, err := p.Require("fipepro price <categoria> <marca> <modelo> <ano>", "category", "brand", "model", "year")
	if err != nil {
		return err
	}
	cat, err := parseCategory(pos[0])
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	ctrl := env.NewFlow()
	steps := []func() *flow.Request{
		func() *flow.Request { return ctrl.SetCategory(cat) },
		func() *flow.Request { return ctrl.ChooseBrand(pos[1]) },
	}
	if ctrl.Order() == flow.OrderYearFirst {
		steps = append(steps,
			func() *flow.Request { return ctrl.ChooseYear(pos[3]) },
			func() *flow.Request { return ctrl.ChooseModel(pos[2]) })
	} else {
		steps = append(steps,
			func() *flow.Request { return ctrl.ChooseModel(pos[2]) },
			func() *flow.Request { return ctrl.ChooseYear(pos[3]) })
	}
	for _, step := range steps {
		if eff := ctrl.Do(ctx, step()); eff.Err != nil {
			return wrap("price", ctrl.Stage().String(), eff.Err)
		}
	}

	st := ctrl.State()
	if st.Result == nil {
		return wrap("price", "", fipe.ErrNotFound)
	}
	return env.printResult(*st.Result, st.ResultYearID, st.ResultCategory)
}

func runCode(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	pos, err := p.Require("fipepro code <categoria> <codigoFipe> <ano> [--reference N]", "category", "code", "year")
	if err != nil {
		return err
	}
	cat, err := parseCategory(pos[0])
	if err != nil {
		return err
	}
	ref, hasRef, err := p.FlagInt("reference")
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	var reference *int
	if hasRef {
		reference = &ref
	}
	result, err := env.Pricing.GetResultByCode(ctx, cat, pos[1], pos[2], reference)
	if err != nil {
		return wrap("code", "", err)
	}
	if reference == nil {
		if _, err := env.History.Record(result, pos[2], cat); err != nil {
			env.Logger.Warn("failed to persist history", "error", err)
		}
	}
	return env.printResult(result, pos[2], cat)
}

func runReferences(env *Env) error {
	ctx, cancel := env.Context()
	defer cancel()

	refs, err := env.Pricing.ListReferences(ctx)
	if err != nil {
		return wrap("references", "", err)
	}
	if refs == nil {
		refs = []model.Reference{}
	}
	return env.emit(refs, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render("Meses de referência"))
		for _, r := range refs {
			fmt.Fprintf(w, "  %s  %s\n", DimStyle.Render(fmt.Sprintf("%4d", r.Code)), ValueStyle.Render(r.Month))
		}
	})
}

func runTrend(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	pos, err := p.Require("fipepro trend <categoria> <codigoFipe> <ano> [--points N]", "category", "code", "year")
	if err != nil {
		return err
	}
	cat, err := parseCategory(pos[0])
	if err != nil {
		return err
	}
	points, _, err := p.FlagInt("points")
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	trend, err := env.Pricing.PriceTrend(ctx, cat, pos[1], pos[2], points)
	if err != nil {
		return wrap("trend", "", err)
	}
	if trend == nil {
		trend = []model.TrendPoint{}
	}
	data := TrendData{CodeFipe: pos[1], YearID: pos[2], Points: trend}
	return env.emit(data, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render("Histórico de preço · "+pos[1]))
		if len(trend) == 0 {
			fmt.Fprintln(w, DimStyle.Render("Histórico indisponível para este veículo."))
			return
		}
		for _, pt := range trend {
			fmt.Fprintf(w, "  %s %s\n", RenderLabel(pt.Month), PriceStyle.Render(pt.Price))
		}
	})
}

// =============================================================================
// RESULT OUTPUT
// =============================================================================

func (e *Env) printResult(r model.PricedResult, yearID string, cat model.Category) error {
	data := ResultData{Result: r, YearID: yearID, Category: cat.String()}
	return e.emit(data, func(w io.Writer) { writeResult(w, r, cat) })
}

func writeResult(w io.Writer, r model.PricedResult, cat model.Category) {
	fmt.Fprintln(w, TitleStyle.Render(r.Title()))
	fmt.Fprintln(w, PriceStyle.Render(r.Price))
	fmt.Fprintln(w, RenderSeparator())
	rows := [][2]string{
		{"Ano modelo", r.YearLabel()},
		{"Combustível", r.Fuel},
		{"Código FIPE", r.CodeFipe},
		{"Mês de referência", r.ReferenceMonth},
		{"Categoria", cat.Label()},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s %s\n", RenderLabel(row[0]), ValueStyle.Render(row[1]))
	}
}

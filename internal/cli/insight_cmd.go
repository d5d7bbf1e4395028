// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/fipepro/internal/insight"
)

func runInsight(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	pos, err := p.Require("fipepro insight <categoria> <codigoFipe> <ano> [--location texto]", "category", "code", "year")
	if err != nil {
		return err
	}
	cat, err := parseCategory(pos[0])
	if err != nil {
		return err
	}
	if !env.Insight.Available() {
		return wrap("insight", "", fmt.Errorf("%w: configure GEMINI_API_KEY or [insight] provider = \"ollama\"", insight.ErrUnavailable))
	}

	ctx, cancel := env.Context()
	defer cancel()

	result, err := env.Pricing.GetResultByCode(ctx, cat, pos[1], pos[2], nil)
	if err != nil {
		return wrap("insight", "", err)
	}
	location := p.FlagOrDefault("location", env.Insight.Location())

	text, err := env.Insight.Insight(ctx, result, location)
	if err != nil {
		var ge *insight.GenerateError
		if errors.As(err, &ge) {
			return wrap("insight", "", fmt.Errorf("%s (%w)", insight.FallbackText, err))
		}
		return wrap("insight", "", fmt.Errorf("%s (%w)", insight.ErrorText, err))
	}

	data := InsightData{Result: result, Location: location, Text: text}
	return env.emit(data, func(w io.Writer) {
		writeResult(w, result, cat)
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Análise do especialista (IA)"))
		fmt.Fprintln(w, renderMarkdown(text))
	})
}

// renderMarkdown renders text for the terminal, or returns it unchanged
// when colors are off or rendering fails.
func renderMarkdown(text string) string {
	if !ColorsEnabled() {
		return text
	}
	style := "dark"
	if !HasDarkBackground() {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(min(GetTerminalWidth()-4, 100)),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

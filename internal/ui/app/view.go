// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fipepro/internal/flow"
	"github.com/jeranaias/fipepro/internal/insight"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/ui/components"
	"github.com/jeranaias/fipepro/internal/ui/styles"
	"github.com/jeranaias/fipepro/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Carregando..."
	}
	d := m.dims()

	var body string
	if m.screen == screenAccount {
		body = lipgloss.Place(m.width, d.bodyH, lipgloss.Center, lipgloss.Center, m.form.view())
	} else {
		body = m.body(d)
	}

	toasts := ""
	if m.toasts.HasToasts() {
		toasts = lipgloss.PlaceHorizontal(m.width, lipgloss.Right,
			components.RenderToastStack(m.toasts.Toasts(), m.width, 0))
	}
	bodyH := max(d.bodyH-lipgloss.Height(toasts), 1)
	if toasts == "" {
		bodyH = d.bodyH
	}
	body = lipgloss.NewStyle().MaxHeight(bodyH).Render(body)

	parts := []string{m.header(), body}
	if toasts != "" {
		parts = append(parts, toasts)
	}
	parts = append(parts, m.statusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) header() string {
	t := m.theme
	left := t.HeaderTitle.Render("Tabela FIPE PRO") + "  " +
		t.HeaderSubtitle.Render("preços oficiais de veículos")
	right := "visitante"
	if m.sess != nil {
		right = m.sess.Name()
	}
	right = t.HeaderUser.Render(right)

	inner := m.width - t.Header.GetHorizontalFrameSize()
	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return t.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) body(d dims) string {
	lists := m.listsColumn(d.listsW)
	result := m.resultPanel(d.resultW)

	switch d.mode {
	case styles.LayoutWide:
		side := m.sidebars(d.sideW, d.sideH, false)
		return lipgloss.JoinHorizontal(lipgloss.Top, lists, result, side)
	case styles.LayoutMedium:
		side := m.sidebars(d.sideW, d.sideH, true)
		return lipgloss.JoinHorizontal(lipgloss.Top, lists, lipgloss.JoinVertical(lipgloss.Left, result, side))
	default:
		switch m.focus {
		case paneResult:
			return result
		case paneFavorites, paneHistory:
			return m.sidebars(d.sideW, d.sideH, false)
		default:
			return lists
		}
	}
}

func (m Model) listsColumn(width int) string {
	order := []components.SelectList{m.catList, m.brandList, m.modelList, m.yearList}
	if m.flow != nil && m.flow.Order() == flow.OrderYearFirst {
		order = []components.SelectList{m.catList, m.brandList, m.yearList, m.modelList}
	}
	views := make([]string, len(order))
	for i, l := range order {
		views[i] = l.View(width)
	}
	return lipgloss.JoinVertical(lipgloss.Left, views...)
}

func (m Model) resultPanel(width int) string {
	panel := m.theme.Panel
	if m.focus == paneResult {
		panel = m.theme.PanelFocused
	}
	return panel.Width(max(width-panel.GetHorizontalBorderSize(), 10)).Render(m.result.View())
}

// refreshResult rebuilds the scrollable result pane.
func (m *Model) refreshResult() {
	m.result.SetContent(m.resultContent())
}

func (m Model) resultContent() string {
	t := m.theme
	if m.flow == nil {
		return ""
	}
	st := m.flow.State()
	if st.Result == nil {
		var b strings.Builder
		b.WriteString(t.PanelTitle.Render(stageLabel(m.flow.Stage())))
		b.WriteString("\n\n")
		b.WriteString(t.Muted.Render("Escolha categoria, marca, modelo e ano para consultar o preço FIPE."))
		if m.spinner.IsActive() {
			b.WriteString("\n\n")
			b.WriteString(m.spinner.View())
		}
		return b.String()
	}

	var b strings.Builder
	b.WriteString(m.resultCard(*st.Result, st.ResultYearID, st.ResultCategory))
	b.WriteString("\n\n")
	b.WriteString(m.trendView())
	b.WriteString("\n\n")
	b.WriteString(m.insightView())
	return b.String()
}

func (m Model) resultCard(r model.PricedResult, yearID string, cat model.Category) string {
	t := m.theme
	width := max(m.result.Width-t.ResultCard.GetHorizontalFrameSize(), 20)

	mark := styles.NotFavoriteMark
	if yearID != "" && m.favorites.Contains(model.FavoriteFromResult(r, yearID, cat).Key()) {
		mark = styles.FavoriteMark
	}
	title := t.Favorite.Render(mark) + " " + t.ResultTitle.Render(util.TruncateWidth(r.Title(), width-2))

	price := r.Price
	if price == "" {
		price = model.MissingPrice
	}

	rows := [][2]string{
		{"Ano modelo", r.YearLabel()},
		{"Combustível", r.Fuel},
		{"Código FIPE", r.CodeFipe},
		{"Referência", r.ReferenceMonth},
		{"Categoria", cat.Label()},
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	if r.IsZeroKM() {
		b.WriteString(t.Badge.Render("0 km"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(t.Price.Render(price))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(t.FieldLabel.Render(util.PadRight(row[0], 13)))
		b.WriteString(t.FieldValue.Render(util.TruncateWidth(row[1], width-14)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(t.Muted.Render("f favoritar · c copiar código · p copiar preço · esc nova busca"))
	return t.ResultCard.Width(width).Render(b.String())
}

func (m Model) trendView() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.PanelTitle.Render("Histórico de preço"))
	b.WriteString("\n")
	switch {
	case m.trendLoading:
		b.WriteString(t.Muted.Render("Carregando meses anteriores..."))
	case m.trendErr != nil || (len(m.trend) == 0 && m.trendKey != ""):
		b.WriteString(t.InsightError.Render("Histórico indisponível para este veículo."))
	default:
		for i, p := range m.trend {
			b.WriteString(t.TrendMonth.Render(util.PadRight(p.Month, 20)))
			b.WriteString(t.TrendPrice.Render(p.Price))
			if i < len(m.trend)-1 {
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func (m Model) insightView() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.InsightTitle.Render("Análise do especialista (IA)"))
	b.WriteString("\n")
	switch {
	case !m.insight.Available():
		b.WriteString(t.InsightError.Render("Análise de IA indisponível: configure GEMINI_API_KEY ou o Ollama."))
	case m.insightLoading:
		b.WriteString(t.Muted.Render("Consultando especialista..."))
	case m.insightErr != nil:
		var ge *insight.GenerateError
		text := insight.ErrorText
		if errors.As(m.insightErr, &ge) {
			text = insight.FallbackText
		}
		b.WriteString(t.InsightError.Render(text))
	default:
		b.WriteString(m.insightRendered)
	}
	return t.InsightBox.Width(max(m.result.Width-t.InsightBox.GetHorizontalBorderSize(), 20)).Render(b.String())
}

// =============================================================================
// SIDEBARS
// =============================================================================

// sidebars renders favorites and history, side by side when horizontal.
func (m Model) sidebars(width, height int, horizontal bool) string {
	if horizontal {
		half := width / 2
		return lipgloss.JoinHorizontal(lipgloss.Top,
			m.favoritesPanel(half, height),
			m.historyPanel(width-half, height))
	}
	top := height / 2
	return lipgloss.JoinVertical(lipgloss.Left,
		m.favoritesPanel(width, top),
		m.historyPanel(width, height-top))
}

func (m Model) favoritesPanel(width, height int) string {
	t := m.theme
	inner := max(width-t.Sidebar.GetHorizontalFrameSize(), 10)
	rows := max(height-2, 1)

	var lines []string
	title := "Favoritos"
	switch {
	case m.sess == nil:
		lines = append(lines, t.SidebarNotice.Render(wrap("Faça login para salvar e ver seus favoritos. (C-l)", inner)))
	case !m.favorites.Available():
		lines = append(lines, t.SidebarNotice.Render("Favoritos indisponíveis."))
	default:
		favs := m.favorites.List()
		title += " (" + itoa(len(favs)) + ")"
		if len(favs) == 0 {
			lines = append(lines, t.SidebarNotice.Render("Nenhum favorito ainda. Use f no resultado."))
		}
		entries := make([]sidebarEntry, len(favs))
		for i, f := range favs {
			entries[i] = sidebarEntry{
				title: f.BrandName + " " + f.ModelName,
				meta:  f.SavedPrice + " · " + f.SavedReference,
			}
		}
		lines = append(lines, m.renderEntries(entries, m.favCursor, m.focus == paneFavorites, inner, rows/2)...)
	}
	return m.sidebarBox(title, lines, width, height, m.focus == paneFavorites)
}

func (m Model) historyPanel(width, height int) string {
	t := m.theme
	inner := max(width-t.Sidebar.GetHorizontalFrameSize(), 10)
	rows := max(height-2, 1)

	hist := m.historyForView()
	title := "Consultas recentes (" + itoa(len(hist)) + ")"
	var lines []string
	if len(hist) == 0 {
		lines = append(lines, t.SidebarNotice.Render("Nenhuma consulta recente."))
	}
	entries := make([]sidebarEntry, len(hist))
	for i, h := range hist {
		entries[i] = sidebarEntry{
			title: h.Result.Title() + " " + h.Result.YearLabel(),
			meta:  h.Result.Price + " · " + h.Time().Format("02/01 15:04"),
		}
	}
	lines = append(lines, m.renderEntries(entries, m.histCursor, m.focus == paneHistory, inner, rows/2)...)
	return m.sidebarBox(title, lines, width, height, m.focus == paneHistory)
}

type sidebarEntry struct {
	title string
	meta  string
}

// renderEntries renders up to max entries (two lines each) keeping the
// cursor visible.
func (m Model) renderEntries(entries []sidebarEntry, cursor int, focused bool, width, limit int) []string {
	t := m.theme
	limit = max(limit, 1)
	start := 0
	if cursor >= limit {
		start = cursor - limit + 1
	}
	end := min(start+limit, len(entries))

	var lines []string
	for i := start; i < end; i++ {
		e := entries[i]
		title := util.PadRight(util.TruncateWidth(e.title, width), width)
		if focused && i == cursor {
			lines = append(lines, t.SidebarSelected.Render(title))
		} else {
			lines = append(lines, t.SidebarItem.Render(title))
		}
		lines = append(lines, t.SidebarMeta.Render(util.TruncateWidth(e.meta, width)))
	}
	return lines
}

func (m Model) sidebarBox(title string, lines []string, width, height int, focused bool) string {
	t := m.theme
	titleStyle := t.SidebarTitle
	if focused {
		titleStyle = titleStyle.Underline(true)
	}
	content := titleStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	return t.Sidebar.
		Width(max(width-t.Sidebar.GetHorizontalBorderSize(), 10)).
		Height(max(height, 2)).
		MaxHeight(max(height, 2)).
		Render(content)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) statusBar() string {
	sb := *m.status
	sb.Busy = m.flow != nil && m.flow.Busy()
	sb.User = ""
	if m.sess != nil {
		sb.User = m.sess.Name()
	}
	if m.flow != nil {
		sb.Stage = stageLabel(m.flow.Stage())
	}
	if m.spinner.IsActive() {
		sb.Stage = m.spinner.View()
	}

	k := m.keys
	shortcuts := []components.Shortcut{{Key: "tab", Desc: "próximo"}}
	switch {
	case m.screen == screenAccount:
		shortcuts = []components.Shortcut{{Key: "enter", Desc: "enviar"}, {Key: "esc", Desc: "fechar"}}
	case m.focus == paneResult:
		shortcuts = append(shortcuts,
			helpOf(k.Favorite), helpOf(k.CopyCode), helpOf(k.CopyPrice), helpOf(k.Back))
	case m.focus == paneFavorites || m.focus == paneHistory:
		shortcuts = append(shortcuts, helpOf(k.Open))
		if m.focus == paneHistory {
			shortcuts = append(shortcuts, helpOf(k.Clear))
		}
	default:
		shortcuts = append(shortcuts, components.Shortcut{Key: "enter", Desc: "escolher"},
			components.Shortcut{Key: "digite", Desc: "filtrar"})
	}
	shortcuts = append(shortcuts, helpOf(k.Account), helpOf(k.Quit))
	sb.Shortcuts = shortcuts
	return sb.View()
}

func helpOf(b key.Binding) components.Shortcut {
	h := b.Help()
	return components.Shortcut{Key: h.Key, Desc: h.Desc}
}

// stageLabel describes what the user should do next.
func stageLabel(s flow.Stage) string {
	switch s {
	case flow.StageIdle:
		return "Escolha a categoria"
	case flow.StageCategoryChosen:
		return "Escolha a marca"
	case flow.StageBrandChosen:
		return "Escolha o próximo item"
	case flow.StageModelChosen, flow.StageYearChosen:
		return "Consultando preço"
	case flow.StageResultShown:
		return "Resultado"
	default:
		return ""
	}
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

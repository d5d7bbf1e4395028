// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/fipepro/internal/flow"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/ui/components"
	"github.com/jeranaias/fipepro/internal/ui/styles"
)

// =============================================================================
// LAYOUT
// =============================================================================

// dims holds the computed sizes of one frame.
type dims struct {
	mode     styles.LayoutMode
	bodyH    int
	listsW   int
	resultW  int
	sideW    int
	sideH    int
	listRows int
}

func (m Model) dims() dims {
	w, h := max(m.width, 40), max(m.height, 12)
	d := dims{mode: m.theme.GetLayoutMode(), bodyH: h - 2}

	switch d.mode {
	case styles.LayoutWide:
		d.listsW, d.sideW = 34, 38
		d.resultW = w - d.listsW - d.sideW
		d.sideH = d.bodyH
	case styles.LayoutMedium:
		d.listsW = 32
		d.resultW = w - d.listsW
		d.sideW = d.resultW
		d.sideH = min(12, d.bodyH/3)
	default:
		d.listsW, d.resultW, d.sideW = w, w, w
		d.sideH = d.bodyH
	}

	// Category panel: 3 rows plus border, title and filter.
	remaining := d.bodyH - 7
	d.listRows = max(remaining/3-4, 2)
	return d
}

// layout applies the window size to every sized component.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)
	m.status.SetWidth(m.width)

	d := m.dims()
	for _, l := range []*components.SelectList{&m.brandList, &m.modelList, &m.yearList} {
		l.SetHeight(d.listRows)
	}

	vpH := d.bodyH - 2
	if d.mode == styles.LayoutMedium {
		vpH -= d.sideH
	}
	m.result.Width = max(d.resultW-4, 20)
	m.result.Height = max(vpH, 3)
	m.renderInsight()
}

// =============================================================================
// FOCUS
// =============================================================================

func (m Model) paneOrder() []pane {
	if m.flow != nil && m.flow.Order() == flow.OrderYearFirst {
		return []pane{paneCategory, paneBrand, paneYear, paneModel, paneResult, paneFavorites, paneHistory}
	}
	return []pane{paneCategory, paneBrand, paneModel, paneYear, paneResult, paneFavorites, paneHistory}
}

func (m Model) nextPane(p pane) pane {
	order := m.paneOrder()
	for i, o := range order {
		if o == p {
			return order[(i+1)%len(order)]
		}
	}
	return p
}

func (m Model) lastListPane() pane {
	if m.flow != nil && m.flow.Order() == flow.OrderYearFirst {
		return paneModel
	}
	return paneYear
}

func (m *Model) cycleFocus(delta int) tea.Cmd {
	order := m.paneOrder()
	for i, o := range order {
		if o == m.focus {
			m.focus = order[(i+delta+len(order))%len(order)]
			break
		}
	}
	return m.applyFocus()
}

// applyFocus gives keyboard focus to the list under m.focus and blurs the
// others.
func (m *Model) applyFocus() tea.Cmd {
	lists := map[pane]*components.SelectList{
		paneCategory: &m.catList,
		paneBrand:    &m.brandList,
		paneModel:    &m.modelList,
		paneYear:     &m.yearList,
	}
	var cmd tea.Cmd
	for p, l := range lists {
		if p == m.focus {
			cmd = l.Focus()
		} else {
			l.Blur()
		}
	}
	if cmd == nil && m.focus <= paneYear {
		cmd = textinput.Blink
	}
	return cmd
}

// =============================================================================
// STATE SYNC
// =============================================================================

// syncLists mirrors the flow state into the list widgets.
func (m *Model) syncLists() {
	if m.flow == nil {
		return
	}
	st := m.flow.State()
	busy := m.flow.Busy()
	yearFirst := m.flow.Order() == flow.OrderYearFirst

	if st.Category.Valid() {
		m.catList.SetChosen(st.Category.String())
	}

	syncList(&m.brandList, st.Brands, nil, st.Brand, !st.Category.Valid(), "Escolha uma categoria", busy)
	if yearFirst {
		syncList(&m.yearList, st.Years, model.YearLabel, st.Year, st.Brand == "", "Escolha uma marca", busy)
		syncList(&m.modelList, st.Models, nil, st.Model, st.Year == "", "Escolha um ano", busy)
	} else {
		syncList(&m.modelList, st.Models, nil, st.Model, st.Brand == "", "Escolha uma marca", busy)
		syncList(&m.yearList, st.Years, model.YearLabel, st.Year, st.Model == "", "Escolha um modelo", busy)
	}
}

func syncList(l *components.SelectList, items []model.Item, label func(string) string, chosen string, disabled bool, prerequisite string, busy bool) {
	if !sameOptions(l.Options(), items) {
		if len(items) == 0 {
			l.Reset()
		} else {
			opts := make([]components.Option, len(items))
			for i, it := range items {
				name := it.Name
				if label != nil {
					name = label(name)
				}
				opts[i] = components.Option{ID: it.Code, Label: name}
			}
			l.SetOptions(opts)
		}
	}
	l.SetChosen(chosen)
	l.Disabled = disabled
	switch {
	case disabled:
		l.Placeholder = prerequisite
	case busy:
		l.Placeholder = "Carregando..."
	default:
		l.Placeholder = "Nenhuma opção disponível"
	}
}

func sameOptions(opts []components.Option, items []model.Item) bool {
	if len(opts) != len(items) {
		return false
	}
	for i := range opts {
		if opts[i].ID != items[i].Code {
			return false
		}
	}
	return true
}

// renderInsight renders the commentary as markdown at the current width.
func (m *Model) renderInsight() {
	if m.insightText == "" {
		m.insightRendered = ""
		return
	}
	width := max(m.result.Width-2, 20)
	if m.md == nil || m.mdWidth != width {
		style := "light"
		if m.theme.IsDark {
			style = "dark"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.logger.Warn("markdown renderer unavailable", "error", err)
			m.insightRendered = m.insightText
			return
		}
		m.md, m.mdWidth = r, width
	}
	out, err := m.md.Render(m.insightText)
	if err != nil {
		m.insightRendered = m.insightText
		return
	}
	m.insightRendered = strings.Trim(out, "\n")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fipepro/internal/ui/styles"
	"github.com/jeranaias/fipepro/internal/util"
)

// Option is one entry of a SelectList.
type Option struct {
	ID    string
	Label string
}

// SelectedMsg is emitted when the user confirms an option.
type SelectedMsg struct {
	List   string
	Option Option
}

// ListKeyMap holds the bindings a SelectList reacts to.
type ListKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	PgUp   key.Binding
	PgDown key.Binding
	Home   key.Binding
	End    key.Binding
	Choose key.Binding
	Clear  key.Binding
}

// DefaultListKeyMap returns the default list bindings.
func DefaultListKeyMap() ListKeyMap {
	return ListKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "subir")),
		Down:   key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "descer")),
		PgUp:   key.NewBinding(key.WithKeys("pgup")),
		PgDown: key.NewBinding(key.WithKeys("pgdown")),
		Home:   key.NewBinding(key.WithKeys("home")),
		End:    key.NewBinding(key.WithKeys("end")),
		Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "escolher")),
		Clear:  key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "limpar filtro")),
	}
}

// =============================================================================
// SELECT LIST
// =============================================================================

// SelectList is a titled, filterable single-choice list. Typing narrows
// the options with an accent- and case-insensitive match.
type SelectList struct {
	Name        string
	Title       string
	Placeholder string
	Disabled    bool

	keys    ListKeyMap
	theme   *styles.Theme
	filter  textinput.Model
	options []Option
	visible []int
	cursor  int
	offset  int
	chosen  string
	focused bool
	height  int
}

// NewSelectList creates an empty list. name is echoed in SelectedMsg.
func NewSelectList(theme *styles.Theme, name, title string) SelectList {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filtrar"
	ti.CharLimit = 64

	return SelectList{
		Name:   name,
		Title:  title,
		keys:   DefaultListKeyMap(),
		theme:  theme,
		filter: ti,
		height: 10,
	}
}

// SetOptions replaces the options, keeping the filter text and clearing the
// cursor.
func (l *SelectList) SetOptions(opts []Option) {
	l.options = opts
	l.cursor, l.offset = 0, 0
	l.refilter()
}

// Options returns all options, ignoring the filter.
func (l SelectList) Options() []Option {
	return l.options
}

// Len returns the number of options matching the filter.
func (l SelectList) Len() int {
	return len(l.visible)
}

// SetChosen marks id as the committed choice. Empty clears it.
func (l *SelectList) SetChosen(id string) {
	l.chosen = id
}

// Chosen returns the committed choice id.
func (l SelectList) Chosen() string {
	return l.chosen
}

// Reset clears options, the choice and the filter.
func (l *SelectList) Reset() {
	l.options = nil
	l.visible = nil
	l.chosen = ""
	l.cursor, l.offset = 0, 0
	l.filter.SetValue("")
}

// Focus gives the list keyboard focus.
func (l *SelectList) Focus() tea.Cmd {
	l.focused = true
	return l.filter.Focus()
}

// Blur removes keyboard focus.
func (l *SelectList) Blur() {
	l.focused = false
	l.filter.Blur()
}

// Focused reports whether the list has focus.
func (l SelectList) Focused() bool {
	return l.focused
}

// SetHeight sets how many option rows are drawn.
func (l *SelectList) SetHeight(h int) {
	if h < 1 {
		h = 1
	}
	l.height = h
	l.clampOffset()
}

// Filter returns the current filter text.
func (l SelectList) Filter() string {
	return l.filter.Value()
}

// SetFilter replaces the filter text.
func (l *SelectList) SetFilter(s string) {
	l.filter.SetValue(s)
	l.cursor, l.offset = 0, 0
	l.refilter()
}

// Highlighted returns the option under the cursor.
func (l SelectList) Highlighted() (Option, bool) {
	if l.cursor < 0 || l.cursor >= len(l.visible) {
		return Option{}, false
	}
	return l.options[l.visible[l.cursor]], true
}

func (l *SelectList) refilter() {
	needle := l.filter.Value()
	l.visible = l.visible[:0]
	for i, o := range l.options {
		if util.ContainsFold(o.Label, needle) {
			l.visible = append(l.visible, i)
		}
	}
	if l.cursor >= len(l.visible) {
		l.cursor = max(len(l.visible)-1, 0)
	}
	l.clampOffset()
}

func (l *SelectList) move(delta int) {
	if len(l.visible) == 0 {
		return
	}
	l.cursor = min(max(l.cursor+delta, 0), len(l.visible)-1)
	l.clampOffset()
}

func (l *SelectList) clampOffset() {
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.height {
		l.offset = l.cursor - l.height + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles key input while focused.
func (l SelectList) Update(msg tea.Msg) (SelectList, tea.Cmd) {
	if !l.focused || l.Disabled {
		return l, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}

	switch {
	case key.Matches(keyMsg, l.keys.Up):
		l.move(-1)
		return l, nil
	case key.Matches(keyMsg, l.keys.Down):
		l.move(1)
		return l, nil
	case key.Matches(keyMsg, l.keys.PgUp):
		l.move(-l.height)
		return l, nil
	case key.Matches(keyMsg, l.keys.PgDown):
		l.move(l.height)
		return l, nil
	case key.Matches(keyMsg, l.keys.Home):
		l.move(-len(l.visible))
		return l, nil
	case key.Matches(keyMsg, l.keys.End):
		l.move(len(l.visible))
		return l, nil
	case key.Matches(keyMsg, l.keys.Clear):
		l.SetFilter("")
		return l, nil
	case key.Matches(keyMsg, l.keys.Choose):
		opt, ok := l.Highlighted()
		if !ok {
			return l, nil
		}
		l.chosen = opt.ID
		name := l.Name
		return l, func() tea.Msg { return SelectedMsg{List: name, Option: opt} }
	}

	before := l.filter.Value()
	var cmd tea.Cmd
	l.filter, cmd = l.filter.Update(msg)
	if l.filter.Value() != before {
		l.cursor, l.offset = 0, 0
		l.refilter()
	}
	return l, cmd
}

// View renders the list inside a panel of the given width.
func (l SelectList) View(width int) string {
	t := l.theme
	panel := t.Panel
	if l.focused {
		panel = t.PanelFocused
	}
	if l.Disabled {
		panel = t.PanelDisabled
	}
	inner := max(width-panel.GetHorizontalFrameSize(), 8)

	var b strings.Builder
	title := l.Title
	if len(l.options) > 0 {
		title += " (" + strconv.Itoa(len(l.visible)) + "/" + strconv.Itoa(len(l.options)) + ")"
	}
	b.WriteString(t.PanelTitle.Render(util.TruncateWidth(title, inner)))
	b.WriteString("\n")

	if l.Disabled || len(l.options) == 0 {
		msg := l.Placeholder
		if msg == "" {
			msg = "nada para mostrar"
		}
		b.WriteString(t.ListEmpty.Render(util.TruncateWidth(msg, inner)))
		return panel.Width(inner).Render(b.String())
	}

	if l.focused || l.filter.Value() != "" {
		b.WriteString(t.ListFilter.Render(l.filter.View()))
		b.WriteString("\n")
	}

	if len(l.visible) == 0 {
		b.WriteString(t.ListEmpty.Render("nenhum resultado"))
		return panel.Width(inner).Render(b.String())
	}

	end := min(l.offset+l.height, len(l.visible))
	for i := l.offset; i < end; i++ {
		opt := l.options[l.visible[i]]
		label := util.PadRight(util.TruncateWidth(opt.Label, inner-2), inner-2)
		switch {
		case i == l.cursor && l.focused:
			b.WriteString(t.ListItemSelected.Render("› " + label))
		case opt.ID == l.chosen:
			b.WriteString(t.ListItemChosen.Render("• " + label))
		default:
			b.WriteString(t.ListItem.Render("  " + label))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return panel.Width(inner).Render(b.String())
}

// ChosenLabel returns the label of the committed choice, if any.
func (l SelectList) ChosenLabel() string {
	for _, o := range l.options {
		if o.ID == l.chosen {
			return o.Label
		}
	}
	return ""
}

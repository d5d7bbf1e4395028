// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile
	Mode         string

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	HeaderUser     lipgloss.Style

	// ==========================================================================
	// PANELS AND LISTS
	// ==========================================================================

	Panel         lipgloss.Style
	PanelFocused  lipgloss.Style
	PanelTitle    lipgloss.Style
	PanelDisabled lipgloss.Style

	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListItemChosen   lipgloss.Style
	ListFilter       lipgloss.Style
	ListEmpty        lipgloss.Style

	// ==========================================================================
	// RESULT CARD
	// ==========================================================================

	ResultCard  lipgloss.Style
	ResultTitle lipgloss.Style
	Price       lipgloss.Style
	FieldLabel  lipgloss.Style
	FieldValue  lipgloss.Style
	Badge       lipgloss.Style
	Favorite    lipgloss.Style

	// ==========================================================================
	// INSIGHT AND TREND
	// ==========================================================================

	InsightBox   lipgloss.Style
	InsightTitle lipgloss.Style
	InsightError lipgloss.Style
	TrendMonth   lipgloss.Style
	TrendPrice   lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarMeta     lipgloss.Style
	SidebarNotice   lipgloss.Style
	SidebarSelected lipgloss.Style

	// ==========================================================================
	// FORMS
	// ==========================================================================

	FormBox     lipgloss.Style
	FormTitle   lipgloss.Style
	FormLabel   lipgloss.Style
	FormError   lipgloss.Style
	FormMessage lipgloss.Style
	FormHint    lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
	Muted        lipgloss.Style
}

// NewTheme creates a theme. mode is "auto", "dark" or "light"; anything
// else is treated as auto.
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()

	mode = strings.ToLower(strings.TrimSpace(mode))
	var isDark bool
	switch mode {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
		Mode:         mode,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(BlueDeep).
		Foreground(TextInverse).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#93C5FD"}).
		Italic(true)

	t.HeaderUser = lipgloss.NewStyle().
		Foreground(TextInverse)

	// Panels
	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PanelFocused = t.Panel.
		BorderForeground(Blue)

	t.PanelTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)

	t.PanelDisabled = t.Panel.
		Foreground(TextMuted)

	// Lists
	t.ListItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.ListItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)

	t.ListItemChosen = lipgloss.NewStyle().
		Foreground(Blue).
		Bold(true)

	t.ListFilter = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.ListEmpty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Result card
	t.ResultCard = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(Blue).
		Padding(1, 2)

	t.ResultTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.Price = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald)

	t.FieldLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.FieldValue = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.Badge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Blue).
		Padding(0, 1)

	t.Favorite = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Insight and trend
	t.InsightBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(0, 1)

	t.InsightTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.InsightError = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.TrendMonth = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.TrendPrice = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		BorderForeground(Overlay).
		PaddingLeft(1)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SidebarMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.SidebarNotice = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg)

	// Forms
	t.FormBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Blue).
		Padding(1, 3)

	t.FormTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)

	t.FormLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.FormError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.FormMessage = lipgloss.NewStyle().
		Foreground(Emerald)

	t.FormHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Blue).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Blue)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 80 {
		return LayoutNarrow
	}
	if t.Width < 120 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 80 columns: single column, no sidebar
	LayoutMedium                   // 80-120 columns: sidebar below
	LayoutWide                     // > 120 columns: sidebar beside
)

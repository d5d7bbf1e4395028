// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the interactive terminal application: the cascading
// vehicle selection, the result card with price trend and AI commentary,
// and the favorites and history sidebars.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/favorites"
	"github.com/jeranaias/fipepro/internal/flow"
	"github.com/jeranaias/fipepro/internal/history"
	"github.com/jeranaias/fipepro/internal/insight"
	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/session"
	"github.com/jeranaias/fipepro/internal/ui/components"
	"github.com/jeranaias/fipepro/internal/ui/styles"
)

// Trends fetches the recent price history of a lookup code.
type Trends interface {
	PriceTrend(ctx context.Context, cat model.Category, code, year string, points int) ([]model.TrendPoint, error)
}

// Sessions is the session store plus the TUI hooks of *session.Manager.
type Sessions interface {
	session.Store
	Peek() *session.Session
	HandleTick() tea.Cmd
}

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// =============================================================================
// PANES AND MODES
// =============================================================================

type pane int

const (
	paneCategory pane = iota
	paneBrand
	paneModel
	paneYear
	paneResult
	paneFavorites
	paneHistory
)

type screen int

const (
	screenBrowse screen = iota
	screenAccount
)

// List names echoed in components.SelectedMsg.
const (
	listCategory = "category"
	listBrand    = "brand"
	listModel    = "model"
	listYear     = "year"
)

// =============================================================================
// MODEL
// =============================================================================

// Options wires the application's collaborators. Flow is required; the
// others may be nil, which disables the feature they back.
type Options struct {
	Config    *config.Config
	Flow      *flow.Controller
	Trends    Trends
	History   *history.Store
	Favorites *favorites.Store
	Sessions  Sessions
	Insight   *insight.Client

	// Reloads delivers config file changes. May be nil.
	Reloads <-chan *config.Config

	Logger *slog.Logger
}

// Model is the Bubble Tea model of the application.
type Model struct {
	flow      *flow.Controller
	trends    Trends
	history   *history.Store
	favorites *favorites.Store
	sessions  Sessions
	insight   *insight.Client
	logger    *slog.Logger

	theme    *styles.Theme
	keys     KeyMap
	formKeys FormKeyMap

	catList   components.SelectList
	brandList components.SelectList
	modelList components.SelectList
	yearList  components.SelectList

	result  viewport.Model
	spinner components.Spinner
	status  *components.StatusBar
	toasts  *components.ToastManager
	ticking bool

	screen screen
	focus  pane
	form   authForm

	sess     *session.Session
	location string

	insightCode     string
	insightText     string
	insightRendered string
	insightErr      error
	insightLoading  bool
	md              *glamour.TermRenderer
	mdWidth         int

	trendKey     string
	trend        []model.TrendPoint
	trendErr     error
	trendLoading bool

	favCursor  int
	histCursor int

	sessionEvents chan session.ChangedMsg
	unsubscribe   func()
	reloads       <-chan *config.Config
	startup       *flow.Request

	width  int
	height int
}

// New builds the application model. The default category from the config
// is selected immediately; its brand list is fetched by Init.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := styles.NewTheme(cfg.UI.Theme)

	m := Model{
		flow:      opts.Flow,
		trends:    opts.Trends,
		history:   opts.History,
		favorites: opts.Favorites,
		sessions:  opts.Sessions,
		insight:   opts.Insight,
		logger:    logging.OrDiscard(opts.Logger),
		theme:     theme,
		keys:      DefaultKeyMap(),
		formKeys:  DefaultFormKeyMap(),
		result:    viewport.New(60, 20),
		spinner:   components.NewSpinner(theme),
		status:    components.NewStatusBar(theme),
		toasts:    components.NewToastManager(),
		location:  cfg.Insight.Location,
		reloads:   opts.Reloads,
	}
	if m.favorites == nil {
		m.favorites = favorites.New(nil, m.logger)
	}

	m.catList = components.NewSelectList(theme, listCategory, "Categoria")
	catOpts := make([]components.Option, 0, len(model.Categories))
	for _, c := range model.Categories {
		catOpts = append(catOpts, components.Option{ID: c.String(), Label: c.Label()})
	}
	m.catList.SetOptions(catOpts)
	m.catList.SetHeight(len(catOpts))
	m.brandList = components.NewSelectList(theme, listBrand, "Marca")
	m.modelList = components.NewSelectList(theme, listModel, "Modelo")
	m.yearList = components.NewSelectList(theme, listYear, "Ano")

	var caps session.Capabilities
	if m.sessions != nil {
		caps = m.sessions.Capabilities()
		m.sessionEvents = make(chan session.ChangedMsg, 8)
		events, logger := m.sessionEvents, m.logger
		m.unsubscribe = m.sessions.OnChange(func(e session.Event, s *session.Session) {
			forwardSession(events, session.ChangedMsg{Event: e, Session: s}, logger)
		})
		m.sess = m.sessions.Peek()
	}
	m.form = newAuthForm(theme, caps)

	if cat, err := model.ParseCategory(cfg.Flow.DefaultCategory); err == nil && m.flow != nil {
		m.startup = m.flow.SetCategory(cat)
		m.catList.SetChosen(cat.String())
		m.focus = paneBrand
		m.spinner.Start("Carregando marcas")
	}
	m.syncLists()
	m.applyFocus()
	return m
}

// Close unregisters the session listener.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts the startup fetch, the session check and the background
// listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		runRequest(m.startup),
		waitForSession(m.sessionEvents),
		waitForReload(m.reloads),
		m.applyFocus(),
	}
	if m.startup != nil {
		cmds = append(cmds, m.spinner.Tick)
	}
	if m.sessions != nil {
		cmds = append(cmds, loadSession(m.sessions), session.TickCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles a message and then re-syncs the lists and the result pane
// with the flow state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.syncLists()
	m.refreshResult()
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return tea.Quit
		}
		if m.screen == screenAccount {
			return m.handleFormKey(msg)
		}
		return m.handleKey(msg)

	case components.SelectedMsg:
		return m.handleSelected(msg)

	case flowMsg:
		return m.handleFlow(msg)

	case insightMsg:
		if msg.code != m.insightCode {
			return nil
		}
		m.insightLoading = false
		m.insightText, m.insightErr = msg.text, msg.err
		m.renderInsight()
		return nil

	case trendMsg:
		if msg.key != m.trendKey {
			return nil
		}
		m.trendLoading = false
		m.trend, m.trendErr = msg.points, msg.err
		return nil

	case favToggledMsg:
		return m.handleFavToggled(msg)

	case favLoadedMsg:
		if msg.err != nil {
			return m.toast(components.ToastKindError, "Não foi possível carregar seus favoritos.")
		}
		m.favCursor = 0
		return nil

	case sessionLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("failed to restore session", "error", msg.err)
		}
		m.sess = msg.sess
		if m.sess != nil && m.favorites.Available() {
			return loadFavorites(m.favorites, m.sess)
		}
		return nil

	case session.ChangedMsg:
		cmd := m.handleSessionChanged(msg)
		return tea.Batch(cmd, waitForSession(m.sessionEvents))

	case session.TickMsg:
		if m.sessions == nil {
			return nil
		}
		return m.sessions.HandleTick()

	case configReloadedMsg:
		m.applyConfig(msg.cfg)
		return waitForReload(m.reloads)

	case authResultMsg:
		return m.handleAuthResult(msg)

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			return components.ToastTickCmd()
		}
		m.ticking = false
		return nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.NextPane):
		return m.cycleFocus(1)
	case key.Matches(msg, m.keys.PrevPane):
		return m.cycleFocus(-1)
	case key.Matches(msg, m.keys.Account):
		return m.accountAction()
	case key.Matches(msg, m.keys.Back):
		if m.flow != nil && m.flow.State().Result != nil {
			m.flow.BackToSearch()
			m.focus = m.lastListPane()
			return m.applyFocus()
		}
		return nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case paneCategory:
		m.catList, cmd = m.catList.Update(msg)
	case paneBrand:
		m.brandList, cmd = m.brandList.Update(msg)
	case paneModel:
		m.modelList, cmd = m.modelList.Update(msg)
	case paneYear:
		m.yearList, cmd = m.yearList.Update(msg)
	case paneResult:
		return m.handleResultKey(msg)
	case paneFavorites, paneHistory:
		return m.handleSidebarKey(msg)
	}
	return cmd
}

func (m *Model) handleResultKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.QuitPane):
		return tea.Quit
	case key.Matches(msg, m.keys.Favorite):
		return m.toggleFavorite()
	case key.Matches(msg, m.keys.CopyCode):
		return m.copyField("código FIPE", func(r model.PricedResult) string { return r.CodeFipe })
	case key.Matches(msg, m.keys.CopyPrice):
		return m.copyField("preço", func(r model.PricedResult) string { return r.Price })
	}
	var cmd tea.Cmd
	m.result, cmd = m.result.Update(msg)
	return cmd
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	favs := m.favoritesForView()
	hist := m.historyForView()

	cursor, n := &m.histCursor, len(hist)
	if m.focus == paneFavorites {
		cursor, n = &m.favCursor, len(favs)
	}

	switch {
	case key.Matches(msg, m.keys.QuitPane):
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		if *cursor > 0 {
			*cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if *cursor < n-1 {
			*cursor++
		}
	case key.Matches(msg, m.keys.Clear):
		if m.focus == paneHistory && m.history != nil {
			if err := m.history.Clear(); err != nil {
				return m.toast(components.ToastKindError, "Não foi possível limpar o histórico.")
			}
			m.histCursor = 0
			return m.toast(components.ToastKindStatus, "Histórico limpo.")
		}
	case key.Matches(msg, m.keys.Open):
		if *cursor >= n || m.flow == nil {
			return nil
		}
		if m.focus == paneFavorites {
			return m.issue(m.flow.LoadFavorite(favs[*cursor]), "Carregando favorito")
		}
		return m.restoreHistory(hist[*cursor])
	}
	return nil
}

func (m *Model) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	f := &m.form
	k := m.formKeys
	switch {
	case key.Matches(msg, k.Close):
		m.screen = screenBrowse
		return m.applyFocus()
	case f.busy:
		return nil
	case key.Matches(msg, k.Login):
		return f.open(formLogin, "")
	case key.Matches(msg, k.SignUp):
		return f.open(formSignUp, "")
	case key.Matches(msg, k.Reset):
		return f.open(formReset, "")
	case key.Matches(msg, k.EnterCode):
		if f.caps.VerificationCode {
			return f.open(formVerify, "Informe o código enviado para seu e-mail.")
		}
		return nil
	case key.Matches(msg, k.Next):
		return f.move(1)
	case key.Matches(msg, k.Prev):
		return f.move(-1)
	case key.Matches(msg, k.Submit):
		if !f.onLastField() {
			return f.move(1)
		}
		if m.sessions == nil {
			f.err = session.ErrUnavailable.Error()
			return nil
		}
		return f.submit(m.sessions)
	}
	return f.updateInput(msg)
}

// =============================================================================
// FLOW
// =============================================================================

func (m *Model) handleSelected(msg components.SelectedMsg) tea.Cmd {
	if m.flow == nil {
		return nil
	}
	id := msg.Option.ID
	switch msg.List {
	case listCategory:
		cat, err := model.ParseCategory(id)
		if err != nil {
			return nil
		}
		m.focus = paneBrand
		return m.issue(m.flow.SetCategory(cat), "Carregando marcas")
	case listBrand:
		m.focus = m.nextPane(paneBrand)
		return m.issue(m.flow.ChooseBrand(id), "Carregando")
	case listModel:
		if m.flow.Order() == flow.OrderModelFirst {
			m.focus = paneYear
			return m.issue(m.flow.ChooseModel(id), "Carregando anos")
		}
		return m.issue(m.flow.ChooseModel(id), "Consultando preço")
	case listYear:
		if m.flow.Order() == flow.OrderYearFirst {
			m.focus = paneModel
			return m.issue(m.flow.ChooseYear(id), "Carregando modelos")
		}
		return m.issue(m.flow.ChooseYear(id), "Consultando preço")
	}
	return nil
}

// issue starts req and the busy spinner.
func (m *Model) issue(req *flow.Request, label string) tea.Cmd {
	focus := m.applyFocus()
	if req == nil {
		return focus
	}
	return tea.Batch(runRequest(req), m.spinner.Start(label), focus)
}

func (m *Model) handleFlow(msg flowMsg) tea.Cmd {
	eff := m.flow.Apply(msg.outcome)
	if !m.flow.Busy() {
		m.spinner.Stop()
	}
	return m.handleEffect(eff)
}

func (m *Model) restoreHistory(entry model.HistoryEntry) tea.Cmd {
	if m.history != nil {
		if stored, err := m.history.Restore(entry.ID); err == nil {
			entry = stored
		}
	}
	return m.handleEffect(m.flow.RestoreHistory(entry))
}

// handleEffect reacts to what Apply or RestoreHistory changed.
func (m *Model) handleEffect(eff flow.Effect) tea.Cmd {
	switch {
	case eff.Stale:
		return nil
	case eff.Err != nil:
		return m.toast(components.ToastKindError, "Falha na consulta: "+eff.Err.Error())
	case !eff.Displayed:
		return nil
	}

	if eff.ScrollTop {
		m.result.GotoTop()
	}
	m.histCursor = 0
	m.focus = paneResult
	m.applyFocus()

	st := m.flow.State()
	res := *st.Result
	var cmds []tea.Cmd

	if res.CodeFipe != m.insightCode {
		m.insightCode = res.CodeFipe
		m.insightText, m.insightRendered, m.insightErr = "", "", nil
		m.insightLoading = m.insight.Available()
		if m.insightLoading {
			cmds = append(cmds, fetchInsight(m.insight, res, m.location))
		}
	}

	k := trendKey(res.CodeFipe, st.ResultYearID)
	if k != m.trendKey {
		m.trendKey = k
		m.trend, m.trendErr = nil, nil
		m.trendLoading = m.trends != nil && st.ResultYearID != ""
		if m.trendLoading {
			cmds = append(cmds, fetchTrend(m.trends, st.ResultCategory, res.CodeFipe, st.ResultYearID))
		}
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// FAVORITES AND ACCOUNT
// =============================================================================

func (m *Model) toggleFavorite() tea.Cmd {
	st := m.flow.State()
	if st.Result == nil {
		return nil
	}
	if m.sess == nil {
		if m.sessions == nil || !m.sessions.Available() {
			return m.toast(components.ToastKindWarning, session.ErrUnavailable.Error())
		}
		m.screen = screenAccount
		return tea.Batch(
			m.form.open(formLogin, "Faça login para salvar favoritos."),
			m.toast(components.ToastKindStatus, favorites.ErrAuthRequired.Error()),
		)
	}
	if !m.favorites.Available() {
		return m.toast(components.ToastKindWarning, "Favoritos indisponíveis.")
	}
	if st.ResultYearID == "" {
		return m.toast(components.ToastKindWarning, "Este resultado não pode ser favoritado. Consulte-o novamente.")
	}
	fk := model.FavoriteFromResult(*st.Result, st.ResultYearID, st.ResultCategory).Key()
	if m.favorites.Pending(fk) {
		return nil
	}
	return toggleFavorite(m.favorites, *st.Result, st.ResultYearID, st.ResultCategory, m.sess)
}

func (m *Model) handleFavToggled(msg favToggledMsg) tea.Cmd {
	switch {
	case errors.Is(msg.err, favorites.ErrToggleInFlight):
		return nil
	case errors.Is(msg.err, favorites.ErrAuthRequired):
		m.screen = screenAccount
		return m.form.open(formLogin, "Faça login para salvar favoritos.")
	case msg.err != nil:
		return m.toast(components.ToastKindError, "Erro ao atualizar favoritos: "+msg.err.Error())
	case msg.present:
		m.favCursor = 0
		return m.toast(components.ToastKindSuccess, "Adicionado aos favoritos.")
	default:
		if m.favCursor > 0 && m.favCursor >= m.favorites.Len() {
			m.favCursor = m.favorites.Len() - 1
		}
		return m.toast(components.ToastKindStatus, "Removido dos favoritos.")
	}
}

func (m *Model) accountAction() tea.Cmd {
	if m.sessions == nil || !m.sessions.Available() {
		return m.toast(components.ToastKindWarning, session.ErrUnavailable.Error())
	}
	if m.sess != nil {
		s := m.sessions
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
			defer cancel()
			_ = s.SignOut(ctx)
			return nil
		}
	}
	m.screen = screenAccount
	return m.form.open(formLogin, "")
}

func (m *Model) handleAuthResult(msg authResultMsg) tea.Cmd {
	f := &m.form
	f.busy = false
	if msg.mode != f.mode {
		return nil
	}
	if msg.err != nil {
		f.err = msg.err.Error()
		return nil
	}

	switch msg.mode {
	case formSignUp:
		if msg.signUp.Session == nil {
			if f.caps.VerificationCode {
				return f.open(formVerify, "Cadastro realizado! Informe o código enviado para seu e-mail.")
			}
			return f.open(formLogin, "Cadastro realizado! Verifique seu e-mail para confirmar a conta e depois faça login.")
		}
		msg.sess = msg.signUp.Session
	case formReset:
		if f.caps.VerificationCode {
			cmd := f.open(formVerify, "Enviamos um código de recuperação para seu e-mail.")
			f.recovery = true
			return cmd
		}
		return f.open(formLogin, "Enviamos um link de recuperação para seu e-mail.")
	}

	m.screen = screenBrowse
	m.sess = msg.sess
	name := ""
	if msg.sess != nil {
		name = msg.sess.Name()
	}
	return tea.Batch(m.applyFocus(), m.toast(components.ToastKindSuccess, "Bem-vindo, "+name+"!"))
}

func (m *Model) handleSessionChanged(msg session.ChangedMsg) tea.Cmd {
	m.sess = msg.Session
	switch msg.Event {
	case session.EventSignedIn:
		if m.favorites.Available() {
			return loadFavorites(m.favorites, msg.Session)
		}
	case session.EventSignedOut:
		m.favorites.Clear()
		m.favCursor = 0
		return m.toast(components.ToastKindStatus, "Você saiu da sua conta.")
	}
	return nil
}

// applyConfig takes the live-reloadable settings from a changed config.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.location = cfg.Insight.Location
	if cfg.UI.Theme != m.theme.Mode {
		w, h := m.theme.Width, m.theme.Height
		*m.theme = *styles.NewTheme(cfg.UI.Theme)
		m.theme.SetSize(w, h)
		m.md = nil
		m.renderInsight()
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) copyField(name string, get func(model.PricedResult) string) tea.Cmd {
	st := m.flow.State()
	if st.Result == nil {
		return nil
	}
	if err := copyToClipboard(get(*st.Result)); err != nil {
		return m.toast(components.ToastKindError, "Não foi possível copiar: "+err.Error())
	}
	return m.toast(components.ToastKindSuccess, "Copiado: "+name)
}

// toast adds a toast and starts the expiry ticker when needed.
func (m *Model) toast(kind components.ToastKind, message string) tea.Cmd {
	m.toasts.Add(components.NewToast(kind, message))
	if m.ticking {
		return nil
	}
	m.ticking = true
	return components.ToastTickCmd()
}

func (m Model) favoritesForView() []model.Favorite {
	if m.sess == nil {
		return nil
	}
	return m.favorites.List()
}

func (m Model) historyForView() []model.HistoryEntry {
	if m.history == nil {
		return nil
	}
	return m.history.List()
}

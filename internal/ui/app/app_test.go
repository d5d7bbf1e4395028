// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fipepro/internal/backend"
	"github.com/jeranaias/fipepro/internal/config"
	"github.com/jeranaias/fipepro/internal/favorites"
	"github.com/jeranaias/fipepro/internal/flow"
	"github.com/jeranaias/fipepro/internal/history"
	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
	"github.com/jeranaias/fipepro/internal/session"
	"github.com/jeranaias/fipepro/internal/ui/components"
)

// =============================================================================
// FAKES
// =============================================================================

type fakePricing struct{}

func (fakePricing) ListBrands(ctx context.Context, cat model.Category) ([]model.Item, error) {
	return []model.Item{{Code: "21", Name: "Fiat"}, {Code: "23", Name: "Citroën"}}, nil
}

func (fakePricing) ListModels(ctx context.Context, cat model.Category, brand string) ([]model.Item, error) {
	return []model.Item{{Code: brand + "01", Name: "Modelo " + brand}}, nil
}

func (fakePricing) ListYears(ctx context.Context, cat model.Category, brand, modelCode string) ([]model.Item, error) {
	return []model.Item{{Code: "2020-1", Name: "2020 Gasolina"}}, nil
}

func (fakePricing) ListYearsByBrand(ctx context.Context, cat model.Category, brand string) ([]model.Item, error) {
	return []model.Item{{Code: "2020-1", Name: "2020 Gasolina"}}, nil
}

func (fakePricing) ListModelsByYear(ctx context.Context, cat model.Category, brand, year string) ([]model.Item, error) {
	return []model.Item{{Code: brand + "01", Name: "Modelo " + brand}}, nil
}

func (fakePricing) GetResult(ctx context.Context, cat model.Category, brand, modelCode, year string) (model.PricedResult, error) {
	return priced(modelCode), nil
}

func (fakePricing) GetResultByCode(ctx context.Context, cat model.Category, code, year string, reference *int) (model.PricedResult, error) {
	return priced(code), nil
}

func priced(code string) model.PricedResult {
	return model.PricedResult{
		Price:          "R$ 50.000,00",
		Brand:          "Fiat",
		Model:          "Argo " + code,
		ModelYear:      2020,
		Fuel:           "Gasolina",
		CodeFipe:       code,
		ReferenceMonth: "outubro de 2026",
		VehicleType:    1,
		FuelAcronym:    "G",
	}
}

// fakeAuth is a configured backend that rejects every call.
type fakeAuth struct{}

var errRejected = errors.New("rejected")

func (fakeAuth) IsConfigured() bool { return true }
func (fakeAuth) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*backend.SignUpResponse, error) {
	return nil, errRejected
}
func (fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*backend.TokenResponse, error) {
	return nil, errRejected
}
func (fakeAuth) Refresh(ctx context.Context, refreshToken string) (*backend.TokenResponse, error) {
	return nil, errRejected
}
func (fakeAuth) SignOut(ctx context.Context, accessToken string) error { return nil }
func (fakeAuth) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	return errRejected
}
func (fakeAuth) Verify(ctx context.Context, typ backend.VerifyType, email, code string) (*backend.TokenResponse, error) {
	return nil, errRejected
}

type fakeRemote struct {
	mu     sync.Mutex
	writes int
}

func (r *fakeRemote) List(ctx context.Context, accessToken string) ([]model.Favorite, error) {
	return nil, nil
}

func (r *fakeRemote) Insert(ctx context.Context, accessToken, userID string, fav model.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	return nil
}

func (r *fakeRemote) Delete(ctx context.Context, accessToken, userID string, key model.FavoriteKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type fixture struct {
	m       Model
	flow    *flow.Controller
	history *history.Store
	remote  *fakeRemote
}

func newFixture(t *testing.T, auth session.Auth) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Flow.DefaultCategory = ""
	cfg.UI.Theme = "dark"

	hist := history.Open(nil)
	ctrl := flow.New(fakePricing{}, hist, flow.Options{})
	remote := &fakeRemote{}
	mgr := session.NewManager(auth, session.Config{})

	m := New(Options{
		Config:    cfg,
		Flow:      ctrl,
		History:   hist,
		Favorites: favorites.New(remote, nil),
		Sessions:  mgr,
	})
	t.Cleanup(m.Close)
	f := &fixture{m: m, flow: ctrl, history: hist, remote: remote}
	f.send(tea.WindowSizeMsg{Width: 140, Height: 50})
	return f
}

func (f *fixture) send(msg tea.Msg) tea.Cmd {
	next, cmd := f.m.Update(msg)
	f.m = next.(Model)
	return cmd
}

func (f *fixture) run(req *flow.Request) {
	if req == nil {
		return
	}
	f.send(flowMsg{outcome: req.Run(context.Background())})
}

func (f *fixture) showResult(code string) {
	f.run(f.flow.LoadByCode(model.CategoryCar, code, "2020-1"))
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// TESTS
// =============================================================================

func TestSignedOutFavoriteOpensLogin(t *testing.T) {
	f := newFixture(t, fakeAuth{})
	f.showResult("001004-9")

	if f.m.focus != paneResult {
		t.Fatalf("focus = %v, want result pane", f.m.focus)
	}
	f.send(keyRunes("f"))

	if f.m.screen != screenAccount {
		t.Errorf("screen = %v, want account form", f.m.screen)
	}
	if f.m.form.mode != formLogin {
		t.Errorf("form mode = %v, want login", f.m.form.mode)
	}
	if f.m.favorites.Len() != 0 {
		t.Errorf("favorites changed while signed out: %d", f.m.favorites.Len())
	}
	if f.remote.writes != 0 {
		t.Errorf("remote writes = %d, want 0", f.remote.writes)
	}
}

func TestSignedOutFavoriteWithoutBackend(t *testing.T) {
	f := newFixture(t, nil)
	f.showResult("001004-9")
	f.send(keyRunes("f"))

	if f.m.screen != screenBrowse {
		t.Errorf("screen = %v, want browse", f.m.screen)
	}
	toasts := f.m.toasts.Toasts()
	if len(toasts) == 0 || toasts[0].Kind != components.ToastKindWarning {
		t.Fatalf("expected a warning toast, got %+v", toasts)
	}
	if f.m.favorites.Len() != 0 {
		t.Error("favorites should stay empty")
	}
}

func TestHistorySidebarWhileSignedOut(t *testing.T) {
	f := newFixture(t, nil)
	for _, code := range []string{"001", "002", "003"} {
		f.showResult(code)
	}

	if got := len(f.m.historyForView()); got != 3 {
		t.Fatalf("history entries = %d, want 3", got)
	}
	if f.m.favoritesForView() != nil {
		t.Error("favorites should be hidden while signed out")
	}

	view := f.m.View()
	if !strings.Contains(view, "Consultas recentes (3)") {
		t.Error("history panel should list three entries")
	}
	if !strings.Contains(view, "Faça login") {
		t.Error("favorites panel should ask the user to sign in")
	}
}

func TestCategorySelectionClearsLists(t *testing.T) {
	f := newFixture(t, nil)
	f.run(f.flow.SetCategory(model.CategoryCar))
	f.run(f.flow.ChooseBrand("21"))

	if f.m.brandList.Len() != 2 || f.m.modelList.Len() != 1 {
		t.Fatalf("lists not filled: brands=%d models=%d", f.m.brandList.Len(), f.m.modelList.Len())
	}

	f.send(components.SelectedMsg{List: listCategory, Option: components.Option{ID: "motorcycle"}})

	st := f.flow.State()
	if st.Category != model.CategoryMotorcycle || st.Brand != "" {
		t.Errorf("state not reset: %+v", st)
	}
	if f.m.brandList.Len() != 0 || f.m.modelList.Len() != 0 || f.m.yearList.Len() != 0 {
		t.Error("dependent lists should be empty after a category change")
	}
	if f.m.focus != paneBrand {
		t.Errorf("focus = %v, want brand", f.m.focus)
	}
}

func TestStaleOutcomeIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.run(f.flow.SetCategory(model.CategoryCar))

	first := f.flow.ChooseBrand("21")
	second := f.flow.ChooseBrand("23")
	firstOut := first.Run(context.Background())
	secondOut := second.Run(context.Background())

	f.send(flowMsg{outcome: secondOut})
	f.send(flowMsg{outcome: firstOut})

	models := f.flow.State().Models
	if len(models) != 1 || models[0].Code != "2301" {
		t.Errorf("models = %+v, want the list of brand 23", models)
	}
	if len(f.m.toasts.Toasts()) != 0 {
		t.Error("a stale outcome should not raise a toast")
	}
}

func TestMismatchedAsyncResultsDiscarded(t *testing.T) {
	f := newFixture(t, nil)
	f.m.insightCode = "001"
	f.m.insightLoading = true
	f.m.trendKey = trendKey("001", "2020-1")
	f.m.trendLoading = true

	f.send(insightMsg{code: "002", text: "outro veículo"})
	f.send(trendMsg{key: trendKey("002", "2020-1"), points: []model.TrendPoint{{Month: "x", Price: "y"}}})

	if f.m.insightText != "" || !f.m.insightLoading {
		t.Error("insight for another code should be discarded")
	}
	if f.m.trend != nil || !f.m.trendLoading {
		t.Error("trend for another code should be discarded")
	}

	f.send(insightMsg{code: "001", text: "bom negócio"})
	if f.m.insightText != "bom negócio" || f.m.insightLoading {
		t.Error("matching insight should be applied")
	}
}

func TestCopyCode(t *testing.T) {
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	defer func() { copyToClipboard = orig }()

	f := newFixture(t, nil)
	f.showResult("001004-9")
	f.send(keyRunes("c"))
	if copied != "001004-9" {
		t.Errorf("copied %q, want the FIPE code", copied)
	}

	f.send(keyRunes("p"))
	if copied != "R$ 50.000,00" {
		t.Errorf("copied %q, want the price", copied)
	}
}

func TestEscReturnsToLists(t *testing.T) {
	f := newFixture(t, nil)
	f.showResult("001")
	f.send(tea.KeyMsg{Type: tea.KeyEsc})

	if f.flow.State().Result != nil {
		t.Error("esc should clear the result")
	}
	if f.m.focus == paneResult {
		t.Error("esc should move focus back to the lists")
	}
}

func TestViewBeforeSize(t *testing.T) {
	cfg := config.Default()
	cfg.Flow.DefaultCategory = ""
	m := New(Options{Config: cfg, Flow: flow.New(fakePricing{}, nil, flow.Options{})})
	if got := m.View(); got != "Carregando..." {
		t.Errorf("View() = %q", got)
	}
}

func TestSessionEventsKeepLatest(t *testing.T) {
	ch := make(chan session.ChangedMsg, 2)
	logger := logging.OrDiscard(nil)
	user := &session.Session{}

	forwardSession(ch, session.ChangedMsg{Event: session.EventTokenRefreshed, Session: user}, logger)
	forwardSession(ch, session.ChangedMsg{Event: session.EventSignedIn, Session: user}, logger)
	forwardSession(ch, session.ChangedMsg{Event: session.EventSignedOut}, logger)

	if len(ch) != 2 {
		t.Fatalf("queued = %d, want 2", len(ch))
	}
	if got := (<-ch).Event; got != session.EventSignedIn {
		t.Errorf("first event = %v, want signed_in", got)
	}
	last := <-ch
	if last.Event != session.EventSignedOut || last.Session != nil {
		t.Errorf("last event = %v (session %v), want signed_out with no session", last.Event, last.Session)
	}
}

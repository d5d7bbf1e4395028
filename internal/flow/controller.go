// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"context"
	"log/slog"

	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
)

// Pricing is the part of the pricing client the flow calls.
type Pricing interface {
	ListBrands(ctx context.Context, cat model.Category) ([]model.Item, error)
	ListModels(ctx context.Context, cat model.Category, brand string) ([]model.Item, error)
	ListYears(ctx context.Context, cat model.Category, brand, modelCode string) ([]model.Item, error)
	ListYearsByBrand(ctx context.Context, cat model.Category, brand string) ([]model.Item, error)
	ListModelsByYear(ctx context.Context, cat model.Category, brand, year string) ([]model.Item, error)
	GetResult(ctx context.Context, cat model.Category, brand, modelCode, year string) (model.PricedResult, error)
	GetResultByCode(ctx context.Context, cat model.Category, code, year string, reference *int) (model.PricedResult, error)
}

// Recorder receives every displayed result.
type Recorder interface {
	Record(result model.PricedResult, yearID string, cat model.Category) (model.HistoryEntry, error)
}

// Options configures a Controller.
type Options struct {
	Order Order

	// KeepStale applies outcomes even when a newer transition has
	// happened since their request was issued.
	KeepStale bool

	Logger *slog.Logger
}

// Controller owns the selection State. It is not safe for concurrent use:
// transitions and Apply run on the UI goroutine, only Request.Run may run
// elsewhere.
type Controller struct {
	pricing   Pricing
	history   Recorder
	order     Order
	keepStale bool
	logger    *slog.Logger

	state State
}

// New returns a controller in the idle stage. history may be nil.
func New(pricing Pricing, history Recorder, opts Options) *Controller {
	return &Controller{
		pricing:   pricing,
		history:   history,
		order:     opts.Order,
		keepStale: opts.KeepStale,
		logger:    logging.OrDiscard(opts.Logger),
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State { return c.state }

// Stage returns the current stage.
func (c *Controller) Stage() Stage { return c.state.Stage(c.order) }

// Order returns the configured list order.
func (c *Controller) Order() Order { return c.order }

// Busy reports whether a fetch is outstanding.
func (c *Controller) Busy() bool { return c.state.Busy() }

// =============================================================================
// TRANSITIONS
// =============================================================================

// SetCategory clears every selection and the shown result, then fetches
// the brand list of cat.
func (c *Controller) SetCategory(cat model.Category) *Request {
	c.advancePath()
	c.state.Category = cat
	c.clearFrom(levelBrand)
	if !cat.Valid() {
		return nil
	}
	return c.request(kindBrands, func(ctx context.Context) (any, error) {
		return c.pricing.ListBrands(ctx, cat)
	})
}

// ChooseBrand clears everything below the brand and, unless code is
// empty, fetches the next list.
func (c *Controller) ChooseBrand(code string) *Request {
	c.advancePath()
	c.clearFrom(levelModel)
	c.state.Brand = code
	if code == "" || !c.state.Category.Valid() {
		return nil
	}

	cat := c.state.Category
	if c.order == OrderYearFirst {
		return c.request(kindYears, func(ctx context.Context) (any, error) {
			return c.pricing.ListYearsByBrand(ctx, cat, code)
		})
	}
	return c.request(kindModels, func(ctx context.Context) (any, error) {
		return c.pricing.ListModels(ctx, cat, code)
	})
}

// ChooseModel records the model. In model-first order it clears the year
// and fetches the year list; in year-first order it fetches the result.
func (c *Controller) ChooseModel(code string) *Request {
	c.advancePath()
	c.clearResult()
	c.state.Model = code
	if c.order == OrderModelFirst {
		c.state.Year = ""
		c.state.Years = nil
	}
	if code == "" || c.state.Brand == "" {
		return nil
	}

	cat, brand := c.state.Category, c.state.Brand
	if c.order == OrderYearFirst {
		year := c.state.Year
		if year == "" {
			return nil
		}
		return c.resultRequest(cat, year, func(ctx context.Context) (model.PricedResult, error) {
			return c.pricing.GetResult(ctx, cat, brand, code, year)
		})
	}
	return c.request(kindYears, func(ctx context.Context) (any, error) {
		return c.pricing.ListYears(ctx, cat, brand, code)
	})
}

// ChooseYear records the year. In model-first order it fetches the result;
// in year-first order it clears the model and fetches that year's models.
func (c *Controller) ChooseYear(code string) *Request {
	c.advancePath()
	c.clearResult()
	c.state.Year = code
	if c.order == OrderYearFirst {
		c.state.Model = ""
		c.state.Models = nil
	}
	if code == "" || c.state.Brand == "" {
		return nil
	}

	cat, brand := c.state.Category, c.state.Brand
	if c.order == OrderYearFirst {
		return c.request(kindModels, func(ctx context.Context) (any, error) {
			return c.pricing.ListModelsByYear(ctx, cat, brand, code)
		})
	}
	modelCode := c.state.Model
	if modelCode == "" {
		return nil
	}
	return c.resultRequest(cat, code, func(ctx context.Context) (model.PricedResult, error) {
		return c.pricing.GetResult(ctx, cat, brand, modelCode, code)
	})
}

// BackToSearch hides the result and keeps every selection and list.
func (c *Controller) BackToSearch() {
	c.advance()
	c.clearResult()
}

// LoadFavorite fetches a saved vehicle directly by its lookup code,
// bypassing the cascading lists.
func (c *Controller) LoadFavorite(fav model.Favorite) *Request {
	return c.LoadByCode(fav.Category, fav.FipeCode, fav.YearID)
}

// LoadByCode fetches the result for code and year in cat.
func (c *Controller) LoadByCode(cat model.Category, code, yearID string) *Request {
	c.advance()
	c.switchCategory(cat)
	if !cat.Valid() || code == "" || yearID == "" {
		return nil
	}
	return c.resultRequest(cat, yearID, func(ctx context.Context) (model.PricedResult, error) {
		return c.pricing.GetResultByCode(ctx, cat, code, yearID, nil)
	})
}

// RestoreHistory shows a stored result again without any network call.
func (c *Controller) RestoreHistory(entry model.HistoryEntry) Effect {
	c.advance()
	cat := entry.Category
	if !cat.Valid() {
		cat = entry.Result.Category()
	}
	c.switchCategory(cat)
	return c.display(entry.Result, entry.YearID, cat)
}

// =============================================================================
// STATE HELPERS
// =============================================================================

type level int

const (
	levelBrand level = iota
	levelModel
)

// advance supersedes any result request in flight. List requests keep
// their generation, so lists still loading for the unchanged selection
// path land normally.
func (c *Controller) advance() {
	c.state.seq++
	c.state.Err = nil
}

// advancePath changes the selection path, superseding list requests as
// well as result requests.
func (c *Controller) advancePath() {
	c.advance()
	c.state.pathSeq++
}

func (c *Controller) clearFrom(l level) {
	if l <= levelBrand {
		c.state.Brand = ""
		c.state.Brands = nil
	}
	c.state.Model = ""
	c.state.Models = nil
	c.state.Year = ""
	c.state.Years = nil
	c.clearResult()
}

func (c *Controller) clearResult() {
	c.state.Result = nil
	c.state.ResultYearID = ""
	c.state.ResultCategory = model.CategoryNone
}

// switchCategory moves to cat for a direct load. Lists from another
// category no longer apply and are dropped without refetching. Within the
// same category the lists and any fetch still filling them are kept.
func (c *Controller) switchCategory(cat model.Category) {
	if cat != c.state.Category {
		c.state.pathSeq++
		c.state.Category = cat
		c.clearFrom(levelBrand)
		return
	}
	c.clearResult()
}

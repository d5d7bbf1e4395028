// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"context"
	"fmt"

	"github.com/jeranaias/fipepro/internal/model"
)

type requestKind int

const (
	kindBrands requestKind = iota
	kindModels
	kindYears
	kindResult
)

func (k requestKind) String() string {
	switch k {
	case kindBrands:
		return "brands"
	case kindModels:
		return "models"
	case kindYears:
		return "years"
	case kindResult:
		return "result"
	default:
		return "unknown"
	}
}

// Request is a fetch issued by a transition. Run is safe to call from any
// goroutine; it does not touch controller state.
type Request struct {
	kind    requestKind
	seq     uint64
	pathSeq uint64
	yearID  string
	cat     model.Category
	fetch   func(ctx context.Context) (any, error)
}

// Seq is the selection sequence number the request belongs to.
func (r *Request) Seq() uint64 { return r.seq }

// Run performs the fetch.
func (r *Request) Run(ctx context.Context) Outcome {
	v, err := r.fetch(ctx)
	return Outcome{req: r, value: v, err: err}
}

// Outcome is a finished Request, ready for Apply.
type Outcome struct {
	req   *Request
	value any
	err   error
}

// Err is the fetch error, if any.
func (o Outcome) Err() error { return o.err }

// Effect tells the caller what Apply changed.
type Effect struct {
	// Stale is set when the outcome was discarded because a newer
	// transition happened after its request was issued.
	Stale bool

	// Err is the fetch failure, already recorded in State.Err.
	Err error

	// Displayed is set when a result became visible. ScrollTop asks the
	// view to return to the top.
	Displayed bool
	ScrollTop bool

	// History is the entry recorded for a displayed result.
	History *model.HistoryEntry
}

func (c *Controller) request(kind requestKind, fetch func(ctx context.Context) (any, error)) *Request {
	c.state.inflight++
	return &Request{kind: kind, seq: c.state.seq, pathSeq: c.state.pathSeq, fetch: fetch}
}

func (c *Controller) resultRequest(cat model.Category, yearID string, fetch func(ctx context.Context) (model.PricedResult, error)) *Request {
	r := c.request(kindResult, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	r.cat = cat
	r.yearID = yearID
	return r
}

// Apply folds an outcome into the state. The busy counter is released
// whatever the outcome.
func (c *Controller) Apply(o Outcome) (eff Effect) {
	if o.req == nil {
		return Effect{}
	}
	defer func() {
		if c.state.inflight > 0 {
			c.state.inflight--
		}
	}()

	if c.stale(o.req) && !c.keepStale {
		c.logger.Debug("discarding stale outcome", "kind", o.req.kind.String(),
			"seq", o.req.seq, "current", c.state.seq)
		return Effect{Stale: true}
	}

	if o.err != nil {
		c.logger.Warn("selection fetch failed", "kind", o.req.kind.String(), "error", o.err)
		c.state.Err = o.err
		return Effect{Err: o.err}
	}

	switch v := o.value.(type) {
	case []model.Item:
		switch o.req.kind {
		case kindBrands:
			c.state.Brands = v
		case kindModels:
			c.state.Models = v
		case kindYears:
			c.state.Years = v
		}
	case model.PricedResult:
		return c.display(v, o.req.yearID, o.req.cat)
	default:
		err := fmt.Errorf("flow: unexpected %s outcome %T", o.req.kind, o.value)
		c.state.Err = err
		return Effect{Err: err}
	}
	return Effect{}
}

// stale reports whether a newer transition superseded req. A list only
// goes stale when the selection path it belongs to changed; a result goes
// stale on any later transition.
func (c *Controller) stale(req *Request) bool {
	if req.kind == kindResult {
		return req.seq != c.state.seq
	}
	return req.pathSeq != c.state.pathSeq
}

// Do runs req and applies it on the calling goroutine. A nil req is a
// no-op.
func (c *Controller) Do(ctx context.Context, req *Request) Effect {
	if req == nil {
		return Effect{}
	}
	return c.Apply(req.Run(ctx))
}

// display stores result, records it in history and asks the view to
// scroll up.
func (c *Controller) display(result model.PricedResult, yearID string, cat model.Category) Effect {
	r := result
	c.state.Result = &r
	c.state.ResultYearID = yearID
	c.state.ResultCategory = cat
	if yearID != "" {
		c.state.Year = yearID
	}

	eff := Effect{Displayed: true, ScrollTop: true}
	if c.history != nil {
		entry, err := c.history.Record(result, yearID, cat)
		if err != nil {
			c.logger.Warn("failed to persist history", "error", err)
		}
		eff.History = &entry
	}
	return eff
}

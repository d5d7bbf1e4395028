// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package flow drives the cascading vehicle selection: category, brand,
// model and year, ending in a priced result.
//
// The Controller owns a single State value and changes it only through
// named transitions. A transition that needs the network returns a
// *Request; the caller runs it off the UI goroutine and hands the Outcome
// back to Apply on the UI goroutine. Every transition bumps a sequence
// number so an outcome that resolves after a newer selection can be
// recognized and discarded.
package flow

import (
	"fmt"
	"strings"

	"github.com/jeranaias/fipepro/internal/model"
)

// =============================================================================
// STAGES
// =============================================================================

// Stage is how far the selection has progressed.
type Stage int

const (
	StageIdle Stage = iota
	StageCategoryChosen
	StageBrandChosen
	StageModelChosen
	StageYearChosen
	StageResultShown
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCategoryChosen:
		return "category"
	case StageBrandChosen:
		return "brand"
	case StageModelChosen:
		return "model"
	case StageYearChosen:
		return "year"
	case StageResultShown:
		return "result"
	default:
		return "unknown"
	}
}

// Order is the sequence the model and year lists are offered in.
type Order int

const (
	// OrderModelFirst is brand, then model, then year.
	OrderModelFirst Order = iota

	// OrderYearFirst is brand, then year, then the models sold that year.
	OrderYearFirst
)

// ParseOrder accepts "model-first" and "year-first".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "model-first":
		return OrderModelFirst, nil
	case "year-first":
		return OrderYearFirst, nil
	}
	return OrderModelFirst, fmt.Errorf("unknown flow order %q", s)
}

func (o Order) String() string {
	if o == OrderYearFirst {
		return "year-first"
	}
	return "model-first"
}

// =============================================================================
// STATE
// =============================================================================

// State is everything the selection screen shows. Lists are replaced
// wholesale, never mutated, so a copy of State can be read freely.
type State struct {
	Category model.Category

	// Selected codes. Empty means nothing chosen.
	Brand string
	Model string
	Year  string

	Brands []model.Item
	Models []model.Item
	Years  []model.Item

	// Result is the displayed lookup, with the year id and category it
	// was obtained for.
	Result         *model.PricedResult
	ResultYearID   string
	ResultCategory model.Category

	// Err is the last failure that was not superseded.
	Err error

	inflight int
	seq      uint64 // bumped by every transition
	pathSeq  uint64 // bumped when the selection path changes
}

// Busy reports whether any fetch started by a transition is still
// outstanding.
func (s State) Busy() bool { return s.inflight > 0 }

// Seq is the current selection sequence number.
func (s State) Seq() uint64 { return s.seq }

// Stage derives the stage from the selections. A selection only counts
// when everything before it in order is also chosen.
func (s State) Stage(order Order) Stage {
	if s.Result != nil {
		return StageResultShown
	}
	if !s.Category.Valid() {
		return StageIdle
	}
	if s.Brand == "" {
		return StageCategoryChosen
	}

	first, second := s.Model, s.Year
	if order == OrderYearFirst {
		first, second = s.Year, s.Model
	}
	switch {
	case first == "":
		return StageBrandChosen
	case second == "":
		return StageModelChosen
	default:
		return StageYearChosen
	}
}

// BrandName returns the display name of the chosen brand.
func (s State) BrandName() string { return nameOf(s.Brands, s.Brand) }

// ModelName returns the display name of the chosen model.
func (s State) ModelName() string { return nameOf(s.Models, s.Model) }

// YearName returns the display label of the chosen year.
func (s State) YearName() string { return model.YearLabel(nameOf(s.Years, s.Year)) }

func nameOf(items []model.Item, code string) string {
	if code == "" {
		return ""
	}
	for _, it := range items {
		if it.Code == code {
			return it.Name
		}
	}
	return code
}

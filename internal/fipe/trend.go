// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fipe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/fipepro/internal/model"
)

// DefaultTrendPoints is how many recent reference periods the price trend
// covers.
const DefaultTrendPoints = 3

// PriceTrend fetches the same lookup code across the most recent reference
// periods in parallel. A period whose fetch fails is left out; the result is
// ordered like the reference list (newest first). Only a failure to list the
// reference periods is returned as an error.
func (c *Client) PriceTrend(ctx context.Context, cat model.Category, code, year string, points int) ([]model.TrendPoint, error) {
	if points <= 0 {
		points = DefaultTrendPoints
	}

	ctx, span := otel.Tracer("fipepro/fipe").Start(ctx, "fipe.PriceTrend")
	defer span.End()
	span.SetAttributes(
		attribute.String("fipe.code", code),
		attribute.String("fipe.year", year),
		attribute.Int("fipe.points", points),
	)

	refs, err := c.ListReferences(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(refs) > points {
		refs = refs[:points]
	}

	slots := make([]*model.TrendPoint, len(refs))
	var g errgroup.Group
	for i, ref := range refs {
		g.Go(func() error {
			refCode := ref.Code
			r, err := c.GetResultByCode(ctx, cat, code, year, &refCode)
			if err != nil {
				c.logger.Debug("trend point skipped", "reference", ref.Code, "error", err)
				return nil
			}
			month := ref.Month
			if month == "" {
				month = r.ReferenceMonth
			}
			slots[i] = &model.TrendPoint{Month: month, Price: r.Price}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.TrendPoint, 0, len(slots))
	for _, p := range slots {
		if p != nil {
			out = append(out, *p)
		}
	}
	span.SetAttributes(attribute.Int("fipe.points_found", len(out)))
	return out, nil
}

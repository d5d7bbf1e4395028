// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// =============================================================================
// ROW OPERATIONS
// =============================================================================

// Filter is a PostgREST equality filter on one column.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Query shapes a Select.
type Query struct {
	Columns string
	Filters []Filter

	// Order is a PostgREST order clause such as "created_at.desc".
	Order string
	Limit int
}

func (q Query) values() url.Values {
	v := url.Values{}
	cols := q.Columns
	if cols == "" {
		cols = "*"
	}
	v.Set("select", cols)
	for _, f := range q.Filters {
		v.Add(f.Column, "eq."+f.Value)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Select reads rows of table visible to accessToken into out (a pointer to
// a slice).
func (c *Client) Select(ctx context.Context, accessToken, table string, q Query, out any) error {
	return c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/" + url.PathEscape(table),
		query:  q.values(),
		token:  accessToken,
	}, out)
}

// Insert adds row to table. When out is non-nil the inserted rows are
// returned into it.
func (c *Client) Insert(ctx context.Context, accessToken, table string, row any, out any) error {
	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/" + url.PathEscape(table),
		body:   row,
		token:  accessToken,
		header: map[string]string{"Prefer": prefer},
	}, out)
}

// Delete removes the rows of table matching every filter. At least one
// filter is required so a bug can never wipe the whole table.
func (c *Client) Delete(ctx context.Context, accessToken, table string, filters ...Filter) error {
	if len(filters) == 0 {
		return &APIError{Status: http.StatusBadRequest, Message: "delete requires at least one filter"}
	}
	q := url.Values{}
	for _, f := range filters {
		q.Add(f.Column, "eq."+f.Value)
	}
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/" + url.PathEscape(table),
		query:  q,
		token:  accessToken,
		header: map[string]string{"Prefer": "return=minimal"},
	}, nil)
}

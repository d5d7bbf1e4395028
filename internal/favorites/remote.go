// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package favorites

import (
	"context"
	"time"

	"github.com/jeranaias/fipepro/internal/backend"
	"github.com/jeranaias/fipepro/internal/model"
)

// Remote is the row collection favorites live in. Every call is scoped by
// the access token; the backend only ever exposes the caller's own rows.
type Remote interface {
	List(ctx context.Context, accessToken string) ([]model.Favorite, error)
	Insert(ctx context.Context, accessToken, userID string, fav model.Favorite) error
	Delete(ctx context.Context, accessToken, userID string, key model.FavoriteKey) error
}

// row is the favorites table layout.
type row struct {
	UserID         string     `json:"user_id,omitempty"`
	FipeCode       string     `json:"fipe_code"`
	YearID         string     `json:"year_id"`
	VehicleType    string     `json:"vehicle_type"`
	BrandName      string     `json:"brand_name"`
	ModelName      string     `json:"model_name"`
	SavedPrice     *string    `json:"saved_price"`
	SavedReference *string    `json:"saved_reference"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

func (r row) favorite() model.Favorite {
	cat, _ := model.ParseCategory(r.VehicleType)
	f := model.Favorite{
		FipeCode:       r.FipeCode,
		YearID:         r.YearID,
		Category:       cat,
		BrandName:      r.BrandName,
		ModelName:      r.ModelName,
		SavedPrice:     orMissing(r.SavedPrice),
		SavedReference: orMissing(r.SavedReference),
	}
	if r.CreatedAt != nil {
		f.CreatedAt = *r.CreatedAt
	}
	return f
}

func orMissing(s *string) string {
	if s == nil || *s == "" {
		return model.MissingPrice
	}
	return *s
}

// Rows stores favorites in a backend table.
type Rows struct {
	client *backend.Client
	table  string
}

// NewRows returns a Remote over table (the default table when empty).
func NewRows(client *backend.Client, table string) *Rows {
	if table == "" {
		table = "favorites"
	}
	return &Rows{client: client, table: table}
}

// List returns the caller's favorites, newest first.
func (r *Rows) List(ctx context.Context, accessToken string) ([]model.Favorite, error) {
	var rows []row
	err := r.client.Select(ctx, accessToken, r.table, backend.Query{
		Order: "created_at.desc",
	}, &rows)
	if err != nil {
		return nil, err
	}

	favs := make([]model.Favorite, 0, len(rows))
	for _, rw := range rows {
		favs = append(favs, rw.favorite())
	}
	return favs, nil
}

// Insert adds fav for userID.
func (r *Rows) Insert(ctx context.Context, accessToken, userID string, fav model.Favorite) error {
	price, ref := fav.SavedPrice, fav.SavedReference
	return r.client.Insert(ctx, accessToken, r.table, row{
		UserID:         userID,
		FipeCode:       fav.FipeCode,
		YearID:         fav.YearID,
		VehicleType:    fav.Category.PathSegment(),
		BrandName:      fav.BrandName,
		ModelName:      fav.ModelName,
		SavedPrice:     &price,
		SavedReference: &ref,
	}, nil)
}

// Delete removes the row for key, additionally filtered by owner.
func (r *Rows) Delete(ctx context.Context, accessToken, userID string, key model.FavoriteKey) error {
	return r.client.Delete(ctx, accessToken, r.table,
		backend.Eq("fipe_code", key.FipeCode),
		backend.Eq("year_id", key.YearID),
		backend.Eq("user_id", userID),
	)
}

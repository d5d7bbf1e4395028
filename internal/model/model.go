// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CATEGORY
// =============================================================================

// Category is the top-level vehicle classification.
type Category int

const (
	// CategoryNone means no category has been chosen yet.
	CategoryNone Category = iota
	CategoryCar
	CategoryMotorcycle
	CategoryTruck
)

// Categories lists the selectable categories in display order.
var Categories = []Category{CategoryCar, CategoryMotorcycle, CategoryTruck}

// PathSegment returns the provider path segment for the category.
func (c Category) PathSegment() string {
	switch c {
	case CategoryCar:
		return "cars"
	case CategoryMotorcycle:
		return "motorcycles"
	case CategoryTruck:
		return "trucks"
	default:
		return ""
	}
}

// String returns the short name used in config files and on the CLI.
func (c Category) String() string {
	switch c {
	case CategoryCar:
		return "car"
	case CategoryMotorcycle:
		return "motorcycle"
	case CategoryTruck:
		return "truck"
	default:
		return "none"
	}
}

// Label returns the Portuguese display label.
func (c Category) Label() string {
	switch c {
	case CategoryCar:
		return "Carros"
	case CategoryMotorcycle:
		return "Motos"
	case CategoryTruck:
		return "Caminhões"
	default:
		return "-"
	}
}

// Valid reports whether c is one of the three real categories.
func (c Category) Valid() bool {
	return c >= CategoryCar && c <= CategoryTruck
}

// ParseCategory accepts the short name, the provider path segment, or the
// provider's numeric vehicle type (1 car, 2 motorcycle, 3 truck).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "car", "cars", "carro", "carros", "1":
		return CategoryCar, nil
	case "motorcycle", "motorcycles", "moto", "motos", "2":
		return CategoryMotorcycle, nil
	case "truck", "trucks", "caminhao", "caminhoes", "caminhão", "caminhões", "3":
		return CategoryTruck, nil
	}
	return CategoryNone, fmt.Errorf("unknown vehicle category %q (want car, motorcycle or truck)", s)
}

// CategoryFromVehicleType maps the provider's numeric vehicle type tag.
func CategoryFromVehicleType(v int) Category {
	c := Category(v)
	if !c.Valid() {
		return CategoryNone
	}
	return c
}

// VehicleType returns the provider's numeric tag for the category.
func (c Category) VehicleType() int {
	if !c.Valid() {
		return 0
	}
	return int(c)
}

// MarshalText encodes the category by its short name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts anything ParseCategory does, plus "none".
func (c *Category) UnmarshalText(b []byte) error {
	if s := string(b); s == "" || s == "none" {
		*c = CategoryNone
		return nil
	}
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// SELECTABLE ITEMS
// =============================================================================

// Item is a brand, model or year option returned by the pricing provider.
type Item struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ZeroKMYear is the model-year sentinel for new, zero-kilometer vehicles.
const ZeroKMYear = 32000

// ZeroKMLabel replaces the sentinel wherever a year is shown.
const ZeroKMLabel = "0 km (ano modelo atual)"

// YearLabel renders a year option name, substituting the zero-kilometer
// wording when the provider's raw name carries the sentinel. "32000 Gasolina"
// becomes "0 km (ano modelo atual) Gasolina".
func YearLabel(name string) string {
	sentinel := strconv.Itoa(ZeroKMYear)
	if name == sentinel || strings.HasPrefix(name, sentinel+" ") {
		return ZeroKMLabel + strings.TrimPrefix(name, sentinel)
	}
	return name
}

// =============================================================================
// PRICED RESULT
// =============================================================================

// PricedResult is the outcome of a price lookup. Field names follow the
// provider's JSON so a result can be stored and reloaded verbatim.
type PricedResult struct {
	Price          string `json:"price"`
	Brand          string `json:"brand"`
	Model          string `json:"model"`
	ModelYear      int    `json:"modelYear"`
	Fuel           string `json:"fuel"`
	CodeFipe       string `json:"codeFipe"`
	ReferenceMonth string `json:"referenceMonth"`
	VehicleType    int    `json:"vehicleType"`
	FuelAcronym    string `json:"fuelAcronym"`
}

// IsZeroKM reports whether the result carries the zero-kilometer sentinel.
func (r PricedResult) IsZeroKM() bool {
	return r.ModelYear == ZeroKMYear
}

// YearLabel renders the model year for display.
func (r PricedResult) YearLabel() string {
	if r.IsZeroKM() {
		return ZeroKMLabel
	}
	return strconv.Itoa(r.ModelYear)
}

// Category returns the category encoded in the result's vehicle type.
func (r PricedResult) Category() Category {
	return CategoryFromVehicleType(r.VehicleType)
}

// Title is the "brand model" heading used by the result card and lists.
func (r PricedResult) Title() string {
	return strings.TrimSpace(r.Brand + " " + r.Model)
}

// Reference is a monthly pricing snapshot.
type Reference struct {
	Code  int    `json:"code"`
	Month string `json:"month"`
}

// UnmarshalJSON accepts the code as either a number or a numeric string.
func (r *Reference) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code  json.Number `json:"code"`
		Month string      `json:"month"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	code, err := strconv.Atoi(strings.Trim(raw.Code.String(), `"`))
	if err != nil {
		return fmt.Errorf("invalid reference code %q: %w", raw.Code, err)
	}
	r.Code = code
	r.Month = raw.Month
	return nil
}

// TrendPoint is one price observation of the same lookup code.
type TrendPoint struct {
	Month string `json:"month"`
	Price string `json:"price"`
}

// =============================================================================
// HISTORY
// =============================================================================

// HistoryEntry is one locally remembered result.
type HistoryEntry struct {
	ID        string       `json:"id"`
	Timestamp int64        `json:"timestamp"`
	Result    PricedResult `json:"data"`
	YearID    string       `json:"yearId,omitempty"`
	Category  Category     `json:"category,omitempty"`
}

// NewHistoryEntry builds an entry whose id combines the lookup code, the
// selected year id and the creation time in milliseconds.
func NewHistoryEntry(result PricedResult, yearID string, cat Category, now time.Time) HistoryEntry {
	ms := now.UnixMilli()
	if !cat.Valid() {
		cat = result.Category()
	}
	return HistoryEntry{
		ID:        fmt.Sprintf("%s-%s-%d", result.CodeFipe, yearID, ms),
		Timestamp: ms,
		Result:    result,
		YearID:    yearID,
		Category:  cat,
	}
}

// Time returns the creation time.
func (h HistoryEntry) Time() time.Time {
	return time.UnixMilli(h.Timestamp)
}

// SameVehicle reports whether two results describe the same lookup code and
// model year, the identity History uses for de-duplication.
func SameVehicle(a, b PricedResult) bool {
	return a.CodeFipe == b.CodeFipe && a.ModelYear == b.ModelYear
}

// =============================================================================
// FAVORITES
// =============================================================================

// MissingPrice is shown when a favorite row has no saved price.
const MissingPrice = "---"

// Favorite is a saved (lookup code, year id) pair with a snapshot of the
// result as it looked when saved.
type Favorite struct {
	FipeCode       string    `json:"fipeCode"`
	YearID         string    `json:"yearId"`
	Category       Category  `json:"vehicleType"`
	BrandName      string    `json:"brandName"`
	ModelName      string    `json:"modelName"`
	SavedPrice     string    `json:"savedPrice"`
	SavedReference string    `json:"savedReference"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// FavoriteKey identifies a favorite within one user's list.
type FavoriteKey struct {
	FipeCode string
	YearID   string
}

// Key returns the identity of the favorite.
func (f Favorite) Key() FavoriteKey {
	return FavoriteKey{FipeCode: f.FipeCode, YearID: f.YearID}
}

// String renders the key as "code/year".
func (k FavoriteKey) String() string {
	return k.FipeCode + "/" + k.YearID
}

// FavoriteFromResult snapshots a displayed result.
func FavoriteFromResult(r PricedResult, yearID string, cat Category) Favorite {
	price := r.Price
	if price == "" {
		price = MissingPrice
	}
	return Favorite{
		FipeCode:       r.CodeFipe,
		YearID:         yearID,
		Category:       cat,
		BrandName:      r.Brand,
		ModelName:      r.Model,
		SavedPrice:     price,
		SavedReference: r.ReferenceMonth,
	}
}

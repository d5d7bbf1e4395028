// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain types shared by every layer: vehicle
// categories, selectable items, priced results, reference months, history
// entries and favorites.
//
// # Key Types
//
//   - Category: car, motorcycle or truck, with provider path and numeric tag
//   - Item: a brand, model or year option (code plus display name)
//   - PricedResult: the provider's price payload, stored verbatim
//   - HistoryEntry: a locally remembered result
//   - Favorite: a saved vehicle keyed by category, code and year
//
// # Usage
//
//	cat, err := model.ParseCategory("motos")
//	label := model.YearLabel("32000 Gasolina") // "0 km (ano modelo atual) Gasolina"
package model

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fipe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/fipepro/internal/model"
)

// newTestClient returns a client pointed at a test server running handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestListBrands(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cars/brands", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, []model.Item{{Code: "21", Name: "Fiat"}, {Code: "59", Name: "VW - VolksWagen"}})
	})

	brands, err := c.ListBrands(context.Background(), model.CategoryCar)
	require.NoError(t, err)
	assert.Equal(t, []model.Item{{Code: "21", Name: "Fiat"}, {Code: "59", Name: "VW - VolksWagen"}}, brands)
}

func TestLookupPaths(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}
		mu.Lock()
		got = append(got, path)
		mu.Unlock()
		if strings.Contains(r.URL.Path, "/years/") && !strings.HasSuffix(r.URL.Path, "/models") {
			writeJSON(w, model.PricedResult{CodeFipe: "005340-6", ModelYear: 2015})
			return
		}
		writeJSON(w, []model.Item{})
	})
	ctx := context.Background()
	ref := 320

	_, err := c.ListModels(ctx, model.CategoryMotorcycle, "80")
	require.NoError(t, err)
	_, err = c.ListYears(ctx, model.CategoryTruck, "102", "5986")
	require.NoError(t, err)
	_, err = c.ListYearsByBrand(ctx, model.CategoryCar, "21")
	require.NoError(t, err)
	_, err = c.ListModelsByYear(ctx, model.CategoryCar, "21", "2015-1")
	require.NoError(t, err)
	_, err = c.GetResult(ctx, model.CategoryCar, "21", "5928", "2015-1")
	require.NoError(t, err)
	_, err = c.GetResultByCode(ctx, model.CategoryCar, "005340-6", "2015-1", nil)
	require.NoError(t, err)
	_, err = c.GetResultByCode(ctx, model.CategoryCar, "005340-6", "2015-1", &ref)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/motorcycles/brands/80/models",
		"/trucks/brands/102/models/5986/years",
		"/cars/brands/21/years",
		"/cars/brands/21/years/2015-1/models",
		"/cars/brands/21/models/5928/years/2015-1",
		"/cars/models/005340-6/years/2015-1",
		"/cars/models/005340-6/years/2015-1?reference=320",
	}, got)
}

func TestGetResult_DecodesPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vehicleType":1,"price":"R$ 48.123,00","brand":"Fiat","model":"Argo 1.0","modelYear":2015,"fuel":"Gasolina","codeFipe":"001004-9","referenceMonth":"outubro de 2026","fuelAcronym":"G"}`))
	})

	r, err := c.GetResult(context.Background(), model.CategoryCar, "21", "5928", "2015-1")
	require.NoError(t, err)
	assert.Equal(t, 2015, r.ModelYear)
	assert.Equal(t, "R$ 48.123,00", r.Price)
	assert.Equal(t, "001004-9", r.CodeFipe)
}

func TestNonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"upstream exploded"}`))
	})

	_, err := c.ListBrands(context.Background(), model.CategoryCar)
	require.Error(t, err)

	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrTypeStatus, re.Type)
	assert.Equal(t, http.StatusInternalServerError, re.Status)
	assert.Equal(t, "upstream exploded", re.Message)
	assert.True(t, IsRetrieval(err))
	assert.False(t, IsNotFound(err))
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.GetResultByCode(context.Background(), model.CategoryCar, "999999-9", "2015-1", nil)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMalformedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := c.ListBrands(context.Background(), model.CategoryCar)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestInvalidArguments(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	ctx := context.Background()

	_, err := c.ListBrands(ctx, model.CategoryNone)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.ListModels(ctx, model.CategoryCar, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.GetResult(ctx, model.CategoryCar, "21", "5928", " ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, atomic.LoadInt32(&calls), "invalid arguments never reach the provider")
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url})
	_, err := c.ListReferences(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
}

func TestSubscriptionToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Subscription-Token"))
		writeJSON(w, []model.Reference{{Code: 320, Month: "outubro de 2026"}})
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL + "/", Token: "tok"})
	refs, err := c.ListReferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Reference{{Code: 320, Month: "outubro de 2026"}}, refs)
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestPriceTrend_DropsFailedPoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/references" {
			writeJSON(w, []model.Reference{
				{Code: 320, Month: "outubro de 2026"},
				{Code: 319, Month: "setembro de 2026"},
				{Code: 318, Month: "agosto de 2026"},
				{Code: 317, Month: "julho de 2026"},
			})
			return
		}
		switch r.URL.Query().Get("reference") {
		case "320":
			writeJSON(w, model.PricedResult{Price: "R$ 50.000,00"})
		case "319":
			w.WriteHeader(http.StatusBadGateway)
		case "318":
			writeJSON(w, model.PricedResult{Price: "R$ 51.000,00"})
		default:
			t.Errorf("unexpected reference %q", r.URL.Query().Get("reference"))
		}
	})

	points, err := c.PriceTrend(context.Background(), model.CategoryCar, "001004-9", "2015-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []model.TrendPoint{
		{Month: "outubro de 2026", Price: "R$ 50.000,00"},
		{Month: "agosto de 2026", Price: "R$ 51.000,00"},
	}, points)
}

func TestPriceTrend_ReferencesFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.PriceTrend(context.Background(), model.CategoryCar, "001004-9", "2015-1", 0)
	assert.True(t, IsRetrieval(err))
}

func TestRetrievalErrorMessage(t *testing.T) {
	err := &RetrievalError{Type: ErrTypeStatus, Path: "/cars/brands", Status: 502, Message: "Bad Gateway"}
	assert.Equal(t, "pricing retrieval failed for /cars/brands (HTTP 502): Bad Gateway", err.Error())
	assert.Equal(t, "status", err.Type.String())
}

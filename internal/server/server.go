// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the pricing lookups as a small read-only JSON API
// for browsers on the same machine.
//
// Endpoints:
//   - GET /health
//   - GET /api/v1/references
//   - GET /api/v1/:category/brands
//   - GET /api/v1/:category/brands/:brand/models
//   - GET /api/v1/:category/brands/:brand/models/:model/years
//   - GET /api/v1/:category/brands/:brand/models/:model/years/:year
//   - GET /api/v1/:category/codes/:code/years/:year[?reference=N]
//   - GET /api/v1/:category/codes/:code/years/:year/trend
//   - GET /api/v1/history
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jeranaias/fipepro/internal/fipe"
	"github.com/jeranaias/fipepro/internal/logging"
	"github.com/jeranaias/fipepro/internal/model"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is loopback only.
	DefaultAddr = "127.0.0.1:8787"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 5 * time.Second

	// Version is reported by /health.
	Version = "1.0.0"
)

// ============================================================================
// DEPENDENCIES
// ============================================================================

// Pricing is the part of the pricing client the API serves.
type Pricing interface {
	ListBrands(ctx context.Context, cat model.Category) ([]model.Item, error)
	ListModels(ctx context.Context, cat model.Category, brand string) ([]model.Item, error)
	ListYears(ctx context.Context, cat model.Category, brand, modelCode string) ([]model.Item, error)
	GetResult(ctx context.Context, cat model.Category, brand, modelCode, year string) (model.PricedResult, error)
	GetResultByCode(ctx context.Context, cat model.Category, code, year string, reference *int) (model.PricedResult, error)
	ListReferences(ctx context.Context) ([]model.Reference, error)
	PriceTrend(ctx context.Context, cat model.Category, code, year string, points int) ([]model.TrendPoint, error)
}

// History receives results served by the API and lists them back.
type History interface {
	Record(result model.PricedResult, yearID string, cat model.Category) (model.HistoryEntry, error)
	List() []model.HistoryEntry
}

// Config configures the server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	RatePerSecond  float64
	RateBurst      int
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the local JSON API.
type Server struct {
	cfg     Config
	pricing Pricing
	history History
	logger  *slog.Logger
	started time.Time

	engine  *gin.Engine
	handler http.Handler
}

// New builds the server and its routes. history may be nil.
func New(cfg Config, pricing Pricing, history History, logger *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		pricing: pricing,
		history: history,
		logger:  logging.OrDiscard(logger).With("component", "server"),
		started: time.Now(),
	}

	engine := gin.New()
	_ = engine.SetTrustedProxies(nil)
	engine.Use(
		recovery(s.logger),
		requestLogger(s.logger),
		corsMiddleware(cfg.AllowedOrigins),
		NewRateLimiter(cfg.RatePerSecond, cfg.RateBurst).Middleware(),
	)
	s.engine = engine
	s.setupRoutes()
	s.handler = otelhttp.NewHandler(engine, "fipepro.api")
	return s
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/references", s.handleReferences)
		v1.GET("/history", s.handleHistory)

		cat := v1.Group("/:category", s.requireCategory)
		cat.GET("/brands", s.handleBrands)
		cat.GET("/brands/:brand/models", s.handleModels)
		cat.GET("/brands/:brand/models/:model/years", s.handleYears)
		cat.GET("/brands/:brand/models/:model/years/:year", s.handleResult)
		cat.GET("/codes/:code/years/:year", s.handleResultByCode)
		cat.GET("/codes/:code/years/:year/trend", s.handleTrend)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("api stopped")
	return nil
}

// ============================================================================
// HANDLERS
// ============================================================================

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Time:    time.Now().Format(time.RFC3339),
	})
}

const categoryKey = "fipepro.category"

// requireCategory parses :category or aborts with 400.
func (s *Server) requireCategory(c *gin.Context) {
	cat, err := model.ParseCategory(c.Param("category"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Set(categoryKey, cat)
	c.Next()
}

func category(c *gin.Context) model.Category {
	v, _ := c.Get(categoryKey)
	cat, _ := v.(model.Category)
	return cat
}

func (s *Server) handleReferences(c *gin.Context) {
	refs, err := s.pricing.ListReferences(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, refs)
}

func (s *Server) handleBrands(c *gin.Context) {
	items, err := s.pricing.ListBrands(c.Request.Context(), category(c))
	s.writeItems(c, items, err)
}

func (s *Server) handleModels(c *gin.Context) {
	items, err := s.pricing.ListModels(c.Request.Context(), category(c), c.Param("brand"))
	s.writeItems(c, items, err)
}

func (s *Server) handleYears(c *gin.Context) {
	items, err := s.pricing.ListYears(c.Request.Context(), category(c), c.Param("brand"), c.Param("model"))
	s.writeItems(c, items, err)
}

func (s *Server) handleResult(c *gin.Context) {
	cat, year := category(c), c.Param("year")
	result, err := s.pricing.GetResult(c.Request.Context(), cat, c.Param("brand"), c.Param("model"), year)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.record(result, year, cat)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleResultByCode(c *gin.Context) {
	var ref *int
	if raw := c.Query("reference"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference must be a positive integer"})
			return
		}
		ref = &n
	}

	result, err := s.pricing.GetResultByCode(c.Request.Context(), category(c), c.Param("code"), c.Param("year"), ref)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTrend(c *gin.Context) {
	points, err := s.pricing.PriceTrend(c.Request.Context(), category(c), c.Param("code"), c.Param("year"), fipe.DefaultTrendPoints)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if points == nil {
		points = []model.TrendPoint{}
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) handleHistory(c *gin.Context) {
	entries := []model.HistoryEntry{}
	if s.history != nil {
		entries = append(entries, s.history.List()...)
	}
	c.JSON(http.StatusOK, entries)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) record(result model.PricedResult, yearID string, cat model.Category) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Record(result, yearID, cat); err != nil {
		s.logger.Warn("failed to persist history", "error", err)
	}
}

func (s *Server) writeItems(c *gin.Context, items []model.Item, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	c.JSON(http.StatusOK, items)
}

// writeError maps client errors to status codes. Provider details are
// logged, not returned.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, fipe.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, fipe.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "pricing provider timed out"
	case fipe.IsRetrieval(err):
		status, msg = http.StatusBadGateway, "pricing provider error"
	}
	s.logger.Warn("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	c.JSON(status, gin.H{"error": msg})
}

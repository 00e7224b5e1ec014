// Package api provides the HTTP API serving normalized AEMET OpenData.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aemetdash/aemetdash/internal/api/handler"
	"github.com/aemetdash/aemetdash/internal/api/middleware"
	"github.com/aemetdash/aemetdash/internal/api/response"
	"github.com/aemetdash/aemetdash/internal/dashboard"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Service   *dashboard.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)

	// Unknown paths get the same problem+json shape as handler errors
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for path")
	})

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)
	stationHandler := handler.NewStationHandler(cfg.Service)
	observationHandler := handler.NewObservationHandler(cfg.Service)
	climatologyHandler := handler.NewClimatologyHandler(cfg.Service)
	warningHandler := handler.NewWarningHandler(cfg.Service)

	// Rate limit middleware per endpoint cost. Historical ranges and warning
	// bundles fan out into many upstream requests.
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 10 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		r.With(standardRateLimit).Get("/stations", stationHandler.ListStations)
		r.With(standardRateLimit).Get("/observations/current", observationHandler.ListCurrent)

		r.Route("/stations/{stationId}", func(r chi.Router) {
			r.With(expensiveRateLimit).Get("/observations", observationHandler.History)
			r.With(standardRateLimit).Get("/normals", climatologyHandler.Normals)
			r.With(standardRateLimit).Get("/extremes", climatologyHandler.Extremes)
		})

		r.With(expensiveRateLimit).Get("/warnings/{area}", warningHandler.ListWarnings)
	})

	return r
}

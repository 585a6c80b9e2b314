// Package api provides the HTTP API for PedalWatt.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pedalwatt/pedalwatt/internal/analyzer"
	"github.com/pedalwatt/pedalwatt/internal/api/handler"
	"github.com/pedalwatt/pedalwatt/internal/api/middleware"
	"github.com/pedalwatt/pedalwatt/internal/auth"
	"github.com/pedalwatt/pedalwatt/internal/estimate"
	"github.com/pedalwatt/pedalwatt/internal/provider/resilience"
	"github.com/pedalwatt/pedalwatt/internal/rider"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version      string
	BuildTime    string
	Logger       zerolog.Logger
	ServiceName  string
	Metrics      *middleware.Metrics
	JWTService   *auth.JWTService
	Analyzer     *analyzer.Service
	RiderService *rider.Service
	Cache        *estimate.Cache
	Store        estimate.Store
	Pool         *pgxpool.Pool
	Registry     *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "pedalwatt-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Pool:      cfg.Pool,
		Cache:     cfg.Cache,
		Registry:  cfg.Registry,
	})
	analysisHandler := handler.NewAnalysisHandler(handler.AnalysisHandlerConfig{
		Analyzer: cfg.Analyzer,
		Riders:   cfg.RiderService,
		Cache:    cfg.Cache,
		Store:    cfg.Store,
		Logger:   cfg.Logger,
	})
	profileHandler := handler.NewProfileHandler(cfg.RiderService)

	// Mutating endpoints require auth only when a JWT service is configured.
	// Local and single-tenant deployments run without one.
	requireAuth := func(r chi.Router) chi.Router {
		if cfg.JWTService == nil {
			return r
		}
		return r.With(middleware.Auth(cfg.JWTService))
	}

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Analysis endpoints - expensive compute, strict rate limiting
		r.With(expensiveRateLimit).Post("/analysis", analysisHandler.Analyze)
		requireAuth(r.With(standardRateLimit)).Delete("/analysis/cache", analysisHandler.ClearCache)

		// Rider profile endpoints - rider-scoped rate limiting
		r.Route("/profiles/{riderId}", func(r chi.Router) {
			r.Use(middleware.RateLimitByRider(middleware.StandardRateLimit))
			r.Get("/", profileHandler.GetProfile)
			requireAuth(r).Put("/", profileHandler.UpsertProfile)
			requireAuth(r).Delete("/", profileHandler.DeleteProfile)
		})
	})

	return r
}

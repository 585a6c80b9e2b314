// Package main provides the entrypoint for the PedalWatt API server.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedalwatt/pedalwatt/internal/activity"
	"github.com/pedalwatt/pedalwatt/internal/analyzer"
	"github.com/pedalwatt/pedalwatt/internal/api"
	"github.com/pedalwatt/pedalwatt/internal/api/middleware"
	"github.com/pedalwatt/pedalwatt/internal/auth"
	"github.com/pedalwatt/pedalwatt/internal/database"
	"github.com/pedalwatt/pedalwatt/internal/estimate"
	"github.com/pedalwatt/pedalwatt/internal/rider"
	"github.com/pedalwatt/pedalwatt/internal/telemetry"
	"github.com/pedalwatt/pedalwatt/internal/wind"
	"github.com/pedalwatt/pedalwatt/internal/wind/openmeteo"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pedalwatt-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting PedalWatt API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database. The estimation pipeline works without one, so a
	// failed connection degrades to in-memory persistence instead of exiting.
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, running without persistence")
		pool = nil
	} else {
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	}

	// Initialize the estimate cache and its backing store
	cache := estimate.NewCache()

	var store estimate.Store
	if pool != nil {
		store = estimate.NewPostgresStore(pool)
	} else {
		store = estimate.NewInMemoryStore()
	}

	if entries, loadErr := store.Load(ctx); loadErr != nil {
		log.Warn().Err(loadErr).Msg("failed to load persisted estimates, starting cold")
	} else if restored := cache.Restore(entries); restored > 0 {
		log.Info().Int("entries", restored).Msg("estimate cache restored")
	}

	// Initialize the wind resolver
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	windClient := openmeteo.NewClient(openmeteo.ClientConfig{
		Logger: log,
	})
	windResolver := wind.NewResolver(wind.ResolverConfig{
		Provider: windClient,
		Logger:   log,
		Metrics:  providerMetrics,
	})
	log.Info().Str("provider", windClient.Name()).Msg("wind resolver initialized")

	// Initialize the activity source. Rides come from a local fixture file
	// when configured; requests may also carry their own.
	activities := activity.NewInMemoryProvider()
	if path := os.Getenv("ACTIVITIES_FILE"); path != "" {
		n, loadErr := loadRides(activities, path)
		if loadErr != nil {
			log.Warn().Err(loadErr).Str("path", path).Msg("failed to load activities file")
		} else {
			log.Info().Int("rides", n).Str("path", path).Msg("activities loaded")
		}
	}

	// Initialize the analyzer
	analyzerService := analyzer.NewService(analyzer.ServiceConfig{
		Activities: activities,
		Wind:       windResolver,
		Cache:      cache,
		Store:      store,
		Logger:     log,
	})
	log.Info().Msg("analyzer initialized")

	// Initialize rider profiles
	var riderRepo rider.Repository
	if pool != nil {
		riderRepo = rider.NewPostgresRepository(pool)
	} else {
		riderRepo = rider.NewInMemoryRepository()
	}
	riderService := rider.NewService(riderRepo)
	log.Info().Msg("rider service initialized")

	// Initialize JWT service when a signing key is configured. Without one,
	// mutating endpoints are open (local and single-tenant deployments).
	var jwtService *auth.JWTService
	if signingKey := os.Getenv("JWT_SIGNING_KEY"); signingKey != "" {
		jwtService = auth.NewJWTService(auth.JWTConfig{
			SigningKey: signingKey,
			Issuer:     "https://api.pedalwatt.cc",
			Audience:   "pedalwatt-api",
		})
		log.Info().Msg("JWT auth enabled")
	} else {
		log.Warn().Msg("JWT_SIGNING_KEY not set, mutating endpoints are unauthenticated")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		ServiceName:  serviceName,
		Metrics:      metrics,
		JWTService:   jwtService,
		Analyzer:     analyzerService,
		RiderService: riderService,
		Cache:        cache,
		Store:        store,
		Pool:         pool,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Persist whatever the cache holds before exiting
	persistCtx, persistCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if saveErr := store.Save(persistCtx, cache.Snapshot()); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to persist estimate cache on shutdown")
	}
	persistCancel()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// loadRides seeds the provider from a JSON file holding an array of rides.
func loadRides(p *activity.InMemoryProvider, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var rides []activity.Ride
	if err := json.Unmarshal(data, &rides); err != nil {
		return 0, err
	}

	for _, r := range rides {
		p.Add(r)
	}
	return len(rides), nil
}

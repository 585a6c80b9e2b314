package handler

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker/v2"

	"github.com/pedalwatt/pedalwatt/internal/api/models"
	"github.com/pedalwatt/pedalwatt/internal/api/response"
	"github.com/pedalwatt/pedalwatt/internal/estimate"
	"github.com/pedalwatt/pedalwatt/internal/provider/resilience"
)

// OpsHandlerConfig holds dependencies for the ops handler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Pool      *pgxpool.Pool
	Cache     *estimate.Cache
	Registry  *resilience.Registry
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	pool      *pgxpool.Pool
	cache     *estimate.Cache
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	registry := cfg.Registry
	if registry == nil {
		registry = resilience.GlobalRegistry
	}
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		pool:      cfg.Pool,
		cache:     cfg.Cache,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// The estimation pipeline works without a database, so a missing pool
// does not make the service unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			status = models.HealthStatusDegraded
		}
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	overall := models.HealthStatusOK
	var degradationFlags []string

	subsystems := []models.SubsystemStatus{h.estimateCacheStatus()}

	if h.pool != nil {
		dbStatus := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		if err := h.pool.Ping(r.Context()); err != nil {
			detail := err.Error()
			dbStatus.Status = models.HealthStatusDegraded
			dbStatus.Detail = &detail
			overall = models.HealthStatusDegraded
			degradationFlags = append(degradationFlags, "persistence_unavailable")
		}
		subsystems = append(subsystems, dbStatus)
	}

	providers := make([]models.ProviderStatus, 0)
	for _, health := range h.registry.GetAllHealth() {
		p := models.ProviderStatus{
			Provider: health.Name,
			Status:   providerStatus(health.CircuitState),
		}
		if health.LastSuccessAt != nil {
			ts := models.Timestamp(*health.LastSuccessAt)
			p.LastSuccessAt = &ts
		}
		if health.LastFailureAt != nil {
			ts := models.Timestamp(*health.LastFailureAt)
			p.LastFailureAt = &ts
		}
		if health.LastError != "" {
			msg := health.LastError
			p.Message = &msg
		}
		if health.IsUnhealthy() {
			overall = models.HealthStatusDegraded
			degradationFlags = append(degradationFlags, health.Name+"_circuit_open")
		}
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].Provider < providers[j].Provider
	})

	status := models.SystemStatus{
		Status:                 overall,
		Time:                   now,
		Subsystems:             subsystems,
		Providers:              providers,
		ActiveDegradationFlags: degradationFlags,
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) estimateCacheStatus() models.SubsystemStatus {
	status := models.SubsystemStatus{Name: "estimate-cache", Status: models.HealthStatusOK}
	if h.cache != nil {
		detail := fmt.Sprintf("entries: %d", h.cache.Len())
		status.Detail = &detail
	}
	return status
}

func providerStatus(state gobreaker.State) models.HealthStatus {
	switch state {
	case gobreaker.StateOpen:
		return models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

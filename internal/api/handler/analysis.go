// Package handler provides HTTP handlers for the PedalWatt API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedalwatt/pedalwatt/internal/analyzer"
	"github.com/pedalwatt/pedalwatt/internal/api/models"
	"github.com/pedalwatt/pedalwatt/internal/api/response"
	"github.com/pedalwatt/pedalwatt/internal/estimate"
	"github.com/pedalwatt/pedalwatt/internal/physics"
	"github.com/pedalwatt/pedalwatt/internal/rider"
)

// AnalysisHandlerConfig holds dependencies for the analysis handler.
type AnalysisHandlerConfig struct {
	Analyzer *analyzer.Service
	Riders   *rider.Service
	Cache    *estimate.Cache
	Store    estimate.Store
	Logger   zerolog.Logger
}

// AnalysisHandler handles power analysis endpoints.
type AnalysisHandler struct {
	analyzer *analyzer.Service
	riders   *rider.Service
	cache    *estimate.Cache
	store    estimate.Store
	logger   zerolog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(cfg AnalysisHandlerConfig) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: cfg.Analyzer,
		riders:   cfg.Riders,
		cache:    cfg.Cache,
		store:    cfg.Store,
		logger:   cfg.Logger,
	}
}

// Analyze handles POST /v1/analysis - run power estimation over recent rides.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var input models.AnalysisRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			response.BadRequest(w, r, "invalid JSON body", nil)
			return
		}
	}

	params, fieldErrors, err := h.resolveParameters(r.Context(), &input)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid analysis parameters", fieldErrors)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load rider parameters")
		response.InternalError(w, r, "failed to load rider parameters")
		return
	}

	var result *analyzer.Result
	if len(input.Rides) > 0 {
		result, err = h.analyzer.AnalyzeRides(r.Context(), input.Rides, params, nil)
	} else {
		result, err = h.analyzer.Analyze(r.Context(), params, nil)
	}
	if err != nil {
		switch {
		case errors.Is(err, analyzer.ErrActivitiesUnavailable):
			response.ServiceUnavailable(w, r, "activity source unavailable")
		case errors.Is(err, analyzer.ErrCanceled):
			// Client went away; nothing useful to write.
		default:
			h.logger.Error().Err(err).Msg("analysis failed")
			response.InternalError(w, r, "analysis failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, models.AnalysisResponse{
		ModelVersion: estimate.ModelVersion,
		GeneratedAt:  models.Timestamp(time.Now()),
		Progress: models.AnalysisProgress{
			Current: result.Summary.RidesConsidered,
			Total:   result.Summary.RidesConsidered,
		},
		Result: result,
	})
}

// ClearCache handles DELETE /v1/analysis/cache - drop all cached estimates.
func (h *AnalysisHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()

	if h.store != nil {
		if err := h.store.Purge(r.Context()); err != nil {
			h.logger.Error().Err(err).Msg("failed to purge persisted estimates")
			response.InternalError(w, r, "failed to purge persisted estimates")
			return
		}
	}

	h.logger.Info().Msg("estimate cache cleared")
	response.NoContent(w, r)
}

// resolveParameters determines the effective parameters for a run: explicit
// request parameters win, then the rider's stored profile, then defaults.
func (h *AnalysisHandler) resolveParameters(ctx context.Context, input *models.AnalysisRequest) (estimate.Parameters, []models.FieldError, error) {
	if input.Parameters != nil {
		p := input.Parameters
		if fieldErrors := validateAnalysisParameters(p); len(fieldErrors) > 0 {
			return estimate.Parameters{}, fieldErrors, nil
		}

		params := estimate.Parameters{
			RiderMassKg: p.RiderMassKg,
			BikeMassKg:  p.BikeMassKg,
			Surface:     physics.Surface(p.Surface),
			WindEnabled: true,
		}
		if p.Surface == "" {
			params.Surface = physics.SurfaceAsphalt
		}
		if p.WindEnabled != nil {
			params.WindEnabled = *p.WindEnabled
		}
		return params, nil, nil
	}

	riderID := input.RiderID
	if riderID == "" {
		riderID = GetRiderID(ctx)
	}
	if riderID == "" || h.riders == nil {
		return estimate.DefaultParameters(), nil, nil
	}

	params, err := h.riders.ParametersFor(ctx, riderID)
	if err != nil {
		return estimate.Parameters{}, nil, err
	}
	return params, nil, nil
}

// validateAnalysisParameters checks request-supplied overrides.
func validateAnalysisParameters(p *models.AnalysisParameters) []models.FieldError {
	var errs []models.FieldError

	if p.RiderMassKg < rider.MinRiderMassKg || p.RiderMassKg > rider.MaxRiderMassKg {
		errs = append(errs, models.FieldError{
			Field:   "parameters.riderMassKg",
			Message: "must be between 30 and 200",
		})
	}

	if p.BikeMassKg < rider.MinBikeMassKg || p.BikeMassKg > rider.MaxBikeMassKg {
		errs = append(errs, models.FieldError{
			Field:   "parameters.bikeMassKg",
			Message: "must be between 3 and 30",
		})
	}

	if p.Surface != "" && !physics.Surface(p.Surface).Valid() {
		errs = append(errs, models.FieldError{
			Field:   "parameters.surface",
			Message: "must be one of asphalt, concrete, gravel, dirt, mountain",
		})
	}

	return errs
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pedalwatt/pedalwatt/internal/api/models"
	"github.com/pedalwatt/pedalwatt/internal/api/response"
	"github.com/pedalwatt/pedalwatt/internal/rider"
)

// ProfileHandler handles rider profile endpoints.
type ProfileHandler struct {
	riders *rider.Service
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(riders *rider.Service) *ProfileHandler {
	return &ProfileHandler{riders: riders}
}

// GetProfile handles GET /v1/profiles/{riderId}.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	riderID := chi.URLParam(r, "riderId")
	if riderID == "" {
		response.BadRequest(w, r, "riderId is required", nil)
		return
	}

	profile, err := h.riders.Get(r.Context(), riderID)
	if err != nil {
		if errors.Is(err, rider.ErrProfileNotFound) {
			response.NotFound(w, r, "rider profile not found")
			return
		}
		response.InternalError(w, r, "failed to load rider profile")
		return
	}

	response.JSON(w, r, http.StatusOK, toAPIProfile(profile))
}

// UpsertProfile handles PUT /v1/profiles/{riderId}.
func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	riderID := chi.URLParam(r, "riderId")
	if riderID == "" {
		response.BadRequest(w, r, "riderId is required", nil)
		return
	}

	var input models.ProfilePutRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	profile, err := h.riders.Put(r.Context(), riderID, &input)
	if err != nil {
		var validationErr *rider.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "invalid profile", validationErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to save rider profile")
		return
	}

	response.JSON(w, r, http.StatusOK, toAPIProfile(profile))
}

// DeleteProfile handles DELETE /v1/profiles/{riderId}.
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	riderID := chi.URLParam(r, "riderId")
	if riderID == "" {
		response.BadRequest(w, r, "riderId is required", nil)
		return
	}

	if err := h.riders.Delete(r.Context(), riderID); err != nil {
		if errors.Is(err, rider.ErrProfileNotFound) {
			response.NotFound(w, r, "rider profile not found")
			return
		}
		response.InternalError(w, r, "failed to delete rider profile")
		return
	}

	response.NoContent(w, r)
}

// toAPIProfile converts a domain Profile to an API RiderProfile.
func toAPIProfile(p *rider.Profile) models.RiderProfile {
	return models.RiderProfile{
		RiderID:     p.RiderID,
		RiderMassKg: p.Parameters.RiderMassKg,
		BikeMassKg:  p.Parameters.BikeMassKg,
		Surface:     string(p.Parameters.Surface),
		WindEnabled: p.Parameters.WindEnabled,
		HomeLat:     p.HomeLat,
		HomeLon:     p.HomeLon,
		CreatedAt:   models.Timestamp(p.CreatedAt),
		UpdatedAt:   models.Timestamp(p.UpdatedAt),
	}
}

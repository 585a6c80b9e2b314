package models

import (
	"github.com/pedalwatt/pedalwatt/internal/activity"
	"github.com/pedalwatt/pedalwatt/internal/analyzer"
)

// AnalysisParameters are request-supplied overrides for a single run. When
// omitted, the rider's stored profile (or the defaults) apply.
type AnalysisParameters struct {
	RiderMassKg float64 `json:"riderMassKg" validate:"required,gte=30,lte=200"`
	BikeMassKg  float64 `json:"bikeMassKg" validate:"required,gte=3,lte=30"`
	Surface     string  `json:"surface,omitempty"`
	WindEnabled *bool   `json:"windEnabled,omitempty"`
}

// AnalysisRequest starts a power analysis run.
type AnalysisRequest struct {
	// RiderID selects the stored profile. Optional.
	RiderID string `json:"riderId,omitempty"`

	// Parameters override the stored profile for this run. Optional.
	Parameters *AnalysisParameters `json:"parameters,omitempty"`

	// Rides are caller-supplied activities to analyze instead of the
	// configured activity source. Optional.
	Rides []activity.Ride `json:"rides,omitempty"`
}

// AnalysisProgress is the final progress position of a run. Over HTTP the
// run completes before the response is written, so current always equals
// total; incremental positions are reported through the engine callback.
type AnalysisProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// AnalysisResponse is the completed run.
type AnalysisResponse struct {
	ModelVersion string           `json:"modelVersion"`
	GeneratedAt  Timestamp        `json:"generatedAt"`
	Progress     AnalysisProgress `json:"progress"`
	Result       *analyzer.Result `json:"result"`
}

// Package analyzer orchestrates power estimation across a rider's recent
// activity history: filtering eligible rides, estimating each one with a
// bounded time budget, and aggregating the results.
package analyzer

import (
	"errors"

	"github.com/pedalwatt/pedalwatt/internal/estimate"
)

// Predefined errors for analysis operations.
var (
	// ErrActivitiesUnavailable is returned when the ride list cannot be fetched.
	ErrActivitiesUnavailable = errors.New("activity source unavailable")

	// ErrCanceled is returned when the caller canceled the analysis.
	ErrCanceled = errors.New("analysis canceled")
)

// Phase identifies where a run currently is, for progress reporting.
type Phase string

// Analysis phases, in order.
const (
	PhaseFetching    Phase = "fetching"
	PhaseEstimating  Phase = "estimating"
	PhaseAggregating Phase = "aggregating"
)

// Progress is delivered to the caller's callback after each ride.
type Progress struct {
	Phase    Phase  `json:"phase"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	RideID   int64  `json:"rideId,omitempty"`
	RideName string `json:"rideName,omitempty"`
}

// ProgressFunc receives progress updates. It is invoked from the analysis
// goroutine and must not block.
type ProgressFunc func(Progress)

// Summary aggregates a completed analysis run.
type Summary struct {
	RidesConsidered int `json:"ridesConsidered"`
	RidesAnalyzed   int `json:"ridesAnalyzed"`
	RidesSkipped    int `json:"ridesSkipped"`

	AvgPowerW float64 `json:"avgPowerW"`
	MaxPowerW float64 `json:"maxPowerW"`

	AvgGravityW float64 `json:"avgGravityW"`
	AvgRollingW float64 `json:"avgRollingW"`
	AvgAeroW    float64 `json:"avgAeroW"`
	AvgWindW    float64 `json:"avgWindW"`

	TotalDistanceKm float64 `json:"totalDistanceKm"`

	// Representative is the ride shown as "typical": the most recent among
	// the strongest rides of the batch.
	Representative *estimate.PowerEstimate `json:"representative,omitempty"`

	// MeasuredRides and AvgAccuracyPct describe the power-meter subset.
	MeasuredRides  int     `json:"measuredRides"`
	AvgAccuracyPct float64 `json:"avgAccuracyPct,omitempty"`
}

// Result is the output of one analysis run. Estimates are ordered most
// recent first, matching the upstream ride order.
type Result struct {
	Estimates []estimate.PowerEstimate `json:"estimates"`
	Summary   Summary                  `json:"summary"`
	CacheHits int                      `json:"cacheHits"`
}

// Package estimate defines the power estimate model, the parameter-keyed
// result cache, and its persistence stores.
package estimate

import (
	"math"
	"time"

	"github.com/pedalwatt/pedalwatt/internal/physics"
)

// ModelVersion tags every cache key. Bumping it makes all previously stored
// estimates unreachable without a migration step.
const ModelVersion = "v3"

// Parameters are the rider-supplied inputs the estimate depends on. Any
// change produces a different cache key; stored entries are never mutated.
type Parameters struct {
	RiderMassKg float64         `json:"riderMassKg"`
	BikeMassKg  float64         `json:"bikeMassKg"`
	Surface     physics.Surface `json:"surface"`
	WindEnabled bool            `json:"windEnabled"`
}

// DefaultParameters returns the parameters assumed before a rider has
// configured a profile.
func DefaultParameters() Parameters {
	return Parameters{
		RiderMassKg: 75,
		BikeMassKg:  8,
		Surface:     physics.SurfaceAsphalt,
		WindEnabled: true,
	}
}

// TotalMassKg is the combined rider and bike mass.
func (p Parameters) TotalMassKg() float64 {
	return p.RiderMassKg + p.BikeMassKg
}

// Key uniquely determines a PowerEstimate together with the fixed physical
// constants. Recomputing under an identical key is deterministic.
type Key struct {
	RideID       int64           `json:"rideId"`
	RiderMassKg  float64         `json:"riderMassKg"`
	BikeMassKg   float64         `json:"bikeMassKg"`
	Surface      physics.Surface `json:"surface"`
	WindEnabled  bool            `json:"windEnabled"`
	ModelVersion string          `json:"modelVersion"`
}

// NewKey builds the cache key for a ride under the given parameters and the
// current model version.
func NewKey(rideID int64, p Parameters) Key {
	return Key{
		RideID:       rideID,
		RiderMassKg:  p.RiderMassKg,
		BikeMassKg:   p.BikeMassKg,
		Surface:      p.Surface,
		WindEnabled:  p.WindEnabled,
		ModelVersion: ModelVersion,
	}
}

// PowerEstimate is the engine output for a single ride. Immutable once
// produced for a given key.
type PowerEstimate struct {
	RideID    int64     `json:"rideId"`
	RideName  string    `json:"rideName,omitempty"`
	StartTime time.Time `json:"startTime"`

	TotalW   float64 `json:"totalW"`
	GravityW float64 `json:"gravityW"`
	RollingW float64 `json:"rollingW"`
	AeroW    float64 `json:"aeroW"`
	WindW    float64 `json:"windW"`

	// GravityAssists marks the gravity component as assistance (descent)
	// rather than resistance.
	GravityAssists bool `json:"gravityAssists"`

	GradePct    float64 `json:"gradePct"`
	SpeedKmh    float64 `json:"speedKmh"`
	AirDensity  float64 `json:"airDensity"`
	DistanceKm  float64 `json:"distanceKm"`
	DurationMin float64 `json:"durationMin"`

	HasMeasuredPower bool    `json:"hasMeasuredPower"`
	MeasuredAvgW     float64 `json:"measuredAvgW,omitempty"`

	// AccuracyPct is the relative error against the power meter reading,
	// only meaningful when HasMeasuredPower is true.
	AccuracyPct int `json:"accuracyPct,omitempty"`
}

// Accuracy returns the rounded relative error percentage between an estimate
// and a power-meter measurement.
func Accuracy(estimatedW, measuredW float64) int {
	if measuredW == 0 {
		return 0
	}
	return int(math.Round(math.Abs(estimatedW-measuredW) / measuredW * 100))
}

package physics

import (
	"errors"
	"math"
)

// Physical and model constants.
const (
	// Gravity is gravitational acceleration in m/s².
	Gravity = 9.81

	// DragArea is the effective aerodynamic drag area (CdA) in m², assuming a
	// typical road riding position.
	DragArea = 0.4

	// MaxPlausibleWatts is the sanity ceiling for a ride-average estimate.
	MaxPlausibleWatts = 2000.0

	// MaxWindInputMS caps the wind speed fed into the effective-speed
	// approximation; gusty readings above this add no further drag.
	MaxWindInputMS = 5.0

	// WindDamping scales the capped wind speed. The model is
	// direction-agnostic, so the full wind magnitude would overstate drag.
	WindDamping = 0.3

	// GravityAssistCap limits how much of the resistive power a descent is
	// assumed to cancel.
	GravityAssistCap = 0.8

	// DescentFloorWatts is the minimum maintaining-balance output on a descent.
	DescentFloorWatts = 10.0
)

// Surface is the predominant riding surface, which determines the rolling
// resistance coefficient.
type Surface string

// Supported surfaces.
const (
	SurfaceAsphalt  Surface = "asphalt"
	SurfaceConcrete Surface = "concrete"
	SurfaceGravel   Surface = "gravel"
	SurfaceDirt     Surface = "dirt"
	SurfaceMountain Surface = "mountain"
)

// rollingResistance maps each surface to its Crr.
var rollingResistance = map[Surface]float64{
	SurfaceAsphalt:  0.005,
	SurfaceConcrete: 0.008,
	SurfaceGravel:   0.012,
	SurfaceDirt:     0.016,
	SurfaceMountain: 0.020,
}

// Valid reports whether s is a known surface.
func (s Surface) Valid() bool {
	_, ok := rollingResistance[s]
	return ok
}

// RollingCoefficient returns the Crr for a surface, falling back to asphalt
// for unknown values.
func RollingCoefficient(s Surface) float64 {
	if crr, ok := rollingResistance[s]; ok {
		return crr
	}
	return rollingResistance[SurfaceAsphalt]
}

// ErrImplausible is returned when the estimate fails the sanity check even
// after dropping the wind term.
var ErrImplausible = errors.New("estimated power out of plausible range")

// ModelInput holds the fully-resolved quantities the power model consumes.
// WindSpeedMS is zero when no wind observation is available.
type ModelInput struct {
	TotalMassKg float64
	Grade       float64
	SpeedMS     float64
	AirDensity  float64
	Surface     Surface
	WindSpeedMS float64
}

// Breakdown is the four-term power decomposition in watts.
type Breakdown struct {
	TotalW   float64
	GravityW float64
	RollingW float64
	AeroW    float64
	WindW    float64

	// GravityAssists is true on a descent, where the gravity term reduces
	// rather than adds to the required power.
	GravityAssists bool
}

// Estimate computes the power breakdown for a ride. If the result falls
// outside the plausible range it is recomputed once without the wind term;
// if still out of range, ErrImplausible is returned and the ride should be
// excluded from results.
func Estimate(in ModelInput) (Breakdown, error) {
	b := decompose(in)
	if plausible(b.TotalW) {
		return b, nil
	}

	if in.WindSpeedMS > 0 {
		in.WindSpeedMS = 0
		b = decompose(in)
		if plausible(b.TotalW) {
			return b, nil
		}
	}

	return Breakdown{}, ErrImplausible
}

func decompose(in ModelInput) Breakdown {
	crr := RollingCoefficient(in.Surface)

	rolling := crr * in.TotalMassKg * Gravity * in.SpeedMS
	aero := 0.5 * in.AirDensity * DragArea * math.Pow(in.SpeedMS, 3)

	var windDelta float64
	if in.WindSpeedMS > 0 {
		effective := in.SpeedMS + math.Min(in.WindSpeedMS, MaxWindInputMS)*WindDamping
		windDelta = 0.5*in.AirDensity*DragArea*math.Pow(effective, 3) - aero
	}

	gravity := in.TotalMassKg * Gravity * in.Grade * in.SpeedMS
	assists := in.Grade < 0
	if assists {
		// Gravity alone cannot be assumed to fully cancel resistance.
		limit := GravityAssistCap * (rolling + aero + windDelta)
		if -gravity > limit {
			gravity = -limit
		}
	}

	total := rolling + aero + windDelta + gravity
	if assists {
		floor := math.Max(DescentFloorWatts, math.Abs(in.Grade)*100)
		if total < floor {
			total = floor
		}
	}

	return Breakdown{
		TotalW:         total,
		GravityW:       gravity,
		RollingW:       rolling,
		AeroW:          aero,
		WindW:          windDelta,
		GravityAssists: assists,
	}
}

func plausible(watts float64) bool {
	return !math.IsNaN(watts) && !math.IsInf(watts, 0) &&
		watts >= 0 && watts <= MaxPlausibleWatts
}

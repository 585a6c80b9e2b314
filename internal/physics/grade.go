package physics

// Descent inference thresholds. These are empirical tuning values calibrated
// against real ride data; keep them as-is rather than deriving replacements.
const (
	// DescentSpeedKmh is the average speed above which a ride with little
	// climbing is treated as a likely descent.
	DescentSpeedKmh = 30.0

	// SmallGainPerKm is the elevation gain per kilometer (m/km) below which
	// the recorded gain is considered negligible.
	SmallGainPerKm = 20.0

	// SpeedDescentBaseKmh and SpeedDescentDivisor shape the speed-derived
	// descent grade: -(kmh - base) / divisor.
	SpeedDescentBaseKmh = 25.0
	SpeedDescentDivisor = 30.0

	// SpeedDescentFloor bounds the speed-derived descent grade.
	SpeedDescentFloor = -0.10

	// RangeDescentThresholdM is the elevation range (high - low) above which
	// the range heuristic applies.
	RangeDescentThresholdM = 200.0

	// RangeGainFraction is the gain-to-range ratio below which a large
	// elevation range indicates a net descent.
	RangeGainFraction = 0.30

	// RangeDescentFloor bounds the range-derived descent grade.
	RangeDescentFloor = -0.15
)

// GradeInput holds the ride-level quantities the grade estimate is built from.
// ElevationLowM/ElevationHighM are nil when the source did not record them.
type GradeInput struct {
	DistanceM      float64
	ElevationGainM float64
	ElevationLowM  *float64
	ElevationHighM *float64
	SpeedMS        float64
}

// EstimateGrade infers the effective average grade for a ride as a fraction.
//
// The raw gain/distance ratio systematically misrepresents descents: loops and
// out-and-back rides record positive gain even when net elevation loss
// dominates the effort. Three overrides correct for the common cases, in
// priority order: an explicitly negative gain, a fast ride with negligible
// climbing, and a large elevation range with little recorded gain.
func EstimateGrade(in GradeInput) float64 {
	if in.DistanceM <= 0 {
		return 0
	}

	grade := in.ElevationGainM / in.DistanceM

	// Explicit descent: trust the recorded negative gain directly.
	if in.ElevationGainM < 0 {
		return grade
	}

	speedKmh := in.SpeedMS * 3.6
	gainPerKm := in.ElevationGainM / (in.DistanceM / 1000)

	if speedKmh > DescentSpeedKmh && gainPerKm < SmallGainPerKm {
		g := -(speedKmh - SpeedDescentBaseKmh) / SpeedDescentDivisor
		if g < SpeedDescentFloor {
			g = SpeedDescentFloor
		}
		return g
	}

	if in.ElevationLowM != nil && in.ElevationHighM != nil {
		elevRange := *in.ElevationHighM - *in.ElevationLowM
		if elevRange > RangeDescentThresholdM && in.ElevationGainM < RangeGainFraction*elevRange {
			g := -(elevRange / in.DistanceM)
			if g < RangeDescentFloor {
				g = RangeDescentFloor
			}
			return g
		}
	}

	return grade
}

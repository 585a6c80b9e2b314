// Package activity defines the ride model and the provider interface for
// fetching a rider's recorded activities.
package activity

import (
	"errors"
	"time"
)

// Predefined errors for activity operations.
var (
	// ErrRideNotFound is returned when a ride doesn't exist.
	ErrRideNotFound = errors.New("ride not found")

	// ErrProviderUnavailable is returned when the activity source cannot be reached.
	ErrProviderUnavailable = errors.New("activity provider unavailable")
)

// TypeRide is the activity type eligible for power estimation. Virtual
// rides, runs and other types are ignored.
const TypeRide = "Ride"

// LatLng is a ride start coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Ride is a recorded activity as delivered by the upstream source. Optional
// fields are pointers: older recordings and barometer-less devices omit them.
type Ride struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"startDate"`

	DistanceM    float64 `json:"distanceM"`
	MovingTimeS  float64 `json:"movingTimeS"`
	ElapsedTimeS float64 `json:"elapsedTimeS"`

	TotalElevationGainM float64  `json:"totalElevationGainM"`
	ElevLowM            *float64 `json:"elevLowM,omitempty"`
	ElevHighM           *float64 `json:"elevHighM,omitempty"`

	AverageSpeedMS float64  `json:"averageSpeedMS"`
	AverageTempC   *float64 `json:"averageTempC,omitempty"`

	// AverageWatts is only trusted when DeviceWatts is true; otherwise it is
	// the source's own estimate and not a measurement.
	AverageWatts *float64 `json:"averageWatts,omitempty"`
	DeviceWatts  bool     `json:"deviceWatts"`

	StartLatLng *LatLng `json:"startLatLng,omitempty"`

	// SummaryPolyline is the encoded route shape, used to recover a start
	// coordinate when StartLatLng is missing.
	SummaryPolyline string `json:"summaryPolyline,omitempty"`
}

// HasMeasuredPower reports whether the ride carries a power meter reading.
func (r *Ride) HasMeasuredPower() bool {
	return r.DeviceWatts && r.AverageWatts != nil
}

// AvgSpeedMS returns the average speed, deriving it from distance and moving
// time when the recorded value is missing or zero.
func (r *Ride) AvgSpeedMS() float64 {
	if r.AverageSpeedMS > 0 {
		return r.AverageSpeedMS
	}
	if r.MovingTimeS > 0 {
		return r.DistanceM / r.MovingTimeS
	}
	return 0
}

// Package wind resolves historical and recent wind observations for ride
// start locations. Wind is an enhancement signal: every lookup degrades to
// "no wind" rather than failing the caller.
package wind

import (
	"errors"
	"time"
)

// Predefined errors for wind operations.
var (
	// ErrProviderUnavailable is returned when the wind provider cannot be reached.
	ErrProviderUnavailable = errors.New("wind provider unavailable")

	// ErrInvalidCoordinates is returned for out-of-range coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrNoObservation is returned when the provider has no sample for the
	// requested hour.
	ErrNoObservation = errors.New("no wind observation for requested hour")
)

// Sample is a single resolved wind observation at a ride's start hour.
type Sample struct {
	// Time is the observation hour, truncated.
	Time time.Time

	// SpeedMS is the wind speed at 10 m in m/s.
	SpeedMS float64

	// DirectionDeg is the meteorological wind direction in degrees.
	DirectionDeg float64
}

// Day holds the hourly wind series for one calendar day at one location.
type Day struct {
	Lat       float64
	Lon       float64
	Date      time.Time
	Hourly    []Hourly
	FetchedAt time.Time
}

// Hourly is one hour of the series. Speed and direction are pointers since
// archive responses carry nulls for hours that were never observed.
type Hourly struct {
	Time         time.Time
	SpeedMS      *float64
	DirectionDeg *float64
}

// At returns the sample for the hour containing t.
func (d *Day) At(t time.Time) (*Sample, error) {
	hour := t.Truncate(time.Hour)
	for _, h := range d.Hourly {
		if !h.Time.Equal(hour) {
			continue
		}
		if h.SpeedMS == nil {
			return nil, ErrNoObservation
		}
		s := &Sample{Time: h.Time, SpeedMS: *h.SpeedMS}
		if h.DirectionDeg != nil {
			s.DirectionDeg = *h.DirectionDeg
		}
		return s, nil
	}
	return nil, ErrNoObservation
}

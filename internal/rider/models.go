// Package rider provides rider profile management services.
package rider

import (
	"errors"
	"time"

	"github.com/pedalwatt/pedalwatt/internal/estimate"
)

// Repository errors.
var (
	ErrProfileNotFound = errors.New("rider profile not found")
)

// Profile holds a rider's saved estimation parameters.
type Profile struct {
	RiderID    string
	Parameters estimate.Parameters

	// HomeLat and HomeLon are the fallback location for rides without a
	// recorded start point.
	HomeLat *float64
	HomeLon *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

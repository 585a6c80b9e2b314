// Package worker provides background job processing for PedalWatt.
package worker

import (
	"time"
)

// WarmupTarget represents a geographic region to pre-warm.
type WarmupTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the lat/lon coordinates to warm.
	// Typically popular ride start areas.
	Points []Point

	// Priority determines warmup order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// WarmupConfig holds configuration for the wind warmup job.
type WarmupConfig struct {
	// Targets are the geographic regions to warm.
	// If empty, uses DefaultWarmupTargets.
	Targets []WarmupTarget

	// Days is how many recent days of wind to warm per point.
	// Default: 3
	Days int

	// Concurrency is the number of concurrent warmup operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each point.
	// Default: 30 seconds
	Timeout time.Duration

	// WarmWind enables wind cache warming.
	// Default: true
	WarmWind bool

	// PersistEstimates enables writing the estimate cache through to the store.
	// Default: true
	PersistEstimates bool
}

// DefaultWarmupConfig returns the default warmup configuration.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Targets:          DefaultWarmupTargets(),
		Days:             3,
		Concurrency:      3,
		Timeout:          30 * time.Second,
		WarmWind:         true,
		PersistEstimates: true,
	}
}

// DefaultWarmupTargets returns the default warmup targets.
// Focuses on regions where most analyzed rides start.
func DefaultWarmupTargets() []WarmupTarget {
	return []WarmupTarget{
		{
			Name:     "Girona",
			Priority: 1,
			Points: []Point{
				{Lat: 41.9794, Lon: 2.8214}, // Girona old town
				{Lat: 42.0462, Lon: 2.7394}, // Rocacorba base
			},
		},
		{
			Name:     "Mallorca",
			Priority: 1,
			Points: []Point{
				{Lat: 39.5696, Lon: 2.6502}, // Palma
				{Lat: 39.8499, Lon: 2.7984}, // Sa Calobra
				{Lat: 39.7568, Lon: 3.1176}, // Alcudia
			},
		},
		{
			Name:     "Flanders",
			Priority: 1,
			Points: []Point{
				{Lat: 50.8450, Lon: 3.6099}, // Oudenaarde
				{Lat: 50.7769, Lon: 3.6013}, // Ronse
			},
		},
		{
			Name:     "Amsterdam",
			Priority: 2,
			Points: []Point{
				{Lat: 52.3676, Lon: 4.9041}, // Centrum
				{Lat: 52.3114, Lon: 4.9469}, // Zuidoost
			},
		},
		{
			Name:     "Nice",
			Priority: 2,
			Points: []Point{
				{Lat: 43.7102, Lon: 7.2620}, // Promenade
				{Lat: 43.9319, Lon: 7.2861}, // Col de Turini approach
			},
		},
		{
			Name:     "Boulder",
			Priority: 2,
			Points: []Point{
				{Lat: 40.0150, Lon: -105.2705}, // Boulder
			},
		},
		{
			Name:     "Tenerife",
			Priority: 3,
			Points: []Point{
				{Lat: 28.2916, Lon: -16.6291}, // Teide approach
			},
		},
		{
			Name:     "Annecy",
			Priority: 3,
			Points: []Point{
				{Lat: 45.8992, Lon: 6.1294}, // Annecy
			},
		},
	}
}

// AllPoints returns all points from all targets, ordered by priority.
func (c WarmupConfig) AllPoints() []Point {
	var points []Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to warm.
func (c WarmupConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedalwatt/pedalwatt/internal/activity"
	"github.com/pedalwatt/pedalwatt/internal/estimate"
	"github.com/pedalwatt/pedalwatt/internal/physics"
	"github.com/pedalwatt/pedalwatt/internal/wind"
	"github.com/pedalwatt/pedalwatt/pkg/polyline"
)

// Fallback coordinates for rides that carry neither an explicit start point
// nor a route shape. Amsterdam city center.
const (
	DefaultLat = 52.37
	DefaultLon = 4.90
)

// WindSource resolves the wind at a ride's start. A nil sample means the
// ride is analyzed without wind.
type WindSource interface {
	Resolve(ctx context.Context, lat, lon float64, startTime time.Time) *wind.Sample
}

// ServiceConfig holds configuration for the analyzer service.
type ServiceConfig struct {
	// Activities is the ride source.
	Activities activity.Provider

	// Wind resolves start-hour wind. Optional; without it all rides are
	// analyzed calm.
	Wind WindSource

	// Cache holds previously computed estimates.
	Cache *estimate.Cache

	// Store persists cache entries between runs. Optional and best effort.
	Store estimate.Store

	// Logger for service operations.
	Logger zerolog.Logger

	// MaxRides caps how many eligible rides one run analyzes (default: 50).
	MaxRides int

	// MinDistanceM excludes trivial rides (default: 1000 m).
	MinDistanceM float64

	// HistoryWindow is how far back rides are considered (default: 2 years),
	// matching how far back wind observations reach.
	HistoryWindow time.Duration

	// PerRideTimeout bounds the work for a single ride, wind fetch included
	// (default: 3 seconds).
	PerRideTimeout time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

// Service runs power analysis over a rider's recent history.
type Service struct {
	activities activity.Provider
	wind       WindSource
	cache      *estimate.Cache
	store      estimate.Store
	logger     zerolog.Logger

	maxRides       int
	minDistanceM   float64
	historyWindow  time.Duration
	perRideTimeout time.Duration
	now            func() time.Time
}

// NewService creates a new analyzer service.
func NewService(cfg ServiceConfig) *Service {
	maxRides := cfg.MaxRides
	if maxRides == 0 {
		maxRides = 50
	}

	minDistance := cfg.MinDistanceM
	if minDistance == 0 {
		minDistance = 1000
	}

	window := cfg.HistoryWindow
	if window == 0 {
		window = 2 * 365 * 24 * time.Hour
	}

	perRide := cfg.PerRideTimeout
	if perRide == 0 {
		perRide = 3 * time.Second
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	cache := cfg.Cache
	if cache == nil {
		cache = estimate.NewCache()
	}

	return &Service{
		activities:     cfg.Activities,
		wind:           cfg.Wind,
		cache:          cache,
		store:          cfg.Store,
		logger:         cfg.Logger,
		maxRides:       maxRides,
		minDistanceM:   minDistance,
		historyWindow:  window,
		perRideTimeout: perRide,
		now:            now,
	}
}

// Analyze estimates power for the rider's recent eligible rides and
// aggregates the results. Rides are processed sequentially, most recent
// first; rides whose estimate is implausible are skipped without failing
// the run. onProgress may be nil.
func (s *Service) Analyze(ctx context.Context, params estimate.Parameters, onProgress ProgressFunc) (*Result, error) {
	report := onProgress
	if report == nil {
		report = func(Progress) {}
	}

	report(Progress{Phase: PhaseFetching})

	since := s.now().Add(-s.historyWindow)
	rides, err := s.activities.ListRides(ctx, since)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", s.activities.Name()).
			Msg("failed to list rides")
		return nil, fmt.Errorf("%w: %v", ErrActivitiesUnavailable, err)
	}

	return s.run(ctx, rides, params, report)
}

// AnalyzeRides runs the same pipeline over caller-supplied rides, bypassing
// the configured activity source. Eligibility filtering still applies.
func (s *Service) AnalyzeRides(ctx context.Context, rides []activity.Ride, params estimate.Parameters, onProgress ProgressFunc) (*Result, error) {
	report := onProgress
	if report == nil {
		report = func(Progress) {}
	}
	return s.run(ctx, rides, params, report)
}

func (s *Service) run(ctx context.Context, rides []activity.Ride, params estimate.Parameters, report ProgressFunc) (*Result, error) {
	eligible := s.filterRides(rides)
	considered := len(eligible)

	result := &Result{Estimates: make([]estimate.PowerEstimate, 0, considered)}
	newEntries := make([]estimate.Entry, 0, considered)

	for i, ride := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, ErrCanceled
		}

		key := estimate.NewKey(ride.ID, params)
		if cached, ok := s.cache.Get(key); ok {
			result.Estimates = append(result.Estimates, cached)
			result.CacheHits++
			report(Progress{Phase: PhaseEstimating, Done: i + 1, Total: considered, RideID: ride.ID, RideName: ride.Name})
			continue
		}

		est, err := s.estimateRide(ctx, ride, params)
		if err != nil {
			// Implausible or malformed rides are skipped quietly; one odd
			// recording must not fail the whole batch.
			s.logger.Debug().Err(err).
				Int64("ride_id", ride.ID).
				Str("ride_name", ride.Name).
				Msg("skipping ride")
			result.Summary.RidesSkipped++
			report(Progress{Phase: PhaseEstimating, Done: i + 1, Total: considered, RideID: ride.ID, RideName: ride.Name})
			continue
		}

		s.cache.Set(key, est)
		newEntries = append(newEntries, estimate.Entry{Key: key, Estimate: est})
		result.Estimates = append(result.Estimates, est)
		report(Progress{Phase: PhaseEstimating, Done: i + 1, Total: considered, RideID: ride.ID, RideName: ride.Name})
	}

	if s.store != nil && len(newEntries) > 0 {
		if err := s.store.Save(ctx, newEntries); err != nil {
			s.logger.Warn().Err(err).
				Int("entries", len(newEntries)).
				Msg("failed to persist estimates, continuing")
		}
	}

	report(Progress{Phase: PhaseAggregating, Done: considered, Total: considered})
	summarize(result, considered)

	s.logger.Info().
		Int("considered", considered).
		Int("analyzed", result.Summary.RidesAnalyzed).
		Int("skipped", result.Summary.RidesSkipped).
		Int("cache_hits", result.CacheHits).
		Msg("analysis complete")

	return result, nil
}

// filterRides keeps eligible rides, most recent first, capped at maxRides.
// The window check and the sort are redundant for provider-fetched rides
// (already windowed and most-recent-first) but guard the caller-supplied
// path, where the cap must drop the oldest rides regardless of input order.
func (s *Service) filterRides(rides []activity.Ride) []activity.Ride {
	since := s.now().Add(-s.historyWindow)
	out := make([]activity.Ride, 0, len(rides))
	for _, r := range rides {
		if r.Type != activity.TypeRide {
			continue
		}
		if r.DistanceM <= s.minDistanceM {
			continue
		}
		if !r.StartDate.After(since) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})

	if len(out) > s.maxRides {
		out = out[:s.maxRides]
	}
	return out
}

// estimateRide computes one ride's power breakdown under a bounded budget.
func (s *Service) estimateRide(ctx context.Context, ride activity.Ride, params estimate.Parameters) (estimate.PowerEstimate, error) {
	rideCtx, cancel := context.WithTimeout(ctx, s.perRideTimeout)
	defer cancel()

	speed := ride.AvgSpeedMS()
	if speed <= 0 {
		return estimate.PowerEstimate{}, errors.New("ride has no usable speed")
	}

	grade := physics.EstimateGrade(physics.GradeInput{
		DistanceM:      ride.DistanceM,
		ElevationGainM: ride.TotalElevationGainM,
		ElevationLowM:  ride.ElevLowM,
		ElevationHighM: ride.ElevHighM,
		SpeedMS:        speed,
	})

	// Ride elevation for the pressure term: midpoint of the recorded range
	// when the device reported one, sea level otherwise.
	var elevation float64
	if ride.ElevLowM != nil && ride.ElevHighM != nil {
		elevation = (*ride.ElevLowM + *ride.ElevHighM) / 2
	}

	temperature := physics.DefaultTemperatureC
	if ride.AverageTempC != nil {
		temperature = *ride.AverageTempC
	}

	var windSpeed float64
	var sample *wind.Sample
	if params.WindEnabled && s.wind != nil {
		lat, lon := startPoint(ride)
		sample = s.wind.Resolve(rideCtx, lat, lon, ride.StartDate)
		if sample != nil {
			windSpeed = sample.SpeedMS
		}
	}

	breakdown, err := physics.Estimate(physics.ModelInput{
		TotalMassKg: params.TotalMassKg(),
		Grade:       grade,
		SpeedMS:     speed,
		AirDensity:  physics.AirDensity(temperature, elevation),
		Surface:     params.Surface,
		WindSpeedMS: windSpeed,
	})
	if err != nil {
		return estimate.PowerEstimate{}, err
	}

	est := estimate.PowerEstimate{
		RideID:         ride.ID,
		RideName:       ride.Name,
		StartTime:      ride.StartDate,
		TotalW:         breakdown.TotalW,
		GravityW:       breakdown.GravityW,
		RollingW:       breakdown.RollingW,
		AeroW:          breakdown.AeroW,
		WindW:          breakdown.WindW,
		GravityAssists: breakdown.GravityAssists,
		GradePct:       grade * 100,
		SpeedKmh:       speed * 3.6,
		AirDensity:     physics.AirDensity(temperature, elevation),
		DistanceKm:     ride.DistanceM / 1000,
		DurationMin:    ride.MovingTimeS / 60,
	}

	if ride.HasMeasuredPower() {
		est.HasMeasuredPower = true
		est.MeasuredAvgW = *ride.AverageWatts
		est.AccuracyPct = estimate.Accuracy(breakdown.TotalW, *ride.AverageWatts)
	}

	return est, nil
}

// startPoint returns the ride's start coordinate, recovering it from the
// route shape when the recording lacks an explicit one. Rides with no
// geometry at all resolve wind at the default coordinates; an approximate
// wind beats no wind.
func startPoint(ride activity.Ride) (lat, lon float64) {
	if ride.StartLatLng != nil {
		return ride.StartLatLng.Lat, ride.StartLatLng.Lon
	}
	if c, ok := polyline.Start(ride.SummaryPolyline); ok {
		return c.Lat, c.Lon
	}
	return DefaultLat, DefaultLon
}

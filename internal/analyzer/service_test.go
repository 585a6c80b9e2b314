package analyzer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedalwatt/pedalwatt/internal/activity"
	"github.com/pedalwatt/pedalwatt/internal/analyzer"
	"github.com/pedalwatt/pedalwatt/internal/estimate"
	"github.com/pedalwatt/pedalwatt/internal/physics"
	"github.com/pedalwatt/pedalwatt/internal/wind"
)

var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

// stubWind counts lookups, records the last coordinate asked about, and
// hands back a fixed sample.
type stubWind struct {
	calls   int
	speedMS float64
	lastLat float64
	lastLon float64
}

func (w *stubWind) Resolve(_ context.Context, lat, lon float64, t time.Time) *wind.Sample {
	w.calls++
	w.lastLat = lat
	w.lastLon = lon
	if w.speedMS == 0 {
		return nil
	}
	return &wind.Sample{Time: t.Truncate(time.Hour), SpeedMS: w.speedMS}
}

// failingProvider always errors.
type failingProvider struct{}

func (failingProvider) ListRides(context.Context, time.Time) ([]activity.Ride, error) {
	return nil, errors.New("upstream 503")
}
func (failingProvider) Name() string { return "failing" }

func testRide(id int64, daysAgo int) activity.Ride {
	return activity.Ride{
		ID:                  id,
		Name:                fmt.Sprintf("Ride %d", id),
		Type:                activity.TypeRide,
		StartDate:           testNow.AddDate(0, 0, -daysAgo),
		DistanceM:           30000,
		MovingTimeS:         4000,
		TotalElevationGainM: 150,
		AverageSpeedMS:      7.5,
		StartLatLng:         &activity.LatLng{Lat: 52.37, Lon: 4.90},
	}
}

func newTestService(t *testing.T, provider activity.Provider, opts ...func(*analyzer.ServiceConfig)) *analyzer.Service {
	t.Helper()
	cfg := analyzer.ServiceConfig{
		Activities: provider,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return analyzer.NewService(cfg)
}

func TestAnalyze_FiltersIneligibleRides(t *testing.T) {
	short := testRide(2, 2)
	short.DistanceM = 800

	run := testRide(3, 3)
	run.Type = "Run"

	virtual := testRide(4, 4)
	virtual.Type = "VirtualRide"

	provider := activity.NewInMemoryProvider(testRide(1, 1), short, run, virtual)
	svc := newTestService(t, provider)

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.RidesConsidered)
	assert.Equal(t, 1, result.Summary.RidesAnalyzed)
	require.Len(t, result.Estimates, 1)
	assert.Equal(t, int64(1), result.Estimates[0].RideID)
}

func TestAnalyze_CapsBatchSize(t *testing.T) {
	provider := activity.NewInMemoryProvider()
	for i := 1; i <= 60; i++ {
		provider.Add(testRide(int64(i), i))
	}
	svc := newTestService(t, provider)

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	assert.Equal(t, 50, result.Summary.RidesConsidered)
	assert.Len(t, result.Estimates, 50)

	// The cap keeps the most recent rides.
	assert.Equal(t, int64(1), result.Estimates[0].RideID)
	assert.Equal(t, int64(50), result.Estimates[49].RideID)
}

func TestAnalyze_ReportsProgress(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1), testRide(2, 2), testRide(3, 3))
	svc := newTestService(t, provider)

	var updates []analyzer.Progress
	_, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), func(p analyzer.Progress) {
		updates = append(updates, p)
	})
	require.NoError(t, err)

	require.NotEmpty(t, updates)
	assert.Equal(t, analyzer.PhaseFetching, updates[0].Phase)
	assert.Equal(t, analyzer.PhaseAggregating, updates[len(updates)-1].Phase)

	var done []int
	for _, p := range updates {
		if p.Phase == analyzer.PhaseEstimating {
			assert.Equal(t, 3, p.Total)
			done = append(done, p.Done)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, done)
}

func TestAnalyze_SecondRunHitsCache(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1), testRide(2, 2))
	cache := estimate.NewCache()
	svc := newTestService(t, provider, func(cfg *analyzer.ServiceConfig) {
		cfg.Cache = cache
	})
	params := estimate.DefaultParameters()

	first, err := svc.Analyze(context.Background(), params, nil)
	require.NoError(t, err)
	assert.Zero(t, first.CacheHits)

	second, err := svc.Analyze(context.Background(), params, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheHits)
	assert.Equal(t, first.Estimates, second.Estimates)
}

func TestAnalyze_ChangedParametersMissCache(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1))
	cache := estimate.NewCache()
	svc := newTestService(t, provider, func(cfg *analyzer.ServiceConfig) {
		cfg.Cache = cache
	})

	params := estimate.DefaultParameters()
	_, err := svc.Analyze(context.Background(), params, nil)
	require.NoError(t, err)

	params.RiderMassKg = 90
	result, err := svc.Analyze(context.Background(), params, nil)
	require.NoError(t, err)

	assert.Zero(t, result.CacheHits)
	assert.Equal(t, 2, cache.Len())
}

func TestAnalyze_SkipsImplausibleRides(t *testing.T) {
	absurd := testRide(2, 2)
	absurd.AverageSpeedMS = 50 // ~180 km/h average, breaches the power ceiling

	noSpeed := testRide(3, 3)
	noSpeed.AverageSpeedMS = 0
	noSpeed.MovingTimeS = 0

	provider := activity.NewInMemoryProvider(testRide(1, 1), absurd, noSpeed)
	svc := newTestService(t, provider)

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.RidesConsidered)
	assert.Equal(t, 1, result.Summary.RidesAnalyzed)
	assert.Equal(t, 2, result.Summary.RidesSkipped)
}

func TestAnalyze_MeasuredPowerAccuracy(t *testing.T) {
	measured := testRide(1, 1)
	watts := 180.0
	measured.AverageWatts = &watts
	measured.DeviceWatts = true

	untrusted := testRide(2, 2)
	untrusted.AverageWatts = &watts
	untrusted.DeviceWatts = false // source estimate, not a meter

	provider := activity.NewInMemoryProvider(measured, untrusted)
	svc := newTestService(t, provider)

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.MeasuredRides)
	require.Len(t, result.Estimates, 2)

	var meterRide estimate.PowerEstimate
	for _, e := range result.Estimates {
		if e.RideID == 1 {
			meterRide = e
		}
	}
	assert.True(t, meterRide.HasMeasuredPower)
	assert.InDelta(t, 180, meterRide.MeasuredAvgW, 1e-9)
	assert.Equal(t, estimate.Accuracy(meterRide.TotalW, 180), meterRide.AccuracyPct)
}

func TestAnalyze_RepresentativeIsRecentAmongStrongest(t *testing.T) {
	provider := activity.NewInMemoryProvider()

	// The most recent ride is a weak one. With 30 stronger rides in the
	// batch it falls outside the top set, so the representative is the most
	// recent of the strong rides instead.
	weak := testRide(99, 1)
	weak.AverageSpeedMS = 5.0
	provider.Add(weak)

	for i := 1; i <= 30; i++ {
		strong := testRide(int64(i), i+1)
		strong.AverageSpeedMS = 10.0
		provider.Add(strong)
	}

	svc := newTestService(t, provider)
	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	require.NotNil(t, result.Summary.Representative)
	assert.Equal(t, int64(1), result.Summary.Representative.RideID)
}

func TestAnalyze_WindContribution(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1))
	windSrc := &stubWind{speedMS: 4.0}
	svc := newTestService(t, provider, func(cfg *analyzer.ServiceConfig) {
		cfg.Wind = windSrc
	})

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	require.Len(t, result.Estimates, 1)
	assert.Equal(t, 1, windSrc.calls)
	assert.Greater(t, result.Estimates[0].WindW, 0.0)
}

func TestAnalyze_WindDisabledSkipsLookup(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1))
	windSrc := &stubWind{speedMS: 4.0}
	svc := newTestService(t, provider, func(cfg *analyzer.ServiceConfig) {
		cfg.Wind = windSrc
	})

	params := estimate.DefaultParameters()
	params.WindEnabled = false

	result, err := svc.Analyze(context.Background(), params, nil)
	require.NoError(t, err)

	assert.Zero(t, windSrc.calls)
	assert.Zero(t, result.Estimates[0].WindW)
}

func TestAnalyze_PolylineStartFallback(t *testing.T) {
	ride := testRide(1, 1)
	ride.StartLatLng = nil
	ride.SummaryPolyline = "_p~iF~ps|U_ulLnnqC"

	provider := activity.NewInMemoryProvider(ride)
	windSrc := &stubWind{speedMS: 4.0}
	svc := newTestService(t, provider, func(cfg *analyzer.ServiceConfig) {
		cfg.Wind = windSrc
	})

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, windSrc.calls)
	assert.Greater(t, result.Estimates[0].WindW, 0.0)
}

func TestAnalyze_NoStartPointUsesDefaultCoordinates(t *testing.T) {
	ride := testRide(1, 1)
	ride.StartLatLng = nil
	ride.SummaryPolyline = ""

	provider := activity.NewInMemoryProvider(ride)
	windSrc := &stubWind{speedMS: 4.0}
	svc := newTestService(t, provider, func(cfg *analyzer.ServiceConfig) {
		cfg.Wind = windSrc
	})

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	// A ride with no geometry still gets a wind resolution, anchored at the
	// default coordinates.
	assert.Equal(t, 1, windSrc.calls)
	assert.Equal(t, analyzer.DefaultLat, windSrc.lastLat)
	assert.Equal(t, analyzer.DefaultLon, windSrc.lastLon)
	assert.Greater(t, result.Estimates[0].WindW, 0.0)
}

func TestAnalyze_EmptyHistory(t *testing.T) {
	svc := newTestService(t, activity.NewInMemoryProvider())

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Estimates)
	assert.Zero(t, result.Summary.RidesConsidered)
	assert.Nil(t, result.Summary.Representative)
	assert.Zero(t, result.Summary.AvgPowerW)
}

func TestAnalyze_ProviderFailure(t *testing.T) {
	svc := newTestService(t, failingProvider{})

	_, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	assert.ErrorIs(t, err, analyzer.ErrActivitiesUnavailable)
}

func TestAnalyze_Canceled(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1), testRide(2, 2))
	svc := newTestService(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, estimate.DefaultParameters(), nil)
	assert.ErrorIs(t, err, analyzer.ErrCanceled)
}

func TestAnalyze_PersistsNewEstimates(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1), testRide(2, 2))
	store := estimate.NewInMemoryStore()
	svc := newTestService(t, provider, func(cfg *analyzer.ServiceConfig) {
		cfg.Store = store
	})

	_, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAnalyze_SummaryAverages(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1), testRide(2, 2))
	svc := newTestService(t, provider)

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	require.Len(t, result.Estimates, 2)
	wantAvg := (result.Estimates[0].TotalW + result.Estimates[1].TotalW) / 2
	assert.InDelta(t, wantAvg, result.Summary.AvgPowerW, 1e-9)
	assert.InDelta(t, 60, result.Summary.TotalDistanceKm, 1e-9)
	assert.GreaterOrEqual(t, result.Summary.MaxPowerW, result.Summary.AvgPowerW)
}

// Determinism: identical inputs produce identical estimates, cached or not.
func TestAnalyze_Deterministic(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1), testRide(2, 2), testRide(3, 3))

	run := func() *analyzer.Result {
		svc := newTestService(t, provider)
		result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
		require.NoError(t, err)
		return result
	}

	assert.Equal(t, run().Estimates, run().Estimates)
}

// Sanity check on the physics wiring: a flat 30 km ride at 27 km/h lands in
// a believable recreational power band.
func TestAnalyze_PlausiblePowerBand(t *testing.T) {
	provider := activity.NewInMemoryProvider(testRide(1, 1))
	svc := newTestService(t, provider)

	result, err := svc.Analyze(context.Background(), estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	got := result.Estimates[0].TotalW
	assert.Greater(t, got, 50.0)
	assert.Less(t, got, 250.0)
	assert.Less(t, result.Estimates[0].TotalW, physics.MaxPlausibleWatts)
}

func TestAnalyzeRides_CallerSuppliedRides(t *testing.T) {
	// The configured source is empty; rides arrive with the call.
	svc := newTestService(t, activity.NewInMemoryProvider())

	rides := []activity.Ride{testRide(1, 1), testRide(2, 2)}
	result, err := svc.AnalyzeRides(context.Background(), rides, estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.RidesAnalyzed)
	assert.Equal(t, int64(1), result.Estimates[0].RideID)
}

func TestAnalyzeRides_CapKeepsMostRecentRegardlessOfOrder(t *testing.T) {
	svc := newTestService(t, activity.NewInMemoryProvider())

	// Oldest first: with 60 rides the cap must still drop rides 51..60 (the
	// oldest), not the most recent ones at the tail of the slice.
	rides := make([]activity.Ride, 0, 60)
	for i := 60; i >= 1; i-- {
		rides = append(rides, testRide(int64(i), i))
	}

	result, err := svc.AnalyzeRides(context.Background(), rides, estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	assert.Equal(t, 50, result.Summary.RidesConsidered)
	require.Len(t, result.Estimates, 50)
	assert.Equal(t, int64(1), result.Estimates[0].RideID)
	assert.Equal(t, int64(50), result.Estimates[49].RideID)
}

func TestAnalyzeRides_AppliesHistoryWindow(t *testing.T) {
	svc := newTestService(t, activity.NewInMemoryProvider())

	stale := testRide(2, 2)
	stale.StartDate = testNow.AddDate(-3, 0, 0)

	rides := []activity.Ride{testRide(1, 1), stale}
	result, err := svc.AnalyzeRides(context.Background(), rides, estimate.DefaultParameters(), nil)
	require.NoError(t, err)

	require.Len(t, result.Estimates, 1)
	assert.Equal(t, int64(1), result.Estimates[0].RideID)
}

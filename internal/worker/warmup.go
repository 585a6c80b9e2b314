package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedalwatt/pedalwatt/internal/estimate"
	"github.com/pedalwatt/pedalwatt/internal/wind"
)

// WarmupJob pre-fetches wind observations for popular ride start areas so
// interactive analysis runs hit a warm cache, and writes the estimate cache
// through to the store.
type WarmupJob struct {
	config WarmupConfig
	logger zerolog.Logger

	// Dependencies (optional, nil if not configured)
	windResolver *wind.Resolver
	cache        *estimate.Cache
	store        estimate.Store

	// Metrics
	metrics *WarmupMetrics

	now func() time.Time
}

// WarmupMetrics tracks warmup job statistics.
type WarmupMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns          int64
	SuccessfulPoints   int64
	FailedPoints       int64
	WindDaysWarmed     int64
	EstimatesPersisted int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmupJobConfig holds configuration for creating a WarmupJob.
type WarmupJobConfig struct {
	Config       WarmupConfig
	Logger       zerolog.Logger
	WindResolver *wind.Resolver
	Cache        *estimate.Cache
	Store        estimate.Store
	Now          func() time.Time
}

// NewWarmupJob creates a new warmup job processor.
func NewWarmupJob(cfg WarmupJobConfig) *WarmupJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultWarmupConfig()
	}
	if config.Days <= 0 {
		config.Days = 3
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &WarmupJob{
		config:       config,
		logger:       cfg.Logger,
		windResolver: cfg.WindResolver,
		cache:        cfg.Cache,
		store:        cfg.Store,
		metrics:      &WarmupMetrics{},
		now:          now,
	}
}

// WarmupResult contains the result of a warmup run.
type WarmupResult struct {
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
	TotalPoints        int
	Successful         int
	Failed             int
	WindDaysWarmed     int
	EstimatesPersisted int
	Errors             []WarmupError
}

// WarmupError represents a failure during warmup.
type WarmupError struct {
	Stage string
	Point Point
	Error string
}

// Run executes the warmup job for all configured targets.
func (j *WarmupJob) Run(ctx context.Context) *WarmupResult {
	startTime := j.now()
	result := &WarmupResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("days", j.config.Days).
		Int("concurrency", j.config.Concurrency).
		Msg("starting wind warmup job")

	points := j.config.AllPoints()

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmupWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.WindDaysWarmed += pr.daysWarmed
		result.Errors = append(result.Errors, pr.errors...)
	}

	if j.config.PersistEstimates {
		result.EstimatesPersisted = j.persistEstimates(ctx)
	}

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("wind_days_warmed", result.WindDaysWarmed).
		Int("estimates_persisted", result.EstimatesPersisted).
		Msg("wind warmup job completed")

	return result
}

type pointResult struct {
	point      Point
	success    bool
	daysWarmed int
	errors     []WarmupError
}

func (j *WarmupJob) warmupWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.warmPoint(ctx, point)
		}
	}
}

// warmPoint resolves the wind for the last Days days at a point. The
// resolver caches each day it fetches, hit or miss.
func (j *WarmupJob) warmPoint(ctx context.Context, point Point) pointResult {
	result := pointResult{
		point:   point,
		success: true,
	}

	if !j.config.WarmWind || j.windResolver == nil {
		return result
	}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	for day := 0; day < j.config.Days; day++ {
		// Noon keeps the lookup inside every provider's hourly range.
		at := j.now().Add(-time.Duration(day) * 24 * time.Hour)
		at = time.Date(at.Year(), at.Month(), at.Day(), 12, 0, 0, 0, time.UTC)

		sample := j.windResolver.Resolve(pointCtx, point.Lat, point.Lon, at)
		if sample == nil {
			result.errors = append(result.errors, WarmupError{
				Stage: "wind",
				Point: point,
				Error: "no observation for " + at.Format("2006-01-02"),
			})
			result.success = false
			continue
		}

		result.daysWarmed++
		atomic.AddInt64(&j.metrics.WindDaysWarmed, 1)
	}

	return result
}

// persistEstimates writes the in-memory estimate cache through to the store.
// Best effort; a store failure never fails the run.
func (j *WarmupJob) persistEstimates(ctx context.Context) int {
	if j.cache == nil || j.store == nil {
		return 0
	}

	entries := j.cache.Snapshot()
	if len(entries) == 0 {
		return 0
	}

	if err := j.store.Save(ctx, entries); err != nil {
		j.logger.Warn().Err(err).
			Int("entries", len(entries)).
			Msg("failed to persist estimate cache")
		return 0
	}

	atomic.AddInt64(&j.metrics.EstimatesPersisted, int64(len(entries)))
	return len(entries)
}

func (j *WarmupJob) updateMetrics(result *WarmupResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulPoints += int64(result.Successful)
	j.metrics.FailedPoints += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmupJob) GetMetrics() WarmupMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	// WindDaysWarmed and EstimatesPersisted are bumped with atomic adds from
	// worker goroutines, so they need atomic loads even under the read lock.
	return WarmupMetrics{
		TotalRuns:          j.metrics.TotalRuns,
		SuccessfulPoints:   j.metrics.SuccessfulPoints,
		FailedPoints:       j.metrics.FailedPoints,
		WindDaysWarmed:     atomic.LoadInt64(&j.metrics.WindDaysWarmed),
		EstimatesPersisted: atomic.LoadInt64(&j.metrics.EstimatesPersisted),
		LastRunAt:          j.metrics.LastRunAt,
		LastRunDuration:    j.metrics.LastRunDuration,
		TotalDuration:      j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmupJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":          m.TotalRuns,
		"successful_points":   m.SuccessfulPoints,
		"failed_points":       m.FailedPoints,
		"wind_days_warmed":    m.WindDaysWarmed,
		"estimates_persisted": m.EstimatesPersisted,
		"last_run_at":         m.LastRunAt,
		"last_run_duration":   m.LastRunDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}

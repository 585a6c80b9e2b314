package wind

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for wind data providers.
type Provider interface {
	// GetHourlyWind fetches the hourly wind series for one day at a location.
	GetHourlyWind(ctx context.Context, lat, lon float64, date time.Time) (*Day, error)

	// Name returns the provider name for logging.
	Name() string
}

// CacheMetrics receives cache and fetch outcomes from the resolver.
// Satisfied by middleware.ProviderMetrics.
type CacheMetrics interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// windOperation labels resolver lookups on the provider metrics.
const windOperation = "hourly-wind"

// ResolverConfig holds configuration for the wind resolver.
type ResolverConfig struct {
	// Provider is the wind data provider.
	Provider Provider

	// Logger for resolver operations.
	Logger zerolog.Logger

	// FetchTimeout bounds a single provider fetch (default: 2 seconds).
	// Wind is optional, so a slow provider must not stall ride analysis.
	FetchTimeout time.Duration

	// MaxAge is how far back observations are available (default: 2 years).
	// Older rides resolve to no wind without contacting the provider.
	MaxAge time.Duration

	// Metrics receives cache hit/miss and fetch outcomes. Optional.
	Metrics CacheMetrics

	// Now is overridable for tests.
	Now func() time.Time
}

// Resolver looks up the wind at a ride's start hour, caching one fetched day
// per location and date. Lookups never fail: any error path yields a nil
// sample and the analysis proceeds without wind.
type Resolver struct {
	provider     Provider
	logger       zerolog.Logger
	fetchTimeout time.Duration
	maxAge       time.Duration
	metrics      CacheMetrics
	now          func() time.Time

	mu   sync.Mutex
	days map[string]*cachedDay
}

// cachedDay records a fetched day, or a failed fetch so the same date is not
// retried for every ride in a batch.
type cachedDay struct {
	day    *Day
	failed bool
}

// NewResolver creates a new wind resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 2 * time.Second
	}

	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 2 * 365 * 24 * time.Hour
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Resolver{
		provider:     cfg.Provider,
		logger:       cfg.Logger,
		fetchTimeout: fetchTimeout,
		maxAge:       maxAge,
		metrics:      cfg.Metrics,
		now:          now,
		days:         make(map[string]*cachedDay),
	}
}

// Resolve returns the wind sample at the ride's start hour, or nil when no
// observation can be obtained.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64, startTime time.Time) *Sample {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		r.logger.Warn().
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("invalid ride start coordinates, skipping wind")
		return nil
	}

	if startTime.Before(r.now().Add(-r.maxAge)) {
		// The archive does not reach back this far.
		return nil
	}

	day := r.dayFor(ctx, lat, lon, startTime)
	if day == nil {
		return nil
	}

	sample, err := day.At(startTime)
	if err != nil {
		r.logger.Debug().
			Time("start_time", startTime).
			Msg("no wind observation for ride hour")
		return nil
	}

	return sample
}

// dayFor returns the cached day series, fetching it on first use. A failed
// fetch is cached too so one unreachable date costs a single provider call.
func (r *Resolver) dayFor(ctx context.Context, lat, lon float64, startTime time.Time) *Day {
	key := r.cacheKey(lat, lon, startTime)

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.days[key]; ok {
		if r.metrics != nil {
			r.metrics.RecordCacheHit(r.provider.Name(), windOperation)
		}
		if cached.failed {
			return nil
		}
		return cached.day
	}

	if r.metrics != nil {
		r.metrics.RecordCacheMiss(r.provider.Name(), windOperation)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	fetchStart := time.Now()
	day, err := r.provider.GetHourlyWind(fetchCtx, lat, lon, startTime)
	if r.metrics != nil {
		r.metrics.RecordRequest(r.provider.Name(), windOperation, time.Since(fetchStart), err)
	}
	if err != nil {
		r.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Str("date", startTime.Format("2006-01-02")).
			Str("provider", r.provider.Name()).
			Msg("wind fetch failed, proceeding without wind")
		r.days[key] = &cachedDay{failed: true}
		return nil
	}

	day.FetchedAt = r.now()
	r.days[key] = &cachedDay{day: day}
	return day
}

// cacheKey groups lookups by rounded location and calendar date.
func (r *Resolver) cacheKey(lat, lon float64, t time.Time) string {
	return fmt.Sprintf("%.2f:%.2f:%s", lat, lon, t.Format("2006-01-02"))
}

// InvalidateCache clears all cached days.
func (r *Resolver) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days = make(map[string]*cachedDay)
}

// CacheStats returns cache statistics.
func (r *Resolver) CacheStats() CacheStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := CacheStats{Provider: r.provider.Name()}
	for _, c := range r.days {
		if c.failed {
			stats.FailedDays++
		} else {
			stats.Days++
		}
	}
	return stats
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Days       int
	FailedDays int
	Provider   string
}

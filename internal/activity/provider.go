package activity

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Provider defines the interface for activity sources.
type Provider interface {
	// ListRides returns rides started after the given time, most recent
	// first. Implementations may return more rides than the caller will
	// analyze; filtering happens downstream.
	ListRides(ctx context.Context, since time.Time) ([]Ride, error)

	// Name returns the provider name for logging.
	Name() string
}

// InMemoryProvider is an in-memory implementation of Provider.
// This is intended for testing and local fixtures.
type InMemoryProvider struct {
	mu    sync.RWMutex
	rides map[int64]Ride
}

// NewInMemoryProvider creates a provider seeded with the given rides.
func NewInMemoryProvider(rides ...Ride) *InMemoryProvider {
	p := &InMemoryProvider{rides: make(map[int64]Ride, len(rides))}
	for _, r := range rides {
		p.rides[r.ID] = r
	}
	return p
}

// Add inserts or replaces a ride.
func (p *InMemoryProvider) Add(r Ride) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rides[r.ID] = r
}

// ListRides returns rides started after since, most recent first.
func (p *InMemoryProvider) ListRides(_ context.Context, since time.Time) ([]Ride, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Ride, 0, len(p.rides))
	for _, r := range p.rides {
		if r.StartDate.After(since) {
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

// Name returns the provider name.
func (p *InMemoryProvider) Name() string {
	return "memory"
}

// Ensure InMemoryProvider implements Provider interface.
var _ Provider = (*InMemoryProvider)(nil)

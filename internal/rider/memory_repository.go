package rider

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and running without a database.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryRepository creates a new in-memory rider repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
	}
}

// Get retrieves a profile by rider ID.
func (r *InMemoryRepository) Get(_ context.Context, riderID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[riderID]
	if !ok {
		return nil, ErrProfileNotFound
	}

	cpy := *p
	return &cpy, nil
}

// Upsert creates or replaces a profile.
func (r *InMemoryRepository) Upsert(_ context.Context, profile *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *profile
	r.profiles[profile.RiderID] = &cpy
	return nil
}

// Delete removes a profile by rider ID.
func (r *InMemoryRepository) Delete(_ context.Context, riderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.profiles, riderID)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)

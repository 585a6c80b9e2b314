package estimate

import (
	"context"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store.
// This is intended for testing and for running without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	version string
}

// NewInMemoryStore creates a new in-memory estimate store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[Key]Entry),
		version: FormatVersion,
	}
}

// Load returns the stored entries, discarding everything if the store was
// written under an older format version.
func (s *InMemoryStore) Load(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version != FormatVersion {
		s.entries = make(map[Key]Entry)
		s.version = FormatVersion
		return nil, nil
	}

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

// Save stores the given entries, keeping existing ones untouched.
func (s *InMemoryStore) Save(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if _, ok := s.entries[e.Key]; ok {
			continue
		}
		s.entries[e.Key] = e
	}
	return nil
}

// Purge removes all stored entries.
func (s *InMemoryStore) Purge(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[Key]Entry)
	return nil
}

// SetFormatVersion overrides the recorded format version. Test helper.
func (s *InMemoryStore) SetFormatVersion(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
}

// Ensure InMemoryStore implements Store interface.
var _ Store = (*InMemoryStore)(nil)

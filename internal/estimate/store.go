package estimate

import "context"

// FormatVersion identifies the on-disk layout of persisted cache entries.
// Entries written under a different format version are purged on load.
const FormatVersion = "2024-1"

// Entry pairs a cache key with its computed estimate for persistence.
type Entry struct {
	Key      Key           `json:"key"`
	Estimate PowerEstimate `json:"estimate"`
}

// Store persists cache entries between runs. Persistence is best effort; a
// failing store never blocks estimation.
type Store interface {
	// Load returns all entries stored under the current format version and
	// discards any written under an older one.
	Load(ctx context.Context) ([]Entry, error)

	// Save writes the given entries. Existing entries with the same key are
	// left untouched since estimates for a key never change.
	Save(ctx context.Context, entries []Entry) error

	// Purge removes every stored entry regardless of version.
	Purge(ctx context.Context) error
}

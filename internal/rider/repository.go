package rider

import "context"

// Repository defines the interface for rider profile persistence.
type Repository interface {
	// Get retrieves a profile by rider ID.
	// Returns ErrProfileNotFound if no profile exists.
	Get(ctx context.Context, riderID string) (*Profile, error)

	// Upsert creates or replaces a profile.
	Upsert(ctx context.Context, profile *Profile) error

	// Delete removes a profile by rider ID.
	Delete(ctx context.Context, riderID string) error
}

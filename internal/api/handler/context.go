package handler

import (
	"context"

	"github.com/pedalwatt/pedalwatt/internal/api/middleware"
)

// GetRiderID retrieves the authenticated rider ID from the context.
// This is a convenience wrapper around middleware.GetRiderID.
func GetRiderID(ctx context.Context) string {
	return middleware.GetRiderID(ctx)
}

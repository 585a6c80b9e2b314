package rider

import (
	"context"
	"errors"
	"time"

	"github.com/pedalwatt/pedalwatt/internal/api/models"
	"github.com/pedalwatt/pedalwatt/internal/estimate"
	"github.com/pedalwatt/pedalwatt/internal/physics"
)

// Validation bounds. Values outside these are recording errors, not riders.
const (
	MinRiderMassKg = 30.0
	MaxRiderMassKg = 200.0
	MinBikeMassKg  = 3.0
	MaxBikeMassKg  = 30.0
)

// Service provides rider profile operations.
type Service struct {
	repo Repository
}

// NewService creates a new rider service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get retrieves a rider's profile.
func (s *Service) Get(ctx context.Context, riderID string) (*Profile, error) {
	return s.repo.Get(ctx, riderID)
}

// ParametersFor returns the rider's saved parameters, or the defaults when
// no profile exists.
func (s *Service) ParametersFor(ctx context.Context, riderID string) (estimate.Parameters, error) {
	profile, err := s.repo.Get(ctx, riderID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return estimate.DefaultParameters(), nil
		}
		return estimate.Parameters{}, err
	}
	return profile.Parameters, nil
}

// Put creates or replaces a rider's profile.
func (s *Service) Put(ctx context.Context, riderID string, input *models.ProfilePutRequest) (*Profile, error) {
	if fieldErrors := validateProfileInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	windEnabled := true
	if input.WindEnabled != nil {
		windEnabled = *input.WindEnabled
	}

	surface := physics.Surface(input.Surface)
	if input.Surface == "" {
		surface = physics.SurfaceAsphalt
	}

	now := time.Now()
	profile := &Profile{
		RiderID: riderID,
		Parameters: estimate.Parameters{
			RiderMassKg: input.RiderMassKg,
			BikeMassKg:  input.BikeMassKg,
			Surface:     surface,
			WindEnabled: windEnabled,
		},
		HomeLat:   input.HomeLat,
		HomeLon:   input.HomeLon,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if existing, err := s.repo.Get(ctx, riderID); err == nil {
		profile.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// Delete removes a rider's profile.
func (s *Service) Delete(ctx context.Context, riderID string) error {
	if _, err := s.repo.Get(ctx, riderID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, riderID)
}

// validateProfileInput validates a profile put request.
func validateProfileInput(input *models.ProfilePutRequest) []models.FieldError {
	var errs []models.FieldError

	if input.RiderMassKg < MinRiderMassKg || input.RiderMassKg > MaxRiderMassKg {
		errs = append(errs, models.FieldError{
			Field:   "riderMassKg",
			Message: "must be between 30 and 200",
		})
	}

	if input.BikeMassKg < MinBikeMassKg || input.BikeMassKg > MaxBikeMassKg {
		errs = append(errs, models.FieldError{
			Field:   "bikeMassKg",
			Message: "must be between 3 and 30",
		})
	}

	if input.Surface != "" && !physics.Surface(input.Surface).Valid() {
		errs = append(errs, models.FieldError{
			Field:   "surface",
			Message: "must be one of asphalt, concrete, gravel, dirt, mountain",
		})
	}

	if input.HomeLat != nil && (*input.HomeLat < -90 || *input.HomeLat > 90) {
		errs = append(errs, models.FieldError{
			Field:   "homeLat",
			Message: "must be between -90 and 90",
		})
	}

	if input.HomeLon != nil && (*input.HomeLon < -180 || *input.HomeLon > 180) {
		errs = append(errs, models.FieldError{
			Field:   "homeLon",
			Message: "must be between -180 and 180",
		})
	}

	if (input.HomeLat == nil) != (input.HomeLon == nil) {
		errs = append(errs, models.FieldError{
			Field:   "homeLat",
			Message: "latitude and longitude must be set together",
		})
	}

	return errs
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

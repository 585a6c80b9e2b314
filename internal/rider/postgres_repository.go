package rider

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedalwatt/pedalwatt/internal/physics"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL rider repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a profile by rider ID.
func (r *PostgresRepository) Get(ctx context.Context, riderID string) (*Profile, error) {
	query := `
		SELECT
			rider_id, rider_mass_kg, bike_mass_kg, surface, wind_enabled,
			home_lat, home_lon, created_at, updated_at
		FROM rider_profiles
		WHERE rider_id = $1
	`

	var profile Profile
	var surface string

	err := r.pool.QueryRow(ctx, query, riderID).Scan(
		&profile.RiderID,
		&profile.Parameters.RiderMassKg,
		&profile.Parameters.BikeMassKg,
		&surface,
		&profile.Parameters.WindEnabled,
		&profile.HomeLat,
		&profile.HomeLon,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	profile.Parameters.Surface = physics.Surface(surface)
	return &profile, nil
}

// Upsert creates or replaces a profile.
func (r *PostgresRepository) Upsert(ctx context.Context, profile *Profile) error {
	query := `
		INSERT INTO rider_profiles (
			rider_id, rider_mass_kg, bike_mass_kg, surface, wind_enabled,
			home_lat, home_lon, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (rider_id) DO UPDATE SET
			rider_mass_kg = EXCLUDED.rider_mass_kg,
			bike_mass_kg = EXCLUDED.bike_mass_kg,
			surface = EXCLUDED.surface,
			wind_enabled = EXCLUDED.wind_enabled,
			home_lat = EXCLUDED.home_lat,
			home_lon = EXCLUDED.home_lon,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		profile.RiderID,
		profile.Parameters.RiderMassKg,
		profile.Parameters.BikeMassKg,
		string(profile.Parameters.Surface),
		profile.Parameters.WindEnabled,
		profile.HomeLat,
		profile.HomeLon,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	return err
}

// Delete removes a profile by rider ID.
func (r *PostgresRepository) Delete(ctx context.Context, riderID string) error {
	query := `DELETE FROM rider_profiles WHERE rider_id = $1`
	_, err := r.pool.Exec(ctx, query, riderID)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)

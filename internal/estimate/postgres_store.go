package estimate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of Store. Each entry is kept
// as a JSONB payload alongside its key columns and format version.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL estimate store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Load returns all entries written under the current format version. Entries
// from older format versions are deleted rather than migrated.
func (s *PostgresStore) Load(ctx context.Context) ([]Entry, error) {
	purge := `DELETE FROM estimate_cache WHERE format_version <> $1`
	if _, err := s.pool.Exec(ctx, purge, FormatVersion); err != nil {
		return nil, fmt.Errorf("purging stale cache entries: %w", err)
	}

	query := `
		SELECT payload
		FROM estimate_cache
		WHERE format_version = $1
	`

	rows, err := s.pool.Query(ctx, query, FormatVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decoding cache entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Save upserts the given entries. Estimates for a key never change, so a
// conflicting row is simply left in place.
func (s *PostgresStore) Save(ctx context.Context, entries []Entry) error {
	query := `
		INSERT INTO estimate_cache (
			ride_id, rider_mass_kg, bike_mass_kg, surface,
			wind_enabled, model_version, format_version, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ride_id, rider_mass_kg, bike_mass_kg, surface, wind_enabled, model_version)
		DO NOTHING
	`

	for _, entry := range entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding cache entry: %w", err)
		}

		_, err = s.pool.Exec(ctx, query,
			entry.Key.RideID,
			entry.Key.RiderMassKg,
			entry.Key.BikeMassKg,
			string(entry.Key.Surface),
			entry.Key.WindEnabled,
			entry.Key.ModelVersion,
			FormatVersion,
			payload,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// Purge removes all stored entries.
func (s *PostgresStore) Purge(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM estimate_cache`)
	return err
}

// Ensure PostgresStore implements Store interface.
var _ Store = (*PostgresStore)(nil)

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/stats"
)

const recordsTable = "geocoded_addresses"

const schemaQuery = `
	CREATE TABLE IF NOT EXISTS geocoded_addresses (
		run_id            TEXT             NOT NULL,
		synthetic_id      INTEGER          NOT NULL,
		street            TEXT             NOT NULL,
		city              TEXT             NOT NULL,
		state             TEXT             NOT NULL,
		postal_code       TEXT             NOT NULL,
		latitude          DOUBLE PRECISION,
		longitude         DOUBLE PRECISION,
		geocoding_service TEXT,
		match_score       TEXT,
		created_at        TIMESTAMPTZ      NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS provider_stats (
		run_id    TEXT    NOT NULL,
		provider  TEXT    NOT NULL,
		successes BIGINT  NOT NULL,
		failures  BIGINT  NOT NULL,
		PRIMARY KEY (run_id, provider)
	);
`

const insertStatsQuery = `
	INSERT INTO provider_stats (run_id, provider, successes, failures)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (run_id, provider)
	DO UPDATE SET successes = EXCLUDED.successes, failures = EXCLUDED.failures;
`

// RecordColumns is the column order used when copying records.
var RecordColumns = []string{
	"run_id", "synthetic_id", "street", "city", "state", "postal_code",
	"latitude", "longitude", "geocoding_service", "match_score",
}

// EnsureSchema creates the output tables if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaQuery); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRecords bulk-loads records with COPY. Unresolved records are stored with
// NULL coordinates.
func (r *Repository) SaveRecords(ctx context.Context, runID string, records []models.GeocodedRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		var lat, lon *float64
		var service, score *string
		if rec.Geometry != nil {
			lat, lon = &rec.Geometry.Latitude, &rec.Geometry.Longitude
			svc := string(rec.Service)
			service, score = &svc, &rec.MatchScore
		}
		rows = append(rows, []any{
			runID, int(rec.ID), rec.Street, rec.City, rec.State, rec.PostalCode,
			lat, lon, service, score,
		})
	}

	copied, err := r.db.CopyFrom(ctx, pgx.Identifier{recordsTable}, RecordColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy geocoded records: %w", err)
	}

	r.log.DebugContext(ctx, "Geocoded records saved", "run_id", runID, "rows", copied)
	return copied, nil
}

// SaveStats stores the provider counters of a run, replacing earlier values.
func (r *Repository) SaveStats(ctx context.Context, runID string, snapshot stats.Snapshot) error {
	for _, provider := range snapshot.Providers() {
		s := snapshot.Get(provider)
		if _, err := r.db.Exec(ctx, insertStatsQuery, runID, string(provider), s.Successes, s.Failures); err != nil {
			return fmt.Errorf("failed to save stats for %s: %w", provider, err)
		}
	}
	return nil
}

// CountResolved returns how many records of a run have coordinates.
func (r *Repository) CountResolved(ctx context.Context, runID string) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT count(*) FROM `+recordsTable+` WHERE run_id = $1 AND latitude IS NOT NULL;`, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to count resolved records: %w", err)
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		if err = rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to scan count: %w", err)
		}
	}
	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read row: %w", err)
	}
	return count, nil
}

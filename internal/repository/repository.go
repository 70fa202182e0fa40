package repository

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/stats"
)

// Repository writes a run's geocoded table and provider counters to Postgres.
type Repository struct {
	db  Database
	log *slog.Logger
}

type Interface interface {
	EnsureSchema(ctx context.Context) error
	SaveRecords(ctx context.Context, runID string, records []models.GeocodedRecord) (int64, error)
	SaveStats(ctx context.Context, runID string, snapshot stats.Snapshot) error
	CountResolved(ctx context.Context, runID string) (int, error)
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

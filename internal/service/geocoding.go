package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/UnknownOlympus/meridian/internal/chunker"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/observability"
	"github.com/UnknownOlympus/meridian/internal/reconcile"
	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/UnknownOlympus/meridian/internal/stats"
)

// BulkGeocoder resolves one batch in a single submission.
type BulkGeocoder interface {
	Geocode(ctx context.Context, batch models.Batch) []models.BulkResult
}

// Resolver runs addresses through the fallback cascade.
type Resolver interface {
	ResolveAll(ctx context.Context, addrs []models.Address) []models.CascadeResult
}

// Result is the outcome of one pipeline run.
type Result struct {
	Records    []models.GeocodedRecord
	Stats      stats.Snapshot
	Batches    int
	Unsendable int
	// BulkResolved and CascadeResolved count results applied in each pass.
	BulkResolved    int
	CascadeResolved int
	// Discarded counts results whose ID matched no row.
	Discarded int
	Resolved  int
	Elapsed   time.Duration
}

// Unresolved returns the number of rows left without a geometry.
func (r Result) Unresolved() int { return len(r.Records) - r.Resolved }

// GeocodingService drives a table through the bulk geocoder and the fallback
// cascade and merges both passes into one record per row.
type GeocodingService struct {
	log     *slog.Logger         // Logger for logging service activities
	chunker *chunker.Chunker     // Splits the table into bulk batches
	bulk    BulkGeocoder         // Pass 1
	cascade Resolver             // Pass 2
	tracker *stats.Tracker       // Shared with bulk and cascade, read at the end of Run
	metrics *metrics.Metrics     // Metrics for tracking service performance
	repo    repository.Interface // Optional sink, nil when disabled
	tracer  trace.Tracer
}

// NewGeocodingService creates a new instance of GeocodingService. tracker must
// be the same Tracker the bulk adapter and the cascade record into. repo may
// be nil.
func NewGeocodingService(
	log *slog.Logger,
	chk *chunker.Chunker,
	bulk BulkGeocoder,
	cascade Resolver,
	tracker *stats.Tracker,
	metrics *metrics.Metrics,
	repo repository.Interface,
) *GeocodingService {
	return &GeocodingService{
		log:     log,
		chunker: chk,
		bulk:    bulk,
		cascade: cascade,
		tracker: tracker,
		metrics: metrics,
		repo:    repo,
		tracer:  observability.Tracer(),
	}
}

// WithTracer replaces the service's tracer.
func (gs *GeocodingService) WithTracer(tracer trace.Tracer) *GeocodingService {
	gs.tracer = tracer
	return gs
}

// Run geocodes addrs. Rows must already carry synthetic IDs (see
// chunker.AssignIDs). Provider failures never abort the run; when ctx is
// cancelled the remaining work is skipped and the partially reconciled table
// is returned.
func (gs *GeocodingService) Run(ctx context.Context, addrs []models.Address) Result {
	ctx, span := gs.tracer.Start(ctx, "service.Run", trace.WithAttributes(attribute.Int("rows", len(addrs))))
	defer span.End()

	start := time.Now()
	logDiagnostics(ctx, gs.log, addrs)

	plan := gs.chunker.Partition(addrs)
	table := reconcile.NewTable(addrs, gs.log)
	result := Result{Batches: len(plan.Batches), Unsendable: len(plan.Unsendable)}

	gs.log.InfoContext(ctx, "Starting bulk pass",
		"rows", len(addrs),
		"batches", len(plan.Batches),
		"batch_size", gs.chunker.Size(),
		"unsendable", len(plan.Unsendable))

	for _, batch := range plan.Batches {
		if ctx.Err() != nil {
			gs.log.WarnContext(ctx, "Run cancelled, skipping remaining batches", "next_batch", batch.Index)
			break
		}

		results := gs.bulk.Geocode(ctx, batch)
		applied, errs := table.ApplyBulk(ctx, results)
		result.BulkResolved += applied
		result.Discarded += len(errs)

		lo, hi := batch.IDRange()
		gs.log.InfoContext(ctx, "Batch reconciled",
			"batch", batch.Index,
			"first_id", lo,
			"last_id", hi,
			"submitted", batch.Len(),
			"matched", applied)
	}

	pending := table.Unresolved()
	if len(pending) > 0 && ctx.Err() == nil {
		gs.log.InfoContext(ctx, "Starting fallback cascade", "rows", len(pending))

		applied, errs := table.ApplyCascade(ctx, gs.cascade.ResolveAll(ctx, pending))
		result.CascadeResolved = applied
		result.Discarded += len(errs)
	}

	result.Records = table.Records()
	result.Resolved = table.Resolved()
	result.Stats = gs.tracker.Snapshot()
	result.Elapsed = time.Since(start)

	gs.countResolved(result.Records)

	span.SetAttributes(
		attribute.Int("rows.resolved", result.Resolved),
		attribute.Int("results.discarded", result.Discarded),
	)
	gs.log.InfoContext(ctx, "Geocoding run finished",
		"rows", len(result.Records),
		"resolved", result.Resolved,
		"unresolved", result.Unresolved(),
		"bulk", result.BulkResolved,
		"cascade", result.CascadeResolved,
		"discarded", result.Discarded,
		"elapsed", result.Elapsed)

	return result
}

// Prepare assigns IDs when the table has none and partitions it without
// calling any provider. It backs the offline batch-file workflow.
func Prepare(
	ctx context.Context,
	log *slog.Logger,
	chk *chunker.Chunker,
	addrs []models.Address,
	hasIDs bool,
) ([]models.Address, chunker.Plan) {
	if !hasIDs {
		addrs = chunker.AssignIDs(addrs)
	}
	logDiagnostics(ctx, log, addrs)

	plan := chk.Partition(addrs)
	log.InfoContext(ctx, "Table partitioned",
		"rows", len(addrs),
		"batches", len(plan.Batches),
		"unsendable", len(plan.Unsendable))

	return addrs, plan
}

// Persist writes the run to the configured repository. It is a no-op without
// one.
func (gs *GeocodingService) Persist(ctx context.Context, runID string, result Result) error {
	if gs.repo == nil {
		return nil
	}

	if err := gs.repo.EnsureSchema(ctx); err != nil {
		return eris.Wrap(err, "failed to prepare database schema")
	}

	saved, err := gs.repo.SaveRecords(ctx, runID, result.Records)
	if err != nil {
		return eris.Wrapf(err, "failed to save records for run %s", runID)
	}

	if err = gs.repo.SaveStats(ctx, runID, result.Stats); err != nil {
		return eris.Wrapf(err, "failed to save provider stats for run %s", runID)
	}

	stored, err := gs.repo.CountResolved(ctx, runID)
	if err != nil {
		return eris.Wrapf(err, "failed to count stored matches for run %s", runID)
	}
	if stored != result.Resolved {
		gs.log.WarnContext(ctx, "Stored matches differ from run result",
			"run_id", runID, "stored", stored, "resolved", result.Resolved)
	}

	gs.log.InfoContext(ctx, "Run saved to database", "run_id", runID, "records", saved, "resolved", stored)
	return nil
}

func logDiagnostics(ctx context.Context, log *slog.Logger, addrs []models.Address) {
	d := chunker.Diagnose(addrs)
	log.DebugContext(ctx, "Input diagnostics",
		"rows", d.Rows,
		"missing_street", d.MissingStreet,
		"missing_city", d.MissingCity,
		"missing_state", d.MissingState,
		"missing_postal", d.MissingPostal,
		"postal_lengths", d.PostalLengths)
}

func (gs *GeocodingService) countResolved(records []models.GeocodedRecord) {
	if gs.metrics == nil {
		return
	}
	for _, r := range records {
		if r.Resolved() {
			gs.metrics.RowsResolved.WithLabelValues(string(r.Service)).Inc()
		}
	}
}

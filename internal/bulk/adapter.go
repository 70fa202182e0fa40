// Package bulk submits address batches to the Census batch geocoder and
// normalizes its per-row results.
package bulk

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/observability"
	"github.com/UnknownOlympus/meridian/internal/retry"
	"github.com/UnknownOlympus/meridian/internal/stats"
)

// DefaultMinInterval is the minimum delay between two batch submissions.
const DefaultMinInterval = 10 * time.Second

// Options tunes an Adapter. Zero values select defaults.
type Options struct {
	MinInterval time.Duration
	Retry       retry.Config
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
}

// Adapter turns a Batch into BulkResults. Submissions are serialized and
// paced; a failed submission yields no results, so every row of the batch
// falls through to the cascade.
type Adapter struct {
	client  Client
	limiter *rate.Limiter
	retry   retry.Config
	stats   stats.Recorder
	metrics *metrics.Metrics
	tracer  trace.Tracer
	log     *slog.Logger

	mu sync.Mutex // one submission in flight
}

// NewAdapter creates a bulk adapter that reports each submission to recorder.
func NewAdapter(client Client, recorder stats.Recorder, opts Options, log *slog.Logger) *Adapter {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.Tracer()
	}

	return &Adapter{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		retry:   opts.Retry,
		stats:   recorder,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
		log:     log,
	}
}

// Geocode submits batch and returns the normalized results. It never returns
// an error: failures are logged, counted once against the census provider,
// and produce an empty result set.
func (a *Adapter) Geocode(ctx context.Context, batch models.Batch) []models.BulkResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	minID, maxID := batch.IDRange()
	ctx, span := a.tracer.Start(ctx, "bulk.Geocode", trace.WithAttributes(
		attribute.Int("batch.index", batch.Index),
		attribute.Int("batch.size", batch.Len()),
	))
	defer span.End()

	log := a.log.With("batch", batch.Index, "min_id", minID, "max_id", maxID)

	if batch.Len() == 0 {
		return nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		log.WarnContext(ctx, "Bulk submission cancelled before sending", "error", err)
		span.SetStatus(codes.Error, "cancelled")
		return nil
	}

	var payload bytes.Buffer
	if err := EncodeBatch(&payload, batch); err != nil {
		a.fail(ctx, span, log, err, 0)
		return nil
	}

	log.InfoContext(ctx, "Submitting batch to bulk geocoder", "size", batch.Len())
	if a.metrics != nil {
		a.metrics.BatchesSent.Inc()
	}

	start := time.Now()
	attempt := 0
	body, err := retry.Do(ctx, a.retry, log, "census batch", func(ctx context.Context) ([]byte, error) {
		// Retries are submissions too and keep the same minimum spacing.
		if attempt > 0 {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "bulk: wait before resubmitting")
			}
		}
		attempt++
		return a.client.Submit(ctx, payload.Bytes())
	})
	if err != nil {
		a.fail(ctx, span, log, err, time.Since(start))
		return nil
	}

	results, err := DecodeResults(bytes.NewReader(body), log)
	if err != nil {
		a.fail(ctx, span, log, err, time.Since(start))
		return nil
	}

	a.stats.RecordSuccess(models.ServiceCensus)
	a.metrics.ObserveCall(string(models.ServiceCensus), metrics.OutcomeSuccess, time.Since(start).Seconds())

	matched := 0
	for _, r := range results {
		if r.Matched {
			matched++
		}
	}
	span.SetAttributes(attribute.Int("batch.matched", matched))
	log.InfoContext(ctx, "Bulk batch processed", "results", len(results), "matched", matched)

	return results
}

func (a *Adapter) fail(ctx context.Context, span trace.Span, log *slog.Logger, err error, elapsed time.Duration) {
	a.stats.RecordFailure(models.ServiceCensus)
	a.metrics.ObserveCall(string(models.ServiceCensus), metrics.OutcomeError, elapsed.Seconds())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.ErrorContext(ctx, "Bulk batch failed, rows fall through to the cascade", "error", err)
}

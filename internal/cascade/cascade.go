// Package cascade resolves addresses the bulk geocoder could not match by
// trying single-address providers in a fixed order.
package cascade

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/UnknownOlympus/meridian/internal/geocoding"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/observability"
	"github.com/UnknownOlympus/meridian/internal/retry"
	"github.com/UnknownOlympus/meridian/internal/stats"
)

// Options tunes a Cascade. Zero values select defaults.
type Options struct {
	Workers int
	Retry   retry.Config
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

// Cascade runs addresses through its steps until one accepts a match.
type Cascade struct {
	steps   []Step
	stats   stats.Recorder
	retry   retry.Config
	workers int
	metrics *metrics.Metrics
	tracer  trace.Tracer
	log     *slog.Logger
}

// New creates a cascade over steps, in order.
func New(steps []Step, recorder stats.Recorder, opts Options, log *slog.Logger) *Cascade {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.Tracer()
	}

	return &Cascade{
		steps:   steps,
		stats:   recorder,
		retry:   opts.Retry,
		workers: opts.Workers,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
		log:     log,
	}
}

// Steps returns the provider names in cascade order.
func (c *Cascade) Steps() []models.Service {
	names := make([]models.Service, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.Provider.Name()
	}
	return names
}

// Resolve tries each step in order and returns the first accepted match.
// Provider errors are counted, logged and treated as a miss. When every step
// misses, the result carries no coordinates.
func (c *Cascade) Resolve(ctx context.Context, addr models.Address) models.CascadeResult {
	ctx, span := c.tracer.Start(ctx, "cascade.Resolve", trace.WithAttributes(attribute.Int("address.id", int(addr.ID))))
	defer span.End()

	result := models.CascadeResult{ID: addr.ID}
	line := addr.OneLine()

	for _, step := range c.steps {
		if ctx.Err() != nil {
			c.log.WarnContext(ctx, "Cascade interrupted", "id", addr.ID, "error", ctx.Err())
			return result
		}

		candidate, ok := c.try(ctx, step, addr.ID, line)
		if !ok {
			continue
		}

		coords := candidate.Coordinates
		result.Coordinates = &coords
		result.Service = step.Provider.Name()
		result.MatchLabel = candidate.Label
		span.SetAttributes(attribute.String("cascade.service", string(result.Service)))
		return result
	}

	c.log.DebugContext(ctx, "No provider accepted the address", "id", addr.ID, "address", line)
	return result
}

// try invokes one step. A retried call still counts as one invocation.
func (c *Cascade) try(ctx context.Context, step Step, id models.SyntheticID, line string) (geocoding.Candidate, bool) {
	name := step.Provider.Name()
	start := time.Now()

	candidates, err := retry.Do(ctx, c.retry, c.log, string(name), func(ctx context.Context) ([]geocoding.Candidate, error) {
		return step.Provider.Geocode(ctx, line)
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		// Interrupted calls are not invocations.
		if ctx.Err() != nil {
			c.log.DebugContext(ctx, "Provider call interrupted", "provider", name, "id", id)
			return geocoding.Candidate{}, false
		}
		c.stats.RecordFailure(name)
		if errors.Is(err, geocoding.ErrNoMatch) {
			c.metrics.ObserveCall(string(name), metrics.OutcomeMiss, elapsed)
			c.log.DebugContext(ctx, "Provider returned no match", "provider", name, "id", id)
			return geocoding.Candidate{}, false
		}
		c.metrics.ObserveCall(string(name), metrics.OutcomeError, elapsed)
		c.log.ErrorContext(ctx, "Provider call failed", "id", id, "error", geocoding.NewProviderError(name, err))
		return geocoding.Candidate{}, false
	}

	candidate, ok := step.Policy.Accept(candidates)
	if !ok {
		c.stats.RecordFailure(name)
		c.metrics.ObserveCall(string(name), metrics.OutcomeMiss, elapsed)
		c.log.DebugContext(ctx, "Provider match rejected", "provider", name, "id", id, "policy", step.Policy.String())
		return geocoding.Candidate{}, false
	}

	c.stats.RecordSuccess(name)
	c.metrics.ObserveCall(string(name), metrics.OutcomeSuccess, elapsed)
	return candidate, true
}

// ResolveAll resolves addrs with the configured number of workers. Results
// are returned in input order.
func (c *Cascade) ResolveAll(ctx context.Context, addrs []models.Address) []models.CascadeResult {
	results := make([]models.CascadeResult, len(addrs))
	if len(addrs) == 0 {
		return results
	}

	c.log.InfoContext(ctx, "Starting cascade worker pool", "jobs", len(addrs), "num_workers", c.workers)

	jobs := make(chan int, len(addrs))
	var wgr sync.WaitGroup

	for i := 1; i <= c.workers; i++ {
		wgr.Add(1)
		go c.worker(ctx, i, &wgr, jobs, addrs, results)
	}

	for idx := range addrs {
		jobs <- idx
	}
	close(jobs)

	wgr.Wait()
	c.log.InfoContext(ctx, "Cascade finished")

	return results
}

// worker resolves the addresses whose indices arrive on jobs. Each index is
// written by exactly one worker.
func (c *Cascade) worker(
	ctx context.Context,
	idx int,
	wg *sync.WaitGroup,
	jobs <-chan int,
	addrs []models.Address,
	results []models.CascadeResult,
) {
	defer wg.Done()
	for job := range jobs {
		addr := addrs[job]
		if ctx.Err() != nil {
			results[job] = models.CascadeResult{ID: addr.ID}
			continue
		}

		if c.metrics != nil {
			c.metrics.ActiveWorkers.Inc()
		}
		c.log.DebugContext(ctx, "Resolving address", "worker", idx, "id", addr.ID)

		results[job] = c.Resolve(ctx, addr)

		if c.metrics != nil {
			c.metrics.ActiveWorkers.Dec()
		}
	}
}

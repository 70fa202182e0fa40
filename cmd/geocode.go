package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/UnknownOlympus/meridian/internal/bulk"
	"github.com/UnknownOlympus/meridian/internal/cascade"
	"github.com/UnknownOlympus/meridian/internal/chunker"
	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/observability"
	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/UnknownOlympus/meridian/internal/retry"
	"github.com/UnknownOlympus/meridian/internal/service"
	"github.com/UnknownOlympus/meridian/internal/stats"
	"github.com/UnknownOlympus/meridian/internal/table"
)

type geocodeOptions struct {
	input     string
	output    string
	idColumn  string
	shapefile string
}

func geocodeCmd() *cobra.Command {
	var opts geocodeOptions

	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Geocode an address table",
		Long: `Geocode a CSV or XLSX address table and write it back with geometry,
geocoding_service and match_score columns.

Examples:
  meridian geocode --input addresses.csv --output geocoded.csv
  meridian geocode --input addresses.xlsx --output geocoded.csv --shapefile points.shp
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGeocode(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "address table (.csv or .xlsx)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output CSV path")
	cmd.Flags().StringVar(&opts.idColumn, "id-column", "", "existing ID column (default: assign IDs in input order)")
	cmd.Flags().StringVar(&opts.shapefile, "shapefile", "", "also write resolved rows as a point shapefile")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runGeocode(ctx context.Context, opts geocodeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Env)

	tracing, err := observability.Init(ctx, observability.Config{
		ServiceName:  "meridian",
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.Insecure,
	})
	if err != nil {
		return eris.Wrap(err, "failed to initialize tracing")
	}
	defer func() {
		if shutdownErr := tracing.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.ErrorContext(ctx, "Failed to flush traces", "error", shutdownErr)
		}
	}()

	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	in, err := readTable(opts.input, opts.idColumn, cfg)
	if err != nil {
		return err
	}
	addrs := in.Addresses
	if !in.HasIDs {
		addrs = in.EnsureIDColumn(chunker.AssignIDs(addrs), cfg.Output.IDColumn)
	}
	logger.InfoContext(ctx, "Address table loaded", "path", opts.input, "rows", len(addrs), "id_column", in.IDColumn)

	steps, err := buildSteps(cfg, logger)
	if err != nil {
		return err
	}
	tracker := stats.NewTracker(trackedServices(steps)...)

	chk, err := chunker.New(cfg.Batch.Size, logger)
	if err != nil {
		return err
	}

	adapter := bulk.NewAdapter(
		bulk.NewCensusClient(cfg.Bulk.URL, cfg.Bulk.Timeout, logger),
		tracker,
		bulk.Options{
			MinInterval: cfg.Bulk.MinInterval,
			Retry:       retryConfig(cfg.Bulk.Retries),
			Metrics:     appMetrics,
			Tracer:      tracing.Tracer,
		},
		logger,
	)

	resolver := cascade.New(steps, tracker, cascade.Options{
		Workers: cfg.Cascade.Workers,
		Retry:   retryConfig(cfg.Cascade.Retries),
		Metrics: appMetrics,
		Tracer:  tracing.Tracer,
	}, logger)

	var (
		repo repository.Interface
		db   pinger
	)
	if cfg.Database.Enabled {
		pool, dbErr := repository.NewDatabase(
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if dbErr != nil {
			return eris.Wrap(dbErr, "failed to connect to DB")
		}
		defer pool.Close()

		repo = repository.NewRepository(pool, logger)
		db = pool
	}

	if cfg.Metrics.Port > 0 {
		// Start the monitoring server in a goroutine so the run is not blocked.
		go startMonitoringServer(ctx, logger, reg, db, cfg.Metrics.Port)
	}

	geoService := service.NewGeocodingService(logger, chk, adapter, resolver, tracker, appMetrics, repo).
		WithTracer(tracing.Tracer)

	result := geoService.Run(ctx, addrs)
	if ctx.Err() != nil {
		logger.WarnContext(ctx, "Run interrupted, writing partial results")
	}

	// The run may have been cancelled; outputs are still written.
	outCtx := context.WithoutCancel(ctx)

	if err = writeOutputs(outCtx, logger, opts, in.Header, result); err != nil {
		return err
	}

	if err = geoService.Persist(outCtx, runID(), result); err != nil {
		return err
	}

	result.Stats.Render(os.Stdout)

	if cfg.Metrics.Pushgateway != "" {
		if pushErr := appMetrics.Push(outCtx, cfg.Metrics.Pushgateway, cfg.Metrics.Job); pushErr != nil {
			logger.ErrorContext(outCtx, "Failed to push metrics", "error", pushErr)
		}
	}

	return nil
}

func writeOutputs(ctx context.Context, log *slog.Logger, opts geocodeOptions, header []string, result service.Result) error {
	if err := table.WriteCSVFile(opts.output, header, result.Records); err != nil {
		return err
	}
	log.InfoContext(ctx, "Geocoded table written",
		"path", opts.output,
		"rows", len(result.Records),
		"resolved", result.Resolved)

	if opts.shapefile == "" {
		return nil
	}

	points, err := table.WriteShapefile(opts.shapefile, result.Records)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "Shapefile written", "path", opts.shapefile, "points", points)
	return nil
}

func readTable(path, idColumn string, cfg *config.Config) (*table.Input, error) {
	cols := table.Columns{
		ID:         cfg.Input.IDColumn,
		Street:     cfg.Input.Street,
		City:       cfg.Input.City,
		State:      cfg.Input.State,
		PostalCode: cfg.Input.PostalCode,
	}
	if idColumn != "" {
		cols.ID = idColumn
	}
	return table.ReadFile(path, cols)
}

func retryConfig(retries uint64) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = retries
	return rc
}

func runID() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/UnknownOlympus/meridian/internal/chunker"
	"github.com/UnknownOlympus/meridian/internal/service"
	"github.com/UnknownOlympus/meridian/internal/table"
)

type prepareOptions struct {
	input    string
	batchDir string
	idOutput string
	idColumn string
	tag      string
}

func prepareCmd() *cobra.Command {
	var opts prepareOptions

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Write offline bulk batch files",
		Long: `Split an address table into files ready for manual upload to the Census
batch geocoder, and write the source table with its ID column so results can
be joined back later.

Examples:
  meridian prepare --input addresses.csv --batch-dir batches --id-output tagged.csv
  meridian prepare --input addresses.xlsx --batch-dir batches --id-output tagged.csv --tag 2024
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrepare(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "address table (.csv or .xlsx)")
	cmd.Flags().StringVar(&opts.batchDir, "batch-dir", "", "directory for batch files (default: output.batch_dir)")
	cmd.Flags().StringVar(&opts.idOutput, "id-output", "", "path of the ID-tagged source table")
	cmd.Flags().StringVar(&opts.idColumn, "id-column", "", "existing ID column (default: assign IDs in input order)")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "tag inserted into batch file names (default: output.tag)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("id-output")

	return cmd
}

func runPrepare(ctx context.Context, opts prepareOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Env)

	if opts.batchDir == "" {
		opts.batchDir = cfg.Output.BatchDir
	}
	if opts.batchDir == "" {
		return eris.New("no batch directory: set --batch-dir or output.batch_dir")
	}
	if opts.tag == "" {
		opts.tag = cfg.Output.Tag
	}

	in, err := readTable(opts.input, opts.idColumn, cfg)
	if err != nil {
		return err
	}

	chk, err := chunker.New(cfg.Batch.Size, logger)
	if err != nil {
		return err
	}

	addrs, plan := service.Prepare(ctx, logger, chk, in.Addresses, in.HasIDs)
	addrs = in.EnsureIDColumn(addrs, cfg.Output.IDColumn)

	paths, err := table.WriteBatchFiles(opts.batchDir, opts.tag, plan.Batches)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.idOutput)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", opts.idOutput)
	}
	if err = table.WriteSourceCSV(f, in.Header, addrs); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return eris.Wrapf(err, "failed to close %s", opts.idOutput)
	}

	for _, verr := range plan.Invalid {
		logger.WarnContext(ctx, "Row left out of batch files", "error", verr)
	}
	logger.InfoContext(ctx, "Batch files written",
		"dir", opts.batchDir,
		"files", len(paths),
		"unsendable", len(plan.Unsendable),
		"id_table", opts.idOutput)

	return nil
}

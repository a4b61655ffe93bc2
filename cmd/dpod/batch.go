package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/batch"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		opts    batch.Options
		out     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Process every document in a folder",
		Long: `Process every PDF and image in DIR (sorted by name), upsert one ledger row per
document and print a summary.

A document that cannot be read is recorded as Failed and the run continues.
The command fails only when the folder cannot be scanned or a ledger write fails.`,
		Example: `  dpod batch ./inference_input
  dpod batch ./inference_input --pdf-only --workers 8 --out results.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if out != "" {
				a.cfg.Ledger.Path = out
			}
			if opts.Workers <= 0 {
				opts.Workers = a.cfg.Batch.Workers
			}
			opts.Timeout = timeout
			if !cmd.Flags().Changed("timeout") {
				opts.Timeout = a.cfg.Batch.ProcessTimeout
			}
			opts.OutputFile = a.cfg.Ledger.Path
			if a.cfg.Ledger.Backend == common.BackendPostgres {
				opts.OutputFile = "postgres"
			}

			store, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			writer := ledger.NewWriter(store, opts.Workers*2)
			defer writer.Close()

			proc, closer, err := a.processor(ctx, writer, nil)
			if err != nil {
				return err
			}
			defer closer.Close()

			sum, runErr := batch.NewRunner(proc, a.logger).Run(ctx, args[0], opts)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILENAME\tSTATUS\tVALID\tERROR")
			for _, r := range sum.Results {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Filename, r.ProcessingStatus, r.IsValid, r.ErrorMessage)
			}
			_ = w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(),
				"\nrun %s: %d files, %d successful, %d partial, %d failed (%.1f%% success) in %.1fs\nledger: %s\n",
				sum.RunID, sum.TotalFiles, sum.Successful, sum.Partial, sum.Failed,
				sum.SuccessRate(), sum.ProcessingTime, sum.OutputFile)
			return runErr
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.PDFOnly, "pdf-only", false, "process only .pdf files")
	f.BoolVar(&opts.Recursive, "recursive", false, "descend into subfolders")
	f.BoolVar(&opts.SkipHidden, "skip-hidden", true, "ignore dotfiles and dot-folders")
	f.IntVar(&opts.Workers, "workers", 0, "documents processed in parallel (BATCH_WORKERS)")
	f.StringVar(&out, "out", "", "ledger path for this run (overrides LEDGER_PATH)")
	f.DurationVar(&timeout, "timeout", 0, "per-document time limit (PROCESS_TIMEOUT)")
	return cmd
}

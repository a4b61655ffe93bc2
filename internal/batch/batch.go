// Package batch processes every document in a folder and reports a summary.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ingest"
)

// FileProcessor is the part of core.Processor a batch drives.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string, opts core.FileOptions) (entity.DocumentResult, error)
}

type Options struct {
	Workers    int
	PDFOnly    bool
	Recursive  bool
	SkipHidden bool
	// Timeout bounds each document; zero means none.
	Timeout time.Duration
	// OutputFile is reported in the summary as the ledger location.
	OutputFile string
}

type Runner struct {
	proc   FileProcessor
	logger *slog.Logger
	now    func() time.Time
}

func NewRunner(proc FileProcessor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{proc: proc, logger: logger, now: time.Now}
}

// Run processes the documents in dir with opts.Workers in parallel. Results
// keep the sorted input order. Document failures are counted, not returned;
// the error reports scan failures and ledger write failures.
func (r *Runner) Run(ctx context.Context, dir string, opts Options) (entity.BatchSummary, error) {
	start := r.now()
	sum := entity.BatchSummary{RunID: uuid.NewString(), OutputFile: opts.OutputFile}
	ctx = common.WithRunID(ctx, sum.RunID)
	logger := r.logger.With("run_id", sum.RunID, "dir", dir)

	scan := ingest.Options{SkipHidden: opts.SkipHidden, Recursive: opts.Recursive}
	if opts.PDFOnly {
		scan.Exts = ingest.PDFOnly
	}
	files, stats, err := ingest.Scan(ctx, dir, scan)
	if err != nil {
		logger.Error("batch.scan.failed", "error", err)
		return sum, err
	}
	logger.Info("batch.scan.ok",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"failed", stats.Failed,
	)
	if len(files) == 0 {
		logger.Warn("batch.empty")
		sum.ProcessingTime = r.now().Sub(start).Seconds()
		return sum, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	results := make([]entity.DocumentResult, len(files))
	var (
		mu        sync.Mutex
		ledgerErr []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		if f.Err != "" {
			results[i] = r.scanFailure(f)
			continue
		}
		g.Go(func() error {
			dctx, cancel := common.WithTimeout(gctx, opts.Timeout)
			defer cancel()
			res, err := r.proc.ProcessFile(dctx, f.Path, core.FileOptions{ProcessType: constants.ProcessBatch})
			results[i] = res
			if err != nil {
				mu.Lock()
				ledgerErr = append(ledgerErr, fmt.Errorf("%s: %w", f.Path, err))
				mu.Unlock()
			}
			// Cancellation of the whole run is the only thing that stops the group.
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("batch.cancelled", "error", err)
		return sum, err
	}

	for _, res := range results {
		sum.Count(res.ProcessingStatus)
		sum.Results = append(sum.Results, entity.RowFromResult(res))
	}
	sum.ProcessingTime = r.now().Sub(start).Seconds()
	logger.Info("batch.complete",
		"total", sum.TotalFiles,
		"successful", sum.Successful,
		"partial", sum.Partial,
		"failed", sum.Failed,
		"success_rate", sum.SuccessRate(),
		"elapsed_s", sum.ProcessingTime,
	)
	return sum, errors.Join(ledgerErr...)
}

// scanFailure is the result for a file the scan could not read. It never
// reaches the processor but is still a batch document.
func (r *Runner) scanFailure(f ingest.File) entity.DocumentResult {
	res := entity.FailedResult(filepath.Base(f.Path), errors.New(f.Err))
	now := r.now()
	res.Timing = entity.Timing{ProcessType: constants.ProcessBatch, Start: now, End: now}
	return res
}

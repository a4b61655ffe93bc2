package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/ocr"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/detect"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ingest"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// textByName serves page text keyed by file name; "fail" in the name fails recognition.
type textByName struct{}

func (textByName) Pages(_ context.Context, path string) ([]ocr.PageText, error) {
	name := filepath.Base(path)
	switch {
	case strings.Contains(name, "fail"):
		return nil, errors.New("unreadable")
	case strings.Contains(name, "partial"):
		return []ocr.PageText{{Page: 1, Text: "INVOICE NO: 7"}, {Page: 2, Err: "blank"}}, nil
	default:
		return core.TextPages("INVOICE NO: 7\nTOTAL QTY: 3"), nil
	}
}

func TestRunSummarizesAndPersists(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.pdf", "a.pdf", "b_partial.pdf", "d_fail.png", "notes.txt", ".hidden.pdf")

	out := filepath.Join(t.TempDir(), "results.xlsx")
	store := ledger.NewWriter(ledger.NewXLSX(out, "Results", nil, nil), 8)
	defer store.Close()
	proc := core.NewProcessor(nil, textByName{}, detect.StaticSource{Signals: entity.Signals{HasSignature: true, HasSticker: true}}, 0, store, nil)

	sum, err := NewRunner(proc, nil).Run(context.Background(), dir, Options{Workers: 3, SkipHidden: true, OutputFile: out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.RunID == "" || sum.OutputFile != out {
		t.Errorf("summary = %+v", sum)
	}
	if sum.TotalFiles != 4 || sum.Successful != 2 || sum.Partial != 1 || sum.Failed != 1 {
		t.Errorf("counts = %d/%d/%d/%d", sum.TotalFiles, sum.Successful, sum.Partial, sum.Failed)
	}
	if got := sum.SuccessRate(); got != 75 {
		t.Errorf("success rate = %v", got)
	}

	var names []string
	for _, r := range sum.Results {
		names = append(names, r.Filename)
		if r.ProcessType != constants.ProcessBatch {
			t.Errorf("%s process_type = %s", r.Filename, r.ProcessType)
		}
	}
	if strings.Join(names, ",") != "a.pdf,b_partial.pdf,c.pdf,d_fail.png" {
		t.Errorf("order = %v", names)
	}

	rows, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Errorf("ledger rows = %d, want 4", len(rows))
	}
}

func TestRunPDFOnly(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.jpg")
	proc := core.NewProcessor(nil, textByName{}, nil, 0, nil, nil)

	sum, err := NewRunner(proc, nil).Run(context.Background(), dir, Options{PDFOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalFiles != 1 || sum.Results[0].Filename != "a.pdf" {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunEmptyFolder(t *testing.T) {
	sum, err := NewRunner(core.NewProcessor(nil, textByName{}, nil, 0, nil, nil), nil).
		Run(context.Background(), t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalFiles != 0 || sum.SuccessRate() != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunMissingFolder(t *testing.T) {
	_, err := NewRunner(core.NewProcessor(nil, textByName{}, nil, 0, nil, nil), nil).
		Run(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
}

type failingStore struct{ ledger.Store }

func (failingStore) Upsert(context.Context, ...entity.LedgerRow) error {
	return common.ErrLedger
}

type countingProcessor struct {
	n    atomic.Int32
	proc *core.Processor
}

func (c *countingProcessor) ProcessFile(ctx context.Context, path string, opts core.FileOptions) (entity.DocumentResult, error) {
	c.n.Add(1)
	return c.proc.ProcessFile(ctx, path, opts)
}

func TestRunReportsLedgerErrorsButFinishes(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.pdf")
	cp := &countingProcessor{proc: core.NewProcessor(nil, textByName{}, nil, 0, failingStore{}, nil)}

	sum, err := NewRunner(cp, nil).Run(context.Background(), dir, Options{Workers: 2})
	if !errors.Is(err, common.ErrLedger) {
		t.Errorf("err = %v, want ledger error", err)
	}
	if cp.n.Load() != 2 || sum.TotalFiles != 2 {
		t.Errorf("processed = %d, total = %d", cp.n.Load(), sum.TotalFiles)
	}
}

func TestScanFailureIsBatchRow(t *testing.T) {
	at := time.Date(2025, 4, 14, 10, 0, 0, 0, time.UTC)
	r := NewRunner(nil, nil)
	r.now = func() time.Time { return at }

	res := r.scanFailure(ingest.File{Path: "/in/locked.pdf", Ext: ".pdf", Err: "permission denied"})
	row := entity.RowFromResult(res)
	if row.ProcessType != constants.ProcessBatch {
		t.Errorf("process_type = %q, want %q", row.ProcessType, constants.ProcessBatch)
	}
	if row.Filename != "locked.pdf" || row.ProcessingStatus != constants.StatusFailed || row.ErrorMessage != "permission denied" {
		t.Errorf("row = %+v", row)
	}
	if row.StartTime != at.Format(constants.TimestampLayout) {
		t.Errorf("start_time = %q", row.StartTime)
	}
}

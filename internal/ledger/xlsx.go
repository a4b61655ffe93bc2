package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
)

const backendXLSX = "xlsx"

// XLSX is a workbook-backed ledger. Each upsert is a full read-merge-write of
// the workbook, so it is not safe for concurrent use; Open wraps it in Locked.
type XLSX struct {
	path    string
	sheet   string
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewXLSX(path, sheet string, m *metrics.Metrics, logger *slog.Logger) *XLSX {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = "Results"
	}
	return &XLSX{path: path, sheet: sheet, metrics: m, logger: logger, now: time.Now}
}

// Path is the workbook location.
func (x *XLSX) Path() string { return x.path }

func (x *XLSX) Upsert(ctx context.Context, rows ...entity.LedgerRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := validateRows(rows); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	t, err := x.read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		t = newTable()
	case err != nil:
		// Unreadable workbook: keep it aside and write the new rows on their own.
		x.metrics.RecordFallback()
		moved := x.quarantine()
		x.logger.Warn("ledger.xlsx.fallback",
			"path", x.path,
			"moved_to", moved,
			"rows", len(rows),
			"error", err,
		)
		t = newTable()
	}

	t.upsert(dedupe(rows))
	err = x.write(t)
	x.metrics.RecordUpsert(backendXLSX, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrLedger, x.path, err)
	}
	x.logger.Info("ledger.xlsx.ok",
		"path", x.path,
		"upserted", len(rows),
		"rows", len(t.records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (x *XLSX) Lookup(ctx context.Context, filename string) (entity.LedgerRow, error) {
	rows, err := x.List(ctx)
	if err != nil {
		return entity.LedgerRow{}, err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Filename == filename {
			return rows[i], nil
		}
	}
	return entity.LedgerRow{}, notFound(filename)
}

func (x *XLSX) List(ctx context.Context) ([]entity.LedgerRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := x.read()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrLedger, x.path, err)
	}
	t.collapse()
	return t.rows(), nil
}

func (x *XLSX) Inspect(ctx context.Context) (Report, error) {
	rep := Report{Backend: backendXLSX, Location: x.path}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	grid, err := x.readGrid()
	if errors.Is(err, fs.ErrNotExist) {
		rep.MissingColumns = append([]string(nil), entity.LedgerColumns...)
		return rep, nil
	}
	if err != nil {
		return rep, fmt.Errorf("%w: read %s: %v", common.ErrLedger, x.path, err)
	}
	var header []string
	if len(grid) > 0 {
		header = grid[0]
	}
	t := tableFromRows(grid)
	rep.Rows = len(t.records)
	rep.DuplicateKeys = t.duplicates()
	rep.MissingColumns = missingFrom(header)
	for _, c := range t.header {
		if !isFixed(c) {
			rep.ExtraColumns = append(rep.ExtraColumns, c)
		}
	}
	return rep, nil
}

func (x *XLSX) Close() error { return nil }

func (x *XLSX) read() (*table, error) {
	grid, err := x.readGrid()
	if err != nil {
		return nil, err
	}
	return tableFromRows(grid), nil
}

// readGrid returns the raw cells of the ledger sheet, or of the first sheet
// when the configured one is missing (workbooks saved by other tools).
func (x *XLSX) readGrid() ([][]string, error) {
	if _, err := os.Stat(x.path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			x.logger.Warn("ledger.xlsx.close_failed", "path", x.path, "error", err)
		}
	}()

	sheet := x.sheet
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}
	return f.GetRows(sheet)
}

// write saves to a temp file in the target directory and renames it over the
// old workbook, so readers never see a half-written file.
func (x *XLSX) write(t *table) error {
	if dir := filepath.Dir(x.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), x.sheet); err != nil {
		return err
	}

	grid := t.grid()
	for i, line := range grid {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		vals := make([]any, len(line))
		for j, v := range line {
			vals[j] = v
		}
		if err := f.SetSheetRow(x.sheet, cell, &vals); err != nil {
			return err
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(t.header), 1)
		_ = f.SetCellStyle(x.sheet, "A1", last, style)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(t.header))
	_ = f.SetColWidth(x.sheet, "A", "A", 36)     // filename
	_ = f.SetColWidth(x.sheet, "B", lastCol, 16) // fields
	_ = f.SetColWidth(x.sheet, "L", "L", 48)     // error_message
	_ = f.SetPanes(x.sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	tmp, err := os.CreateTemp(filepath.Dir(x.path), "."+filepath.Base(x.path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), x.path)
}

// quarantine moves an unreadable workbook out of the way and returns its new name.
func (x *XLSX) quarantine() string {
	moved := fmt.Sprintf("%s.corrupt-%s", x.path, x.now().Format("20060102-150405"))
	if err := os.Rename(x.path, moved); err != nil {
		x.logger.Warn("ledger.xlsx.quarantine_failed", "path", x.path, "error", err)
		return ""
	}
	return moved
}

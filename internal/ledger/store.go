// Package ledger persists one row per document, keyed by filename. Every
// backend implements an idempotent upsert: writing the same filename again
// replaces its row and leaves every other row untouched.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
)

// Store is a persistent row store keyed by filename.
type Store interface {
	// Upsert writes rows, replacing any existing row with the same filename.
	// Within one call a later row for a filename wins over an earlier one.
	Upsert(ctx context.Context, rows ...entity.LedgerRow) error
	// Lookup returns the row for filename or an error wrapping common.ErrNotFound.
	Lookup(ctx context.Context, filename string) (entity.LedgerRow, error)
	// List returns every row in store order.
	List(ctx context.Context) ([]entity.LedgerRow, error)
	Close() error
}

// Report describes the physical state of a store for `ledger check`.
type Report struct {
	Backend        string
	Location       string
	Rows           int
	DuplicateKeys  []string
	MissingColumns []string
	ExtraColumns   []string
}

// Inspector is implemented by stores that can report on their raw contents.
type Inspector interface {
	Inspect(ctx context.Context) (Report, error)
}

// Open builds the backend named in cfg and wraps it so concurrent upserts are
// serialized.
func Open(ctx context.Context, cfg common.LedgerConfig, m *metrics.Metrics, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case common.BackendXLSX, "":
		s = NewXLSX(cfg.Path, cfg.Sheet, m, logger)
	case common.BackendSQLite:
		s, err = OpenSQLite(ctx, cfg.Path, m, logger)
	case common.BackendPostgres:
		s, err = OpenPostgres(ctx, PostgresConfig{
			DSN:         cfg.DSN,
			MaxConns:    cfg.MaxConns,
			DialTimeout: cfg.DialTimeout,
		}, m, logger)
	default:
		return nil, fmt.Errorf("%w: unknown ledger backend %q", common.ErrInvalidInput, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("ledger.open.ok", "backend", cfg.Backend, "path", cfg.Path)
	return NewLocked(s), nil
}

func notFound(filename string) error {
	return fmt.Errorf("ledger row %q: %w", filename, common.ErrNotFound)
}

// dedupe keeps the last row per filename, in first-seen order.
func dedupe(rows []entity.LedgerRow) []entity.LedgerRow {
	idx := make(map[string]int, len(rows))
	out := make([]entity.LedgerRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := idx[r.Filename]; ok {
			out[i] = r
			continue
		}
		idx[r.Filename] = len(out)
		out = append(out, r)
	}
	return out
}

func validateRows(rows []entity.LedgerRow) error {
	for _, r := range rows {
		v := common.NewValidator()
		v.Field("filename", r.Filename, common.Required)
		if err := v.Error(); err != nil {
			return err
		}
	}
	return nil
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
)

// SQLite is a single-file SQL ledger using the pure-Go modernc driver.
type SQLite struct {
	db      *sql.DB
	path    string
	d       dialect
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// ledger table exists. Pass ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string, m *metrics.Metrics, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrLedger, err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	logger.Info("connecting to ledger database", "driver", "sqlite", "path", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open ledger database", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrLedger, err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path, d: sqliteDialect, metrics: m, logger: logger}
	if _, err := db.ExecContext(ctx, s.d.createTableSQL()); err != nil {
		_ = db.Close()
		logger.Error("failed to create ledger table", "error", err)
		return nil, fmt.Errorf("%w: create table: %v", common.ErrLedger, err)
	}
	return s, nil
}

func (s *SQLite) Upsert(ctx context.Context, rows ...entity.LedgerRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	if err := validateRows(rows); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.metrics.RecordUpsert(s.d.name, err, time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrLedger, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.d.upsertSQL())
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", common.ErrLedger, err)
	}
	defer stmt.Close()

	for _, r := range dedupe(rows) {
		if _, err = stmt.ExecContext(ctx, rowArgs(r)...); err != nil {
			return fmt.Errorf("%w: upsert %q: %v", common.ErrLedger, r.Filename, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrLedger, err)
	}
	s.logger.Debug("ledger.sqlite.ok", "path", s.path, "upserted", len(rows))
	return nil
}

func (s *SQLite) Lookup(ctx context.Context, filename string) (entity.LedgerRow, error) {
	dest, build := scanTargets()
	err := s.db.QueryRowContext(ctx, s.d.selectSQL(true), filename).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.LedgerRow{}, notFound(filename)
	}
	if err != nil {
		return entity.LedgerRow{}, fmt.Errorf("%w: lookup %q: %v", common.ErrLedger, filename, err)
	}
	return build(), nil
}

func (s *SQLite) List(ctx context.Context) ([]entity.LedgerRow, error) {
	rows, err := s.db.QueryContext(ctx, s.d.selectSQL(false))
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", common.ErrLedger, err)
	}
	defer rows.Close()

	var out []entity.LedgerRow
	for rows.Next() {
		dest, build := scanTargets()
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", common.ErrLedger, err)
		}
		out = append(out, build())
	}
	return out, rows.Err()
}

func (s *SQLite) Inspect(ctx context.Context) (Report, error) {
	rep := Report{Backend: s.d.name, Location: s.path}
	if err := s.db.QueryRowContext(ctx, s.d.countSQL()).Scan(&rep.Rows); err != nil {
		return rep, fmt.Errorf("%w: count: %v", common.ErrLedger, err)
	}
	rows, err := s.db.QueryContext(ctx, s.d.columnsSQL())
	if err != nil {
		return rep, fmt.Errorf("%w: read columns: %v", common.ErrLedger, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return rep, fmt.Errorf("%w: columns: %v", common.ErrLedger, err)
	}
	columnReport(&rep, cols)
	return rep, nil
}

func (s *SQLite) Close() error {
	s.logger.Info("closing ledger database", "path", s.path)
	return s.db.Close()
}

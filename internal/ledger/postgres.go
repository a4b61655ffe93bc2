package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
)

type PostgresConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Postgres is a shared ledger for multiple hosts.
type Postgres struct {
	pool    *pgxpool.Pool
	d       dialect
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// OpenPostgres creates a pgx pool, pings it and ensures the ledger table exists.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, m *metrics.Metrics, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: postgres ledger needs a DSN", common.ErrInvalidInput)
	}
	logger.Info("connecting to ledger database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse ledger DSN", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "dpod"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to ledger database", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrLedger, err)
	}
	p := &Postgres{pool: pool, d: postgresDialect, metrics: m, logger: logger}
	if err := p.HealthCheck(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", common.ErrLedger, err)
	}
	if _, err := pool.Exec(dialCtx, p.d.createTableSQL()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: create table: %v", common.ErrLedger, err)
	}
	logger.Info("successfully connected to ledger database")
	return p, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	p.logger.Debug("pinging ledger database")
	return p.pool.Ping(ctx)
}

func (p *Postgres) Upsert(ctx context.Context, rows ...entity.LedgerRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	if err := validateRows(rows); err != nil {
		return err
	}
	start := time.Now()
	defer func() { p.metrics.RecordUpsert(p.d.name, err, time.Since(start)) }()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrLedger, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	q := p.d.upsertSQL()
	b := &pgx.Batch{}
	for _, r := range dedupe(rows) {
		b.Queue(q, rowArgs(r)...)
	}
	if err = tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("%w: upsert: %v", common.ErrLedger, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrLedger, err)
	}
	p.logger.Debug("ledger.postgres.ok", "upserted", len(rows))
	return nil
}

func (p *Postgres) Lookup(ctx context.Context, filename string) (entity.LedgerRow, error) {
	dest, build := scanTargets()
	err := p.pool.QueryRow(ctx, p.d.selectSQL(true), filename).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.LedgerRow{}, notFound(filename)
	}
	if err != nil {
		return entity.LedgerRow{}, fmt.Errorf("%w: lookup %q: %v", common.ErrLedger, filename, err)
	}
	return build(), nil
}

func (p *Postgres) List(ctx context.Context) ([]entity.LedgerRow, error) {
	rows, err := p.pool.Query(ctx, p.d.selectSQL(false))
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

func (p *Postgres) Inspect(ctx context.Context) (Report, error) {
	rep := Report{Backend: p.d.name, Location: tableName}
	if err := p.pool.QueryRow(ctx, p.d.countSQL()).Scan(&rep.Rows); err != nil {
		return rep, fmt.Errorf("%w: count: %v", common.ErrLedger, err)
	}
	rows, err := p.pool.Query(ctx, p.d.columnsSQL())
	if err != nil {
		return rep, fmt.Errorf("%w: read columns: %v", common.ErrLedger, err)
	}
	defer rows.Close()
	var cols []string
	for _, fd := range rows.FieldDescriptions() {
		cols = append(cols, fd.Name)
	}
	columnReport(&rep, cols)
	return rep, rows.Err()
}

func (p *Postgres) Close() error {
	p.logger.Info("closing ledger database connections")
	p.pool.Close()
	return nil
}

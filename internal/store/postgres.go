package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/curvematch/internal/config"
	"github.com/JonMunkholm/curvematch/internal/core"
	"github.com/JonMunkholm/curvematch/internal/logging"
)

const postgresRunsDDL = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	policy TEXT NOT NULL,
	matches TEXT NOT NULL,
	accepted INTEGER NOT NULL,
	test_points INTEGER NOT NULL,
	result_table TEXT NOT NULL
)`

var _ Store = (*Postgres)(nil)

// Postgres stores tables in a PostgreSQL schema through a connection pool.
type Postgres struct {
	pool        *pgxpool.Pool
	resultTable string
}

// OpenPostgres connects a pool configured from cfg and verifies it.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	if err := checkName(cfg.ResultTable); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse database URL: %v", core.ErrConfig, err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresRunsDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	logger := logging.FromContext(ctx)
	if u, err := url.Parse(cfg.URL); err == nil {
		logger.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		logger.Info("connected to database")
	}

	return &Postgres{pool: pool, resultTable: cfg.ResultTable}, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// WriteTable replaces the table called name with the contents of t.
func (p *Postgres) WriteTable(ctx context.Context, name string, t *core.Table) error {
	cols, err := tableColumns(name, p.resultTable, t)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := recreatePg(ctx, tx, name, createTableSQL(name, cols, "DOUBLE PRECISION")); err != nil {
		return err
	}

	src := newRowSource(t)
	n, err := tx.CopyFrom(ctx, pgx.Identifier{name}, cols,
		pgx.CopyFromSlice(src.len(), func(i int) ([]any, error) {
			return src.row(i), nil
		}))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", name, err)
	}
	if int(n) != src.len() {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", name, n, src.len())
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// WriteResults replaces the result table and records the run.
func (p *Postgres) WriteResults(ctx context.Context, run core.RunInfo, rows core.ResultTable) error {
	rr, err := newRunRow(run, p.resultTable)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := recreatePg(ctx, tx, p.resultTable, createResultSQL(p.resultTable, "DOUBLE PRECISION")); err != nil {
		return err
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{p.resultTable}, resultColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return resultRow(rows[i], i), nil
		}))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", p.resultTable, err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO runs (id, started_at, policy, matches, accepted, test_points, result_table)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rr.ID, rr.StartedAt, rr.Policy, rr.Matches, rr.Accepted, rr.TestPoints, rr.ResultTable)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rr.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", p.resultTable, err)
	}
	return nil
}

// ReadTable loads the table called name.
func (p *Postgres) ReadTable(ctx context.Context, name string) (*core.Table, error) {
	if err := p.mustExist(ctx, name); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quote(name), quote(idxColumn)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return collectTable(name, cols, rows)
}

// ReadResults loads the result table in classification order.
func (p *Postgres) ReadResults(ctx context.Context) (core.ResultTable, error) {
	if err := p.mustExist(ctx, p.resultTable); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		fmt.Sprintf(`SELECT x, y, delta_y, ideal_function FROM %s ORDER BY idx`, quote(p.resultTable)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.resultTable, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[core.ClassificationRow])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.resultTable, err)
	}
	return core.ResultTable(out), nil
}

// LatestRun returns the most recently recorded run.
func (p *Postgres) LatestRun(ctx context.Context) (core.RunInfo, error) {
	rows, err := p.pool.Query(ctx, `SELECT * FROM runs ORDER BY started_at DESC LIMIT 1`)
	if err != nil {
		return core.RunInfo{}, fmt.Errorf("read runs: %w", err)
	}

	rr, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[runRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return core.RunInfo{}, ErrNoRuns
	}
	if err != nil {
		return core.RunInfo{}, fmt.Errorf("read runs: %w", err)
	}
	return rr.info()
}

func (p *Postgres) mustExist(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_name = $1
)`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", name, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return nil
}

func recreatePg(ctx context.Context, tx pgx.Tx, name, ddl string) error {
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+quote(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	return nil
}

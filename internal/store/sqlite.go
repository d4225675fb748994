package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/curvematch/internal/core"
)

const sqliteRunsDDL = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	policy TEXT NOT NULL,
	matches TEXT NOT NULL,
	accepted INTEGER NOT NULL,
	test_points INTEGER NOT NULL,
	result_table TEXT NOT NULL
)`

const insertRunSQL = `INSERT INTO runs (id, started_at, policy, matches, accepted, test_points, result_table)
VALUES (:id, :started_at, :policy, :matches, :accepted, :test_points, :result_table)`

var _ Store = (*SQLite)(nil)

// SQLite stores tables in a single database file.
type SQLite struct {
	db          *sqlx.DB
	resultTable string
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(ctx context.Context, path, resultTable string) (*SQLite, error) {
	if err := checkName(resultTable); err != nil {
		return nil, err
	}

	// URI filenames have to begin with 'file:'.
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteRunsDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &SQLite{db: db, resultTable: resultTable}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// WriteTable replaces the table called name with the contents of t.
func (s *SQLite) WriteTable(ctx context.Context, name string, t *core.Table) error {
	cols, err := tableColumns(name, s.resultTable, t)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	if err := recreate(ctx, tx, name, createTableSQL(name, cols, "REAL")); err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx, insertSQL(name, cols))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	src := newRowSource(t)
	for i := 0; i < src.len(); i++ {
		if _, err := stmt.ExecContext(ctx, src.row(i)...); err != nil {
			return fmt.Errorf("insert into %s row %d: %w", name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// WriteResults replaces the result table and records the run.
func (s *SQLite) WriteResults(ctx context.Context, run core.RunInfo, rows core.ResultTable) error {
	rr, err := newRunRow(run, s.resultTable)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := recreate(ctx, tx, s.resultTable, createResultSQL(s.resultTable, "REAL")); err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx, insertSQL(s.resultTable, resultColumns))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", s.resultTable, err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, resultRow(r, i)...); err != nil {
			return fmt.Errorf("insert into %s row %d: %w", s.resultTable, i, err)
		}
	}

	if _, err := tx.NamedExecContext(ctx, insertRunSQL, rr); err != nil {
		return fmt.Errorf("record run %s: %w", rr.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", s.resultTable, err)
	}
	return nil
}

// ReadTable loads the table called name.
func (s *SQLite) ReadTable(ctx context.Context, name string) (*core.Table, error) {
	if err := s.mustExist(ctx, name); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quote(name), quote(idxColumn)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return collectTable(name, cols, rows)
}

// ReadResults loads the result table in classification order.
func (s *SQLite) ReadResults(ctx context.Context) (core.ResultTable, error) {
	if err := s.mustExist(ctx, s.resultTable); err != nil {
		return nil, err
	}

	var rows []core.ClassificationRow
	query := fmt.Sprintf(`SELECT x, y, delta_y, ideal_function FROM %s ORDER BY idx`, quote(s.resultTable))
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.resultTable, err)
	}
	return core.ResultTable(rows), nil
}

// LatestRun returns the most recently recorded run.
func (s *SQLite) LatestRun(ctx context.Context) (core.RunInfo, error) {
	var rr runRow
	err := s.db.GetContext(ctx, &rr, `SELECT * FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RunInfo{}, ErrNoRuns
	}
	if err != nil {
		return core.RunInfo{}, fmt.Errorf("read runs: %w", err)
	}
	return rr.info()
}

func (s *SQLite) mustExist(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return nil
}

func recreate(ctx context.Context, tx *sqlx.Tx, name, ddl string) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	return nil
}

func insertSQL(name string, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(name), strings.Join(quoted, ", "), marks)
}

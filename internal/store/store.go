// Package store persists pipeline tables to a relational database.
//
// Each input table is stored under its dataset key with an idx column that
// preserves row order, an x column and one column per series. The result
// table holds x, y, delta_y and ideal_function. Every WriteResults call also
// appends a row to the runs table.
//
// Two backends share the layout: SQLite (sqlx over mattn/go-sqlite3) and
// PostgreSQL (pgxpool with COPY for bulk inserts).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/curvematch/internal/config"
	"github.com/JonMunkholm/curvematch/internal/core"
)

var (
	ErrInvalidTableName = errors.New("invalid table name")
	ErrTableNotFound    = errors.New("table not found")
	ErrNoRuns           = errors.New("no runs recorded")
)

const (
	runsTable = "runs"
	idxColumn = "idx"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Store reads and writes pipeline tables. Writes replace the named table.
type Store interface {
	core.Store
	ReadTable(ctx context.Context, name string) (*core.Table, error)
	ReadResults(ctx context.Context) (core.ResultTable, error)
	LatestRun(ctx context.Context) (core.RunInfo, error)
	Close() error
}

// Open connects to the backend named by cfg.Driver. The none driver
// returns a nil Store, which disables persistence.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.URL, cfg.ResultTable)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		p, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", core.ErrConfig, cfg.Driver)
	}
}

func checkName(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

func quote(name string) string {
	return `"` + name + `"`
}

// tableColumns returns the stored column names of t: idx, x and its series.
// name must not collide with the result or runs table.
func tableColumns(name, resultTable string, t *core.Table) ([]string, error) {
	if t == nil {
		return nil, fmt.Errorf("write %s: %w: no table", name, core.ErrConfig)
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	if name == resultTable || name == runsTable {
		return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidTableName, name)
	}

	cols := append([]string{idxColumn, core.XColumn}, t.Names()...)
	for _, c := range cols[2:] {
		if err := checkName(c); err != nil || c == idxColumn {
			return nil, fmt.Errorf("%w: column %q of %s", ErrInvalidTableName, c, name)
		}
	}
	return cols, nil
}

func createTableSQL(name string, cols []string, floatType string) string {
	defs := make([]string, len(cols))
	defs[0] = quote(idxColumn) + " INTEGER PRIMARY KEY"
	for i, c := range cols[1:] {
		defs[i+1] = quote(c) + " " + floatType + " NOT NULL"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(defs, ", "))
}

func createResultSQL(name, floatType string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	"idx" INTEGER PRIMARY KEY,
	"x" %[2]s NOT NULL,
	"y" %[2]s NOT NULL,
	"delta_y" %[2]s NOT NULL,
	"ideal_function" TEXT NOT NULL
)`, quote(name), floatType)
}

var resultColumns = []string{idxColumn, "x", "y", "delta_y", "ideal_function"}

// rowSource holds the columns of a table, copied once, in stored column
// order after idx.
type rowSource struct {
	x      []float64
	series [][]float64
}

func newRowSource(t *core.Table) rowSource {
	names := t.Names()
	src := rowSource{x: t.X(), series: make([][]float64, len(names))}
	for j, name := range names {
		src.series[j], _ = t.Series(name)
	}
	return src
}

func (s rowSource) len() int { return len(s.x) }

func (s rowSource) row(i int) []any {
	row := make([]any, 0, len(s.series)+2)
	row = append(row, i, s.x[i])
	for _, col := range s.series {
		row = append(row, col[i])
	}
	return row
}

func resultRow(r core.ClassificationRow, i int) []any {
	return []any{i, r.X, r.Y, r.Deviation, r.Candidate}
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// collectTable rebuilds a table from rows whose columns are idx, x and
// the series, ordered by idx.
func collectTable(name string, cols []string, rows rowScanner) (*core.Table, error) {
	if len(cols) < 2 || cols[0] != idxColumn || cols[1] != core.XColumn {
		return nil, fmt.Errorf("read %s: unexpected columns %v", name, cols)
	}

	var idx int64
	buf := make([]float64, len(cols)-1)
	dest := make([]any, len(cols))
	dest[0] = &idx
	for i := range buf {
		dest[i+1] = &buf[i]
	}

	var x []float64
	values := make([][]float64, len(cols)-2)
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		x = append(x, buf[0])
		for j := range values {
			values[j] = append(values[j], buf[j+1])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	series := make([]core.Series, len(values))
	for j := range values {
		series[j] = core.Series{Name: cols[j+2], Values: values[j]}
	}
	return core.NewTable(name, x, series...)
}

// runRow is the runs table layout.
type runRow struct {
	ID          string    `db:"id"`
	StartedAt   time.Time `db:"started_at"`
	Policy      string    `db:"policy"`
	Matches     string    `db:"matches"`
	Accepted    int       `db:"accepted"`
	TestPoints  int       `db:"test_points"`
	ResultTable string    `db:"result_table"`
}

func newRunRow(run core.RunInfo, resultTable string) (runRow, error) {
	matches, err := json.Marshal(run.Matches)
	if err != nil {
		return runRow{}, fmt.Errorf("encode matches: %w", err)
	}
	return runRow{
		ID:          run.ID.String(),
		StartedAt:   run.StartedAt.UTC(),
		Policy:      string(run.Policy),
		Matches:     string(matches),
		Accepted:    run.Accepted,
		TestPoints:  run.TestPoints,
		ResultTable: resultTable,
	}, nil
}

func (r runRow) info() (core.RunInfo, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return core.RunInfo{}, fmt.Errorf("run id %q: %w", r.ID, err)
	}
	var matches core.Matches
	if err := json.Unmarshal([]byte(r.Matches), &matches); err != nil {
		return core.RunInfo{}, fmt.Errorf("decode matches of run %s: %w", r.ID, err)
	}
	return core.RunInfo{
		ID:         id,
		StartedAt:  r.StartedAt.UTC(),
		Policy:     core.ThresholdPolicy(r.Policy),
		Matches:    matches,
		Accepted:   r.Accepted,
		TestPoints: r.TestPoints,
	}, nil
}

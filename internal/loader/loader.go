// Package loader reads the pipeline's CSV inputs into core tables.
//
// Every dataset uses the same loader; a core.DatasetSpec names the required
// columns. The first row is the header. Header cells are trimmed and
// lower-cased, so "X" and " y1" match "x" and "y1". Every column other
// than x becomes a series, in file order.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/curvematch/internal/core"
	"github.com/JonMunkholm/curvematch/internal/core/datasets"
	"github.com/JonMunkholm/curvematch/internal/logging"
)

// ContextCheckInterval is how often (in rows) to check for context cancellation.
var ContextCheckInterval = 100

var (
	ErrEmptyFile  = errors.New("empty file")
	ErrInvalidCSV = errors.New("invalid csv")
)

// Load reads the CSV file at path and returns it as a table named spec.Key.
func Load(ctx context.Context, path string, spec core.DatasetSpec) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Label, err)
	}
	defer f.Close()

	cr := &countingReader{r: f}
	t, err := Read(ctx, cr, spec)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w", spec.Label, path, err)
	}

	logging.WithFields(ctx, "dataset", spec.Key, "path", path).Debug("dataset loaded",
		"rows", t.Len(),
		"series", len(t.Names()),
		"bytes", cr.n,
	)
	return t, nil
}

// LoadPoints reads the test dataset at path.
func LoadPoints(ctx context.Context, path string) (core.Points, error) {
	t, err := Load(ctx, path, core.MustGet(datasets.Test))
	if err != nil {
		return nil, err
	}
	return core.PointsFromTable(t)
}

// Read parses CSV from r. Rows whose cells are all blank are skipped.
func Read(ctx context.Context, r io.Reader, spec core.DatasetSpec) (*core.Table, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	idx, names, err := checkHeader(header, spec)
	if err != nil {
		return nil, err
	}
	xPos := idx[core.XColumn]

	var x []float64
	values := make([][]float64, len(names))

	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("operation cancelled after %d rows: %w", i, err)
			}
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		line, _ := reader.FieldPos(0)

		if isEmptyRow(row) {
			continue
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrInvalidCSV, line, len(row), len(header))
		}

		v, err := parseCell(row[xPos], line, core.XColumn)
		if err != nil {
			return nil, err
		}
		x = append(x, v)

		for j, name := range names {
			v, err := parseCell(row[idx[name]], line, name)
			if err != nil {
				return nil, err
			}
			values[j] = append(values[j], v)
		}
	}

	series := make([]core.Series, len(names))
	for j, name := range names {
		series[j] = core.Series{Name: name, Values: values[j]}
	}
	return core.NewTable(spec.Key, x, series...)
}

// checkHeader returns the header index and the non-x series names in file
// order. Every missing required column is reported at once.
func checkHeader(header []string, spec core.DatasetSpec) (HeaderIndex, []string, error) {
	seen := make(map[string]bool, len(header))
	names := make([]string, 0, len(header))
	for i, h := range header {
		key := CleanHeader(h)
		if key == "" {
			return nil, nil, fmt.Errorf("%w: header column %d is blank", core.ErrInvalidValue, i+1)
		}
		if seen[key] {
			return nil, nil, fmt.Errorf("%w: duplicate header %q", core.ErrInvalidValue, key)
		}
		seen[key] = true
		if key != core.XColumn {
			names = append(names, key)
		}
	}

	var missing []string
	for _, col := range spec.RequiredColumns {
		if !seen[strings.ToLower(col)] {
			missing = append(missing, col)
		}
	}
	if !seen[core.XColumn] && !slices.Contains(missing, core.XColumn) {
		missing = append([]string{core.XColumn}, missing...)
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ", "))
	}

	return MakeHeaderIndex(header), names, nil
}

func parseCell(raw string, line int, column string) (float64, error) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: line %d column %q: %q", core.ErrInvalidValue, line, column, s)
	}
	return v, nil
}

package core

import (
	"fmt"
	"math"
	"strings"
)

// XColumn is the name of the independent variable column in every dataset.
const XColumn = "x"

// Series is one named dependent-variable column.
type Series struct {
	Name   string
	Values []float64
}

// Table is an immutable set of named series aligned on a shared x column.
// Column order is preserved and is the iteration order used everywhere a
// table's series are enumerated.
type Table struct {
	name   string
	x      []float64
	names  []string
	series map[string][]float64
	rowOf  map[float64]int // first row holding each x value
}

// NewTable validates and copies its inputs into a new Table.
// Every series must have len(x) values, every value must be finite, and
// series names must be unique, non-empty and distinct from XColumn.
func NewTable(name string, x []float64, series ...Series) (*Table, error) {
	t := &Table{
		name:   name,
		x:      make([]float64, len(x)),
		names:  make([]string, 0, len(series)),
		series: make(map[string][]float64, len(series)),
		rowOf:  make(map[float64]int, len(x)),
	}

	for i, v := range x {
		if !isFinite(v) {
			return nil, fmt.Errorf("%s: %s row %d: %w: x=%v", name, XColumn, i, ErrInvalidValue, v)
		}
		t.x[i] = v
		if _, seen := t.rowOf[v]; !seen {
			t.rowOf[v] = i
		}
	}

	for _, s := range series {
		key := strings.TrimSpace(s.Name)
		if key == "" || key == XColumn {
			return nil, fmt.Errorf("%s: %w: series name %q", name, ErrInvalidValue, s.Name)
		}
		if _, dup := t.series[key]; dup {
			return nil, fmt.Errorf("%s: %w: duplicate series %q", name, ErrInvalidValue, key)
		}
		if len(s.Values) != len(x) {
			return nil, fmt.Errorf("%s: %w: series %q has %d values, x has %d",
				name, ErrInvalidValue, key, len(s.Values), len(x))
		}

		values := make([]float64, len(s.Values))
		for i, v := range s.Values {
			if !isFinite(v) {
				return nil, fmt.Errorf("%s: %s row %d: %w: %v", name, key, i, ErrInvalidValue, v)
			}
			values[i] = v
		}

		t.names = append(t.names, key)
		t.series[key] = values
	}

	return t, nil
}

// Name returns the dataset name the table was created with.
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.x) }

// X returns a copy of the x column.
func (t *Table) X() []float64 {
	return append([]float64(nil), t.x...)
}

// Names returns the series names in column order, excluding XColumn.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Has reports whether the table holds a series with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.series[name]
	return ok
}

// Series returns a copy of the named series.
func (t *Table) Series(name string) ([]float64, bool) {
	v, ok := t.series[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

// Row returns the index of the first row whose x equals x exactly.
func (t *Table) Row(x float64) (int, bool) {
	i, ok := t.rowOf[x]
	return i, ok
}

// Value returns the value of a series at a row.
func (t *Table) Value(name string, row int) (float64, bool) {
	v, ok := t.series[name]
	if !ok || row < 0 || row >= len(v) {
		return 0, false
	}
	return v[row], true
}

// column returns the backing slice of a series. Callers must not modify it.
func (t *Table) column(name string) []float64 {
	return t.series[name]
}

// Point is one test sample.
type Point struct {
	X float64
	Y float64
}

// Points is a sparse set of test samples, kept in input order.
type Points []Point

// PointsFromTable reads the x and y columns of a table as test points.
func PointsFromTable(t *Table) (Points, error) {
	if t == nil {
		return nil, fmt.Errorf("test points: %w: no table", ErrConfig)
	}
	y, ok := t.series["y"]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", t.name, ErrMissingColumn, "y")
	}

	out := make(Points, len(t.x))
	for i := range t.x {
		out[i] = Point{X: t.x[i], Y: y[i]}
	}
	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

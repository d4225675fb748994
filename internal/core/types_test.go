package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		x       []float64
		series  []Series
		wantErr error
	}{
		{
			name:   "valid table",
			x:      []float64{0, 1},
			series: []Series{{Name: "a", Values: []float64{1, 2}}, {Name: "b", Values: []float64{3, 4}}},
		},
		{
			name: "no series",
			x:    []float64{0, 1},
		},
		{
			name:    "short series",
			x:       []float64{0, 1},
			series:  []Series{{Name: "a", Values: []float64{1}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "duplicate name",
			x:       []float64{0},
			series:  []Series{{Name: "a", Values: []float64{1}}, {Name: "a", Values: []float64{2}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "series named x",
			x:       []float64{0},
			series:  []Series{{Name: "x", Values: []float64{1}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "NaN value",
			x:       []float64{0},
			series:  []Series{{Name: "a", Values: []float64{math.NaN()}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "infinite x",
			x:       []float64{math.Inf(1)},
			wantErr: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewTable("t", tt.x, tt.series...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tbl)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.x), tbl.Len())
			assert.Len(t, tbl.Names(), len(tt.series))
		})
	}
}

func TestTable_Immutable(t *testing.T) {
	x := []float64{0, 1, 2}
	values := []float64{5, 6, 7}
	tbl := mustTable(t, "t", x, Series{Name: "a", Values: values})

	x[0] = 100
	values[0] = 100
	got, ok := tbl.Series("a")
	require.True(t, ok)
	assert.Equal(t, []float64{5, 6, 7}, got)
	assert.Equal(t, []float64{0, 1, 2}, tbl.X())

	got[1] = -1
	tbl.X()[2] = -1
	tbl.Names()[0] = "changed"

	v, ok := tbl.Value("a", 1)
	require.True(t, ok)
	assert.Equal(t, 6.0, v)
	assert.Equal(t, 2.0, tbl.X()[2])
	assert.Equal(t, []string{"a"}, tbl.Names())
}

func TestTable_ColumnOrderAndLookup(t *testing.T) {
	tbl := mustTable(t, "ideal", []float64{-1, 0, 1, 0},
		Series{Name: "z", Values: []float64{1, 2, 3, 4}},
		Series{Name: "a", Values: []float64{5, 6, 7, 8}},
		Series{Name: "m", Values: []float64{9, 10, 11, 12}},
	)

	assert.Equal(t, []string{"z", "a", "m"}, tbl.Names())
	assert.Equal(t, "ideal", tbl.Name())

	row, ok := tbl.Row(0)
	require.True(t, ok)
	assert.Equal(t, 1, row, "first row with x wins")

	row, ok = tbl.Row(math.Copysign(0, -1))
	require.True(t, ok)
	assert.Equal(t, 1, row)

	_, ok = tbl.Row(0.5)
	assert.False(t, ok)

	_, ok = tbl.Value("a", 9)
	assert.False(t, ok)
	_, ok = tbl.Series("nope")
	assert.False(t, ok)
	assert.True(t, tbl.Has("m"))
}

func TestPointsFromTable(t *testing.T) {
	tbl := mustTable(t, "test", []float64{3, 1},
		Series{Name: "y", Values: []float64{0.5, -2}})

	points, err := PointsFromTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, Points{{X: 3, Y: 0.5}, {X: 1, Y: -2}}, points)

	noY := mustTable(t, "test", []float64{1}, Series{Name: "z", Values: []float64{1}})
	_, err = PointsFromTable(noY)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = PointsFromTable(nil)
	assert.ErrorIs(t, err, ErrConfig)
}

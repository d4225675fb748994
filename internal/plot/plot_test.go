package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/curvematch/internal/core"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func sampleRun(t *testing.T, points core.Points) *core.Run {
	t.Helper()
	x := []float64{3, 0, 2, 1}
	training, err := core.NewTable("training", x,
		core.Series{Name: "y1", Values: []float64{9.2, 0.1, 3.9, 1}},
	)
	require.NoError(t, err)
	candidates, err := core.NewTable("ideal", x,
		core.Series{Name: "c1", Values: []float64{9, 0, 4, 1}},
		core.Series{Name: "c2", Values: []float64{6, 0, 4, 2}},
	)
	require.NoError(t, err)

	run, err := core.Execute(training, candidates, points, core.Options{TrainingSeries: []string{"y1"}})
	require.NoError(t, err)
	return run
}

func TestRenderPair(t *testing.T) {
	run := sampleRun(t, nil)
	pairs := run.Thresholds.Pairs()
	require.Len(t, pairs, 1)

	var buf bytes.Buffer
	require.NoError(t, RenderPair(&buf, run.Training, run.Candidates, pairs[0], Options{Width: 320, Height: 200}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestRenderPair_Errors(t *testing.T) {
	run := sampleRun(t, nil)
	d := run.Thresholds.Pairs()[0]

	bad := d
	bad.Candidate = "c9"
	err := RenderPair(&bytes.Buffer{}, run.Training, run.Candidates, bad, Options{})
	assert.ErrorIs(t, err, core.ErrMissingColumn)

	err = RenderPair(&bytes.Buffer{}, nil, run.Candidates, d, Options{})
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestRenderMapping(t *testing.T) {
	rows := core.ResultTable{
		{X: 1, Y: 1, Deviation: 0, Candidate: "c1"},
		{X: 2, Y: 4.1, Deviation: 0.1, Candidate: "c2"},
		{X: 3, Y: 9, Deviation: 0, Candidate: "c1"},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderMapping(&buf, rows, Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestRenderMapping_SinglePoint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMapping(&buf, core.ResultTable{{X: 1, Y: 1, Candidate: "c1"}}, Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestRenderMapping_Empty(t *testing.T) {
	err := RenderMapping(&bytes.Buffer{}, nil, Options{})
	assert.ErrorIs(t, err, core.ErrEmptyResult)
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")

	t.Run("with accepted points", func(t *testing.T) {
		run := sampleRun(t, core.Points{{X: 1, Y: 1}, {X: 3, Y: 9.1}})
		require.NotEmpty(t, run.Results)

		paths, err := WriteAll(dir, run, Options{Width: 300, Height: 200})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "y1_vs_c1.png"),
			filepath.Join(dir, MappingFile),
		}, paths)

		for _, p := range paths {
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, pngSignature), p)
		}
	})

	t.Run("no accepted points skips mapping", func(t *testing.T) {
		run := sampleRun(t, core.Points{{X: 7, Y: 1}})
		paths, err := WriteAll(t.TempDir(), run, Options{})
		require.NoError(t, err)
		assert.Len(t, paths, 1)
	})
}

func TestPaddedRange(t *testing.T) {
	r := paddedRange([]float64{2, 2})
	assert.Equal(t, 1.0, r.Min)
	assert.Equal(t, 3.0, r.Max)

	r = paddedRange([]float64{0, 10}, []float64{-10})
	assert.InDelta(t, -11.0, r.Min, 1e-12)
	assert.InDelta(t, 11.0, r.Max, 1e-12)

	r = paddedRange()
	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 1.0, r.Max)
}

func TestSortByX(t *testing.T) {
	xs, a, b := sortByX([]float64{2, 0, 1}, []float64{20, 0, 10}, []float64{-2, 0, -1})
	assert.Equal(t, []float64{0, 1, 2}, xs)
	assert.Equal(t, []float64{0, 10, 20}, a)
	assert.Equal(t, []float64{0, -1, -2}, b)
}

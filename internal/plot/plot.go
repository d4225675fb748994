// Package plot renders PNG charts of a pipeline run with go-chart.
//
// RenderPair draws one training series against its selected candidate and
// the acceptance band around it. RenderMapping draws every accepted test
// point, coloured by the candidate it was assigned to.
package plot

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/JonMunkholm/curvematch/internal/core"
)

// MappingFile is the file name WriteAll uses for the mapping chart.
const MappingFile = "mapping.png"

// Options sets the image size in pixels.
type Options struct {
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Height <= 0 {
		o.Height = 512
	}
	return o
}

// PairFile returns the file name WriteAll uses for a training/candidate pair.
func PairFile(d core.Deviation) string {
	return fmt.Sprintf("%s_vs_%s.png", d.Training, d.Candidate)
}

// RenderPair draws the training series as dots, the candidate as a line and
// the candidate ± threshold as dashed lines.
func RenderPair(w io.Writer, training, candidates *core.Table, d core.Deviation, opts Options) error {
	if training == nil || candidates == nil {
		return fmt.Errorf("plot %s: %w: no table", d.Training, core.ErrConfig)
	}
	train, ok := training.Series(d.Training)
	if !ok {
		return fmt.Errorf("plot: %w %q", core.ErrMissingColumn, d.Training)
	}
	cand, ok := candidates.Series(d.Candidate)
	if !ok {
		return fmt.Errorf("plot: %w %q", core.ErrMissingColumn, d.Candidate)
	}

	xs, train, cand := sortByX(training.X(), train, cand)
	upper := make([]float64, len(cand))
	lower := make([]float64, len(cand))
	for i, v := range cand {
		upper[i] = v + d.Threshold
		lower[i] = v - d.Threshold
	}

	opts = opts.withDefaults()
	band := chart.Style{
		StrokeColor:     chart.GetDefaultColor(1),
		StrokeWidth:     1,
		StrokeDashArray: []float64{5, 5},
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s vs %s (threshold %.4g)", d.Training, d.Candidate, d.Threshold),
		Width:  opts.Width,
		Height: opts.Height,
		XAxis: chart.XAxis{
			Name:  core.XColumn,
			Range: paddedRange(xs),
		},
		YAxis: chart.YAxis{
			Name:  "y",
			Range: paddedRange(train, upper, lower),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: d.Training,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    2,
					DotColor:    chart.GetDefaultColor(0),
				},
				XValues: xs,
				YValues: train,
			},
			chart.ContinuousSeries{
				Name:    d.Candidate,
				Style:   chart.Style{StrokeColor: chart.GetDefaultColor(1), StrokeWidth: 2},
				XValues: xs,
				YValues: cand,
			},
			chart.ContinuousSeries{Name: "+threshold", Style: band, XValues: xs, YValues: upper},
			chart.ContinuousSeries{Name: "-threshold", Style: band, XValues: xs, YValues: lower},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("plot %s vs %s: %w", d.Training, d.Candidate, err)
	}
	return nil
}

// RenderMapping draws one scatter series per candidate. An empty table
// fails with core.ErrEmptyResult.
func RenderMapping(w io.Writer, rows core.ResultTable, opts Options) error {
	if rows.Len() == 0 {
		return fmt.Errorf("plot mapping: %w", core.ErrEmptyResult)
	}

	var order []string
	xs := make(map[string][]float64)
	ys := make(map[string][]float64)
	var allX, allY []float64
	for _, r := range rows {
		if _, ok := xs[r.Candidate]; !ok {
			order = append(order, r.Candidate)
		}
		xs[r.Candidate] = append(xs[r.Candidate], r.X)
		ys[r.Candidate] = append(ys[r.Candidate], r.Y)
		allX = append(allX, r.X)
		allY = append(allY, r.Y)
	}

	series := make([]chart.Series, len(order))
	for i, name := range order {
		series[i] = chart.ContinuousSeries{
			Name: name,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
				DotColor:    chart.GetDefaultColor(i),
			},
			XValues: xs[name],
			YValues: ys[name],
		}
	}

	opts = opts.withDefaults()
	graph := chart.Chart{
		Title:  fmt.Sprintf("Test point mapping (%d points)", rows.Len()),
		Width:  opts.Width,
		Height: opts.Height,
		XAxis:  chart.XAxis{Name: core.XColumn, Range: paddedRange(allX)},
		YAxis:  chart.YAxis{Name: "y", Range: paddedRange(allY)},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("plot mapping: %w", err)
	}
	return nil
}

// WriteAll writes one chart per matched pair and, when any point was
// accepted, the mapping chart into dir. It returns the written paths.
func WriteAll(dir string, run *core.Run, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}

	var written []string
	write := func(name string, render func(io.Writer) error) error {
		// Render to a byte buffer first
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		written = append(written, path)
		return nil
	}

	for _, d := range run.Thresholds.Pairs() {
		err := write(PairFile(d), func(w io.Writer) error {
			return RenderPair(w, run.Training, run.Candidates, d, opts)
		})
		if err != nil {
			return written, err
		}
	}

	if run.Results.Len() > 0 {
		err := write(MappingFile, func(w io.Writer) error {
			return RenderMapping(w, run.Results, opts)
		})
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// paddedRange spans all values with 5% padding. go-chart rejects a zero
// range, so a single value is widened by one unit each side.
func paddedRange(sets ...[]float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, set := range sets {
		for _, v := range set {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if hi == lo {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// sortByX orders x and the parallel series a and b by ascending x so lines
// are drawn left to right.
func sortByX(x, a, b []float64) ([]float64, []float64, []float64) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

	xs := make([]float64, len(idx))
	as := make([]float64, len(idx))
	bs := make([]float64, len(idx))
	for i, j := range idx {
		xs[i], as[i], bs[i] = x[j], a[j], b[j]
	}
	return xs, as, bs
}

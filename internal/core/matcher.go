package core

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DefaultTrainingSeries is used when FindBestMatches is called without names.
var DefaultTrainingSeries = []string{"y1", "y2", "y3", "y4"}

// Match pairs a training series with the candidate series that fits it best.
type Match struct {
	Training  string  `json:"training"`
	Candidate string  `json:"candidate"`
	SSE       float64 `json:"sse"`
}

// Matches holds one Match per training series, in the order the training
// series were requested. An empty Matches means matching has not run.
type Matches []Match

// Selected returns the distinct candidate names in first-appearance order.
func (m Matches) Selected() []string {
	seen := make(map[string]bool, len(m))
	out := make([]string, 0, len(m))
	for _, match := range m {
		if seen[match.Candidate] {
			continue
		}
		seen[match.Candidate] = true
		out = append(out, match.Candidate)
	}
	return out
}

// Lookup returns the match recorded for a training series.
func (m Matches) Lookup(training string) (Match, bool) {
	for _, match := range m {
		if match.Training == training {
			return match, true
		}
	}
	return Match{}, false
}

// Matcher selects, for each training series, the least-squares best candidate.
// A Matcher can only be built from two tables on the same grid.
type Matcher struct {
	training   *Table
	candidates *Table
	last       Matches
}

// NewMatcher checks that both tables share one grid and returns a Matcher.
// It fails with an *AlignmentError when row counts or x values differ.
func NewMatcher(training, candidates *Table) (*Matcher, error) {
	if training == nil || candidates == nil {
		return nil, fmt.Errorf("new matcher: %w: training and candidate tables are required", ErrConfig)
	}
	if err := checkGrid(training, candidates); err != nil {
		return nil, err
	}
	return &Matcher{training: training, candidates: candidates}, nil
}

// checkGrid enforces the shared-grid contract value for value, in order.
func checkGrid(training, candidates *Table) error {
	if training.Len() != candidates.Len() {
		return &AlignmentError{
			TrainingRows:  training.Len(),
			CandidateRows: candidates.Len(),
			Row:           -1,
		}
	}
	for i := range training.x {
		if training.x[i] != candidates.x[i] {
			return &AlignmentError{
				TrainingRows:  training.Len(),
				CandidateRows: candidates.Len(),
				Row:           i,
				TrainingX:     training.x[i],
				CandidateX:    candidates.x[i],
			}
		}
	}
	return nil
}

// FindBestMatches computes the sum of squared errors between every named
// training series and every candidate series, and keeps the candidate with
// the smallest SSE. Candidates are visited in column order and only a
// strictly smaller SSE replaces the current best, so the first minimum wins.
//
// With no names, DefaultTrainingSeries is used. The result replaces any
// result recorded by a previous call.
func (m *Matcher) FindBestMatches(names ...string) (Matches, error) {
	if len(names) == 0 {
		names = DefaultTrainingSeries
	}

	candidates := m.candidates.names
	if len(candidates) == 0 {
		return nil, fmt.Errorf("find best matches: %w: candidate table %q has no series",
			ErrConfig, m.candidates.Name())
	}

	diff := make([]float64, m.training.Len())
	out := make(Matches, 0, len(names))

	for _, name := range names {
		train, ok := m.training.series[name]
		if !ok {
			return nil, fmt.Errorf("find best matches: %w %q in %q",
				ErrMissingColumn, name, m.training.Name())
		}

		best := Match{Training: name}
		for i, cand := range candidates {
			sse := sumSquaredError(diff, train, m.candidates.series[cand])
			if i == 0 || sse < best.SSE {
				best.Candidate = cand
				best.SSE = sse
			}
		}
		out = append(out, best)
	}

	m.last = out
	return append(Matches(nil), out...), nil
}

// Matches returns the result of the last FindBestMatches call.
func (m *Matcher) Matches() Matches {
	return append(Matches(nil), m.last...)
}

// Thresholds derives deviation thresholds from the last FindBestMatches
// result. It returns ErrState if matching has not run yet.
func (m *Matcher) Thresholds(opts ThresholdOptions) (Thresholds, error) {
	if len(m.last) == 0 {
		return Thresholds{}, fmt.Errorf("thresholds: %w: run FindBestMatches first", ErrState)
	}
	return ComputeThresholds(m.last, m.training, m.candidates, opts)
}

// SSE returns the sum of squared differences of two equal-length slices.
func SSE(a, b []float64) float64 {
	return sumSquaredError(make([]float64, len(a)), a, b)
}

// sumSquaredError uses buf as scratch space for a-b.
func sumSquaredError(buf, a, b []float64) float64 {
	d := floats.SubTo(buf[:len(a)], a, b)
	return floats.Dot(d, d)
}

// maxAbsDeviation returns max |a_i - b_i|, or 0 for empty input.
func maxAbsDeviation(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, inf)
}

package core

import (
	"fmt"
	"math"
)

// ClassificationRow is one accepted test point.
type ClassificationRow struct {
	X         float64 `csv:"x" json:"x" db:"x"`
	Y         float64 `csv:"y" json:"y" db:"y"`
	Deviation float64 `csv:"delta_y" json:"delta_y" db:"delta_y"`
	Candidate string  `csv:"ideal_function" json:"ideal_function" db:"ideal_function"`
}

// ClassifyStats counts what happened to each test point in a run.
type ClassifyStats struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`  // x not on the candidate grid
	Rejected int `json:"rejected"` // nearest deviation above threshold
}

// Classifier assigns test points to the candidates selected by matching.
type Classifier struct {
	points     Points
	candidates *Table
	selected   []string
	thresholds Thresholds

	result ResultTable
	stats  ClassifyStats
}

// NewClassifier fails with ErrConfig when the matches are empty or the
// thresholds are absent, and with ErrMissingColumn when a selected candidate
// is not part of the candidate table.
func NewClassifier(points Points, candidates *Table, m Matches, th Thresholds) (*Classifier, error) {
	if candidates == nil {
		return nil, fmt.Errorf("new classifier: %w: no candidate table", ErrConfig)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("new classifier: %w: match mapping is empty", ErrConfig)
	}
	if th.IsZero() {
		return nil, fmt.Errorf("new classifier: %w: no threshold source", ErrConfig)
	}

	selected := m.Selected()
	for _, name := range selected {
		if !candidates.Has(name) {
			return nil, fmt.Errorf("new classifier: %w %q in %q", ErrMissingColumn, name, candidates.Name())
		}
	}

	return &Classifier{
		points:     append(Points(nil), points...),
		candidates: candidates,
		selected:   selected,
		thresholds: th,
	}, nil
}

// MapTestPoints classifies every test point in input order.
//
// A point whose x is not on the candidate grid is skipped. Otherwise the
// selected candidate with the smallest |y - candidate(x)| is chosen, the
// first one winning ties, and the point is kept only if that deviation is
// within the candidate's threshold. Each call replaces the previous result.
func (c *Classifier) MapTestPoints() ResultTable {
	rows := make(ResultTable, 0, len(c.points))
	stats := ClassifyStats{Total: len(c.points)}

	for _, p := range c.points {
		row, ok := c.candidates.Row(p.X)
		if !ok {
			stats.Skipped++
			continue
		}

		best := ""
		smallest := inf
		for _, name := range c.selected {
			d := math.Abs(p.Y - c.candidates.column(name)[row])
			if d < smallest {
				smallest = d
				best = name
			}
		}

		limit, ok := c.thresholds.For(best)
		if best == "" || !ok || smallest > limit {
			stats.Rejected++
			continue
		}

		rows = append(rows, ClassificationRow{
			X:         p.X,
			Y:         p.Y,
			Deviation: smallest,
			Candidate: best,
		})
		stats.Accepted++
	}

	c.result = rows
	c.stats = stats
	return append(ResultTable(nil), rows...)
}

// Result returns the table produced by the last MapTestPoints call.
func (c *Classifier) Result() ResultTable {
	return append(ResultTable(nil), c.result...)
}

// Stats returns the counters of the last MapTestPoints call.
func (c *Classifier) Stats() ClassifyStats {
	return c.stats
}

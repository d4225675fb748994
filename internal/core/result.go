package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// ResultTable is the ordered output of one classification run.
type ResultTable []ClassificationRow

// Len returns the number of accepted points.
func (r ResultTable) Len() int { return len(r) }

// WriteCSV writes the table with a header row of x, y, delta_y, ideal_function.
func (r ResultTable) WriteCSV(w io.Writer) error {
	rows := []ClassificationRow(r)
	if rows == nil {
		rows = []ClassificationRow{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write result csv: %w", err)
	}
	return nil
}

// CandidateSummary aggregates the accepted points of one candidate.
type CandidateSummary struct {
	Candidate     string  `json:"candidate"`
	Count         int     `json:"count"`
	MeanDeviation float64 `json:"mean_deviation"`
	MaxDeviation  float64 `json:"max_deviation"`
}

// Summarize groups the table by candidate, in first-appearance order.
func Summarize(r ResultTable) []CandidateSummary {
	order := make([]string, 0)
	devs := make(map[string][]float64)
	for _, row := range r {
		if _, ok := devs[row.Candidate]; !ok {
			order = append(order, row.Candidate)
		}
		devs[row.Candidate] = append(devs[row.Candidate], row.Deviation)
	}

	out := make([]CandidateSummary, 0, len(order))
	for _, name := range order {
		d := devs[name]
		s := CandidateSummary{
			Candidate:     name,
			Count:         len(d),
			MeanDeviation: stat.Mean(d, nil),
		}
		for _, v := range d {
			if v > s.MaxDeviation {
				s.MaxDeviation = v
			}
		}
		out = append(out, s)
	}
	return out
}

// RunInfo identifies one pipeline run for the writers downstream.
type RunInfo struct {
	ID         uuid.UUID       `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	Policy     ThresholdPolicy `json:"policy"`
	Matches    Matches         `json:"matches"`
	Accepted   int             `json:"accepted"`
	TestPoints int             `json:"test_points"`
}

// ResultWriter persists a result table. Implementations replace any table
// written by an earlier run.
type ResultWriter interface {
	WriteResults(ctx context.Context, run RunInfo, rows ResultTable) error
}

// TableWriter persists an input table under a name, replacing it.
type TableWriter interface {
	WriteTable(ctx context.Context, name string, t *Table) error
}

// Handoff passes a non-empty result table to w. An empty table fails with
// ErrEmptyResult; use HandoffAllowEmpty to persist one deliberately.
func Handoff(ctx context.Context, w ResultWriter, run RunInfo, rows ResultTable) error {
	if len(rows) == 0 {
		return fmt.Errorf("handoff run %s: %w: classify test points first", run.ID, ErrEmptyResult)
	}
	return HandoffAllowEmpty(ctx, w, run, rows)
}

// HandoffAllowEmpty passes rows to w even when there are none.
func HandoffAllowEmpty(ctx context.Context, w ResultWriter, run RunInfo, rows ResultTable) error {
	if w == nil {
		return fmt.Errorf("handoff run %s: %w: no result writer", run.ID, ErrConfig)
	}
	if rows == nil {
		rows = ResultTable{}
	}
	if err := w.WriteResults(ctx, run, rows); err != nil {
		return fmt.Errorf("handoff run %s: %w", run.ID, err)
	}
	return nil
}

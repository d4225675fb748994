// Package templates holds the HTML components of the report server.
//
// The *_templ.go files are generated from the .templ sources with
// `templ generate`; edit the .templ files, not the generated code.
package templates

import (
	"strconv"
)

// PairRow is one training/candidate pair in the report.
type PairRow struct {
	Training     string
	Candidate    string
	SSE          float64
	MaxDeviation float64
	Threshold    float64
	ChartURL     string
}

// SummaryRow aggregates the accepted points of one candidate.
type SummaryRow struct {
	Candidate     string
	Count         int
	MeanDeviation float64
	MaxDeviation  float64
}

// ReportView is everything the report page shows.
type ReportView struct {
	RunID      string
	StartedAt  string
	Policy     string
	Global     float64
	HasGlobal  bool
	Pairs      []PairRow
	Summary    []SummaryRow
	Total      int
	Accepted   int
	Skipped    int
	Rejected   int
	MappingURL string
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func count(n int) string {
	return strconv.Itoa(n)
}

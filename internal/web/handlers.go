package web

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/curvematch/internal/core"
	"github.com/JonMunkholm/curvematch/internal/plot"
	"github.com/JonMunkholm/curvematch/internal/web/templates"
)

// ThresholdsResponse is the body of GET /api/thresholds.
type ThresholdsResponse struct {
	Policy      core.ThresholdPolicy `json:"policy"`
	Global      *float64             `json:"global,omitempty"`
	Pairs       []core.Deviation     `json:"pairs"`
	ByCandidate map[string]float64   `json:"by_candidate"`
}

// SummaryResponse is the body of GET /api/summary.
type SummaryResponse struct {
	Run        core.RunInfo            `json:"run"`
	Stats      core.ClassifyStats      `json:"stats"`
	Candidates []core.CandidateSummary `json:"candidates"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok", "run_id": s.run.Info.ID.String()})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Report(s.reportView()).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.run.Matches)
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	th := s.run.Thresholds
	resp := ThresholdsResponse{
		Policy:      th.Policy(),
		Pairs:       th.Pairs(),
		ByCandidate: th.ByCandidate(),
	}
	if g, ok := th.Global(); ok {
		resp.Global = &g
	}
	writeJSON(w, r, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	rows := s.run.Results
	if rows == nil {
		rows = core.ResultTable{}
	}
	writeJSON(w, r, rows)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, SummaryResponse{
		Run:        s.run.Info,
		Stats:      s.run.Stats,
		Candidates: s.run.Summary(),
	})
}

func (s *Server) handleExportResults(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.run.Results.WriteCSV(&buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	w.Write(buf.Bytes())
}

func (s *Server) handlePairChart(w http.ResponseWriter, r *http.Request) {
	training := chi.URLParam(r, "training")

	var pair *core.Deviation
	for _, d := range s.run.Thresholds.Pairs() {
		if d.Training == training {
			pair = &d
			break
		}
	}
	if pair == nil {
		s.respondError(w, r, fmt.Errorf("chart: %w %q", core.ErrMissingColumn, training))
		return
	}

	s.writePNG(w, r, func(buf *bytes.Buffer) error {
		return plot.RenderPair(buf, s.run.Training, s.run.Candidates, *pair, s.plot)
	})
}

func (s *Server) handleMappingChart(w http.ResponseWriter, r *http.Request) {
	s.writePNG(w, r, func(buf *bytes.Buffer) error {
		return plot.RenderMapping(buf, s.run.Results, s.plot)
	})
}

// writePNG renders into a buffer so a failed render can still send an
// error status.
func (s *Server) writePNG(w http.ResponseWriter, r *http.Request, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(buf.Bytes())
}

func (s *Server) reportView() templates.ReportView {
	th := s.run.Thresholds
	v := templates.ReportView{
		RunID:     s.run.Info.ID.String(),
		StartedAt: s.run.Info.StartedAt.Format(time.RFC3339),
		Policy:    string(th.Policy()),
		Total:     s.run.Stats.Total,
		Accepted:  s.run.Stats.Accepted,
		Skipped:   s.run.Stats.Skipped,
		Rejected:  s.run.Stats.Rejected,
	}
	v.Global, v.HasGlobal = th.Global()

	sse := make(map[string]float64, len(s.run.Matches))
	for _, m := range s.run.Matches {
		sse[m.Training] = m.SSE
	}
	for _, d := range th.Pairs() {
		v.Pairs = append(v.Pairs, templates.PairRow{
			Training:     d.Training,
			Candidate:    d.Candidate,
			SSE:          sse[d.Training],
			MaxDeviation: d.MaxDeviation,
			Threshold:    d.Threshold,
			ChartURL:     "/chart/pair/" + url.PathEscape(d.Training) + ".png",
		})
	}
	for _, c := range s.run.Summary() {
		v.Summary = append(v.Summary, templates.SummaryRow{
			Candidate:     c.Candidate,
			Count:         c.Count,
			MeanDeviation: c.MeanDeviation,
			MaxDeviation:  c.MaxDeviation,
		})
	}
	if s.run.Results.Len() > 0 {
		v.MappingURL = "/chart/mapping.png"
	}
	return v
}

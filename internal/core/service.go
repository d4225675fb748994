package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PersistTimeout bounds all writes of a single run.
var PersistTimeout = 2 * time.Minute

// Options configures one pipeline run.
type Options struct {
	// TrainingSeries names the series to match; empty means DefaultTrainingSeries.
	TrainingSeries []string

	// Thresholds selects the threshold policy for both stages.
	Thresholds ThresholdOptions

	// AllowEmptyResult persists an empty result table instead of failing.
	AllowEmptyResult bool
}

// Run is the immutable outcome of one pipeline execution.
type Run struct {
	Info       RunInfo
	Training   *Table
	Candidates *Table
	Points     Points
	Matches    Matches
	Thresholds Thresholds
	Results    ResultTable
	Stats      ClassifyStats
}

// Summary groups the run's results by candidate.
func (r *Run) Summary() []CandidateSummary {
	return Summarize(r.Results)
}

// Execute runs matching, threshold derivation and classification in
// sequence. Each stage consumes the previous stage's value, so a stage
// cannot run before its prerequisite. Execute performs no I/O.
func Execute(training, candidates *Table, points Points, opts Options) (*Run, error) {
	matcher, err := NewMatcher(training, candidates)
	if err != nil {
		return nil, err
	}

	matches, err := matcher.FindBestMatches(opts.TrainingSeries...)
	if err != nil {
		return nil, err
	}

	thresholds, err := ComputeThresholds(matches, training, candidates, opts.Thresholds)
	if err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(points, candidates, matches, thresholds)
	if err != nil {
		return nil, err
	}
	results := classifier.MapTestPoints()
	stats := classifier.Stats()

	return &Run{
		Info: RunInfo{
			ID:         uuid.New(),
			StartedAt:  time.Now().UTC(),
			Policy:     thresholds.Policy(),
			Matches:    matches,
			Accepted:   stats.Accepted,
			TestPoints: stats.Total,
		},
		Training:   training,
		Candidates: candidates,
		Points:     points,
		Matches:    matches,
		Thresholds: thresholds,
		Results:    results,
		Stats:      stats,
	}, nil
}

// Store is what the Service needs from a persistence backend.
type Store interface {
	TableWriter
	ResultWriter
}

// Service runs the pipeline and persists its inputs and output.
type Service struct {
	store  Store
	opts   Options
	logger *slog.Logger
}

// NewService creates a new Service. A nil store disables persistence.
func NewService(store Store, opts Options) *Service {
	return &Service{
		store:  store,
		opts:   opts,
		logger: slog.Default(),
	}
}

// Run executes the pipeline, logs each stage's outcome and writes the
// training table, candidate table and result table to the store.
func (s *Service) Run(ctx context.Context, training, candidates *Table, points Points) (*Run, error) {
	run, err := Execute(training, candidates, points, s.opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	logger := s.logger.With("run_id", run.Info.ID.String())
	for _, d := range run.Thresholds.Pairs() {
		m, _ := run.Matches.Lookup(d.Training)
		logger.Info("best match",
			"training", d.Training,
			"candidate", d.Candidate,
			"sse", m.SSE,
			"max_dev", d.MaxDeviation,
			"threshold", d.Threshold,
		)
	}
	if g, ok := run.Thresholds.Global(); ok {
		logger.Info("global threshold", "threshold", g)
	}
	logger.Info("test points classified",
		"total", run.Stats.Total,
		"accepted", run.Stats.Accepted,
		"skipped", run.Stats.Skipped,
		"rejected", run.Stats.Rejected,
	)

	if s.store == nil {
		logger.Debug("no store configured, skipping persistence")
		return run, nil
	}

	ctx, cancel := context.WithTimeout(ctx, PersistTimeout)
	defer cancel()

	if err := s.persist(ctx, run); err != nil {
		return run, err
	}
	logger.Info("run persisted", "rows", run.Results.Len())
	return run, nil
}

func (s *Service) persist(ctx context.Context, run *Run) error {
	for _, t := range []*Table{run.Training, run.Candidates} {
		if err := s.store.WriteTable(ctx, t.Name(), t); err != nil {
			return fmt.Errorf("persist %s: %w", t.Name(), err)
		}
	}

	if s.opts.AllowEmptyResult {
		return HandoffAllowEmpty(ctx, s.store, run.Info, run.Results)
	}
	return Handoff(ctx, s.store, run.Info, run.Results)
}

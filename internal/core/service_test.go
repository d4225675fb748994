package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	training, candidates := scenarioTables(t)
	points := Points{{X: 1, Y: 1}, {X: 2, Y: 4}, {X: 9, Y: 0}, {X: 3, Y: 5}}

	run, err := Execute(training, candidates, points, Options{TrainingSeries: []string{"y1"}})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, run.Info.ID)
	assert.False(t, run.Info.StartedAt.IsZero())
	assert.Equal(t, PerCandidate, run.Info.Policy)
	assert.Equal(t, Matches{{Training: "y1", Candidate: "c1", SSE: 0}}, run.Matches)
	assert.Equal(t, run.Matches, run.Info.Matches)

	require.Len(t, run.Results, 2)
	assert.Equal(t, "c1", run.Results[0].Candidate)
	assert.Equal(t, ClassifyStats{Total: 4, Accepted: 2, Skipped: 1, Rejected: 1}, run.Stats)
	assert.Equal(t, 2, run.Info.Accepted)
	assert.Equal(t, 4, run.Info.TestPoints)

	summary := run.Summary()
	require.Len(t, summary, 1)
	assert.Equal(t, 2, summary[0].Count)
}

func TestExecute_StageErrors(t *testing.T) {
	training, candidates := scenarioTables(t)

	short := mustTable(t, "ideal", []float64{0, 1}, Series{Name: "c1", Values: []float64{0, 1}})
	_, err := Execute(training, short, nil, Options{})
	assert.ErrorIs(t, err, ErrAlignment)

	_, err = Execute(training, candidates, nil, Options{})
	assert.ErrorIs(t, err, ErrMissingColumn, "default series y2..y4 are absent")

	_, err = Execute(training, candidates, nil, Options{
		TrainingSeries: []string{"y1"},
		Thresholds:     ThresholdOptions{Policy: "bogus"},
	})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestService_Run(t *testing.T) {
	training, candidates := scenarioTables(t)
	points := Points{{X: 1, Y: 1}}
	store := &recordingWriter{}

	svc := NewService(store, Options{TrainingSeries: []string{"y1"}})
	run, err := svc.Run(context.Background(), training, candidates, points)
	require.NoError(t, err)

	assert.Same(t, training, store.tables["training"])
	assert.Same(t, candidates, store.tables["ideal"])
	require.Len(t, store.rows, 1)
	assert.Equal(t, run.Results, store.rows[0])
	assert.Equal(t, run.Info.ID, store.runs[0].ID)
}

func TestService_RunEmptyResult(t *testing.T) {
	training, candidates := scenarioTables(t)
	points := Points{{X: 1, Y: 50}}

	t.Run("fails by default", func(t *testing.T) {
		store := &recordingWriter{}
		run, err := NewService(store, Options{TrainingSeries: []string{"y1"}}).
			Run(context.Background(), training, candidates, points)
		assert.ErrorIs(t, err, ErrEmptyResult)
		require.NotNil(t, run)
		assert.Empty(t, run.Results)
		assert.Empty(t, store.rows)
	})

	t.Run("allowed", func(t *testing.T) {
		store := &recordingWriter{}
		_, err := NewService(store, Options{TrainingSeries: []string{"y1"}, AllowEmptyResult: true}).
			Run(context.Background(), training, candidates, points)
		require.NoError(t, err)
		require.Len(t, store.rows, 1)
		assert.Empty(t, store.rows[0])
	})
}

func TestService_RunWithoutStore(t *testing.T) {
	training, candidates := scenarioTables(t)
	run, err := NewService(nil, Options{TrainingSeries: []string{"y1"}}).
		Run(context.Background(), training, candidates, nil)
	require.NoError(t, err)
	assert.Empty(t, run.Results)
}

func TestService_RunStoreError(t *testing.T) {
	training, candidates := scenarioTables(t)
	boom := errors.New("connection refused")

	_, err := NewService(&recordingWriter{err: boom}, Options{TrainingSeries: []string{"y1"}}).
		Run(context.Background(), training, candidates, Points{{X: 1, Y: 1}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "DB001", MapError(err).Code)
}

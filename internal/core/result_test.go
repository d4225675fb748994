package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	tables map[string]*Table
	runs   []RunInfo
	rows   []ResultTable
	err    error
}

func (w *recordingWriter) WriteTable(_ context.Context, name string, t *Table) error {
	if w.err != nil {
		return w.err
	}
	if w.tables == nil {
		w.tables = make(map[string]*Table)
	}
	w.tables[name] = t
	return nil
}

func (w *recordingWriter) WriteResults(_ context.Context, run RunInfo, rows ResultTable) error {
	if w.err != nil {
		return w.err
	}
	w.runs = append(w.runs, run)
	w.rows = append(w.rows, rows)
	return nil
}

func TestResultTable_WriteCSV(t *testing.T) {
	rows := ResultTable{
		{X: 1, Y: 1.05, Deviation: 0.05, Candidate: "c1"},
		{X: -2.5, Y: 3, Deviation: 0, Candidate: "c2"},
	}

	var buf bytes.Buffer
	require.NoError(t, rows.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "x,y,delta_y,ideal_function", lines[0])
	assert.Equal(t, "1,1.05,0.05,c1", lines[1])
	assert.Equal(t, "-2.5,3,0,c2", lines[2])
}

func TestResultTable_WriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ResultTable(nil).WriteCSV(&buf))
	assert.Equal(t, "x,y,delta_y,ideal_function", strings.TrimSpace(buf.String()))
}

func TestSummarize(t *testing.T) {
	rows := ResultTable{
		{X: 0, Y: 0, Deviation: 0.2, Candidate: "c2"},
		{X: 1, Y: 1, Deviation: 0.1, Candidate: "c1"},
		{X: 2, Y: 2, Deviation: 0.4, Candidate: "c2"},
	}

	got := Summarize(rows)
	require.Len(t, got, 2)

	assert.Equal(t, "c2", got[0].Candidate)
	assert.Equal(t, 2, got[0].Count)
	assert.InDelta(t, 0.3, got[0].MeanDeviation, 1e-12)
	assert.Equal(t, 0.4, got[0].MaxDeviation)

	assert.Equal(t, CandidateSummary{Candidate: "c1", Count: 1, MeanDeviation: 0.1, MaxDeviation: 0.1}, got[1])

	assert.Empty(t, Summarize(nil))
}

func TestHandoff(t *testing.T) {
	run := RunInfo{ID: uuid.New()}
	rows := ResultTable{{X: 1, Y: 1, Deviation: 0, Candidate: "c1"}}

	t.Run("passes rows through", func(t *testing.T) {
		w := &recordingWriter{}
		require.NoError(t, Handoff(context.Background(), w, run, rows))
		require.Len(t, w.rows, 1)
		assert.Equal(t, rows, w.rows[0])
		assert.Equal(t, run.ID, w.runs[0].ID)
	})

	t.Run("empty table fails", func(t *testing.T) {
		w := &recordingWriter{}
		err := Handoff(context.Background(), w, run, nil)
		assert.ErrorIs(t, err, ErrEmptyResult)
		assert.Empty(t, w.rows)
	})

	t.Run("allow empty writes empty table", func(t *testing.T) {
		w := &recordingWriter{}
		require.NoError(t, HandoffAllowEmpty(context.Background(), w, run, nil))
		require.Len(t, w.rows, 1)
		assert.NotNil(t, w.rows[0])
		assert.Empty(t, w.rows[0])
	})

	t.Run("nil writer", func(t *testing.T) {
		err := HandoffAllowEmpty(context.Background(), nil, run, rows)
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("writer error is wrapped", func(t *testing.T) {
		boom := errors.New("disk full")
		err := Handoff(context.Background(), &recordingWriter{err: boom}, run, rows)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), run.ID.String())
	})
}

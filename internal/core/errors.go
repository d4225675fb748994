package core

import (
	"errors"
	"fmt"
)

// Sentinel errors raised by the matching engine. Callers match them with
// errors.Is; the messages double as patterns for MapError.
var (
	// ErrAlignment means the training and candidate tables do not share a grid.
	ErrAlignment = errors.New("grid alignment mismatch")

	// ErrState means a stage ran before the stage it depends on.
	ErrState = errors.New("stage not yet computed")

	// ErrConfig means a required input of a stage is missing or empty.
	ErrConfig = errors.New("missing configuration")

	// ErrEmptyResult means an empty or absent result table was handed to a writer.
	ErrEmptyResult = errors.New("empty result table")

	// ErrMissingColumn means a named series is not present in a table.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidValue means a table cell is not a finite number or a table is malformed.
	ErrInvalidValue = errors.New("invalid number")

	// ErrThresholdCollision means two training series selected the same
	// candidate under CollisionReject.
	ErrThresholdCollision = errors.New("threshold collision")
)

// AlignmentError describes where two tables stop sharing a grid.
// Row is -1 when the row counts differ.
type AlignmentError struct {
	TrainingRows  int
	CandidateRows int
	Row           int
	TrainingX     float64
	CandidateX    float64
}

func (e *AlignmentError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s: training has %d rows, candidates have %d",
			ErrAlignment, e.TrainingRows, e.CandidateRows)
	}
	return fmt.Sprintf("%s: row %d has x=%g in training and x=%g in candidates",
		ErrAlignment, e.Row, e.TrainingX, e.CandidateX)
}

func (e *AlignmentError) Unwrap() error {
	return ErrAlignment
}

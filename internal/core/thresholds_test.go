package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collisionTables makes y1 and y3 both select c1. y3 differs from c1 by 0.5
// at x=2, so its threshold is 0.5·√2 while y1's is 0.
func collisionTables(t *testing.T) (*Table, *Table) {
	return scenarioTables(t, Series{Name: "y3", Values: []float64{0, 1, 4.5, 9}})
}

func TestComputeThresholds_RequiresMatches(t *testing.T) {
	training, candidates := scenarioTables(t)

	_, err := ComputeThresholds(nil, training, candidates, ThresholdOptions{})
	assert.ErrorIs(t, err, ErrState)

	_, err = ComputeThresholds(Matches{}, training, candidates, ThresholdOptions{Policy: Global})
	assert.ErrorIs(t, err, ErrState)
}

func TestComputeThresholds_InvalidOptions(t *testing.T) {
	training, candidates := scenarioTables(t)
	matches := Matches{{Training: "y1", Candidate: "c1"}}

	_, err := ComputeThresholds(matches, training, candidates, ThresholdOptions{Policy: "median"})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = ComputeThresholds(matches, training, candidates, ThresholdOptions{Collision: "merge"})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = ComputeThresholds(Matches{{Training: "y1", Candidate: "c7"}}, training, candidates, ThresholdOptions{})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestComputeThresholds_Collision(t *testing.T) {
	training, candidates := collisionTables(t)
	m, err := NewMatcher(training, candidates)
	require.NoError(t, err)

	matches, err := m.FindBestMatches("y1", "y3")
	require.NoError(t, err)
	require.Equal(t, "c1", matches[0].Candidate)
	require.Equal(t, "c1", matches[1].Candidate)

	t.Run("last write wins", func(t *testing.T) {
		th, err := ComputeThresholds(matches, training, candidates, ThresholdOptions{
			Policy:    PerCandidate,
			Collision: LastWriteWins,
		})
		require.NoError(t, err)

		limit, ok := th.For("c1")
		require.True(t, ok)
		assert.Equal(t, 0.5*math.Sqrt2, limit)

		pairs := th.Pairs()
		require.Len(t, pairs, 2)
		assert.Equal(t, 0.0, pairs[0].Threshold)
		assert.Equal(t, 0.5, pairs[1].MaxDeviation)
	})

	t.Run("last write wins follows match order", func(t *testing.T) {
		reversed, err := m.FindBestMatches("y3", "y1")
		require.NoError(t, err)

		th, err := ComputeThresholds(reversed, training, candidates, ThresholdOptions{})
		require.NoError(t, err)

		limit, _ := th.For("c1")
		assert.Equal(t, 0.0, limit)
	})

	t.Run("reject", func(t *testing.T) {
		th, err := ComputeThresholds(matches, training, candidates, ThresholdOptions{
			Policy:    PerCandidate,
			Collision: CollisionReject,
		})
		assert.ErrorIs(t, err, ErrThresholdCollision)
		assert.True(t, th.IsZero())
	})

	t.Run("global policy ignores collisions", func(t *testing.T) {
		th, err := ComputeThresholds(matches, training, candidates, ThresholdOptions{
			Policy:    Global,
			Collision: CollisionReject,
		})
		require.NoError(t, err)

		g, ok := th.Global()
		require.True(t, ok)
		assert.Equal(t, 0.5*math.Sqrt2, g)
	})
}

func TestComputeThresholds_GlobalUsesLargestDeviation(t *testing.T) {
	training, candidates := randomTables(t, 11, 50, 4, 8)
	m, err := NewMatcher(training, candidates)
	require.NoError(t, err)
	matches, err := m.FindBestMatches()
	require.NoError(t, err)

	th, err := ComputeThresholds(matches, training, candidates, ThresholdOptions{Policy: Global})
	require.NoError(t, err)

	largest := 0.0
	for _, p := range th.Pairs() {
		largest = math.Max(largest, p.MaxDeviation)
	}
	g, ok := th.Global()
	require.True(t, ok)
	assert.Equal(t, largest*math.Sqrt2, g)

	for _, name := range matches.Selected() {
		limit, ok := th.For(name)
		require.True(t, ok)
		assert.Equal(t, g, limit)
	}
}

func TestComputeThresholds_NonNegative(t *testing.T) {
	for seed := int64(20); seed < 25; seed++ {
		training, candidates := randomTables(t, seed, 30, 4, 10)
		m, err := NewMatcher(training, candidates)
		require.NoError(t, err)
		matches, err := m.FindBestMatches()
		require.NoError(t, err)

		for _, policy := range []ThresholdPolicy{PerCandidate, Global} {
			th, err := ComputeThresholds(matches, training, candidates, ThresholdOptions{Policy: policy})
			require.NoError(t, err)

			for _, p := range th.Pairs() {
				assert.GreaterOrEqual(t, p.MaxDeviation, 0.0)
				assert.GreaterOrEqual(t, p.Threshold, 0.0)
				// Noisy training data never coincides with a candidate.
				assert.Greater(t, p.Threshold, 0.0)
			}
			for _, v := range th.ByCandidate() {
				assert.GreaterOrEqual(t, v, 0.0)
			}
		}
	}
}

func TestThresholds_ZeroValue(t *testing.T) {
	var th Thresholds
	assert.True(t, th.IsZero())

	_, ok := th.For("c1")
	assert.False(t, ok)
	_, ok = th.Global()
	assert.False(t, ok)
	assert.Empty(t, th.ByCandidate())
}

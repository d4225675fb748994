package core

import (
	"fmt"
	"math"
)

var inf = math.Inf(1)

// ThresholdPolicy selects how acceptance thresholds are scoped.
type ThresholdPolicy string

const (
	// PerCandidate gives every selected candidate its own bound:
	// max deviation of its training series times √2.
	PerCandidate ThresholdPolicy = "per-candidate"

	// Global applies one bound to every test point:
	// √2 times the largest max deviation over all pairs.
	Global ThresholdPolicy = "global"
)

// CollisionPolicy decides what PerCandidate does when two training series
// select the same candidate.
type CollisionPolicy string

const (
	// LastWriteWins keeps the threshold of the training series that comes
	// last in match order.
	LastWriteWins CollisionPolicy = "last-write-wins"

	// CollisionReject fails with ErrThresholdCollision.
	CollisionReject CollisionPolicy = "reject"
)

// ThresholdOptions configures ComputeThresholds. The zero value means
// PerCandidate with LastWriteWins.
type ThresholdOptions struct {
	Policy    ThresholdPolicy
	Collision CollisionPolicy
}

func (o ThresholdOptions) withDefaults() ThresholdOptions {
	if o.Policy == "" {
		o.Policy = PerCandidate
	}
	if o.Collision == "" {
		o.Collision = LastWriteWins
	}
	return o
}

// Deviation records the fit of one matched pair.
type Deviation struct {
	Training     string  `json:"training"`
	Candidate    string  `json:"candidate"`
	MaxDeviation float64 `json:"max_deviation"`
	Threshold    float64 `json:"threshold"`
}

// Thresholds is the acceptance bound source consumed by the Classifier.
// The zero value is "absent" and is rejected by NewClassifier.
type Thresholds struct {
	policy       ThresholdPolicy
	pairs        []Deviation
	perCandidate map[string]float64
	global       float64
}

// Policy returns the policy the thresholds were computed with.
func (t Thresholds) Policy() ThresholdPolicy { return t.policy }

// IsZero reports whether the thresholds were never computed.
func (t Thresholds) IsZero() bool { return t.policy == "" }

// Pairs returns the per-pair deviations in match order.
func (t Thresholds) Pairs() []Deviation {
	return append([]Deviation(nil), t.pairs...)
}

// For returns the bound applicable to points assigned to candidate.
func (t Thresholds) For(candidate string) (float64, bool) {
	switch t.policy {
	case Global:
		return t.global, true
	case PerCandidate:
		v, ok := t.perCandidate[candidate]
		return v, ok
	default:
		return 0, false
	}
}

// Global returns the single bound under the Global policy.
func (t Thresholds) Global() (float64, bool) {
	if t.policy != Global {
		return 0, false
	}
	return t.global, true
}

// ByCandidate returns a copy of the per-candidate bounds. Under the Global
// policy every selected candidate maps to the global bound.
func (t Thresholds) ByCandidate() map[string]float64 {
	out := make(map[string]float64, len(t.pairs))
	for _, p := range t.pairs {
		if v, ok := t.For(p.Candidate); ok {
			out[p.Candidate] = v
		}
	}
	return out
}

// ComputeThresholds measures, for each matched pair, the largest absolute
// difference between the training series and its candidate over the grid,
// and derives acceptance bounds from it according to opts.
//
// It fails with ErrState when m is empty: thresholds only exist downstream
// of a FindBestMatches result.
func ComputeThresholds(m Matches, training, candidates *Table, opts ThresholdOptions) (Thresholds, error) {
	if len(m) == 0 {
		return Thresholds{}, fmt.Errorf("compute thresholds: %w: no matches", ErrState)
	}
	if training == nil || candidates == nil {
		return Thresholds{}, fmt.Errorf("compute thresholds: %w: training and candidate tables are required", ErrConfig)
	}
	if err := checkGrid(training, candidates); err != nil {
		return Thresholds{}, err
	}

	opts = opts.withDefaults()
	if opts.Policy != PerCandidate && opts.Policy != Global {
		return Thresholds{}, fmt.Errorf("compute thresholds: %w: unknown threshold policy %q", ErrConfig, opts.Policy)
	}
	if opts.Collision != LastWriteWins && opts.Collision != CollisionReject {
		return Thresholds{}, fmt.Errorf("compute thresholds: %w: unknown collision policy %q", ErrConfig, opts.Collision)
	}

	out := Thresholds{
		policy:       opts.Policy,
		pairs:        make([]Deviation, 0, len(m)),
		perCandidate: make(map[string]float64, len(m)),
	}
	owner := make(map[string]string, len(m))
	largest := 0.0

	for _, match := range m {
		train, ok := training.series[match.Training]
		if !ok {
			return Thresholds{}, fmt.Errorf("compute thresholds: %w %q in %q", ErrMissingColumn, match.Training, training.Name())
		}
		cand, ok := candidates.series[match.Candidate]
		if !ok {
			return Thresholds{}, fmt.Errorf("compute thresholds: %w %q in %q", ErrMissingColumn, match.Candidate, candidates.Name())
		}

		maxDev := maxAbsDeviation(train, cand)
		d := Deviation{
			Training:     match.Training,
			Candidate:    match.Candidate,
			MaxDeviation: maxDev,
			Threshold:    maxDev * math.Sqrt2,
		}
		out.pairs = append(out.pairs, d)

		if maxDev > largest {
			largest = maxDev
		}

		if opts.Policy == PerCandidate {
			if prev, taken := owner[match.Candidate]; taken && opts.Collision == CollisionReject {
				return Thresholds{}, fmt.Errorf("compute thresholds: %w: %q and %q both selected %q",
					ErrThresholdCollision, prev, match.Training, match.Candidate)
			}
			owner[match.Candidate] = match.Training
			out.perCandidate[match.Candidate] = d.Threshold
		}
	}

	if opts.Policy == Global {
		out.global = largest * math.Sqrt2
	}

	return out, nil
}

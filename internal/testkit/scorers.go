package testkit

import (
	"context"
	"errors"
	"sync/atomic"

	"nullbench/domain/core"
	"nullbench/domain/sequence"
	"nullbench/ports"
)

// ConstantScorer returns the same score for every sequence. Against it, any
// real signal ties every null trial and ranks at the 50th percentile.
func ConstantScorer(value float64) ports.ScorerPort {
	return ports.ScorerFunc{
		ScorerName: "constant",
		Fn: func(_ context.Context, _ *sequence.StateSequence) (float64, error) {
			return value, nil
		},
	}
}

// ProportionScorer scores a sequence by the proportion of one label. Since
// the randomizer reproduces label proportions within tolerance, real and
// null scores stay close, mimicking a signal with no real edge.
func ProportionScorer(label sequence.Label) ports.ScorerPort {
	return ports.ScorerFunc{
		ScorerName: "proportion_" + string(label),
		Fn: func(_ context.Context, seq *sequence.StateSequence) (float64, error) {
			return seq.Frequencies().Proportion(label), nil
		},
	}
}

// StreakScorer scores a sequence by its longest run of one label, a crude
// stand-in for a strategy that profits from persistence
func StreakScorer(label sequence.Label) ports.ScorerPort {
	return ports.ScorerFunc{
		ScorerName: "streak_" + string(label),
		Fn: func(_ context.Context, seq *sequence.StateSequence) (float64, error) {
			longest := 0
			for _, c := range seq.Clusters() {
				if c.Label == label && c.Length > longest {
					longest = c.Length
				}
			}
			return float64(longest), nil
		},
	}
}

// OracleScorer scores the reference sequence high and everything else low,
// the textbook case of a signal that beats every null trial
func OracleScorer(real *sequence.StateSequence, high, low float64) ports.ScorerPort {
	realHash := real.Hash()
	return ports.ScorerFunc{
		ScorerName: "oracle",
		Fn: func(_ context.Context, seq *sequence.StateSequence) (float64, error) {
			if seq.Hash() == realHash {
				return high, nil
			}
			return low, nil
		},
	}
}

// FlakyScorer wraps another scorer and fails every nth call, for exercising
// the skip-and-count failure policy
func FlakyScorer(inner ports.ScorerPort, failEvery int) ports.ScorerPort {
	var calls atomic.Int64
	return ports.ScorerFunc{
		ScorerName: inner.Name() + "_flaky",
		Fn: func(ctx context.Context, seq *sequence.StateSequence) (float64, error) {
			n := calls.Add(1)
			if failEvery > 0 && n%int64(failEvery) == 0 {
				return 0, errors.New("synthetic scoring failure")
			}
			return inner.Score(ctx, seq)
		},
	}
}

// BrokenScorer fails on every call
func BrokenScorer() ports.ScorerPort {
	return ports.ScorerFunc{
		ScorerName: "broken",
		Fn: func(_ context.Context, _ *sequence.StateSequence) (float64, error) {
			return 0, core.ErrScoringFailed
		},
	}
}

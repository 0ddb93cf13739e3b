package ports

import (
	"context"
	"math/rand"

	"nullbench/domain/sequence"
)

// RandomizerPort produces synthetic state sequences whose label frequencies
// and first-order transition structure approximate a reference sequence's.
// Markov sampling preserves the temporal clustering a naive shuffle destroys.
type RandomizerPort interface {
	// Generate returns a synthetic sequence of the requested length (0 means
	// match the reference). GeneratedSequence.OutOfTolerance is set when the
	// warn policy accepted an out-of-band draw; the reject policy returns a
	// randomization error instead once the attempt budget is spent.
	Generate(ctx context.Context, ref *sequence.StateSequence, length int, rng *rand.Rand) (*GeneratedSequence, error)
}

// GeneratedSequence is one randomizer draw plus its tolerance accounting
type GeneratedSequence struct {
	Sequence       *sequence.StateSequence
	Attempts       int
	WorstDeviation float64 // largest per-label proportion gap vs the reference
	OutOfTolerance bool
}

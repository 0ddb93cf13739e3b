package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// TrialStream creates a deterministic RNG stream for one trial of a run.
	// The key is the run's fingerprint hash, so the same
	// (fingerprint, trialIndex, baseSeed) triple always yields the same
	// stream and full runs replay bit-identically from their fingerprint.
	TrialStream(ctx context.Context, fingerprint string, trialIndex int, baseSeed int64) (*rand.Rand, error)
}

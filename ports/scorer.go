package ports

import (
	"context"

	"nullbench/domain/sequence"
)

// ScorerPort scores a state sequence with a scalar performance figure.
// The scoring engine is an external collaborator (a backtest, a Sharpe
// calculator, anything) and is injected; the validation core never looks
// inside the number. Implementations must be safe for concurrent use since
// trials score in parallel.
type ScorerPort interface {
	// Name identifies the scorer in run records and the HTTP registry
	Name() string

	// Score maps a sequence (real or synthetic) to a scalar. An error marks
	// the trial as failed; it does not abort the run.
	Score(ctx context.Context, seq *sequence.StateSequence) (float64, error)
}

// ScorerFunc adapts a plain function to ScorerPort
type ScorerFunc struct {
	ScorerName string
	Fn         func(ctx context.Context, seq *sequence.StateSequence) (float64, error)
}

func (s ScorerFunc) Name() string { return s.ScorerName }

func (s ScorerFunc) Score(ctx context.Context, seq *sequence.StateSequence) (float64, error) {
	return s.Fn(ctx, seq)
}

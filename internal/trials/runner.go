package trials

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"nullbench/domain/core"
	"nullbench/domain/run"
	"nullbench/domain/sequence"
	"nullbench/internal"
	"nullbench/ports"
)

// Result is one batch of trials. Partial results from a cancelled run are
// valid null distributions, just smaller than requested; the counts say so.
type Result struct {
	Null              *run.NullDistribution
	Requested         int
	Completed         int
	Failed            int
	ToleranceWarnings int
}

// Runner drives N independent randomize-and-score trials. Trials are
// embarrassingly parallel: workers share only the read-only reference
// statistics, so no locking beyond the pool semaphore is needed.
type Runner struct {
	randomizer   ports.RandomizerPort
	rng          ports.RNGPort
	workers      int64
	trialTimeout time.Duration
	logger       *internal.Logger
}

// NewRunner creates a trial runner with a bounded worker pool
func NewRunner(randomizer ports.RandomizerPort, rng ports.RNGPort, workers int, trialTimeout time.Duration, logger *internal.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if trialTimeout <= 0 {
		// context.WithTimeout(ctx, 0) is born expired, failing every trial
		trialTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Runner{
		randomizer:   randomizer,
		rng:          rng,
		workers:      int64(workers),
		trialTimeout: trialTimeout,
		logger:       logger.Component("trials"),
	}
}

type outcome struct {
	score  float64
	warned bool
	err    error // scoring failure: trial skipped, run continues
	fatal  error // randomization failure: the whole null is suspect
}

// Run executes n trials with per-trial seeds fp.Seed+index, starting at
// startIndex so an extended run never reuses a seed. Streams are keyed by
// the fingerprint, so two runs with the same fingerprint produce the same
// null distribution. A scoring failure skips that trial; a randomization
// failure aborts, since a biased null invalidates the significance test.
func (r *Runner) Run(ctx context.Context, fp run.Fingerprint, ref *sequence.StateSequence, scorer ports.ScorerPort, n, startIndex int) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(r.workers)
	outcomes := make(chan outcome, n)
	var wg sync.WaitGroup

	started := time.Now()
	for i := 0; i < n; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // cancelled: stop launching, drain what already runs
		}
		wg.Add(1)
		go func(trialIndex int) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes <- r.runTrial(ctx, fp, ref, scorer, trialIndex)
		}(startIndex + i)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &Result{Null: run.NewNullDistribution(), Requested: n}
	var fatal error

	for o := range outcomes {
		switch {
		case o.fatal != nil:
			if fatal == nil {
				fatal = o.fatal
				cancel() // no point finishing trials for a dead run
			}
		case o.err != nil:
			result.Failed++
		default:
			result.Completed++
			result.Null.Add(o.score)
			if o.warned {
				result.ToleranceWarnings++
			}
		}
	}

	r.logger.Info("batch done: %d/%d completed, %d failed in %v",
		result.Completed, result.Requested, result.Failed, time.Since(started))

	if fatal != nil {
		return result, fatal
	}
	return result, ctx.Err()
}

func (r *Runner) runTrial(ctx context.Context, fp run.Fingerprint, ref *sequence.StateSequence, scorer ports.ScorerPort, trialIndex int) outcome {
	stream, err := r.rng.TrialStream(ctx, fp.Fingerprint.String(), trialIndex, fp.Seed)
	if err != nil {
		return outcome{fatal: err}
	}

	gen, err := r.randomizer.Generate(ctx, ref, 0, stream)
	if err != nil {
		return outcome{fatal: err}
	}

	// timeout counts as a scoring failure, not an abort
	scoreCtx, cancel := context.WithTimeout(ctx, r.trialTimeout)
	defer cancel()

	score, err := scorer.Score(scoreCtx, gen.Sequence)
	if err != nil {
		r.logger.Warn("trial %d skipped: %v", trialIndex, err)
		return outcome{err: core.NewScoringError(trialIndex, err)}
	}

	return outcome{score: score, warned: gen.OutOfTolerance}
}

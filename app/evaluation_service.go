package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"nullbench/domain/core"
	"nullbench/domain/run"
	"nullbench/domain/sequence"
	"nullbench/domain/verdict"
	"nullbench/internal"
	"nullbench/internal/config"
	"nullbench/internal/convergence"
	apperrors "nullbench/internal/errors"
	"nullbench/internal/significance"
	"nullbench/internal/trials"
	"nullbench/ports"
)

// EvaluationService is the single entry point of the validation core: give it
// a real state sequence and a scorer, get back a significance verdict with
// full trial accounting.
type EvaluationService struct {
	cfg       config.ValidationConfig
	runner    *trials.Runner
	evaluator *significance.Evaluator
	tracker   *convergence.Tracker
	repo      ports.RunRepository // nil means in-memory only
	logger    *internal.Logger

	mu    sync.Mutex
	state map[core.RunID]*runState
}

// runState keeps what an extension needs beyond the persisted record: the
// reference sequence, the scorer, and the next unused trial seed index
type runState struct {
	run       *run.EvaluationRun
	ref       *sequence.StateSequence
	scorer    ports.ScorerPort
	realScore float64
	nextIndex int
	warnings  int
}

// EvaluationOutcome bundles the run record with the convergence report.
// Result is nil while the run is INSUFFICIENT.
type EvaluationOutcome struct {
	Run         *run.EvaluationRun
	Result      *verdict.SignificanceResult
	Convergence convergence.Report
}

// NewEvaluationService wires the validation core together
func NewEvaluationService(cfg config.ValidationConfig, runner *trials.Runner, evaluator *significance.Evaluator, tracker *convergence.Tracker, repo ports.RunRepository, logger *internal.Logger) *EvaluationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &EvaluationService{
		cfg:       cfg,
		runner:    runner,
		evaluator: evaluator,
		tracker:   tracker,
		repo:      repo,
		logger:    logger.Component("evaluation"),
		state:     make(map[core.RunID]*runState),
	}
}

// Evaluate runs nTrials randomize-and-score trials against ref and compares
// the real signal's score to the resulting null distribution. nTrials <= 0
// uses the configured default. When fewer than the minimum trials complete,
// the run is left INSUFFICIENT and an insufficient-trials error is returned
// alongside the partial outcome; Extend can then top the run up.
func (s *EvaluationService) Evaluate(ctx context.Context, ref *sequence.StateSequence, scorer ports.ScorerPort, nTrials int) (*EvaluationOutcome, error) {
	if nTrials <= 0 {
		nTrials = s.cfg.Trials
	}

	seed := s.cfg.BaseSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	fp := run.NewFingerprint(ref.Hash(), s.cfg.Hash(), seed, scorer.Name())
	r := run.NewEvaluationRun(ref.Hash(), scorer.Name(), fp)

	realScore, err := scorer.Score(ctx, ref)
	if err != nil {
		// cannot even score the real signal: nothing to compare against
		return nil, apperrors.ScoringError(scorer.Name(), err)
	}

	st := &runState{run: r, ref: ref, scorer: scorer, realScore: realScore}
	s.mu.Lock()
	s.state[r.ID] = st
	s.mu.Unlock()

	if err := r.Transition(run.StatusGeneratingTrials); err != nil {
		return nil, err
	}

	s.logger.Info("run %s: %d trials against %d-day reference (scorer=%s, seed=%d)",
		r.ID, nTrials, ref.Len(), scorer.Name(), seed)

	batch, err := s.runner.Run(ctx, fp, ref, scorer, nTrials, st.nextIndex)
	return s.finish(ctx, st, batch, err)
}

// Extend adds trials to an INSUFFICIENT run, continuing the seed series so
// the extended run is still replayable from its fingerprint.
func (s *EvaluationService) Extend(ctx context.Context, runID core.RunID, additional int) (*EvaluationOutcome, error) {
	if additional <= 0 {
		return nil, apperrors.InvalidInput("additional trial count must be positive")
	}

	s.mu.Lock()
	st, ok := s.state[runID]
	s.mu.Unlock()
	if !ok {
		return nil, core.NewNotFoundError("run", runID.String())
	}

	if st.run.Status != run.StatusInsufficient {
		return nil, apperrors.InvalidInput("run " + runID.String() + " is not awaiting more trials")
	}
	if err := st.run.Transition(run.StatusGeneratingTrials); err != nil {
		return nil, err
	}

	batch, err := s.runner.Run(ctx, st.run.Fingerprint, st.ref, st.scorer, additional, st.nextIndex)
	return s.finish(ctx, st, batch, err)
}

// finish merges a trial batch into the run and drives the state machine to
// its next stop: ABORTED, INSUFFICIENT, or EVALUATED.
func (s *EvaluationService) finish(ctx context.Context, st *runState, batch *trials.Result, runErr error) (*EvaluationOutcome, error) {
	r := st.run

	if batch != nil {
		r.Counts.Requested += batch.Requested
		r.Counts.Completed += batch.Completed
		r.Counts.Failed += batch.Failed
		r.Null.Merge(batch.Null)
		st.warnings += batch.ToleranceWarnings
		st.nextIndex += batch.Requested
	}

	outcome := &EvaluationOutcome{Run: r, Convergence: s.tracker.Report(r.Null)}

	if runErr != nil && !isContextErr(runErr) {
		// randomization failures poison the null; abort loudly
		_ = r.Transition(run.StatusAborted)
		s.persist(ctx, r)
		return outcome, apperrors.RandomizationError("run "+r.ID.String()+" aborted", runErr)
	}

	if float64(r.Counts.Failed) > s.cfg.MaxFailureFraction*float64(r.Counts.Requested) {
		_ = r.Transition(run.StatusAborted)
		s.persist(ctx, r)
		return outcome, apperrors.WithCode(apperrors.CodeScoring, core.ErrRunAborted)
	}

	if r.Counts.Completed < s.cfg.MinTrials {
		_ = r.Transition(run.StatusInsufficient)
		s.persist(ctx, r)
		if runErr != nil {
			return outcome, runErr // cancelled: partial counts already annotated
		}
		return outcome, core.NewInsufficientTrialsError(r.Counts.Completed, s.cfg.MinTrials)
	}

	if err := r.Transition(run.StatusSufficient); err != nil {
		return outcome, err
	}

	result, err := s.evaluator.Evaluate(st.realScore, r.Null, r.Counts, st.warnings)
	if err != nil {
		return outcome, err
	}
	result.RunID = r.ID
	r.Result = result

	if err := r.Transition(run.StatusEvaluated); err != nil {
		return outcome, err
	}
	s.persist(ctx, r)

	outcome.Result = result
	s.logger.Info("run %s: percentile %.1f, p=%.4f (%s), %d/%d trials (%d failed)",
		r.ID, result.Percentile, result.PValue, result.Status,
		r.Counts.Completed, r.Counts.Requested, r.Counts.Failed)

	return outcome, nil
}

// GetRun returns a run by ID, preferring live state over the repository
func (s *EvaluationService) GetRun(ctx context.Context, runID core.RunID) (*run.EvaluationRun, error) {
	s.mu.Lock()
	st, ok := s.state[runID]
	s.mu.Unlock()
	if ok {
		return st.run, nil
	}
	if s.repo != nil {
		return s.repo.GetRun(ctx, runID)
	}
	return nil, core.NewNotFoundError("run", runID.String())
}

// ListRuns returns recent runs from the repository, or live state when no
// repository is configured
func (s *EvaluationService) ListRuns(ctx context.Context, limit int) ([]*run.EvaluationRun, error) {
	if s.repo != nil {
		return s.repo.ListRuns(ctx, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]*run.EvaluationRun, 0, len(s.state))
	for _, st := range s.state {
		runs = append(runs, st.run)
	}
	return runs, nil
}

func (s *EvaluationService) persist(ctx context.Context, r *run.EvaluationRun) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveRun(ctx, r); err != nil {
		s.logger.Error("failed to persist run %s: %v", r.ID, err)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

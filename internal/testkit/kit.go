package testkit

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"nullbench/adapters/markov"
	rngadapter "nullbench/adapters/rng"
	"nullbench/app"
	"nullbench/domain/core"
	"nullbench/domain/run"
	"nullbench/domain/sequence"
	"nullbench/internal"
	"nullbench/internal/config"
	"nullbench/internal/convergence"
	"nullbench/internal/significance"
	"nullbench/internal/trials"
	"nullbench/ports"
)

// Kit provides deterministic fixtures for tests and demos
type Kit struct {
	seed int64
}

// NewKit creates a kit with a fixed base seed
func NewKit(seed int64) *Kit {
	if seed == 0 {
		seed = 42
	}
	return &Kit{seed: seed}
}

// RedGreen is the two-state alphabet most experiments reduce to
var RedGreen = sequence.MustAlphabet(sequence.LabelRed, sequence.LabelGreen)

// TwoStateSequence generates an autocorrelated RED/GREEN sequence by walking
// a two-state chain with the given stay probabilities. The stationary RED
// proportion is (1-pStayGreen) / ((1-pStayRed) + (1-pStayGreen)).
func (k *Kit) TwoStateSequence(length int, pStayRed, pStayGreen float64) *sequence.StateSequence {
	rng := rand.New(rand.NewSource(k.seed))

	labels := make([]sequence.Label, length)
	current := sequence.LabelGreen
	if rng.Float64() < StationaryRed(pStayRed, pStayGreen) {
		current = sequence.LabelRed
	}
	labels[0] = current

	for i := 1; i < length; i++ {
		stay := pStayGreen
		if current == sequence.LabelRed {
			stay = pStayRed
		}
		if rng.Float64() >= stay {
			if current == sequence.LabelRed {
				current = sequence.LabelGreen
			} else {
				current = sequence.LabelRed
			}
		}
		labels[i] = current
	}

	seq, err := sequence.NewStateSequence(RedGreen, labels)
	if err != nil {
		panic(err) // fixed alphabet, cannot happen
	}
	return seq
}

// Service assembles a fully wired in-memory EvaluationService around the
// given validation config, the way the server's container does
func (k *Kit) Service(cfg config.ValidationConfig) *app.EvaluationService {
	logger := internal.NewLogger(internal.LogLevelError)

	randomizer := markov.NewRandomizer(markov.Options{
		Tolerance:   cfg.Tolerance,
		MaxAttempts: cfg.MaxAttempts,
		Policy:      markov.Policy(cfg.Policy),
		Strategy:    markov.Strategy(cfg.Strategy),
	})

	runner := trials.NewRunner(randomizer, rngadapter.NewAdapter(), cfg.Workers, cfg.TrialTimeout, logger)
	evaluator := significance.NewEvaluator(cfg.Direction, cfg.Aggregation, cfg.Tails, cfg.MinTrials)
	tracker := convergence.NewTracker(cfg.CVTarget, cfg.CheckpointEvery, convergence.EstimatorClassic)

	return app.NewEvaluationService(cfg, runner, evaluator, tracker, nil, logger)
}

// InMemoryRunRepository is a map-backed ports.RunRepository for tests and
// for serving without a database
type InMemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[core.RunID]*run.EvaluationRun
}

// NewInMemoryRunRepository creates an empty repository
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[core.RunID]*run.EvaluationRun)}
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)

func (r *InMemoryRunRepository) SaveRun(_ context.Context, er *run.EvaluationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[er.ID] = er
	return nil
}

func (r *InMemoryRunRepository) GetRun(_ context.Context, id core.RunID) (*run.EvaluationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	er, ok := r.runs[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id.String())
	}
	return er, nil
}

func (r *InMemoryRunRepository) ListRuns(_ context.Context, limit int) ([]*run.EvaluationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*run.EvaluationRun, 0, len(r.runs))
	for _, er := range r.runs {
		out = append(out, er)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Time().After(out[j].CreatedAt.Time())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StationaryRed returns the long-run RED proportion of a two-state chain
func StationaryRed(pStayRed, pStayGreen float64) float64 {
	leaveRed := 1 - pStayRed
	leaveGreen := 1 - pStayGreen
	if leaveRed+leaveGreen == 0 {
		return 0.5
	}
	return leaveGreen / (leaveRed + leaveGreen)
}

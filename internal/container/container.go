package container

import (
	"context"
	"fmt"

	"nullbench/adapters/api"
	"nullbench/adapters/markov"
	"nullbench/adapters/postgres"
	"nullbench/adapters/rng"
	"nullbench/app"
	"nullbench/domain/sequence"
	"nullbench/internal"
	"nullbench/internal/config"
	"nullbench/internal/convergence"
	"nullbench/internal/significance"
	"nullbench/internal/testkit"
	"nullbench/internal/trials"
	"nullbench/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer). Nil when no database is configured;
	// the service then keeps runs in memory only.
	RunRepo ports.RunRepository

	// Validation core
	Randomizer *markov.Randomizer
	RNG        ports.RNGPort
	Runner     *trials.Runner
	Evaluator  *significance.Evaluator
	Tracker    *convergence.Tracker
	Service    *app.EvaluationService

	// HTTP surface
	Registry *api.ScorerRegistry
	Server   *api.Server
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.DefaultLogger,
	}

	return c, nil
}

// InitWithDatabase wires persistence-backed components. Call before Init
// when a database is available; skip it for memory-only operation.
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	c.RunRepo = postgres.NewRunRepository(db)
	return nil
}

// Init assembles the validation pipeline from the configured knobs
func (c *Container) Init() error {
	v := c.Config.Validation
	if err := v.Validate(); err != nil {
		return err
	}

	c.Randomizer = markov.NewRandomizer(markov.Options{
		Tolerance:   v.Tolerance,
		MaxAttempts: v.MaxAttempts,
		Policy:      markov.Policy(v.Policy),
		Strategy:    markov.Strategy(v.Strategy),
	})
	c.RNG = rng.NewAdapter()
	c.Runner = trials.NewRunner(c.Randomizer, c.RNG, v.Workers, v.TrialTimeout, c.Logger)
	c.Evaluator = significance.NewEvaluator(v.Direction, v.Aggregation, v.Tails, v.MinTrials)
	c.Tracker = convergence.NewTracker(v.CVTarget, v.CheckpointEvery, convergence.EstimatorClassic)

	c.Service = app.NewEvaluationService(v, c.Runner, c.Evaluator, c.Tracker, c.RunRepo, c.Logger)

	c.Registry = api.NewScorerRegistry()
	c.registerBuiltinScorers()
	c.Server = api.NewServer(c.Service, c.Registry, c.Logger)

	c.Logger.Info("container initialized (strategy=%s policy=%s workers=%d)", v.Strategy, v.Policy, v.Workers)
	return nil
}

// registerBuiltinScorers exposes the synthetic scorers over the API. Real
// strategy scorers are registered by the embedding application.
func (c *Container) registerBuiltinScorers() {
	c.Registry.Register(testkit.ConstantScorer(1.0))
	c.Registry.Register(testkit.ProportionScorer(sequence.LabelGreen))
	c.Registry.Register(testkit.StreakScorer(sequence.LabelGreen))
	c.Registry.Register(testkit.StreakScorer(sequence.LabelRed))
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(_ context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

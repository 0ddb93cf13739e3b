package config

import (
	"os"
	"strconv"
	"time"

	"nullbench/domain/core"
	"nullbench/domain/verdict"
	"nullbench/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Validation ValidationConfig
}

// DatabaseConfig holds database connection settings. URL may be empty, in
// which case runs are kept in memory only and never persisted.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
}

// ValidationConfig is the immutable knob set for one evaluation. The original
// experiments buried these as module-level constants; here they are explicit
// and travel with the run fingerprint.
type ValidationConfig struct {
	// Tolerance is the maximum absolute per-label proportion deviation a
	// synthetic sequence may show against the reference (default 0.5%)
	Tolerance float64

	// MaxAttempts bounds the randomizer's regenerate loop
	MaxAttempts int

	// Policy selects what happens when tolerance cannot be met:
	// "reject" (fail after MaxAttempts), "swap_adjust" (repair counts by
	// random label swaps), "warn" (accept and flag)
	Policy string

	// Strategy selects the sampling scheme: "chain" (per-day first-order
	// Markov) or "cluster" (resample run-length clusters)
	Strategy string

	// Trials is the default requested trial count when the caller passes 0
	Trials int

	// MinTrials is the floor below which no significance result is produced
	MinTrials int

	// MaxFailureFraction aborts the run when failed/requested exceeds it
	MaxFailureFraction float64

	// Direction, Aggregation and Tails parameterize the evaluator
	Direction   verdict.Direction
	Aggregation verdict.Aggregation
	Tails       verdict.Tails

	// Workers bounds trial concurrency; TrialTimeout caps one score call
	Workers      int
	TrialTimeout time.Duration

	// CVTarget and CheckpointEvery drive the convergence tracker
	CVTarget        float64
	CheckpointEvery int

	// BaseSeed fixes the run's RNG; 0 means derive from the clock
	BaseSeed int64
}

// Tolerance policies and sampling strategies recognized by the randomizer
const (
	PolicyReject     = "reject"
	PolicySwapAdjust = "swap_adjust"
	PolicyWarn       = "warn"

	StrategyChain   = "chain"
	StrategyCluster = "cluster"
)

// DefaultValidationConfig returns the knob set the research log settled on
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		Tolerance:          0.005,
		MaxAttempts:        25,
		Policy:             PolicyReject,
		Strategy:           StrategyChain,
		Trials:             100,
		MinTrials:          50,
		MaxFailureFraction: 0.5,
		Direction:          verdict.HigherIsBetter,
		Aggregation:        verdict.AggregationMedian,
		Tails:              verdict.OneSided,
		Workers:            4,
		TrialTimeout:       30 * time.Second,
		CVTarget:           0.10,
		CheckpointEvery:    50,
	}
}

// Validate rejects incoherent validation settings
func (v ValidationConfig) Validate() error {
	if v.Tolerance <= 0 || v.Tolerance >= 1 {
		return errors.ConfigInvalid("tolerance must be in (0, 1)")
	}
	if v.MaxAttempts < 1 {
		return errors.ConfigInvalid("max attempts must be at least 1")
	}
	switch v.Policy {
	case PolicyReject, PolicySwapAdjust, PolicyWarn:
	default:
		return errors.ConfigInvalid("unknown tolerance policy: " + v.Policy)
	}
	switch v.Strategy {
	case StrategyChain, StrategyCluster:
	default:
		return errors.ConfigInvalid("unknown sampling strategy: " + v.Strategy)
	}
	if v.MinTrials < 1 {
		return errors.ConfigInvalid("minimum trial count must be at least 1")
	}
	if v.MaxFailureFraction <= 0 || v.MaxFailureFraction > 1 {
		return errors.ConfigInvalid("failure fraction must be in (0, 1]")
	}
	switch v.Direction {
	case verdict.HigherIsBetter, verdict.LowerIsBetter:
	default:
		return errors.ConfigInvalid("unknown direction: " + string(v.Direction))
	}
	switch v.Aggregation {
	case verdict.AggregationMedian, verdict.AggregationMean:
	default:
		return errors.ConfigInvalid("unknown aggregation: " + string(v.Aggregation))
	}
	switch v.Tails {
	case verdict.OneSided, verdict.TwoSided:
	default:
		return errors.ConfigInvalid("unknown tails: " + string(v.Tails))
	}
	if v.Workers < 1 {
		return errors.ConfigInvalid("worker count must be at least 1")
	}
	if v.TrialTimeout <= 0 {
		return errors.ConfigInvalid("trial timeout must be positive")
	}
	if v.CVTarget <= 0 {
		return errors.ConfigInvalid("CV target must be positive")
	}
	if v.CheckpointEvery < 1 {
		return errors.ConfigInvalid("checkpoint interval must be at least 1")
	}
	return nil
}

// Hash fingerprints the knob set for deterministic replay
func (v ValidationConfig) Hash() core.ConfigHash {
	return core.ComputeConfigHash(map[string]interface{}{
		"tolerance":            v.Tolerance,
		"max_attempts":         v.MaxAttempts,
		"policy":               v.Policy,
		"strategy":             v.Strategy,
		"trials":               v.Trials,
		"min_trials":           v.MinTrials,
		"max_failure_fraction": v.MaxFailureFraction,
		"direction":            string(v.Direction),
		"aggregation":          string(v.Aggregation),
		"tails":                string(v.Tails),
		"cv_target":            v.CVTarget,
		"checkpoint_every":     v.CheckpointEvery,
	})
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Validation: loadValidationConfig(),
	}

	if err := config.Validation.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadValidationConfig() ValidationConfig {
	v := DefaultValidationConfig()
	v.Tolerance = getEnvFloatOrDefault("NULLBENCH_TOLERANCE", v.Tolerance)
	v.MaxAttempts = getEnvIntOrDefault("NULLBENCH_MAX_ATTEMPTS", v.MaxAttempts)
	v.Policy = getEnvOrDefault("NULLBENCH_POLICY", v.Policy)
	v.Strategy = getEnvOrDefault("NULLBENCH_STRATEGY", v.Strategy)
	v.Trials = getEnvIntOrDefault("NULLBENCH_TRIALS", v.Trials)
	v.MinTrials = getEnvIntOrDefault("NULLBENCH_MIN_TRIALS", v.MinTrials)
	v.Workers = getEnvIntOrDefault("NULLBENCH_WORKERS", v.Workers)
	v.CVTarget = getEnvFloatOrDefault("NULLBENCH_CV_TARGET", v.CVTarget)
	v.CheckpointEvery = getEnvIntOrDefault("NULLBENCH_CHECKPOINT_EVERY", v.CheckpointEvery)
	v.BaseSeed = int64(getEnvIntOrDefault("NULLBENCH_BASE_SEED", int(v.BaseSeed)))
	if d := getEnvOrDefault("NULLBENCH_DIRECTION", ""); d != "" {
		v.Direction = verdict.Direction(d)
	}
	if a := getEnvOrDefault("NULLBENCH_AGGREGATION", ""); a != "" {
		v.Aggregation = verdict.Aggregation(a)
	}
	if t := getEnvOrDefault("NULLBENCH_TRIAL_TIMEOUT", ""); t != "" {
		if parsed, err := time.ParseDuration(t); err == nil {
			v.TrialTimeout = parsed
		}
	}
	return v
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

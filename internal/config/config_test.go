package config

import (
	"testing"
	"time"

	"nullbench/domain/verdict"
)

// TestDefaultValidationConfigIsValid tests that the shipped defaults pass validation
func TestDefaultValidationConfigIsValid(t *testing.T) {
	cfg := DefaultValidationConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
	if cfg.Tolerance != 0.005 {
		t.Errorf("Expected default tolerance 0.005, got %f", cfg.Tolerance)
	}
	if cfg.MinTrials != 50 {
		t.Errorf("Expected default minimum of 50 trials, got %d", cfg.MinTrials)
	}
	if cfg.Aggregation != verdict.AggregationMedian {
		t.Errorf("Expected median aggregation by default, got %s", cfg.Aggregation)
	}
}

// TestValidateRejectsBadKnobs tests a sample of invalid settings
func TestValidateRejectsBadKnobs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ValidationConfig)
	}{
		{"zero tolerance", func(v *ValidationConfig) { v.Tolerance = 0 }},
		{"tolerance over one", func(v *ValidationConfig) { v.Tolerance = 1.5 }},
		{"zero attempts", func(v *ValidationConfig) { v.MaxAttempts = 0 }},
		{"unknown policy", func(v *ValidationConfig) { v.Policy = "retry_forever" }},
		{"unknown strategy", func(v *ValidationConfig) { v.Strategy = "shuffle" }},
		{"zero min trials", func(v *ValidationConfig) { v.MinTrials = 0 }},
		{"failure fraction over one", func(v *ValidationConfig) { v.MaxFailureFraction = 1.5 }},
		{"unknown direction", func(v *ValidationConfig) { v.Direction = "sideways" }},
		{"unknown aggregation", func(v *ValidationConfig) { v.Aggregation = "mode" }},
		{"unknown tails", func(v *ValidationConfig) { v.Tails = "three_sided" }},
		{"zero workers", func(v *ValidationConfig) { v.Workers = 0 }},
		{"zero trial timeout", func(v *ValidationConfig) { v.TrialTimeout = 0 }},
		{"zero cv target", func(v *ValidationConfig) { v.CVTarget = 0 }},
		{"zero checkpoint interval", func(v *ValidationConfig) { v.CheckpointEvery = 0 }},
	}

	for _, test := range tests {
		cfg := DefaultValidationConfig()
		test.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation to fail", test.name)
		}
	}
}

// TestConfigHashTracksKnobs tests that the fingerprint input changes with settings
func TestConfigHashTracksKnobs(t *testing.T) {
	a := DefaultValidationConfig()
	b := DefaultValidationConfig()
	if a.Hash() != b.Hash() {
		t.Error("Expected identical configs to hash equal")
	}

	b.Tolerance = 0.01
	if a.Hash() == b.Hash() {
		t.Error("Expected a tolerance change to change the hash")
	}

	c := DefaultValidationConfig()
	c.TrialTimeout = 5 * time.Minute
	if a.Hash() != c.Hash() {
		t.Error("Runtime-only knobs like the trial timeout must not change the hash")
	}
}

// TestLoadReadsEnvironment tests env var overrides
func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("NULLBENCH_TOLERANCE", "0.01")
	t.Setenv("NULLBENCH_TRIALS", "150")
	t.Setenv("NULLBENCH_POLICY", "swap_adjust")
	t.Setenv("PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Validation.Tolerance != 0.01 {
		t.Errorf("Expected tolerance 0.01, got %f", cfg.Validation.Tolerance)
	}
	if cfg.Validation.Trials != 150 {
		t.Errorf("Expected 150 trials, got %d", cfg.Validation.Trials)
	}
	if cfg.Validation.Policy != PolicySwapAdjust {
		t.Errorf("Expected swap_adjust policy, got %s", cfg.Validation.Policy)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Server.Port)
	}
}

// TestLoadRejectsInvalidEnvironment tests that bad env settings fail loading
func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("NULLBENCH_POLICY", "nonsense")
	if _, err := Load(); err == nil {
		t.Error("Expected load to fail on an unknown policy")
	}
}

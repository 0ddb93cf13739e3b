package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

// TestHashDeterminism tests that equal input produces equal hashes
func TestHashDeterminism(t *testing.T) {
	h1 := NewHash([]byte("signal"))
	h2 := NewHash([]byte("signal"))
	h3 := NewHash([]byte("noise"))

	if !h1.Equals(h2) {
		t.Error("Expected identical input to hash equal")
	}
	if h1.Equals(h3) {
		t.Error("Expected different input to hash differently")
	}
	if h1.IsEmpty() {
		t.Error("Expected non-empty hash")
	}
}

// TestComputeConfigHashOrderIndependent tests that map iteration order does not leak
func TestComputeConfigHashOrderIndependent(t *testing.T) {
	h1 := ComputeConfigHash(map[string]interface{}{"tolerance": 0.005, "trials": 100, "policy": "reject"})
	h2 := ComputeConfigHash(map[string]interface{}{"policy": "reject", "trials": 100, "tolerance": 0.005})
	if h1 != h2 {
		t.Error("Expected config hash to be independent of key order")
	}

	h3 := ComputeConfigHash(map[string]interface{}{"tolerance": 0.01, "trials": 100, "policy": "reject"})
	if h1 == h3 {
		t.Error("Expected changed value to change the hash")
	}
}

// TestErrorSentinels tests that constructed errors match their sentinels
func TestErrorSentinels(t *testing.T) {
	if !IsRandomizationError(NewRandomizationError(25, 0.012)) {
		t.Error("Expected randomization error to match its sentinel")
	}
	if !IsInsufficientTrialsError(NewInsufficientTrialsError(40, 50)) {
		t.Error("Expected insufficient-trials error to match its sentinel")
	}
	if !IsNotFoundError(NewNotFoundError("run", "abc")) {
		t.Error("Expected not-found error to match its sentinel")
	}
	if !errors.Is(NewScoringError(3, errors.New("boom")), ErrScoringFailed) {
		t.Error("Expected scoring error to match its sentinel")
	}
}

// TestScoringErrorPreservesCause tests that the trial's underlying failure survives wrapping
func TestScoringErrorPreservesCause(t *testing.T) {
	cause := errors.New("scorer blew up")
	err := NewScoringError(7, cause)
	if !errors.Is(err, cause) {
		t.Error("Expected scoring error to wrap its cause")
	}
}

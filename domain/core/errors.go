package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Sequence errors
	ErrEmptySequence  = errors.New("state sequence is empty")
	ErrUnknownLabel   = errors.New("label not in alphabet")
	ErrEmptyAlphabet  = errors.New("alphabet is empty")
	ErrLengthMismatch = errors.New("sequence length mismatch")

	// Randomization errors
	ErrRandomization = errors.New("randomizer could not meet tolerance within attempt budget")

	// Trial errors
	ErrScoringFailed      = errors.New("scoring function failed")
	ErrInsufficientTrials = errors.New("insufficient completed trials")
	ErrRunAborted         = errors.New("evaluation run aborted")
	ErrUnknownScorer      = errors.New("scorer not registered")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid validation configuration")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewRandomizationError(attempts int, worstDeviation float64) error {
	return fmt.Errorf("%w: %d attempts, worst deviation %.4f", ErrRandomization, attempts, worstDeviation)
}

func NewInsufficientTrialsError(completed, minimum int) error {
	return fmt.Errorf("%w: %d completed, %d required", ErrInsufficientTrials, completed, minimum)
}

func NewScoringError(trial int, cause error) error {
	return fmt.Errorf("%w: trial %d: %w", ErrScoringFailed, trial, cause)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsRandomizationError(err error) bool {
	return errors.Is(err, ErrRandomization)
}

func IsInsufficientTrialsError(err error) bool {
	return errors.Is(err, ErrInsufficientTrials)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

package run

import (
	"fmt"

	"nullbench/domain/core"
	"nullbench/domain/verdict"
)

// Status tracks where an evaluation run sits in its lifecycle
type Status string

const (
	StatusInit             Status = "INIT"
	StatusGeneratingTrials Status = "GENERATING_TRIALS"
	StatusSufficient       Status = "SUFFICIENT"
	StatusInsufficient     Status = "INSUFFICIENT"
	StatusEvaluated        Status = "EVALUATED"
	StatusAborted          Status = "ABORTED"
)

// transitions encodes the run lifecycle. GENERATING_TRIALS is re-enterable
// from INSUFFICIENT when the caller asks for more trials. EVALUATED and
// ABORTED are terminal.
var transitions = map[Status][]Status{
	StatusInit:             {StatusGeneratingTrials},
	StatusGeneratingTrials: {StatusSufficient, StatusInsufficient, StatusAborted},
	StatusSufficient:       {StatusEvaluated, StatusAborted},
	StatusInsufficient:     {StatusGeneratingTrials, StatusEvaluated, StatusAborted},
	StatusEvaluated:        {},
	StatusAborted:          {},
}

// CanTransitionTo reports whether next is a legal successor of s
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the run can make no further progress
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// TrialCounts is the reliability report every result carries
type TrialCounts struct {
	Requested int `json:"requested"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// EvaluationRun records one signal-vs-null evaluation for audit and replay
type EvaluationRun struct {
	ID           core.RunID
	SequenceHash core.SequenceHash
	ScorerName   string
	Fingerprint  Fingerprint
	Status       Status
	Counts       TrialCounts
	Null         *NullDistribution
	Result       *verdict.SignificanceResult
	CreatedAt    core.Timestamp
	UpdatedAt    core.Timestamp
}

// NewEvaluationRun creates a run in INIT with an empty null distribution
func NewEvaluationRun(seqHash core.SequenceHash, scorerName string, fp Fingerprint) *EvaluationRun {
	now := core.Now()
	return &EvaluationRun{
		ID:           core.NewRunID(),
		SequenceHash: seqHash,
		ScorerName:   scorerName,
		Fingerprint:  fp,
		Status:       StatusInit,
		Null:         NewNullDistribution(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Transition moves the run to next, rejecting illegal moves
func (r *EvaluationRun) Transition(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal run transition %s -> %s", r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = core.Now()
	return nil
}

// Fingerprint ensures deterministic replay of a run
type Fingerprint struct {
	SequenceHash core.SequenceHash `json:"sequence_hash"`
	ConfigHash   core.ConfigHash   `json:"config_hash"`
	Seed         int64             `json:"seed"`
	ScorerName   string            `json:"scorer_name"`
	Fingerprint  core.Hash         `json:"fingerprint"` // Hash of all above
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(seqHash core.SequenceHash, configHash core.ConfigHash, seed int64, scorerName string) Fingerprint {
	data := fmt.Sprintf("sequence:%s|config:%s|seed:%d|scorer:%s",
		seqHash, configHash, seed, scorerName)

	return Fingerprint{
		SequenceHash: seqHash,
		ConfigHash:   configHash,
		Seed:         seed,
		ScorerName:   scorerName,
		Fingerprint:  core.NewHash([]byte(data)),
	}
}

package sequence

import (
	"errors"
	"math"
	"testing"

	"nullbench/domain/core"
)

// TestNewAlphabetRejectsBadInput tests alphabet construction guards
func TestNewAlphabetRejectsBadInput(t *testing.T) {
	if _, err := NewAlphabet(); !errors.Is(err, core.ErrEmptyAlphabet) {
		t.Errorf("Expected ErrEmptyAlphabet for no labels, got %v", err)
	}

	if _, err := NewAlphabet(LabelRed, LabelRed); err == nil {
		t.Error("Expected error for duplicate labels")
	}

	if _, err := NewAlphabet(LabelRed, Label("")); err == nil {
		t.Error("Expected error for empty label")
	}
}

// TestAlphabetOrderPreserved tests that label order survives construction
func TestAlphabetOrderPreserved(t *testing.T) {
	a := MustAlphabet(LabelOrange, LabelRed, LabelGreen)

	labels := a.Labels()
	expected := []Label{LabelOrange, LabelRed, LabelGreen}
	for i, l := range expected {
		if labels[i] != l {
			t.Errorf("Expected label %s at position %d, got %s", l, i, labels[i])
		}
		if a.IndexOf(l) != i {
			t.Errorf("Expected IndexOf(%s) = %d, got %d", l, i, a.IndexOf(l))
		}
	}

	if a.IndexOf(Label("BLUE")) != -1 {
		t.Error("Expected IndexOf to return -1 for unknown label")
	}
}

// TestNewStateSequenceRejectsUnknownLabel tests label validation against the alphabet
func TestNewStateSequenceRejectsUnknownLabel(t *testing.T) {
	a := MustAlphabet(LabelRed, LabelGreen)

	_, err := NewStateSequence(a, []Label{LabelRed, Label("BLUE"), LabelGreen})
	if !errors.Is(err, core.ErrUnknownLabel) {
		t.Errorf("Expected ErrUnknownLabel, got %v", err)
	}

	if _, err := NewStateSequence(a, nil); !errors.Is(err, core.ErrEmptySequence) {
		t.Errorf("Expected ErrEmptySequence, got %v", err)
	}
}

// TestStateSequenceImmutable tests that callers cannot mutate a sequence
func TestStateSequenceImmutable(t *testing.T) {
	input := []Label{LabelRed, LabelGreen, LabelGreen}
	seq, err := FromLabels(input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Mutating the input slice must not affect the sequence
	input[0] = LabelGreen
	if seq.At(0) != LabelRed {
		t.Error("Sequence shares storage with the input slice")
	}

	// Mutating the Labels() copy must not affect the sequence either
	out := seq.Labels()
	out[1] = LabelRed
	if seq.At(1) != LabelGreen {
		t.Error("Labels() exposes the internal slice")
	}
}

// TestFromLabelsInfersAlphabet tests alphabet inference by first occurrence
func TestFromLabelsInfersAlphabet(t *testing.T) {
	seq, err := FromLabels([]Label{LabelGreen, LabelRed, LabelGreen, LabelOrange})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	labels := seq.Alphabet().Labels()
	expected := []Label{LabelGreen, LabelRed, LabelOrange}
	if len(labels) != len(expected) {
		t.Fatalf("Expected %d alphabet labels, got %d", len(expected), len(labels))
	}
	for i, l := range expected {
		if labels[i] != l {
			t.Errorf("Expected alphabet label %s at %d, got %s", l, i, labels[i])
		}
	}
}

// TestFrequenciesSumToOne tests that proportions always form a distribution
func TestFrequenciesSumToOne(t *testing.T) {
	seq, _ := FromLabels([]Label{LabelRed, LabelRed, LabelGreen, LabelOrange, LabelGreen, LabelGreen})
	freqs := seq.Frequencies()

	if freqs.Total() != 6 {
		t.Errorf("Expected total 6, got %d", freqs.Total())
	}
	if freqs.Count(LabelGreen) != 3 || freqs.Count(LabelRed) != 2 || freqs.Count(LabelOrange) != 1 {
		t.Errorf("Unexpected counts: RED=%d ORANGE=%d GREEN=%d",
			freqs.Count(LabelRed), freqs.Count(LabelOrange), freqs.Count(LabelGreen))
	}

	sum := 0.0
	for _, p := range freqs.Proportions() {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("Expected proportions to sum to 1, got %f", sum)
	}

	if math.Abs(freqs.Proportion(LabelGreen)-0.5) > 1e-12 {
		t.Errorf("Expected GREEN proportion 0.5, got %f", freqs.Proportion(LabelGreen))
	}
}

// TestFrequenciesCoverFullAlphabet tests that absent labels count as zero
func TestFrequenciesCoverFullAlphabet(t *testing.T) {
	a := MustAlphabet(LabelRed, LabelOrange, LabelGreen)
	seq, _ := NewStateSequence(a, []Label{LabelRed, LabelRed})

	freqs := seq.Frequencies()
	if freqs.Count(LabelOrange) != 0 {
		t.Errorf("Expected ORANGE count 0, got %d", freqs.Count(LabelOrange))
	}
	if freqs.Proportion(LabelGreen) != 0 {
		t.Errorf("Expected GREEN proportion 0, got %f", freqs.Proportion(LabelGreen))
	}
}

// TestMaxAbsDeviation tests the tolerance metric between two distributions
func TestMaxAbsDeviation(t *testing.T) {
	a := MustAlphabet(LabelRed, LabelGreen)
	ref, _ := NewStateSequence(a, []Label{LabelRed, LabelRed, LabelGreen, LabelGreen}) // 50/50
	other, _ := NewStateSequence(a, []Label{LabelRed, LabelGreen, LabelGreen, LabelGreen})

	d := other.Frequencies().MaxAbsDeviation(ref.Frequencies())
	if math.Abs(d-0.25) > 1e-12 {
		t.Errorf("Expected deviation 0.25, got %f", d)
	}

	same := ref.Frequencies().MaxAbsDeviation(ref.Frequencies())
	if same != 0 {
		t.Errorf("Expected zero deviation against self, got %f", same)
	}
}

// TestHashDeterministic tests that equal sequences hash equal and others differ
func TestHashDeterministic(t *testing.T) {
	s1, _ := FromLabels([]Label{LabelRed, LabelGreen, LabelRed})
	s2, _ := FromLabels([]Label{LabelRed, LabelGreen, LabelRed})
	s3, _ := FromLabels([]Label{LabelGreen, LabelRed, LabelRed})

	if s1.Hash() != s2.Hash() {
		t.Error("Expected identical sequences to hash equal")
	}
	if s1.Hash() == s3.Hash() {
		t.Error("Expected different sequences to hash differently")
	}
}

// TestClustersRoundTrip tests run-length decomposition
func TestClustersRoundTrip(t *testing.T) {
	seq, _ := FromLabels([]Label{
		LabelRed, LabelRed, LabelRed,
		LabelGreen,
		LabelRed, LabelRed,
		LabelGreen, LabelGreen,
	})

	clusters := seq.Clusters()
	expected := []Cluster{
		{LabelRed, 3},
		{LabelGreen, 1},
		{LabelRed, 2},
		{LabelGreen, 2},
	}

	if len(clusters) != len(expected) {
		t.Fatalf("Expected %d clusters, got %d", len(expected), len(clusters))
	}

	total := 0
	for i, c := range expected {
		if clusters[i] != c {
			t.Errorf("Cluster %d: expected %+v, got %+v", i, c, clusters[i])
		}
		total += clusters[i].Length
	}
	if total != seq.Len() {
		t.Errorf("Cluster lengths sum to %d, sequence has %d days", total, seq.Len())
	}
}

// TestClustersSingleRun tests the degenerate one-cluster case
func TestClustersSingleRun(t *testing.T) {
	seq, _ := FromLabels([]Label{LabelRed, LabelRed, LabelRed})
	clusters := seq.Clusters()
	if len(clusters) != 1 || clusters[0].Label != LabelRed || clusters[0].Length != 3 {
		t.Errorf("Expected single RED cluster of length 3, got %+v", clusters)
	}
}

package sequence

import (
	"math"
)

// TransitionMatrix holds first-order transition probabilities between labels,
// derived from observed consecutive pairs in a StateSequence.
//
// INVARIANTS:
// - each row with at least one observed outgoing transition sums to 1 ± epsilon
// - a label that never occurs as non-terminal has a zero row
// - pure function of the input sequence
type TransitionMatrix struct {
	alphabet Alphabet
	counts   [][]int
	probs    [][]float64
}

// NewTransitionMatrix derives the matrix from a sequence's consecutive pairs
func NewTransitionMatrix(s *StateSequence) *TransitionMatrix {
	n := s.alphabet.Size()
	counts := make([][]int, n)
	probs := make([][]float64, n)
	for i := range counts {
		counts[i] = make([]int, n)
		probs[i] = make([]float64, n)
	}

	for i := 0; i+1 < s.Len(); i++ {
		from := s.alphabet.IndexOf(s.At(i))
		to := s.alphabet.IndexOf(s.At(i + 1))
		counts[from][to]++
	}

	for i := 0; i < n; i++ {
		rowSum := 0
		for j := 0; j < n; j++ {
			rowSum += counts[i][j]
		}
		if rowSum == 0 {
			continue // zero row: label never non-terminal
		}
		for j := 0; j < n; j++ {
			probs[i][j] = float64(counts[i][j]) / float64(rowSum)
		}
	}

	return &TransitionMatrix{alphabet: s.alphabet, counts: counts, probs: probs}
}

// NewClusterTransitionMatrix derives label-to-label transition probabilities
// between consecutive run-length clusters. Self-transitions are impossible by
// construction since adjacent clusters carry distinct labels.
func NewClusterTransitionMatrix(alphabet Alphabet, clusters []Cluster) *TransitionMatrix {
	n := alphabet.Size()
	counts := make([][]int, n)
	probs := make([][]float64, n)
	for i := range counts {
		counts[i] = make([]int, n)
		probs[i] = make([]float64, n)
	}

	for i := 0; i+1 < len(clusters); i++ {
		from := alphabet.IndexOf(clusters[i].Label)
		to := alphabet.IndexOf(clusters[i+1].Label)
		if from < 0 || to < 0 {
			continue
		}
		counts[from][to]++
	}

	for i := 0; i < n; i++ {
		rowSum := 0
		for j := 0; j < n; j++ {
			rowSum += counts[i][j]
		}
		if rowSum == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			probs[i][j] = float64(counts[i][j]) / float64(rowSum)
		}
	}

	return &TransitionMatrix{alphabet: alphabet, counts: counts, probs: probs}
}

// Alphabet returns the label set the matrix is indexed by
func (m *TransitionMatrix) Alphabet() Alphabet {
	return m.alphabet
}

// Prob returns P(to | from); zero if from has a zero row
func (m *TransitionMatrix) Prob(from, to Label) float64 {
	i := m.alphabet.IndexOf(from)
	j := m.alphabet.IndexOf(to)
	if i < 0 || j < 0 {
		return 0
	}
	return m.probs[i][j]
}

// Row returns a copy of the probability row for a label
func (m *TransitionMatrix) Row(from Label) []float64 {
	i := m.alphabet.IndexOf(from)
	if i < 0 {
		return nil
	}
	out := make([]float64, len(m.probs[i]))
	copy(out, m.probs[i])
	return out
}

// Count returns the observed consecutive-pair count for (from, to)
func (m *TransitionMatrix) Count(from, to Label) int {
	i := m.alphabet.IndexOf(from)
	j := m.alphabet.IndexOf(to)
	if i < 0 || j < 0 {
		return 0
	}
	return m.counts[i][j]
}

// IsZeroRow reports whether the label has no observed outgoing transitions
func (m *TransitionMatrix) IsZeroRow(from Label) bool {
	i := m.alphabet.IndexOf(from)
	if i < 0 {
		return true
	}
	for _, c := range m.counts[i] {
		if c > 0 {
			return false
		}
	}
	return true
}

// RowSum returns the sum of a label's outgoing probabilities
func (m *TransitionMatrix) RowSum(from Label) float64 {
	i := m.alphabet.IndexOf(from)
	if i < 0 {
		return 0
	}
	sum := 0.0
	for _, p := range m.probs[i] {
		sum += p
	}
	return sum
}

// Validate checks that every occupied row sums to 1 within epsilon
func (m *TransitionMatrix) Validate(epsilon float64) bool {
	for _, l := range m.alphabet.labels {
		if m.IsZeroRow(l) {
			continue
		}
		if math.Abs(m.RowSum(l)-1.0) > epsilon {
			return false
		}
	}
	return true
}

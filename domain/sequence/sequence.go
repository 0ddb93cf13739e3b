package sequence

import (
	"fmt"
	"strings"

	"nullbench/domain/core"
)

// Label is one categorical state a signal can emit for a trading day
type Label string

// Common signal states used across the research experiments
const (
	LabelRed    Label = "RED"
	LabelOrange Label = "ORANGE"
	LabelGreen  Label = "GREEN"
)

// Alphabet is the fixed finite label set a sequence draws from
type Alphabet struct {
	labels []Label
	index  map[Label]int
}

// NewAlphabet creates an alphabet from a list of labels, preserving order
// and rejecting duplicates and empties
func NewAlphabet(labels ...Label) (Alphabet, error) {
	if len(labels) == 0 {
		return Alphabet{}, core.ErrEmptyAlphabet
	}

	index := make(map[Label]int, len(labels))
	ordered := make([]Label, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			return Alphabet{}, fmt.Errorf("%w: empty label", core.ErrUnknownLabel)
		}
		if _, seen := index[l]; seen {
			return Alphabet{}, fmt.Errorf("duplicate label %q in alphabet", l)
		}
		index[l] = len(ordered)
		ordered = append(ordered, l)
	}

	return Alphabet{labels: ordered, index: index}, nil
}

// MustAlphabet is NewAlphabet that panics on error, for fixtures and constants
func MustAlphabet(labels ...Label) Alphabet {
	a, err := NewAlphabet(labels...)
	if err != nil {
		panic(err)
	}
	return a
}

// Size returns the number of labels
func (a Alphabet) Size() int {
	return len(a.labels)
}

// Labels returns the labels in alphabet order
func (a Alphabet) Labels() []Label {
	out := make([]Label, len(a.labels))
	copy(out, a.labels)
	return out
}

// Contains reports whether the label belongs to the alphabet
func (a Alphabet) Contains(l Label) bool {
	_, ok := a.index[l]
	return ok
}

// IndexOf returns the label's position, or -1 if absent
func (a Alphabet) IndexOf(l Label) int {
	idx, ok := a.index[l]
	if !ok {
		return -1
	}
	return idx
}

// StateSequence is an ordered, immutable run of labels, one per trading day.
// Length and content are fixed at construction.
type StateSequence struct {
	alphabet Alphabet
	labels   []Label
}

// NewStateSequence validates every label against the alphabet and copies the input
func NewStateSequence(alphabet Alphabet, labels []Label) (*StateSequence, error) {
	if alphabet.Size() == 0 {
		return nil, core.ErrEmptyAlphabet
	}
	if len(labels) == 0 {
		return nil, core.ErrEmptySequence
	}

	owned := make([]Label, len(labels))
	for i, l := range labels {
		if !alphabet.Contains(l) {
			return nil, fmt.Errorf("%w: %q at day %d", core.ErrUnknownLabel, l, i)
		}
		owned[i] = l
	}

	return &StateSequence{alphabet: alphabet, labels: owned}, nil
}

// FromLabels builds a sequence inferring the alphabet from first occurrence order
func FromLabels(labels []Label) (*StateSequence, error) {
	if len(labels) == 0 {
		return nil, core.ErrEmptySequence
	}

	seen := make(map[Label]bool)
	var distinct []Label
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			distinct = append(distinct, l)
		}
	}

	alphabet, err := NewAlphabet(distinct...)
	if err != nil {
		return nil, err
	}
	return NewStateSequence(alphabet, labels)
}

// Len returns the number of days
func (s *StateSequence) Len() int {
	return len(s.labels)
}

// At returns the label at day i
func (s *StateSequence) At(i int) Label {
	return s.labels[i]
}

// Alphabet returns the sequence's label set
func (s *StateSequence) Alphabet() Alphabet {
	return s.alphabet
}

// Labels returns a copy of the underlying labels
func (s *StateSequence) Labels() []Label {
	out := make([]Label, len(s.labels))
	copy(out, s.labels)
	return out
}

// Hash returns a deterministic fingerprint of alphabet and labels
func (s *StateSequence) Hash() core.SequenceHash {
	var b strings.Builder
	for _, l := range s.alphabet.labels {
		b.WriteString(string(l))
		b.WriteByte('|')
	}
	b.WriteByte(';')
	for _, l := range s.labels {
		b.WriteString(string(l))
		b.WriteByte(',')
	}
	return core.NewSequenceHash([]byte(b.String()))
}

// Frequencies computes label counts and proportions over the sequence
func (s *StateSequence) Frequencies() LabelFrequencies {
	counts := make(map[Label]int, s.alphabet.Size())
	for _, l := range s.alphabet.labels {
		counts[l] = 0
	}
	for _, l := range s.labels {
		counts[l]++
	}

	proportions := make(map[Label]float64, len(counts))
	total := float64(len(s.labels))
	for l, c := range counts {
		proportions[l] = float64(c) / total
	}

	return LabelFrequencies{
		alphabet:    s.alphabet,
		counts:      counts,
		proportions: proportions,
		total:       len(s.labels),
	}
}

// Cluster is a maximal run of consecutive identical labels
type Cluster struct {
	Label  Label
	Length int
}

// Clusters decomposes the sequence into its run-length segments
func (s *StateSequence) Clusters() []Cluster {
	var clusters []Cluster
	current := s.labels[0]
	length := 1

	for _, l := range s.labels[1:] {
		if l == current {
			length++
			continue
		}
		clusters = append(clusters, Cluster{Label: current, Length: length})
		current = l
		length = 1
	}
	clusters = append(clusters, Cluster{Label: current, Length: length})

	return clusters
}

// LabelFrequencies holds per-label counts and proportions for a sequence.
// Proportions sum to 1 over the alphabet.
type LabelFrequencies struct {
	alphabet    Alphabet
	counts      map[Label]int
	proportions map[Label]float64
	total       int
}

// Total returns the number of days counted
func (f LabelFrequencies) Total() int {
	return f.total
}

// Count returns the observed count for a label
func (f LabelFrequencies) Count(l Label) int {
	return f.counts[l]
}

// Proportion returns the observed proportion for a label
func (f LabelFrequencies) Proportion(l Label) float64 {
	return f.proportions[l]
}

// Alphabet returns the label set the frequencies cover
func (f LabelFrequencies) Alphabet() Alphabet {
	return f.alphabet
}

// Proportions returns a copy of the proportion map
func (f LabelFrequencies) Proportions() map[Label]float64 {
	out := make(map[Label]float64, len(f.proportions))
	for l, p := range f.proportions {
		out[l] = p
	}
	return out
}

// MaxAbsDeviation returns the largest absolute per-label proportion gap
// between f and other. Used for tolerance checks against a target distribution.
func (f LabelFrequencies) MaxAbsDeviation(other LabelFrequencies) float64 {
	worst := 0.0
	for _, l := range f.alphabet.labels {
		d := f.proportions[l] - other.proportions[l]
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}

package markov

import (
	"context"
	"math"
	"math/rand"

	"nullbench/domain/core"
	"nullbench/domain/sequence"
	"nullbench/ports"
)

// Policy decides what happens when a draw lands outside the tolerance band
type Policy string

const (
	// PolicyReject resamples until the budget is spent, then fails
	PolicyReject Policy = "reject"
	// PolicySwapAdjust repairs counts with minimal random label swaps,
	// the behavior the original experiments used
	PolicySwapAdjust Policy = "swap_adjust"
	// PolicyWarn accepts the best draw and flags it
	PolicyWarn Policy = "warn"
)

// Strategy selects the sampling scheme
type Strategy string

const (
	// StrategyChain samples day by day from the first-order transition matrix
	StrategyChain Strategy = "chain"
	// StrategyCluster resamples whole run-length clusters, preserving the
	// cluster-length distribution exactly rather than in expectation
	StrategyCluster Strategy = "cluster"
)

// Options configures a Randomizer
type Options struct {
	Tolerance   float64 // max absolute per-label proportion deviation
	MaxAttempts int     // regenerate budget before the policy gives up
	Policy      Policy
	Strategy    Strategy
}

// DefaultOptions mirrors the settings the research log converged on
func DefaultOptions() Options {
	return Options{
		Tolerance:   0.005,
		MaxAttempts: 25,
		Policy:      PolicyReject,
		Strategy:    StrategyChain,
	}
}

// Randomizer generates synthetic state sequences that match a reference's
// label frequencies and first-order transition structure. Markov sampling
// preserves the temporal clustering of states; an independent shuffle would
// destroy the autocorrelation that position sizing reacts to, which is the
// whole point of the control.
type Randomizer struct {
	opts Options
}

// NewRandomizer creates a randomizer with the given options
func NewRandomizer(opts Options) *Randomizer {
	if opts.Tolerance <= 0 {
		opts.Tolerance = 0.005
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Policy == "" {
		opts.Policy = PolicyReject
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyChain
	}
	return &Randomizer{opts: opts}
}

var _ ports.RandomizerPort = (*Randomizer)(nil)

// Generate produces one synthetic sequence of the requested length (0 means
// match the reference). The reference statistics are read-only, so one
// Randomizer may serve many concurrent trials as long as each call gets its
// own rng.
func (r *Randomizer) Generate(ctx context.Context, ref *sequence.StateSequence, length int, rng *rand.Rand) (*ports.GeneratedSequence, error) {
	if length <= 0 {
		length = ref.Len()
	}

	stats := newRefStats(ref)

	var best *ports.GeneratedSequence
	worst := math.Inf(1)

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		labels := r.draw(stats, length, rng)

		if r.opts.Policy == PolicySwapAdjust {
			r.swapAdjust(labels, stats, rng)
		}

		seq, err := sequence.NewStateSequence(ref.Alphabet(), labels)
		if err != nil {
			return nil, err
		}

		dev := seq.Frequencies().MaxAbsDeviation(stats.freqs)
		if dev <= r.opts.Tolerance {
			return &ports.GeneratedSequence{
				Sequence:       seq,
				Attempts:       attempt,
				WorstDeviation: dev,
			}, nil
		}

		if dev < worst {
			worst = dev
			best = &ports.GeneratedSequence{
				Sequence:       seq,
				Attempts:       attempt,
				WorstDeviation: dev,
				OutOfTolerance: true,
			}
		}
	}

	if r.opts.Policy == PolicyWarn && best != nil {
		best.Attempts = r.opts.MaxAttempts
		return best, nil
	}

	return nil, core.NewRandomizationError(r.opts.MaxAttempts, worst)
}

// refStats caches everything the sampling loop needs from the reference
type refStats struct {
	alphabet       sequence.Alphabet
	labels         []sequence.Label
	freqs          sequence.LabelFrequencies
	marginal       []float64
	dayMatrix      *sequence.TransitionMatrix
	clusterMatrix  *sequence.TransitionMatrix
	lengthsByLabel map[sequence.Label][]int
	first          sequence.Label
}

func newRefStats(ref *sequence.StateSequence) *refStats {
	alphabet := ref.Alphabet()
	freqs := ref.Frequencies()

	marginal := make([]float64, alphabet.Size())
	for i, l := range alphabet.Labels() {
		marginal[i] = freqs.Proportion(l)
	}

	clusters := ref.Clusters()
	lengths := make(map[sequence.Label][]int)
	for _, c := range clusters {
		lengths[c.Label] = append(lengths[c.Label], c.Length)
	}

	return &refStats{
		alphabet:       alphabet,
		labels:         alphabet.Labels(),
		freqs:          freqs,
		marginal:       marginal,
		dayMatrix:      sequence.NewTransitionMatrix(ref),
		clusterMatrix:  sequence.NewClusterTransitionMatrix(alphabet, clusters),
		lengthsByLabel: lengths,
		first:          ref.At(0),
	}
}

func (r *Randomizer) draw(stats *refStats, length int, rng *rand.Rand) []sequence.Label {
	if r.opts.Strategy == StrategyCluster {
		return drawClusters(stats, length, rng)
	}
	return drawChain(stats, length, rng)
}

// drawChain samples the first label from the marginal distribution, then
// walks the day-level transition matrix
func drawChain(stats *refStats, length int, rng *rand.Rand) []sequence.Label {
	labels := make([]sequence.Label, length)

	current := stats.labels[weightedChoice(rng, stats.marginal)]
	labels[0] = current

	for i := 1; i < length; i++ {
		current = nextLabel(stats, stats.dayMatrix, current, rng)
		labels[i] = current
	}

	return labels
}

// drawClusters resamples whole run-length clusters: pick a length from the
// current state's observed cluster pool, emit the run, then transition via
// the cluster-level matrix
func drawClusters(stats *refStats, length int, rng *rand.Rand) []sequence.Label {
	labels := make([]sequence.Label, 0, length)
	current := stats.first

	for len(labels) < length {
		pool := stats.lengthsByLabel[current]
		runLen := 1
		if len(pool) > 0 {
			runLen = pool[rng.Intn(len(pool))]
		}
		for i := 0; i < runLen && len(labels) < length; i++ {
			labels = append(labels, current)
		}
		current = nextLabel(stats, stats.clusterMatrix, current, rng)
	}

	return labels
}

// nextLabel samples the successor of current; a zero row falls back to
// a uniform draw over the alphabet
func nextLabel(stats *refStats, m *sequence.TransitionMatrix, current sequence.Label, rng *rand.Rand) sequence.Label {
	if m.IsZeroRow(current) {
		return stats.labels[rng.Intn(len(stats.labels))]
	}
	return stats.labels[weightedChoice(rng, m.Row(current))]
}

// weightedChoice samples an index proportionally to weights. Weights are
// probabilities summing to ~1; rounding drift falls to the last index.
func weightedChoice(rng *rand.Rand, weights []float64) int {
	u := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if u < acc {
			return i
		}
	}
	return len(weights) - 1
}

// swapAdjust pulls per-label counts back inside the tolerance band by
// swapping randomly chosen positions between over- and under-represented
// labels. Swaps break a handful of transitions but leave the clustering
// structure intact, which is why the original preferred this over a full
// resample.
func (r *Randomizer) swapAdjust(labels []sequence.Label, stats *refStats, rng *rand.Rand) {
	length := len(labels)
	tolCount := int(float64(length) * r.opts.Tolerance)

	target := make(map[sequence.Label]int, len(stats.labels))
	actual := make(map[sequence.Label]int, len(stats.labels))
	for _, l := range stats.labels {
		target[l] = int(math.Round(stats.freqs.Proportion(l) * float64(length)))
	}
	for _, l := range labels {
		actual[l]++
	}

	positions := func(want sequence.Label) []int {
		var idx []int
		for i, l := range labels {
			if l == want {
				idx = append(idx, i)
			}
		}
		return idx
	}

	for _, l := range stats.labels {
		deficit := target[l] - actual[l]
		if deficit <= tolCount {
			continue
		}
		// Pull days from labels holding excess beyond the band
		for _, donor := range stats.labels {
			if donor == l {
				continue
			}
			excess := actual[donor] - target[donor]
			if excess <= tolCount {
				continue
			}
			swaps := deficit
			if excess-tolCount < swaps {
				swaps = excess - tolCount
			}
			idx := positions(donor)
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			if swaps > len(idx) {
				swaps = len(idx)
			}
			for _, i := range idx[:swaps] {
				labels[i] = l
			}
			actual[l] += swaps
			actual[donor] -= swaps
			deficit = target[l] - actual[l]
			if deficit <= tolCount {
				break
			}
		}
	}
}

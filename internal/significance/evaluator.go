package significance

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"nullbench/domain/core"
	"nullbench/domain/run"
	"nullbench/domain/verdict"
)

// Evaluator compares a real signal's score against a null distribution of
// Markov-randomized control scores.
type Evaluator struct {
	direction   verdict.Direction
	aggregation verdict.Aggregation
	tails       verdict.Tails
	minTrials   int
}

// NewEvaluator creates an evaluator; minTrials guards against p-values
// computed on samples too small to mean anything (the research log treats
// N<50 as unreliable).
func NewEvaluator(direction verdict.Direction, aggregation verdict.Aggregation, tails verdict.Tails, minTrials int) *Evaluator {
	return &Evaluator{
		direction:   direction,
		aggregation: aggregation,
		tails:       tails,
		minTrials:   minTrials,
	}
}

// Evaluate produces the immutable SignificanceResult for a completed run.
// Fails with an insufficient-trials error when the null is smaller than the
// configured minimum; no partial result is returned in that case.
func (e *Evaluator) Evaluate(realScore float64, null *run.NullDistribution, counts run.TrialCounts, warnings int) (*verdict.SignificanceResult, error) {
	n := null.Len()
	if n < e.minTrials {
		return nil, core.NewInsufficientTrialsError(n, e.minTrials)
	}

	scores := null.Scores()

	// Orient so that larger always means better for the signal under test
	observed := e.orient(realScore)
	oriented := make([]float64, n)
	for i, s := range scores {
		oriented[i] = e.orient(s)
	}

	worse, tied := 0, 0
	for _, s := range oriented {
		switch {
		case s < observed:
			worse++
		case s == observed:
			tied++
		}
	}

	// Mid-rank convention: ties split evenly, so a score tied with every
	// null trial ranks at exactly the 50th percentile
	percentile := (float64(worse) + 0.5*float64(tied)) / float64(n) * 100

	pValue := e.pValue(oriented, observed, n)
	pLow, pHigh := clopperPearson(atLeastAsGood(oriented, observed), n)

	aggregate := e.aggregate(scores)

	summary := summarize(scores)

	return &verdict.SignificanceResult{
		Status:      verdict.Classify(percentile),
		RealScore:   realScore,
		Percentile:  percentile,
		PValue:      pValue,
		PValueLow:   pLow,
		PValueHigh:  pHigh,
		Aggregate:   aggregate,
		Null:        summary,
		Direction:   e.direction,
		Aggregation: e.aggregation,
		Tails:       e.tails,

		RequestedTrials:   counts.Requested,
		CompletedTrials:   counts.Completed,
		FailedTrials:      counts.Failed,
		ToleranceWarnings: warnings,
		EvaluatedAt:       core.Now(),
	}, nil
}

func (e *Evaluator) orient(score float64) float64 {
	if e.direction == verdict.LowerIsBetter {
		return -score
	}
	return score
}

// pValue is the empirical proportion of null trials at least as good as the
// real score, exactly as the original experiments computed it; two-sided
// doubles the smaller tail.
func (e *Evaluator) pValue(oriented []float64, observed float64, n int) float64 {
	upper := float64(atLeastAsGood(oriented, observed)) / float64(n)
	if e.tails == verdict.OneSided {
		return upper
	}

	lower := 0.0
	for _, s := range oriented {
		if s <= observed {
			lower++
		}
	}
	lower /= float64(n)

	p := 2 * upper
	if lower < upper {
		p = 2 * lower
	}
	if p > 1 {
		p = 1
	}
	return p
}

func atLeastAsGood(oriented []float64, observed float64) int {
	k := 0
	for _, s := range oriented {
		if s >= observed {
			k++
		}
	}
	return k
}

// clopperPearson puts an exact 95% interval on the empirical p-value so a
// consumer sees the resolution limit of a small trial count instead of a
// deceptively precise point estimate
func clopperPearson(k, n int) (float64, float64) {
	low, high := 0.0, 1.0
	if k > 0 {
		low = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(0.025)
	}
	if k < n {
		high = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(0.975)
	}
	return low, high
}

// aggregate collapses the null to its comparison statistic. Median is the
// default: its run-to-run coefficient of variation stays lower than the
// mean's because the mean chases outlier trials with lucky clustering.
func (e *Evaluator) aggregate(scores []float64) float64 {
	if e.aggregation == verdict.AggregationMean {
		m, _ := stats.Mean(scores)
		return m
	}
	m, _ := stats.Median(scores)
	return m
}

func summarize(scores []float64) verdict.NullSummary {
	mean, _ := stats.Mean(scores)
	median, _ := stats.Median(scores)
	stdDev, _ := stats.StandardDeviationSample(scores)
	min, _ := stats.Min(scores)
	max, _ := stats.Max(scores)
	p95, _ := stats.Percentile(scores, 95)
	p99, _ := stats.Percentile(scores, 99)

	return verdict.NullSummary{
		Mean:         mean,
		Median:       median,
		StdDev:       stdDev,
		Min:          min,
		Max:          max,
		Percentile95: p95,
		Percentile99: p99,
	}
}

package convergence

import (
	"math"

	"github.com/montanaflynn/stats"

	"nullbench/domain/run"
)

// Estimator selects how the coefficient of variation is computed
type Estimator string

const (
	// EstimatorClassic is std/|mean|
	EstimatorClassic Estimator = "classic"
	// EstimatorRobust is IQR/|median|, insensitive to outlier trials
	EstimatorRobust Estimator = "robust"
)

// Checkpoint is the CV measured over the first Trials scores
type Checkpoint struct {
	Trials int     `json:"trials"`
	CV     float64 `json:"cv"`
}

// Report says whether the null distribution looks stable enough. It is a
// recommendation only; the caller decides whether to keep generating trials.
type Report struct {
	Target      float64      `json:"target"`
	Checkpoints []Checkpoint `json:"checkpoints"`
	Converged   bool         `json:"converged"`
}

// Tracker watches the null distribution's spread settle as trials accumulate
type Tracker struct {
	target    float64
	every     int
	estimator Estimator
}

// NewTracker creates a tracker; target is the CV below which the estimate is
// considered stable (default recommendation 10%), every is the checkpoint
// spacing in trial counts.
func NewTracker(target float64, every int, estimator Estimator) *Tracker {
	if target <= 0 {
		target = 0.10
	}
	if every < 1 {
		every = 50
	}
	if estimator == "" {
		estimator = EstimatorClassic
	}
	return &Tracker{target: target, every: every, estimator: estimator}
}

// Report computes CV at increasing trial-count checkpoints (every, 2*every,
// ..., and the full count). Converged reflects the final checkpoint.
func (t *Tracker) Report(null *run.NullDistribution) Report {
	scores := null.Scores()
	report := Report{Target: t.target}

	for n := t.every; n < len(scores); n += t.every {
		report.Checkpoints = append(report.Checkpoints, Checkpoint{
			Trials: n,
			CV:     t.cv(scores[:n]),
		})
	}
	if len(scores) > 1 {
		report.Checkpoints = append(report.Checkpoints, Checkpoint{
			Trials: len(scores),
			CV:     t.cv(scores),
		})
	}

	if len(report.Checkpoints) > 0 {
		final := report.Checkpoints[len(report.Checkpoints)-1]
		report.Converged = final.CV <= t.target
	}

	return report
}

func (t *Tracker) cv(scores []float64) float64 {
	if len(scores) < 2 {
		return math.Inf(1)
	}

	if t.estimator == EstimatorRobust {
		median, _ := stats.Median(scores)
		iqr, _ := stats.InterQuartileRange(scores)
		if median == 0 {
			return math.Inf(1)
		}
		return iqr / math.Abs(median)
	}

	mean, _ := stats.Mean(scores)
	stdDev, _ := stats.StandardDeviationSample(scores)
	if mean == 0 {
		return math.Inf(1)
	}
	return stdDev / math.Abs(mean)
}

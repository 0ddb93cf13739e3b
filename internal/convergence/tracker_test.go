package convergence

import (
	"math"
	"math/rand"
	"testing"

	"nullbench/domain/run"
)

func noisyNull(n int, mean, spread float64, seed int64) *run.NullDistribution {
	rng := rand.New(rand.NewSource(seed))
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = mean + spread*rng.NormFloat64()
	}
	return run.FromScores(scores)
}

// TestReportCheckpointSpacing tests checkpoints at every, 2*every, ..., full count
func TestReportCheckpointSpacing(t *testing.T) {
	tracker := NewTracker(0.10, 50, EstimatorClassic)
	report := tracker.Report(noisyNull(175, 10, 1, 1))

	expected := []int{50, 100, 150, 175}
	if len(report.Checkpoints) != len(expected) {
		t.Fatalf("Expected %d checkpoints, got %d", len(expected), len(report.Checkpoints))
	}
	for i, n := range expected {
		if report.Checkpoints[i].Trials != n {
			t.Errorf("Checkpoint %d: expected %d trials, got %d", i, n, report.Checkpoints[i].Trials)
		}
	}
}

// TestReportConvergesOnTightNull tests a distribution well inside the target
func TestReportConvergesOnTightNull(t *testing.T) {
	tracker := NewTracker(0.10, 50, EstimatorClassic)

	// CV ~= 0.5/100 = 0.005, far below the 10% target
	report := tracker.Report(noisyNull(200, 100, 0.5, 2))
	if !report.Converged {
		t.Error("Expected a tight null to converge")
	}
	final := report.Checkpoints[len(report.Checkpoints)-1]
	if final.CV > 0.02 {
		t.Errorf("Expected final CV well under target, got %f", final.CV)
	}
}

// TestReportDoesNotConvergeOnWideNull tests a distribution outside the target
func TestReportDoesNotConvergeOnWideNull(t *testing.T) {
	tracker := NewTracker(0.10, 50, EstimatorClassic)

	// CV ~= 5/10 = 0.5
	report := tracker.Report(noisyNull(200, 10, 5, 3))
	if report.Converged {
		t.Error("Expected a wide null not to converge")
	}
}

// TestReportEmptyAndTinyNull tests the degenerate sizes
func TestReportEmptyAndTinyNull(t *testing.T) {
	tracker := NewTracker(0.10, 50, EstimatorClassic)

	empty := tracker.Report(run.NewNullDistribution())
	if len(empty.Checkpoints) != 0 || empty.Converged {
		t.Errorf("Expected empty report for empty null, got %+v", empty)
	}

	single := tracker.Report(run.FromScores([]float64{1.0}))
	if single.Converged {
		t.Error("Expected a single score never to converge")
	}
}

// TestRobustEstimatorShrugsOffOutliers tests IQR/|median| vs std/|mean|
func TestRobustEstimatorShrugsOffOutliers(t *testing.T) {
	scores := make([]float64, 100)
	for i := range scores {
		scores[i] = 10.0
	}
	scores[99] = 10000.0 // one lucky trial
	null := run.FromScores(scores)

	classic := NewTracker(0.10, 50, EstimatorClassic).Report(null)
	robust := NewTracker(0.10, 50, EstimatorRobust).Report(null)

	if classic.Converged {
		t.Error("Expected the classic estimator to chase the outlier")
	}
	if !robust.Converged {
		t.Error("Expected the robust estimator to ignore the outlier")
	}
}

// TestZeroCenterGuard tests the divide-by-zero guard for zero-mean nulls
func TestZeroCenterGuard(t *testing.T) {
	tracker := NewTracker(0.10, 2, EstimatorClassic)
	report := tracker.Report(run.FromScores([]float64{-1, 1, -1, 1}))

	final := report.Checkpoints[len(report.Checkpoints)-1]
	if !math.IsInf(final.CV, 1) {
		t.Errorf("Expected infinite CV for a zero-mean null, got %f", final.CV)
	}
	if report.Converged {
		t.Error("A zero-mean null must not report convergence")
	}
}

// TestCheckpointCVNonIncreasingOnAverage tests that the 50/100/200-trial
// checkpoint CVs do not trend upward when the same experiment is repeated
// many times. Any single repetition may wobble; the average must not grow.
func TestCheckpointCVNonIncreasingOnAverage(t *testing.T) {
	tracker := NewTracker(0.10, 50, EstimatorClassic)

	const reps = 100
	sums := make(map[int]float64)
	for rep := 0; rep < reps; rep++ {
		report := tracker.Report(noisyNull(200, 10, 1, int64(rep+1)))
		for _, cp := range report.Checkpoints {
			sums[cp.Trials] += cp.CV
		}
	}

	for _, pair := range [][2]int{{50, 100}, {100, 200}} {
		earlier := sums[pair[0]] / reps
		later := sums[pair[1]] / reps
		// 2% slack absorbs the small-sample bias of the std estimate
		if later > earlier*1.02 {
			t.Errorf("Average CV grew from %.4f at %d trials to %.4f at %d trials",
				earlier, pair[0], later, pair[1])
		}
	}
}

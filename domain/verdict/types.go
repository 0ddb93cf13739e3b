package verdict

import (
	"nullbench/domain/core"
)

// Direction declares which way the scoring function points
type Direction string

const (
	HigherIsBetter Direction = "higher_is_better"
	LowerIsBetter  Direction = "lower_is_better"
)

// Aggregation selects the null-distribution summary statistic the result is
// compared against. Median is the default: across matched trial counts its
// coefficient of variation (~5.3%) runs below the mean's (~7.6%) because the
// mean is pulled by outlier trials with lucky volatility clustering.
type Aggregation string

const (
	AggregationMedian Aggregation = "median"
	AggregationMean   Aggregation = "mean"
)

// Tails selects one-sided vs two-sided p-value computation
type Tails string

const (
	OneSided Tails = "one_sided"
	TwoSided Tails = "two_sided"
)

// Status classifies a signal's performance against its null
type Status string

const (
	StatusSignificant    Status = "significant"     // percentile >= 95
	StatusLikely         Status = "likely"          // percentile >= 90
	StatusNotSignificant Status = "not_significant" // everything else
)

// Classify maps a percentile rank to the banding the research log reports
func Classify(percentile float64) Status {
	switch {
	case percentile >= 95:
		return StatusSignificant
	case percentile >= 90:
		return StatusLikely
	default:
		return StatusNotSignificant
	}
}

// NullSummary provides key statistics about the null distribution
type NullSummary struct {
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile95 float64 `json:"percentile_95"`
	Percentile99 float64 `json:"percentile_99"`
}

// SignificanceResult is the immutable outcome of one evaluation.
// RequestedTrials/CompletedTrials/FailedTrials are always populated so a
// consumer can judge reliability instead of trusting an opaque number.
type SignificanceResult struct {
	RunID      core.RunID    `json:"run_id"`
	Status     Status `json:"status"`
	RealScore  float64       `json:"real_score"`
	Percentile float64       `json:"percentile"` // 0-100 rank of the real score in the null
	PValue     float64       `json:"p_value"`
	PValueLow  float64       `json:"p_value_low"`  // Clopper-Pearson 95% interval
	PValueHigh float64       `json:"p_value_high"` // on the empirical p-value
	Aggregate  float64       `json:"aggregate"`    // median (or mean) of null scores
	Null       NullSummary   `json:"null"`

	Direction   Direction   `json:"direction"`
	Aggregation Aggregation `json:"aggregation"`
	Tails       Tails       `json:"tails"`

	RequestedTrials int `json:"requested_trials"`
	CompletedTrials int `json:"completed_trials"`
	FailedTrials    int `json:"failed_trials"`

	ToleranceWarnings int            `json:"tolerance_warnings,omitempty"` // trials accepted out of band under PolicyWarn
	EvaluatedAt       core.Timestamp `json:"evaluated_at"`
}

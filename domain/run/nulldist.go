package run

// NullDistribution accumulates trial scores under the null model.
// It is append-only; insertion order carries no meaning since
// trials are independent and may complete in any order.
type NullDistribution struct {
	scores []float64
}

// NewNullDistribution creates an empty distribution
func NewNullDistribution() *NullDistribution {
	return &NullDistribution{}
}

// FromScores creates a distribution seeded with existing scores (copied)
func FromScores(scores []float64) *NullDistribution {
	owned := make([]float64, len(scores))
	copy(owned, scores)
	return &NullDistribution{scores: owned}
}

// Add appends one trial score
func (d *NullDistribution) Add(score float64) {
	d.scores = append(d.scores, score)
}

// Merge appends every score from other
func (d *NullDistribution) Merge(other *NullDistribution) {
	if other == nil {
		return
	}
	d.scores = append(d.scores, other.scores...)
}

// Len returns the number of accumulated scores
func (d *NullDistribution) Len() int {
	return len(d.scores)
}

// Scores returns a copy of the accumulated scores
func (d *NullDistribution) Scores() []float64 {
	out := make([]float64, len(d.scores))
	copy(out, d.scores)
	return out
}

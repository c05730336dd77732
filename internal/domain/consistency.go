package domain

import "time"

// ConsistencyEstimate is the confidence output attached to an EventTiming:
// a [0,1] agreement score and a band bounding the plausible first breach.
type ConsistencyEstimate struct {
	Score float64
	Band  ConfidenceBand
}

// ConsistencyEstimator scores how much confidence to place in a timing
// estimate. A real implementation would compare forecast cycles or ensemble
// members; none exists yet, so the engine defaults to the placeholder below.
type ConsistencyEstimator interface {
	Estimate(series ForecastSeries, cond ThresholdCondition, firstBreach *time.Time) ConsistencyEstimate
}

// placeholderScore is a fixed stand-in, not a meaningful signal. Tests should
// assert only that the score is a valid probability.
const placeholderScore = 0.75

// PlaceholderEstimator returns the fixed score and collapses the confidence
// band onto the single deterministic estimate. It holds the slot until a
// multi-cycle agreement computation lands.
type PlaceholderEstimator struct{}

func (PlaceholderEstimator) Estimate(_ ForecastSeries, _ ThresholdCondition, firstBreach *time.Time) ConsistencyEstimate {
	est := ConsistencyEstimate{Score: placeholderScore}
	if firstBreach != nil {
		t := *firstBreach
		est.Band = ConfidenceBand{Earliest: &t, Latest: &t}
	}
	return est
}

var defaultEstimator ConsistencyEstimator = PlaceholderEstimator{}

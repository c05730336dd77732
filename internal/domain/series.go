package domain

import (
	"math"
	"time"
)

// ForecastPoint is one forecast sample: a lead time in hours since the
// forecast initialization and the variable's value in storage units.
type ForecastPoint struct {
	LeadTimeHours float64 `json:"lead_time_hours"`
	Value         float64 `json:"value"`
}

// ForecastSeries is a lead-time-ordered sequence of samples for one variable
// at one grid point. It is immutable once built: constructed by the series
// provider, consumed by the engine, never shared across queries.
type ForecastSeries struct {
	Variable string          `json:"variable"`
	Unit     string          `json:"unit"` // storage unit, e.g. "K"
	InitTime time.Time       `json:"init_time"`
	Points   []ForecastPoint `json:"points"`
}

// NewForecastSeries builds a series from the parallel lead-time and value
// arrays used on the wire, dropping non-finite samples (the store encodes
// missing grid data as NaN). The result is validated.
func NewForecastSeries(variable, unit string, initTime time.Time, leadHours, values []float64) (ForecastSeries, error) {
	if len(leadHours) != len(values) {
		return ForecastSeries{}, invalidSeriesf("lead time count %d does not match value count %d", len(leadHours), len(values))
	}

	points := make([]ForecastPoint, 0, len(values))
	for i := range values {
		if !isFinite(values[i]) || !isFinite(leadHours[i]) {
			continue
		}
		points = append(points, ForecastPoint{LeadTimeHours: leadHours[i], Value: values[i]})
	}

	s := ForecastSeries{
		Variable: variable,
		Unit:     unit,
		InitTime: initTime,
		Points:   points,
	}
	if err := s.Validate(); err != nil {
		return ForecastSeries{}, err
	}
	return s, nil
}

// Validate checks the series invariants: non-empty, non-negative lead times,
// strictly increasing with no duplicates.
func (s ForecastSeries) Validate() error {
	if len(s.Points) == 0 {
		return invalidSeriesf("series is empty")
	}
	if s.Points[0].LeadTimeHours < 0 {
		return invalidSeriesf("negative lead time %gh", s.Points[0].LeadTimeHours)
	}
	for i := 1; i < len(s.Points); i++ {
		prev, cur := s.Points[i-1].LeadTimeHours, s.Points[i].LeadTimeHours
		if cur <= prev {
			return invalidSeriesf("lead times not strictly increasing at index %d (%gh after %gh)", i, cur, prev)
		}
	}
	return nil
}

// ValidTime returns the wall-clock time of the sample at the given lead time:
// init time plus lead hours.
func (s ForecastSeries) ValidTime(leadHours float64) time.Time {
	return s.InitTime.Add(time.Duration(leadHours * float64(time.Hour)))
}

// FinalLeadHours returns the lead time of the last sample.
func (s ForecastSeries) FinalLeadHours() float64 {
	return s.Points[len(s.Points)-1].LeadTimeHours
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

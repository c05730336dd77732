package domain

import "time"

// OccurrenceWindow is a maximal contiguous run of samples satisfying a
// condition. EndLeadHours is the lead time of the sample after the run's last
// satisfying sample. When the run reaches the final sample the window is Open:
// EndLeadHours holds the series' final lead time but the real end is unknown
// because the forecast horizon ran out.
type OccurrenceWindow struct {
	StartLeadHours float64
	EndLeadHours   float64
	Open           bool
}

// DurationHours returns the window length and true for closed windows. Open
// windows have no known duration.
func (w OccurrenceWindow) DurationHours() (float64, bool) {
	if w.Open {
		return 0, false
	}
	return w.EndLeadHours - w.StartLeadHours, true
}

// ConfidenceBand bounds the plausible first-breach time. Both ends are absent
// when there is no breach to bound.
type ConfidenceBand struct {
	Earliest *time.Time `json:"earliest"`
	Latest   *time.Time `json:"latest"`
}

// EventTiming is the engine's result for one (series, condition, now) query.
// Absent timestamps and durations are nil, never sentinel values: callers must
// be able to tell "no breach found" from "breach at time zero". A present
// breach time with a nil duration and the corresponding open flag set means
// the window runs past the end of the forecast.
//
// Immutable after return; the engine keeps no state between queries, and any
// caching by query key belongs to the transport layer.
type EventTiming struct {
	FirstBreachTime   *time.Time     `json:"firstBreachTime"`
	DurationHours     *float64       `json:"durationHours"`
	FirstWindowOpen   bool           `json:"firstWindowOpen,omitempty"`
	NextBreachTime    *time.Time     `json:"nextBreachTime"`
	NextDurationHours *float64       `json:"nextDurationHours"`
	NextWindowOpen    bool           `json:"nextWindowOpen,omitempty"`
	ModelConsistency  float64        `json:"modelConsistency"`
	ConfidenceBand    ConfidenceBand `json:"confidenceBand"`
}

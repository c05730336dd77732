package domain

import "time"

// ComputeTiming scans a forecast series against a threshold condition and
// derives occurrence timing facts: first breach, duration, next breach after
// the first window ends, plus the consistency placeholder fields.
//
// The function is pure and deterministic given (series, condition, now). The
// current time is an explicit parameter so the rollover rule stays testable;
// callers read the package clock, the engine never does. It runs in a single
// linear scan and never blocks.
func ComputeTiming(series ForecastSeries, cond ThresholdCondition, now time.Time) (EventTiming, error) {
	return ComputeTimingWithEstimator(series, cond, now, defaultEstimator)
}

// ComputeTimingWithEstimator is ComputeTiming with a caller-supplied
// consistency estimator, the extension point for a real multi-cycle
// ensemble-agreement computation.
func ComputeTimingWithEstimator(series ForecastSeries, cond ThresholdCondition, now time.Time, est ConsistencyEstimator) (EventTiming, error) {
	if err := series.Validate(); err != nil {
		return EventTiming{}, err
	}
	if err := cond.Validate(); err != nil {
		return EventTiming{}, err
	}

	windows := ScanWindows(series, cond)
	timing := resolveWindows(series, windows, now)

	estimate := est.Estimate(series, cond, timing.FirstBreachTime)
	timing.ModelConsistency = estimate.Score
	timing.ConfidenceBand = estimate.Band

	return timing, nil
}

// ScanWindows finds all maximal contiguous runs of samples satisfying the
// condition, in lead-time order. The series and condition must already be
// validated.
func ScanWindows(series ForecastSeries, cond ThresholdCondition) []OccurrenceWindow {
	var windows []OccurrenceWindow
	points := series.Points

	i := 0
	for i < len(points) {
		if !cond.Satisfies(points[i].Value) {
			i++
			continue
		}

		start := points[i].LeadTimeHours
		for i < len(points) && cond.Satisfies(points[i].Value) {
			i++
		}

		if i < len(points) {
			windows = append(windows, OccurrenceWindow{
				StartLeadHours: start,
				EndLeadHours:   points[i].LeadTimeHours,
			})
			continue
		}
		// Run reached the last sample: the horizon ran out, not the condition.
		windows = append(windows, OccurrenceWindow{
			StartLeadHours: start,
			EndLeadHours:   series.FinalLeadHours(),
			Open:           true,
		})
	}

	return windows
}

// resolveWindows applies the rollover rule to the scanned windows.
//
// An open first window has no known end and therefore never counts as ended;
// rollover cannot advance past it. A closed first window whose end is at or
// before now has happened already: the following window, if any, is reported
// in the next-breach fields, and when nothing follows every occurrence field
// is cleared rather than echoing the stale past event.
func resolveWindows(series ForecastSeries, windows []OccurrenceWindow, now time.Time) EventTiming {
	var timing EventTiming
	if len(windows) == 0 {
		return timing
	}

	first := windows[0]
	timing.FirstBreachTime, timing.DurationHours, timing.FirstWindowOpen = windowFields(series, first)

	firstEnded := !first.Open && !series.ValidTime(first.EndLeadHours).After(now)
	if !firstEnded {
		return timing
	}

	if len(windows) < 2 {
		// First occurrence is over and nothing follows in the remaining forecast.
		return EventTiming{}
	}

	timing.NextBreachTime, timing.NextDurationHours, timing.NextWindowOpen = windowFields(series, windows[1])
	return timing
}

func windowFields(series ForecastSeries, w OccurrenceWindow) (*time.Time, *float64, bool) {
	start := series.ValidTime(w.StartLeadHours)
	if d, ok := w.DurationHours(); ok {
		return &start, &d, false
	}
	return &start, nil, true
}

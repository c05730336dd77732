// Package domain models single-point weather forecast series and the
// threshold-occurrence metrics derived from them.
//
// # Data Source
//
// Forecast data originates from a 15-day, multi-cycle numerical weather model
// (ECMWF IFS, hourly steps out to 360h). The forecast store service exposes it
// as per-point time series: for one (latitude, longitude, variable) it returns
// the forecast initialization time plus parallel arrays of lead times (hours
// since initialization) and values in the variable's storage unit.
//
// # Units
//
// Series values and condition thresholds are always in storage units:
//
//	2t          Kelvin       (displayed as °C)
//	wind_speed  m/s          (displayed as km/h; derived from 10u/10v components)
//
// Display-unit conversion happens at the presentation edge via the variable
// registry; nothing inside the occurrence engine converts units.
//
// # Threshold Conditions
//
// A condition is (variable, operator, value) with operator one of lt, gt,
// lte, gte, eq. The eq operator compares with a 1e-6 tolerance because exact
// float equality on forecast values essentially never matches; callers are
// still better served by the inequality operators.
//
// # Occurrence Windows
//
// Scanning a series against a condition yields maximal contiguous runs of
// satisfying samples. A window's end lead time is the lead time of the sample
// after its last satisfying sample. A run that reaches the final sample has no
// observable end: the forecast horizon ran out, not the condition. Such
// windows are marked open and report no duration rather than a deceptively
// finite one.
//
// # Rollover
//
// Query results may be consumed well after the forecast was generated, so
// [ComputeTiming] takes an explicit "now". A closed first window whose end is
// at or before now has already happened; the timing then advances and reports
// the following window in the next-breach fields, keeping the historical first
// window for reference. When nothing follows, all occurrence fields are absent
// to signal "not expected in the remaining forecast" instead of echoing a
// stale past event. While the first window is still pending or active, the
// next-breach fields stay empty.
//
// # ID Generation
//
// Computed timing documents carry deterministic SHA-256 IDs derived from
// event|lat|lon|init time. Recomputing the same forecast cycle produces the
// same ID, which keeps downstream upserts idempotent under replay. See
// [NewTimingDocument].
package domain

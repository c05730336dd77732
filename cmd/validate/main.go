// Command validate performs end-to-end integrity checks across the mock data
// fixtures produced by genmock: the raw point-series JSON and the derived
// timing documents. It verifies series validity, recomputes every timing
// document through the real engine, and checks cross-fixture consistency and
// engine invariants.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -series-json data/mock/point_series_260830.json \
//	  -timings-json data/mock/event_timings_260830.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/whenwx/forecast-timing-service/internal/domain"
)

// fixedNow matches the clock genmock pins, so recomputed document IDs and
// ComputedAt timestamps line up with the fixture.
var fixedNow = time.Date(2026, time.August, 30, 6, 0, 0, 0, time.UTC)

const durationEpsilon = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	seriesJSON := flag.String("series-json", "", "path to raw point-series JSON fixture")
	timingsJSON := flag.String("timings-json", "", "path to timing documents JSON fixture")
	flag.Parse()

	if *seriesJSON == "" || *timingsJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*seriesJSON, *timingsJSON); code != 0 {
		os.Exit(code)
	}
}

func run(seriesPath, timingsPath string) int {
	domain.SetClock(clockwork.NewFakeClockAt(fixedNow))
	defer domain.SetClock(nil)

	fmt.Println("=== Forecast Timing Fixture Validation ===")
	fmt.Println()

	records, err := loadJSON[domain.RawSeriesRecord](seriesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load series JSON: %v\n", err)
		return 1
	}

	docs, err := loadJSON[domain.TimingDocument](timingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load timings JSON: %v\n", err)
		return 1
	}

	series, seriesPhase := validateSeries(records)

	phases := []*phase{
		seriesPhase,
		validateRecomputation(series, docs),
		validateCrossConsistency(series, docs),
		validateEngineInvariants(docs),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d series, %d timing documents\n", len(records), len(docs))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// seriesKey identifies one point series within a cycle.
func seriesKey(lat, lon float64, variable string) string {
	return fmt.Sprintf("%.4f:%.4f:%s", lat, lon, variable)
}

// ── Phase 1: Series Integrity ──
// Every record must parse into a valid forecast series, carry the registered
// storage unit for its variable, and sit on plausible coordinates.

func validateSeries(records []domain.RawSeriesRecord) (map[string]domain.PointSeries, *phase) {
	p := &phase{name: "Phase 1: Series Integrity"}
	series := make(map[string]domain.PointSeries, len(records))

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			p.errorf("record %d: marshal: %v", i, err)
			continue
		}
		pt, err := domain.ParseRawSeries(domain.RawEvent{Value: payload})
		if err != nil {
			p.errorf("record %d (%s): %v", i, rec.Variable, err)
			continue
		}

		if rec.Latitude < -90 || rec.Latitude > 90 || rec.Longitude < -180 || rec.Longitude > 180 {
			p.errorf("record %d: coordinates out of range (%g, %g)", i, rec.Latitude, rec.Longitude)
		}

		cfg, ok := domain.LookupVariable(rec.Variable)
		if !ok {
			p.errorf("record %d: variable %q not registered", i, rec.Variable)
		} else if rec.Unit != cfg.StorageUnit {
			p.errorf("record %d (%s): unit %q, registry expects %q", i, rec.Variable, rec.Unit, cfg.StorageUnit)
		}

		key := seriesKey(rec.Latitude, rec.Longitude, rec.Variable)
		if _, dup := series[key]; dup {
			p.errorf("record %d: duplicate series for %s", i, key)
			continue
		}
		series[key] = pt
	}

	return series, p
}

// ── Phase 2: Timing Recomputation ──
// Every document must be reproducible from its series through the engine
// under the pinned clock.

func validateRecomputation(series map[string]domain.PointSeries, docs []domain.TimingDocument) *phase {
	p := &phase{name: "Phase 2: Timing Recomputation"}
	now := domain.Now()

	for i := range docs {
		d := &docs[i]

		event, ok := domain.LookupEvent(d.EventID)
		if !ok {
			p.errorf("doc %s: event %q not registered", d.ID, d.EventID)
			continue
		}

		pt, ok := series[seriesKey(d.Geo.Lat, d.Geo.Lon, event.Variable)]
		if !ok {
			p.errorf("doc %s: no series for (%g, %g) %s", d.ID, d.Geo.Lat, d.Geo.Lon, event.Variable)
			continue
		}

		timing, err := domain.ComputeTiming(pt.Series, event.Condition(), now)
		if err != nil {
			p.errorf("doc %s: recompute: %v", d.ID, err)
			continue
		}
		expected := domain.NewTimingDocument(event, pt, timing)

		if d.ID != expected.ID {
			p.errorf("doc %s: expected ID %s", d.ID, expected.ID)
		}
		if !d.ForecastInitTime.Equal(expected.ForecastInitTime) {
			p.errorf("doc %s: init time %s, expected %s", d.ID, d.ForecastInitTime, expected.ForecastInitTime)
		}
		compareTiming(p, d.ID, d.Timing, expected.Timing)
	}

	return p
}

func compareTiming(p *phase, id string, got, want domain.EventTiming) {
	compareTime(p, id, "first breach", got.FirstBreachTime, want.FirstBreachTime)
	compareFloat(p, id, "duration", got.DurationHours, want.DurationHours)
	if got.FirstWindowOpen != want.FirstWindowOpen {
		p.errorf("doc %s: first window open %v, expected %v", id, got.FirstWindowOpen, want.FirstWindowOpen)
	}
	compareTime(p, id, "next breach", got.NextBreachTime, want.NextBreachTime)
	compareFloat(p, id, "next duration", got.NextDurationHours, want.NextDurationHours)
	if got.NextWindowOpen != want.NextWindowOpen {
		p.errorf("doc %s: next window open %v, expected %v", id, got.NextWindowOpen, want.NextWindowOpen)
	}
	if got.ModelConsistency != want.ModelConsistency {
		p.errorf("doc %s: model consistency %g, expected %g", id, got.ModelConsistency, want.ModelConsistency)
	}
}

func compareTime(p *phase, id, field string, got, want *time.Time) {
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		p.errorf("doc %s: %s presence mismatch (got %v, expected %v)", id, field, got, want)
	case !got.Equal(*want):
		p.errorf("doc %s: %s %s, expected %s", id, field, got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func compareFloat(p *phase, id, field string, got, want *float64) {
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		p.errorf("doc %s: %s presence mismatch (got %v, expected %v)", id, field, got, want)
	case math.Abs(*got-*want) > durationEpsilon:
		p.errorf("doc %s: %s %g, expected %g", id, field, *got, *want)
	}
}

// ── Phase 3: Cross-Fixture Consistency ──
// Every series must yield exactly one document per registered event on its
// variable, and nothing else.

func validateCrossConsistency(series map[string]domain.PointSeries, docs []domain.TimingDocument) *phase {
	p := &phase{name: "Phase 3: Cross-Fixture Consistency"}

	expected := make(map[string]bool)
	for key, pt := range series {
		for _, event := range domain.Events() {
			if event.Variable == pt.Series.Variable {
				expected[event.ID+"@"+key] = false
			}
		}
	}

	for i := range docs {
		d := &docs[i]
		event, ok := domain.LookupEvent(d.EventID)
		if !ok {
			continue // reported in phase 2
		}
		key := d.EventID + "@" + seriesKey(d.Geo.Lat, d.Geo.Lon, event.Variable)
		seen, ok := expected[key]
		if !ok {
			p.errorf("doc %s: no matching series for %s", d.ID, key)
			continue
		}
		if seen {
			p.errorf("doc %s: duplicate document for %s", d.ID, key)
		}
		expected[key] = true
	}

	for key, seen := range expected {
		if !seen {
			p.errorf("missing document for %s", key)
		}
	}

	return p
}

// ── Phase 4: Engine Invariants ──
// Structural checks on the timing results themselves, independent of
// recomputation.

func validateEngineInvariants(docs []domain.TimingDocument) *phase {
	p := &phase{name: "Phase 4: Engine Invariants"}

	for i := range docs {
		d := &docs[i]
		t := d.Timing

		if t.ModelConsistency < 0 || t.ModelConsistency > 1 {
			p.errorf("doc %s: model consistency %g outside [0,1]", d.ID, t.ModelConsistency)
		}

		if t.FirstBreachTime == nil {
			if t.DurationHours != nil || t.NextBreachTime != nil || t.NextDurationHours != nil || t.FirstWindowOpen || t.NextWindowOpen {
				p.errorf("doc %s: no first breach but other timing fields set", d.ID)
			}
			if t.ConfidenceBand.Earliest != nil || t.ConfidenceBand.Latest != nil {
				p.errorf("doc %s: no first breach but confidence band set", d.ID)
			}
			continue
		}

		if t.FirstBreachTime.Before(d.ForecastInitTime) {
			p.errorf("doc %s: first breach %s before init %s", d.ID, t.FirstBreachTime.Format(time.RFC3339), d.ForecastInitTime.Format(time.RFC3339))
		}
		if t.FirstWindowOpen && t.DurationHours != nil {
			p.errorf("doc %s: open first window carries a duration", d.ID)
		}
		if !t.FirstWindowOpen && t.DurationHours != nil && *t.DurationHours <= 0 {
			p.errorf("doc %s: closed first window with non-positive duration %g", d.ID, *t.DurationHours)
		}
		if t.NextBreachTime != nil && !t.NextBreachTime.After(*t.FirstBreachTime) {
			p.errorf("doc %s: next breach %s not after first %s", d.ID, t.NextBreachTime.Format(time.RFC3339), t.FirstBreachTime.Format(time.RFC3339))
		}
		if t.NextWindowOpen && t.NextDurationHours != nil {
			p.errorf("doc %s: open next window carries a duration", d.ID)
		}
		if t.ConfidenceBand.Earliest == nil || !t.ConfidenceBand.Earliest.Equal(*t.FirstBreachTime) ||
			t.ConfidenceBand.Latest == nil || !t.ConfidenceBand.Latest.Equal(*t.FirstBreachTime) {
			p.errorf("doc %s: confidence band does not collapse to first breach", d.ID)
		}
	}

	return p
}

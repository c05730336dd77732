// Command genmock generates mock data fixtures for the worker and API test
// suites: the raw point-series JSON the forecast ingest publishes to the
// source topic, and the timing documents the worker derives from them. It
// uses the actual domain engine so the fixtures match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -series-out data/mock/point_series_260830.json \
//	  -timings-out data/mock/event_timings_260830.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/whenwx/forecast-timing-service/internal/adapter/store"
	"github.com/whenwx/forecast-timing-service/internal/domain"
)

// fixedNow pins the clock so the synthetic cycle, document IDs, and
// ComputedAt timestamps are reproducible across runs.
var fixedNow = time.Date(2026, time.August, 30, 6, 0, 0, 0, time.UTC)

// location is a sample point the fixtures cover. The set spans both
// hemispheres and a range of climates so every registered event breaches at
// least somewhere.
type location struct {
	name string
	lat  float64
	lon  float64
}

var locations = []location{
	{name: "Paris", lat: 48.8566, lon: 2.3522},
	{name: "Reykjavik", lat: 64.1466, lon: -21.9426},
	{name: "Dubai", lat: 25.2048, lon: 55.2708},
	{name: "Wellington", lat: -41.2866, lon: 174.7756},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	seriesOut := flag.String("series-out", "", "output path for raw point-series JSON fixture")
	timingsOut := flag.String("timings-out", "", "output path for timing documents JSON fixture")
	flag.Parse()

	if *seriesOut == "" || *timingsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -series-out, -timings-out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(fixedNow))
	defer domain.SetClock(nil)

	provider := store.NewDemoProvider()
	now := domain.Now()

	var records []domain.RawSeriesRecord //nolint:prealloc // size depends on the registries
	var docs []domain.TimingDocument     //nolint:prealloc // size depends on the registries

	for _, loc := range locations {
		for _, v := range domain.Variables() {
			pt, err := provider.Series(context.Background(), loc.lat, loc.lon, v.ID)
			if err != nil {
				return fmt.Errorf("generating %s series for %s: %w", v.ID, loc.name, err)
			}
			records = append(records, toRecord(pt))

			for _, event := range domain.Events() {
				if event.Variable != pt.Series.Variable {
					continue
				}
				timing, err := domain.ComputeTiming(pt.Series, event.Condition(), now)
				if err != nil {
					return fmt.Errorf("computing %s timing for %s: %w", event.ID, loc.name, err)
				}
				docs = append(docs, domain.NewTimingDocument(event, pt, timing))
			}
		}
		log.Printf("%s: %d variables", loc.name, len(domain.Variables()))
	}

	log.Printf("total: %d series, %d timing documents", len(records), len(docs))

	if err := writeJSON(*seriesOut, records); err != nil {
		return fmt.Errorf("writing series fixture: %w", err)
	}
	log.Printf("wrote series fixture: %s", *seriesOut)

	if err := writeJSON(*timingsOut, docs); err != nil {
		return fmt.Errorf("writing timings fixture: %w", err)
	}
	log.Printf("wrote timings fixture: %s", *timingsOut)

	printStats(docs)
	return nil
}

// toRecord flattens a point series back into the wire shape the ingest
// service publishes.
func toRecord(pt domain.PointSeries) domain.RawSeriesRecord {
	leads := make([]float64, len(pt.Series.Points))
	values := make([]float64, len(pt.Series.Points))
	for i, p := range pt.Series.Points {
		leads[i] = p.LeadTimeHours
		values[i] = p.Value
	}
	return domain.RawSeriesRecord{
		Latitude:       pt.Geo.Lat,
		Longitude:      pt.Geo.Lon,
		Variable:       pt.Series.Variable,
		Unit:           pt.Series.Unit,
		InitTime:       pt.Series.InitTime,
		LeadTimesHours: leads,
		Values:         values,
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(docs []domain.TimingDocument) {
	breachCounts := map[string]int{}
	openCounts := map[string]int{}
	var earliest, latest *time.Time

	for i := range docs {
		d := &docs[i]
		t := d.Timing.FirstBreachTime
		if t == nil {
			continue
		}
		breachCounts[d.EventID]++
		if d.Timing.FirstWindowOpen {
			openCounts[d.EventID]++
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = t
		}
		if latest == nil || t.After(*latest) {
			latest = t
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total documents: %d\n", len(docs))
	for _, event := range domain.Events() {
		fmt.Printf("%s: breached=%d open=%d\n", event.ID, breachCounts[event.ID], openCounts[event.ID])
	}
	if earliest != nil {
		fmt.Printf("Earliest first breach: %s\n", earliest.Format(time.RFC3339))
		fmt.Printf("Latest first breach: %s\n", latest.Format(time.RFC3339))
	}

	printFirstBreached(docs)
}

func printFirstBreached(docs []domain.TimingDocument) {
	for i := range docs {
		d := &docs[i]
		if d.Timing.FirstBreachTime == nil {
			continue
		}
		fmt.Printf("\nFirst breached document:\n")
		fmt.Printf("  ID: %s\n", d.ID)
		fmt.Printf("  Event: %s\n", d.EventID)
		fmt.Printf("  Lat: %g, Lon: %g\n", d.Geo.Lat, d.Geo.Lon)
		fmt.Printf("  InitTime: %s\n", d.ForecastInitTime.Format(time.RFC3339))
		fmt.Printf("  FirstBreach: %s\n", d.Timing.FirstBreachTime.Format(time.RFC3339))
		if d.Timing.DurationHours != nil {
			fmt.Printf("  Duration: %gh\n", *d.Timing.DurationHours)
		}
		if d.Timing.NextBreachTime != nil {
			fmt.Printf("  NextBreach: %s\n", d.Timing.NextBreachTime.Format(time.RFC3339))
		}
		break
	}
}

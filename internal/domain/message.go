package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Geo is a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RawEvent is an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RawSeriesRecord is the flat JSON payload published per watched location by
// the forecast ingest service: one variable's point series for one forecast
// cycle, as parallel lead-time/value arrays.
type RawSeriesRecord struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Variable       string    `json:"variable"`
	Unit           string    `json:"unit"`
	InitTime       time.Time `json:"init_time"`
	LeadTimesHours []float64 `json:"lead_times_hours"`
	Values         []float64 `json:"values"`
}

// PointSeries couples a validated forecast series with its grid location.
type PointSeries struct {
	Geo    Geo
	Series ForecastSeries
}

// ParseRawSeries deserializes a RawEvent's value into a PointSeries.
// The embedded series is validated, so downstream stages can scan it without
// re-checking invariants.
func ParseRawSeries(raw RawEvent) (PointSeries, error) {
	var rec RawSeriesRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return PointSeries{}, fmt.Errorf("parse raw series: %w", err)
	}

	series, err := NewForecastSeries(rec.Variable, rec.Unit, rec.InitTime, rec.LeadTimesHours, rec.Values)
	if err != nil {
		return PointSeries{}, fmt.Errorf("parse raw series: %w", err)
	}

	return PointSeries{
		Geo:    Geo{Lat: rec.Latitude, Lon: rec.Longitude},
		Series: series,
	}, nil
}

// TimingDocument is the computed occurrence result destined for the sink
// topic: one event evaluated against one point series.
type TimingDocument struct {
	ID               string      `json:"id"`
	EventID          string      `json:"event_id"`
	Geo              Geo         `json:"geo"`
	ForecastInitTime time.Time   `json:"forecast_init_time"`
	Timing           EventTiming `json:"timing"`
	ComputedAt       time.Time   `json:"computed_at"`
}

// NewTimingDocument assembles a sink document with a deterministic ID and the
// current clock time as ComputedAt.
func NewTimingDocument(event WeatherEvent, pt PointSeries, timing EventTiming) TimingDocument {
	return TimingDocument{
		ID:               generateID(event.ID, pt.Geo.Lat, pt.Geo.Lon, pt.Series.InitTime),
		EventID:          event.ID,
		Geo:              pt.Geo,
		ForecastInitTime: pt.Series.InitTime,
		Timing:           timing,
		ComputedAt:       clock.Now(),
	}
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// generateID produces a deterministic ID from the document's key fields.
// Recomputing the same event for the same point and forecast cycle yields the
// same ID, so downstream upserts stay idempotent under replay.
func generateID(eventID string, lat, lon float64, initTime time.Time) string {
	input := fmt.Sprintf("%s|%.4f|%.4f|%s", eventID, lat, lon, initTime.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if eventID == "" {
		return short
	}
	return eventID + "-" + short
}

package httpapi

import (
	"time"

	"github.com/whenwx/forecast-timing-service/internal/domain"
)

// dataSource identifies the forecast behind every answer.
const dataSource = "ECMWF IFS 15-day forecast"

// LocationInfo describes the queried point. Place is filled when reverse
// geocoding is enabled, Timezone when a resolver is configured.
type LocationInfo struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Place    string  `json:"place,omitempty"`
	Timezone string  `json:"timezone,omitempty"`
}

// ConditionInfo echoes the evaluated threshold rule in display units.
type ConditionInfo struct {
	Variable  string  `json:"variable"`
	Label     string  `json:"label"`
	Threshold float64 `json:"threshold"`
	Operator  string  `json:"operator"`
	Unit      string  `json:"unit"`
}

// EventInfo identifies the preconfigured event a query resolved through.
type EventInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TimePoint is one forecast sample in display units.
type TimePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// QueryResponse is the full answer to GET /v1/query.
type QueryResponse struct {
	Location         LocationInfo       `json:"location"`
	Event            *EventInfo         `json:"event,omitempty"`
	Condition        ConditionInfo      `json:"condition"`
	Timing           domain.EventTiming `json:"timing"`
	ForecastInitTime time.Time          `json:"forecastInitTime"`
	QueryTime        time.Time          `json:"queryTime"`
	DataSource       string             `json:"dataSource"`
	TimeSeries       []TimePoint        `json:"timeSeries,omitempty"`
}

// EventSummary is one entry of GET /v1/events.
type EventSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Variable    string  `json:"variable"`
	Threshold   float64 `json:"threshold"`
	Operator    string  `json:"operator"`
	Unit        string  `json:"unit"`
}

// VariableSummary is one entry of GET /v1/variables.
type VariableSummary struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Unit    string `json:"unit"`
	Derived bool   `json:"derived,omitempty"`
}

package domain

import (
	"math"
	"sort"
)

// VariableConfig describes a queryable weather variable: which store
// variable(s) back it, its storage and display units, and the conversions
// between them. Derived variables are computed from multiple store series.
type VariableConfig struct {
	ID             string // query-facing ID, e.g. "2t", "wind_speed"
	Label          string
	StoreVariables []string // upstream variable name(s) to fetch
	DisplayUnit    string
	StorageUnit    string
	ToDisplay      func(float64) float64
	ToStorage      func(float64) float64
	Derived        bool
}

func kelvinToCelsius(k float64) float64 { return k - 273.15 }
func celsiusToKelvin(c float64) float64 { return c + 273.15 }
func msToKmh(ms float64) float64        { return ms * 3.6 }
func kmhToMs(kmh float64) float64       { return kmh / 3.6 }

var variableRegistry = map[string]VariableConfig{
	"2t": {
		ID:             "2t",
		Label:          "Temperature",
		StoreVariables: []string{"2t"},
		DisplayUnit:    "°C",
		StorageUnit:    "K",
		ToDisplay:      kelvinToCelsius,
		ToStorage:      celsiusToKelvin,
	},
	"wind_speed": {
		ID:             "wind_speed",
		Label:          "Wind Speed",
		StoreVariables: []string{"10u", "10v"},
		DisplayUnit:    "km/h",
		StorageUnit:    "m/s",
		ToDisplay:      msToKmh,
		ToStorage:      kmhToMs,
		Derived:        true,
	},
}

// LookupVariable returns the config for a query-facing variable ID.
func LookupVariable(id string) (VariableConfig, bool) {
	cfg, ok := variableRegistry[id]
	return cfg, ok
}

// Variables returns all registered variables ordered by ID.
func Variables() []VariableConfig {
	out := make([]VariableConfig, 0, len(variableRegistry))
	for _, cfg := range variableRegistry {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeriveWindSpeed combines 10m u/v wind component series into a wind speed
// series. Both inputs must share the init time and lead-time grid.
func DeriveWindSpeed(u, v ForecastSeries) (ForecastSeries, error) {
	if err := u.Validate(); err != nil {
		return ForecastSeries{}, err
	}
	if err := v.Validate(); err != nil {
		return ForecastSeries{}, err
	}
	if !u.InitTime.Equal(v.InitTime) {
		return ForecastSeries{}, invalidSeriesf("wind component init times differ: %s vs %s", u.InitTime, v.InitTime)
	}
	if len(u.Points) != len(v.Points) {
		return ForecastSeries{}, invalidSeriesf("wind component lengths differ: %d vs %d", len(u.Points), len(v.Points))
	}

	points := make([]ForecastPoint, len(u.Points))
	for i := range u.Points {
		if u.Points[i].LeadTimeHours != v.Points[i].LeadTimeHours {
			return ForecastSeries{}, invalidSeriesf("wind component lead times differ at index %d", i)
		}
		points[i] = ForecastPoint{
			LeadTimeHours: u.Points[i].LeadTimeHours,
			Value:         math.Hypot(u.Points[i].Value, v.Points[i].Value),
		}
	}

	return ForecastSeries{
		Variable: "wind_speed",
		Unit:     "m/s",
		InitTime: u.InitTime,
		Points:   points,
	}, nil
}

package domain

import "sort"

// WeatherEvent is a named, preconfigured threshold query. Threshold is in the
// variable's storage unit; ThresholdDisplay is the same value in display units
// for presentation.
type WeatherEvent struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Variable         string   `json:"variable"`
	Threshold        float64  `json:"threshold"`
	ThresholdDisplay float64  `json:"thresholdDisplay"`
	Operator         Operator `json:"operator"`
	Unit             string   `json:"unit"` // display unit
}

// Condition returns the event's threshold rule in storage units.
func (e WeatherEvent) Condition() ThresholdCondition {
	return ThresholdCondition{Variable: e.Variable, Operator: e.Operator, Value: e.Threshold}
}

var eventRegistry = map[string]WeatherEvent{
	"freezing": {
		ID:               "freezing",
		Name:             "Freezing Temperatures",
		Description:      "Temperature drops below -10°C",
		Variable:         "2t",
		Threshold:        263.15,
		ThresholdDisplay: -10,
		Operator:         OpLessThan,
		Unit:             "°C",
	},
	"heat": {
		ID:               "heat",
		Name:             "Extreme Heat",
		Description:      "Temperature rises above 35°C",
		Variable:         "2t",
		Threshold:        308.15,
		ThresholdDisplay: 35,
		Operator:         OpGreaterThan,
		Unit:             "°C",
	},
	"gale": {
		ID:               "gale",
		Name:             "Gale-Force Wind",
		Description:      "Wind speed exceeds 63 km/h",
		Variable:         "wind_speed",
		Threshold:        17.5,
		ThresholdDisplay: 63,
		Operator:         OpGreaterThan,
		Unit:             "km/h",
	},
}

// LookupEvent returns a preconfigured event by ID.
func LookupEvent(id string) (WeatherEvent, bool) {
	e, ok := eventRegistry[id]
	return e, ok
}

// Events returns all preconfigured events ordered by ID.
func Events() []WeatherEvent {
	out := make([]WeatherEvent, 0, len(eventRegistry))
	for _, e := range eventRegistry {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

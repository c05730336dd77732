package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/whenwx/forecast-timing-service/internal/domain"
)

// forecastDays is the length of the synthetic cycle, matching the 15-day
// hourly horizon of the real store.
const forecastDays = 15

// DemoProvider serves synthetic forecast series for local development and
// demos, with no forecast store required. Series are deterministic in
// (lat, lon, variable) for a given cycle: a diurnal temperature swing with a
// slow cooling trend, plus oscillating wind components.
type DemoProvider struct{}

// NewDemoProvider creates a synthetic series provider.
func NewDemoProvider() *DemoProvider {
	return &DemoProvider{}
}

// Series implements SeriesProvider.
func (p *DemoProvider) Series(_ context.Context, lat, lon float64, variable string) (domain.PointSeries, error) {
	cfg, ok := domain.LookupVariable(variable)
	if !ok {
		return domain.PointSeries{}, fmt.Errorf("store: unknown variable %q", variable)
	}

	initTime := p.initTime()

	parts := make([]domain.ForecastSeries, 0, len(cfg.StoreVariables))
	for _, storeVar := range cfg.StoreVariables {
		series, err := syntheticSeries(storeVar, lat, lon, initTime)
		if err != nil {
			return domain.PointSeries{}, err
		}
		parts = append(parts, series)
	}

	geo := domain.Geo{Lat: lat, Lon: lon}
	if !cfg.Derived {
		return domain.PointSeries{Geo: geo, Series: parts[0]}, nil
	}

	derived, err := domain.DeriveWindSpeed(parts[0], parts[1])
	if err != nil {
		return domain.PointSeries{}, fmt.Errorf("store: derive %s: %w", variable, err)
	}
	return domain.PointSeries{Geo: geo, Series: derived}, nil
}

// initTime returns the most recent 00Z cycle.
func (p *DemoProvider) initTime() time.Time {
	now := domain.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func syntheticSeries(storeVar string, lat, lon float64, initTime time.Time) (domain.ForecastSeries, error) {
	hours := forecastDays * 24
	leadHours := make([]float64, hours)
	values := make([]float64, hours)

	seed := pointSeed(lat, lon)

	for h := 0; h < hours; h++ {
		lead := float64(h)
		leadHours[h] = lead

		switch storeVar {
		case "2t":
			// Kelvin. Warmer at the equator, diurnal swing peaking mid
			// afternoon local time, slow cooling trend across the cycle.
			base := 301.15 - 0.4*math.Abs(lat)
			localHour := math.Mod(lead+float64(initTime.Hour())+lon/15+360, 24)
			diurnal := 6 * math.Sin(2*math.Pi*(localHour-9)/24)
			trend := -0.15 * lead / 24
			wobble := 1.5 * math.Sin(lead/17.3+seed)
			values[h] = base + diurnal + trend + wobble
		case "10u":
			values[h] = 4 + 3*math.Sin(lead/29+seed)
		case "10v":
			values[h] = 2 * math.Cos(lead/23+seed)
		default:
			return domain.ForecastSeries{}, fmt.Errorf("store: no synthetic generator for %q", storeVar)
		}
	}

	unit := "K"
	if storeVar != "2t" {
		unit = "m/s"
	}

	return domain.NewForecastSeries(storeVar, unit, initTime, leadHours, values)
}

// pointSeed derives a stable phase offset from the coordinates so nearby
// points get visibly different but reproducible series.
func pointSeed(lat, lon float64) float64 {
	v := math.Sin(lat*12.9898+lon*78.233) * 43758.5453
	return (v - math.Floor(v)) * 2 * math.Pi
}

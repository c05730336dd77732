// Package store fetches point forecast series from the internal forecast
// store service, which holds the latest ECMWF IFS 15-day cycle. A demo
// provider generating synthetic series is included for local development.
package store

import (
	"context"
	"errors"

	"github.com/whenwx/forecast-timing-service/internal/domain"
)

// ErrNoData indicates the store has no series for the requested location.
var ErrNoData = errors.New("store: no data for location")

// ErrUnavailable indicates the store could not be reached, kept failing
// after retries, or the circuit breaker is open.
var ErrUnavailable = errors.New("store: upstream unavailable")

// SeriesProvider resolves a registry variable to a forecast series at a
// point. Derived variables (wind_speed) are composed from their component
// store variables before being returned.
type SeriesProvider interface {
	Series(ctx context.Context, lat, lon float64, variable string) (domain.PointSeries, error)
}

package httpapi

import (
	"fmt"

	"github.com/ringsaturn/tzf"
)

// TimezoneResolver maps a coordinate to its IANA timezone name, so clients
// can localize the UTC timing fields.
type TimezoneResolver interface {
	Resolve(lat, lon float64) string
}

type tzfResolver struct {
	finder tzf.F
}

// NewTimezoneResolver builds a resolver backed by tzf's embedded compressed
// timezone shapes. The lookup is pure in-process, no network involved.
func NewTimezoneResolver() (TimezoneResolver, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("timezone finder: %w", err)
	}
	return &tzfResolver{finder: finder}, nil
}

func (r *tzfResolver) Resolve(lat, lon float64) string {
	return r.finder.GetTimezoneName(lon, lat)
}

package domain

import "context"

// GeocodingResult is the resolved location for a place-name query.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves the locations users query by name. Forward geocoding
// turns a "place" query parameter into coordinates for the series fetch;
// reverse geocoding labels a lat/lon query with a human-readable place name
// in the response.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, place string) (GeocodingResult, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

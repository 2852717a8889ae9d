package domain

import "context"

// GeocodingResult contains place details for a coordinate pair.
type GeocodingResult struct {
	PlaceName        string
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves detection coordinates to human-readable place names
// for map popups and assessment context.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

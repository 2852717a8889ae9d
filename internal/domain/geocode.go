package domain

import (
	"context"
	"log/slog"
)

// EnrichWithPlaceNames resolves a place name for each detection in the
// slice. A nil geocoder or a failed lookup leaves the detection
// unchanged (graceful degradation); the fetch itself never fails on
// geocoding. Detections within one fetch often share a cell, so callers
// wrap the geocoder in a cache.
func EnrichWithPlaceNames(ctx context.Context, detections []Detection, geocoder Geocoder, logger *slog.Logger) {
	if geocoder == nil {
		return
	}

	for i := range detections {
		d := &detections[i]
		result, err := geocoder.ReverseGeocode(ctx, d.Latitude, d.Longitude)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"detection_id", d.ID,
				"lat", d.Latitude,
				"lon", d.Longitude,
				"error", err,
			)
			continue
		}
		d.PlaceName = result.PlaceName
	}
}

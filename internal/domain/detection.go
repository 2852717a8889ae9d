package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SourceProduct identifies a FIRMS satellite product.
type SourceProduct string

const (
	SourceVIIRSNOAA20 SourceProduct = "VIIRS_NOAA20_NRT"
	SourceVIIRSSNPP   SourceProduct = "VIIRS_SNPP_NRT"
	SourceMODIS       SourceProduct = "MODIS_NRT"
)

// ParseSourceProduct validates a satellite product name.
func ParseSourceProduct(s string) (SourceProduct, error) {
	switch SourceProduct(s) {
	case SourceVIIRSNOAA20, SourceVIIRSSNPP, SourceMODIS:
		return SourceProduct(s), nil
	default:
		return "", fmt.Errorf("unknown satellite source %q: %w", s, ErrValidation)
	}
}

// BoundingBox is a rectangular geographic filter in WGS-84 coordinates.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Validate checks that both axes are ordered and within WGS-84 range.
func (b BoundingBox) Validate() error {
	if b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("latitude out of range [-90,90]: %w", ErrValidation)
	}
	if b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("longitude out of range [-180,180]: %w", ErrValidation)
	}
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("min latitude %.4f must be less than max latitude %.4f: %w", b.MinLat, b.MaxLat, ErrValidation)
	}
	if b.MinLon >= b.MaxLon {
		return fmt.Errorf("min longitude %.4f must be less than max longitude %.4f: %w", b.MinLon, b.MaxLon, ErrValidation)
	}
	return nil
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Area formats the box as the FIRMS area path segment: minLon,minLat,maxLon,maxLat.
func (b BoundingBox) Area() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Query holds the parameters for one FIRMS area request.
type Query struct {
	Source    SourceProduct
	BBox      BoundingBox
	StartDate time.Time // calendar date, time portion ignored
	Days      int
}

// Validate checks local preconditions before any network call is made.
func (q Query) Validate() error {
	if _, err := ParseSourceProduct(string(q.Source)); err != nil {
		return err
	}
	if err := q.BBox.Validate(); err != nil {
		return err
	}
	if q.StartDate.IsZero() {
		return fmt.Errorf("start date is required: %w", ErrValidation)
	}
	if q.Days < 1 {
		return fmt.Errorf("day count must be at least 1: %w", ErrValidation)
	}
	return nil
}

// ClampDays caps the day count at the provider limit. FIRMS silently
// misbehaves above its limit, so every dispatch path applies this
// before calling out.
func (q Query) ClampDays(limit int) Query {
	if q.Days > limit {
		q.Days = limit
	}
	return q
}

// CacheKey produces a stable key identifying this exact request.
func (q Query) CacheKey() string {
	return fmt.Sprintf("%s|%s|%d|%s", q.Source, q.BBox.Area(), q.Days, q.StartDate.Format("2006-01-02"))
}

// OptionalFloat distinguishes an absent or unparseable numeric field from zero.
type OptionalFloat struct {
	Value float64
	Valid bool
}

// OrZero returns the value for threshold math, treating absent as 0 so
// unparseable readings never classify as high intensity.
func (o OptionalFloat) OrZero() float64 {
	if !o.Valid {
		return 0
	}
	return o.Value
}

// MarshalJSON encodes an absent value as null.
func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON treats null as absent.
func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = OptionalFloat{}
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// ConfidenceBucket is the presentation tier derived from detection confidence.
type ConfidenceBucket string

const (
	BucketHigh   ConfidenceBucket = "high"
	BucketMedium ConfidenceBucket = "medium"
	BucketLow    ConfidenceBucket = "low"
)

// Color returns the marker color for the bucket.
func (b ConfidenceBucket) Color() string {
	switch b {
	case BucketHigh:
		return "red"
	case BucketMedium:
		return "orange"
	default:
		return "yellow"
	}
}

// Detection is one observed thermal anomaly. Immutable once created;
// a new fetch fully replaces the previous set.
type Detection struct {
	ID         string           `json:"id"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	AcqDate    string           `json:"acq_date"` // as fetched, YYYY-MM-DD
	AcqTime    string           `json:"acq_time"` // as fetched, HHMM
	AcquiredAt time.Time        `json:"acquired_at"`
	Brightness OptionalFloat    `json:"brightness"`
	FRP        OptionalFloat    `json:"frp"`
	Confidence float64          `json:"confidence"`
	Bucket     ConfidenceBucket `json:"bucket"`

	// Geocoding enrichment, empty when disabled or unresolved.
	PlaceName string `json:"place_name,omitempty"`
}

// generateID produces a deterministic ID from the detection's key fields.
// Reprocessing the same row yields the same ID, so downstream consumers
// can de-duplicate replays.
func generateID(source SourceProduct, lat, lon float64, date, hhmm string) string {
	input := fmt.Sprintf("%s|%.5f|%.5f|%s|%s", source, lat, lon, date, hhmm)
	hash := sha256.Sum256([]byte(input))
	return "fire-" + hex.EncodeToString(hash[:8])
}

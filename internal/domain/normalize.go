package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Column names of interest in the FIRMS CSV body. Latitude and longitude
// are required; the rest degrade gracefully when absent.
const (
	colLatitude   = "latitude"
	colLongitude  = "longitude"
	colBrightness = "bright_ti4"
	colFRP        = "frp"
	colConfidence = "confidence"
	colAcqDate    = "acq_date"
	colAcqTime    = "acq_time"
)

// Confidence buckets for the three categorical levels FIRMS uses on
// VIIRS products. MODIS reports numeric 0-100 instead.
const (
	confidenceLow     = 30
	confidenceNominal = 50
	confidenceHigh    = 80
)

// ParseDetections parses a FIRMS CSV body into normalized detections.
// Rows with unparseable coordinates are skipped; every other field is
// normalized totally and never fails a row.
func ParseDetections(source SourceProduct, body []byte) ([]Detection, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV body: %v: %w", err, ErrParse)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty response body: %w", ErrParse)
	}

	cols := indexColumns(records[0])
	for _, required := range []string{colLatitude, colLongitude} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q: %w", required, ErrParse)
		}
	}

	detections := make([]Detection, 0, len(records)-1)
	for _, rec := range records[1:] {
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		lat, errLat := strconv.ParseFloat(field(colLatitude), 64)
		lon, errLon := strconv.ParseFloat(field(colLongitude), 64)
		if errLat != nil || errLon != nil {
			continue
		}

		acqDate := field(colAcqDate)
		acqTime := field(colAcqTime)
		confidence := NormalizeConfidence(field(colConfidence))

		detections = append(detections, Detection{
			ID:         generateID(source, lat, lon, acqDate, acqTime),
			Latitude:   lat,
			Longitude:  lon,
			AcqDate:    acqDate,
			AcqTime:    acqTime,
			AcquiredAt: CombineAcquisitionTime(acqDate, acqTime),
			Brightness: parseOptionalFloat(field(colBrightness)),
			FRP:        parseOptionalFloat(field(colFRP)),
			Confidence: confidence,
			Bucket:     BucketForConfidence(confidence),
		})
	}
	return detections, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

// NormalizeConfidence coerces a raw confidence value into [0,100].
// Categorical values map to fixed buckets (l/low → 30, n/nominal → 50,
// h/high → 80); numeric values are parsed and clamped; anything else,
// including an empty field, defaults to nominal. Never fails a row.
func NormalizeConfidence(raw string) float64 {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "l", "low":
		return confidenceLow
	case "n", "nominal":
		return confidenceNominal
	case "h", "high":
		return confidenceHigh
	case "":
		return confidenceNominal
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return confidenceNominal
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// BucketForConfidence maps a normalized confidence to its display tier.
func BucketForConfidence(confidence float64) ConfidenceBucket {
	switch {
	case confidence >= confidenceHigh:
		return BucketHigh
	case confidence >= confidenceNominal:
		return BucketMedium
	default:
		return BucketLow
	}
}

// parseOptionalFloat treats empty or unparseable values as absent, not zero.
func parseOptionalFloat(s string) OptionalFloat {
	s = strings.TrimSpace(s)
	if s == "" {
		return OptionalFloat{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return OptionalFloat{}
	}
	return OptionalFloat{Value: v, Valid: true}
}

// CombineAcquisitionTime merges the acq_date and acq_time columns into a
// UTC timestamp. FIRMS encodes time-of-day as HHMM with leading zeros
// stripped ("451" → 04:51). Returns the date at midnight when the time
// is missing or malformed, and the zero time when the date itself is.
func CombineAcquisitionTime(date, hhmm string) time.Time {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.UTC)
	if err != nil {
		return time.Time{}
	}

	hhmm = strings.TrimSpace(hhmm)
	for len(hhmm) < 4 {
		hhmm = "0" + hhmm
	}

	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || mins < 0 || mins > 59 {
		return day
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, mins, 0, 0, time.UTC)
}

// Marker radius bounds in pixels.
const (
	minMarkerRadius = 3
	maxMarkerRadius = 10
)

// MarkerRadius maps radiative power to a marker radius, monotonically,
// clamped to [3,10]. An absent FRP renders at the minimum size.
func MarkerRadius(frp OptionalFloat) float64 {
	r := minMarkerRadius + frp.OrZero()/15
	if r < minMarkerRadius {
		return minMarkerRadius
	}
	if r > maxMarkerRadius {
		return maxMarkerRadius
	}
	return r
}

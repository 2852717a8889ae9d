// Package export writes the fetched detection table as CSV, the only
// file artifact the service produces.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
)

// Header matches the columns of interest in the fetched table, so an
// exported file can be re-ingested by the normalizer.
var Header = []string{"latitude", "longitude", "bright_ti4", "frp", "confidence", "acq_date", "acq_time"}

// Filename encodes the requested source and date range:
// firms_{source}_{start}_{end}.csv.
func Filename(query domain.Query) string {
	start := query.StartDate
	end := start.AddDate(0, 0, query.Days-1)
	return fmt.Sprintf("firms_%s_%s_%s.csv",
		query.Source,
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
	)
}

// WriteCSV writes the full detection table. Coordinates use the
// shortest exact representation so a re-parse yields identical values;
// absent optional fields are written as empty cells.
func WriteCSV(w io.Writer, detections []domain.Detection) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, d := range detections {
		record := []string{
			formatFloat(d.Latitude),
			formatFloat(d.Longitude),
			formatOptional(d.Brightness),
			formatOptional(d.FRP),
			formatFloat(d.Confidence),
			d.AcqDate,
			d.AcqTime,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(o domain.OptionalFloat) string {
	if !o.Valid {
		return ""
	}
	return formatFloat(o.Value)
}

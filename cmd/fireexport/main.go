// Command fireexport fetches FIRMS detections for an area and writes
// them to a CSV file, for offline analysis without running the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/wildfire-intel-service/internal/adapter/firms"
	"github.com/couchcryptid/wildfire-intel-service/internal/config"
	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/export"
	"github.com/couchcryptid/wildfire-intel-service/internal/observability"
)

func main() {
	var (
		source    = flag.String("source", string(domain.SourceVIIRSNOAA20), "FIRMS source product")
		minLat    = flag.Float64("min-lat", 0, "bounding box minimum latitude")
		minLon    = flag.Float64("min-lon", 0, "bounding box minimum longitude")
		maxLat    = flag.Float64("max-lat", 0, "bounding box maximum latitude")
		maxLon    = flag.Float64("max-lon", 0, "bounding box maximum longitude")
		startDate = flag.String("start-date", "", "first acquisition date, YYYY-MM-DD (default: today minus days)")
		days      = flag.Int("days", 1, "number of days to fetch")
		outDir    = flag.String("out", ".", "output directory")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.FIRMSAPIKey == "" {
		fmt.Fprintln(os.Stderr, "FIRMS_API_KEY must be set")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	src, err := domain.ParseSourceProduct(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown source %q\n", *source)
		os.Exit(1)
	}

	start := domain.Clock().Now().UTC().AddDate(0, 0, -*days)
	if *startDate != "" {
		start, err = time.ParseInLocation("2006-01-02", *startDate, time.UTC)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid start date %q: %v\n", *startDate, err)
			os.Exit(1)
		}
	}

	query := domain.Query{
		Source: src,
		BBox: domain.BoundingBox{
			MinLat: *minLat,
			MinLon: *minLon,
			MaxLat: *maxLat,
			MaxLon: *maxLon,
		},
		StartDate: start,
		Days:      *days,
	}
	if err := query.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid query: %v\n", err)
		os.Exit(1)
	}
	if query.Days > cfg.FIRMSMaxDays {
		logger.Warn("day count clamped to provider cap", "requested", query.Days, "cap", cfg.FIRMSMaxDays)
		query = query.ClampDays(cfg.FIRMSMaxDays)
	}

	client := firms.NewClient(cfg.FIRMSAPIKey, cfg.FIRMSBaseURL, cfg.FIRMSTimeout, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	detections, err := client.Fetch(ctx, query)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}

	path := filepath.Join(*outDir, export.Filename(query))
	f, err := os.Create(path)
	if err != nil {
		logger.Error("create output file", "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := export.WriteCSV(f, detections); err != nil {
		logger.Error("write csv", "path", path, "error", err)
		os.Exit(1)
	}

	logger.Info("export complete", "path", path, "detections", len(detections), "source", src, "days", query.Days)
}

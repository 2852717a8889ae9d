package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/wildfire-intel-service/internal/adapter/firms"
	"github.com/couchcryptid/wildfire-intel-service/internal/adapter/httpapi"
	"github.com/couchcryptid/wildfire-intel-service/internal/adapter/inference"
	kafkaadapter "github.com/couchcryptid/wildfire-intel-service/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-intel-service/internal/adapter/mapbox"
	"github.com/couchcryptid/wildfire-intel-service/internal/config"
	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/observability"
	"github.com/couchcryptid/wildfire-intel-service/internal/pipeline"
	"github.com/couchcryptid/wildfire-intel-service/internal/session"
)

func main() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Reverse geocoding enrichment (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Optional Kafka detection sink (feature-flagged via KAFKA_ENABLED).
	var publisher pipeline.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		metrics.SinkEnabled.Set(1)
		logger.Info("kafka detection sink enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka detection sink disabled")
	}

	client := firms.NewClient(cfg.FIRMSAPIKey, cfg.FIRMSBaseURL, cfg.FIRMSTimeout, logger)
	fetcher := firms.NewCachedFetcher(client, cfg.FetchCacheTTL, metrics)
	store := session.NewStore(metrics)
	assessor := inference.NewAssessor(cfg, metrics, logger)

	p := pipeline.New(pipeline.Options{
		Fetcher:       fetcher,
		Store:         store,
		Geocoder:      geocoder,
		Publisher:     publisher,
		Logger:        logger,
		Metrics:       metrics,
		HasCredential: cfg.FIRMSAPIKey != "",
		MaxDays:       cfg.FIRMSMaxDays,
		Chunked:       cfg.FetchMode == config.FetchModeChunked,
		ChunkDays:     cfg.ChunkDays,
	})

	srv := httpapi.NewServer(httpapi.Options{
		Addr:      cfg.HTTPAddr,
		Pipeline:  p,
		Store:     store,
		Assessor:  assessor,
		MarkerCap: cfg.MarkerCap,
		Mode:      cfg.ResponseMode,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

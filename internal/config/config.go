package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// FIRMS fetch configuration.
	FIRMSAPIKey   string
	FIRMSBaseURL  string
	FIRMSTimeout  time.Duration
	FIRMSMaxDays  int
	FetchCacheTTL time.Duration
	FetchMode     string // "single" or "chunked"
	ChunkDays     int
	MarkerCap     int

	// Inference (risk assessment) configuration.
	InferenceAPIKey      string
	InferenceBaseURL     string
	InferenceModel       string
	InferenceTemperature float32
	InferenceMaxTokens   int
	InferenceTimeout     time.Duration
	ResponseMode         domain.ResponseMode

	// Mapbox reverse geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Optional Kafka detection sink.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Fetch modes.
const (
	FetchModeSingle  = "single"
	FetchModeChunked = "chunked"
)

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	firmsTimeout, err := parseDurationEnv("FIRMS_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDurationEnv("FETCH_CACHE_TTL", 300*time.Second)
	if err != nil {
		return nil, err
	}
	inferenceTimeout, err := parseDurationEnv("INFERENCE_TIMEOUT", 45*time.Second)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDurationEnv("MAPBOX_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	temperature, err := parseFloatEnv("INFERENCE_TEMPERATURE", 0.2)
	if err != nil {
		return nil, err
	}

	responseMode, ok := domain.ParseResponseMode(envOrDefault("RESPONSE_MODE", string(domain.ResponseStructured)))
	if !ok {
		return nil, errors.New("RESPONSE_MODE must be \"structured\" or \"narrative\"")
	}

	fetchMode := envOrDefault("FETCH_MODE", FetchModeSingle)
	if fetchMode != FetchModeSingle && fetchMode != FetchModeChunked {
		return nil, errors.New("FETCH_MODE must be \"single\" or \"chunked\"")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FIRMSAPIKey:   os.Getenv("FIRMS_API_KEY"),
		FIRMSBaseURL:  envOrDefault("FIRMS_BASE_URL", "https://firms.modaps.eosdis.nasa.gov"),
		FIRMSTimeout:  firmsTimeout,
		FIRMSMaxDays:  positiveIntEnv("FIRMS_MAX_DAYS", 10),
		FetchCacheTTL: cacheTTL,
		FetchMode:     fetchMode,
		ChunkDays:     positiveIntEnv("CHUNK_DAYS", 5),
		MarkerCap:     positiveIntEnv("MARKER_CAP", 2000),

		InferenceAPIKey:      os.Getenv("INFERENCE_API_KEY"),
		InferenceBaseURL:     envOrDefault("INFERENCE_BASE_URL", "https://api.cerebras.ai/v1"),
		InferenceModel:       envOrDefault("INFERENCE_MODEL", "llama-3.1-8b"),
		InferenceTemperature: temperature,
		InferenceMaxTokens:   positiveIntEnv("INFERENCE_MAX_TOKENS", 400),
		InferenceTimeout:     inferenceTimeout,
		ResponseMode:         responseMode,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: positiveIntEnv("MAPBOX_CACHE_SIZE", 1000),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "fire-detections"),
	}

	if cfg.InferenceTemperature < 0 || cfg.InferenceTemperature > 1 {
		return nil, errors.New("INFERENCE_TEMPERATURE must be in [0,1]")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseFloatEnv(key string, fallback float32) (float32, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return float32(v), nil
}

// positiveIntEnv parses a positive integer, silently falling back on
// anything else.
func positiveIntEnv(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

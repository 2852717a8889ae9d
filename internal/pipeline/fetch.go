// Package pipeline orchestrates one fetch interaction: validate, fetch,
// normalize, enrich, store, and optionally publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/wildfire-intel-service/internal/adapter/firms"
	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/observability"
	"github.com/couchcryptid/wildfire-intel-service/internal/session"
)

// Publisher forwards a fetched detection batch to downstream consumers.
type Publisher interface {
	PublishBatch(ctx context.Context, source domain.SourceProduct, detections []domain.Detection) error
}

// Service runs the fetch pipeline. Each user interaction triggers
// exactly one pass; there is no background work.
type Service struct {
	fetcher       firms.Fetcher
	store         *session.Store
	geocoder      domain.Geocoder // nil disables enrichment
	publisher     Publisher       // nil disables the sink
	logger        *slog.Logger
	metrics       *observability.Metrics
	hasCredential bool
	maxDays       int
	chunked       bool
	chunkDays     int
}

// Options configures a Service.
type Options struct {
	Fetcher       firms.Fetcher
	Store         *session.Store
	Geocoder      domain.Geocoder
	Publisher     Publisher
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	HasCredential bool
	MaxDays       int
	Chunked       bool
	ChunkDays     int
}

// New creates the fetch pipeline service.
func New(opts Options) *Service {
	return &Service{
		fetcher:       opts.Fetcher,
		store:         opts.Store,
		geocoder:      opts.Geocoder,
		publisher:     opts.Publisher,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		hasCredential: opts.HasCredential,
		maxDays:       opts.MaxDays,
		chunked:       opts.Chunked,
		chunkDays:     opts.ChunkDays,
	}
}

// CheckReadiness reports whether the service can serve fetch requests.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.hasCredential {
		return errors.New("no FIRMS API key configured")
	}
	return nil
}

// FetchAndStore validates the query, fetches and normalizes detections,
// and replaces the session's detection set. Validation failures block
// before any network call. On any failure the previous detection set is
// left unchanged.
func (s *Service) FetchAndStore(ctx context.Context, query domain.Query) (session.Snapshot, error) {
	if !s.hasCredential {
		s.metrics.FetchRequests.WithLabelValues("validation").Inc()
		return session.Snapshot{}, fmt.Errorf("no FIRMS API key configured: %w", domain.ErrValidation)
	}
	if err := query.Validate(); err != nil {
		s.metrics.FetchRequests.WithLabelValues("validation").Inc()
		return session.Snapshot{}, err
	}

	// Tell the user about an adjusted range via the query in the snapshot.
	if query.Days > s.maxDays {
		s.logger.Warn("day count clamped to provider cap", "requested", query.Days, "cap", s.maxDays)
		query = query.ClampDays(s.maxDays)
	}

	start := time.Now()
	detections, err := s.fetch(ctx, query)
	if err != nil {
		s.metrics.FetchRequests.WithLabelValues(outcomeLabel(err)).Inc()
		return session.Snapshot{}, err
	}

	domain.EnrichWithPlaceNames(ctx, detections, s.geocoder, s.logger)

	s.store.Replace(query, detections)
	s.metrics.FetchRequests.WithLabelValues("success").Inc()
	s.metrics.DetectionsFetched.Add(float64(len(detections)))
	s.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	s.publish(ctx, query.Source, detections)

	snapshot, _ := s.store.Snapshot()
	s.logger.Info("fetch complete",
		"source", query.Source,
		"days", query.Days,
		"detections", len(detections),
		"elapsed", time.Since(start),
	)
	return snapshot, nil
}

// fetch runs one provider call, or several chronological chunk calls in
// chunked mode. Chunk results are concatenated in order; detections on
// overlapping chunk boundaries are not de-duplicated, matching the
// deterministic-ID contract that leaves de-duplication to consumers.
func (s *Service) fetch(ctx context.Context, query domain.Query) ([]domain.Detection, error) {
	if !s.chunked || query.Days <= s.chunkDays {
		return s.fetcher.Fetch(ctx, query)
	}

	var all []domain.Detection
	remaining := query.Days
	chunkStart := query.StartDate
	for remaining > 0 {
		days := remaining
		if days > s.chunkDays {
			days = s.chunkDays
		}
		chunk := query
		chunk.StartDate = chunkStart
		chunk.Days = days

		detections, err := s.fetcher.Fetch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk starting %s: %w", chunkStart.Format("2006-01-02"), err)
		}
		all = append(all, detections...)

		chunkStart = chunkStart.AddDate(0, 0, days)
		remaining -= days
	}
	return all, nil
}

// publish forwards the batch to the sink when configured. Sink failures
// are observability events, not user-facing errors.
func (s *Service) publish(ctx context.Context, source domain.SourceProduct, detections []domain.Detection) {
	if s.publisher == nil || len(detections) == 0 {
		return
	}
	if err := s.publisher.PublishBatch(ctx, source, detections); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Error("detection publish failed", "error", err, "count", len(detections))
		return
	}
	s.metrics.DetectionsPublished.Add(float64(len(detections)))
}

// outcomeLabel maps an error to its metrics label.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrProvider):
		return "provider"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	default:
		return "transport"
	}
}

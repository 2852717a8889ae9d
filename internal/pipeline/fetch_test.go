package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/observability"
	"github.com/couchcryptid/wildfire-intel-service/internal/session"
)

// --- mocks ---

type mockFetcher struct {
	detections []domain.Detection
	err        error
	queries    []domain.Query
}

func (m *mockFetcher) Fetch(_ context.Context, query domain.Query) ([]domain.Detection, error) {
	m.queries = append(m.queries, query)
	return m.detections, m.err
}

// chunkFetcher returns one detection per call, tagged with the chunk's
// start date so tests can verify ordering.
type chunkFetcher struct {
	queries []domain.Query
}

func (m *chunkFetcher) Fetch(_ context.Context, query domain.Query) ([]domain.Detection, error) {
	m.queries = append(m.queries, query)
	return []domain.Detection{{ID: "fire-" + query.StartDate.Format("2006-01-02")}}, nil
}

type mockPublisher struct {
	batches [][]domain.Detection
	err     error
}

func (m *mockPublisher) PublishBatch(_ context.Context, _ domain.SourceProduct, detections []domain.Detection) error {
	m.batches = append(m.batches, detections)
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testQuery() domain.Query {
	return domain.Query{
		Source:    domain.SourceVIIRSNOAA20,
		BBox:      domain.BoundingBox{MinLat: 36, MinLon: -122, MaxLat: 39, MaxLon: -119},
		StartDate: time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC),
		Days:      3,
	}
}

func newTestService(opts Options) *Service {
	if opts.Store == nil {
		opts.Store = session.NewStore(observability.NewMetricsForTesting())
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.MaxDays == 0 {
		opts.MaxDays = 10
	}
	opts.HasCredential = true
	return New(opts)
}

// --- tests ---

func TestFetchAndStore_Success(t *testing.T) {
	fetcher := &mockFetcher{detections: []domain.Detection{{ID: "fire-1"}, {ID: "fire-2"}}}
	store := session.NewStore(observability.NewMetricsForTesting())
	svc := newTestService(Options{Fetcher: fetcher, Store: store})

	snapshot, err := svc.FetchAndStore(context.Background(), testQuery())

	require.NoError(t, err)
	assert.Len(t, snapshot.Detections, 2)
	assert.False(t, snapshot.FetchedAt.IsZero())
	assert.Equal(t, 2, store.Len())
	require.Len(t, fetcher.queries, 1)
}

func TestFetchAndStore_ValidationBlocksBeforeNetwork(t *testing.T) {
	fetcher := &mockFetcher{}
	svc := newTestService(Options{Fetcher: fetcher})

	query := testQuery()
	query.BBox.MinLat = 50 // inverted

	_, err := svc.FetchAndStore(context.Background(), query)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, fetcher.queries, "no provider call on validation failure")
}

func TestFetchAndStore_MissingCredential(t *testing.T) {
	fetcher := &mockFetcher{}
	svc := New(Options{
		Fetcher: fetcher,
		Store:   session.NewStore(observability.NewMetricsForTesting()),
		Logger:  discardLogger(),
		Metrics: observability.NewMetricsForTesting(),
		MaxDays: 10,
	})

	_, err := svc.FetchAndStore(context.Background(), testQuery())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, fetcher.queries)
}

func TestFetchAndStore_ClampsDayCount(t *testing.T) {
	fetcher := &mockFetcher{detections: []domain.Detection{{ID: "fire-1"}}}
	svc := newTestService(Options{Fetcher: fetcher, MaxDays: 10})

	query := testQuery()
	query.Days = 30

	snapshot, err := svc.FetchAndStore(context.Background(), query)

	require.NoError(t, err)
	require.Len(t, fetcher.queries, 1)
	assert.Equal(t, 10, fetcher.queries[0].Days)
	assert.Equal(t, 10, snapshot.Query.Days, "snapshot reflects the clamped range")
}

func TestFetchAndStore_FailureKeepsPreviousSet(t *testing.T) {
	store := session.NewStore(observability.NewMetricsForTesting())
	good := &mockFetcher{detections: []domain.Detection{{ID: "fire-1"}}}
	svc := newTestService(Options{Fetcher: good, Store: store})

	_, err := svc.FetchAndStore(context.Background(), testQuery())
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	bad := &mockFetcher{err: domain.ErrProvider}
	svc = newTestService(Options{Fetcher: bad, Store: store})

	_, err = svc.FetchAndStore(context.Background(), testQuery())
	require.Error(t, err)
	assert.Equal(t, 1, store.Len(), "failed fetch must not clobber the previous set")

	d, ok := store.Detection("fire-1")
	require.True(t, ok)
	assert.Equal(t, "fire-1", d.ID)
}

func TestFetchAndStore_EmptyResultReplaces(t *testing.T) {
	store := session.NewStore(observability.NewMetricsForTesting())
	svc := newTestService(Options{Fetcher: &mockFetcher{detections: []domain.Detection{{ID: "fire-1"}}}, Store: store})

	_, err := svc.FetchAndStore(context.Background(), testQuery())
	require.NoError(t, err)

	svc = newTestService(Options{Fetcher: &mockFetcher{detections: []domain.Detection{}}, Store: store})
	snapshot, err := svc.FetchAndStore(context.Background(), testQuery())

	require.NoError(t, err)
	assert.Empty(t, snapshot.Detections)
	assert.Equal(t, 0, store.Len())
}

func TestFetchAndStore_ChunkedMode(t *testing.T) {
	t.Run("splits a long range into chronological chunks", func(t *testing.T) {
		fetcher := &chunkFetcher{}
		svc := newTestService(Options{Fetcher: fetcher, Chunked: true, ChunkDays: 5, MaxDays: 10})

		query := testQuery()
		query.Days = 8

		snapshot, err := svc.FetchAndStore(context.Background(), query)

		require.NoError(t, err)
		require.Len(t, fetcher.queries, 2)
		assert.Equal(t, 5, fetcher.queries[0].Days)
		assert.Equal(t, time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC), fetcher.queries[0].StartDate)
		assert.Equal(t, 3, fetcher.queries[1].Days)
		assert.Equal(t, time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC), fetcher.queries[1].StartDate)

		// Concatenated in chunk order.
		require.Len(t, snapshot.Detections, 2)
		assert.Equal(t, "fire-2025-08-14", snapshot.Detections[0].ID)
		assert.Equal(t, "fire-2025-08-19", snapshot.Detections[1].ID)
	})

	t.Run("short range stays a single call", func(t *testing.T) {
		fetcher := &chunkFetcher{}
		svc := newTestService(Options{Fetcher: fetcher, Chunked: true, ChunkDays: 5, MaxDays: 10})

		_, err := svc.FetchAndStore(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Len(t, fetcher.queries, 1)
	})

	t.Run("chunk failure aborts and names the chunk", func(t *testing.T) {
		fetcher := &mockFetcher{err: domain.ErrTransport}
		store := session.NewStore(observability.NewMetricsForTesting())
		svc := newTestService(Options{Fetcher: fetcher, Store: store, Chunked: true, ChunkDays: 5, MaxDays: 10})

		query := testQuery()
		query.Days = 8

		_, err := svc.FetchAndStore(context.Background(), query)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTransport)
		assert.Contains(t, err.Error(), "2025-08-14")
		assert.Equal(t, 0, store.Len())
	})
}

func TestFetchAndStore_Publish(t *testing.T) {
	t.Run("publishes the fetched batch", func(t *testing.T) {
		publisher := &mockPublisher{}
		svc := newTestService(Options{
			Fetcher:   &mockFetcher{detections: []domain.Detection{{ID: "fire-1"}}},
			Publisher: publisher,
		})

		_, err := svc.FetchAndStore(context.Background(), testQuery())

		require.NoError(t, err)
		require.Len(t, publisher.batches, 1)
		assert.Len(t, publisher.batches[0], 1)
	})

	t.Run("publish failure does not fail the fetch", func(t *testing.T) {
		publisher := &mockPublisher{err: errors.New("broker down")}
		store := session.NewStore(observability.NewMetricsForTesting())
		svc := newTestService(Options{
			Fetcher:   &mockFetcher{detections: []domain.Detection{{ID: "fire-1"}}},
			Store:     store,
			Publisher: publisher,
		})

		snapshot, err := svc.FetchAndStore(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Len(t, snapshot.Detections, 1)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("empty batches are not published", func(t *testing.T) {
		publisher := &mockPublisher{}
		svc := newTestService(Options{
			Fetcher:   &mockFetcher{detections: []domain.Detection{}},
			Publisher: publisher,
		})

		_, err := svc.FetchAndStore(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Empty(t, publisher.batches)
	})
}

func TestCheckReadiness(t *testing.T) {
	ready := newTestService(Options{Fetcher: &mockFetcher{}})
	assert.NoError(t, ready.CheckReadiness(context.Background()))

	notReady := New(Options{
		Fetcher: &mockFetcher{},
		Store:   session.NewStore(observability.NewMetricsForTesting()),
		Logger:  discardLogger(),
		Metrics: observability.NewMetricsForTesting(),
	})
	assert.Error(t, notReady.CheckReadiness(context.Background()))
}

func TestFetchAndStore_GeocoderEnrichment(t *testing.T) {
	geocoder := &staticGeocoder{name: "Pollock Pines"}
	svc := newTestService(Options{
		Fetcher:  &mockFetcher{detections: []domain.Detection{{ID: "fire-1", Latitude: 38.9, Longitude: -120.5}}},
		Geocoder: geocoder,
	})

	snapshot, err := svc.FetchAndStore(context.Background(), testQuery())

	require.NoError(t, err)
	require.Len(t, snapshot.Detections, 1)
	assert.Equal(t, "Pollock Pines", snapshot.Detections[0].PlaceName)
}

type staticGeocoder struct {
	name string
}

func (g *staticGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{PlaceName: g.name}, nil
}

package firms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/observability"
)

type countingFetcher struct {
	detections []domain.Detection
	err        error
	calls      int
}

func (f *countingFetcher) Fetch(_ context.Context, _ domain.Query) ([]domain.Detection, error) {
	f.calls++
	return f.detections, f.err
}

func TestCachedFetcher(t *testing.T) {
	t.Run("identical query inside the window hits the cache", func(t *testing.T) {
		inner := &countingFetcher{detections: []domain.Detection{{ID: "fire-1"}}}
		cached := NewCachedFetcher(inner, 300*time.Second, observability.NewMetricsForTesting())

		first, err := cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)
		second, err := cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("mutating a result never reaches the cached entry", func(t *testing.T) {
		inner := &countingFetcher{detections: []domain.Detection{{ID: "fire-1"}}}
		cached := NewCachedFetcher(inner, 300*time.Second, observability.NewMetricsForTesting())

		first, err := cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)
		first[0].PlaceName = "Pollock Pines"

		second, err := cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)
		assert.Empty(t, second[0].PlaceName)
		second[0].PlaceName = "Placerville"

		third, err := cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)
		assert.Empty(t, third[0].PlaceName)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("different parameters miss the cache", func(t *testing.T) {
		inner := &countingFetcher{detections: []domain.Detection{{ID: "fire-1"}}}
		cached := NewCachedFetcher(inner, 300*time.Second, observability.NewMetricsForTesting())

		_, err := cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)

		other := testQuery()
		other.Days = 5
		_, err = cached.Fetch(context.Background(), other)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.calls)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		inner := &countingFetcher{err: errors.New("boom")}
		cached := NewCachedFetcher(inner, 300*time.Second, observability.NewMetricsForTesting())

		_, err := cached.Fetch(context.Background(), testQuery())
		require.Error(t, err)
		_, err = cached.Fetch(context.Background(), testQuery())
		require.Error(t, err)

		assert.Equal(t, 2, inner.calls)
	})

	t.Run("entries expire after the TTL", func(t *testing.T) {
		inner := &countingFetcher{detections: []domain.Detection{{ID: "fire-1"}}}
		cached := NewCachedFetcher(inner, 20*time.Millisecond, observability.NewMetricsForTesting())

		_, err := cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)

		time.Sleep(30 * time.Millisecond)

		_, err = cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("empty result sets are cached too", func(t *testing.T) {
		inner := &countingFetcher{detections: []domain.Detection{}}
		cached := NewCachedFetcher(inner, 300*time.Second, observability.NewMetricsForTesting())

		_, err := cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)
		_, err = cached.Fetch(context.Background(), testQuery())
		require.NoError(t, err)

		assert.Equal(t, 1, inner.calls)
	})
}

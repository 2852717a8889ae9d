package firms

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/observability"
)

// CachedFetcher wraps a Fetcher with a freshness-window cache so that
// repeated fetches with identical parameters within a session do not
// hit the provider again. Entries expire after the configured TTL.
type CachedFetcher struct {
	inner   Fetcher
	cache   *gocache.Cache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner Fetcher, ttl time.Duration, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

// Fetch returns the cached result for an identical query inside the
// freshness window, otherwise delegates to the inner fetcher. Failed
// fetches are not cached so the user can retry immediately.
func (c *CachedFetcher) Fetch(ctx context.Context, query domain.Query) ([]domain.Detection, error) {
	key := query.CacheKey()
	if cached, ok := c.cache.Get(key); ok {
		c.metrics.FetchCache.WithLabelValues("hit").Inc()
		return cloneDetections(cached.([]domain.Detection)), nil
	}
	c.metrics.FetchCache.WithLabelValues("miss").Inc()

	detections, err := c.inner.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, cloneDetections(detections), gocache.DefaultExpiration)
	return detections, nil
}

// cloneDetections copies the slice so callers that enrich results in
// place never write into the cached entry, which may still back a
// snapshot served to concurrent readers.
func cloneDetections(in []domain.Detection) []domain.Detection {
	out := make([]domain.Detection, len(in))
	copy(out, in)
	return out
}

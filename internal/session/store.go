// Package session holds the most recent fetch result for the duration
// of one interactive session. A new fetch fully replaces the previous
// set; there are no merge or append semantics.
package session

import (
	"sync"
	"time"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/observability"
)

// Snapshot is the immutable result of one fetch.
type Snapshot struct {
	Query      domain.Query
	Detections []domain.Detection
	FetchedAt  time.Time
}

// Stats summarizes the current detection set for table previews.
type Stats struct {
	Count    int     `json:"count"`
	High     int     `json:"high"`
	Medium   int     `json:"medium"`
	Low      int     `json:"low"`
	WithFRP  int     `json:"with_frp"`
	MeanFRP  float64 `json:"mean_frp"`
	MaxFRP   float64 `json:"max_frp"`
	MeanConf float64 `json:"mean_confidence"`
}

// Store guards the last fetch result. Single writer (the fetch
// handler), many readers; a mutex is all the coordination needed.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	metrics *observability.Metrics
}

// NewStore creates an empty session store.
func NewStore(metrics *observability.Metrics) *Store {
	return &Store{metrics: metrics}
}

// Replace installs a new fetch result, discarding the previous one.
func (s *Store) Replace(query domain.Query, detections []domain.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Snapshot{
		Query:      query,
		Detections: detections,
		FetchedAt:  domain.Clock().Now().UTC(),
	}
	s.metrics.DetectionsInMemory.Set(float64(len(detections)))
}

// Snapshot returns the current result, or false when nothing has been
// fetched yet.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return *s.current, true
}

// Detection looks up one detection by ID in the current set.
func (s *Store) Detection(id string) (domain.Detection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Detection{}, false
	}
	for _, d := range s.current.Detections {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Detection{}, false
}

// Len returns the size of the current detection set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return 0
	}
	return len(s.current.Detections)
}

// Stats computes summary statistics over the current set.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	if s.current == nil {
		return stats
	}

	var sumFRP, sumConf float64
	for _, d := range s.current.Detections {
		stats.Count++
		sumConf += d.Confidence
		switch d.Bucket {
		case domain.BucketHigh:
			stats.High++
		case domain.BucketMedium:
			stats.Medium++
		default:
			stats.Low++
		}
		if d.FRP.Valid {
			stats.WithFRP++
			sumFRP += d.FRP.Value
			if d.FRP.Value > stats.MaxFRP {
				stats.MaxFRP = d.FRP.Value
			}
		}
	}
	if stats.WithFRP > 0 {
		stats.MeanFRP = sumFRP / float64(stats.WithFRP)
	}
	if stats.Count > 0 {
		stats.MeanConf = sumConf / float64(stats.Count)
	}
	return stats
}

package store

import (
	"sync"
	"time"

	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

// forecastEntry holds the samples fetched for one airport.
type forecastEntry struct {
	Samples   []weather.Sample
	FetchedAt time.Time
}

// MemoryStore is a concurrency-safe in-memory forecast cache keyed by
// airport code.
type MemoryStore struct {
	mu sync.RWMutex

	// key: IATA code, value: last fetched forecast
	data map[string]forecastEntry

	// retention configuration
	maxAge     time.Duration // entries older than this are misses
	maxEntries int           // max number of cached airports (0 = unlimited)
}

// NewMemoryStore creates a new MemoryStore. maxAge must be positive for the
// cache to ever hit; if maxEntries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxAge time.Duration, maxEntries int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]forecastEntry),
		maxAge:     maxAge,
		maxEntries: maxEntries,
	}
}

// Save stores the samples for a key and enforces retention.
func (s *MemoryStore) Save(key string, samples []weather.Sample, now time.Time) {
	copied := make([]weather.Sample, len(samples))
	copy(copied, samples)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = forecastEntry{Samples: copied, FetchedAt: now}

	// Enforce retention by age.
	for k, e := range s.data {
		if s.expired(e, now) {
			delete(s.data, k)
		}
	}

	// Enforce retention by count, evicting the oldest fetches first.
	for s.maxEntries > 0 && len(s.data) > s.maxEntries {
		var (
			oldestKey string
			oldest    time.Time
		)
		for k, e := range s.data {
			if oldestKey == "" || e.FetchedAt.Before(oldest) {
				oldestKey, oldest = k, e.FetchedAt
			}
		}
		delete(s.data, oldestKey)
	}
}

// Get returns the cached samples for a key if they are still fresh.
func (s *MemoryStore) Get(key string, now time.Time) ([]weather.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || s.expired(e, now) {
		return nil, false
	}

	out := make([]weather.Sample, len(e.Samples))
	copy(out, e.Samples)
	return out, true
}

// Len returns the number of cached airports, fresh or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) expired(e forecastEntry, now time.Time) bool {
	return s.maxAge <= 0 || now.Sub(e.FetchedAt) >= s.maxAge
}

package toolspace

import (
	"context"
	"sync"
)

// MemoryUsageStore is a process-local UsageStore. A single mutex guards the
// whole map, which keeps increments atomic across concurrent executions.
type MemoryUsageStore struct {
	mu       sync.Mutex
	counters map[UsageKey]map[string]int64
}

// NewMemoryUsageStore creates an empty in-memory usage store.
func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{
		counters: make(map[UsageKey]map[string]int64),
	}
}

// Increment atomically adds delta to a counter.
func (s *MemoryUsageStore) Increment(_ context.Context, key UsageKey, metric string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics, ok := s.counters[key]
	if !ok {
		metrics = make(map[string]int64)
		s.counters[key] = metrics
	}

	metrics[metric] += delta

	return nil
}

// Read returns the current counter value; unknown counters read as zero.
func (s *MemoryUsageStore) Read(_ context.Context, key UsageKey, metric string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counters[key][metric], nil
}

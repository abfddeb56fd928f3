package cmd

import (
	"fmt"

	"github.com/thomasdavis/generous/pkg/toolspace"
)

// NewUsageStore selects the quota counter backend. With a Redis URL the
// counters are shared across processes; without one they live in memory and
// reset on restart.
func NewUsageStore(redisURL string) toolspace.UsageStore {
	if redisURL == "" {
		return toolspace.NewMemoryUsageStore()
	}

	store, err := toolspace.NewRedisUsageStoreFromURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to connect to Redis usage store: %w", err))
	}

	return store
}

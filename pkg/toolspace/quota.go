package toolspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/thomasdavis/generous/pkg/models"
)

// Usage metric names tracked per (user, toolspace) pair. Each maps to the
// quota limit of the same name in ToolspaceConfig.Quotas.
const (
	MetricTokens    = models.QuotaMaxTokens
	MetricCostCents = models.QuotaMaxCostCents
	MetricCalls     = models.QuotaMaxCalls
)

// ErrQuotaExceeded is wrapped by every quota denial.
var ErrQuotaExceeded = errors.New("quota exceeded")

// UsageKey identifies one usage counter scope.
type UsageKey struct {
	UserID      string
	ToolspaceID string
}

// UsageStore is the narrow interface behind which all counter mutation
// happens. Increments must be atomic per (key, metric) so concurrent
// executions by the same user never lose updates.
type UsageStore interface {
	Increment(ctx context.Context, key UsageKey, metric string, delta int64) error
	Read(ctx context.Context, key UsageKey, metric string) (int64, error)
}

// Tracker accounts cumulative usage against configured limits.
type Tracker struct {
	store UsageStore
}

// NewTracker creates a tracker over the given store.
func NewTracker(store UsageStore) *Tracker {
	return &Tracker{store: store}
}

// CheckQuota returns nil when every configured limit still has headroom,
// or an error naming the exhausted quota. It must be called, and must
// return nil, before a tool is invoked.
func (t *Tracker) CheckQuota(ctx context.Context, userID, toolspaceID string, quotas map[string]int64) error {
	key := UsageKey{UserID: userID, ToolspaceID: toolspaceID}

	for metric, limit := range quotas {
		if limit <= 0 {
			continue
		}

		used, err := t.store.Read(ctx, key, metric)
		if err != nil {
			return fmt.Errorf("failed to read usage for %s: %w", metric, err)
		}

		if used >= limit {
			return fmt.Errorf("%w: %s (used %d of %d)", ErrQuotaExceeded, metric, used, limit)
		}
	}

	return nil
}

// RecordUsage increments the usage counters after a completed invocation.
// Both successful and failed invocations consume quota, since external cost
// is typically incurred regardless of outcome.
func (t *Tracker) RecordUsage(ctx context.Context, userID, toolspaceID string, tokens, costCents int64) error {
	key := UsageKey{UserID: userID, ToolspaceID: toolspaceID}

	if err := t.store.Increment(ctx, key, MetricTokens, tokens); err != nil {
		return fmt.Errorf("failed to record token usage: %w", err)
	}

	if err := t.store.Increment(ctx, key, MetricCostCents, costCents); err != nil {
		return fmt.Errorf("failed to record cost usage: %w", err)
	}

	if err := t.store.Increment(ctx, key, MetricCalls, 1); err != nil {
		return fmt.Errorf("failed to record call count: %w", err)
	}

	return nil
}

// RemainingQuota returns limit minus cumulative usage per configured metric,
// floored at zero for display.
func (t *Tracker) RemainingQuota(ctx context.Context, userID, toolspaceID string, quotas map[string]int64) (map[string]int64, error) {
	key := UsageKey{UserID: userID, ToolspaceID: toolspaceID}
	remaining := make(map[string]int64, len(quotas))

	for metric, limit := range quotas {
		used, err := t.store.Read(ctx, key, metric)
		if err != nil {
			return nil, fmt.Errorf("failed to read usage for %s: %w", metric, err)
		}

		left := limit - used
		if left < 0 {
			left = 0
		}

		remaining[metric] = left
	}

	return remaining, nil
}

// IsQuotaExceeded checks whether an error is a quota denial that should
// return HTTP 429.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/thomasdavis/generous/pkg/eventbus"
	"github.com/thomasdavis/generous/pkg/events"
	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/toolspace"
)

// ToolExecutor is what the gate wraps: something that can invoke a tool and
// classify its operation. *tools.Registry satisfies it.
type ToolExecutor interface {
	Invoke(ctx context.Context, toolID string, params map[string]any) (map[string]any, error)
	OperationFor(toolID string) models.OperationType
}

// GatedExecutor enforces toolspace policy and quota around every tool
// invocation of one execution. The engine stays policy-free; the gate sits
// between it and the registry. A denied invocation surfaces as the node's
// failure, never as an aborted run.
type GatedExecutor struct {
	executor   ToolExecutor
	config     *models.ToolspaceConfig
	tracker    *toolspace.Tracker
	userID     string
	workflowID string
	eventBus   eventbus.EventBus
	logger     *slog.Logger
}

// NewGatedExecutor builds a gate scoped to one (user, toolspace) pair.
// eventBus may be nil; denial events are then dropped.
func NewGatedExecutor(
	executor ToolExecutor,
	config *models.ToolspaceConfig,
	tracker *toolspace.Tracker,
	userID string,
	workflowID string,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *GatedExecutor {
	return &GatedExecutor{
		executor:   executor,
		config:     config,
		tracker:    tracker,
		userID:     userID,
		workflowID: workflowID,
		eventBus:   eventBus,
		logger:     logger.With("module", "gated_executor", "toolspace_id", config.ID, "user_id", userID),
	}
}

// Invoke checks policy, then quota, then invokes the tool and records its
// usage. Failed invocations still consume quota.
func (g *GatedExecutor) Invoke(ctx context.Context, toolID string, params map[string]any) (map[string]any, error) {
	op := g.executor.OperationFor(toolID)

	if err := toolspace.ValidateToolExecution(toolID, g.config, op); err != nil {
		g.logger.WarnContext(ctx, "Tool invocation denied", "tool_id", toolID, "reason", err)
		g.publishToolDenied(ctx, toolID, err.Error())

		return nil, fmt.Errorf("%w: %v", ErrToolDenied, err)
	}

	if err := g.tracker.CheckQuota(ctx, g.userID, g.config.ID, g.config.Quotas); err != nil {
		if toolspace.IsQuotaExceeded(err) {
			g.logger.WarnContext(ctx, "Tool invocation over quota", "tool_id", toolID, "reason", err)
			g.publishQuotaExceeded(ctx, toolID, err.Error())
		}

		return nil, err
	}

	startedAt := time.Now()
	output, invokeErr := g.executor.Invoke(ctx, toolID, params)

	tokens := estimateTokens(params, output)
	costCents := toolspace.EstimateCost(toolID, time.Since(startedAt), tokens)

	if err := g.tracker.RecordUsage(ctx, g.userID, g.config.ID, tokens, costCents); err != nil {
		// Usage recording must not change the invocation outcome.
		g.logger.ErrorContext(ctx, "Failed to record usage", "tool_id", toolID, "error", err)
	}

	return output, invokeErr
}

func (g *GatedExecutor) publishToolDenied(ctx context.Context, toolID, reason string) {
	if g.eventBus == nil {
		return
	}

	event := events.ToolDenied{
		BaseEvent:   events.NewBaseEvent(events.ToolDeniedEvent, g.workflowID),
		ToolspaceID: g.config.ID,
		UserID:      g.userID,
		ToolID:      toolID,
		Reason:      reason,
	}

	if err := g.eventBus.Publish(ctx, g.workflowID, event); err != nil {
		g.logger.ErrorContext(ctx, "Failed to publish tool denied event", "error", err)
	}
}

func (g *GatedExecutor) publishQuotaExceeded(ctx context.Context, toolID, reason string) {
	if g.eventBus == nil {
		return
	}

	event := events.QuotaExceeded{
		BaseEvent:   events.NewBaseEvent(events.QuotaExceededEvent, g.workflowID),
		ToolspaceID: g.config.ID,
		UserID:      g.userID,
		ToolID:      toolID,
		Metric:      reason,
	}

	if err := g.eventBus.Publish(ctx, g.workflowID, event); err != nil {
		g.logger.ErrorContext(ctx, "Failed to publish quota exceeded event", "error", err)
	}
}

// estimateTokens approximates the token count of an invocation from the
// serialized size of its parameters and output, at four bytes per token.
func estimateTokens(params, output map[string]any) int64 {
	size := 0

	if raw, err := json.Marshal(params); err == nil {
		size += len(raw)
	}

	if raw, err := json.Marshal(output); err == nil {
		size += len(raw)
	}

	return int64(size / 4)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/thomasdavis/generous/pkg/eventbus"
	"github.com/thomasdavis/generous/pkg/events"
	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
	"github.com/thomasdavis/generous/pkg/toolspace"
	"github.com/thomasdavis/generous/pkg/workflow"
)

// ErrExecutionNotFound is returned when an execution record is not found.
var ErrExecutionNotFound = persistence.ErrExecutionNotFound

// Execution orchestrates workflow runs: it loads the definition, wraps the
// registry in the toolspace gate, drives the engine, and owns the execution
// record lifecycle (pending, running, terminal).
type Execution struct {
	persistence persistence.Persistence
	executor    ToolExecutor
	tracker     *toolspace.Tracker
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewExecution creates the execution service. eventBus and tracer may be nil.
func NewExecution(
	persistence persistence.Persistence,
	executor ToolExecutor,
	tracker *toolspace.Tracker,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Execution {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("execution")
	}

	return &Execution{
		persistence: persistence,
		executor:    executor,
		tracker:     tracker,
		eventBus:    eventBus,
		tracer:      tracer,
		logger:      logger.With("module", "execution_service"),
	}
}

// Execute runs one workflow synchronously and returns its terminal record.
//
// The definition is loaded fresh, so edits made after this point never
// affect the run. A disabled workflow and a caller other than the owner are
// both rejected before any record is written. When the toolspace quota is
// already exhausted the run is refused with a quota error rather than
// started with every node failing.
func (s *Execution) Execute(ctx context.Context, workflowID string, trigger models.Trigger) (*models.Execution, error) {
	definition, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !definition.Enabled {
		return nil, ErrWorkflowDisabled
	}

	if trigger.UserID != "" && trigger.UserID != definition.OwnerID {
		return nil, ErrNotOwner
	}

	userID := trigger.UserID
	if userID == "" {
		userID = definition.OwnerID
	}

	trigger.UserID = userID

	executor, err := s.buildExecutor(ctx, definition, userID)
	if err != nil {
		return nil, err
	}

	var execution *models.Execution

	hooks := workflow.Hooks{
		OnExecutionStarted: func(ctx context.Context, executionCtx *models.ExecutionContext) {
			execution = s.createRecord(ctx, definition, executionCtx, trigger)
		},
		OnNodeFinished: func(ctx context.Context, executionCtx *models.ExecutionContext, result *models.NodeResult) {
			s.publishNodeFinished(ctx, definition, executionCtx, result)
		},
	}

	engine := workflow.NewEngine(definition, executor, s.logger,
		workflow.WithTracer(s.tracer),
		workflow.WithHooks(hooks),
	)

	startedAt := time.Now().UTC()
	result := engine.Execute(ctx, trigger)

	execution.Status = result.Status
	execution.NodeResults = result.NodeResults
	execution.Error = result.Error
	execution.CompletedAt = &result.CompletedAt

	s.publishTerminal(ctx, definition, execution, time.Since(startedAt))

	if err := s.persistence.ExecutionRepository().Update(ctx, execution); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist terminal execution record",
			"execution_id", execution.ID, "error", err)

		// The result still exists in memory; hand it back with the error so
		// the caller can surface both.
		return execution, fmt.Errorf("%w: %v", ErrRecordNotPersisted, err)
	}

	return execution, nil
}

// FetchExecution retrieves an execution record by its ID.
func (s *Execution) FetchExecution(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return execution, nil
}

// ListByWorkflow retrieves the execution records of one workflow, newest
// first. The workflow must exist.
func (s *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	if _, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID); err != nil {
		return nil, err
	}

	executions, err := s.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// RecoverStale fails execution records that never reached a terminal status
// within the cutoff. Run at service start, before accepting new work.
func (s *Execution) RecoverStale(ctx context.Context, cutoff time.Duration) (int, error) {
	recovered, err := s.persistence.ExecutionRepository().RecoverStale(ctx, cutoff)
	if err != nil {
		return recovered, fmt.Errorf("failed to recover stale executions: %w", err)
	}

	if recovered > 0 {
		s.logger.InfoContext(ctx, "Recovered stale executions", "count", recovered)
	}

	return recovered, nil
}

// buildExecutor wraps the registry in the toolspace gate when the workflow
// is bound to a toolspace. Exhausted quota refuses the run up front.
func (s *Execution) buildExecutor(ctx context.Context, definition *models.WorkflowDefinition, userID string) (workflow.Executor, error) {
	if definition.ToolspaceID == "" {
		return s.executor, nil
	}

	config, err := s.persistence.ToolspaceRepository().GetByID(ctx, definition.ToolspaceID)
	if err != nil {
		return nil, err
	}

	if err := s.tracker.CheckQuota(ctx, userID, config.ID, config.Quotas); err != nil {
		return nil, err
	}

	return NewGatedExecutor(s.executor, config, s.tracker, userID, definition.ID, s.eventBus, s.logger), nil
}

func (s *Execution) createRecord(ctx context.Context, definition *models.WorkflowDefinition, executionCtx *models.ExecutionContext, trigger models.Trigger) *models.Execution {
	now := time.Now().UTC()
	execution := &models.Execution{
		ID:          executionCtx.ID,
		WorkflowID:  definition.ID,
		Status:      models.ExecutionStatusPending,
		TriggerType: trigger.Type,
		TriggeredBy: trigger.UserID,
		Variables:   executionCtx.Variables,
		CreatedAt:   now,
	}

	if err := s.persistence.ExecutionRepository().Create(ctx, execution); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create execution record",
			"execution_id", execution.ID, "error", err)
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now

	if err := s.persistence.ExecutionRepository().Update(ctx, execution); err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark execution running",
			"execution_id", execution.ID, "error", err)
	}

	s.publish(ctx, definition.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, definition.ID),
		ExecutionID: execution.ID,
		TriggerType: trigger.Type,
	})

	return execution
}

func (s *Execution) publishNodeFinished(ctx context.Context, definition *models.WorkflowDefinition, executionCtx *models.ExecutionContext, result *models.NodeResult) {
	toolID := ""
	if node := definition.NodeByID(result.NodeID); node != nil {
		toolID = node.ToolID
	}

	s.publish(ctx, definition.ID, events.NodeFinished{
		BaseEvent:   events.NewBaseEvent(events.NodeFinishedEvent, definition.ID),
		ExecutionID: executionCtx.ID,
		NodeID:      result.NodeID,
		ToolID:      toolID,
		Status:      result.Status,
		Error:       result.Error,
	})
}

func (s *Execution) publishTerminal(ctx context.Context, definition *models.WorkflowDefinition, execution *models.Execution, duration time.Duration) {
	if execution.Status == models.ExecutionStatusCompleted {
		s.publish(ctx, definition.ID, events.ExecutionCompleted{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, definition.ID),
			ExecutionID: execution.ID,
			Duration:    duration,
		})

		return
	}

	s.publish(ctx, definition.ID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, definition.ID),
		ExecutionID: execution.ID,
		Error:       execution.Error,
		Duration:    duration,
	})
}

func (s *Execution) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

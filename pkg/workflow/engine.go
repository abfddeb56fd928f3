// Package workflow implements the graph execution engine: a worklist
// topological walk over a workflow definition, invoking one tool per node
// through an injected executor.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/otelhelper"
)

// CyclicGraphError is the top-level error reported when the walk can make
// no progress while nodes remain.
const CyclicGraphError = "cyclic graph"

// Executor invokes a named tool with resolved parameters. The engine
// performs no policy logic itself: permission and quota enforcement belong
// to the executor injected into it, or to the caller.
type Executor interface {
	Invoke(ctx context.Context, toolID string, params map[string]any) (map[string]any, error)
}

// Hooks receive execution transition events. The surrounding application
// turns them into record-store writes and event-bus publications. Nil
// callbacks are skipped.
type Hooks struct {
	OnExecutionStarted func(ctx context.Context, executionCtx *models.ExecutionContext)
	OnNodeFinished     func(ctx context.Context, executionCtx *models.ExecutionContext, result *models.NodeResult)
}

// Engine executes one workflow definition. The definition is never mutated;
// a fresh ExecutionContext is built per Execute call, so an Engine is safe
// to reuse across runs of the same definition.
type Engine struct {
	definition *models.WorkflowDefinition
	executor   Executor
	logger     *slog.Logger
	tracer     trace.Tracer
	hooks      Hooks
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer attaches an OpenTelemetry tracer; executions and nodes get one
// span each.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithHooks attaches transition callbacks.
func WithHooks(hooks Hooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// NewEngine creates an engine for one definition with an injected tool
// executor.
func NewEngine(definition *models.WorkflowDefinition, executor Executor, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		definition: definition,
		executor:   executor,
		logger:     logger.With("module", "workflow_engine", "workflow_id", definition.ID),
		tracer:     noop.NewTracerProvider().Tracer("workflow"),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Execute walks the graph in topological order, node by node, and returns
// the terminal result. Failures are captured in the result, never returned
// as a Go error: a single node's failure must not abort independent
// branches.
func (e *Engine) Execute(ctx context.Context, trigger models.Trigger) *models.ExecutionResult {
	executionCtx := &models.ExecutionContext{
		ID:          "exec-" + uuid.New().String()[:8],
		WorkflowID:  e.definition.ID,
		Trigger:     trigger,
		Variables:   MergeVariables(e.definition.Variables, trigger.Variables),
		NodeResults: make(map[string]*models.NodeResult),
		Metadata:    make(map[string]any),
	}

	logger := e.logger.With("execution_id", executionCtx.ID, "trigger_type", trigger.Type)
	logger.InfoContext(ctx, "Starting workflow execution", "nodes", len(e.definition.Nodes))

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, e.definition.ID),
		attribute.String(otelhelper.ExecutionIDKey, executionCtx.ID),
		attribute.String(otelhelper.TriggerTypeKey, string(trigger.Type)),
	)
	defer span.End()

	if e.hooks.OnExecutionStarted != nil {
		e.hooks.OnExecutionStarted(ctx, executionCtx)
	}

	result := e.walk(ctx, logger, executionCtx)

	span.SetAttributes(attribute.String("workflow.execution.status", string(result.Status)))
	logger.InfoContext(ctx, "Workflow execution finished", "status", result.Status, "error", result.Error)

	return result
}

// walk runs the worklist algorithm: a node becomes ready once every node
// with an edge into it has reached a terminal state; ties break by
// declaration order. The walk is strictly sequential, so results are
// deterministic and never concurrently written.
func (e *Engine) walk(ctx context.Context, logger *slog.Logger, executionCtx *models.ExecutionContext) *models.ExecutionResult {
	parents := make(map[string][]string, len(e.definition.Nodes))
	for _, edge := range e.definition.Edges {
		parents[edge.To] = append(parents[edge.To], edge.From)
	}

	done := make(map[string]bool, len(e.definition.Nodes))
	remaining := len(e.definition.Nodes)
	cyclic := false

	for remaining > 0 && !cyclic {
		progressed := false

		for _, node := range e.definition.Nodes {
			if done[node.ID] || !ready(parents[node.ID], done) {
				continue
			}

			result := e.executeNode(ctx, logger, executionCtx, node, parents[node.ID])
			executionCtx.NodeResults[node.ID] = result
			done[node.ID] = true
			remaining--
			progressed = true

			if e.hooks.OnNodeFinished != nil {
				e.hooks.OnNodeFinished(ctx, executionCtx, result)
			}
		}

		// No node became ready in a full pass: the rest form a cycle.
		cyclic = !progressed
	}

	result := &models.ExecutionResult{
		Status:      models.ExecutionStatusCompleted,
		NodeResults: executionCtx.NodeResults,
		CompletedAt: time.Now().UTC(),
	}

	if cyclic {
		result.Status = models.ExecutionStatusFailed
		result.Error = CyclicGraphError

		return result
	}

	for _, nodeResult := range executionCtx.NodeResults {
		if nodeResult.Status == models.NodeStatusFailed {
			result.Status = models.ExecutionStatusFailed

			break
		}
	}

	return result
}

func ready(parents []string, done map[string]bool) bool {
	for _, parent := range parents {
		if !done[parent] {
			return false
		}
	}

	return true
}

// executeNode produces exactly one NodeResult. A non-success parent skips
// the node; an unresolvable input fails it; otherwise the tool is invoked
// and its outcome recorded. The run continues in every case.
func (e *Engine) executeNode(ctx context.Context, logger *slog.Logger, executionCtx *models.ExecutionContext, node *models.ToolNode, parentIDs []string) *models.NodeResult {
	result := &models.NodeResult{
		NodeID:    node.ID,
		StartedAt: time.Now().UTC(),
	}

	logger = logger.With("node_id", node.ID, "tool_id", node.ToolID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.ToolIDKey, node.ToolID),
	)
	defer span.End()

	for _, parentID := range parentIDs {
		parent := executionCtx.NodeResults[parentID]
		if parent != nil && parent.Status != models.NodeStatusSuccess {
			result.Status = models.NodeStatusSkipped
			result.Error = fmt.Sprintf("dependency %s finished with status %s", parentID, parent.Status)
			result.CompletedAt = time.Now().UTC()

			logger.InfoContext(ctx, "Skipping node", "reason", result.Error)

			return result
		}
	}

	params, err := ResolveInputs(node, executionCtx)
	if err != nil {
		result.CompletedAt = time.Now().UTC()
		result.Error = err.Error()

		// A reference to a dependency that did not succeed skips the node;
		// a dangling reference is the node's own failure.
		if isDependencyNotSucceeded(err) {
			result.Status = models.NodeStatusSkipped
			logger.InfoContext(ctx, "Skipping node", "reason", result.Error)
		} else {
			result.Status = models.NodeStatusFailed
			logger.ErrorContext(ctx, "Failed to resolve node inputs", "error", err)
			otelhelper.RecordError(span, err)
		}

		return result
	}

	logger.InfoContext(ctx, "Invoking tool")

	output, err := e.executor.Invoke(ctx, node.ToolID, params)
	result.CompletedAt = time.Now().UTC()

	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Error = err.Error()

		logger.ErrorContext(ctx, "Tool invocation failed", "error", err)
		otelhelper.RecordError(span, err)

		return result
	}

	result.Status = models.NodeStatusSuccess
	result.Output = output

	logger.InfoContext(ctx, "Node finished", "duration_ms", result.CompletedAt.Sub(result.StartedAt).Milliseconds())

	return result
}

func isDependencyNotSucceeded(err error) bool {
	return errors.Is(err, ErrDependencyNotSucceeded)
}

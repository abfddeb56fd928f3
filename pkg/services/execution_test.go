package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
	"github.com/thomasdavis/generous/pkg/persistence/file"
	"github.com/thomasdavis/generous/pkg/toolspace"
)

type executionFixture struct {
	persistence persistence.Persistence
	executor    *fakeToolExecutor
	tracker     *toolspace.Tracker
	service     *Execution
}

func newExecutionFixture(t *testing.T) *executionFixture {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	executor := &fakeToolExecutor{}
	tracker := toolspace.NewTracker(toolspace.NewMemoryUsageStore())

	return &executionFixture{
		persistence: p,
		executor:    executor,
		tracker:     tracker,
		service:     NewExecution(p, executor, tracker, nil, nil, testLogger()),
	}
}

func (f *executionFixture) saveWorkflow(t *testing.T, definition *models.WorkflowDefinition) {
	t.Helper()
	require.NoError(t, f.persistence.WorkflowRepository().Save(context.Background(), definition))
}

func (f *executionFixture) saveToolspace(t *testing.T, config *models.ToolspaceConfig) {
	t.Helper()
	require.NoError(t, f.persistence.ToolspaceRepository().Save(context.Background(), config))
}

func chainWorkflow() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:      "wf-1",
		Name:    "two step chain",
		OwnerID: "user-1",
		Enabled: true,
		Nodes: []*models.ToolNode{
			{ID: "first", ToolID: "log", Inputs: map[string]models.NodeInput{
				"message": models.LiteralInput("hello"),
			}},
			{ID: "second", ToolID: "log", Inputs: map[string]models.NodeInput{
				"message": models.NodeOutputInput("first", "ok"),
			}},
		},
		Edges: []*models.WorkflowEdge{{From: "first", To: "second"}},
	}
}

func TestExecution_ExecuteLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newExecutionFixture(t)
	f.saveWorkflow(t, chainWorkflow())

	execution, err := f.service.Execute(ctx, "wf-1", models.Trigger{Type: models.TriggerTypeManual, UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"log", "log"}, f.executor.invocations)
	assert.Equal(t, "user-1", execution.TriggeredBy)
	require.NotNil(t, execution.StartedAt)
	require.NotNil(t, execution.CompletedAt)

	// The terminal record must match what was returned.
	stored, err := f.service.FetchExecution(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Len(t, stored.NodeResults, 2)
}

func TestExecution_DisabledWorkflow(t *testing.T) {
	f := newExecutionFixture(t)
	definition := chainWorkflow()
	definition.Enabled = false
	f.saveWorkflow(t, definition)

	_, err := f.service.Execute(context.Background(), "wf-1", models.Trigger{Type: models.TriggerTypeManual})
	assert.ErrorIs(t, err, ErrWorkflowDisabled)
	assert.Empty(t, f.executor.invocations)
}

func TestExecution_RejectsNonOwner(t *testing.T) {
	f := newExecutionFixture(t)
	f.saveWorkflow(t, chainWorkflow())

	_, err := f.service.Execute(context.Background(), "wf-1", models.Trigger{Type: models.TriggerTypeManual, UserID: "intruder"})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestExecution_UnknownWorkflow(t *testing.T) {
	f := newExecutionFixture(t)

	_, err := f.service.Execute(context.Background(), "missing", models.Trigger{Type: models.TriggerTypeManual})
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecution_GateDenialFailsNodeNotRun(t *testing.T) {
	ctx := context.Background()
	f := newExecutionFixture(t)

	f.saveToolspace(t, &models.ToolspaceConfig{
		ID:    "ts-1",
		Name:  "logging only",
		Tools: []string{"log"},
	})

	definition := &models.WorkflowDefinition{
		ID:          "wf-1",
		Name:        "blocked tool",
		OwnerID:     "user-1",
		ToolspaceID: "ts-1",
		Enabled:     true,
		Nodes: []*models.ToolNode{
			{ID: "bad", ToolID: "deleteUser", Inputs: map[string]models.NodeInput{}},
		},
	}
	f.saveWorkflow(t, definition)

	execution, err := f.service.Execute(ctx, "wf-1", models.Trigger{Type: models.TriggerTypeManual})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	require.Contains(t, execution.NodeResults, "bad")
	assert.Equal(t, models.NodeStatusFailed, execution.NodeResults["bad"].Status)
	assert.Contains(t, execution.NodeResults["bad"].Error, "not allowed")
	assert.Empty(t, f.executor.invocations)
}

func TestExecution_RefusesExhaustedQuotaUpFront(t *testing.T) {
	ctx := context.Background()
	f := newExecutionFixture(t)

	f.saveToolspace(t, &models.ToolspaceConfig{
		ID:     "ts-1",
		Name:   "one call",
		Quotas: map[string]int64{models.QuotaMaxCalls: 1},
	})

	definition := chainWorkflow()
	definition.ToolspaceID = "ts-1"
	f.saveWorkflow(t, definition)

	require.NoError(t, f.tracker.RecordUsage(ctx, "user-1", "ts-1", 0, 0))

	_, err := f.service.Execute(ctx, "wf-1", models.Trigger{Type: models.TriggerTypeManual, UserID: "user-1"})
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
	assert.Empty(t, f.executor.invocations)
}

func TestExecution_ListByWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newExecutionFixture(t)
	f.saveWorkflow(t, chainWorkflow())

	_, err := f.service.Execute(ctx, "wf-1", models.Trigger{Type: models.TriggerTypeManual})
	require.NoError(t, err)

	executions, err := f.service.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, executions, 1)

	_, err = f.service.ListByWorkflow(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecution_RecoverStale(t *testing.T) {
	ctx := context.Background()
	f := newExecutionFixture(t)

	require.NoError(t, f.persistence.ExecutionRepository().Create(ctx, &models.Execution{
		ID:         "stuck",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusRunning,
		CreatedAt:  time.Now().UTC().Add(-2 * time.Hour),
	}))

	recovered, err := f.service.RecoverStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	stored, err := f.service.FetchExecution(ctx, "stuck")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
}

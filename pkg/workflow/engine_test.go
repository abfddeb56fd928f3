package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdavis/generous/pkg/models"
)

// fakeExecutor records invocations and returns canned results per tool id.
type fakeExecutor struct {
	invocations []string
	fail        map[string]error
	outputs     map[string]map[string]any
}

func (f *fakeExecutor) Invoke(_ context.Context, toolID string, params map[string]any) (map[string]any, error) {
	f.invocations = append(f.invocations, toolID)

	if err, ok := f.fail[toolID]; ok {
		return nil, err
	}

	if output, ok := f.outputs[toolID]; ok {
		return output, nil
	}

	return map[string]any{"params": params}, nil
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func linearDefinition() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:   "wf-1",
		Name: "linear",
		Nodes: []*models.ToolNode{
			{ID: "a", ToolID: "tool-a"},
			{ID: "b", ToolID: "tool-b", Inputs: map[string]models.NodeInput{
				"upstream": models.NodeOutputInput("a", ""),
			}},
			{ID: "c", ToolID: "tool-c"},
		},
		Edges: []*models.WorkflowEdge{
			{From: "a", To: "b"},
		},
	}
}

func TestEngine_Execute_AllSucceed(t *testing.T) {
	executor := &fakeExecutor{}
	engine := NewEngine(linearDefinition(), executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusCompleted, result.Status)
	require.Len(t, result.NodeResults, 3)

	for _, nodeResult := range result.NodeResults {
		assert.Equal(t, models.NodeStatusSuccess, nodeResult.Status)
	}

	assert.False(t, result.CompletedAt.IsZero())
}

func TestEngine_Execute_TopologicalOrder(t *testing.T) {
	definition := &models.WorkflowDefinition{
		ID: "wf-order",
		Nodes: []*models.ToolNode{
			{ID: "last", ToolID: "tool-last"},
			{ID: "first", ToolID: "tool-first"},
			{ID: "middle", ToolID: "tool-middle"},
		},
		Edges: []*models.WorkflowEdge{
			{From: "first", To: "middle"},
			{From: "middle", To: "last"},
		},
	}

	executor := &fakeExecutor{}
	engine := NewEngine(definition, executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, []string{"tool-first", "tool-middle", "tool-last"}, executor.invocations)
}

func TestEngine_Execute_FailedDependencySkipsDownstream(t *testing.T) {
	definition := &models.WorkflowDefinition{
		ID: "wf-branch",
		Nodes: []*models.ToolNode{
			{ID: "a", ToolID: "tool-a"},
			{ID: "b", ToolID: "tool-b"},
			{ID: "c", ToolID: "tool-c"},
		},
		Edges: []*models.WorkflowEdge{
			{From: "a", To: "b"},
		},
	}

	executor := &fakeExecutor{fail: map[string]error{"tool-a": errors.New("upstream boom")}}
	engine := NewEngine(definition, executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusFailed, result.Status)

	assert.Equal(t, models.NodeStatusFailed, result.NodeResults["a"].Status)
	assert.Equal(t, models.NodeStatusSkipped, result.NodeResults["b"].Status)
	assert.Contains(t, result.NodeResults["b"].Error, "a")

	// The independent branch still runs.
	assert.Equal(t, models.NodeStatusSuccess, result.NodeResults["c"].Status)
	assert.Contains(t, executor.invocations, "tool-c")
	assert.NotContains(t, executor.invocations, "tool-b")
}

func TestEngine_Execute_SkipCascadesTransitively(t *testing.T) {
	definition := &models.WorkflowDefinition{
		ID: "wf-cascade",
		Nodes: []*models.ToolNode{
			{ID: "a", ToolID: "tool-a"},
			{ID: "b", ToolID: "tool-b"},
			{ID: "c", ToolID: "tool-c"},
		},
		Edges: []*models.WorkflowEdge{
			{From: "a", To: "b"},
			{From: "b", To: "c"},
		},
	}

	executor := &fakeExecutor{fail: map[string]error{"tool-a": errors.New("boom")}}
	engine := NewEngine(definition, executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusFailed, result.Status)
	assert.Equal(t, models.NodeStatusSkipped, result.NodeResults["b"].Status)
	assert.Equal(t, models.NodeStatusSkipped, result.NodeResults["c"].Status)
	assert.Equal(t, []string{"tool-a"}, executor.invocations)
}

func TestEngine_Execute_EmptyGraphCompletes(t *testing.T) {
	definition := &models.WorkflowDefinition{ID: "wf-empty", Name: "empty"}
	executor := &fakeExecutor{}
	engine := NewEngine(definition, executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Empty(t, result.NodeResults)
	assert.Empty(t, executor.invocations)
}

func TestEngine_Execute_CyclicGraph(t *testing.T) {
	definition := &models.WorkflowDefinition{
		ID: "wf-cycle",
		Nodes: []*models.ToolNode{
			{ID: "a", ToolID: "tool-a"},
			{ID: "b", ToolID: "tool-b"},
		},
		Edges: []*models.WorkflowEdge{
			{From: "a", To: "b"},
			{From: "b", To: "a"},
		},
	}

	executor := &fakeExecutor{}
	engine := NewEngine(definition, executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusFailed, result.Status)
	assert.Equal(t, CyclicGraphError, result.Error)
	assert.Empty(t, executor.invocations)
}

func TestEngine_Execute_PartialCycleRunsAcyclicPrefix(t *testing.T) {
	definition := &models.WorkflowDefinition{
		ID: "wf-partial-cycle",
		Nodes: []*models.ToolNode{
			{ID: "ok", ToolID: "tool-ok"},
			{ID: "x", ToolID: "tool-x"},
			{ID: "y", ToolID: "tool-y"},
		},
		Edges: []*models.WorkflowEdge{
			{From: "x", To: "y"},
			{From: "y", To: "x"},
		},
	}

	executor := &fakeExecutor{}
	engine := NewEngine(definition, executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusFailed, result.Status)
	assert.Equal(t, CyclicGraphError, result.Error)
	assert.Equal(t, []string{"tool-ok"}, executor.invocations)
	assert.Len(t, result.NodeResults, 1)
}

func TestEngine_Execute_UnknownVariableFailsNodeOnly(t *testing.T) {
	definition := &models.WorkflowDefinition{
		ID: "wf-unknown-var",
		Nodes: []*models.ToolNode{
			{ID: "bad", ToolID: "tool-bad", Inputs: map[string]models.NodeInput{
				"value": models.VariableInput("nope"),
			}},
			{ID: "good", ToolID: "tool-good"},
		},
	}

	executor := &fakeExecutor{}
	engine := NewEngine(definition, executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusFailed, result.Status)
	assert.Equal(t, models.NodeStatusFailed, result.NodeResults["bad"].Status)
	assert.Equal(t, models.NodeStatusSuccess, result.NodeResults["good"].Status)
	assert.Equal(t, []string{"tool-good"}, executor.invocations)
}

func TestEngine_Execute_MergesTriggerVariables(t *testing.T) {
	definition := &models.WorkflowDefinition{
		ID: "wf-vars",
		Nodes: []*models.ToolNode{
			{ID: "n", ToolID: "echo", Inputs: map[string]models.NodeInput{
				"city":  models.VariableInput("city"),
				"extra": models.VariableInput("extra"),
			}},
		},
		Variables: []*models.WorkflowVariable{
			{Name: "city", Type: models.VariableTypeString, Default: "Berlin"},
		},
	}

	executor := &fakeExecutor{}
	engine := NewEngine(definition, executor, testLogger())

	result := engine.Execute(context.Background(), models.Trigger{
		Type:      models.TriggerTypeManual,
		Variables: map[string]any{"city": "Lisbon", "extra": 1},
	})

	require.Equal(t, models.ExecutionStatusCompleted, result.Status)

	params, _ := result.NodeResults["n"].Output["params"].(map[string]any)
	require.NotNil(t, params)
	assert.Equal(t, "Lisbon", params["city"])
	assert.Equal(t, 1, params["extra"])
}

func TestEngine_Execute_Deterministic(t *testing.T) {
	// Serialize, deserialize, and re-execute: with a deterministic executor
	// the node results must be identical.
	original := linearDefinition()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored models.WorkflowDefinition

	require.NoError(t, json.Unmarshal(data, &restored))

	outputs := map[string]map[string]any{
		"tool-a": {"value": "one"},
		"tool-b": {"value": "two"},
		"tool-c": {"value": "three"},
	}

	first := NewEngine(original, &fakeExecutor{outputs: outputs}, testLogger()).
		Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})
	second := NewEngine(&restored, &fakeExecutor{outputs: outputs}, testLogger()).
		Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, first.Status, second.Status)
	require.Len(t, second.NodeResults, len(first.NodeResults))

	for nodeID, firstResult := range first.NodeResults {
		secondResult := second.NodeResults[nodeID]
		require.NotNil(t, secondResult, "missing result for %s", nodeID)
		assert.Equal(t, firstResult.Status, secondResult.Status)
		assert.Equal(t, firstResult.Output, secondResult.Output)
		assert.Equal(t, firstResult.Error, secondResult.Error)
	}
}

func TestEngine_Execute_HooksFire(t *testing.T) {
	var started int

	var finished []string

	hooks := Hooks{
		OnExecutionStarted: func(_ context.Context, _ *models.ExecutionContext) {
			started++
		},
		OnNodeFinished: func(_ context.Context, _ *models.ExecutionContext, result *models.NodeResult) {
			finished = append(finished, fmt.Sprintf("%s:%s", result.NodeID, result.Status))
		},
	}

	engine := NewEngine(linearDefinition(), &fakeExecutor{}, testLogger(), WithHooks(hooks))
	result := engine.Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	require.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, 1, started)
	assert.Len(t, finished, 3)
}

func TestEngine_Execute_DoesNotMutateDefinition(t *testing.T) {
	definition := linearDefinition()

	before, err := json.Marshal(definition)
	require.NoError(t, err)

	NewEngine(definition, &fakeExecutor{}, testLogger()).
		Execute(context.Background(), models.Trigger{Type: models.TriggerTypeManual})

	after, err := json.Marshal(definition)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

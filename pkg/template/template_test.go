package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdavis/generous/pkg/models"
)

func TestRender_PlainString(t *testing.T) {
	result, err := Render("hello {{.name}}", map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestRender_CoercesNumber(t *testing.T) {
	result, err := Render("{{.count}}", map[string]any{"count": 42})
	require.NoError(t, err)
	assert.Equal(t, float64(42), result)
}

func TestRender_CoercesBoolean(t *testing.T) {
	result, err := Render("true", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestRender_CoercesJSON(t *testing.T) {
	result, err := Render(`{"city":"{{.city}}"}`, map[string]any{"city": "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Berlin"}, result)
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, err := Render("{{.broken", nil)
	require.Error(t, err)
}

func TestRenderWithContext(t *testing.T) {
	executionCtx := &models.ExecutionContext{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Variables:  map[string]any{"city": "Berlin"},
		Trigger:    models.Trigger{Variables: map[string]any{"source": "cron"}},
		NodeResults: map[string]*models.NodeResult{
			"fetch": {
				NodeID: "fetch",
				Status: models.NodeStatusSuccess,
				Output: map[string]any{"temperature": "21C"},
			},
			"broken": {
				NodeID: "broken",
				Status: models.NodeStatusFailed,
			},
		},
	}

	result, err := RenderWithContext("{{.variables.city}}: {{.nodes.fetch.temperature}}", executionCtx)
	require.NoError(t, err)
	assert.Equal(t, "Berlin: 21C", result)

	result, err = RenderWithContext("via {{.trigger.source}}", executionCtx)
	require.NoError(t, err)
	assert.Equal(t, "via cron", result)

	// Failed node outputs are not exposed to templates.
	result, err = RenderWithContext("{{.nodes.broken}}", executionCtx)
	require.NoError(t, err)
	assert.Equal(t, "<no value>", result)
}

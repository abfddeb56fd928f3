package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStructure_Valid(t *testing.T) {
	def := &WorkflowDefinition{
		ID:   "wf-1",
		Name: "fetch and notify",
		Nodes: []*ToolNode{
			{ID: "fetch", ToolID: "httprequest"},
			{ID: "notify", ToolID: "log"},
		},
		Edges: []*WorkflowEdge{{From: "fetch", To: "notify"}},
		Variables: []*WorkflowVariable{
			{Name: "city", Type: VariableTypeString, Default: "Berlin"},
			{Name: "retries", Type: VariableTypeNumber, Default: float64(3)},
		},
	}

	require.NoError(t, def.ValidateStructure())
}

func TestValidateStructure_DuplicateNodeID(t *testing.T) {
	def := &WorkflowDefinition{
		Nodes: []*ToolNode{
			{ID: "a", ToolID: "log"},
			{ID: "a", ToolID: "log"},
		},
	}

	err := def.ValidateStructure()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateNodeID)
}

func TestValidateStructure_DanglingEdge(t *testing.T) {
	def := &WorkflowDefinition{
		Nodes: []*ToolNode{{ID: "a", ToolID: "log"}},
		Edges: []*WorkflowEdge{{From: "a", To: "ghost"}},
	}

	err := def.ValidateStructure()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingEdge)
}

func TestValidateStructure_DefaultTypeMismatch(t *testing.T) {
	def := &WorkflowDefinition{
		Variables: []*WorkflowVariable{
			{Name: "count", Type: VariableTypeNumber, Default: "three"},
		},
	}

	err := def.ValidateStructure()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDefault)
}

func TestValidateStructure_NullDefaultRejected(t *testing.T) {
	def := &WorkflowDefinition{
		Variables: []*WorkflowVariable{
			{Name: "payload", Type: VariableTypeObject, Default: nil},
		},
	}

	assert.ErrorIs(t, def.ValidateStructure(), ErrInvalidDefault)
}

func TestNodeInput_UnmarshalJSON(t *testing.T) {
	var input NodeInput

	err := json.Unmarshal([]byte(`{"type":"variable","name":"city"}`), &input)
	require.NoError(t, err)
	assert.Equal(t, InputKindVariable, input.Kind)
	assert.Equal(t, "city", input.Name)

	err = json.Unmarshal([]byte(`{"type":"node","node":"fetch","field":"body"}`), &input)
	require.NoError(t, err)
	assert.Equal(t, InputKindNode, input.Kind)
	assert.Equal(t, "fetch", input.Node)
	assert.Equal(t, "body", input.Field)
}

func TestNodeInput_UnmarshalJSON_UnknownKind(t *testing.T) {
	var input NodeInput

	err := json.Unmarshal([]byte(`{"type":"expression","value":"1+1"}`), &input)
	require.Error(t, err)
}

func TestNodeInput_UnmarshalJSON_MissingKind(t *testing.T) {
	var input NodeInput

	err := json.Unmarshal([]byte(`{"value":42}`), &input)
	require.Error(t, err)
}

func TestToolspacePermissions_Allows(t *testing.T) {
	denied := false

	var perms *ToolspacePermissions

	// Absent permissions object fails open.
	assert.True(t, perms.Allows(OperationTypeDelete))

	perms = &ToolspacePermissions{AllowDelete: &denied}
	assert.False(t, perms.Allows(OperationTypeDelete))
	assert.True(t, perms.Allows(OperationTypeRead))
	assert.True(t, perms.Allows(OperationTypeWrite))
	assert.True(t, perms.Allows(OperationTypeExternal))
}

func TestWorkflowDefinition_NodeByID(t *testing.T) {
	def := &WorkflowDefinition{
		Nodes: []*ToolNode{{ID: "a", ToolID: "log"}, {ID: "b", ToolID: "log"}},
	}

	require.NotNil(t, def.NodeByID("b"))
	assert.Equal(t, "b", def.NodeByID("b").ID)
	assert.Nil(t, def.NodeByID("missing"))
}

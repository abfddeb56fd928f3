package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
	"github.com/thomasdavis/generous/pkg/persistence/file"
)

func newWorkflowService(t *testing.T) (*Workflow, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewWorkflow(p), p
}

func validDefinition() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		Name:    "report pipeline",
		OwnerID: "user-1",
		Enabled: true,
		Nodes: []*models.ToolNode{
			{ID: "a", ToolID: "log", Inputs: map[string]models.NodeInput{}},
			{ID: "b", ToolID: "log", Inputs: map[string]models.NodeInput{}},
		},
		Edges: []*models.WorkflowEdge{{From: "a", To: "b"}},
	}
}

func TestWorkflowService_CreateAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	service, _ := newWorkflowService(t)

	created, err := service.Create(ctx, validDefinition())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	loaded, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "report pipeline", loaded.Name)
}

func TestWorkflowService_CreateRejectsCycle(t *testing.T) {
	service, _ := newWorkflowService(t)

	definition := validDefinition()
	definition.Edges = append(definition.Edges, &models.WorkflowEdge{From: "b", To: "a"})

	_, err := service.Create(context.Background(), definition)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
	assert.True(t, IsValidationError(err))
}

func TestWorkflowService_CreateRejectsUnknownToolspace(t *testing.T) {
	service, _ := newWorkflowService(t)

	definition := validDefinition()
	definition.ToolspaceID = "nope"

	_, err := service.Create(context.Background(), definition)
	assert.ErrorIs(t, err, ErrUnknownToolspace)
}

func TestWorkflowService_CreateRejectsEmptyOwner(t *testing.T) {
	service, _ := newWorkflowService(t)

	definition := validDefinition()
	definition.OwnerID = "  "

	_, err := service.Create(context.Background(), definition)
	assert.ErrorIs(t, err, ErrEmptyOwnerID)
}

func TestWorkflowService_UpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	service, _ := newWorkflowService(t)

	created, err := service.Create(ctx, validDefinition())
	require.NoError(t, err)

	replacement := validDefinition()
	replacement.Name = "renamed pipeline"
	replacement.OwnerID = "someone-else"

	updated, err := service.Update(ctx, created.ID, replacement)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "user-1", updated.OwnerID) // owner cannot be reassigned
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "renamed pipeline", updated.Name)
}

func TestWorkflowService_UpdateMissing(t *testing.T) {
	service, _ := newWorkflowService(t)

	_, err := service.Update(context.Background(), "missing", validDefinition())
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowService_DeleteMissing(t *testing.T) {
	service, _ := newWorkflowService(t)

	err := service.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

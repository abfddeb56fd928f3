package file

import (
	"context"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
)

const workflowsDir = "workflows"

// WorkflowRepository stores workflow definitions as JSON files.
type WorkflowRepository struct {
	persistence *Persistence
}

// List returns all stored workflow definitions.
func (r *WorkflowRepository) List(_ context.Context) ([]*models.WorkflowDefinition, error) {
	return listRecords[models.WorkflowDefinition](r.persistence, workflowsDir)
}

// GetByID returns one definition or ErrWorkflowNotFound.
func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	return readRecord[models.WorkflowDefinition](r.persistence, workflowsDir, id, persistence.ErrWorkflowNotFound)
}

// Save writes the definition, replacing any previous version.
func (r *WorkflowRepository) Save(_ context.Context, definition *models.WorkflowDefinition) error {
	return writeRecord(r.persistence, workflowsDir, definition.ID, definition)
}

// Delete removes the definition.
func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	return deleteRecord(r.persistence, workflowsDir, id, persistence.ErrWorkflowNotFound)
}

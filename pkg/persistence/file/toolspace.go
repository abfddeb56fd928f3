package file

import (
	"context"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
)

const toolspacesDir = "toolspaces"

// ToolspaceRepository stores toolspace configurations as JSON files.
type ToolspaceRepository struct {
	persistence *Persistence
}

// List returns all stored toolspaces.
func (r *ToolspaceRepository) List(_ context.Context) ([]*models.ToolspaceConfig, error) {
	return listRecords[models.ToolspaceConfig](r.persistence, toolspacesDir)
}

// GetByID returns one toolspace or ErrToolspaceNotFound.
func (r *ToolspaceRepository) GetByID(_ context.Context, id string) (*models.ToolspaceConfig, error) {
	return readRecord[models.ToolspaceConfig](r.persistence, toolspacesDir, id, persistence.ErrToolspaceNotFound)
}

// Save writes the toolspace, replacing any previous version.
func (r *ToolspaceRepository) Save(_ context.Context, config *models.ToolspaceConfig) error {
	return writeRecord(r.persistence, toolspacesDir, config.ID, config)
}

// Delete removes the toolspace.
func (r *ToolspaceRepository) Delete(_ context.Context, id string) error {
	return deleteRecord(r.persistence, toolspacesDir, id, persistence.ErrToolspaceNotFound)
}

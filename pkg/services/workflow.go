package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
	"github.com/thomasdavis/generous/pkg/workflow"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow manages workflow definitions.
type Workflow struct {
	persistence persistence.Persistence
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves all workflow definitions.
func (w *Workflow) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	definitions, err := w.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return definitions, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	definition, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return definition, nil
}

// Create validates and stores a new workflow definition. The ID and
// timestamps are assigned here; graph structure problems reject the
// definition before it is saved.
func (w *Workflow) Create(ctx context.Context, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if definition == nil {
		return nil, ErrInvalidRequest
	}

	definition.OwnerID = strings.TrimSpace(definition.OwnerID)
	if definition.OwnerID == "" {
		return nil, ErrEmptyOwnerID
	}

	now := time.Now().UTC()
	definition.ID = uuid.New().String()
	definition.CreatedAt = now
	definition.UpdatedAt = now

	if err := w.validateDefinition(ctx, definition); err != nil {
		return nil, err
	}

	err := w.persistence.WorkflowRepository().Save(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return definition, nil
}

// Update replaces an existing definition, preserving its identity and
// creation time. In-flight executions keep the definition they loaded.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	definition *models.WorkflowDefinition,
) (*models.WorkflowDefinition, error) {
	if definition == nil {
		return nil, ErrInvalidRequest
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	definition.ID = workflowID
	definition.OwnerID = existing.OwnerID
	definition.CreatedAt = existing.CreatedAt
	definition.UpdatedAt = time.Now().UTC()

	if err := w.validateDefinition(ctx, definition); err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return definition, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return err
	}

	return nil
}

func (w *Workflow) validateDefinition(ctx context.Context, definition *models.WorkflowDefinition) error {
	if err := workflow.ValidateDefinition(definition); err != nil {
		return NewValidationError(
			"validateDefinition",
			"INVALID_DEFINITION",
			err.Error(),
			ErrInvalidDefinition,
		)
	}

	if definition.ToolspaceID != "" {
		_, err := w.persistence.ToolspaceRepository().GetByID(ctx, definition.ToolspaceID)
		if persistence.IsToolspaceNotFound(err) {
			return NewValidationError(
				"validateDefinition",
				"UNKNOWN_TOOLSPACE",
				fmt.Sprintf("toolspace %q does not exist", definition.ToolspaceID),
				ErrUnknownToolspace,
			)
		}

		if err != nil {
			return fmt.Errorf("failed to check toolspace %s: %w", definition.ToolspaceID, err)
		}
	}

	return nil
}

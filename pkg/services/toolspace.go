package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
	"github.com/thomasdavis/generous/pkg/toolspace"
)

// ErrToolspaceNotFound is returned when a toolspace is not found.
var ErrToolspaceNotFound = persistence.ErrToolspaceNotFound

// Toolspace manages toolspace configurations and their quota state.
type Toolspace struct {
	persistence persistence.Persistence
	tracker     *toolspace.Tracker
}

// NewToolspace creates a new toolspace service.
func NewToolspace(persistence persistence.Persistence, tracker *toolspace.Tracker) *Toolspace {
	return &Toolspace{
		persistence: persistence,
		tracker:     tracker,
	}
}

// List retrieves all toolspace configurations.
func (t *Toolspace) List(ctx context.Context) ([]*models.ToolspaceConfig, error) {
	configs, err := t.persistence.ToolspaceRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list toolspaces: %w", err)
	}

	return configs, nil
}

// FetchByID retrieves a toolspace by its ID.
func (t *Toolspace) FetchByID(ctx context.Context, id string) (*models.ToolspaceConfig, error) {
	config, err := t.persistence.ToolspaceRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// Create stores a new toolspace configuration.
func (t *Toolspace) Create(ctx context.Context, config *models.ToolspaceConfig) (*models.ToolspaceConfig, error) {
	if config == nil {
		return nil, ErrInvalidRequest
	}

	config.OwnerID = strings.TrimSpace(config.OwnerID)
	if config.OwnerID == "" {
		return nil, ErrEmptyOwnerID
	}

	now := time.Now().UTC()
	config.ID = uuid.New().String()
	config.CreatedAt = now
	config.UpdatedAt = now

	err := t.persistence.ToolspaceRepository().Save(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create toolspace: %w", err)
	}

	return config, nil
}

// Update replaces an existing toolspace configuration. Tightened patterns or
// quotas apply to invocations from the next execution on.
func (t *Toolspace) Update(ctx context.Context, toolspaceID string, config *models.ToolspaceConfig) (*models.ToolspaceConfig, error) {
	if config == nil {
		return nil, ErrInvalidRequest
	}

	existing, err := t.persistence.ToolspaceRepository().GetByID(ctx, toolspaceID)
	if err != nil {
		return nil, err
	}

	config.ID = toolspaceID
	config.OwnerID = existing.OwnerID
	config.CreatedAt = existing.CreatedAt
	config.UpdatedAt = time.Now().UTC()

	err = t.persistence.ToolspaceRepository().Save(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to update toolspace: %w", err)
	}

	return config, nil
}

// Delete removes a toolspace unless a workflow still references it.
func (t *Toolspace) Delete(ctx context.Context, toolspaceID string) error {
	definitions, err := t.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to check toolspace references: %w", err)
	}

	for _, definition := range definitions {
		if definition.ToolspaceID == toolspaceID {
			return fmt.Errorf("%w: workflow %s", ErrToolspaceInUse, definition.ID)
		}
	}

	err = t.persistence.ToolspaceRepository().Delete(ctx, toolspaceID)
	if err != nil {
		return err
	}

	return nil
}

// RemainingQuota reports limit minus usage for every configured quota of the
// given user within the toolspace.
func (t *Toolspace) RemainingQuota(ctx context.Context, toolspaceID, userID string) (map[string]int64, error) {
	config, err := t.persistence.ToolspaceRepository().GetByID(ctx, toolspaceID)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		userID = config.OwnerID
	}

	remaining, err := t.tracker.RemainingQuota(ctx, userID, config.ID, config.Quotas)
	if err != nil {
		return nil, fmt.Errorf("failed to compute remaining quota: %w", err)
	}

	return remaining, nil
}

// Package persistence provides the data storage abstraction for workflow
// definitions, toolspaces, and execution records.
package persistence

import (
	"context"
	"time"

	"github.com/thomasdavis/generous/pkg/models"
)

// Persistence is the root storage handle. Implementations: file (JSON on
// disk) and postgresql.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ToolspaceRepository() ToolspaceRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	List(ctx context.Context) ([]*models.WorkflowDefinition, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	Save(ctx context.Context, definition *models.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
}

// ToolspaceRepository stores toolspace configurations.
type ToolspaceRepository interface {
	List(ctx context.Context) ([]*models.ToolspaceConfig, error)
	GetByID(ctx context.Context, id string) (*models.ToolspaceConfig, error)
	Save(ctx context.Context, config *models.ToolspaceConfig) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records. A record is written at
// three points: created pending, updated to running, updated to a terminal
// status. These writes are not transactional with the engine loop.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	Update(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	// RecoverStale marks executions stuck in a non-terminal status for
	// longer than the cutoff as failed, returning how many were recovered.
	RecoverStale(ctx context.Context, cutoff time.Duration) (int, error)
}

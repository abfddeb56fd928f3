package file

import (
	"context"
	"sort"
	"time"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
)

const executionsDir = "executions"

// ExecutionRepository stores execution records as JSON files.
type ExecutionRepository struct {
	persistence *Persistence
}

// Create writes the initial pending record.
func (r *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	return writeRecord(r.persistence, executionsDir, execution.ID, execution)
}

// Update rewrites the record after a status transition.
func (r *ExecutionRepository) Update(_ context.Context, execution *models.Execution) error {
	return writeRecord(r.persistence, executionsDir, execution.ID, execution)
}

// GetByID returns one execution or ErrExecutionNotFound.
func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	return readRecord[models.Execution](r.persistence, executionsDir, id, persistence.ErrExecutionNotFound)
}

// ListByWorkflow returns the executions of one workflow, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	all, err := listRecords[models.Execution](r.persistence, executionsDir)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0, len(all))

	for _, execution := range all {
		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})

	return executions, nil
}

// RecoverStale marks executions stuck in a non-terminal status for longer
// than the cutoff as failed. A crash between the running write and the
// terminal write leaves such records behind; they are never resumed.
func (r *ExecutionRepository) RecoverStale(ctx context.Context, cutoff time.Duration) (int, error) {
	all, err := listRecords[models.Execution](r.persistence, executionsDir)
	if err != nil {
		return 0, err
	}

	deadline := time.Now().UTC().Add(-cutoff)
	recovered := 0

	for _, execution := range all {
		if execution.Status.Terminal() || execution.CreatedAt.After(deadline) {
			continue
		}

		now := time.Now().UTC()
		execution.Status = models.ExecutionStatusFailed
		execution.Error = "execution interrupted: stale record recovered"
		execution.CompletedAt = &now

		if err := r.Update(ctx, execution); err != nil {
			return recovered, err
		}

		recovered++
	}

	return recovered, nil
}

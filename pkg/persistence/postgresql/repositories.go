package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations. The
// definition document is stored as JSONB; owner and timestamps are lifted
// into columns for querying.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// List returns all workflow definitions, newest first.
func (r *WorkflowRepository) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT definition FROM workflows ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	definitions := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		var definition models.WorkflowDefinition
		if err := json.Unmarshal(raw, &definition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
		}

		definitions = append(definitions, &definition)
	}

	return definitions, rows.Err()
}

// GetByID returns one definition or ErrWorkflowNotFound.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	var raw []byte

	err := r.db.QueryRowContext(ctx, `SELECT definition FROM workflows WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query workflow %s: %w", id, err)
	}

	var definition models.WorkflowDefinition
	if err := json.Unmarshal(raw, &definition); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &definition, nil
}

// Save upserts the definition document.
func (r *WorkflowRepository) Save(ctx context.Context, definition *models.WorkflowDefinition) error {
	raw, err := json.Marshal(definition)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", definition.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (id, owner_id, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			definition = EXCLUDED.definition,
			updated_at = EXCLUDED.updated_at
	`, definition.ID, definition.OwnerID, raw, definition.CreatedAt, definition.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", definition.ID, err)
	}

	return nil
}

// Delete removes the definition.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

// ToolspaceRepository handles toolspace-related database operations.
type ToolspaceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// List returns all toolspaces.
func (r *ToolspaceRepository) List(ctx context.Context) ([]*models.ToolspaceConfig, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT config FROM toolspaces ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query toolspaces: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	configs := make([]*models.ToolspaceConfig, 0)

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan toolspace: %w", err)
		}

		var config models.ToolspaceConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal toolspace: %w", err)
		}

		configs = append(configs, &config)
	}

	return configs, rows.Err()
}

// GetByID returns one toolspace or ErrToolspaceNotFound.
func (r *ToolspaceRepository) GetByID(ctx context.Context, id string) (*models.ToolspaceConfig, error) {
	var raw []byte

	err := r.db.QueryRowContext(ctx, `SELECT config FROM toolspaces WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrToolspaceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query toolspace %s: %w", id, err)
	}

	var config models.ToolspaceConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal toolspace %s: %w", id, err)
	}

	return &config, nil
}

// Save upserts the toolspace document.
func (r *ToolspaceRepository) Save(ctx context.Context, config *models.ToolspaceConfig) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal toolspace %s: %w", config.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO toolspaces (id, owner_id, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`, config.ID, config.OwnerID, raw, config.CreatedAt, config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save toolspace %s: %w", config.ID, err)
	}

	return nil
}

// Delete removes the toolspace.
func (r *ToolspaceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM toolspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete toolspace %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrToolspaceNotFound
	}

	return nil
}

// ExecutionRepository handles execution record database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Create writes the initial pending record.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	raw, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, status, record, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, execution.ID, execution.WorkflowID, execution.Status, raw, execution.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create execution %s: %w", execution.ID, err)
	}

	return nil
}

// Update rewrites the record after a status transition.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	raw, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE executions SET status = $2, record = $3 WHERE id = $1
	`, execution.ID, execution.Status, raw)
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

// GetByID returns one execution or ErrExecutionNotFound.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	var raw []byte

	err := r.db.QueryRowContext(ctx, `SELECT record FROM executions WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query execution %s: %w", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(raw, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

// ListByWorkflow returns the executions of one workflow, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT record FROM executions WHERE workflow_id = $1 ORDER BY created_at DESC
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		var execution models.Execution
		if err := json.Unmarshal(raw, &execution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
		}

		executions = append(executions, &execution)
	}

	return executions, rows.Err()
}

// RecoverStale marks executions stuck in a non-terminal status for longer
// than the cutoff as failed.
func (r *ExecutionRepository) RecoverStale(ctx context.Context, cutoff time.Duration) (int, error) {
	deadline := time.Now().UTC().Add(-cutoff)

	rows, err := r.db.QueryContext(ctx, `
		SELECT record FROM executions
		WHERE status IN ($1, $2) AND created_at < $3
	`, models.ExecutionStatusPending, models.ExecutionStatusRunning, deadline)
	if err != nil {
		return 0, fmt.Errorf("failed to query stale executions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	stale := make([]*models.Execution, 0)

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return 0, fmt.Errorf("failed to scan stale execution: %w", err)
		}

		var execution models.Execution
		if err := json.Unmarshal(raw, &execution); err != nil {
			return 0, fmt.Errorf("failed to unmarshal stale execution: %w", err)
		}

		stale = append(stale, &execution)
	}

	if err := rows.Err(); err != nil {
		return 0, err
	}

	recovered := 0

	for _, execution := range stale {
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

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

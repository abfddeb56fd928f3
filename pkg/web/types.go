// Package web provides the HTTP surface: workflow and toolspace management,
// execution, and webhook triggering.
package web

import "github.com/thomasdavis/generous/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string                     `json:"name"         validate:"required,min=3"`
	Description string                     `json:"description"`
	OwnerID     string                     `json:"owner_id"     validate:"required"`
	ToolspaceID string                     `json:"toolspace_id"`
	Enabled     bool                       `json:"enabled"`
	Nodes       []*models.ToolNode         `json:"nodes"`
	Edges       []*models.WorkflowEdge     `json:"edges"`
	Variables   []*models.WorkflowVariable `json:"variables"`
	Metadata    map[string]any             `json:"metadata,omitempty"`
}

// UpdateWorkflowRequest is the request body for replacing a workflow
// definition. Identity fields (id, owner, creation time) are never taken
// from the body.
type UpdateWorkflowRequest struct {
	Name        string                     `json:"name"         validate:"required,min=3"`
	Description string                     `json:"description"`
	ToolspaceID string                     `json:"toolspace_id"`
	Enabled     bool                       `json:"enabled"`
	Nodes       []*models.ToolNode         `json:"nodes"`
	Edges       []*models.WorkflowEdge     `json:"edges"`
	Variables   []*models.WorkflowVariable `json:"variables"`
	Metadata    map[string]any             `json:"metadata,omitempty"`
}

// ExecuteWorkflowRequest carries variable overrides for a manual run.
type ExecuteWorkflowRequest struct {
	Variables map[string]any `json:"variables"`
}

// ExecutionResponse is the terminal view of one run.
type ExecutionResponse struct {
	ExecutionID string                        `json:"execution_id"`
	WorkflowID  string                        `json:"workflow_id"`
	Status      models.ExecutionStatus        `json:"status"`
	NodeResults map[string]*models.NodeResult `json:"node_results"`
	Error       string                        `json:"error,omitempty"`
}

// TransformExecutionResponse shapes a stored execution record for the API.
func TransformExecutionResponse(execution *models.Execution) ExecutionResponse {
	return ExecutionResponse{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Status:      execution.Status,
		NodeResults: execution.NodeResults,
		Error:       execution.Error,
	}
}

// CreateToolspaceRequest is the request body for creating a toolspace.
type CreateToolspaceRequest struct {
	Name        string                       `json:"name"     validate:"required,min=3"`
	OwnerID     string                       `json:"owner_id" validate:"required"`
	Tools       []string                     `json:"tools"`
	Permissions *models.ToolspacePermissions `json:"permissions,omitempty"`
	Quotas      map[string]int64             `json:"quotas,omitempty"`
}

// UpdateToolspaceRequest is the request body for replacing a toolspace
// configuration.
type UpdateToolspaceRequest struct {
	Name        string                       `json:"name" validate:"required,min=3"`
	Tools       []string                     `json:"tools"`
	Permissions *models.ToolspacePermissions `json:"permissions,omitempty"`
	Quotas      map[string]int64             `json:"quotas,omitempty"`
}

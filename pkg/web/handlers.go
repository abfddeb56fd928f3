package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/services"
	"github.com/thomasdavis/generous/pkg/tools"
)

// UserHeader names the header carrying the acting user's id. Absent, the
// workflow owner is assumed.
const UserHeader = "X-User-ID"

type APIHandlers struct {
	workflowService  *services.Workflow
	toolspaceService *services.Toolspace
	executionService *services.Execution
	validator        *validator.Validate
	registry         *tools.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	toolspaceService *services.Toolspace,
	executionService *services.Execution,
	validator *validator.Validate,
	registry *tools.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		toolspaceService: toolspaceService,
		executionService: executionService,
		validator:        validator,
		registry:         registry,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Generous API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Generous API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	definitions, err := h.workflowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definitions)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	definition, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	definition := &models.WorkflowDefinition{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     req.OwnerID,
		ToolspaceID: req.ToolspaceID,
		Enabled:     req.Enabled,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Variables:   req.Variables,
		Metadata:    req.Metadata,
	}

	created, err := h.workflowService.Create(c.Context(), definition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	definition := &models.WorkflowDefinition{
		Name:        req.Name,
		Description: req.Description,
		ToolspaceID: req.ToolspaceID,
		Enabled:     req.Enabled,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Variables:   req.Variables,
		Metadata:    req.Metadata,
	}

	updated, err := h.workflowService.Update(c.Context(), id, definition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow runs a workflow synchronously and returns the terminal
// result. When the result was produced but its record could not be written,
// the problem document carries the result anyway.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req ExecuteWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	trigger := models.Trigger{
		Type:      models.TriggerTypeManual,
		UserID:    c.Get(UserHeader),
		Variables: req.Variables,
	}

	execution, err := h.executionService.Execute(c.Context(), id, trigger)
	if err != nil {
		if errors.Is(err, services.ErrRecordNotPersisted) && execution != nil {
			problem := problems.NewStatusProblem(500).
				WithInstance(c.Path()).
				WithType("record_not_persisted").
				WithDetail(err.Error())

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"problem":      problem,
				"execution_id": execution.ID,
				"status":       execution.Status,
				"node_results": execution.NodeResults,
				"error":        execution.Error,
			})
		}

		return handleServiceError(c, err)
	}

	return c.JSON(TransformExecutionResponse(execution))
}

// TriggerWebhook starts a workflow from an inbound webhook; the request body
// becomes the trigger variables.
func (h *APIHandlers) TriggerWebhook(c fiber.Ctx) error {
	workflowID := c.Params("workflowID")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	variables := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&variables); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	trigger := models.Trigger{
		Type:      models.TriggerTypeWebhook,
		Variables: variables,
	}

	execution, err := h.executionService.Execute(c.Context(), workflowID, trigger)
	if err != nil && !errors.Is(err, services.ErrRecordNotPersisted) {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TransformExecutionResponse(execution))
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executionService.FetchExecution(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	executions, err := h.executionService.ListByWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(executions)
}

func (h *APIHandlers) GetToolspaces(c fiber.Ctx) error {
	configs, err := h.toolspaceService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(configs)
}

func (h *APIHandlers) GetToolspace(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Toolspace ID is required")
	}

	config, err := h.toolspaceService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(config)
}

func (h *APIHandlers) CreateToolspace(c fiber.Ctx) error {
	var req CreateToolspaceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	config := &models.ToolspaceConfig{
		Name:        req.Name,
		OwnerID:     req.OwnerID,
		Tools:       req.Tools,
		Permissions: req.Permissions,
		Quotas:      req.Quotas,
	}

	created, err := h.toolspaceService.Create(c.Context(), config)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateToolspace(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Toolspace ID is required")
	}

	var req UpdateToolspaceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	config := &models.ToolspaceConfig{
		Name:        req.Name,
		Tools:       req.Tools,
		Permissions: req.Permissions,
		Quotas:      req.Quotas,
	}

	updated, err := h.toolspaceService.Update(c.Context(), id, config)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteToolspace(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Toolspace ID is required")
	}

	if err := h.toolspaceService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetToolspaceQuota reports the remaining quota of the acting user within
// one toolspace.
func (h *APIHandlers) GetToolspaceQuota(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Toolspace ID is required")
	}

	userID := c.Query("user_id")
	if userID == "" {
		userID = c.Get(UserHeader)
	}

	remaining, err := h.toolspaceService.RemainingQuota(c.Context(), id, userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"toolspace_id": id,
		"remaining":    remaining,
	})
}

package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence/file"
	"github.com/thomasdavis/generous/pkg/services"
	"github.com/thomasdavis/generous/pkg/tools"
	logtool "github.com/thomasdavis/generous/pkg/tools/log"
	"github.com/thomasdavis/generous/pkg/toolspace"
	"github.com/thomasdavis/generous/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.Default()
	persistence := file.NewPersistence(t.TempDir())
	tracker := toolspace.NewTracker(toolspace.NewMemoryUsageStore())

	registry := tools.NewRegistry(logger, nil)
	registry.Register(logtool.GetDescriptor(logger))

	workflowService := services.NewWorkflow(persistence)
	toolspaceService := services.NewToolspace(persistence, tracker)
	executionService := services.NewExecution(persistence, registry, tracker, nil, nil, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewAPIHandlers(workflowService, toolspaceService, executionService, validate, registry)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Post("/hooks/:workflowID", handlers.TriggerWebhook)

	ts := app.Group("/toolspaces")
	ts.Get("/", handlers.GetToolspaces)
	ts.Post("/", handlers.CreateToolspace)
	ts.Get("/:id", handlers.GetToolspace)
	ts.Put("/:id", handlers.UpdateToolspace)
	ts.Delete("/:id", handlers.DeleteToolspace)
	ts.Get("/:id/quota", handlers.GetToolspaceQuota)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func createWorkflow(t *testing.T, app *fiber.App, req web.CreateWorkflowRequest) models.WorkflowDefinition {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", req, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created models.WorkflowDefinition
	require.NoError(t, json.Unmarshal(body, &created))

	return created
}

func simpleWorkflowRequest() web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
		Name:    "Log something",
		OwnerID: "user-1",
		Enabled: true,
		Nodes: []*models.ToolNode{
			{ID: "say", ToolID: "log", Inputs: map[string]models.NodeInput{
				"message": models.LiteralInput("hello"),
			}},
		},
	}
}

func TestCreateWorkflow(t *testing.T) {
	app := setupTestApp(t)

	created := createWorkflow(t, app, simpleWorkflowRequest())
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.OwnerID)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestCreateWorkflow_ValidationFailure(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Name: "no",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
}

func TestCreateWorkflow_RejectsCycle(t *testing.T) {
	app := setupTestApp(t)

	req := simpleWorkflowRequest()
	req.Nodes = append(req.Nodes, &models.ToolNode{ID: "other", ToolID: "log", Inputs: map[string]models.NodeInput{}})
	req.Edges = []*models.WorkflowEdge{
		{From: "say", To: "other"},
		{From: "other", To: "say"},
	}

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", req, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
}

func TestGetWorkflow_NotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteWorkflow(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, simpleWorkflowRequest())

	resp, _ := doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteWorkflow(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, simpleWorkflowRequest())

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute",
		web.ExecuteWorkflowRequest{Variables: map[string]any{"env": "test"}},
		map[string]string{web.UserHeader: "user-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result web.ExecutionResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
	require.Contains(t, result.NodeResults, "say")
	assert.Equal(t, models.NodeStatusSuccess, result.NodeResults["say"].Status)

	// The record is retrievable afterwards.
	resp, body = doJSON(t, app, http.MethodGet, "/executions/"+result.ExecutionID, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/executions", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var executions []*models.Execution
	require.NoError(t, json.Unmarshal(body, &executions))
	assert.Len(t, executions, 1)
}

func TestExecuteWorkflow_DisabledReturns403(t *testing.T) {
	app := setupTestApp(t)

	req := simpleWorkflowRequest()
	req.Enabled = false
	created := createWorkflow(t, app, req)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestExecuteWorkflow_NonOwnerReturns403(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, simpleWorkflowRequest())

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil,
		map[string]string{web.UserHeader: "intruder"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestExecuteWorkflow_QuotaExhaustedReturns429(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/toolspaces", web.CreateToolspaceRequest{
		Name:    "one shot",
		OwnerID: "user-1",
		Quotas:  map[string]int64{models.QuotaMaxCalls: 1},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var config models.ToolspaceConfig
	require.NoError(t, json.Unmarshal(body, &config))

	req := simpleWorkflowRequest()
	req.ToolspaceID = config.ID
	created := createWorkflow(t, app, req)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestTriggerWebhook(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, simpleWorkflowRequest())

	resp, body := doJSON(t, app, http.MethodPost, "/hooks/"+created.ID,
		map[string]any{"order_id": "42"}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var result web.ExecutionResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
}

func TestToolspaceCRUDAndQuota(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/toolspaces", web.CreateToolspaceRequest{
		Name:    "metered",
		OwnerID: "user-1",
		Tools:   []string{"log"},
		Quotas:  map[string]int64{models.QuotaMaxCalls: 5},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var config models.ToolspaceConfig
	require.NoError(t, json.Unmarshal(body, &config))

	resp, body = doJSON(t, app, http.MethodPut, "/toolspaces/"+config.ID, web.UpdateToolspaceRequest{
		Name:   "metered v2",
		Tools:  []string{"log", "transform"},
		Quotas: map[string]int64{models.QuotaMaxCalls: 5},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doJSON(t, app, http.MethodGet, "/toolspaces/"+config.ID+"/quota", nil,
		map[string]string{web.UserHeader: "user-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var quota struct {
		ToolspaceID string           `json:"toolspace_id"`
		Remaining   map[string]int64 `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(body, &quota))
	assert.Equal(t, int64(5), quota.Remaining[models.QuotaMaxCalls])

	resp, _ = doJSON(t, app, http.MethodDelete, "/toolspaces/"+config.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteToolspace_InUseReturns409(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/toolspaces", web.CreateToolspaceRequest{
		Name:    "shared",
		OwnerID: "user-1",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var config models.ToolspaceConfig
	require.NoError(t, json.Unmarshal(body, &config))

	req := simpleWorkflowRequest()
	req.ToolspaceID = config.ID
	createWorkflow(t, app, req)

	resp, _ = doJSON(t, app, http.MethodDelete, "/toolspaces/"+config.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

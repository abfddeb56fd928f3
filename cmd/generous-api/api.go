// Package main provides the Generous API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/thomasdavis/generous/pkg/eventbus"
	"github.com/thomasdavis/generous/pkg/otelhelper"
	"github.com/thomasdavis/generous/pkg/persistence"
	"github.com/thomasdavis/generous/pkg/services"
	"github.com/thomasdavis/generous/pkg/tools"
	"github.com/thomasdavis/generous/pkg/toolspace"
	"github.com/thomasdavis/generous/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *tools.Registry
	eventBus    eventbus.EventBus
	tracker     *toolspace.Tracker
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *tools.Registry,
	eventBus eventbus.EventBus,
	usageStore toolspace.UsageStore,
	tracing bool,
) *API {
	var tracer trace.Tracer

	if tracing {
		t, err := otelhelper.NewTracer(context.Background(), "generous-api")
		if err != nil {
			logger.Error("Failed to initialize tracer, continuing without", "error", err)
		} else {
			tracer = t
		}
	}

	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		tracker:     toolspace.NewTracker(usageStore),
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence)
	toolspaceService := services.NewToolspace(a.persistence, a.tracker)
	executionService := services.NewExecution(a.persistence, a.registry, a.tracker, a.eventBus, a.tracer, a.logger)

	handlers := web.NewAPIHandlers(workflowService, toolspaceService, executionService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Generous API")
	})

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

// RecoverStale fails execution records left non-terminal by a previous
// process before the server starts accepting work.
func (a *API) RecoverStale(ctx context.Context, cutoff time.Duration) error {
	executionService := services.NewExecution(a.persistence, a.registry, a.tracker, a.eventBus, a.tracer, a.logger)

	_, err := executionService.RecoverStale(ctx, cutoff)

	return err
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

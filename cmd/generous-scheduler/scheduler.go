package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/persistence"
	"github.com/thomasdavis/generous/pkg/services"
)

// ScheduleMetadataKey is the workflow metadata key holding the cron
// expression.
const ScheduleMetadataKey = "schedule"

// Scheduler registers a cron job per enabled workflow that declares a
// schedule in its metadata.
type Scheduler struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	executions  *services.Execution
	cron        *cron.Cron
}

func NewScheduler(logger *slog.Logger, persistence persistence.Persistence, executions *services.Execution) *Scheduler {
	return &Scheduler{
		logger:      logger,
		persistence: persistence,
		executions:  executions,
		cron:        cron.New(),
	}
}

// Start loads the scheduled workflows and begins firing them. Workflows
// added or edited afterwards are picked up on the next process start.
func (s *Scheduler) Start(ctx context.Context) error {
	definitions, err := s.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	scheduled := 0

	for _, definition := range definitions {
		expression, ok := scheduleExpression(definition)
		if !ok {
			continue
		}

		if !definition.Enabled {
			s.logger.InfoContext(ctx, "Skipping disabled workflow", "workflow_id", definition.ID)

			continue
		}

		workflowID := definition.ID

		_, err := s.cron.AddFunc(expression, func() {
			s.run(ctx, workflowID)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Invalid cron expression",
				"workflow_id", workflowID, "expression", expression, "error", err)

			continue
		}

		scheduled++

		s.logger.InfoContext(ctx, "Scheduled workflow", "workflow_id", workflowID, "expression", expression)
	}

	s.logger.InfoContext(ctx, "Scheduler started", "workflows", scheduled)
	s.cron.Start()

	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(ctx context.Context, workflowID string) {
	execution, err := s.executions.Execute(ctx, workflowID, models.Trigger{
		Type: models.TriggerTypeScheduled,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduled execution failed", "workflow_id", workflowID, "error", err)

		return
	}

	s.logger.InfoContext(ctx, "Scheduled execution finished",
		"workflow_id", workflowID, "execution_id", execution.ID, "status", execution.Status)
}

func scheduleExpression(definition *models.WorkflowDefinition) (string, bool) {
	if definition.Metadata == nil {
		return "", false
	}

	expression, ok := definition.Metadata[ScheduleMetadataKey].(string)
	if !ok || expression == "" {
		return "", false
	}

	return expression, true
}

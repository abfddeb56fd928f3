// Package main provides the Generous scheduler: workflows carrying a cron
// expression in their metadata are executed on that schedule.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/thomasdavis/generous/pkg/cmd"
	"github.com/thomasdavis/generous/pkg/log"
	"github.com/thomasdavis/generous/pkg/services"
	"github.com/thomasdavis/generous/pkg/toolspace"
)

func main() {
	logger := log.WithModule("scheduler")

	command := &cli.Command{
		Name:                  "generous-scheduler",
		Usage:                 "Run workflows on their cron schedules",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file path or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for shared quota counters (empty keeps counters in memory)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "executor-url",
				Usage:   "HTTP endpoint for external (@-namespaced) tool execution",
				Sources: cli.EnvVars("EXECUTOR_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Generous scheduler")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "scheduler", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, command.String("executor-url"))
			tracker := toolspace.NewTracker(cmd.NewUsageStore(command.String("redis-url")))
			executionService := services.NewExecution(persistence, registry, tracker, eventBus, nil, logger)

			scheduler := NewScheduler(logger, persistence, executionService)

			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			defer scheduler.Stop()

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()
			logger.InfoContext(ctx, "Shutting down scheduler")

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

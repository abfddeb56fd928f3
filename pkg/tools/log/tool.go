// Package log provides the builtin logging tool for workflow graphs.
package log

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/tools"
)

const ToolID = "log"

// Tool writes a message to the structured log and echoes it back as output.
type Tool struct {
	logger *slog.Logger
}

// NewTool creates the log tool.
func NewTool(logger *slog.Logger) *Tool {
	return &Tool{logger: logger.With("module", "tool_log")}
}

// ID returns the tool id.
func (t *Tool) ID() string {
	return ToolID
}

// Execute logs the message at the requested level.
func (t *Tool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	message, ok := params["message"].(string)
	if !ok {
		return nil, errors.New("missing required param 'message'")
	}

	level, _ := params["level"].(string)

	switch level {
	case "debug":
		t.logger.DebugContext(ctx, message)
	case "warn":
		t.logger.WarnContext(ctx, message)
	case "error":
		t.logger.ErrorContext(ctx, message)
	default:
		level = "info"

		t.logger.InfoContext(ctx, message)
	}

	return map[string]any{
		"message":   message,
		"level":     level,
		"logged_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GetSchema describes the tool's parameters.
func GetSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:        "object",
		Title:       "Log",
		Description: "Write a message to the execution log",
		Properties: map[string]*models.Property{
			"message": {Type: "string", Description: "Message to log"},
			"level": {
				Type:        "string",
				Description: "Log level",
				Enum:        []any{"debug", "info", "warn", "error"},
				Default:     "info",
			},
		},
		Required: []string{"message"},
	}
}

// GetDescriptor returns the registry descriptor for the log tool.
func GetDescriptor(logger *slog.Logger) tools.Descriptor {
	return tools.Descriptor{
		Tool:      NewTool(logger),
		Schema:    GetSchema(),
		Operation: models.OperationTypeRead,
	}
}

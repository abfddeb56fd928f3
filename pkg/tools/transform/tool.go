// Package transform provides the builtin data reshaping tool.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/template"
	"github.com/thomasdavis/generous/pkg/tools"
)

const ToolID = "transform"

// Tool renders a template over the supplied data, producing a reshaped
// value. The rendered result is coerced: JSON becomes structured data,
// numeric and boolean strings become their typed values.
type Tool struct{}

// NewTool creates the transform tool.
func NewTool() *Tool {
	return &Tool{}
}

// ID returns the tool id.
func (t *Tool) ID() string {
	return ToolID
}

// Execute renders params["template"] with params["data"] bound as .data.
func (t *Tool) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	templateStr, ok := params["template"].(string)
	if !ok {
		return nil, errors.New("missing required param 'template'")
	}

	result, err := template.Render(templateStr, map[string]any{"data": params["data"]})
	if err != nil {
		return nil, fmt.Errorf("transform failed: %w", err)
	}

	return map[string]any{"result": result}, nil
}

// GetSchema describes the tool's parameters.
func GetSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:        "object",
		Title:       "Transform",
		Description: "Reshape data with a template expression",
		Properties: map[string]*models.Property{
			"template": {Type: "string", Description: "Template applied to .data"},
			"data":     {Description: "Value bound to .data during rendering"},
		},
		Required: []string{"template"},
	}
}

// GetDescriptor returns the registry descriptor for the transform tool.
func GetDescriptor(_ *slog.Logger) tools.Descriptor {
	return tools.Descriptor{
		Tool:      NewTool(),
		Schema:    GetSchema(),
		Operation: models.OperationTypeRead,
	}
}

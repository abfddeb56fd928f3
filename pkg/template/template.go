// Package template renders dynamic string inputs against an execution context.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/thomasdavis/generous/pkg/models"
)

// RenderWithContext renders a string input against the state of a running
// execution: declared variables, upstream node outputs, and trigger data.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) (any, error) {
	nodeOutputs := make(map[string]any, len(executionCtx.NodeResults))
	for nodeID, result := range executionCtx.NodeResults {
		if result.Status == models.NodeStatusSuccess {
			nodeOutputs[nodeID] = result.Output
		}
	}

	data := map[string]any{
		"variables": executionCtx.Variables,
		"vars":      executionCtx.Variables,
		"nodes":     nodeOutputs,
		"trigger":   executionCtx.Trigger.Variables,
		"env":       getEnvVars(),
		"execution": map[string]any{
			"id":          executionCtx.ID,
			"workflow_id": executionCtx.WorkflowID,
		},
	}

	return Render(input, data)
}

// Render executes a text/template over data and coerces the result: JSON
// objects and arrays are decoded, then numbers, then booleans, otherwise
// the raw string is returned.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("input").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", result, err)
		}

		return jsonResult, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// getEnvVars returns environment variables as a map.
func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}

// Package httprequest provides the builtin HTTP request tool.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/tools"
)

const (
	ToolID         = "httprequest"
	defaultTimeout = 30
	maxTimeout     = 300
)

// Tool performs an HTTP request described by its parameters and returns the
// response status, headers, and decoded body.
type Tool struct {
	logger *slog.Logger
}

// NewTool creates the HTTP request tool.
func NewTool(logger *slog.Logger) *Tool {
	return &Tool{logger: logger.With("module", "tool_httprequest")}
}

// ID returns the tool id.
func (t *Tool) ID() string {
	return ToolID
}

// Execute performs the request. The response body is decoded as JSON when
// possible, otherwise returned as a string.
func (t *Tool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	url, ok := params["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required param 'url'")
	}

	method := http.MethodGet
	if m, ok := params["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	timeout := defaultTimeout
	if seconds, ok := params["timeout"].(float64); ok && seconds > 0 && seconds <= maxTimeout {
		timeout = int(seconds)
	}

	var body io.Reader

	if raw, ok := params["body"]; ok && raw != nil {
		switch value := raw.(type) {
		case string:
			body = strings.NewReader(value)
		default:
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %w", err)
			}

			body = strings.NewReader(string(encoded))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if headers, ok := params["headers"].(map[string]any); ok {
		for name, value := range headers {
			if text, ok := value.(string); ok {
				req.Header.Set(name, text)
			}
		}
	}

	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}

	t.logger.InfoContext(ctx, "Performing HTTP request", "method", method, "url", url)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		decoded = string(payload)
	}

	headers := make(map[string]any, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	output := map[string]any{
		"status_code": resp.StatusCode,
		"body":        decoded,
		"headers":     headers,
	}

	if resp.StatusCode >= 400 {
		return output, fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	return output, nil
}

// GetSchema describes the tool's parameters.
func GetSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:        "object",
		Title:       "HTTP Request",
		Description: "Perform an HTTP request",
		Properties: map[string]*models.Property{
			"url":    {Type: "string", Description: "Request URL", Format: "uri"},
			"method": {Type: "string", Default: "GET", Enum: []any{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"}},
			"headers": {
				Type:        "object",
				Description: "Request headers",
			},
			"body":    {Description: "Request body; objects are JSON encoded"},
			"timeout": {Type: "number", Description: "Timeout in seconds", Default: defaultTimeout},
		},
		Required: []string{"url"},
	}
}

// GetDescriptor returns the registry descriptor for the HTTP request tool.
func GetDescriptor(logger *slog.Logger) tools.Descriptor {
	return tools.Descriptor{
		Tool:      NewTool(logger),
		Schema:    GetSchema(),
		Operation: models.OperationTypeExternal,
	}
}

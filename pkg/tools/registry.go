package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/toolspace"
)

// Registry resolves tool ids to implementations. Builtin tools are
// registered with a parameter schema; ids carrying the external namespace
// marker are delegated to the remote executor when one is configured.
type Registry struct {
	logger      *slog.Logger
	descriptors map[string]Descriptor
	remote      Remote
}

// Remote proxies invocations of external tools to an execution endpoint.
type Remote interface {
	Invoke(ctx context.Context, toolID string, params map[string]any) (map[string]any, error)
}

// NewRegistry creates an empty registry. remote may be nil, in which case
// external tool ids are rejected.
func NewRegistry(logger *slog.Logger, remote Remote) *Registry {
	return &Registry{
		logger:      logger.With("module", "tool_registry"),
		descriptors: make(map[string]Descriptor),
		remote:      remote,
	}
}

// Register adds a tool under its own id.
func (r *Registry) Register(descriptor Descriptor) {
	r.descriptors[descriptor.Tool.ID()] = descriptor
}

// Invoke validates params against the tool's schema and executes it.
// Implements the engine's Executor contract.
func (r *Registry) Invoke(ctx context.Context, toolID string, params map[string]any) (map[string]any, error) {
	descriptor, ok := r.descriptors[toolID]
	if !ok {
		if toolspace.IsExternalTool(toolID) && r.remote != nil {
			return r.remote.Invoke(ctx, toolID, params)
		}

		return nil, fmt.Errorf("tool %q not registered", toolID)
	}

	if err := r.validateParams(descriptor, params); err != nil {
		return nil, err
	}

	return descriptor.Tool.Execute(ctx, params)
}

// OperationFor returns the operation class a tool invocation falls under
// for permission checks. External tools are always classed external.
func (r *Registry) OperationFor(toolID string) models.OperationType {
	if descriptor, ok := r.descriptors[toolID]; ok && descriptor.Operation != "" {
		return descriptor.Operation
	}

	if toolspace.IsExternalTool(toolID) {
		return models.OperationTypeExternal
	}

	return models.OperationTypeRead
}

// ToolIDs returns the registered builtin tool ids.
func (r *Registry) ToolIDs() []string {
	ids := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		ids = append(ids, id)
	}

	return ids
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.descriptors) == 0 && r.remote == nil {
		return "No tools registered and no remote executor configured", false
	}

	return fmt.Sprintf("%d tools registered", len(r.descriptors)), true
}

func (r *Registry) validateParams(descriptor Descriptor, params map[string]any) error {
	if descriptor.Schema == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(descriptor.Schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for tool %q: %w", descriptor.Tool.ID(), err)
	}

	if params == nil {
		params = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(params),
	)
	if err != nil {
		return fmt.Errorf("failed to validate params for tool %q: %w", descriptor.Tool.ID(), err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("invalid params for tool %q: %s", descriptor.Tool.ID(), strings.Join(messages, "; "))
	}

	return nil
}

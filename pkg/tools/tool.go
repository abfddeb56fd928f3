// Package tools defines the tool abstraction the workflow engine invokes:
// a registry of builtin capabilities plus a proxy for external namespaced
// tools.
package tools

import (
	"context"

	"github.com/thomasdavis/generous/pkg/models"
)

// Tool is one named capability: invoked with resolved parameters, it
// returns an output map or an error.
type Tool interface {
	ID() string
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Descriptor carries a tool's registration metadata: the parameter schema
// used for pre-invocation validation and the operation class the policy
// gate checks permissions against.
type Descriptor struct {
	Tool      Tool
	Schema    *models.JSONSchema
	Operation models.OperationType
}

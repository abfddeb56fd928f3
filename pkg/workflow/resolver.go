package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thomasdavis/generous/pkg/models"
	"github.com/thomasdavis/generous/pkg/template"
)

var (
	// ErrUnresolvedReference indicates an input references a variable or node
	// output that does not exist. The referencing node fails.
	ErrUnresolvedReference = errors.New("unresolved input reference")

	// ErrDependencyNotSucceeded indicates an input references the output of a
	// node that reached a terminal state other than success. The referencing
	// node is skipped, not failed.
	ErrDependencyNotSucceeded = errors.New("dependency did not succeed")
)

// MergeVariables overlays trigger-supplied values on the declared defaults.
// Unknown names supplied by the trigger are accepted and added.
func MergeVariables(declared []*models.WorkflowVariable, overrides map[string]any) map[string]any {
	variables := make(map[string]any, len(declared)+len(overrides))

	for _, variable := range declared {
		variables[variable.Name] = variable.Default
	}

	for name, value := range overrides {
		variables[name] = value
	}

	return variables
}

// ResolveInputs materializes a node's declared inputs from the execution
// context: literals pass through (strings run through the template
// renderer), variable references read the resolved variable mapping, and
// node references read the output of an upstream result.
func ResolveInputs(node *models.ToolNode, executionCtx *models.ExecutionContext) (map[string]any, error) {
	params := make(map[string]any, len(node.Inputs))

	for name, input := range node.Inputs {
		value, err := resolveInput(input, executionCtx)
		if err != nil {
			return nil, fmt.Errorf("input %q of node %s: %w", name, node.ID, err)
		}

		params[name] = value
	}

	return params, nil
}

func resolveInput(input models.NodeInput, executionCtx *models.ExecutionContext) (any, error) {
	switch input.Kind {
	case models.InputKindLiteral:
		if text, ok := input.Value.(string); ok && strings.Contains(text, "{{") {
			rendered, err := template.RenderWithContext(text, executionCtx)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, err.Error())
			}

			return rendered, nil
		}

		return input.Value, nil

	case models.InputKindVariable:
		value, ok := executionCtx.Variables[input.Name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown variable %q", ErrUnresolvedReference, input.Name)
		}

		return value, nil

	case models.InputKindNode:
		result, ok := executionCtx.NodeResults[input.Node]
		if !ok {
			return nil, fmt.Errorf("%w: output of node %q is not available", ErrUnresolvedReference, input.Node)
		}

		if result.Status != models.NodeStatusSuccess {
			return nil, fmt.Errorf("%w: node %q finished with status %s", ErrDependencyNotSucceeded, input.Node, result.Status)
		}

		if input.Field == "" {
			return result.Output, nil
		}

		return lookupField(result.Output, input.Field, input.Node)

	default:
		return nil, fmt.Errorf("%w: unknown input kind %q", ErrUnresolvedReference, input.Kind)
	}
}

// lookupField walks a dot-separated path into a node's output map.
func lookupField(output map[string]any, field, nodeID string) (any, error) {
	current := any(output)

	for _, segment := range strings.Split(field, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: field %q of node %q is not an object", ErrUnresolvedReference, field, nodeID)
		}

		current, ok = object[segment]
		if !ok {
			return nil, fmt.Errorf("%w: node %q output has no field %q", ErrUnresolvedReference, nodeID, field)
		}
	}

	return current, nil
}

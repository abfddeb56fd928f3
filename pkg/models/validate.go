package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateNodeID indicates two nodes share an id.
	ErrDuplicateNodeID = errors.New("duplicate node id")

	// ErrDuplicateVariable indicates two variables share a name.
	ErrDuplicateVariable = errors.New("duplicate variable name")

	// ErrDanglingEdge indicates an edge references a node id that does not exist.
	ErrDanglingEdge = errors.New("edge references unknown node")

	// ErrInvalidDefault indicates a variable default disagrees with its declared type.
	ErrInvalidDefault = errors.New("variable default does not match declared type")
)

// ValidateStructure checks the structural invariants of a definition: node
// id uniqueness, variable name uniqueness, edge endpoints, and variable
// default typing. Cycle detection is the graph walker's concern.
func (w *WorkflowDefinition) ValidateStructure() error {
	nodeIDs := make(map[string]struct{}, len(w.Nodes))

	for _, node := range w.Nodes {
		if _, exists := nodeIDs[node.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID)
		}

		nodeIDs[node.ID] = struct{}{}
	}

	for _, edge := range w.Edges {
		if _, ok := nodeIDs[edge.From]; !ok {
			return fmt.Errorf("%w: %s", ErrDanglingEdge, edge.From)
		}

		if _, ok := nodeIDs[edge.To]; !ok {
			return fmt.Errorf("%w: %s", ErrDanglingEdge, edge.To)
		}
	}

	names := make(map[string]struct{}, len(w.Variables))

	for _, variable := range w.Variables {
		if _, exists := names[variable.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateVariable, variable.Name)
		}

		names[variable.Name] = struct{}{}

		if err := variable.CheckDefault(); err != nil {
			return err
		}
	}

	return nil
}

// CheckDefault verifies the default value's runtime kind against the
// declared type. Null defaults are rejected rather than classified.
func (v *WorkflowVariable) CheckDefault() error {
	if v.Default == nil {
		return fmt.Errorf("%w: %s has null default", ErrInvalidDefault, v.Name)
	}

	ok := false

	switch v.Type {
	case VariableTypeString:
		_, ok = v.Default.(string)
	case VariableTypeNumber:
		switch v.Default.(type) {
		case float64, float32, int, int32, int64:
			ok = true
		}
	case VariableTypeBoolean:
		_, ok = v.Default.(bool)
	case VariableTypeObject:
		_, ok = v.Default.(map[string]any)
	case VariableTypeArray:
		_, ok = v.Default.([]any)
	}

	if !ok {
		return fmt.Errorf("%w: %s declared %s, default is %T", ErrInvalidDefault, v.Name, v.Type, v.Default)
	}

	return nil
}

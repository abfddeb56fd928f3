package models

import (
	"encoding/json"
	"fmt"
)

// InputKind discriminates the three ways a node parameter can be supplied.
type InputKind string

const (
	InputKindLiteral  InputKind = "literal"
	InputKindVariable InputKind = "variable"
	InputKindNode     InputKind = "node"
)

// NodeInput is one declared parameter of a ToolNode: a literal value, a
// reference to a workflow variable, or a reference to an upstream node's
// output (optionally a single field of it).
type NodeInput struct {
	Kind InputKind `json:"type"`

	// Literal inputs.
	Value any `json:"value,omitempty"`

	// Variable references.
	Name string `json:"name,omitempty"`

	// Node output references.
	Node  string `json:"node,omitempty"`
	Field string `json:"field,omitempty"`
}

// LiteralInput builds a literal NodeInput.
func LiteralInput(value any) NodeInput {
	return NodeInput{Kind: InputKindLiteral, Value: value}
}

// VariableInput builds a variable-reference NodeInput.
func VariableInput(name string) NodeInput {
	return NodeInput{Kind: InputKindVariable, Name: name}
}

// NodeOutputInput builds a node-output-reference NodeInput. field may be
// empty to reference the whole output map.
func NodeOutputInput(node, field string) NodeInput {
	return NodeInput{Kind: InputKindNode, Node: node, Field: field}
}

// UnmarshalJSON validates the discriminator so malformed definitions fail at
// decode time rather than mid-execution.
func (i *NodeInput) UnmarshalJSON(data []byte) error {
	type alias NodeInput

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case InputKindLiteral, InputKindVariable, InputKindNode:
	case "":
		return fmt.Errorf("node input missing 'type' discriminator")
	default:
		return fmt.Errorf("unknown node input type %q", raw.Kind)
	}

	*i = NodeInput(raw)

	return nil
}

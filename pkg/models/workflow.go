// Package models defines the core domain models for graph-based workflow execution.
package models

import "time"

// WorkflowDefinition is the immutable declarative graph a single execution
// runs against. It is loaded fresh at execution start; edits to the stored
// definition never affect an in-flight run.
type WorkflowDefinition struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"        validate:"required,min=3"`
	Description string              `json:"description"`
	OwnerID     string              `json:"owner_id"    validate:"required"`
	ToolspaceID string              `json:"toolspace_id,omitempty"`
	Enabled     bool                `json:"enabled"`
	Nodes       []*ToolNode         `json:"nodes"`
	Edges       []*WorkflowEdge     `json:"edges"`
	Variables   []*WorkflowVariable `json:"variables"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ToolNode is one tool invocation within the graph.
type ToolNode struct {
	ID     string               `json:"id"      validate:"required"`
	Name   string               `json:"name"`
	ToolID string               `json:"tool_id" validate:"required"`
	Inputs map[string]NodeInput `json:"inputs"`
}

// WorkflowEdge declares that To depends on From reaching a terminal state
// before it may run, and may carry From's output into To's input resolution.
type WorkflowEdge struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to"   validate:"required"`
}

// VariableType is the declared type of a workflow variable. Types are fixed
// at authoring time, never inferred from the default's runtime kind.
type VariableType string

const (
	VariableTypeString  VariableType = "string"
	VariableTypeNumber  VariableType = "number"
	VariableTypeBoolean VariableType = "boolean"
	VariableTypeObject  VariableType = "object"
	VariableTypeArray   VariableType = "array"
)

// WorkflowVariable declares a named input with a default. Trigger-supplied
// values override the default at execution time.
type WorkflowVariable struct {
	Name    string       `json:"name" validate:"required"`
	Type    VariableType `json:"type" validate:"required,oneof=string number boolean object array"`
	Default any          `json:"default"`
}

// NodeByID returns the node with the given id, or nil.
func (w *WorkflowDefinition) NodeByID(id string) *ToolNode {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

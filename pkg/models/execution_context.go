package models

// ExecutionContext is the ephemeral state of one engine run. It is owned
// exclusively by a single Execute call and discarded when it returns.
type ExecutionContext struct {
	ID          string                 `json:"id"`
	WorkflowID  string                 `json:"workflow_id"`
	Trigger     Trigger                `json:"trigger"`
	Variables   map[string]any         `json:"variables,omitempty"`
	NodeResults map[string]*NodeResult `json:"node_results,omitempty"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}

package models

import "time"

// TriggerType identifies what started an execution.
type TriggerType string

const (
	TriggerTypeManual    TriggerType = "manual"
	TriggerTypeScheduled TriggerType = "scheduled"
	TriggerTypeWebhook   TriggerType = "webhook"
)

// Trigger describes the event that starts one execution: its type, the user
// responsible when one exists, and variable overrides merged over the
// definition's declared defaults.
type Trigger struct {
	Type      TriggerType    `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// NodeStatus is the terminal state of one node within an execution.
type NodeStatus string

const (
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusFailed  NodeStatus = "failed"
	NodeStatusSkipped NodeStatus = "skipped"
)

// NodeResult records the outcome of one node. Written exactly once per node
// per execution.
type NodeResult struct {
	NodeID      string         `json:"node_id"`
	Status      NodeStatus     `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
}

// ExecutionStatus is the lifecycle state of a persisted execution record.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ExecutionResult is what the engine returns to its caller. The caller owns
// persistence; the engine only computes it.
type ExecutionResult struct {
	Status      ExecutionStatus        `json:"status"`
	NodeResults map[string]*NodeResult `json:"node_results"`
	Error       string                 `json:"error,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

// Execution is the persisted record of one run. It is written at three
// points: created pending, updated to running, updated to a terminal state.
type Execution struct {
	ID          string                 `json:"id"`
	WorkflowID  string                 `json:"workflow_id"`
	Status      ExecutionStatus        `json:"status"`
	TriggerType TriggerType            `json:"trigger_type"`
	TriggeredBy string                 `json:"triggered_by,omitempty"`
	Variables   map[string]any         `json:"variables,omitempty"`
	NodeResults map[string]*NodeResult `json:"node_results,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// Terminal reports whether the execution has reached a final state.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

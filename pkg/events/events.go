// Package events defines event types published over the execution lifecycle.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/thomasdavis/generous/pkg/models"
)

type EventType string

// Topic carries every execution lifecycle event.
const Topic = "generous.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	NodeFinishedEvent       EventType = "execution.node.finished"
	QuotaExceededEvent      EventType = "toolspace.quota.exceeded"
	ToolDeniedEvent         EventType = "toolspace.tool.denied"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a fresh event envelope.
func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// ExecutionStarted signals that a pending execution moved to running.
type ExecutionStarted struct {
	BaseEvent

	ExecutionID string             `json:"execution_id"`
	TriggerType models.TriggerType `json:"trigger_type"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

// NodeFinished carries the terminal status of a single node.
type NodeFinished struct {
	BaseEvent

	ExecutionID string            `json:"execution_id"`
	NodeID      string            `json:"node_id"`
	ToolID      string            `json:"tool_id"`
	Status      models.NodeStatus `json:"status"`
	Error       string            `json:"error,omitempty"`
}

func (e NodeFinished) GetType() EventType {
	return NodeFinishedEvent
}

// ExecutionCompleted signals a run in which no node failed.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ExecutionFailed signals a run with at least one failed node, a cyclic
// definition, or an interrupted record.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// QuotaExceeded signals that the gate refused an invocation because a
// usage limit was reached.
type QuotaExceeded struct {
	BaseEvent

	ToolspaceID string `json:"toolspace_id"`
	UserID      string `json:"user_id"`
	ToolID      string `json:"tool_id"`
	Metric      string `json:"metric"`
}

func (e QuotaExceeded) GetType() EventType {
	return QuotaExceededEvent
}

// ToolDenied signals that the gate refused an invocation on policy grounds.
type ToolDenied struct {
	BaseEvent

	ToolspaceID string `json:"toolspace_id"`
	UserID      string `json:"user_id"`
	ToolID      string `json:"tool_id"`
	Reason      string `json:"reason"`
}

func (e ToolDenied) GetType() EventType {
	return ToolDeniedEvent
}

package types

import "time"

type EventType string

const (
	EventRunStarted    EventType = "run.started"
	EventRunCompleted  EventType = "run.completed"
	EventRunFailed     EventType = "run.failed"
	EventNodeStarted   EventType = "graph.node.started"
	EventNodeCompleted EventType = "graph.node.completed"
	EventNodeSkipped   EventType = "graph.node.skipped"
	EventNodeFailed    EventType = "graph.node.failed"
)

type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"runId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Workflow  string    `json:"workflow,omitempty"`
	NodeID    string    `json:"nodeId,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

package state

import "time"

type RunRecord struct {
	RunID       string         `json:"runId"`
	SessionID   string         `json:"sessionId"`
	Workflow    string         `json:"workflow"`
	Status      string         `json:"status"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type CheckpointRecord struct {
	RunID     string         `json:"runId"`
	Seq       int            `json:"seq"`
	NodeID    string         `json:"nodeId"`
	State     map[string]any `json:"state,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

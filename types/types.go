package types

import "time"

// RunResult is the final product of one workflow run: the declared
// workflow outputs read back from run state, plus execution metadata.
type RunResult struct {
	Outputs     map[string]any    `json:"outputs"`
	Workflow    string            `json:"workflow,omitempty"`
	RunID       string            `json:"runId,omitempty"`
	SessionID   string            `json:"sessionId,omitempty"`
	NodeTrace   []string          `json:"nodeTrace,omitempty"`
	Skipped     []string          `json:"skipped,omitempty"`
	NodeErrors  map[string]string `json:"nodeErrors,omitempty"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Events      []Event           `json:"events,omitempty"`
}

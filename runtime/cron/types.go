package cron

import "time"

// JobConfig names the workflow a scheduled job runs and the inputs it
// runs with. SessionID groups the resulting runs in the state store.
type JobConfig struct {
	Workflow  string         `json:"workflow"`
	Inputs    map[string]any `json:"inputs,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
}

// Job represents a recurring scheduled workflow run.
type Job struct {
	Name      string    `json:"name"`
	CronExpr  string    `json:"cronExpr"`
	Config    JobConfig `json:"config"`
	Enabled   bool      `json:"enabled"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	NextRun   time.Time `json:"nextRun,omitempty"`
	LastRunID string    `json:"lastRunId,omitempty"`
	LastErr   string    `json:"lastError,omitempty"`
	RunCount  int       `json:"runCount"`
}

// JobRun is one entry in a job's run history.
type JobRun struct {
	At         time.Time `json:"at"`
	DurationMS int64     `json:"durationMs"`
	Trigger    string    `json:"trigger"`
	Status     string    `json:"status"`
	RunID      string    `json:"runId,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// RunFunc executes one scheduled workflow run and returns its run ID.
type RunFunc func(cfg JobConfig) (string, error)

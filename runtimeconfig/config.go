// Package runtimeconfig loads the engine's JSON run configuration: the
// workflow to execute, provider and model selection, optional inputs,
// and any cron schedules.
package runtimeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Schedule struct {
	Name     string         `json:"name"`
	CronExpr string         `json:"cronExpr"`
	Inputs   map[string]any `json:"inputs,omitempty"`
}

type Config struct {
	Workflow     string         `json:"workflow"`
	WorkflowFile string         `json:"workflowFile"`
	Provider     string         `json:"provider"`
	Model        string         `json:"model"`
	SessionID    string         `json:"sessionId"`
	Inputs       map[string]any `json:"inputs,omitempty"`
	Schedules    []Schedule     `json:"schedules,omitempty"`
}

func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Config{}, fmt.Errorf("config path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", absPath, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config file %q as JSON: %w", absPath, err)
	}

	cfg.Workflow = strings.TrimSpace(cfg.Workflow)
	cfg.WorkflowFile = strings.TrimSpace(cfg.WorkflowFile)
	cfg.Provider = strings.TrimSpace(cfg.Provider)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.SessionID = strings.TrimSpace(cfg.SessionID)

	cleanSchedules := make([]Schedule, 0, len(cfg.Schedules))
	for i, sched := range cfg.Schedules {
		sched.Name = strings.TrimSpace(sched.Name)
		sched.CronExpr = strings.TrimSpace(sched.CronExpr)
		if sched.Name == "" || sched.CronExpr == "" {
			return Config{}, fmt.Errorf("schedule %d needs a name and a cron expression", i)
		}
		cleanSchedules = append(cleanSchedules, sched)
	}
	cfg.Schedules = cleanSchedules
	return cfg, nil
}

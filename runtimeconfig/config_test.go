package runtimeconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Config(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.json")
	content := `{
  "workflow": "vuln-scan",
  "provider": " openai ",
  "model": "o4-mini",
  "sessionId": "team-a",
  "inputs": {"fileTree": {"data": {"files": []}}},
  "schedules": [{"name": "nightly", "cronExpr": "0 2 * * *"}]
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workflow != "vuln-scan" {
		t.Fatalf("unexpected workflow: %q", cfg.Workflow)
	}
	if cfg.Provider != "openai" {
		t.Fatalf("provider should be trimmed: %q", cfg.Provider)
	}
	if cfg.Model != "o4-mini" || cfg.SessionID != "team-a" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
	if _, ok := cfg.Inputs["fileTree"]; !ok {
		t.Fatalf("unexpected inputs: %#v", cfg.Inputs)
	}
	if len(cfg.Schedules) != 1 || cfg.Schedules[0].CronExpr != "0 2 * * *" {
		t.Fatalf("unexpected schedules: %#v", cfg.Schedules)
	}
}

func TestLoad_SchedulesNeedNameAndExpr(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.json")
	content := `{"workflow":"vuln-scan","schedules":[{"name":"nightly"}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected schedule validation error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{bad"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	if _, err := Load("  "); err == nil {
		t.Fatalf("expected path error")
	}
}

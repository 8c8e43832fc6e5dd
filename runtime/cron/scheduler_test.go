package cron

import (
	"errors"
	"testing"
)

func TestScheduler_AddValidation(t *testing.T) {
	s := New(func(JobConfig) (string, error) { return "", nil })

	if err := s.Add("", "* * * * *", JobConfig{Workflow: "vuln-scan"}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := s.Add("nightly", "* * * * *", JobConfig{}); err == nil {
		t.Fatal("expected error for missing workflow")
	}
	if err := s.Add("nightly", "not a cron expr", JobConfig{Workflow: "vuln-scan"}); err == nil {
		t.Fatal("expected error for invalid expression")
	}
	if err := s.Add("nightly", "0 2 * * *", JobConfig{Workflow: "vuln-scan"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add("nightly", "0 2 * * *", JobConfig{Workflow: "vuln-scan"}); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestScheduler_TriggerRecordsRun(t *testing.T) {
	var gotCfg JobConfig
	s := New(func(cfg JobConfig) (string, error) {
		gotCfg = cfg
		return "run-123", nil
	})
	if err := s.Add("nightly", "0 2 * * *", JobConfig{Workflow: "vuln-scan", SessionID: "team-a"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	runID, err := s.Trigger("nightly")
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if runID != "run-123" {
		t.Fatalf("unexpected run ID %q", runID)
	}
	if gotCfg.Workflow != "vuln-scan" || gotCfg.SessionID != "team-a" {
		t.Fatalf("run func got wrong config: %#v", gotCfg)
	}

	job, ok := s.Get("nightly")
	if !ok {
		t.Fatal("job disappeared")
	}
	if job.RunCount != 1 || job.LastRunID != "run-123" || job.LastErr != "" {
		t.Fatalf("unexpected job state: %#v", job)
	}

	history, err := s.History("nightly", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Status != "completed" || history[0].RunID != "run-123" {
		t.Fatalf("unexpected history: %#v", history)
	}
}

func TestScheduler_TriggerRecordsFailure(t *testing.T) {
	s := New(func(JobConfig) (string, error) {
		return "", errors.New("provider unavailable")
	})
	if err := s.Add("nightly", "0 2 * * *", JobConfig{Workflow: "vuln-scan"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if _, err := s.Trigger("nightly"); err == nil {
		t.Fatal("expected run error")
	}
	job, _ := s.Get("nightly")
	if job.LastErr != "provider unavailable" {
		t.Fatalf("unexpected last error: %q", job.LastErr)
	}
	history, _ := s.History("nightly", 1)
	if len(history) != 1 || history[0].Status != "failed" {
		t.Fatalf("unexpected history: %#v", history)
	}
}

func TestScheduler_RemoveAndList(t *testing.T) {
	s := New(func(JobConfig) (string, error) { return "", nil })
	for _, name := range []string{"b-job", "a-job"} {
		if err := s.Add(name, "0 2 * * *", JobConfig{Workflow: "vuln-scan"}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	jobs := s.List()
	if len(jobs) != 2 || jobs[0].Name != "a-job" {
		t.Fatalf("expected sorted jobs, got %#v", jobs)
	}

	if err := s.Remove("a-job"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Remove("a-job"); err == nil {
		t.Fatal("expected error removing missing job")
	}
	if _, ok := s.Get("a-job"); ok {
		t.Fatal("removed job still visible")
	}
}

func TestScheduler_DisabledJobSkipsScheduledRun(t *testing.T) {
	calls := 0
	s := New(func(JobConfig) (string, error) {
		calls++
		return "run-1", nil
	})
	if err := s.Add("nightly", "0 2 * * *", JobConfig{Workflow: "vuln-scan"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.SetEnabled("nightly", false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	s.executeJob("nightly")
	if calls != 0 {
		t.Fatalf("disabled job still ran %d times", calls)
	}

	// Manual trigger ignores the enabled flag.
	if _, err := s.Trigger("nightly"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one manual run, got %d", calls)
	}
}

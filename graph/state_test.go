package graph

import (
	"errors"
	"testing"
)

func TestRunState_PutGet(t *testing.T) {
	rs := NewRunState()
	if err := rs.Put("a", "out", "hello"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, ok := rs.Get("a", "out")
	if !ok || value != "hello" {
		t.Fatalf("unexpected value: %v (found=%v)", value, ok)
	}
	if _, ok := rs.Get("a", "missing"); ok {
		t.Fatal("expected missing output to not be found")
	}
	if _, ok := rs.Get("ghost", "out"); ok {
		t.Fatal("expected unknown node to not be found")
	}
}

func TestRunState_DuplicateWriteFailsFast(t *testing.T) {
	rs := NewRunState()
	if err := rs.Put("a", "out", 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	err := rs.Put("a", "out", 2)
	if !errors.Is(err, ErrDuplicateOutput) {
		t.Fatalf("expected ErrDuplicateOutput, got %v", err)
	}
	// First write survives.
	value, _ := rs.Get("a", "out")
	if value != 1 {
		t.Fatalf("expected original value to survive, got %v", value)
	}
}

func TestRunState_SnapshotRestore(t *testing.T) {
	rs := NewRunState()
	_ = rs.Put("a", "text", "raw output")
	_ = rs.Put("a", "json", map[string]any{"k": "v"})
	_ = rs.Put("b", "value", float64(42))

	snapshot, err := rs.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	restored, err := RestoreRunState(snapshot)
	if err != nil {
		t.Fatalf("RestoreRunState failed: %v", err)
	}
	if v, _ := restored.Get("a", "text"); v != "raw output" {
		t.Fatalf("unexpected restored value: %v", v)
	}
	if v, _ := restored.Get("b", "value"); v != float64(42) {
		t.Fatalf("unexpected restored value: %v", v)
	}
	if err := restored.Put("a", "text", "again"); !errors.Is(err, ErrDuplicateOutput) {
		t.Fatalf("expected restored registry to keep write-once semantics, got %v", err)
	}
}

func TestRunState_NodeOutputsCopies(t *testing.T) {
	rs := NewRunState()
	_ = rs.Put("a", "out", "v")
	outs, ok := rs.NodeOutputs("a")
	if !ok {
		t.Fatal("expected node outputs")
	}
	outs["out"] = "mutated"
	if v, _ := rs.Get("a", "out"); v != "v" {
		t.Fatalf("registry must not observe caller mutation, got %v", v)
	}
}

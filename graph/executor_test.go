package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/eatingfood142434/Hackthe6ix/state"
)

type memoryStore struct {
	mu          sync.Mutex
	runs        map[string]state.RunRecord
	checkpoints map[string][]state.CheckpointRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		runs:        map[string]state.RunRecord{},
		checkpoints: map[string][]state.CheckpointRecord{},
	}
}

func (m *memoryStore) SaveRun(ctx context.Context, run state.RunRecord) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.RunID] = run
	return nil
}

func (m *memoryStore) LoadRun(ctx context.Context, runID string) (state.RunRecord, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return state.RunRecord{}, state.ErrNotFound
	}
	return run, nil
}

func (m *memoryStore) ListRuns(ctx context.Context, query state.ListRunsQuery) ([]state.RunRecord, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]state.RunRecord, 0, len(m.runs))
	for _, run := range m.runs {
		if query.SessionID != "" && run.SessionID != query.SessionID {
			continue
		}
		if query.Status != "" && run.Status != query.Status {
			continue
		}
		out = append(out, run)
	}
	return out, nil
}

func (m *memoryStore) SaveCheckpoint(ctx context.Context, checkpoint state.CheckpointRecord) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.checkpoints[checkpoint.RunID]
	for _, e := range existing {
		if e.Seq == checkpoint.Seq {
			return state.ErrConflict
		}
	}
	m.checkpoints[checkpoint.RunID] = append(existing, checkpoint)
	return nil
}

func (m *memoryStore) LoadLatestCheckpoint(ctx context.Context, runID string) (state.CheckpointRecord, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.checkpoints[runID]
	if len(items) == 0 {
		return state.CheckpointRecord{}, state.ErrNotFound
	}
	latest := items[0]
	for i := 1; i < len(items); i++ {
		if items[i].Seq > latest.Seq {
			latest = items[i]
		}
	}
	return latest, nil
}

func (m *memoryStore) ListCheckpoints(ctx context.Context, runID string, limit int) ([]state.CheckpointRecord, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]state.CheckpointRecord(nil), m.checkpoints[runID]...)
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (m *memoryStore) Close() error { return nil }

func echoNode() *TransformNode {
	return NewTransformNode(func(_ context.Context, in Inputs) (Outputs, error) {
		out := Outputs{}
		for k, v := range in {
			out[k] = v
		}
		return out, nil
	})
}

func TestRun_FanOutDeliversToAllDestinations(t *testing.T) {
	g := New("fanout")
	g.AddNode("a", passNode("out", "shared"))
	g.AddNode("b", echoNode())
	g.AddNode("c", echoNode())
	g.AddNode("out-b", &OutputNode{Name: "left"})
	g.AddNode("out-c", &OutputNode{Name: "right"})
	g.FanOut("a", "b", "c")
	g.AddEdge("b", "out-b")
	g.AddEdge("c", "out-c")
	g.BindInput("b", "x", FromNodeOutput("a", "out"))
	g.BindInput("c", "x", FromNodeOutput("a", "out"))
	g.BindInput("out-b", "value", FromNodeOutput("b", "x"))
	g.BindInput("out-c", "value", FromNodeOutput("c", "x"))

	e, err := NewExecutor(g)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	result, err := e.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outputs["left"] != "shared" || result.Outputs["right"] != "shared" {
		t.Fatalf("fan-out did not reach both branches: %#v", result.Outputs)
	}
}

func TestRun_FanInWaitsForBothUpstreams(t *testing.T) {
	order := []string{}
	mk := func(id string) *TransformNode {
		return NewTransformNode(func(_ context.Context, _ Inputs) (Outputs, error) {
			order = append(order, id)
			return Outputs{"out": id}, nil
		})
	}
	g := New("fanin")
	g.AddNode("c", NewTransformNode(func(_ context.Context, in Inputs) (Outputs, error) {
		order = append(order, "c")
		return Outputs{"joined": fmt.Sprintf("%v+%v", in["left"], in["right"])}, nil
	}))
	g.AddNode("a", mk("a"))
	g.AddNode("b", mk("b"))
	g.AddEdge("a", "c")
	g.AddEdge("b", "c")
	g.BindInput("c", "left", FromNodeOutput("a", "out"))
	g.BindInput("c", "right", FromNodeOutput("b", "out"))

	e, err := NewExecutor(g)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	if _, err := e.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("fan-in node must run after both upstreams; got order %v", order)
	}
}

func TestRun_FanInSkipsWhenOneUpstreamFails(t *testing.T) {
	cRan := false
	g := New("fanin-fail")
	g.AddNode("a", passNode("out", "a"))
	g.AddNode("b", NewTransformNode(func(_ context.Context, _ Inputs) (Outputs, error) {
		return nil, errors.New("boom")
	}))
	g.AddNode("c", NewTransformNode(func(_ context.Context, _ Inputs) (Outputs, error) {
		cRan = true
		return Outputs{"out": "c"}, nil
	}))
	g.AddEdge("a", "c")
	g.AddEdge("b", "c")
	g.BindInput("c", "left", FromNodeOutput("a", "out"))
	g.BindInput("c", "right", FromNodeOutput("b", "out"))

	e, err := NewExecutor(g, WithFailurePolicy(ContinueOnError))
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	result, err := e.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if cRan {
		t.Fatal("fan-in node must not execute when an upstream produced no output")
	}
	if result.NodeErrors["b"] == "" {
		t.Fatalf("expected recorded error for b: %#v", result.NodeErrors)
	}
	found := false
	for _, id := range result.Skipped {
		if id == "c" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected c to be reported skipped: %v", result.Skipped)
	}
}

func TestRun_FailFastAbortsRun(t *testing.T) {
	downstream := false
	g := New("failfast")
	g.AddNode("a", NewTransformNode(func(_ context.Context, _ Inputs) (Outputs, error) {
		return nil, errors.New("boom")
	}))
	g.AddNode("b", NewTransformNode(func(_ context.Context, _ Inputs) (Outputs, error) {
		downstream = true
		return Outputs{"out": "b"}, nil
	}))
	g.AddEdge("a", "b")

	e, err := NewExecutor(g)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	if _, err := e.Run(context.Background(), nil); err == nil {
		t.Fatal("expected run to fail")
	}
	if downstream {
		t.Fatal("downstream node must not run after abort")
	}
}

func TestRun_UnresolvedWorkflowInputIsFatal(t *testing.T) {
	g := New("unresolved")
	g.AddNode("a", echoNode())
	g.BindInput("a", "x", FromWorkflowInput("missing"))

	e, err := NewExecutor(g, WithFailurePolicy(ContinueOnError))
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	_, err = e.Run(context.Background(), map[string]any{})
	if !errors.Is(err, ErrUnresolvedBinding) {
		t.Fatalf("expected ErrUnresolvedBinding even under continue policy, got %v", err)
	}
}

func TestRun_MissingUpstreamOutputIsFatal(t *testing.T) {
	g := New("missing-output")
	g.AddNode("a", passNode("out", "v"))
	g.AddNode("b", echoNode())
	g.AddEdge("a", "b")
	g.BindInput("b", "x", FromNodeOutput("a", "never-produced"))

	e, err := NewExecutor(g)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	_, err = e.Run(context.Background(), nil)
	if !errors.Is(err, ErrUnresolvedBinding) {
		t.Fatalf("expected ErrUnresolvedBinding, got %v", err)
	}
}

func TestRun_PortRoutingSkipsUnfiredBranch(t *testing.T) {
	g := New("routing")
	g.AddNode("route", NewSwitchNode(func(_ context.Context, in Inputs) (string, error) {
		return in["which"].(string), nil
	}))
	g.AddNode("high", passNode("out", "high-path"))
	g.AddNode("low", passNode("out", "low-path"))
	g.AddNode("out-high", &OutputNode{Name: "result-high"})
	g.AddNode("out-low", &OutputNode{Name: "result-low"})
	g.AddPortEdge("route", "high", "high")
	g.AddPortEdge("route", "low", "low")
	g.AddEdge("high", "out-high")
	g.AddEdge("low", "out-low")
	g.BindInput("route", "which", FromWorkflowInput("which"))
	g.BindInput("out-high", "value", FromNodeOutput("high", "out"))
	g.BindInput("out-low", "value", FromNodeOutput("low", "out"))

	e, err := NewExecutor(g)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	result, err := e.Run(context.Background(), map[string]any{"which": "high"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outputs["result-high"] != "high-path" {
		t.Fatalf("expected high branch output: %#v", result.Outputs)
	}
	if _, ok := result.Outputs["result-low"]; ok {
		t.Fatalf("low branch must not produce output: %#v", result.Outputs)
	}
}

func TestRun_ResultMatchesRunStateVerbatim(t *testing.T) {
	payload := map[string]any{"files": []any{"a.py"}}
	g := New("roundtrip")
	g.AddNode("a", NewTransformNode(func(_ context.Context, _ Inputs) (Outputs, error) {
		return Outputs{"out": payload}, nil
	}))
	g.AddNode("o", &OutputNode{Name: "final"})
	g.AddEdge("a", "o")
	g.BindInput("o", "value", FromNodeOutput("a", "out"))

	e, err := NewExecutor(g)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	result, err := e.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got, ok := result.Outputs["final"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected output type: %#v", result.Outputs["final"])
	}
	files, ok := got["files"].([]any)
	if !ok || len(files) != 1 || files[0] != "a.py" {
		t.Fatalf("output value was not passed through unchanged: %#v", got)
	}
}

func TestRun_PersistsRunAndCheckpoints(t *testing.T) {
	store := newMemoryStore()
	g := New("persisted")
	g.AddNode("a", passNode("out", "v"))
	g.AddNode("b", echoNode())
	g.AddEdge("a", "b")
	g.BindInput("b", "x", FromNodeOutput("a", "out"))

	e, err := NewExecutor(g, WithStore(store), WithSessionID("sess-1"))
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	result, err := e.Run(context.Background(), map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	run, err := store.LoadRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if run.Status != "completed" || run.SessionID != "sess-1" {
		t.Fatalf("unexpected run record: %#v", run)
	}
	checkpoints, err := store.ListCheckpoints(context.Background(), result.RunID, 0)
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(checkpoints) != 2 {
		t.Fatalf("expected one checkpoint per executed node, got %d", len(checkpoints))
	}
}

func TestResume_ContinuesFromCheckpoint(t *testing.T) {
	store := newMemoryStore()
	shouldFail := true
	g := New("resumable")
	g.AddNode("a", passNode("out", "first"))
	g.AddNode("b", NewTransformNode(func(_ context.Context, in Inputs) (Outputs, error) {
		if shouldFail {
			return nil, errors.New("transient")
		}
		return Outputs{"out": fmt.Sprintf("second:%v", in["x"])}, nil
	}))
	g.AddNode("o", &OutputNode{Name: "final"})
	g.Chain("a", "b", "o")
	g.BindInput("b", "x", FromNodeOutput("a", "out"))
	g.BindInput("o", "value", FromNodeOutput("b", "out"))

	e, err := NewExecutor(g, WithStore(store))
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	_, err = e.Run(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("expected first run to fail")
	}

	var runID string
	runs, _ := store.ListRuns(context.Background(), state.ListRunsQuery{})
	for _, r := range runs {
		runID = r.RunID
	}
	if runID == "" {
		t.Fatal("expected a persisted run")
	}

	shouldFail = false
	result, err := e.Resume(context.Background(), runID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if result.Outputs["final"] != "second:first" {
		t.Fatalf("unexpected resumed output: %#v", result.Outputs)
	}
}

func TestRun_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := New("cancelled")
	g.AddNode("a", NewTransformNode(func(_ context.Context, _ Inputs) (Outputs, error) {
		cancel()
		return Outputs{"out": "v"}, nil
	}))
	g.AddNode("b", echoNode())
	g.AddEdge("a", "b")

	e, err := NewExecutor(g)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	if _, err := e.Run(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithRetry_RecoversTransientFailure(t *testing.T) {
	attempts := 0
	inner := NewTransformNode(func(_ context.Context, _ Inputs) (Outputs, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return Outputs{"out": "ok"}, nil
	})
	node := WithRetry(inner, RetryPolicy{MaxAttempts: 3, BaseBackoff: 1, MaxBackoff: 2})

	out, err := node.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out["out"] != "ok" || attempts != 3 {
		t.Fatalf("unexpected retry behavior: out=%v attempts=%d", out, attempts)
	}
}

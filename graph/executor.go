package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eatingfood142434/Hackthe6ix/observe"
	"github.com/eatingfood142434/Hackthe6ix/state"
	"github.com/eatingfood142434/Hackthe6ix/types"
)

// FailurePolicy controls what the executor does when a node fails.
type FailurePolicy string

const (
	// FailFast aborts the run on the first node failure.
	FailFast FailurePolicy = "fail_fast"
	// ContinueOnError records the failure, skips the failing node's
	// dependents, and keeps executing independent branches.
	ContinueOnError FailurePolicy = "continue"
)

type Executor struct {
	graph     *Graph
	store     state.Store
	sessionID string
	observer  observe.Sink
	policy    FailurePolicy
}

type ExecutorOption func(*Executor)

func WithStore(store state.Store) ExecutorOption {
	return func(e *Executor) { e.store = store }
}

func WithSessionID(sessionID string) ExecutorOption {
	return func(e *Executor) {
		if sessionID != "" {
			e.sessionID = sessionID
		}
	}
}

func WithObserver(observer observe.Sink) ExecutorOption {
	return func(e *Executor) { e.observer = observer }
}

// SetObserver replaces the executor's event sink. Useful when the
// executor was built by a registry builder that does not take one.
func (e *Executor) SetObserver(observer observe.Sink) {
	e.observer = observer
}

func WithFailurePolicy(policy FailurePolicy) ExecutorOption {
	return func(e *Executor) {
		if policy != "" {
			e.policy = policy
		}
	}
}

func NewExecutor(graph *Graph, opts ...ExecutorOption) (*Executor, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if err := graph.Compile(); err != nil {
		return nil, err
	}
	executor := &Executor{graph: graph, policy: FailFast}
	for _, opt := range opts {
		opt(executor)
	}
	return executor, nil
}

// run bookkeeping carried across one walk of the topological order.
type runPass struct {
	state    *RunState
	inputs   map[string]any
	fired    map[string]bool
	executed map[string]bool
	skipped  []string
	trace    []string
	nodeErrs map[string]string
	seq      int
}

// Run executes every reachable node in topological order and returns
// the declared workflow outputs.
func (e *Executor) Run(ctx context.Context, inputs map[string]any) (types.RunResult, error) {
	if e == nil || e.graph == nil {
		return types.RunResult{}, fmt.Errorf("executor is not initialized")
	}
	if inputs == nil {
		inputs = map[string]any{}
	}

	runID := uuid.NewString()
	sessionID := e.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	pass := &runPass{
		state:    NewRunState(),
		inputs:   inputs,
		fired:    map[string]bool{},
		executed: map[string]bool{},
		nodeErrs: map[string]string{},
		seq:      1,
	}
	for _, id := range e.graph.entrypoints {
		pass.fired[id] = true
	}
	return e.execute(ctx, runID, sessionID, time.Now().UTC(), pass)
}

// Resume restores the latest checkpoint of an interrupted run and
// continues from the first node that has not executed.
func (e *Executor) Resume(ctx context.Context, runID string) (types.RunResult, error) {
	if e == nil || e.graph == nil {
		return types.RunResult{}, fmt.Errorf("executor is not initialized")
	}
	if runID == "" {
		return types.RunResult{}, fmt.Errorf("runID is required")
	}
	if e.store == nil {
		return types.RunResult{}, fmt.Errorf("state store is required for resume")
	}

	run, err := e.store.LoadRun(ctx, runID)
	if err != nil {
		return types.RunResult{}, err
	}
	if run.Status == "completed" {
		return types.RunResult{
			Outputs:   run.Outputs,
			Workflow:  run.Workflow,
			RunID:     run.RunID,
			SessionID: run.SessionID,
		}, nil
	}

	checkpoint, err := e.store.LoadLatestCheckpoint(ctx, runID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return types.RunResult{}, fmt.Errorf("no checkpoints found for run %q", runID)
		}
		return types.RunResult{}, err
	}

	pass, err := restorePass(checkpoint, run.Inputs)
	if err != nil {
		return types.RunResult{}, err
	}
	for _, id := range e.graph.entrypoints {
		pass.fired[id] = true
	}

	startedAt := time.Now().UTC()
	if run.CreatedAt != nil {
		startedAt = run.CreatedAt.UTC()
	}
	return e.execute(ctx, run.RunID, run.SessionID, startedAt, pass)
}

func (e *Executor) execute(ctx context.Context, runID, sessionID string, startedAt time.Time, pass *runPass) (types.RunResult, error) {
	if err := e.persistRun(ctx, runID, sessionID, pass, "running", startedAt, nil, nil); err != nil {
		return types.RunResult{}, err
	}

	events := []types.Event{}
	record := func(event types.Event) {
		events = append(events, event)
		e.emitRuntimeEvent(ctx, event)
	}

	record(types.Event{
		Type:      types.EventRunStarted,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		SessionID: sessionID,
		Workflow:  e.graph.Name(),
		Message:   "workflow run started",
	})

	abort := func(runErr error) (types.RunResult, error) {
		record(types.Event{
			Type:      types.EventRunFailed,
			Timestamp: time.Now().UTC(),
			RunID:     runID,
			SessionID: sessionID,
			Workflow:  e.graph.Name(),
			Error:     runErr.Error(),
			Message:   "workflow run failed",
		})
		completedAt := time.Now().UTC()
		errText := runErr.Error()
		_ = e.persistRun(ctx, runID, sessionID, pass, "failed", startedAt, &errText, &completedAt)
		return types.RunResult{}, runErr
	}

	for _, nodeID := range e.graph.topo {
		if pass.executed[nodeID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		if !pass.fired[nodeID] {
			pass.skipped = append(pass.skipped, nodeID)
			record(types.Event{
				Type:      types.EventNodeSkipped,
				Timestamp: time.Now().UTC(),
				RunID:     runID,
				SessionID: sessionID,
				Workflow:  e.graph.Name(),
				NodeID:    nodeID,
			})
			continue
		}

		resolved, unresolvable, err := e.resolveBindings(nodeID, pass)
		if err != nil {
			return abort(err)
		}
		if unresolvable {
			// An upstream the node binds on failed or was skipped.
			pass.skipped = append(pass.skipped, nodeID)
			record(types.Event{
				Type:      types.EventNodeSkipped,
				Timestamp: time.Now().UTC(),
				RunID:     runID,
				SessionID: sessionID,
				Workflow:  e.graph.Name(),
				NodeID:    nodeID,
				Message:   "upstream output absent",
			})
			continue
		}

		record(types.Event{
			Type:      types.EventNodeStarted,
			Timestamp: time.Now().UTC(),
			RunID:     runID,
			SessionID: sessionID,
			Workflow:  e.graph.Name(),
			NodeID:    nodeID,
		})

		node := e.graph.nodes[nodeID]
		out, execErr := node.Execute(ctx, resolved)
		if execErr == nil {
			execErr = e.commitOutputs(pass.state, nodeID, out)
		}
		if execErr != nil {
			pass.nodeErrs[nodeID] = execErr.Error()
			record(types.Event{
				Type:      types.EventNodeFailed,
				Timestamp: time.Now().UTC(),
				RunID:     runID,
				SessionID: sessionID,
				Workflow:  e.graph.Name(),
				NodeID:    nodeID,
				Error:     execErr.Error(),
			})
			if e.policy == FailFast {
				return abort(fmt.Errorf("node %q failed: %w", nodeID, execErr))
			}
			continue
		}

		pass.executed[nodeID] = true
		pass.trace = append(pass.trace, nodeID)

		port := DefaultPort
		if selector, ok := node.(PortSelector); ok {
			port = selector.SelectPort(out)
		}
		for _, edge := range e.graph.edges[nodeID] {
			if edge.Port == port {
				pass.fired[edge.To] = true
			}
		}

		record(types.Event{
			Type:      types.EventNodeCompleted,
			Timestamp: time.Now().UTC(),
			RunID:     runID,
			SessionID: sessionID,
			Workflow:  e.graph.Name(),
			NodeID:    nodeID,
		})

		if err := e.persistCheckpoint(ctx, runID, sessionID, nodeID, pass); err != nil {
			return abort(err)
		}
		pass.seq++
	}

	outputs := e.collectOutputs(pass)
	completedAt := time.Now().UTC()
	if err := e.persistRunOutputs(ctx, runID, sessionID, pass, outputs, startedAt, completedAt); err != nil {
		return types.RunResult{}, err
	}
	record(types.Event{
		Type:      types.EventRunCompleted,
		Timestamp: completedAt,
		RunID:     runID,
		SessionID: sessionID,
		Workflow:  e.graph.Name(),
		Message:   "workflow run completed",
	})

	result := types.RunResult{
		Outputs:     outputs,
		Workflow:    e.graph.Name(),
		RunID:       runID,
		SessionID:   sessionID,
		NodeTrace:   append([]string(nil), pass.trace...),
		Skipped:     append([]string(nil), pass.skipped...),
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
		Events:      events,
	}
	if len(pass.nodeErrs) > 0 {
		result.NodeErrors = make(map[string]string, len(pass.nodeErrs))
		for k, v := range pass.nodeErrs {
			result.NodeErrors[k] = v
		}
	}
	return result, nil
}

// resolveBindings looks up every declared input of a node. It reports
// unresolvable=true when a bound upstream failed or was skipped, which
// skips the node rather than failing the run. A missing value from an
// upstream that did execute is a defect and returns ErrUnresolvedBinding.
func (e *Executor) resolveBindings(nodeID string, pass *runPass) (Inputs, bool, error) {
	resolved := Inputs{}
	for _, binding := range e.graph.bindings[nodeID] {
		src := binding.Source
		if src.WorkflowInput != "" {
			value, ok := pass.inputs[src.WorkflowInput]
			if !ok {
				return nil, false, fmt.Errorf("%w: %s.%s needs workflow input %q",
					ErrUnresolvedBinding, nodeID, binding.Input, src.WorkflowInput)
			}
			resolved[binding.Input] = value
			continue
		}
		if !pass.executed[src.NodeID] {
			return nil, true, nil
		}
		value, ok := pass.state.Get(src.NodeID, src.Output)
		if !ok {
			return nil, false, fmt.Errorf("%w: %s.%s needs %s.%s which was never produced",
				ErrUnresolvedBinding, nodeID, binding.Input, src.NodeID, src.Output)
		}
		resolved[binding.Input] = value
	}
	return resolved, false, nil
}

func (e *Executor) commitOutputs(rs *RunState, nodeID string, out Outputs) error {
	for name, value := range out {
		if err := rs.Put(nodeID, name, value); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) collectOutputs(pass *runPass) map[string]any {
	outputs := map[string]any{}
	for _, nodeID := range e.graph.topo {
		outputNode, ok := e.graph.nodes[nodeID].(*OutputNode)
		if !ok || !pass.executed[nodeID] {
			continue
		}
		if value, ok := pass.state.Get(nodeID, "value"); ok {
			outputs[outputNode.Name] = value
		}
	}
	return outputs
}

func (e *Executor) persistCheckpoint(ctx context.Context, runID, sessionID, nodeID string, pass *runPass) error {
	if e.store == nil {
		return nil
	}
	snapshot, err := passSnapshot(pass)
	if err != nil {
		return err
	}
	err = e.store.SaveCheckpoint(ctx, state.CheckpointRecord{
		RunID:     runID,
		Seq:       pass.seq,
		NodeID:    nodeID,
		State:     snapshot,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, state.ErrConflict) {
		return err
	}
	if err == nil {
		_ = e.emitObserverEvent(ctx, observe.Event{
			RunID:     runID,
			SessionID: sessionID,
			Workflow:  e.graph.Name(),
			Kind:      observe.KindCheckpoint,
			Status:    observe.StatusCompleted,
			NodeID:    nodeID,
			Attributes: map[string]any{
				"seq": pass.seq,
			},
		})
	}
	return nil
}

func (e *Executor) persistRun(
	ctx context.Context,
	runID, sessionID string,
	pass *runPass,
	status string,
	startedAt time.Time,
	errText *string,
	completedAt *time.Time,
) error {
	if e.store == nil {
		return nil
	}
	now := time.Now().UTC()
	updatedAt := now
	if completedAt != nil {
		updatedAt = *completedAt
	}
	errValue := ""
	if errText != nil {
		errValue = *errText
	}
	return e.store.SaveRun(ctx, state.RunRecord{
		RunID:     runID,
		SessionID: sessionID,
		Workflow:  e.graph.Name(),
		Status:    status,
		Inputs:    pass.inputs,
		Metadata: map[string]any{
			"nodeTrace": append([]string(nil), pass.trace...),
		},
		Error:       errValue,
		CreatedAt:   &startedAt,
		UpdatedAt:   &updatedAt,
		CompletedAt: completedAt,
	})
}

func (e *Executor) persistRunOutputs(
	ctx context.Context,
	runID, sessionID string,
	pass *runPass,
	outputs map[string]any,
	startedAt, completedAt time.Time,
) error {
	if e.store == nil {
		return nil
	}
	return e.store.SaveRun(ctx, state.RunRecord{
		RunID:     runID,
		SessionID: sessionID,
		Workflow:  e.graph.Name(),
		Status:    "completed",
		Inputs:    pass.inputs,
		Outputs:   outputs,
		Metadata: map[string]any{
			"nodeTrace": append([]string(nil), pass.trace...),
		},
		CreatedAt:   &startedAt,
		UpdatedAt:   &completedAt,
		CompletedAt: &completedAt,
	})
}

func (e *Executor) emitRuntimeEvent(ctx context.Context, event types.Event) {
	if e == nil || e.observer == nil {
		return
	}
	_ = e.observer.Emit(ctx, observe.FromRuntimeEvent(event))
}

func (e *Executor) emitObserverEvent(ctx context.Context, event observe.Event) error {
	if e == nil || e.observer == nil {
		return nil
	}
	return e.observer.Emit(ctx, event)
}

type passCheckpoint struct {
	Outputs  map[string]any `json:"outputs"`
	Executed []string       `json:"executed"`
	Fired    []string       `json:"fired"`
	Seq      int            `json:"seq"`
}

func passSnapshot(pass *runPass) (map[string]any, error) {
	outputs, err := pass.state.Snapshot()
	if err != nil {
		return nil, err
	}
	executed := make([]string, 0, len(pass.executed))
	for id := range pass.executed {
		executed = append(executed, id)
	}
	fired := make([]string, 0, len(pass.fired))
	for id := range pass.fired {
		fired = append(fired, id)
	}
	raw, err := json.Marshal(passCheckpoint{
		Outputs:  outputs,
		Executed: executed,
		Fired:    fired,
		Seq:      pass.seq,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint snapshot: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint snapshot map: %w", err)
	}
	return out, nil
}

func restorePass(checkpoint state.CheckpointRecord, inputs map[string]any) (*runPass, error) {
	raw, err := json.Marshal(checkpoint.State)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint state: %w", err)
	}
	var snapshot passCheckpoint
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint state: %w", err)
	}
	rs, err := RestoreRunState(snapshot.Outputs)
	if err != nil {
		return nil, err
	}
	if inputs == nil {
		inputs = map[string]any{}
	}
	pass := &runPass{
		state:    rs,
		inputs:   inputs,
		fired:    map[string]bool{},
		executed: map[string]bool{},
		nodeErrs: map[string]string{},
		seq:      snapshot.Seq + 1,
	}
	for _, id := range snapshot.Executed {
		pass.executed[id] = true
		pass.trace = append(pass.trace, id)
	}
	for _, id := range snapshot.Fired {
		pass.fired[id] = true
	}
	return pass, nil
}

package graph

import (
	"encoding/json"
	"fmt"
	"sync"
)

// RunState is the per-run output registry: an append-only mapping from
// (node, output name) to produced value. Keys are write-once; the
// scheduler's topological order means each node commits exactly once,
// and the mutex keeps the contract safe if independent branches ever
// run concurrently.
type RunState struct {
	mu      sync.RWMutex
	outputs map[string]Outputs
}

func NewRunState() *RunState {
	return &RunState{outputs: map[string]Outputs{}}
}

// Put records one produced value. A second write for the same
// (node, output) key fails with ErrDuplicateOutput.
func (s *RunState) Put(nodeID, output string, value any) error {
	if s == nil {
		return fmt.Errorf("run state is nil")
	}
	if nodeID == "" || output == "" {
		return fmt.Errorf("node id and output name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.outputs[nodeID]
	if !ok {
		existing = Outputs{}
		s.outputs[nodeID] = existing
	}
	if _, dup := existing[output]; dup {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateOutput, nodeID, output)
	}
	existing[output] = value
	return nil
}

// Get looks up one produced value.
func (s *RunState) Get(nodeID, output string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	outs, ok := s.outputs[nodeID]
	if !ok {
		return nil, false
	}
	value, ok := outs[output]
	return value, ok
}

// NodeOutputs returns a copy of everything a node produced.
func (s *RunState) NodeOutputs(nodeID string) (Outputs, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	outs, ok := s.outputs[nodeID]
	if !ok {
		return nil, false
	}
	copied := make(Outputs, len(outs))
	for k, v := range outs {
		copied[k] = v
	}
	return copied, true
}

// Snapshot serializes the registry into a JSON-friendly map for
// checkpoint persistence.
func (s *RunState) Snapshot() (map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("run state is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := json.Marshal(s.outputs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run state snapshot: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode run state snapshot map: %w", err)
	}
	return out, nil
}

// RestoreRunState rebuilds a registry from a checkpoint snapshot.
func RestoreRunState(raw map[string]any) (*RunState, error) {
	if len(raw) == 0 {
		return NewRunState(), nil
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint state: %w", err)
	}
	outputs := map[string]Outputs{}
	if err := json.Unmarshal(payload, &outputs); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint state: %w", err)
	}
	return &RunState{outputs: outputs}, nil
}

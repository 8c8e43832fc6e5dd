// Package display holds editor metadata for a workflow graph: node
// positions, viewport, and stable identifiers for edges and outputs.
// The layout is a side table keyed by node id. The executor never
// reads it; deleting a layout cannot change what a workflow computes.
package display

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type NodeDisplay struct {
	ID       string   `json:"id"`
	Label    string   `json:"label,omitempty"`
	Position Position `json:"position"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	ZIndex   int      `json:"zIndex,omitempty"`
}

type EdgeDisplay struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Port string `json:"port,omitempty"`
}

type OutputDisplay struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Layout is the full editor state for one workflow. Nodes are keyed by
// the graph's node ids; edge and output entries get stable generated
// ids so an editor can address them across saves.
type Layout struct {
	Workflow string                 `json:"workflow"`
	Viewport Viewport               `json:"viewport"`
	Nodes    map[string]NodeDisplay `json:"nodes"`
	Edges    []EdgeDisplay          `json:"edges"`
	Outputs  []OutputDisplay        `json:"outputs"`
}

func NewLayout(workflow string) *Layout {
	return &Layout{
		Workflow: workflow,
		Viewport: Viewport{Zoom: 1},
		Nodes:    map[string]NodeDisplay{},
	}
}

func (l *Layout) SetNode(nodeID string, node NodeDisplay) {
	if l == nil || nodeID == "" {
		return
	}
	if l.Nodes == nil {
		l.Nodes = map[string]NodeDisplay{}
	}
	node.ID = nodeID
	l.Nodes[nodeID] = node
}

func (l *Layout) Node(nodeID string) (NodeDisplay, bool) {
	if l == nil {
		return NodeDisplay{}, false
	}
	node, ok := l.Nodes[nodeID]
	return node, ok
}

// AddEdge records an edge's display entry, generating an id when the
// caller does not supply one.
func (l *Layout) AddEdge(from, to, port string) EdgeDisplay {
	edge := EdgeDisplay{
		ID:   uuid.NewString(),
		From: from,
		To:   to,
		Port: port,
	}
	l.Edges = append(l.Edges, edge)
	return edge
}

func (l *Layout) AddOutput(name string) OutputDisplay {
	out := OutputDisplay{
		ID:   uuid.NewString(),
		Name: name,
	}
	l.Outputs = append(l.Outputs, out)
	return out
}

func Load(path string) (*Layout, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("layout path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file %q: %w", path, err)
	}
	var layout Layout
	if err := json.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("failed to decode layout file %q: %w", path, err)
	}
	if layout.Nodes == nil {
		layout.Nodes = map[string]NodeDisplay{}
	}
	return &layout, nil
}

func Save(path string, layout *Layout) error {
	if layout == nil {
		return fmt.Errorf("layout is required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("layout path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create layout directory: %w", err)
	}
	raw, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write layout file %q: %w", path, err)
	}
	return nil
}

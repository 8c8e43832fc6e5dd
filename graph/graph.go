package graph

import (
	"fmt"
	"sort"
)

// DefaultPort is the unconditional exit port every node exposes unless
// it selects otherwise.
const DefaultPort = "default"

// BindingSource points a node input at a producing source: either a
// workflow input supplied at run start, or a named output of an
// upstream node.
type BindingSource struct {
	WorkflowInput string `json:"workflowInput,omitempty"`
	NodeID        string `json:"nodeId,omitempty"`
	Output        string `json:"output,omitempty"`
}

func FromWorkflowInput(name string) BindingSource {
	return BindingSource{WorkflowInput: name}
}

func FromNodeOutput(nodeID, output string) BindingSource {
	return BindingSource{NodeID: nodeID, Output: output}
}

type Binding struct {
	Input  string        `json:"input"`
	Source BindingSource `json:"source"`
}

// Edge is a (source node, source port) -> destination relation.
// Multiple edges from one port model fan-out; multiple edges into one
// node model fan-in.
type Edge struct {
	From string
	Port string
	To   string
}

type Graph struct {
	name        string
	nodes       map[string]Node
	order       []string          // declaration order, used for stable scheduling
	edges       map[string][]Edge // keyed by source node
	bindings    map[string][]Binding
	buildErr    error
	compiled    bool
	entrypoints []string
	topo        []string
}

func New(name string) *Graph {
	return &Graph{
		name:     name,
		nodes:    map[string]Node{},
		edges:    map[string][]Edge{},
		bindings: map[string][]Binding{},
	}
}

func (g *Graph) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

func (g *Graph) AddNode(id string, node Node) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if id == "" {
		g.buildErr = fmt.Errorf("node id is required")
		return g
	}
	if node == nil {
		g.buildErr = fmt.Errorf("node %q is nil", id)
		return g
	}
	if _, exists := g.nodes[id]; exists {
		g.buildErr = fmt.Errorf("node %q already exists", id)
		return g
	}
	g.nodes[id] = node
	g.order = append(g.order, id)
	g.compiled = false
	return g
}

// AddEdge connects the default port of from to to.
func (g *Graph) AddEdge(from, to string) *Graph {
	return g.AddPortEdge(from, DefaultPort, to)
}

// AddPortEdge connects a named port of from to to. The edge fires only
// when the source node selects that port.
func (g *Graph) AddPortEdge(from, port, to string) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if from == "" || to == "" {
		g.buildErr = fmt.Errorf("edge endpoints are required")
		return g
	}
	if port == "" {
		port = DefaultPort
	}
	g.edges[from] = append(g.edges[from], Edge{From: from, Port: port, To: to})
	g.compiled = false
	return g
}

// Chain adds default-port edges between consecutive ids, mirroring the
// sequential composition A >> B >> C.
func (g *Graph) Chain(ids ...string) *Graph {
	for i := 0; i+1 < len(ids); i++ {
		g.AddEdge(ids[i], ids[i+1])
	}
	return g
}

// FanOut adds a default-port edge from one source to every destination,
// mirroring the branch-set composition A >> {B, C}.
func (g *Graph) FanOut(from string, tos ...string) *Graph {
	for _, to := range tos {
		g.AddEdge(from, to)
	}
	return g
}

// BindInput declares that nodeID's input named input is resolved from
// source at execution time.
func (g *Graph) BindInput(nodeID, input string, source BindingSource) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if nodeID == "" || input == "" {
		g.buildErr = fmt.Errorf("binding node id and input name are required")
		return g
	}
	if source.WorkflowInput == "" && (source.NodeID == "" || source.Output == "") {
		g.buildErr = fmt.Errorf("binding for %s.%s has no source", nodeID, input)
		return g
	}
	g.bindings[nodeID] = append(g.bindings[nodeID], Binding{Input: input, Source: source})
	g.compiled = false
	return g
}

// Compile validates the graph and computes entrypoints plus a stable
// topological order. It must succeed before any node executes.
func (g *Graph) Compile() error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	if g.buildErr != nil {
		return g.buildErr
	}
	if g.compiled {
		return nil
	}
	if g.name == "" {
		return fmt.Errorf("graph name is required")
	}
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}

	for from, edges := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("edge source node %q does not exist", from)
		}
		for _, edge := range edges {
			if _, ok := g.nodes[edge.To]; !ok {
				return fmt.Errorf("edge target node %q does not exist", edge.To)
			}
		}
	}

	for nodeID := range g.bindings {
		if _, ok := g.nodes[nodeID]; !ok {
			return fmt.Errorf("%w: bindings declared for unknown node %q", ErrDanglingBinding, nodeID)
		}
	}

	if g.hasCycle() {
		return fmt.Errorf("%w in graph %q", ErrCycle, g.name)
	}

	g.entrypoints = g.computeEntrypoints()
	if len(g.entrypoints) == 0 {
		return fmt.Errorf("graph %q has no entrypoint", g.name)
	}
	g.topo = g.topoOrder()

	if err := g.checkBindings(); err != nil {
		return err
	}

	g.compiled = true
	return nil
}

// Entrypoints returns the nodes with no incoming edges, in declaration
// order. Compile must have succeeded.
func (g *Graph) Entrypoints() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.entrypoints...)
}

// TopoOrder returns a topological order of the nodes, stable by
// declaration order among ties. Compile must have succeeded.
func (g *Graph) TopoOrder() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.topo...)
}

func (g *Graph) computeEntrypoints() []string {
	incoming := map[string]int{}
	for _, edges := range g.edges {
		for _, edge := range edges {
			incoming[edge.To]++
		}
	}
	out := make([]string, 0)
	for _, nodeID := range g.order {
		if incoming[nodeID] == 0 {
			out = append(out, nodeID)
		}
	}
	return out
}

// topoOrder runs Kahn's algorithm, always picking the earliest-declared
// ready node so scheduling is deterministic.
func (g *Graph) topoOrder() []string {
	indegree := map[string]int{}
	for _, edges := range g.edges {
		for _, edge := range edges {
			indegree[edge.To]++
		}
	}
	placed := map[string]bool{}
	out := make([]string, 0, len(g.order))
	for len(out) < len(g.order) {
		advanced := false
		for _, nodeID := range g.order {
			if placed[nodeID] || indegree[nodeID] > 0 {
				continue
			}
			placed[nodeID] = true
			out = append(out, nodeID)
			for _, edge := range g.edges[nodeID] {
				indegree[edge.To]--
			}
			advanced = true
			break
		}
		if !advanced {
			// Unreachable after hasCycle passed; guard against livelock.
			break
		}
	}
	return out
}

func (g *Graph) hasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(nodeID string) bool
	visit = func(nodeID string) bool {
		color[nodeID] = gray
		for _, edge := range g.edges[nodeID] {
			switch color[edge.To] {
			case gray:
				return true
			case white:
				if visit(edge.To) {
					return true
				}
			}
		}
		color[nodeID] = black
		return false
	}

	for _, nodeID := range g.order {
		if color[nodeID] == white && visit(nodeID) {
			return true
		}
	}
	return false
}

// checkBindings rejects bindings whose node-output source is absent
// from the graph or is not an ancestor over control edges. Both are
// builder defects that must surface before execution.
func (g *Graph) checkBindings() error {
	for _, nodeID := range g.order {
		ancestors := g.ancestorsOf(nodeID)
		for _, binding := range g.bindings[nodeID] {
			src := binding.Source
			if src.WorkflowInput != "" {
				continue
			}
			if _, ok := g.nodes[src.NodeID]; !ok {
				return fmt.Errorf("%w: %s.%s references unknown node %q",
					ErrDanglingBinding, nodeID, binding.Input, src.NodeID)
			}
			if !ancestors[src.NodeID] {
				return fmt.Errorf("%w: %s.%s references %q which does not precede it",
					ErrDanglingBinding, nodeID, binding.Input, src.NodeID)
			}
		}
	}
	return nil
}

func (g *Graph) ancestorsOf(nodeID string) map[string]bool {
	reverse := map[string][]string{}
	for _, edges := range g.edges {
		for _, edge := range edges {
			reverse[edge.To] = append(reverse[edge.To], edge.From)
		}
	}
	seen := map[string]bool{}
	var walk func(id string)
	walk = func(id string) {
		for _, parent := range reverse[id] {
			if seen[parent] {
				continue
			}
			seen[parent] = true
			walk(parent)
		}
	}
	walk(nodeID)
	return seen
}

// NodeInfo describes a node in the graph for introspection.
type NodeInfo struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// EdgeInfo describes an edge in the graph for introspection.
type EdgeInfo struct {
	From string `json:"from"`
	Port string `json:"port"`
	To   string `json:"to"`
}

// NodeInfos returns metadata about all nodes in declaration order.
func (g *Graph) NodeInfos() []NodeInfo {
	if g == nil {
		return nil
	}
	out := make([]NodeInfo, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, NodeInfo{ID: id, Kind: kindOf(g.nodes[id])})
	}
	return out
}

// EdgeInfos returns metadata about all edges sorted by source node.
func (g *Graph) EdgeInfos() []EdgeInfo {
	if g == nil {
		return nil
	}
	keys := make([]string, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]EdgeInfo, 0)
	for _, from := range keys {
		for _, edge := range g.edges[from] {
			out = append(out, EdgeInfo{From: edge.From, Port: edge.Port, To: edge.To})
		}
	}
	return out
}

func kindOf(node Node) string {
	switch node.(type) {
	case *TemplateNode:
		return "template"
	case *TransformNode:
		return "transform"
	case *PromptNode:
		return "prompt"
	case *OutputNode:
		return "output"
	case *SwitchNode:
		return "switch"
	default:
		return "custom"
	}
}

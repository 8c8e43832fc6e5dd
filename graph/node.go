package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eatingfood142434/Hackthe6ix/prompt"
)

// Inputs are a node's resolved input bindings, keyed by input name.
type Inputs map[string]any

// Outputs are the values a node produced, keyed by output name.
type Outputs map[string]any

// Node is the single execution contract shared by all node kinds.
// Execute must be a pure projection of its inputs for every kind except
// the prompt node, which talks to an external generation service.
type Node interface {
	Execute(ctx context.Context, in Inputs) (Outputs, error)
}

// PortSelector is implemented by nodes that route conditionally. After
// a successful execution the scheduler asks which port fires; nodes
// without the interface fire DefaultPort.
type PortSelector interface {
	SelectPort(out Outputs) string
}

type TransformFunc func(ctx context.Context, in Inputs) (Outputs, error)

// TransformNode applies a pure function to its resolved inputs.
type TransformNode struct {
	Func TransformFunc
}

func NewTransformNode(fn TransformFunc) *TransformNode {
	return &TransformNode{Func: fn}
}

func (n *TransformNode) Execute(ctx context.Context, in Inputs) (Outputs, error) {
	if n == nil || n.Func == nil {
		return nil, fmt.Errorf("transform node func is required")
	}
	return n.Func(ctx, in)
}

// TemplateNode renders a {{variable}} template over its resolved
// inputs and publishes the rendered text under OutputKey.
type TemplateNode struct {
	Template  string
	OutputKey string
}

func (n *TemplateNode) Execute(_ context.Context, in Inputs) (Outputs, error) {
	if n == nil || n.Template == "" {
		return nil, fmt.Errorf("template node template is required")
	}
	vars := make(map[string]string, len(in))
	for name, value := range in {
		text, err := Stringify(value)
		if err != nil {
			return nil, fmt.Errorf("input %q is not renderable: %w", name, err)
		}
		vars[name] = text
	}
	rendered, err := prompt.Render(n.Template, vars)
	if err != nil {
		return nil, err
	}
	key := n.OutputKey
	if key == "" {
		key = "result"
	}
	return Outputs{key: rendered}, nil
}

// OutputNode republishes exactly one bound upstream value as the
// workflow-level output named Name. It never has outgoing edges.
type OutputNode struct {
	Name string
}

func (n *OutputNode) Execute(_ context.Context, in Inputs) (Outputs, error) {
	if n == nil || n.Name == "" {
		return nil, fmt.Errorf("output node name is required")
	}
	if len(in) != 1 {
		return nil, fmt.Errorf("output node %q expects exactly one bound input, got %d", n.Name, len(in))
	}
	for _, value := range in {
		return Outputs{"value": value}, nil
	}
	return nil, fmt.Errorf("output node %q has no bound input", n.Name)
}

type RouteFunc func(ctx context.Context, in Inputs) (string, error)

// SwitchNode selects a named exit port from its resolved inputs so a
// single source can route between alternative branches.
type SwitchNode struct {
	Route RouteFunc
}

func NewSwitchNode(route RouteFunc) *SwitchNode {
	return &SwitchNode{Route: route}
}

func (n *SwitchNode) Execute(ctx context.Context, in Inputs) (Outputs, error) {
	if n == nil || n.Route == nil {
		return nil, fmt.Errorf("switch node route func is required")
	}
	port, err := n.Route(ctx, in)
	if err != nil {
		return nil, err
	}
	if port == "" {
		port = DefaultPort
	}
	return Outputs{"port": port}, nil
}

func (n *SwitchNode) SelectPort(out Outputs) string {
	if port, ok := out["port"].(string); ok && port != "" {
		return port
	}
	return DefaultPort
}

// Stringify renders an input value for template substitution or prompt
// variable interpolation: strings pass through, everything else is
// encoded as JSON.
func Stringify(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}

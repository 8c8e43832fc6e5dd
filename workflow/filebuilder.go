package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eatingfood142434/Hackthe6ix/graph"
	"github.com/eatingfood142434/Hackthe6ix/llm"
	"github.com/eatingfood142434/Hackthe6ix/state"
)

// FileSpec is the JSON shape of a workflow definition file. It covers
// the declarative node kinds; transform nodes carry arbitrary code and
// can only be registered from Go.
type FileSpec struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Nodes       []FileNodeSpec    `json:"nodes"`
	Edges       []FileEdgeSpec    `json:"edges"`
	Bindings    []FileBindingSpec `json:"bindings"`
}

type FileNodeSpec struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// template
	Template  string `json:"template,omitempty"`
	OutputKey string `json:"outputKey,omitempty"`

	// prompt
	Model           string         `json:"model,omitempty"`
	Blocks          []llm.Block    `json:"blocks,omitempty"`
	MaxOutputTokens int            `json:"maxOutputTokens,omitempty"`
	SchemaName      string         `json:"schemaName,omitempty"`
	Schema          map[string]any `json:"schema,omitempty"`
	TimeoutSeconds  int            `json:"timeoutSeconds,omitempty"`

	// output
	OutputName string `json:"outputName,omitempty"`

	// switch
	CheckKey    string `json:"checkKey,omitempty"`
	ExistsPort  string `json:"existsPort,omitempty"`
	MissingPort string `json:"missingPort,omitempty"`
	RouteInput  string `json:"routeInput,omitempty"`
}

type FileEdgeSpec struct {
	From string `json:"from"`
	To   string `json:"to"`
	Port string `json:"port,omitempty"`
}

type FileBindingSpec struct {
	Node  string `json:"node"`
	Input string `json:"input"`

	// exactly one of these two
	FromWorkflowInput string `json:"fromWorkflowInput,omitempty"`
	FromNode          string `json:"fromNode,omitempty"`
	Output            string `json:"output,omitempty"`
}

type fileBuilder struct {
	spec FileSpec
}

func NewFileBuilderFromPath(path string) (Builder, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("workflow file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workflow file path: %w", err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %q: %w", abs, err)
	}
	var spec FileSpec
	if err := json.Unmarshal(content, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode workflow file %q as JSON: %w", abs, err)
	}
	if strings.TrimSpace(spec.Name) == "" {
		base := filepath.Base(abs)
		spec.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("workflow file %q has no nodes", abs)
	}
	return &fileBuilder{spec: spec}, nil
}

func (b *fileBuilder) Name() string {
	if b == nil {
		return ""
	}
	return strings.TrimSpace(b.spec.Name)
}

func (b *fileBuilder) Description() string {
	if b == nil {
		return ""
	}
	return strings.TrimSpace(b.spec.Description)
}

func (b *fileBuilder) NewExecutor(provider llm.Provider, store state.Store, sessionID string) (*graph.Executor, error) {
	if b == nil {
		return nil, fmt.Errorf("file builder is nil")
	}

	g := graph.New(b.spec.Name)
	for _, nodeSpec := range b.spec.Nodes {
		node, err := buildNodeFromSpec(nodeSpec, provider)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nodeSpec.ID, err)
		}
		g.AddNode(nodeSpec.ID, node)
	}
	for _, edgeSpec := range b.spec.Edges {
		if edgeSpec.Port != "" {
			g.AddPortEdge(edgeSpec.From, edgeSpec.Port, edgeSpec.To)
			continue
		}
		g.AddEdge(edgeSpec.From, edgeSpec.To)
	}
	for _, bindingSpec := range b.spec.Bindings {
		source, err := bindingSourceFromSpec(bindingSpec)
		if err != nil {
			return nil, err
		}
		g.BindInput(bindingSpec.Node, bindingSpec.Input, source)
	}

	opts := []graph.ExecutorOption{graph.WithStore(store)}
	if sessionID != "" {
		opts = append(opts, graph.WithSessionID(sessionID))
	}
	return graph.NewExecutor(g, opts...)
}

func buildNodeFromSpec(spec FileNodeSpec, provider llm.Provider) (graph.Node, error) {
	spec.ID = strings.TrimSpace(spec.ID)
	spec.Kind = strings.TrimSpace(spec.Kind)
	if spec.ID == "" {
		return nil, fmt.Errorf("node id is required")
	}
	if spec.Kind == "" {
		return nil, fmt.Errorf("node kind is required")
	}

	switch spec.Kind {
	case "template":
		if strings.TrimSpace(spec.Template) == "" {
			return nil, fmt.Errorf("template node requires template")
		}
		return &graph.TemplateNode{
			Template:  spec.Template,
			OutputKey: spec.OutputKey,
		}, nil

	case "prompt":
		if provider == nil {
			return nil, fmt.Errorf("prompt node requires a provider")
		}
		node := &graph.PromptNode{
			Provider:        provider,
			Model:           spec.Model,
			Blocks:          spec.Blocks,
			MaxOutputTokens: spec.MaxOutputTokens,
			SchemaName:      spec.SchemaName,
			Schema:          spec.Schema,
		}
		if spec.TimeoutSeconds > 0 {
			node.Timeout = time.Duration(spec.TimeoutSeconds) * time.Second
		}
		return node, nil

	case "output":
		if strings.TrimSpace(spec.OutputName) == "" {
			return nil, fmt.Errorf("output node requires outputName")
		}
		return &graph.OutputNode{Name: spec.OutputName}, nil

	case "switch_json_key":
		checkKey := strings.TrimSpace(spec.CheckKey)
		if checkKey == "" {
			return nil, fmt.Errorf("switch_json_key node requires checkKey")
		}
		routeInput := strings.TrimSpace(spec.RouteInput)
		if routeInput == "" {
			routeInput = "value"
		}
		existsPort := spec.ExistsPort
		if existsPort == "" {
			existsPort = "exists"
		}
		missingPort := spec.MissingPort
		if missingPort == "" {
			missingPort = "missing"
		}
		return graph.NewSwitchNode(func(_ context.Context, in graph.Inputs) (string, error) {
			raw, err := graph.Stringify(in[routeInput])
			if err != nil {
				return "", err
			}
			var obj map[string]any
			if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err == nil {
				if _, ok := obj[checkKey]; ok {
					return existsPort, nil
				}
			}
			return missingPort, nil
		}), nil
	}

	return nil, fmt.Errorf("unsupported node kind %q", spec.Kind)
}

func bindingSourceFromSpec(spec FileBindingSpec) (graph.BindingSource, error) {
	if spec.Node == "" || spec.Input == "" {
		return graph.BindingSource{}, fmt.Errorf("binding requires node and input")
	}
	if spec.FromWorkflowInput != "" && spec.FromNode != "" {
		return graph.BindingSource{}, fmt.Errorf("binding %s.%s declares two sources", spec.Node, spec.Input)
	}
	if spec.FromWorkflowInput != "" {
		return graph.FromWorkflowInput(spec.FromWorkflowInput), nil
	}
	if spec.FromNode != "" {
		output := spec.Output
		if output == "" {
			return graph.BindingSource{}, fmt.Errorf("binding %s.%s from node %q requires output", spec.Node, spec.Input, spec.FromNode)
		}
		return graph.FromNodeOutput(spec.FromNode, output), nil
	}
	return graph.BindingSource{}, fmt.Errorf("binding %s.%s has no source", spec.Node, spec.Input)
}

package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eatingfood142434/Hackthe6ix/llm"
)

type fakeProvider struct {
	name      string
	caps      llm.Capabilities
	response  llm.Response
	err       error
	delay     time.Duration
	lastReq   llm.Request
	callCount int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Capabilities() llm.Capabilities { return p.caps }

func (p *fakeProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	p.callCount++
	p.lastReq = req
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		}
	}
	if p.err != nil {
		return llm.Response{}, p.err
	}
	return p.response, nil
}

type fakeStreamingProvider struct {
	fakeProvider
	chunks []string
}

func (p *fakeStreamingProvider) GenerateStream(ctx context.Context, req llm.Request, onChunk func(llm.StreamChunk) error) (llm.Response, error) {
	p.callCount++
	p.lastReq = req
	for _, text := range p.chunks {
		if err := onChunk(llm.StreamChunk{Text: text}); err != nil {
			return llm.Response{}, err
		}
	}
	if err := onChunk(llm.StreamChunk{Done: true}); err != nil {
		return llm.Response{}, err
	}
	return llm.Response{}, nil
}

var riskSchema = map[string]any{
	"type":     "object",
	"required": []any{"high_risk_files"},
	"properties": map[string]any{
		"high_risk_files": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
}

func TestTemplateNode_RendersInputs(t *testing.T) {
	node := &TemplateNode{Template: "scan {{target}} at {{depth}}"}
	out, err := node.Execute(context.Background(), Inputs{
		"target": "repo",
		"depth":  3,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out["result"] != "scan repo at 3" {
		t.Fatalf("unexpected render: %#v", out)
	}
}

func TestTemplateNode_MissingVariable(t *testing.T) {
	node := &TemplateNode{Template: "scan {{target}}"}
	if _, err := node.Execute(context.Background(), Inputs{}); err == nil {
		t.Fatal("expected error for unreferenced template variable")
	}
}

func TestOutputNode_RequiresExactlyOneInput(t *testing.T) {
	node := &OutputNode{Name: "results"}

	if _, err := node.Execute(context.Background(), Inputs{}); err == nil {
		t.Fatal("expected error for zero inputs")
	}
	if _, err := node.Execute(context.Background(), Inputs{"a": 1, "b": 2}); err == nil {
		t.Fatal("expected error for two inputs")
	}
	out, err := node.Execute(context.Background(), Inputs{"value": "ok"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out["value"] != "ok" {
		t.Fatalf("unexpected output: %#v", out)
	}
}

func TestSwitchNode_EmptyPortFallsBackToDefault(t *testing.T) {
	node := NewSwitchNode(func(_ context.Context, _ Inputs) (string, error) {
		return "", nil
	})
	out, err := node.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if node.SelectPort(out) != DefaultPort {
		t.Fatalf("expected default port, got %q", node.SelectPort(out))
	}
}

func TestPromptNode_SubstitutesVariablesIntoBlocks(t *testing.T) {
	provider := &fakeProvider{name: "fake", response: llm.Response{Text: "ok"}}
	node := &PromptNode{
		Provider: provider,
		Model:    "scanner-1",
		Blocks: []llm.Block{
			{Role: llm.BlockRoleSystem, Text: "You review source files."},
			{Role: llm.BlockRoleUser, Variable: "files"},
		},
	}
	out, err := node.Execute(context.Background(), Inputs{
		"files": []any{map[string]any{"name": "app.py"}},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out["text"] != "ok" {
		t.Fatalf("unexpected text output: %#v", out)
	}
	if len(provider.lastReq.Blocks) != 2 {
		t.Fatalf("expected two blocks, got %d", len(provider.lastReq.Blocks))
	}
	if !strings.Contains(provider.lastReq.Blocks[1].Text, `"name":"app.py"`) {
		t.Fatalf("variable was not substituted as JSON: %q", provider.lastReq.Blocks[1].Text)
	}
}

func TestPromptNode_MissingVariableFails(t *testing.T) {
	node := &PromptNode{
		Provider: &fakeProvider{name: "fake"},
		Blocks:   []llm.Block{{Role: llm.BlockRoleUser, Variable: "files"}},
	}
	if _, err := node.Execute(context.Background(), Inputs{}); err == nil {
		t.Fatal("expected error for unresolved prompt variable")
	}
}

func TestPromptNode_SchemaValidOutputPublishesJSON(t *testing.T) {
	provider := &fakeProvider{
		name:     "fake",
		response: llm.Response{Text: `{"high_risk_files":["auth.py"]}`},
	}
	node := &PromptNode{
		Provider:   provider,
		SchemaName: "Scanner",
		Schema:     riskSchema,
	}
	out, err := node.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	parsed, ok := out["json"].(map[string]any)
	if !ok {
		t.Fatalf("expected structured projection, got %#v", out["json"])
	}
	if parsed["high_risk_files"].([]any)[0] != "auth.py" {
		t.Fatalf("unexpected parsed value: %#v", parsed)
	}
	if out["text"] != provider.response.Text {
		t.Fatalf("raw text must always be published: %#v", out)
	}
}

func TestPromptNode_SchemaMismatchKeepsTextAndContinues(t *testing.T) {
	provider := &fakeProvider{
		name:     "fake",
		response: llm.Response{Text: `{"wrong":"shape"}`},
	}
	var mismatch error
	node := &PromptNode{
		Provider:         provider,
		SchemaName:       "Scanner",
		Schema:           riskSchema,
		OnSchemaMismatch: func(err error) { mismatch = err },
	}
	out, err := node.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("schema mismatch must not fail the node: %v", err)
	}
	if out["text"] != `{"wrong":"shape"}` {
		t.Fatalf("raw text must survive a mismatch: %#v", out)
	}
	if _, ok := out["json"]; ok {
		t.Fatal("structured projection must be absent on mismatch")
	}
	if mismatch == nil {
		t.Fatal("expected the mismatch callback to fire")
	}
}

func TestPromptNode_SchemaMismatchDoesNotAbortRun(t *testing.T) {
	provider := &fakeProvider{
		name:     "fake",
		response: llm.Response{Text: "not even json"},
	}
	g := New("mismatch-run")
	g.AddNode("scan", &PromptNode{Provider: provider, Schema: riskSchema})
	g.AddNode("o", &OutputNode{Name: "raw"})
	g.AddEdge("scan", "o")
	g.BindInput("o", "value", FromNodeOutput("scan", "text"))

	e, err := NewExecutor(g)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	result, err := e.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outputs["raw"] != "not even json" {
		t.Fatalf("unexpected output: %#v", result.Outputs)
	}
}

func TestPromptNode_TimeoutMapsToInvocationTimeout(t *testing.T) {
	provider := &fakeProvider{name: "slow", delay: 200 * time.Millisecond}
	node := &PromptNode{
		Provider: provider,
		Timeout:  10 * time.Millisecond,
	}
	_, err := node.Execute(context.Background(), nil)
	if !errors.Is(err, llm.ErrInvocationTimeout) {
		t.Fatalf("expected ErrInvocationTimeout, got %v", err)
	}
}

func TestPromptNode_StreamingBuffersChunks(t *testing.T) {
	provider := &fakeStreamingProvider{
		fakeProvider: fakeProvider{
			name: "streamer",
			caps: llm.Capabilities{Streaming: true},
		},
		chunks: []string{`{"high_risk`, `_files":["a.py"]}`},
	}
	var seen []string
	node := &PromptNode{
		Provider: provider,
		Schema:   riskSchema,
		OnChunk: func(chunk llm.StreamChunk) {
			if chunk.Text != "" {
				seen = append(seen, chunk.Text)
			}
		},
	}
	out, err := node.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out["text"] != `{"high_risk_files":["a.py"]}` {
		t.Fatalf("chunks were not buffered into full text: %#v", out["text"])
	}
	if _, ok := out["json"]; !ok {
		t.Fatal("buffered text should validate against the schema")
	}
	if len(seen) != 2 {
		t.Fatalf("expected both chunks observed, got %v", seen)
	}
}

func TestPromptNode_ProviderRejectionPropagates(t *testing.T) {
	provider := &fakeProvider{name: "fake", err: llm.ErrInvocationRejected}
	node := &PromptNode{Provider: provider}
	if _, err := node.Execute(context.Background(), nil); !errors.Is(err, llm.ErrInvocationRejected) {
		t.Fatalf("expected ErrInvocationRejected, got %v", err)
	}
}

package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eatingfood142434/Hackthe6ix/llm"
	"github.com/eatingfood142434/Hackthe6ix/schema"
)

// PromptNode sends its resolved inputs to an external generation
// service. Blocks with a Variable reference are substituted from the
// inputs before the request leaves the node. The node always publishes
// the raw text under "text"; when Schema is declared and the text
// parses against it, the structured projection is published under
// "json". A mismatch never fails the node.
type PromptNode struct {
	Provider        llm.Provider
	Model           string
	Blocks          []llm.Block
	MaxOutputTokens int
	Temperature     *float64
	SchemaName      string
	Schema          map[string]any
	Timeout         time.Duration

	// OnChunk observes streamed partial text when the provider supports
	// streaming. Partial output is buffered inside the node and never
	// reaches run state before the invocation completes.
	OnChunk func(llm.StreamChunk)

	// OnSchemaMismatch is invoked when raw output fails schema
	// validation, so callers can surface a warning without the node
	// failing.
	OnSchemaMismatch func(error)
}

func (n *PromptNode) Execute(ctx context.Context, in Inputs) (Outputs, error) {
	if n == nil || n.Provider == nil {
		return nil, fmt.Errorf("prompt node provider is required")
	}

	blocks, err := n.resolveBlocks(in)
	if err != nil {
		return nil, err
	}

	req := llm.Request{
		Model:           n.Model,
		Blocks:          blocks,
		MaxOutputTokens: n.MaxOutputTokens,
		Temperature:     n.Temperature,
		SchemaName:      n.SchemaName,
		ResponseSchema:  n.Schema,
	}

	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	resp, err := n.invoke(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", llm.ErrInvocationTimeout, err)
		}
		return nil, err
	}

	out := Outputs{"text": resp.Text}
	if len(n.Schema) > 0 {
		if err := schema.Validate([]byte(resp.Text), n.Schema); err != nil {
			if n.OnSchemaMismatch != nil {
				n.OnSchemaMismatch(err)
			}
			return out, nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(resp.Text), &parsed); err == nil {
			out["json"] = parsed
		}
	}
	return out, nil
}

func (n *PromptNode) invoke(ctx context.Context, req llm.Request) (llm.Response, error) {
	if streamer, ok := n.Provider.(llm.StreamingProvider); ok && n.Provider.Capabilities().Streaming {
		var buffered strings.Builder
		resp, err := streamer.GenerateStream(ctx, req, func(chunk llm.StreamChunk) error {
			if chunk.Text != "" {
				buffered.WriteString(chunk.Text)
			}
			if n.OnChunk != nil {
				n.OnChunk(chunk)
			}
			return ctx.Err()
		})
		if err != nil {
			return llm.Response{}, err
		}
		if resp.Text == "" {
			resp.Text = buffered.String()
		}
		return resp, nil
	}
	return n.Provider.Generate(ctx, req)
}

func (n *PromptNode) resolveBlocks(in Inputs) ([]llm.Block, error) {
	out := make([]llm.Block, 0, len(n.Blocks))
	for _, block := range n.Blocks {
		if block.Variable == "" {
			out = append(out, block)
			continue
		}
		value, ok := in[block.Variable]
		if !ok {
			return nil, fmt.Errorf("prompt variable %q has no resolved input", block.Variable)
		}
		text, err := Stringify(value)
		if err != nil {
			return nil, fmt.Errorf("prompt variable %q is not renderable: %w", block.Variable, err)
		}
		out = append(out, llm.Block{Role: block.Role, Text: text})
	}
	return out, nil
}

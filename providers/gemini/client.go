// Package gemini implements the llm.Provider contract on top of the
// Gemini API, with native JSON-schema constrained output and streaming.
package gemini

import (
	"context"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"

	"github.com/eatingfood142434/Hackthe6ix/llm"
)

const defaultModel = "gemini-2.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	c := &Client{model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.client = gc
	return c, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		Streaming:        true,
		StructuredOutput: true,
	}
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	model, contents, config := c.prepare(req)

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini generation failed: %w", err)
	}
	return parseGeminiResponse(resp), nil
}

func (c *Client) GenerateStream(ctx context.Context, req llm.Request, onChunk func(llm.StreamChunk) error) (llm.Response, error) {
	if onChunk == nil {
		return llm.Response{}, fmt.Errorf("onChunk is required")
	}
	model, contents, config := c.prepare(req)

	var last *genai.GenerateContentResponse
	stream := c.client.Models.GenerateContentStream(ctx, model, contents, config)
	for chunk, err := range stream {
		if err != nil {
			return llm.Response{}, fmt.Errorf("gemini generation failed: %w", err)
		}
		if chunk == nil {
			continue
		}
		last = chunk

		if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part == nil || part.Text == "" || part.Thought {
				continue
			}
			if err := onChunk(llm.StreamChunk{Text: part.Text}); err != nil {
				return llm.Response{}, err
			}
		}
	}

	if last == nil {
		return llm.Response{}, fmt.Errorf("gemini generation failed: empty stream")
	}
	resp := parseGeminiResponse(last)
	if err := onChunk(llm.StreamChunk{Done: true}); err != nil {
		return llm.Response{}, err
	}
	return resp, nil
}

func (c *Client) prepare(req llm.Request) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	system, user := llm.SplitPrompt(req.Blocks)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = clampInt32(req.MaxOutputTokens)
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if len(req.ResponseSchema) > 0 {
		config.ResponseMIMEType = "application/json"
		config.ResponseJsonSchema = req.ResponseSchema
	}

	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}
	return model, contents, config
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) llm.Response {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		text := ""
		if resp != nil && resp.PromptFeedback != nil {
			text = strings.TrimSpace(resp.PromptFeedback.BlockReasonMessage)
		}
		return llm.Response{Text: text}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}

	out := llm.Response{Text: strings.TrimSpace(text.String())}
	if resp.UsageMetadata != nil {
		out.Usage = &llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out
}

func clampInt32(v int) int32 {
	if v <= 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}

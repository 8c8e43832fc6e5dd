// Package openai implements the llm.Provider contract against the
// OpenAI chat completions API, including SSE streaming and JSON-schema
// constrained output.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eatingfood142434/Hackthe6ix/llm"
)

const defaultModel = "gpt-4o-mini"

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	c := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: "https://api.openai.com",
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		Streaming:        true,
		StructuredOutput: true,
	}
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	payload := c.buildPayload(req, false)

	body, err := c.post(ctx, payload)
	if err != nil {
		return llm.Response{}, err
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return llm.Response{}, fmt.Errorf("failed to decode openai response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openai response had no choices")
	}

	resp := llm.Response{
		Text: messageContentToString(apiResp.Choices[0].Message.Content),
	}
	if apiResp.Usage.TotalTokens > 0 {
		resp.Usage = &llm.Usage{
			InputTokens:  apiResp.Usage.PromptTokens,
			OutputTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:  apiResp.Usage.TotalTokens,
		}
	}
	return resp, nil
}

func (c *Client) GenerateStream(ctx context.Context, req llm.Request, onChunk func(llm.StreamChunk) error) (llm.Response, error) {
	payload := c.buildPayload(req, true)

	raw, err := json.Marshal(payload)
	if err != nil {
		return llm.Response{}, fmt.Errorf("failed to marshal openai request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return llm.Response{}, fmt.Errorf("failed to create openai request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return llm.Response{}, apiError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var event openAIStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		if len(event.Choices) == 0 {
			continue
		}
		text := event.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		if err := onChunk(llm.StreamChunk{Text: text}); err != nil {
			return llm.Response{}, err
		}
	}
	if err := scanner.Err(); err != nil {
		return llm.Response{}, fmt.Errorf("openai stream read failed: %w", err)
	}
	if err := onChunk(llm.StreamChunk{Done: true}); err != nil {
		return llm.Response{}, err
	}
	return llm.Response{}, nil
}

func (c *Client) buildPayload(req llm.Request, stream bool) openAIRequest {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	payload := openAIRequest{
		Model:    model,
		Stream:   stream,
		Messages: make([]openAIMessage, 0, len(req.Blocks)),
	}
	if req.MaxOutputTokens > 0 {
		payload.MaxTokens = req.MaxOutputTokens
	}
	if req.Temperature != nil {
		payload.Temperature = req.Temperature
	}

	for _, block := range req.Blocks {
		role := "user"
		if block.Role == llm.BlockRoleSystem {
			role = "system"
		}
		payload.Messages = append(payload.Messages, openAIMessage{
			Role:    role,
			Content: block.Text,
		})
	}

	if len(req.ResponseSchema) > 0 {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		payload.ResponseFormat = &openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: &openAIJSONSchema{
				Name:   name,
				Schema: req.ResponseSchema,
			},
		}
	}
	return payload
}

func (c *Client) post(ctx context.Context, payload openAIRequest) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create openai request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func apiError(status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if status == http.StatusTooManyRequests || (status >= 400 && status < 500) {
		return fmt.Errorf("%w: openai API error (%d): %s", llm.ErrInvocationRejected, status, detail)
	}
	return fmt.Errorf("openai API error (%d): %s", status, detail)
}

func messageContentToString(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case nil:
		return ""
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprintf("%v", c)
		}
		return string(b)
	}
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    *float64              `json:"temperature,omitempty"`
	Stream         bool                  `json:"stream,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

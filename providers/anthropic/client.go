// Package anthropic implements the llm.Provider contract against the
// Anthropic messages API.
package anthropic

import (
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

const (
	defaultModel          = "claude-sonnet-4-20250514"
	defaultMaxTokens      = 4096
	anthropicVersion      = "2023-06-01"
	defaultRequestTimeout = 90 * time.Second
)

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
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	c := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: "https://api.anthropic.com",
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		Streaming:        false,
		StructuredOutput: false,
	}
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	system, user := llm.SplitPrompt(req.Blocks)
	if len(req.ResponseSchema) > 0 {
		// The messages API has no schema-constrained mode, so the
		// schema rides along as an instruction and validation happens
		// downstream.
		schemaRaw, err := json.Marshal(req.ResponseSchema)
		if err != nil {
			return llm.Response{}, fmt.Errorf("failed to marshal response schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond with JSON only, matching this schema:\n" + string(schemaRaw))
	}

	payload := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: user},
		},
	}
	if req.Temperature != nil {
		payload.Temperature = req.Temperature
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return llm.Response{}, fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(raw))
	if err != nil {
		return llm.Response{}, fmt.Errorf("failed to create anthropic request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Response{}, fmt.Errorf("failed to read anthropic response: %w", err)
	}
	if resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return llm.Response{}, fmt.Errorf("%w: anthropic API error (%d): %s", llm.ErrInvocationRejected, resp.StatusCode, detail)
		}
		return llm.Response{}, fmt.Errorf("anthropic API error (%d): %s", resp.StatusCode, detail)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return llm.Response{}, fmt.Errorf("failed to decode anthropic response: %w", err)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := llm.Response{Text: text.String()}
	if apiResp.Usage.InputTokens > 0 || apiResp.Usage.OutputTokens > 0 {
		out.Usage = &llm.Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
			TotalTokens:  apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		}
	}
	return out, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

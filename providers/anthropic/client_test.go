package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eatingfood142434/Hackthe6ix/llm"
)

func TestGenerate_SplitsSystemAndUserBlocks(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("missing anthropic-version header")
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "scanned"}},
			"usage":   map[string]any{"input_tokens": 3, "output_tokens": 4},
		})
	}))
	defer server.Close()

	c, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := c.Generate(context.Background(), llm.Request{
		Blocks: []llm.Block{
			{Role: llm.BlockRoleSystem, Text: "You scan code."},
			{Role: llm.BlockRoleUser, Text: "the files"},
		},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "scanned" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
		t.Fatalf("unexpected usage: %#v", resp.Usage)
	}
	if captured.System != "You scan code." {
		t.Fatalf("system prompt not split out: %q", captured.System)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Content != "the files" {
		t.Fatalf("unexpected messages: %#v", captured.Messages)
	}
}

func TestGenerate_SchemaBecomesInstruction(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "{}"}},
		})
	}))
	defer server.Close()

	c, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = c.Generate(context.Background(), llm.Request{
		ResponseSchema: map[string]any{"type": "object"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(captured.System, `"type":"object"`) {
		t.Fatalf("schema instruction missing from system prompt: %q", captured.System)
	}
}

func TestGenerate_ClientErrorMapsToRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request"}}`))
	}))
	defer server.Close()

	c, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = c.Generate(context.Background(), llm.Request{})
	if !errors.Is(err, llm.ErrInvocationRejected) {
		t.Fatalf("expected ErrInvocationRejected, got %v", err)
	}
}

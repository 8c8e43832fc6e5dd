// Package factory builds an llm.Provider from environment variables.
package factory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/eatingfood142434/Hackthe6ix/internal/config"
	"github.com/eatingfood142434/Hackthe6ix/llm"
	anthropicprov "github.com/eatingfood142434/Hackthe6ix/providers/anthropic"
	geminiprov "github.com/eatingfood142434/Hackthe6ix/providers/gemini"
	openaiprov "github.com/eatingfood142434/Hackthe6ix/providers/openai"
)

// FromEnv selects a provider via WORKFLOW_PROVIDER (default openai)
// and configures it from the provider's own environment variables.
func FromEnv(ctx context.Context) (llm.Provider, error) {
	provider := strings.ToLower(config.GetenvDefault("WORKFLOW_PROVIDER", "openai"))
	switch provider {
	case "openai":
		key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when WORKFLOW_PROVIDER=openai")
		}
		model := config.GetenvDefault("OPENAI_MODEL", "gpt-4o-mini")
		baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))

		opts := []openaiprov.Option{openaiprov.WithModel(model)}
		if baseURL != "" {
			opts = append(opts, openaiprov.WithBaseURL(baseURL))
		}
		return openaiprov.New(key, opts...)

	case "anthropic":
		key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when WORKFLOW_PROVIDER=anthropic")
		}
		model := config.GetenvDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
		baseURL := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL"))

		opts := []anthropicprov.Option{anthropicprov.WithModel(model)}
		if baseURL != "" {
			opts = append(opts, anthropicprov.WithBaseURL(baseURL))
		}
		return anthropicprov.New(key, opts...)

	case "gemini":
		key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when WORKFLOW_PROVIDER=gemini")
		}
		model := config.GetenvDefault("GEMINI_MODEL", "gemini-2.5-flash")
		return geminiprov.New(ctx, key, geminiprov.WithModel(model))
	}

	return nil, fmt.Errorf("unsupported WORKFLOW_PROVIDER %q (use openai, anthropic, or gemini)", provider)
}

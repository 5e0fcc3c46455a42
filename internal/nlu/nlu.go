// Package nlu selects and wraps the language-model backend that turns guest
// messages into tool calls.
package nlu

import (
	"context"
	"fmt"

	"github.com/slotbot/slotbot/internal/nlu/contract"
	"github.com/slotbot/slotbot/internal/nlu/providers/anthropic"
	"github.com/slotbot/slotbot/internal/nlu/providers/gemini"
	"github.com/slotbot/slotbot/internal/nlu/providers/openai"
)

type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
}

// New builds the provider named in config. "ollama" is the OpenAI-compatible
// local backend and only differs in its base URL.
func New(provider, apiKey, baseURL, model string) (Provider, error) {
	switch provider {
	case "anthropic":
		return anthropic.New(apiKey, model), nil
	case "openai":
		return openai.New(apiKey, baseURL, model), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		return openai.New(apiKey, baseURL, model), nil
	case "gemini":
		return gemini.New(apiKey, model)
	default:
		return nil, fmt.Errorf("unknown nlu provider %q", provider)
	}
}

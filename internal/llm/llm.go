// Package llm talks to chat-completion backends.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrCompletion wraps every failure reported by a completion backend
var ErrCompletion = errors.New("completion failed")

// Request is a single-turn completion request
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Completer produces a completion for a request. Each call is attempted once.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Provider names
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config selects and configures a completion backend
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// New creates the Completer for the configured provider
func New(cfg Config, opts ...ClientOption) (Completer, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaClient(cfg.BaseURL, cfg.Model, opts...), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: ollama, openai)", cfg.Provider)
	}
}

// Package oracle turns a script failure into a proposed patch by
// consulting an LLM. The model is a black box behind the Client
// interface; everything here is prompt construction, reply parsing,
// and the discipline to re-ask until the reply is usable.
package oracle

import (
	"context"
	"fmt"
	"os"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a chat-completion backend. Implementations handle their own
// transport retries; callers only see the final reply text.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// Provider names accepted by NewClient.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Options configures a provider client.
type Options struct {
	Provider    string
	Model       string
	Host        string // base URL for ollama and OpenAI-compatible endpoints
	APIKey      string
	Timeout     time.Duration
	Temperature float64
}

// NewClient builds the client for the configured provider.
func NewClient(opts Options) (Client, error) {
	switch opts.Provider {
	case "", ProviderOllama:
		return NewOllamaClient(opts), nil
	case ProviderOpenAI:
		return NewOpenAIClient(opts)
	case ProviderGemini:
		return NewGeminiClient(opts)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", opts.Provider)
	}
}

// DetectProvider picks a provider from the environment: a configured
// API key wins, otherwise the local ollama daemon.
func DetectProvider() string {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		return ProviderGemini
	}
	return ProviderOllama
}

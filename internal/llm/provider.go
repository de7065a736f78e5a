// Package llm drives the vessel lookup tool from an OpenAI-compatible chat model.
package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Provider defines the interface for chat models that can call tools
type Provider interface {
	// Name returns the provider name
	Name() string

	// Chat sends the conversation and returns the model's next message
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ChatRequest is one round trip to the model.
type ChatRequest struct {
	Messages []openai.ChatCompletionMessage
	Tools    []openai.Tool
}

// ChatResponse carries the assistant message and token usage.
type ChatResponse struct {
	Message    openai.ChatCompletionMessage
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI; ignored by Ollama
	APIKey string

	// BaseURL for custom OpenAI-compatible endpoints
	BaseURL string

	// Timeout per completion request
	Timeout int // seconds

	// MaxTurns bounds the number of completions per question
	MaxTurns int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider: "ollama",
		Model:    "llama3.2",
		Timeout:  60,
		MaxTurns: 6,
	}
}

const systemPrompt = `You answer questions about ships using AIS (Automatic Identification System) data.
Use the vessel lookup tool for every fact about a vessel: position, speed, course, identity,
dimensions, type, cargo and navigational status. Never guess values the tool did not return.
If the tool reports an ambiguous match, list the candidates and ask which one is meant.
If it reports no match or an invalid request, say so plainly. Timestamps are UTC.`

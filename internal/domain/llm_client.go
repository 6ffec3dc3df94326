package domain

import "context"

// Message is one turn of a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions tunes a single generation request. A zero Seed means
// unseeded; a non-zero seed must be reused identically across retries so
// repeated attempts are comparable.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	Seed        int
}

// LLMClient is the single capability surface over the configured model
// backend. Implementations must be safe for concurrent use.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message, opts GenerateOptions) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the raw generated text.
type LLMResponse struct {
	Text string
	Done bool
}

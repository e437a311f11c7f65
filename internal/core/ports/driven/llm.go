// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides language model operations for answering questions
// and writing support pages.
//
// Implementations may include:
//   - OpenAI (GPT-4o)
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream starts a conversation whose reply is delivered in fragments.
	// The caller must Close the stream; closing early aborts the upstream request.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions) (ChatStream, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatStream is a pull-based sequence of reply fragments.
type ChatStream interface {
	// Recv returns the next fragment, or io.EOF once the reply is complete.
	Recv() (string, error)

	// Close releases the stream. It is safe to call more than once.
	Close() error
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

package driving

import (
	"context"

	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// ChatService answers questions from the stored support content.
type ChatService interface {
	// Answer returns a complete answer. When nothing relevant is stored the
	// configured fallback message is returned without calling the LLM.
	Answer(ctx context.Context, query string) (string, error)

	// AnswerStream returns the answer as fragments. Closing the stream or
	// cancelling ctx aborts generation.
	AnswerStream(ctx context.Context, query string) (driven.ChatStream, error)
}

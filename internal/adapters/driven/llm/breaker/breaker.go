// Package breaker guards an LLM service with a circuit breaker so that a
// failing provider is not hammered by every incoming question.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Config controls when the breaker trips.
type Config struct {
	// ConsecutiveFailures trips the breaker (default: 5).
	ConsecutiveFailures uint32

	// Timeout is how long the breaker stays open before probing (default: 30s).
	Timeout time.Duration
}

// LLMService fails fast with domain.ErrLLMUnavailable while the breaker is open.
type LLMService struct {
	driven.LLMService
	cb *gobreaker.CircuitBreaker
}

// Wrap guards next.
func Wrap(next driven.LLMService, cfg Config) *LLMService {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &LLMService{
		LLMService: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm:" + next.ModelName(),
			MaxRequests: 1,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
			},
			// Cancellations are the caller's doing, not the provider's.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// State reports the breaker state.
func (s *LLMService) State() gobreaker.State {
	return s.cb.State()
}

func unavailable(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return err
}

// Chat runs through the breaker.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.LLMService.Chat(ctx, messages, opts)
	})
	if err != nil {
		return "", unavailable(err)
	}
	reply, _ := out.(string)
	return reply, nil
}

// ChatStream counts only the opening of the stream against the breaker.
func (s *LLMService) ChatStream(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (driven.ChatStream, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.LLMService.ChatStream(ctx, messages, opts)
	})
	if err != nil {
		return nil, unavailable(err)
	}
	stream, _ := out.(driven.ChatStream)
	return stream, nil
}

// Package throttle limits the request rate of an embedding service.
package throttle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService waits on a token bucket before each Embed call.
type EmbeddingService struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// Wrap limits next to requestsPerSecond with a burst of one.
// A non-positive rate returns next unchanged.
func Wrap(next driven.EmbeddingService, requestsPerSecond float64) driven.EmbeddingService {
	if requestsPerSecond <= 0 {
		return next
	}
	return &EmbeddingService{
		EmbeddingService: next,
		limiter:          rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Embed blocks until a token is available or ctx is done.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrEmbedding, err)
	}
	return s.EmbeddingService.Embed(ctx, text)
}

package driven

import (
	"context"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

// IngestQueue hands documents to background workers for ingestion.
type IngestQueue interface {
	// Enqueue publishes a job. It returns once the broker has accepted it.
	Enqueue(ctx context.Context, job domain.IngestJob) error

	// Close releases the connection.
	Close() error
}

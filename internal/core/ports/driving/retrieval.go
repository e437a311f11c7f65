package driving

import (
	"context"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

// RetrievalService ingests documents and ranks stored chunks against questions.
type RetrievalService interface {
	// Ingest reads, chunks, embeds and stores one document.
	// Failures are *domain.IngestionError values; chunks written before the
	// failure remain and re-running is safe.
	Ingest(ctx context.Context, documentPath string) error

	// Retrieve embeds the query and returns matching chunks, best first.
	Retrieve(ctx context.Context, query string, matchThreshold float64, matchCount int) ([]domain.QueryResult, error)
}

package driven

import (
	"context"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

// VectorRepository stores chunk records and ranks them against a query embedding.
//
// Implementations:
//   - postgres: pgvector column, server-side match_documents function
//   - sqlite: float32 blobs, brute-force cosine scan in process
//   - qdrant: HNSW collection, approximate search
//   - memory: in-process scan, not persisted
type VectorRepository interface {
	// Initialize creates schema, tables or collections if absent.
	// Calling it again is a no-op.
	Initialize(ctx context.Context) error

	// Insert upserts a record by ID.
	// A wrong-dimension or empty embedding fails with domain.ErrValidation;
	// I/O failures wrap domain.ErrStorage.
	Insert(ctx context.Context, record domain.Record) error

	// Search returns at most matchCount results whose similarity is at least
	// matchThreshold, in descending similarity with ties in insertion order.
	// An empty result is not an error.
	Search(ctx context.Context, query []float32, matchThreshold float64, matchCount int) ([]domain.QueryResult, error)
}

// RecordCounter is implemented by repositories that can report their size.
type RecordCounter interface {
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

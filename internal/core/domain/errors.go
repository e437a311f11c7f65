package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Adapters wrap these with %w so callers can match on them with errors.Is.
var (
	// ErrValidation indicates a record or query was rejected before reaching storage,
	// for example an embedding whose length does not match the repository dimension.
	ErrValidation = errors.New("validation failed")

	// ErrEmbedding indicates the embedding provider failed or returned a malformed vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStorage indicates the vector repository could not complete an I/O operation.
	ErrStorage = errors.New("storage failed")

	// ErrIngestion indicates a document could not be fully ingested.
	ErrIngestion = errors.New("ingestion failed")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrQueueUnavailable indicates no ingestion queue is configured.
	ErrQueueUnavailable = errors.New("ingestion queue unavailable")

	// ErrUnsupported indicates the configured backend does not offer an optional operation.
	ErrUnsupported = errors.New("operation not supported")
)

// IngestionError reports which document, and which chunk of it, failed to ingest.
// ChunkIndex is -1 when the failure happened before chunking (e.g. reading the file).
//
// It matches both ErrIngestion and the underlying cause under errors.Is.
type IngestionError struct {
	Path       string
	ChunkIndex int
	Err        error
}

func (e *IngestionError) Error() string {
	if e.ChunkIndex < 0 {
		return fmt.Sprintf("%s: %s: %v", ErrIngestion, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s (chunk %d): %v", ErrIngestion, e.Path, e.ChunkIndex, e.Err)
}

// Unwrap exposes ErrIngestion and the cause.
func (e *IngestionError) Unwrap() []error {
	return []error{ErrIngestion, e.Err}
}

package driven

import "github.com/custodia-labs/vidrag/internal/core/domain"

// Chunker splits document text into chunks ready for embedding.
type Chunker interface {
	// Name returns the processor name for logging.
	Name() string

	// Process splits content into chunks in document order and attaches
	// sourcePath, chunkIndex and title metadata. Empty chunks are never returned.
	Process(documentPath, content, title string) []domain.Chunk
}

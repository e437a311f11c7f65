package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService ingests markdown documents and answers similarity queries.
// It holds no locks; concurrent Ingest calls for different documents are safe
// when the repository tolerates concurrent inserts.
type RetrievalService struct {
	embedder driven.EmbeddingService
	repo     driven.VectorRepository
	chunker  driven.Chunker
	readFile func(string) ([]byte, error)
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	repo driven.VectorRepository,
	chunker driven.Chunker,
) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		repo:     repo,
		chunker:  chunker,
		readFile: os.ReadFile,
	}
}

// Ingest reads, chunks, embeds and stores one document, one chunk at a time.
// Record IDs are derived from the absolute path and chunk index, so
// re-running overwrites the same records however the path is spelled.
func (s *RetrievalService) Ingest(ctx context.Context, documentPath string) error {
	documentPath = domain.CanonicalPath(documentPath)
	logger.Section("Ingest " + documentPath)

	data, err := s.readFile(documentPath)
	if err != nil {
		return &domain.IngestionError{Path: documentPath, ChunkIndex: -1, Err: fmt.Errorf("reading document: %w", err)}
	}

	content := string(data)
	title := domain.ExtractTitle(content, documentPath)
	chunks := s.chunker.Process(documentPath, content, title)
	logger.Debug("%s: title %q, %d chunks", documentPath, title, len(chunks))

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return &domain.IngestionError{Path: documentPath, ChunkIndex: i, Err: err}
		}

		embedding, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return &domain.IngestionError{Path: documentPath, ChunkIndex: i, Err: fmt.Errorf("embedding chunk: %w", err)}
		}

		record := domain.Record{
			ID:        domain.RecordID(documentPath, i),
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Embedding: embedding,
		}
		if err := s.repo.Insert(ctx, record); err != nil {
			return &domain.IngestionError{Path: documentPath, ChunkIndex: i, Err: fmt.Errorf("saving record: %w", err)}
		}
	}

	logger.Info("Ingested %s (%d chunks)", documentPath, len(chunks))
	return nil
}

// Retrieve embeds query and returns the repository's ranked matches unchanged.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, matchThreshold float64, matchCount int,
) ([]domain.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrValidation)
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.repo.Search(ctx, embedding, matchThreshold, matchCount)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	logger.Debug("Retrieved %d results for %q (threshold %.2f, count %d)",
		len(results), query, matchThreshold, matchCount)
	return results, nil
}

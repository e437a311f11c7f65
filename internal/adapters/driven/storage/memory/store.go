package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// Ensure Repository implements the interfaces.
var (
	_ driven.VectorRepository = (*Repository)(nil)
	_ driven.RecordCounter    = (*Repository)(nil)
)

type entry struct {
	record domain.Record
	seq    int64
}

// Repository is an in-memory implementation of driven.VectorRepository.
// Search is a linear cosine scan; nothing survives the process.
type Repository struct {
	mu         sync.RWMutex
	dimensions int
	records    map[string]entry
	nextSeq    int64
}

// NewRepository creates an empty repository for embeddings of the given length.
// A dimension of zero accepts any non-empty embedding.
func NewRepository(dimensions int) *Repository {
	return &Repository{
		dimensions: dimensions,
		records:    make(map[string]entry),
	}
}

// Initialize is a no-op; the map is ready on construction.
func (r *Repository) Initialize(_ context.Context) error {
	return nil
}

// Insert upserts a record. A replaced record keeps its original position
// for tie-breaking.
func (r *Repository) Insert(_ context.Context, rec domain.Record) error {
	if err := domain.ValidateRecord(rec, r.dimensions); err != nil {
		return err
	}

	stored := domain.Record{
		ID:        rec.ID,
		Content:   rec.Content,
		Metadata:  maps.Clone(rec.Metadata),
		Embedding: slices.Clone(rec.Embedding),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.nextSeq
	if existing, ok := r.records[rec.ID]; ok {
		seq = existing.seq
	} else {
		r.nextSeq++
	}
	r.records[rec.ID] = entry{record: stored, seq: seq}
	return nil
}

// Search scores every record against query.
func (r *Repository) Search(_ context.Context, query []float32, matchThreshold float64, matchCount int) ([]domain.QueryResult, error) {
	if err := domain.ValidateSearch(query, r.dimensions, matchCount); err != nil {
		return nil, err
	}

	r.mu.RLock()
	candidates := make([]similarity.Candidate, 0, len(r.records))
	for _, e := range r.records {
		candidates = append(candidates, similarity.Candidate{
			Result: domain.QueryResult{
				ID:         e.record.ID,
				Content:    e.record.Content,
				Metadata:   maps.Clone(e.record.Metadata),
				Similarity: similarity.Cosine(query, e.record.Embedding),
			},
			Seq: e.seq,
		})
	}
	r.mu.RUnlock()

	return similarity.Rank(candidates, matchThreshold, matchCount), nil
}

// Count returns the number of stored records.
func (r *Repository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

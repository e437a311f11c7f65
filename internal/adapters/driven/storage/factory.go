// Package storage selects and opens the configured vector repository.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/instrumented"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Repository is an instrumented vector repository that owns its backend connection.
type Repository struct {
	*instrumented.Repository
	closeFn func() error
}

// Close releases the backend connection.
func (r *Repository) Close() error {
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

// Open connects to the backend named in settings. dimensions is the embedding
// length every stored vector must have. A nil metrics uses the process default.
func Open(ctx context.Context, settings domain.StorageSettings, dimensions int, metrics *instrumented.Metrics) (*Repository, error) {
	if metrics == nil {
		metrics = instrumented.DefaultMetrics()
	}

	var (
		next    driven.VectorRepository
		closeFn func() error
	)

	switch settings.Backend {
	case domain.StorageSQLite:
		store, err := sqlite.NewStore(settings.SQLitePath, dimensions)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		next, closeFn = store, store.Close

	case domain.StoragePostgres:
		store, err := postgres.Open(ctx, postgres.Config{
			DSN:        settings.PostgresDSN,
			Table:      settings.Table,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, err
		}
		next, closeFn = store, store.Close

	case domain.StorageQdrant:
		store, err := qdrant.New(settings.QdrantAddr, settings.Collection, dimensions)
		if err != nil {
			return nil, err
		}
		next, closeFn = store, store.Close

	case domain.StorageMemory:
		next = memory.NewRepository(dimensions)

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrValidation, settings.Backend)
	}

	logger.Debug("storage: opened %s backend (%d dimensions)", settings.Backend, dimensions)
	return &Repository{
		Repository: instrumented.Wrap(next, settings.Backend.String(), metrics),
		closeFn:    closeFn,
	}, nil
}

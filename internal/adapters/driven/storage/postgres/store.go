// Package postgres provides a vector repository on PostgreSQL with pgvector.
//
// Records live in a table with a vector(d) column and an HNSW cosine index.
// Search calls a server-side match_<table> function (match_documents for the
// default table) that filters by threshold and orders by distance. Rows are
// filtered and ranked again client-side before they are returned.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorRepository = (*Store)(nil)
	_ driven.RecordCounter    = (*Store)(nil)
)

// Default configuration values.
const (
	DefaultTable          = "documents"
	DefaultMaxOpenConns   = 25
	DefaultMaxIdleConns   = 5
	DefaultConnectRetries = 3
	pingTimeout           = 5 * time.Second
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,50}$`)

// Config holds connection settings.
type Config struct {
	// DSN is a PostgreSQL URL or keyword/value connection string.
	DSN string

	// Table is the records table (default: documents).
	Table string

	// Dimensions is the length of the vector column.
	Dimensions int

	MaxOpenConns int
	MaxIdleConns int

	// ConnectRetries is how many times a failed startup ping is retried
	// with exponential backoff. Zero means DefaultConnectRetries.
	ConnectRetries int
}

// Store is a pgvector-backed vector repository.
type Store struct {
	db         *sqlx.DB
	table      string
	function   string
	dimensions int
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: connection string is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = DefaultMaxIdleConns
	}

	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := pingWithRetry(ctx, db, cfg.ConnectRetries); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: %w: ping: %w", domain.ErrStorage, err)
	}

	store, err := NewWithDB(db, cfg.Table, cfg.Dimensions)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// pingWithRetry pings the database, backing off between attempts.
func pingWithRetry(ctx context.Context, db *sqlx.DB, retries int) error {
	if retries <= 0 {
		retries = DefaultConnectRetries
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	return backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		err := db.PingContext(pingCtx)
		if err != nil {
			logger.Debug("postgres: ping failed, retrying: %v", err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx))
}

// NewWithDB wraps an existing connection pool.
func NewWithDB(db *sqlx.DB, table string, dimensions int) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("postgres: %w: invalid table name %q", domain.ErrValidation, table)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("postgres: %w: dimensions must be positive", domain.ErrValidation)
	}
	return &Store{
		db:         db,
		table:      table,
		function:   "match_" + table,
		dimensions: dimensions,
	}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// schemaStatements returns the idempotent DDL for this store.
func (s *Store) schemaStatements() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL NOT NULL,
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL
		)`, s.table, s.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s(
			query_embedding vector(%d),
			match_threshold float,
			match_count int
		)
		RETURNS TABLE (seq bigint, id text, content text, metadata jsonb, similarity float)
		LANGUAGE sql STABLE
		AS $$
			SELECT d.seq, d.id, d.content, d.metadata,
				1 - (d.embedding <=> query_embedding) AS similarity
			FROM %s d
			WHERE 1 - (d.embedding <=> query_embedding) >= match_threshold
			ORDER BY d.embedding <=> query_embedding, d.seq
			LIMIT match_count
		$$`, s.function, s.dimensions, s.table),
	}
}

// Initialize creates the extension, table, index and match function if absent.
func (s *Store) Initialize(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: %w: initializing schema: %w", domain.ErrStorage, err)
		}
	}
	return nil
}

// Insert upserts a record by ID. The seq column is only assigned on first insert.
func (s *Store) Insert(ctx context.Context, rec domain.Record) error {
	if err := domain.ValidateRecord(rec, s.dimensions); err != nil {
		return err
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("postgres: %w: marshalling metadata: %w", domain.ErrValidation, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, s.table)

	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Content, string(metadataJSON), pgvector.NewVector(rec.Embedding)); err != nil {
		return fmt.Errorf("postgres: %w: saving record: %w", domain.ErrStorage, err)
	}
	return nil
}

// matchRow is one row returned by the match function.
type matchRow struct {
	Seq        int64   `db:"seq"`
	ID         string  `db:"id"`
	Content    string  `db:"content"`
	Metadata   []byte  `db:"metadata"`
	Similarity float64 `db:"similarity"`
}

// Search calls the match function and re-ranks its rows.
func (s *Store) Search(ctx context.Context, query []float32, matchThreshold float64, matchCount int) ([]domain.QueryResult, error) {
	if err := domain.ValidateSearch(query, s.dimensions, matchCount); err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(`SELECT seq, id, content, metadata, similarity FROM %s($1, $2, $3)`, s.function)

	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, stmt,
		pgvector.NewVector(query), matchThreshold, matchCount); err != nil {
		return nil, fmt.Errorf("postgres: %w: calling %s: %w", domain.ErrStorage, s.function, err)
	}

	candidates := make([]similarity.Candidate, 0, len(rows))
	for _, row := range rows {
		result := domain.QueryResult{
			ID:         row.ID,
			Content:    row.Content,
			Similarity: row.Similarity,
		}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &result.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: %w: decoding metadata of %s: %w", domain.ErrStorage, row.ID, err)
			}
		}
		candidates = append(candidates, similarity.Candidate{Result: result, Seq: row.Seq})
	}

	return similarity.Rank(candidates, matchThreshold, matchCount), nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)); err != nil {
		return 0, fmt.Errorf("postgres: %w: counting records: %w", domain.ErrStorage, err)
	}
	return n, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorRepository = (*Store)(nil)
	_ driven.RecordCounter    = (*Store)(nil)
)

// dbFile is the database filename inside the data directory.
const dbFile = "documents.db"

// Store is a SQLite-backed vector repository.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int
	migrations fs.FS
}

// NewStore opens the database in dataDir for embeddings of the given length.
// If dataDir is empty, defaults to ~/.vidrag/data. The schema is created by Initialize.
func NewStore(dataDir string, dimensions int) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vidrag", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &Store{
		db:         db,
		path:       dbPath,
		dimensions: dimensions,
		migrations: migrations.FS,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Initialize applies pending migrations. Safe to call repeatedly.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("%w: running migrations: %w", domain.ErrStorage, err)
	}
	return nil
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(s.migrations, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_documents.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(s.migrations, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// Insert upserts a record by ID. A new ID takes the next seq; an existing
// one keeps its seq.
func (s *Store) Insert(ctx context.Context, rec domain.Record) error {
	if err := domain.ValidateRecord(rec, s.dimensions); err != nil {
		return err
	}

	metadataJSON, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return fmt.Errorf("%w: marshalling metadata: %w", domain.ErrValidation, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, content, metadata, embedding, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM documents))
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`, rec.ID, rec.Content, metadataJSON, float32SliceToBytes(rec.Embedding))
	if err != nil {
		return fmt.Errorf("%w: saving record: %w", domain.ErrStorage, err)
	}
	return nil
}

// Search scores every stored record against query.
func (s *Store) Search(ctx context.Context, query []float32, matchThreshold float64, matchCount int) ([]domain.QueryResult, error) {
	if err := domain.ValidateSearch(query, s.dimensions, matchCount); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, content, metadata, embedding
		FROM documents
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying records: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	var candidates []similarity.Candidate
	for rows.Next() {
		var (
			seq          int64
			result       domain.QueryResult
			metadataJSON string
			blob         []byte
		)
		if err := rows.Scan(&seq, &result.ID, &result.Content, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning record: %w", domain.ErrStorage, err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &result.Metadata); err != nil {
			return nil, fmt.Errorf("%w: decoding metadata of %s: %w", domain.ErrStorage, result.ID, err)
		}
		result.Similarity = similarity.Cosine(query, bytesToFloat32Slice(blob))
		candidates = append(candidates, similarity.Candidate{Result: result, Seq: seq})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating records: %w", domain.ErrStorage, err)
	}

	return similarity.Rank(candidates, matchThreshold, matchCount), nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting records: %w", domain.ErrStorage, err)
	}
	return n, nil
}

func marshalMetadata(meta map[string]any) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Metadata keys attached to every stored chunk.
const (
	MetaSourcePath = "sourcePath"
	MetaChunkIndex = "chunkIndex"
	MetaTitle      = "title"
)

// Chunk is a bounded segment of a document produced during ingestion.
// It is never persisted on its own; the repository stores Records.
type Chunk struct {
	// Content is the trimmed chunk text.
	Content string

	// Metadata carries sourcePath, chunkIndex and title.
	Metadata map[string]any
}

// Record is the persisted form of a chunk.
type Record struct {
	// ID is unique within a repository and immutable once assigned.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata is an open map; see the Meta* keys.
	Metadata map[string]any

	// Embedding length equals the repository dimension.
	Embedding []float32
}

// QueryResult is a stored record ranked against a query embedding.
// Higher Similarity means more relevant. Results are never persisted.
type QueryResult struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// Title returns the title metadata, falling back to the record ID.
func (r QueryResult) Title() string {
	if t, ok := r.Metadata[MetaTitle].(string); ok && t != "" {
		return t
	}
	return r.ID
}

// SourcePath returns the path of the document the chunk came from.
func (r QueryResult) SourcePath() string {
	s, _ := r.Metadata[MetaSourcePath].(string)
	return s
}

// ChunkIndex returns the chunk position within its document, or -1 if unknown.
// Metadata decoded from JSON carries numbers as float64.
func (r QueryResult) ChunkIndex() int {
	switch v := r.Metadata[MetaChunkIndex].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return -1
	}
}

// CanonicalPath returns the absolute, cleaned form of documentPath so that
// "a.md", "./a.md" and "/srv/docs/a.md" name the same document.
func CanonicalPath(documentPath string) string {
	if abs, err := filepath.Abs(documentPath); err == nil {
		return abs
	}
	return filepath.Clean(documentPath)
}

// RecordID builds the composite record identifier for a chunk.
// Re-ingesting the same path yields the same IDs, which makes ingestion an upsert.
func RecordID(documentPath string, chunkIndex int) string {
	return fmt.Sprintf("%s-%d", documentPath, chunkIndex)
}

// ChunkMetadata builds the metadata map stored with every chunk.
func ChunkMetadata(documentPath string, chunkIndex int, title string) map[string]any {
	meta := map[string]any{
		MetaSourcePath: documentPath,
		MetaChunkIndex: chunkIndex,
	}
	if title != "" {
		meta[MetaTitle] = title
	}
	return meta
}

// ExtractTitle returns the text of the first line starting with "# ".
// Without such a heading the base filename of documentPath is used.
func ExtractTitle(content, documentPath string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "# ") {
			if title := strings.TrimSpace(line[2:]); title != "" {
				return title
			}
		}
	}
	return filepath.Base(documentPath)
}

// ValidateEmbedding rejects empty vectors and vectors whose length differs from dims.
// A dims of zero skips the length check.
func ValidateEmbedding(embedding []float32, dims int) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding is empty", ErrValidation)
	}
	if dims > 0 && len(embedding) != dims {
		return fmt.Errorf("%w: embedding has %d dimensions, repository expects %d",
			ErrValidation, len(embedding), dims)
	}
	return nil
}

// ValidateRecord checks a record before it is written.
func ValidateRecord(rec Record, dims int) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is empty", ErrValidation)
	}
	return ValidateEmbedding(rec.Embedding, dims)
}

// ValidateSearch checks the arguments of a similarity query.
func ValidateSearch(query []float32, dims, matchCount int) error {
	if matchCount < 1 {
		return fmt.Errorf("%w: match count must be positive, got %d", ErrValidation, matchCount)
	}
	return ValidateEmbedding(query, dims)
}

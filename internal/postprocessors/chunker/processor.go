// Package chunker splits document text into paragraph-aligned chunks.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default soft limit on characters per chunk.
const DefaultChunkSize = 1000

// paragraphSeparator separates paragraphs in the input and joins them in chunks.
const paragraphSeparator = "\n\n"

// Processor greedily packs paragraphs into chunks of at most chunkSize characters.
// A single paragraph longer than chunkSize becomes its own chunk and is never split.
type Processor struct {
	chunkSize int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured soft limit.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Split returns the trimmed chunks of content in document order.
// The result is deterministic in content and chunk size and never contains
// an empty string.
func (p *Processor) Split(content string) []string {
	var chunks []string
	var buf strings.Builder

	flush := func() {
		if chunk := strings.TrimSpace(buf.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
	}

	for _, paragraph := range strings.Split(content, paragraphSeparator) {
		if buf.Len() == 0 {
			buf.WriteString(paragraph)
			continue
		}

		joined := utf8.RuneCountInString(buf.String()) +
			utf8.RuneCountInString(paragraphSeparator) +
			utf8.RuneCountInString(paragraph)
		if joined > p.chunkSize {
			flush()
			buf.WriteString(paragraph)
			continue
		}

		buf.WriteString(paragraphSeparator)
		buf.WriteString(paragraph)
	}
	flush()

	return chunks
}

// Process splits content and attaches chunk metadata for documentPath.
func (p *Processor) Process(documentPath, content, title string) []domain.Chunk {
	parts := p.Split(content)
	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{
			Content:  part,
			Metadata: domain.ChunkMetadata(documentPath, i, title),
		}
	}
	return chunks
}

package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService maps known texts to fixed vectors.
type mockEmbeddingService struct {
	vectors  map[string][]float32
	fallback []float32
	failOn   string
	err      error

	mu    sync.Mutex
	calls []string
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if m.err != nil && (m.failOn == "" || m.failOn == text) {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbeddingService) Dimensions() int            { return len(m.fallback) }
func (m *mockEmbeddingService) ModelName() string          { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error               { return nil }

// mockRetrieval implements driving.RetrievalService.
type mockRetrieval struct {
	results []domain.QueryResult
	err     error

	ingested  []string
	ingestErr error

	gotThreshold float64
	gotCount     int
}

func (m *mockRetrieval) Ingest(_ context.Context, path string) error {
	m.ingested = append(m.ingested, path)
	return m.ingestErr
}

func (m *mockRetrieval) Retrieve(_ context.Context, _ string, threshold float64, count int) ([]domain.QueryResult, error) {
	m.gotThreshold = threshold
	m.gotCount = count
	return m.results, m.err
}

// mockLLMService records the conversation it was given.
type mockLLMService struct {
	reply     string
	fragments []string
	err       error

	calls    int
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	return m.reply, m.err
}

func (m *mockLLMService) ChatStream(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (driven.ChatStream, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	return &sliceStream{fragments: m.fragments}, nil
}

func (m *mockLLMService) ModelName() string          { return "mock-llm" }
func (m *mockLLMService) Ping(context.Context) error { return nil }
func (m *mockLLMService) Close() error               { return nil }

type sliceStream struct {
	fragments []string
	closed    bool
}

func (s *sliceStream) Recv() (string, error) {
	if s.closed || len(s.fragments) == 0 {
		return "", io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// mockPromptStore serves fixed templates.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("unknown prompt " + name)
}

func defaultMockPrompts() *mockPromptStore {
	return &mockPromptStore{prompts: map[string]string{
		driven.PromptChatSystem:  "Answer from this context:\n%s",
		driven.PromptSupportPage: "Video %s. Transcript:\n%s",
	}}
}

// mockExtractor writes a placeholder audio file.
type mockExtractor struct {
	failFor string
	err     error
}

func (m *mockExtractor) Extract(_ context.Context, video, _ string) error {
	if m.err != nil && (m.failFor == "" || m.failFor == video) {
		return m.err
	}
	return nil
}

// mockTranscriber returns a fixed transcript.
type mockTranscriber struct {
	text string
	err  error
}

func (m *mockTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return m.text, m.err
}

// mockQueue records published jobs.
type mockQueue struct {
	jobs []domain.IngestJob
	err  error
}

func (m *mockQueue) Enqueue(_ context.Context, job domain.IngestJob) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockQueue) Close() error { return nil }

// failingRepository rejects inserts after the first n.
type failingRepository struct {
	driven.VectorRepository
	allow int
	err   error
	n     int
}

func (f *failingRepository) Insert(ctx context.Context, rec domain.Record) error {
	if f.n >= f.allow {
		return f.err
	}
	f.n++
	return f.VectorRepository.Insert(ctx, rec)
}

package mcp

import (
	"context"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.QueryResult
	err     error

	gotQuery     string
	gotThreshold float64
	gotCount     int
}

func (m *mockRetrievalService) Ingest(_ context.Context, _ string) error {
	return m.err
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	threshold float64,
	count int,
) ([]domain.QueryResult, error) {
	m.gotQuery = query
	m.gotThreshold = threshold
	m.gotCount = count
	return m.results, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer string
	err    error
}

func (m *mockChatService) Answer(_ context.Context, _ string) (string, error) {
	return m.answer, m.err
}

func (m *mockChatService) AnswerStream(_ context.Context, _ string) (driven.ChatStream, error) {
	return nil, m.err
}

// mockCounter is a mock implementation of driven.RecordCounter.
type mockCounter struct {
	n   int
	err error
}

func (m *mockCounter) Count(_ context.Context) (int, error) {
	return m.n, m.err
}

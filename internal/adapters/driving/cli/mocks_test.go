package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/core/services"
)

// mockRetrieval implements driving.RetrievalService for testing.
type mockRetrieval struct {
	mu        sync.Mutex
	ingested  []string
	failFor   map[string]bool
	results   []domain.QueryResult
	threshold float64
	count     int
	query     string
}

func (m *mockRetrieval) Ingest(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[path] {
		return &domain.IngestionError{Path: path, ChunkIndex: 0, Err: errors.New("embedding chunk: quota exceeded")}
	}
	m.ingested = append(m.ingested, path)
	return nil
}

func (m *mockRetrieval) Retrieve(_ context.Context, query string, threshold float64, count int) ([]domain.QueryResult, error) {
	m.query, m.threshold, m.count = query, threshold, count
	return m.results, nil
}

// mockChat implements driving.ChatService for testing.
type mockChat struct {
	answer  string
	err     error
	queries []string
}

func (m *mockChat) Answer(_ context.Context, query string) (string, error) {
	m.queries = append(m.queries, query)
	return m.answer, m.err
}

func (m *mockChat) AnswerStream(_ context.Context, query string) (driven.ChatStream, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return services.NewStaticStream(m.answer), nil
}

// mockPipeline implements driving.PipelineService for testing.
type mockPipeline struct {
	report *domain.PipelineReport
	err    error
	videos []string
}

func (m *mockPipeline) ProcessAll(_ context.Context) (*domain.PipelineReport, error) {
	return m.report, m.err
}

func (m *mockPipeline) ProcessVideo(_ context.Context, videoPath string) domain.VideoOutcome {
	m.videos = append(m.videos, videoPath)
	return domain.VideoOutcome{Video: videoPath, ContentPath: "content/x.md", Stage: domain.StageIngest}
}

// setupTestDeps swaps the container for one backed by in-memory fakes.
func setupTestDeps(t *testing.T) *container {
	t.Helper()

	settings := domain.DefaultAppSettings()
	settings.Storage.Backend = domain.StorageMemory
	settings.Embedding.Dimensions = 4

	c := &container{
		settingsSvc: services.NewSettingsService(memory.NewConfigStore()),
		settings:    &settings,
		repo:        memory.NewRepository(4),
		retrieval:   &mockRetrieval{},
		chat:        &mockChat{answer: "Use the export button."},
		pipeline:    &mockPipeline{},
	}

	original := deps
	deps = c
	t.Cleanup(func() { deps = original })
	return c
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so tests do not leak values.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

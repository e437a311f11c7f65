package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/vidrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/media/ffmpeg"
	natsqueue "github.com/custodia-labs/vidrag/internal/adapters/driven/queue/nats"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/storage"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
	"github.com/custodia-labs/vidrag/internal/core/services"
	"github.com/custodia-labs/vidrag/internal/logger"
	"github.com/custodia-labs/vidrag/internal/postprocessors/chunker"
)

// repository is what the commands need from a storage backend.
type repository interface {
	driven.VectorRepository
	driven.RecordCounter
}

// container builds the clients and services on first use so that each
// command only connects to what it needs. Tests pre-populate its fields.
type container struct {
	configDir string
	tracing   bool

	settingsSvc driving.SettingsService
	settings    *domain.AppSettings
	embedder    driven.EmbeddingService
	repo        repository
	retrieval   driving.RetrievalService
	llm         driven.LLMService
	prompts     driven.PromptStore
	chat        driving.ChatService
	pipeline    driving.PipelineService

	closers []func() error
}

// deps is the process-wide container.
var deps = &container{}

// SettingsService returns the settings service over the TOML config store.
func (c *container) SettingsService() (driving.SettingsService, error) {
	if c.settingsSvc != nil {
		return c.settingsSvc, nil
	}
	store, err := file.NewConfigStore(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	c.settingsSvc = services.NewSettingsService(store)
	return c.settingsSvc, nil
}

// Settings returns the resolved application settings.
func (c *container) Settings() (*domain.AppSettings, error) {
	if c.settings != nil {
		return c.settings, nil
	}
	svc, err := c.SettingsService()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	c.settings = settings
	return settings, nil
}

// Embedder returns the throttled, cached embedding client.
func (c *container) Embedder() (driven.EmbeddingService, error) {
	if c.embedder != nil {
		return c.embedder, nil
	}
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	embedder, err := ai.BuildEmbeddingService(settings)
	if err != nil {
		return nil, err
	}
	c.embedder = embedder
	c.onClose(embedder.Close)
	return embedder, nil
}

// Repository opens the configured backend. Its dimension follows the
// embedder when one has been built, and the settings otherwise.
func (c *container) Repository(ctx context.Context) (repository, error) {
	if c.repo != nil {
		return c.repo, nil
	}
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	dimensions := settings.Embedding.Dimensions
	if c.embedder != nil {
		dimensions = c.embedder.Dimensions()
	}

	repo, err := storage.Open(ctx, settings.Storage, dimensions, nil)
	if err != nil {
		return nil, err
	}
	c.repo = repo
	c.onClose(repo.Close)
	return repo, nil
}

// Retrieval returns the retrieval engine over an initialised repository.
func (c *container) Retrieval(ctx context.Context) (driving.RetrievalService, error) {
	if c.retrieval != nil {
		return c.retrieval, nil
	}
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	embedder, err := c.Embedder()
	if err != nil {
		return nil, err
	}
	repo, err := c.Repository(ctx)
	if err != nil {
		return nil, err
	}
	if err := repo.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initializing repository: %w", err)
	}

	c.retrieval = services.NewRetrievalService(
		embedder, repo, chunker.New(chunker.WithChunkSize(settings.Retrieval.ChunkSize)),
	)
	return c.retrieval, nil
}

// LLM returns the language model client behind its circuit breaker.
func (c *container) LLM() (driven.LLMService, error) {
	if c.llm != nil {
		return c.llm, nil
	}
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	llm, err := ai.BuildLLMService(&settings.LLM)
	if err != nil {
		return nil, err
	}
	c.llm = llm
	c.onClose(llm.Close)
	return llm, nil
}

// Prompts returns the prompt store under the configuration directory.
func (c *container) Prompts() (driven.PromptStore, error) {
	if c.prompts != nil {
		return c.prompts, nil
	}
	dir := ""
	if c.configDir != "" {
		dir = filepath.Join(c.configDir, "prompts")
	}
	prompts, err := file.NewPromptStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}
	c.prompts = prompts
	return prompts, nil
}

// Chat returns the answering service. Without a usable LLM it can still
// reply with the fallback message.
func (c *container) Chat(ctx context.Context) (driving.ChatService, error) {
	if c.chat != nil {
		return c.chat, nil
	}
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	retrieval, err := c.Retrieval(ctx)
	if err != nil {
		return nil, err
	}
	prompts, err := c.Prompts()
	if err != nil {
		return nil, err
	}
	llm, err := c.LLM()
	if err != nil {
		logger.Warn("%v", err)
		llm = nil
	}

	c.chat = services.NewChatService(retrieval, llm, prompts, services.ChatConfigFromSettings(settings))
	return c.chat, nil
}

// Pipeline returns the video pipeline. With async set, the final stage
// publishes jobs to NATS instead of ingesting in process.
func (c *container) Pipeline(ctx context.Context, async bool) (driving.PipelineService, error) {
	if c.pipeline != nil {
		return c.pipeline, nil
	}
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	llm, err := c.LLM()
	if err != nil {
		return nil, err
	}
	prompts, err := c.Prompts()
	if err != nil {
		return nil, err
	}
	transcriber, err := ai.CreateTranscriber(settings)
	if err != nil {
		return nil, err
	}

	var retrieval driving.RetrievalService
	if !async {
		if retrieval, err = c.Retrieval(ctx); err != nil {
			return nil, err
		}
	}

	extractor := ffmpeg.New(ffmpeg.Config{
		Binary:  settings.Media.FFmpegPath,
		Format:  settings.Media.AudioFormat,
		Quality: fmt.Sprint(settings.Media.AudioQuality),
	})
	generator := services.NewSupportPageGenerator(llm, prompts, settings.LLM.Temperature)
	pipeline := services.NewPipelineService(
		extractor, transcriber, generator, retrieval, settings.Paths, settings.Media.AudioFormat,
	)

	if async {
		queue, err := c.Queue()
		if err != nil {
			return nil, err
		}
		pipeline.SetQueue(queue)
	}

	c.pipeline = pipeline
	return pipeline, nil
}

// Queue connects to the NATS ingestion subject.
func (c *container) Queue() (*natsqueue.Queue, error) {
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	queue, err := natsqueue.Connect(settings.Queue.URL, settings.Queue.Subject)
	if err != nil {
		return nil, err
	}
	c.onClose(queue.Close)
	return queue, nil
}

func (c *container) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// Close releases everything the container opened, newest first.
func (c *container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Warn("closing: %v", err)
		}
	}
	c.closers = nil
}

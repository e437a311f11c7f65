// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/custodia-labs/vidrag/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/vidrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/vidrag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/embedding/throttle"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/llm/breaker"
	ollamallm "github.com/custodia-labs/vidrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/vidrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/vidrag/internal/adapters/driven/media/whisper"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// BuildEmbeddingService creates the configured embedding provider and layers
// throttling and caching on top of it.
func BuildEmbeddingService(settings *domain.AppSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}

	svc = throttle.Wrap(svc, settings.Embedding.RequestsPerSecond)

	if settings.Cache.Size <= 0 {
		return svc, nil
	}
	opts := []cache.Option{cache.WithSize(settings.Cache.Size)}
	if settings.Cache.RedisURL != "" {
		redisOpts, err := redis.ParseURL(settings.Cache.RedisURL)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = append(opts, cache.WithRedis(redis.NewClient(redisOpts), cache.DefaultTTL))
	}
	cached, err := cache.Wrap(svc, opts...)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return cached, nil
}

// BuildLLMService creates the configured LLM provider behind a circuit breaker.
func BuildLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, err
	}
	return breaker.Wrap(svc, breaker.Config{}), nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}
	return nil
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrLLMUnavailable, settings.Provider, err)
	}
	return nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider not configured (set OPENAI_API_KEY or embedding.provider)",
			domain.ErrEmbeddingUnavailable)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider not configured (set OPENAI_API_KEY or llm.provider)",
			domain.ErrLLMUnavailable)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrLLMUnavailable, settings.Provider)
	}
}

// CreateTranscriber creates the speech-to-text client. Transcription always
// goes through the OpenAI API, so it reuses the LLM credentials.
func CreateTranscriber(settings *domain.AppSettings) (driven.Transcriber, error) {
	apiKey := settings.LLM.APIKey
	if apiKey == "" {
		apiKey = settings.Embedding.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: transcription requires an OpenAI API key", domain.ErrLLMUnavailable)
	}
	baseURL := ""
	if settings.LLM.Provider == domain.AIProviderOpenAI {
		baseURL = settings.LLM.BaseURL
	}
	t, err := whisper.New(whisper.Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   settings.Transcription.Model,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

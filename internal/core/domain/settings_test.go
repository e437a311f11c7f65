package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"empty is invalid", AIProvider(""), false},
		{"anthropic is not supported", AIProvider("anthropic"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Traits(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.Equal(t, "OpenAI (cloud)", AIProviderOpenAI.Description())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

func TestStorageBackend_IsValid(t *testing.T) {
	for _, b := range AllStorageBackends() {
		assert.True(t, b.IsValid(), b)
		assert.NotEqual(t, unknownDescription, b.Description())
	}
	assert.False(t, StorageBackend("supabase").IsValid())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, "text-embedding-3-small", s.Embedding.Model)
	assert.Equal(t, 1536, s.Embedding.Dimensions)
	assert.Equal(t, "gpt-4o", s.LLM.Model)
	assert.Equal(t, StorageSQLite, s.Storage.Backend)
	assert.Equal(t, 1000, s.Retrieval.ChunkSize)
	assert.InDelta(t, 0.5, s.Retrieval.MatchThreshold, 1e-9)
	assert.Equal(t, 3, s.Retrieval.MatchCount)
	assert.Equal(t, "whisper-1", s.Transcription.Model)
	assert.Equal(t, 3000, s.Server.Port)
	assert.Equal(t, DefaultFallbackMessage, s.Chat.FallbackMessage)
	assert.Equal(t, EmbeddingDimensions()[s.Embedding.Model], s.Embedding.Dimensions)
}

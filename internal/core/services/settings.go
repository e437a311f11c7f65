package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Value sources reported by Values.
const (
	sourceDefault = "default"
	sourceConfig  = "config"
)

// setting binds a config key to a field of domain.AppSettings.
type setting struct {
	key string

	// env, when set, overrides the config file.
	env string

	// envWhen restricts the env override, e.g. to one provider.
	envWhen func(*domain.AppSettings) bool

	secret bool

	// field returns a pointer into the settings struct.
	field func(*domain.AppSettings) any
}

func openAIEmbedding(s *domain.AppSettings) bool {
	return s.Embedding.Provider == domain.AIProviderOpenAI
}

func openAILLM(s *domain.AppSettings) bool {
	return s.LLM.Provider == domain.AIProviderOpenAI
}

// settingsTable lists every key in display order. Provider keys come before
// the keys whose env overrides depend on them.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
var settingsTable = []setting{
	{key: "embedding.provider", field: func(s *domain.AppSettings) any { return &s.Embedding.Provider }},
	{key: "embedding.model", field: func(s *domain.AppSettings) any { return &s.Embedding.Model }},
	{key: "embedding.base_url", env: "OPENAI_BASE_URL", envWhen: openAIEmbedding,
		field: func(s *domain.AppSettings) any { return &s.Embedding.BaseURL }},
	{key: "embedding.api_key", env: "OPENAI_API_KEY", secret: true,
		field: func(s *domain.AppSettings) any { return &s.Embedding.APIKey }},
	{key: "embedding.dimensions", field: func(s *domain.AppSettings) any { return &s.Embedding.Dimensions }},
	{key: "embedding.requests_per_second",
		field: func(s *domain.AppSettings) any { return &s.Embedding.RequestsPerSecond }},

	{key: "llm.provider", field: func(s *domain.AppSettings) any { return &s.LLM.Provider }},
	{key: "llm.model", field: func(s *domain.AppSettings) any { return &s.LLM.Model }},
	{key: "llm.base_url", env: "OPENAI_BASE_URL", envWhen: openAILLM,
		field: func(s *domain.AppSettings) any { return &s.LLM.BaseURL }},
	{key: "llm.api_key", env: "OPENAI_API_KEY", secret: true,
		field: func(s *domain.AppSettings) any { return &s.LLM.APIKey }},
	{key: "llm.temperature", field: func(s *domain.AppSettings) any { return &s.LLM.Temperature }},
	{key: "llm.max_tokens", field: func(s *domain.AppSettings) any { return &s.LLM.MaxTokens }},

	{key: "storage.backend", env: "VIDRAG_BACKEND", field: func(s *domain.AppSettings) any { return &s.Storage.Backend }},
	{key: "storage.sqlite_path", field: func(s *domain.AppSettings) any { return &s.Storage.SQLitePath }},
	{key: "storage.postgres_dsn", env: "DATABASE_URL", secret: true,
		field: func(s *domain.AppSettings) any { return &s.Storage.PostgresDSN }},
	{key: "storage.table", field: func(s *domain.AppSettings) any { return &s.Storage.Table }},
	{key: "storage.qdrant_addr", env: "QDRANT_ADDR", field: func(s *domain.AppSettings) any { return &s.Storage.QdrantAddr }},
	{key: "storage.collection", field: func(s *domain.AppSettings) any { return &s.Storage.Collection }},

	{key: "retrieval.chunk_size", field: func(s *domain.AppSettings) any { return &s.Retrieval.ChunkSize }},
	{key: "retrieval.match_threshold", field: func(s *domain.AppSettings) any { return &s.Retrieval.MatchThreshold }},
	{key: "retrieval.match_count", field: func(s *domain.AppSettings) any { return &s.Retrieval.MatchCount }},

	{key: "paths.videos", field: func(s *domain.AppSettings) any { return &s.Paths.Videos }},
	{key: "paths.audio", field: func(s *domain.AppSettings) any { return &s.Paths.Audio }},
	{key: "paths.transcripts", field: func(s *domain.AppSettings) any { return &s.Paths.Transcripts }},
	{key: "paths.content", field: func(s *domain.AppSettings) any { return &s.Paths.Content }},

	{key: "media.ffmpeg_path", field: func(s *domain.AppSettings) any { return &s.Media.FFmpegPath }},
	{key: "media.audio_format", field: func(s *domain.AppSettings) any { return &s.Media.AudioFormat }},
	{key: "media.audio_quality", field: func(s *domain.AppSettings) any { return &s.Media.AudioQuality }},

	{key: "transcription.model", field: func(s *domain.AppSettings) any { return &s.Transcription.Model }},

	{key: "server.port", env: "PORT", field: func(s *domain.AppSettings) any { return &s.Server.Port }},

	{key: "queue.url", env: "NATS_URL", field: func(s *domain.AppSettings) any { return &s.Queue.URL }},
	{key: "queue.subject", field: func(s *domain.AppSettings) any { return &s.Queue.Subject }},
	{key: "queue.workers", field: func(s *domain.AppSettings) any { return &s.Queue.Workers }},

	{key: "cache.size", field: func(s *domain.AppSettings) any { return &s.Cache.Size }},
	{key: "cache.redis_url", env: "REDIS_URL", secret: true,
		field: func(s *domain.AppSettings) any { return &s.Cache.RedisURL }},

	{key: "chat.fallback_message", field: func(s *domain.AppSettings) any { return &s.Chat.FallbackMessage }},
}

// SettingsService resolves application settings from defaults, the config
// store and the environment, in increasing order of precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings, _ := s.resolve()
	return settings, nil
}

// resolve builds the settings and records the source of every key.
func (s *SettingsService) resolve() (*domain.AppSettings, map[string]string) {
	settings := domain.DefaultAppSettings()
	sources := make(map[string]string, len(settingsTable))

	for _, st := range settingsTable {
		sources[st.key] = sourceDefault
		ptr := st.field(&settings)

		if raw, ok := s.configStore.Get(st.key); ok {
			if assignStored(ptr, raw) {
				sources[st.key] = sourceConfig
			}
		}

		if st.env == "" || (st.envWhen != nil && !st.envWhen(&settings)) {
			continue
		}
		if val := s.getenv(st.env); val != "" {
			if err := assignString(ptr, val); err == nil {
				sources[st.key] = st.env
			}
		}
	}

	// Models and dimensions follow the provider unless set explicitly.
	if sources["embedding.model"] == sourceDefault {
		if m, ok := domain.DefaultEmbeddingModels()[settings.Embedding.Provider]; ok {
			settings.Embedding.Model = m
		}
	}
	if sources["embedding.dimensions"] == sourceDefault {
		if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
			settings.Embedding.Dimensions = d
		}
	}
	if sources["llm.model"] == sourceDefault {
		if m, ok := domain.DefaultLLMModels()[settings.LLM.Provider]; ok {
			settings.LLM.Model = m
		}
	}

	return &settings, sources
}

// Set validates value against the type of key and persists it.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrValidation, key)
	}

	scratch := domain.DefaultAppSettings()
	ptr := st.field(&scratch)
	if err := assignString(ptr, value); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrValidation, key, err)
	}

	if err := s.configStore.Set(key, storedValue(ptr)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored key so that it falls back to its default.
func (s *SettingsService) Unset(key string) error {
	if _, ok := lookupSetting(key); !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrValidation, key)
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

// ConfigPath returns the location of the config file.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// Keys returns every supported setting key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingsTable))
	for i, st := range settingsTable {
		keys[i] = st.key
	}
	return keys
}

// Values returns every setting with its effective value and source.
func (s *SettingsService) Values() ([]domain.SettingValue, error) {
	settings, sources := s.resolve()

	values := make([]domain.SettingValue, len(settingsTable))
	for i, st := range settingsTable {
		values[i] = domain.SettingValue{
			Key:    st.key,
			Value:  formatValue(st.field(settings)),
			Source: sources[st.key],
			Secret: st.secret,
		}
	}
	return values, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func lookupSetting(key string) (setting, bool) {
	for _, st := range settingsTable {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

// assignStored copies a value decoded from the config file into ptr.
// Values of the wrong type or invalid enum values are ignored.
func assignStored(ptr, raw any) bool {
	switch p := ptr.(type) {
	case *string:
		v, ok := raw.(string)
		if ok {
			*p = v
		}
		return ok
	case *int:
		switch v := raw.(type) {
		case int64:
			*p = int(v)
		case int:
			*p = v
		default:
			return false
		}
		return true
	case *float64:
		switch v := raw.(type) {
		case float64:
			*p = v
		case int64:
			*p = float64(v)
		case int:
			*p = float64(v)
		default:
			return false
		}
		return true
	case *domain.AIProvider:
		v, ok := raw.(string)
		if !ok || !domain.AIProvider(v).IsValid() {
			return false
		}
		*p = domain.AIProvider(v)
		return true
	case *domain.StorageBackend:
		v, ok := raw.(string)
		if !ok || !domain.StorageBackend(v).IsValid() {
			return false
		}
		*p = domain.StorageBackend(v)
		return true
	default:
		return false
	}
}

// assignString parses a user-supplied string into ptr.
func assignString(ptr any, value string) error {
	value = strings.TrimSpace(value)
	switch p := ptr.(type) {
	case *string:
		*p = value
	case *int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", value)
		}
		if n < 0 {
			return fmt.Errorf("must not be negative, got %d", n)
		}
		*p = n
	case *float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("expected a number, got %q", value)
		}
		*p = f
	case *domain.AIProvider:
		provider := domain.AIProvider(value)
		if !provider.IsValid() {
			return fmt.Errorf("unknown provider %q (expected ollama or openai)", value)
		}
		*p = provider
	case *domain.StorageBackend:
		backend := domain.StorageBackend(value)
		if !backend.IsValid() {
			return fmt.Errorf("unknown backend %q (expected sqlite, postgres, qdrant or memory)", value)
		}
		*p = backend
	default:
		return fmt.Errorf("unsupported setting type %T", ptr)
	}
	return nil
}

// storedValue returns the TOML-friendly value behind ptr.
func storedValue(ptr any) any {
	switch p := ptr.(type) {
	case *string:
		return *p
	case *int:
		return *p
	case *float64:
		return *p
	case *domain.AIProvider:
		return p.String()
	case *domain.StorageBackend:
		return p.String()
	default:
		return nil
	}
}

func formatValue(ptr any) string {
	switch p := ptr.(type) {
	case *float64:
		return strconv.FormatFloat(*p, 'g', -1, 64)
	default:
		return fmt.Sprint(storedValue(ptr))
	}
}

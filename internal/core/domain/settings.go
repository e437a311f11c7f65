package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the vector repository implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite scans every record in an embedded SQLite file. Does not scale
	// past a few thousand chunks.
	StorageSQLite StorageBackend = "sqlite"

	// StoragePostgres uses pgvector and a server-side match_documents function.
	StoragePostgres StorageBackend = "postgres"

	// StorageQdrant uses a Qdrant collection with an approximate HNSW index.
	StorageQdrant StorageBackend = "qdrant"

	// StorageMemory keeps records in process memory only.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StoragePostgres, StorageQdrant, StorageMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageSQLite:
		return "SQLite (embedded, brute-force scan)"
	case StoragePostgres:
		return "PostgreSQL + pgvector (match_documents)"
	case StorageQdrant:
		return "Qdrant (HNSW index)"
	case StorageMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama, or an OpenAI-compatible proxy).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector length requested from the model and enforced by storage.
	Dimensions int

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Temperature controls randomness of answers.
	Temperature float64

	// MaxTokens bounds the length of an answer.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StorageSettings holds vector repository configuration.
type StorageSettings struct {
	Backend StorageBackend

	// SQLitePath is the directory holding documents.db.
	SQLitePath string

	// PostgresDSN is a libpq-style connection string or URL.
	PostgresDSN string

	// Table is the relational table name.
	Table string

	// QdrantAddr is the host:port of the Qdrant gRPC endpoint.
	QdrantAddr string

	// Collection is the Qdrant collection name.
	Collection string
}

// RetrievalSettings controls chunking and similarity search.
type RetrievalSettings struct {
	// ChunkSize is the soft upper bound on characters per chunk.
	ChunkSize int

	// MatchThreshold is the minimum similarity a result must reach.
	MatchThreshold float64

	// MatchCount is the maximum number of results returned.
	MatchCount int
}

// PathSettings holds the working directories of the video pipeline.
type PathSettings struct {
	Videos      string
	Audio       string
	Transcripts string
	Content     string
}

// MediaSettings configures audio extraction.
type MediaSettings struct {
	FFmpegPath   string
	AudioFormat  string
	AudioQuality int
}

// TranscriptionSettings configures speech-to-text.
type TranscriptionSettings struct {
	Model string
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Port int
}

// QueueSettings configures asynchronous ingestion over NATS.
type QueueSettings struct {
	URL     string
	Subject string
	Workers int
}

// CacheSettings configures the embedding cache.
type CacheSettings struct {
	// Size is the number of embeddings kept in process. Zero disables caching.
	Size int

	// RedisURL enables a shared second tier (redis://host:port/db).
	RedisURL string
}

// ChatSettings configures answer composition.
type ChatSettings struct {
	// FallbackMessage is returned verbatim when retrieval finds nothing.
	FallbackMessage string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding     EmbeddingSettings
	LLM           LLMSettings
	Storage       StorageSettings
	Retrieval     RetrievalSettings
	Paths         PathSettings
	Media         MediaSettings
	Transcription TranscriptionSettings
	Server        ServerSettings
	Queue         QueueSettings
	Cache         CacheSettings
	Chat          ChatSettings
}

// DefaultFallbackMessage is the answer given when no stored chunk is relevant.
const DefaultFallbackMessage = "I couldn't find any information about that in the support content. " +
	"Please try rephrasing your question or contact the support team."

// DefaultAppSettings returns the default application settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOpenAI,
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   500,
		},
		Storage: StorageSettings{
			Backend:    StorageSQLite,
			Table:      "documents",
			QdrantAddr: "localhost:6334",
			Collection: "documents",
		},
		Retrieval: RetrievalSettings{
			ChunkSize:      1000,
			MatchThreshold: 0.5,
			MatchCount:     3,
		},
		Paths: PathSettings{
			Videos:      "data/videos",
			Audio:       "data/audio",
			Transcripts: "data/transcripts",
			Content:     "data/content",
		},
		Media: MediaSettings{
			FFmpegPath:   "ffmpeg",
			AudioFormat:  "flac",
			AudioQuality: 5,
		},
		Transcription: TranscriptionSettings{
			Model: "whisper-1",
		},
		Server: ServerSettings{
			Port: 3000,
		},
		Queue: QueueSettings{
			URL:     "nats://127.0.0.1:4222",
			Subject: "vidrag.ingest",
			Workers: 4,
		},
		Cache: CacheSettings{
			Size: 1024,
		},
		Chat: ChatSettings{
			FallbackMessage: DefaultFallbackMessage,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// AllStorageBackends returns every storage backend.
func AllStorageBackends() []StorageBackend {
	return []StorageBackend{StorageSQLite, StoragePostgres, StorageQdrant, StorageMemory}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o",
	}
}

// EmbeddingDimensions returns the native vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// SettingValue is one setting rendered for display.
type SettingValue struct {
	Key    string
	Value  string
	Source string // "default", "config" or the environment variable name
	Secret bool
}

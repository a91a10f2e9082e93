package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderMistral is the Mistral cloud API (OpenAI compatible).
	AIProviderMistral AIProvider = "mistral"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderLocal is the built-in hashing embedder. Embeddings only.
	AIProviderLocal AIProvider = "local"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderMistral, AIProviderAnthropic, AIProviderLocal:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderMistral || p == AIProviderAnthropic
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
	case AIProviderMistral:
		return "Mistral (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderLocal:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the vector store implementation.
type StorageBackend string

// Storage backends.
const (
	StorageSQLite StorageBackend = "sqlite"
	StorageMemory StorageBackend = "memory"
	StorageQdrant StorageBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageSQLite || b == StorageMemory || b == StorageQdrant
}

// CorpusSettings configures the crawled website.
type CorpusSettings struct {
	// Source is the seed URL. It also names the collection.
	Source string

	// MaxDepth bounds link distance from the seed.
	MaxDepth int

	// Exclude lists URL path prefixes that are never fetched.
	Exclude []string

	// RequestsPerSecond throttles page fetches.
	RequestsPerSecond float64

	// Timeout bounds each page fetch.
	Timeout time.Duration
}

// ChunkingSettings configures the text splitter.
type ChunkingSettings struct {
	ChunkSize int
	Overlap   int
}

// RetrievalSettings configures the threshold retriever.
type RetrievalSettings struct {
	// K is the number of nearest neighbours fetched.
	K int

	// ScoreThreshold is the minimum normalised score kept.
	ScoreThreshold float64

	// Metric is used when a collection is created.
	Metric Metric
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic || e.Provider == AIProviderMistral {
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

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// Temperature controls randomness.
	Temperature float64

	// MaxTokens caps the reply length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StorageSettings configures the vector store.
type StorageSettings struct {
	Backend StorageBackend

	// Path is the sqlite database file.
	Path string

	// QdrantAddr is the qdrant gRPC address.
	QdrantAddr string
}

// SchedulerSettings configures periodic re-sync in serve mode.
type SchedulerSettings struct {
	// Interval between syncs. Zero disables the scheduler.
	Interval time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Corpus    CorpusSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Storage   StorageSettings
	Scheduler SchedulerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Storage.Path is left empty and resolved against the data directory.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Corpus: CorpusSettings{
			Source:            "https://www.csusb.edu/its",
			MaxDepth:          2,
			RequestsPerSecond: 5,
			Timeout:           10 * time.Second,
		},
		Chunking: ChunkingSettings{
			ChunkSize: 500,
			Overlap:   200,
		},
		Retrieval: RetrievalSettings{
			K:              3,
			ScoreThreshold: 0.7,
			Metric:         MetricL2,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      "all-minilm",
			BaseURL:    "http://localhost:11434",
			Dimensions: DefaultDimension,
		},
		LLM: LLMSettings{
			Provider:    AIProviderMistral,
			Model:       "open-mistral-7b",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Storage: StorageSettings{
			Backend:    StorageSQLite,
			QdrantAddr: "localhost:6334",
		},
	}
}

// Validate checks settings for values the pipeline cannot work with.
func (s AppSettings) Validate() error {
	if s.Corpus.Source == "" {
		return fmt.Errorf("%w: corpus.source is empty", ErrInvalidInput)
	}
	if CollectionName(s.Corpus.Source) == "" {
		return fmt.Errorf("%w: corpus.source %q yields an empty collection name", ErrInvalidInput, s.Corpus.Source)
	}
	if s.Corpus.MaxDepth < 0 {
		return fmt.Errorf("%w: corpus.max_depth must be >= 0", ErrInvalidInput)
	}
	if s.Chunking.ChunkSize <= 0 || s.Chunking.ChunkSize > MaxTextLength {
		return fmt.Errorf("%w: chunking.chunk_size must be in 1..%d", ErrInvalidInput, MaxTextLength)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.ChunkSize {
		return fmt.Errorf("%w: chunking.overlap must be in 0..chunk_size-1", ErrInvalidInput)
	}
	if s.Retrieval.K <= 0 {
		return fmt.Errorf("%w: retrieval.k must be positive", ErrInvalidInput)
	}
	if s.Retrieval.ScoreThreshold < 0 || s.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("%w: retrieval.score_threshold must be in [0,1]", ErrInvalidInput)
	}
	if !s.Retrieval.Metric.IsValid() {
		return fmt.Errorf("%w: retrieval.metric %q", ErrInvalidInput, s.Retrieval.Metric)
	}
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidInput)
	}
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: storage.backend %q", ErrInvalidInput, s.Storage.Backend)
	}
	if s.Scheduler.Interval < 0 {
		return fmt.Errorf("%w: scheduler.interval must be >= 0", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderLocal}
}

// AllLLMProviders returns providers that support text generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderMistral, AIProviderAnthropic}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderLocal:  "hashing-v1",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderMistral:   "open-mistral-7b",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
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

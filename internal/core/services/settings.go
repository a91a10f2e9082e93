package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCorpusSource    = "corpus.source"
	keyCorpusMaxDepth  = "corpus.max_depth"
	keyCorpusExclude   = "corpus.exclude"
	keyCorpusRate      = "corpus.requests_per_second"
	keyCorpusTimeout   = "corpus.timeout"
	keyChunkSize       = "chunking.chunk_size"
	keyChunkOverlap    = "chunking.overlap"
	keyRetrievalK      = "retrieval.k"
	keyRetrievalMin    = "retrieval.score_threshold"
	keyRetrievalMetric = "retrieval.metric"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyStorageBackend  = "storage.backend"
	keyStoragePath     = "storage.path"
	keyStorageQdrant   = "storage.qdrant_addr"
	keySchedulerEvery  = "scheduler.interval"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindDuration
	kindList
)

var settingKinds = map[string]settingKind{
	keyCorpusSource:    kindString,
	keyCorpusMaxDepth:  kindInt,
	keyCorpusExclude:   kindList,
	keyCorpusRate:      kindFloat,
	keyCorpusTimeout:   kindDuration,
	keyChunkSize:       kindInt,
	keyChunkOverlap:    kindInt,
	keyRetrievalK:      kindInt,
	keyRetrievalMin:    kindFloat,
	keyRetrievalMetric: kindString,
	keyEmbedProvider:   kindString,
	keyEmbedModel:      kindString,
	keyEmbedBaseURL:    kindString,
	keyEmbedAPIKey:     kindString,
	keyEmbedDims:       kindInt,
	keyLLMProvider:     kindString,
	keyLLMModel:        kindString,
	keyLLMBaseURL:      kindString,
	keyLLMAPIKey:       kindString,
	keyLLMTemperature:  kindFloat,
	keyLLMMaxTokens:    kindInt,
	keyStorageBackend:  kindString,
	keyStoragePath:     kindString,
	keyStorageQdrant:   kindString,
	keySchedulerEvery:  kindDuration,
}

// Environment variables consulted when no API key is configured.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderMistral:   "MISTRAL_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// SetEnvLookup replaces the environment lookup used for API key fallbacks.
func (s *SettingsService) SetEnvLookup(getenv func(string) string) {
	s.getenv = getenv
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	return s.read(s.configStore.Get), nil
}

// read builds settings from get, falling back to defaults for missing or
// malformed values.
func (s *SettingsService) read(get func(string) (any, bool)) *domain.AppSettings {
	d := domain.DefaultAppSettings()
	r := reader{get: get}

	settings := &domain.AppSettings{
		Corpus: domain.CorpusSettings{
			Source:            r.str(keyCorpusSource, d.Corpus.Source),
			MaxDepth:          r.integer(keyCorpusMaxDepth, d.Corpus.MaxDepth),
			Exclude:           r.list(keyCorpusExclude),
			RequestsPerSecond: r.number(keyCorpusRate, d.Corpus.RequestsPerSecond),
			Timeout:           r.duration(keyCorpusTimeout, d.Corpus.Timeout),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize: r.integer(keyChunkSize, d.Chunking.ChunkSize),
			Overlap:   r.integer(keyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			K:              r.integer(keyRetrievalK, d.Retrieval.K),
			ScoreThreshold: r.number(keyRetrievalMin, d.Retrieval.ScoreThreshold),
			Metric:         r.metric(keyRetrievalMetric, d.Retrieval.Metric),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   r.provider(keyEmbedProvider, d.Embedding.Provider),
			BaseURL:    r.str(keyEmbedBaseURL, ""),
			APIKey:     r.str(keyEmbedAPIKey, ""),
			Dimensions: r.integer(keyEmbedDims, 0),
		},
		LLM: domain.LLMSettings{
			Provider:    r.provider(keyLLMProvider, d.LLM.Provider),
			BaseURL:     r.str(keyLLMBaseURL, ""),
			APIKey:      r.str(keyLLMAPIKey, ""),
			Temperature: r.number(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:   r.integer(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
		Storage: domain.StorageSettings{
			Backend:    r.backend(keyStorageBackend, d.Storage.Backend),
			Path:       r.str(keyStoragePath, d.Storage.Path),
			QdrantAddr: r.str(keyStorageQdrant, d.Storage.QdrantAddr),
		},
		Scheduler: domain.SchedulerSettings{
			Interval: r.duration(keySchedulerEvery, d.Scheduler.Interval),
		},
	}

	// Model and base URL defaults follow the provider.
	emb := &settings.Embedding
	emb.Model = r.str(keyEmbedModel, domain.DefaultEmbeddingModels()[emb.Provider])
	if emb.Provider == d.Embedding.Provider && emb.BaseURL == "" {
		emb.BaseURL = d.Embedding.BaseURL
	}
	if emb.Dimensions == 0 {
		emb.Dimensions = domain.EmbeddingDimensions()[emb.Model]
	}
	if emb.Dimensions == 0 {
		emb.Dimensions = domain.DefaultDimension
	}
	if emb.APIKey == "" {
		emb.APIKey = s.envKey(emb.Provider)
	}

	llm := &settings.LLM
	llm.Model = r.str(keyLLMModel, domain.DefaultLLMModels()[llm.Provider])
	if llm.APIKey == "" {
		llm.APIKey = s.envKey(llm.Provider)
	}

	return settings
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	name, ok := apiKeyEnv[provider]
	if !ok || s.getenv == nil {
		return ""
	}
	return s.getenv(name)
}

// Set updates a single setting by dotted key. The value is parsed for the
// key's type and the resulting settings must validate before anything is
// persisted.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	typed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := checkEnum(key, value); err != nil {
		return err
	}

	overlay := func(k string) (any, bool) {
		if k == key {
			return typed, true
		}
		return s.configStore.Get(k)
	}
	if err := s.read(overlay).Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists the settable keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if current settings are usable. An embedding provider is
// required; an LLM is optional.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		return f, nil
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("not a duration: %q", value)
		}
		return value, nil
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

func checkEnum(key, value string) error {
	switch key {
	case keyEmbedProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() || p == domain.AIProviderAnthropic || p == domain.AIProviderMistral {
			return fmt.Errorf("%w: %s does not provide embeddings", domain.ErrInvalidInput, value)
		}
	case keyLLMProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() || p == domain.AIProviderLocal {
			return fmt.Errorf("%w: %s does not provide text generation", domain.ErrInvalidInput, value)
		}
	case keyRetrievalMetric:
		if _, err := domain.ParseMetric(value); err != nil {
			return err
		}
	case keyStorageBackend:
		if !domain.StorageBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, value)
		}
	}
	return nil
}

// reader converts raw config values, falling back to defaults.
type reader struct {
	get func(string) (any, bool)
}

func (r reader) str(key, def string) string {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

func (r reader) integer(key string, def int) int {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func (r reader) number(key string, def float64) float64 {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

func (r reader) duration(key string, def time.Duration) time.Duration {
	s := r.str(key, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func (r reader) list(key string) []string {
	v, ok := r.get(key)
	if !ok {
		return nil
	}
	switch l := v.(type) {
	case []string:
		return append([]string(nil), l...)
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (r reader) provider(key string, def domain.AIProvider) domain.AIProvider {
	p := domain.AIProvider(r.str(key, ""))
	if !p.IsValid() {
		return def
	}
	return p
}

func (r reader) metric(key string, def domain.Metric) domain.Metric {
	m, err := domain.ParseMetric(r.str(key, ""))
	if err != nil {
		return def
	}
	return m
}

func (r reader) backend(key string, def domain.StorageBackend) domain.StorageBackend {
	b := domain.StorageBackend(r.str(key, ""))
	if !b.IsValid() {
		return def
	}
	return b
}

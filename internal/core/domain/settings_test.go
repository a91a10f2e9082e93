package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, "https://www.csusb.edu/its", s.Corpus.Source)
	assert.Equal(t, 500, s.Chunking.ChunkSize)
	assert.Equal(t, 200, s.Chunking.Overlap)
	assert.Equal(t, 3, s.Retrieval.K)
	assert.Equal(t, 0.7, s.Retrieval.ScoreThreshold)
	assert.Equal(t, MetricL2, s.Retrieval.Metric)
	assert.Equal(t, DefaultDimension, s.Embedding.Dimensions)
	assert.Equal(t, StorageSQLite, s.Storage.Backend)
	require.NoError(t, s.Validate())
}

func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSettings)
	}{
		{"empty source", func(s *AppSettings) { s.Corpus.Source = "" }},
		{"source without word characters", func(s *AppSettings) { s.Corpus.Source = "://" }},
		{"negative depth", func(s *AppSettings) { s.Corpus.MaxDepth = -1 }},
		{"zero chunk size", func(s *AppSettings) { s.Chunking.ChunkSize = 0 }},
		{"chunk size over stored bound", func(s *AppSettings) { s.Chunking.ChunkSize = MaxTextLength + 1 }},
		{"overlap equals chunk size", func(s *AppSettings) { s.Chunking.Overlap = s.Chunking.ChunkSize }},
		{"zero k", func(s *AppSettings) { s.Retrieval.K = 0 }},
		{"threshold above one", func(s *AppSettings) { s.Retrieval.ScoreThreshold = 1.5 }},
		{"unknown metric", func(s *AppSettings) { s.Retrieval.Metric = "cosine" }},
		{"zero dimensions", func(s *AppSettings) { s.Embedding.Dimensions = 0 }},
		{"unknown backend", func(s *AppSettings) { s.Storage.Backend = "milvus" }},
		{"negative interval", func(s *AppSettings) { s.Scheduler.Interval = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultAppSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
		})
	}
}

func TestAIProvider(t *testing.T) {
	tests := []struct {
		provider AIProvider
		valid    bool
		needsKey bool
	}{
		{AIProviderOllama, true, false},
		{AIProviderOpenAI, true, true},
		{AIProviderMistral, true, true},
		{AIProviderAnthropic, true, true},
		{AIProviderLocal, true, false},
		{AIProvider("cohere"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.provider.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.provider.IsValid())
			assert.Equal(t, tt.needsKey, tt.provider.RequiresAPIKey())
			assert.NotEmpty(t, tt.provider.Description())
		})
	}
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderLocal}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderMistral}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderMistral, APIKey: "k"}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderLocal}.IsConfigured())
}

func TestConfusionMatrix_Metrics(t *testing.T) {
	m := ConfusionMatrix{TruePositive: 6, TrueNegative: 2, FalsePositive: 1, FalseNegative: 1}
	perf := m.Metrics()

	require.NotNil(t, perf.Accuracy)
	assert.Equal(t, 0.8, *perf.Accuracy)
	assert.Equal(t, 0.857, *perf.Precision)
	assert.Equal(t, 0.857, *perf.Sensitivity)
	assert.Equal(t, 0.667, *perf.Specificity)
	assert.Equal(t, 0.857, *perf.F1Score)
}

func TestConfusionMatrix_EmptyIsUndefined(t *testing.T) {
	perf := ConfusionMatrix{}.Metrics()
	assert.Nil(t, perf.Accuracy)
	assert.Nil(t, perf.Precision)
	assert.Nil(t, perf.Sensitivity)
	assert.Nil(t, perf.Specificity)
	assert.Nil(t, perf.F1Score)
}

func TestClassifyFeedback(t *testing.T) {
	assert.Equal(t, TruePositive, ClassifyFeedback(true, true))
	assert.Equal(t, FalseNegative, ClassifyFeedback(true, false))
	assert.Equal(t, TrueNegative, ClassifyFeedback(false, true))
	assert.Equal(t, FalsePositive, ClassifyFeedback(false, false))
	assert.True(t, TruePositive.IsValid())
	assert.False(t, FeedbackOutcome("maybe").IsValid())
}

package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatusResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns status as JSON", func(t *testing.T) {
		sync := &mockSynchronizer{status: &driving.SyncStatus{
			Collection: "httpsexamplecom",
			Running:    true,
			Phase:      domain.PhaseCrawling,
		}}
		server := newTestServer(t, &Ports{Query: &mockQueryService{}, Sync: sync})

		result, err := server.handleStatusResource(ctx, makeReadResourceRequest("sitesage://status"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"phase": "crawling"`)
		assert.Contains(t, result.Contents[0].Text, "httpsexamplecom")
	})

	t.Run("no synchronizer is not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Query: &mockQueryService{}})

		_, err := server.handleStatusResource(ctx, makeReadResourceRequest("sitesage://status"))

		assert.Error(t, err)
	})

	t.Run("returns error on status failure", func(t *testing.T) {
		sync := &mockSynchronizer{err: errors.New("database error")}
		server := newTestServer(t, &Ports{Query: &mockQueryService{}, Sync: sync})

		_, err := server.handleStatusResource(ctx, makeReadResourceRequest("sitesage://status"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading sync status")
	})
}

func TestServer_handleStatsResource(t *testing.T) {
	stats := &mockStatsService{summary: &domain.StatsSummary{
		Usage: domain.UsageCounters{Questions: 7},
	}}
	server := newTestServer(t, &Ports{Query: &mockQueryService{}, Stats: stats})

	result, err := server.handleStatsResource(context.Background(), makeReadResourceRequest("sitesage://stats"))

	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, `"questions": 7`)
}

func TestServer_handleSettingsResource(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM.APIKey = "sk-secret-key-value"
	settings.Scheduler.Interval = time.Hour
	server := newTestServer(t, &Ports{
		Query:    &mockQueryService{},
		Settings: &mockSettingsService{settings: &settings},
	})

	result, err := server.handleSettingsResource(context.Background(), makeReadResourceRequest("sitesage://settings"))

	require.NoError(t, err)
	text := result.Contents[0].Text
	assert.Contains(t, text, settings.Corpus.Source)
	assert.Contains(t, text, `"llm": "mistral/open-mistral-7b"`)
	assert.Contains(t, text, `"sync_interval": "1h0m0s"`)
	assert.NotContains(t, text, "sk-secret-key-value")
}

func TestProviderModel(t *testing.T) {
	assert.Equal(t, "ollama/all-minilm", providerModel(domain.AIProviderOllama, "all-minilm"))
	assert.Equal(t, "local", providerModel(domain.AIProviderLocal, ""))
}

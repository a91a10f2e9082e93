package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for SiteSage resources.
	uriScheme = "sitesage://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "sync-status",
		Description: "Current sync state and the outcome of the last sync",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Usage counters and answer quality metrics",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Active configuration with API keys masked",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)
}

// handleStatusResource returns the sync status.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sync == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Sync.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading sync status: %w", err)
	}
	return jsonResource(req.Params.URI, toSyncStatusOutput(status))
}

// handleStatsResource returns the statistics summary.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Stats == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	summary, err := s.ports.Stats.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	return jsonResource(req.Params.URI, summary)
}

// handleSettingsResource returns the active settings. API keys never leave
// the process.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Settings == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return jsonResource(req.Params.URI, publicSettings(settings))
}

// settingsView is the JSON shape of settings exposed to clients.
type settingsView struct {
	Source         string   `json:"source"`
	Collection     string   `json:"collection"`
	MaxDepth       int      `json:"max_depth"`
	Exclude        []string `json:"exclude,omitempty"`
	ChunkSize      int      `json:"chunk_size"`
	Overlap        int      `json:"overlap"`
	K              int      `json:"k"`
	ScoreThreshold float64  `json:"score_threshold"`
	Metric         string   `json:"metric"`
	Embedding      string   `json:"embedding"`
	LLM            string   `json:"llm"`
	Storage        string   `json:"storage"`
	SyncInterval   string   `json:"sync_interval,omitempty"`
}

func publicSettings(s *domain.AppSettings) settingsView {
	view := settingsView{
		Source:         s.Corpus.Source,
		Collection:     domain.CollectionName(s.Corpus.Source),
		MaxDepth:       s.Corpus.MaxDepth,
		Exclude:        s.Corpus.Exclude,
		ChunkSize:      s.Chunking.ChunkSize,
		Overlap:        s.Chunking.Overlap,
		K:              s.Retrieval.K,
		ScoreThreshold: s.Retrieval.ScoreThreshold,
		Metric:         string(s.Retrieval.Metric),
		Embedding:      providerModel(s.Embedding.Provider, s.Embedding.Model),
		LLM:            providerModel(s.LLM.Provider, s.LLM.Model),
		Storage:        string(s.Storage.Backend),
	}
	if s.Scheduler.Interval > 0 {
		view.SyncInterval = s.Scheduler.Interval.String()
	}
	return view
}

func providerModel(p domain.AIProvider, model string) string {
	return strings.TrimSuffix(string(p)+"/"+model, "/")
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

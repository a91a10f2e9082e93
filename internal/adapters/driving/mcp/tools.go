package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the synced website"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string          `json:"answer"`
	Source   string          `json:"source,omitempty"`
	Kind     string          `json:"kind"`
	Passages []PassageOutput `json:"passages,omitempty"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question string `json:"question" jsonschema:"the question to find relevant passages for"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	Fingerprint string  `json:"fingerprint"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
}

// SyncInput is the input schema for the sync and sync_status tools.
type SyncInput struct{}

// SyncOutput summarises a sync cycle.
type SyncOutput struct {
	Mode       string `json:"mode"`
	Collection string `json:"collection"`
	Documents  int    `json:"documents"`
	Passages   int    `json:"passages"`
	Inserted   int    `json:"inserted"`
	Deleted    int    `json:"deleted"`
	Unchanged  int    `json:"unchanged"`
	DurationMS int64  `json:"duration_ms"`
	Changed    bool   `json:"changed"`
}

// SyncStatusOutput is the output schema for the sync_status tool.
type SyncStatusOutput struct {
	Collection string      `json:"collection"`
	Running    bool        `json:"running"`
	Phase      string      `json:"phase"`
	LastError  string      `json:"last_error,omitempty"`
	LastReport *SyncOutput `json:"last_report,omitempty"`
}

// StatsInput is the input schema for the stats tool.
type StatsInput struct{}

// FeedbackInput is the input schema for the feedback tool.
type FeedbackInput struct {
	Answerable bool `json:"answerable" jsonschema:"whether the website holds the answer to the question"`
	Helpful    bool `json:"helpful" jsonschema:"whether the reply was correct"`
}

// FeedbackOutput is the output schema for the feedback tool.
type FeedbackOutput struct {
	Outcome string `json:"outcome"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only passages from the synced website",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the website passages relevant to a question, best first",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync",
		Description: "Crawl the website and bring the index up to date",
	}, s.handleSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Report whether a sync is running and the outcome of the last one",
	}, s.handleSyncStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Usage counters, top keywords and answer quality metrics",
	}, s.handleStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "feedback",
		Description: "Record whether an answer was helpful",
	}, s.handleFeedback)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if input.Question == "" {
		return nil, AskOutput{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	answer, err := s.ports.Query.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:   answer.Text,
		Source:   answer.Source,
		Kind:     string(answer.Kind),
		Passages: toPassageOutputs(answer.Passages),
	}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.Question == "" {
		return nil, RetrieveOutput{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	passages, err := s.ports.Query.Retrieve(ctx, input.Question)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, RetrieveOutput{
		Passages: toPassageOutputs(passages),
		Count:    len(passages),
	}, nil
}

// handleSync runs one sync cycle and waits for it to finish.
func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncOutput{}, errSyncUnavailable
	}

	report, err := s.ports.Sync.Sync(ctx)
	if errors.Is(err, domain.ErrSyncInProgress) {
		return nil, SyncOutput{}, errors.New("a sync is already running, check sync_status")
	}
	if err != nil {
		return nil, SyncOutput{}, err
	}

	return nil, toSyncOutput(report), nil
}

// handleSyncStatus handles the sync_status tool invocation.
func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncInput,
) (*mcp.CallToolResult, SyncStatusOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncStatusOutput{}, errSyncUnavailable
	}

	status, err := s.ports.Sync.Status(ctx)
	if err != nil {
		return nil, SyncStatusOutput{}, err
	}

	return nil, toSyncStatusOutput(status), nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, domain.StatsSummary, error) {
	if s.ports.Stats == nil {
		return nil, domain.StatsSummary{}, errors.New("mcp: statistics are not available")
	}

	summary, err := s.ports.Stats.Summary(ctx)
	if err != nil {
		return nil, domain.StatsSummary{}, err
	}
	return nil, *summary, nil
}

// handleFeedback handles the feedback tool invocation.
func (s *Server) handleFeedback(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FeedbackInput,
) (*mcp.CallToolResult, FeedbackOutput, error) {
	if s.ports.Stats == nil {
		return nil, FeedbackOutput{}, errors.New("mcp: statistics are not available")
	}

	if err := s.ports.Stats.RecordFeedback(ctx, input.Answerable, input.Helpful); err != nil {
		return nil, FeedbackOutput{}, err
	}
	return nil, FeedbackOutput{
		Outcome: string(domain.ClassifyFeedback(input.Answerable, input.Helpful)),
	}, nil
}

func toPassageOutputs(passages []domain.RetrievedPassage) []PassageOutput {
	out := make([]PassageOutput, len(passages))
	for i := range passages {
		out[i] = PassageOutput{
			Fingerprint: passages[i].Fingerprint,
			Title:       passages[i].Title,
			Source:      passages[i].Source,
			Score:       passages[i].Score,
			Text:        passages[i].Text,
		}
	}
	return out
}

func toSyncOutput(report *domain.SyncReport) SyncOutput {
	if report == nil {
		return SyncOutput{}
	}
	return SyncOutput{
		Mode:       string(report.Mode),
		Collection: report.Collection,
		Documents:  report.Documents,
		Passages:   report.Passages,
		Inserted:   report.Inserted,
		Deleted:    report.Deleted,
		Unchanged:  report.Unchanged,
		DurationMS: report.Duration.Milliseconds(),
		Changed:    report.Changed(),
	}
}

func toSyncStatusOutput(status *driving.SyncStatus) SyncStatusOutput {
	if status == nil {
		return SyncStatusOutput{Phase: string(domain.PhaseIdle)}
	}
	out := SyncStatusOutput{
		Collection: status.Collection,
		Running:    status.Running,
		Phase:      string(status.Phase),
		LastError:  status.LastError,
	}
	if out.Phase == "" {
		out.Phase = string(domain.PhaseIdle)
	}
	if status.LastReport != nil {
		report := toSyncOutput(status.LastReport)
		out.LastReport = &report
	}
	return out
}

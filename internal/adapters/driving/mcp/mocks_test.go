package mcp

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer   *domain.Answer
	passages []domain.RetrievedPassage
	err      error
	asked    []string
}

func (m *mockQueryService) Answer(_ context.Context, question string) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockQueryService) Retrieve(_ context.Context, question string) ([]domain.RetrievedPassage, error) {
	m.asked = append(m.asked, question)
	return m.passages, m.err
}

// mockSynchronizer is a mock implementation of driving.CorpusSynchronizer.
type mockSynchronizer struct {
	report *domain.SyncReport
	status *driving.SyncStatus
	err    error
}

func (m *mockSynchronizer) Sync(_ context.Context) (*domain.SyncReport, error) {
	return m.report, m.err
}

func (m *mockSynchronizer) Status(_ context.Context) (*driving.SyncStatus, error) {
	return m.status, m.err
}

// mockStatsService is a mock implementation of driving.StatsService.
type mockStatsService struct {
	summary  *domain.StatsSummary
	err      error
	feedback []domain.FeedbackOutcome
}

func (m *mockStatsService) RecordAnswer(_ context.Context, _ string, _ *domain.Answer) error {
	return m.err
}

func (m *mockStatsService) RecordFeedback(_ context.Context, answerable, helpful bool) error {
	if m.err != nil {
		return m.err
	}
	m.feedback = append(m.feedback, domain.ClassifyFeedback(answerable, helpful))
	return nil
}

func (m *mockStatsService) RetractFeedback(_ context.Context, _, _ bool) error {
	return m.err
}

func (m *mockStatsService) Summary(_ context.Context) (*domain.StatsSummary, error) {
	return m.summary, m.err
}

func (m *mockStatsService) Reset(_ context.Context) error {
	return m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Set(_, _ string) error { return m.err }

func (m *mockSettingsService) Keys() []string { return nil }

func (m *mockSettingsService) Validate() error { return m.err }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.err }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.err }

var (
	_ driving.QueryService       = (*mockQueryService)(nil)
	_ driving.CorpusSynchronizer = (*mockSynchronizer)(nil)
	_ driving.StatsService       = (*mockStatsService)(nil)
	_ driving.SettingsService    = (*mockSettingsService)(nil)
)

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// mockQueryService implements driving.QueryService for testing.
type mockQueryService struct {
	answer   *domain.Answer
	passages []domain.RetrievedPassage
	err      error
	question string
}

func (m *mockQueryService) Answer(_ context.Context, question string) (*domain.Answer, error) {
	m.question = question
	return m.answer, m.err
}

func (m *mockQueryService) Retrieve(_ context.Context, question string) ([]domain.RetrievedPassage, error) {
	m.question = question
	return m.passages, m.err
}

// mockSynchronizer implements driving.CorpusSynchronizer for testing.
// When release is set, Sync blocks until Status has reported every phase.
type mockSynchronizer struct {
	mu       sync.Mutex
	report   *domain.SyncReport
	status   *driving.SyncStatus
	err      error
	phases   []domain.SyncPhase
	release  chan struct{}
	released bool
}

func (m *mockSynchronizer) Sync(_ context.Context) (*domain.SyncReport, error) {
	if m.release != nil {
		<-m.release
	}
	return m.report, m.err
}

func (m *mockSynchronizer) Status(_ context.Context) (*driving.SyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release != nil && !m.released {
		if len(m.phases) == 0 {
			close(m.release)
			m.released = true
			return &driving.SyncStatus{}, nil
		}
		phase := m.phases[0]
		m.phases = m.phases[1:]
		return &driving.SyncStatus{Running: true, Phase: phase}, nil
	}
	if m.status == nil {
		return &driving.SyncStatus{}, nil
	}
	return m.status, nil
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	set         map[string]string
	setErr      error
	validateErr error
	pingErr     error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if !strings.Contains(key, ".") {
		return errors.New("unknown key")
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"corpus.source", "retrieval.k", "retrieval.score_threshold"}
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.pingErr }

// mockStatsService implements driving.StatsService for testing.
type mockStatsService struct {
	summary   *domain.StatsSummary
	err       error
	resets    int
	recorded  []domain.FeedbackOutcome
	retracted []domain.FeedbackOutcome
}

func (m *mockStatsService) RecordAnswer(_ context.Context, _ string, _ *domain.Answer) error {
	return m.err
}

func (m *mockStatsService) RecordFeedback(_ context.Context, answerable, helpful bool) error {
	m.recorded = append(m.recorded, domain.ClassifyFeedback(answerable, helpful))
	return m.err
}

func (m *mockStatsService) RetractFeedback(_ context.Context, answerable, helpful bool) error {
	m.retracted = append(m.retracted, domain.ClassifyFeedback(answerable, helpful))
	return m.err
}

func (m *mockStatsService) Summary(_ context.Context) (*domain.StatsSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.summary == nil {
		return &domain.StatsSummary{Keywords: []domain.KeywordCount{}}, nil
	}
	return m.summary, nil
}

func (m *mockStatsService) Reset(_ context.Context) error {
	m.resets++
	return m.err
}

var (
	_ driving.QueryService       = (*mockQueryService)(nil)
	_ driving.CorpusSynchronizer = (*mockSynchronizer)(nil)
	_ driving.SettingsService    = (*mockSettingsService)(nil)
	_ driving.StatsService       = (*mockStatsService)(nil)
)

// setupTestServices installs the given services and resets command flags.
// The returned func restores the previous state.
func setupTestServices(s Services) func() {
	old := Services{
		Query:     queryService,
		Sync:      synchronizer,
		Settings:  settingsService,
		Stats:     statsService,
		Scheduler: syncScheduler,
	}
	SetServices(s)
	resetFlags()
	return func() {
		SetServices(old)
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

func resetFlags() {
	syncJSON = false
	askShowPassages = false
	askJSON = false
	retrieveJSON = false
	statsJSON = false
	statsReset = false
	feedbackAnswerable = false
	feedbackHelpful = false
	feedbackRetract = false
	verboseFlag = false
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

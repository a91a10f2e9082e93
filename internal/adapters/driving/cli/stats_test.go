package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

func TestStatsCmd_PrintsSummary(t *testing.T) {
	acc := 0.6
	stats := &mockStatsService{summary: &domain.StatsSummary{
		Usage:    domain.UsageCounters{Questions: 5, Answered: 3, Declined: 2},
		Keywords: []domain.KeywordCount{{Keyword: "password", Count: 3}},
		Feedback: domain.ConfusionMatrix{TruePositive: 2, FalseNegative: 1},
		Performance: domain.PerformanceMetrics{
			Accuracy: &acc,
		},
	}}
	cleanup := setupTestServices(Services{Stats: stats})
	defer cleanup()

	out, err := execute("stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Questions: 5")
	assert.Contains(t, out, "password")
	assert.Contains(t, out, "TP: 2  TN: 0  FP: 0  FN: 1")
	assert.Contains(t, out, "Accuracy:    0.600")
	assert.Contains(t, out, "Precision:   n/a")
}

func TestStatsCmd_Empty(t *testing.T) {
	cleanup := setupTestServices(Services{Stats: &mockStatsService{}})
	defer cleanup()

	out, err := execute("stats")

	require.NoError(t, err)
	assert.Contains(t, out, "(none yet)")
}

func TestStatsCmd_JSON(t *testing.T) {
	cleanup := setupTestServices(Services{Stats: &mockStatsService{}})
	defer cleanup()

	out, err := execute("stats", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"usage"`)
	assert.Contains(t, out, `"accuracy": null`)
}

func TestStatsCmd_Reset(t *testing.T) {
	stats := &mockStatsService{}
	cleanup := setupTestServices(Services{Stats: stats})
	defer cleanup()

	out, err := execute("stats", "--reset")

	require.NoError(t, err)
	assert.Contains(t, out, "Statistics cleared.")
	assert.Equal(t, 1, stats.resets)
}

func TestStatsCmd_Error(t *testing.T) {
	cleanup := setupTestServices(Services{Stats: &mockStatsService{err: errors.New("database locked")}})
	defer cleanup()

	_, err := execute("stats")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database locked")
}

func TestFeedbackCmd(t *testing.T) {
	tests := []struct {
		args []string
		want domain.FeedbackOutcome
	}{
		{[]string{"--answerable", "--helpful"}, domain.TruePositive},
		{[]string{"--answerable"}, domain.FalseNegative},
		{[]string{"--helpful"}, domain.TrueNegative},
		{nil, domain.FalsePositive},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			stats := &mockStatsService{}
			cleanup := setupTestServices(Services{Stats: stats})
			defer cleanup()

			out, err := execute(append([]string{"feedback"}, tt.args...)...)

			require.NoError(t, err)
			assert.Equal(t, []domain.FeedbackOutcome{tt.want}, stats.recorded)
			assert.Contains(t, out, "Recorded "+string(tt.want))
		})
	}
}

func TestFeedbackCmd_Retract(t *testing.T) {
	stats := &mockStatsService{}
	cleanup := setupTestServices(Services{Stats: stats})
	defer cleanup()

	_, err := execute("feedback", "--answerable", "--helpful", "--retract")

	require.NoError(t, err)
	assert.Empty(t, stats.recorded)
	assert.Equal(t, []domain.FeedbackOutcome{domain.TruePositive}, stats.retracted)
}

func TestFormatMetric(t *testing.T) {
	v := 0.6667
	assert.Equal(t, "0.667", formatMetric(&v))
	assert.Equal(t, "n/a", formatMetric(nil))
}

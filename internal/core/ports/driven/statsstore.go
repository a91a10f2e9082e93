package driven

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// StatsStore persists usage counters, keyword counts and answer feedback.
// No question text is stored beyond extracted keywords.
type StatsStore interface {
	// RecordQuestion counts a question and its keywords.
	RecordQuestion(ctx context.Context, keywords []string, answered bool) error

	// AddFeedback adjusts a confusion matrix cell by delta, never below zero.
	AddFeedback(ctx context.Context, outcome domain.FeedbackOutcome, delta int) error

	// Usage returns the question counters.
	Usage(ctx context.Context) (domain.UsageCounters, error)

	// TopKeywords returns the most frequent keywords, most frequent first.
	TopKeywords(ctx context.Context, limit int) ([]domain.KeywordCount, error)

	// Feedback returns the confusion matrix.
	Feedback(ctx context.Context) (domain.ConfusionMatrix, error)

	// Reset clears all statistics.
	Reset(ctx context.Context) error
}

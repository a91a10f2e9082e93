package driving

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// StatsService tracks usage and answer quality.
type StatsService interface {
	// RecordAnswer counts a question and whether it was answered.
	RecordAnswer(ctx context.Context, question string, answer *domain.Answer) error

	// RecordFeedback records a user verdict on an answer.
	RecordFeedback(ctx context.Context, answerable, helpful bool) error

	// RetractFeedback undoes an earlier verdict.
	RetractFeedback(ctx context.Context, answerable, helpful bool) error

	// Summary returns counters, top keywords and quality metrics.
	Summary(ctx context.Context) (*domain.StatsSummary, error)

	// Reset clears all statistics.
	Reset(ctx context.Context) error
}

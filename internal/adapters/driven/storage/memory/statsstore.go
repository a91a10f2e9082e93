package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

// Ensure StatsStore implements the interface.
var _ driven.StatsStore = (*StatsStore)(nil)

// StatsStore is an in-memory implementation of driven.StatsStore.
type StatsStore struct {
	mu       sync.Mutex
	usage    domain.UsageCounters
	keywords map[string]int
	feedback map[domain.FeedbackOutcome]int
}

// NewStatsStore creates an empty stats store.
func NewStatsStore() *StatsStore {
	return &StatsStore{
		keywords: make(map[string]int),
		feedback: make(map[domain.FeedbackOutcome]int),
	}
}

// RecordQuestion counts a question and its keywords.
func (s *StatsStore) RecordQuestion(_ context.Context, keywords []string, answered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Questions++
	if answered {
		s.usage.Answered++
	} else {
		s.usage.Declined++
	}
	for _, kw := range keywords {
		s.keywords[kw]++
	}
	return nil
}

// AddFeedback adjusts one confusion matrix cell, clamped at zero.
func (s *StatsStore) AddFeedback(_ context.Context, outcome domain.FeedbackOutcome, delta int) error {
	if !outcome.IsValid() {
		return fmt.Errorf("%w: feedback outcome %q", domain.ErrInvalidInput, outcome)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[outcome] = max(0, s.feedback[outcome]+delta)
	return nil
}

// Usage returns the question counters.
func (s *StatsStore) Usage(_ context.Context) (domain.UsageCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage, nil
}

// TopKeywords returns the most frequent keywords, ties in alphabetical order.
func (s *StatsStore) TopKeywords(_ context.Context, limit int) ([]domain.KeywordCount, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	out := make([]domain.KeywordCount, 0, len(s.keywords))
	for kw, n := range s.keywords {
		out = append(out, domain.KeywordCount{Keyword: kw, Count: n})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Feedback returns the confusion matrix.
func (s *StatsStore) Feedback(_ context.Context) (domain.ConfusionMatrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ConfusionMatrix{
		TruePositive:  s.feedback[domain.TruePositive],
		TrueNegative:  s.feedback[domain.TrueNegative],
		FalsePositive: s.feedback[domain.FalsePositive],
		FalseNegative: s.feedback[domain.FalseNegative],
	}, nil
}

// Reset clears all statistics.
func (s *StatsStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = domain.UsageCounters{}
	s.keywords = make(map[string]int)
	s.feedback = make(map[domain.FeedbackOutcome]int)
	return nil
}

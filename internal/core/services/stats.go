package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// Ensure StatsService implements the interface.
var _ driving.StatsService = (*StatsService)(nil)

const (
	// topKeywordLimit is the number of keywords in a summary.
	topKeywordLimit = 5

	minKeywordLength = 3
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "any": {}, "can": {}, "her": {}, "was": {}, "one": {}, "our": {},
	"out": {}, "his": {}, "has": {}, "had": {}, "how": {}, "its": {}, "who": {},
	"did": {}, "get": {}, "may": {}, "him": {}, "she": {}, "use": {}, "way": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "why": {}, "with": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "from": {}, "have": {},
	"does": {}, "there": {}, "their": {}, "them": {}, "they": {}, "then": {},
	"than": {}, "into": {}, "your": {}, "about": {}, "would": {}, "could": {},
	"should": {}, "will": {}, "been": {}, "being": {}, "were": {}, "some": {},
	"more": {}, "most": {}, "also": {}, "just": {}, "like": {}, "only": {},
	"over": {}, "such": {}, "very": {}, "want": {}, "need": {}, "please": {},
	"tell": {}, "know": {}, "there's": {}, "what's": {}, "i'm": {},
}

// ExtractKeywords returns the distinct lower-cased words of at least three
// letters in question, stop words removed, in order of first appearance.
func ExtractKeywords(question string) []string {
	words := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		w = strings.Trim(w, "'")
		if len([]rune(w)) < minKeywordLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// StatsService tracks usage and answer quality.
type StatsService struct {
	store driven.StatsStore
}

// NewStatsService creates a stats service.
func NewStatsService(store driven.StatsStore) *StatsService {
	return &StatsService{store: store}
}

// RecordAnswer counts a question and whether it was answered.
func (s *StatsService) RecordAnswer(ctx context.Context, question string, answer *domain.Answer) error {
	if err := s.store.RecordQuestion(ctx, ExtractKeywords(question), answer.Answered()); err != nil {
		return fmt.Errorf("record question: %w", err)
	}
	return nil
}

// RecordFeedback records a user verdict on an answer.
func (s *StatsService) RecordFeedback(ctx context.Context, answerable, helpful bool) error {
	return s.adjust(ctx, answerable, helpful, 1)
}

// RetractFeedback undoes an earlier verdict.
func (s *StatsService) RetractFeedback(ctx context.Context, answerable, helpful bool) error {
	return s.adjust(ctx, answerable, helpful, -1)
}

func (s *StatsService) adjust(ctx context.Context, answerable, helpful bool, delta int) error {
	outcome := domain.ClassifyFeedback(answerable, helpful)
	if err := s.store.AddFeedback(ctx, outcome, delta); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

// Summary returns counters, top keywords and quality metrics.
func (s *StatsService) Summary(ctx context.Context) (*domain.StatsSummary, error) {
	usage, err := s.store.Usage(ctx)
	if err != nil {
		return nil, fmt.Errorf("usage: %w", err)
	}
	keywords, err := s.store.TopKeywords(ctx, topKeywordLimit)
	if err != nil {
		return nil, fmt.Errorf("top keywords: %w", err)
	}
	feedback, err := s.store.Feedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("feedback: %w", err)
	}
	if keywords == nil {
		keywords = []domain.KeywordCount{}
	}
	return &domain.StatsSummary{
		Usage:       usage,
		Keywords:    keywords,
		Feedback:    feedback,
		Performance: feedback.Metrics(),
	}, nil
}

// Reset clears all statistics.
func (s *StatsService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}
	return nil
}

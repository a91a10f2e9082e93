package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

// Usage counter names.
const (
	counterQuestions = "questions"
	counterAnswered  = "answered"
	counterDeclined  = "declined"
)

// statsStore implements driven.StatsStore.
type statsStore struct {
	store *Store
}

var _ driven.StatsStore = (*statsStore)(nil)

// RecordQuestion counts a question and its keywords in one transaction.
func (s *statsStore) RecordQuestion(ctx context.Context, keywords []string, answered bool) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	outcome := counterDeclined
	if answered {
		outcome = counterAnswered
	}
	for _, name := range []string{counterQuestions, outcome} {
		if err := incrementCounter(ctx, tx, name); err != nil {
			return err
		}
	}

	for _, kw := range keywords {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO keyword_counts (keyword, count) VALUES (?, 1)
			ON CONFLICT(keyword) DO UPDATE SET count = count + 1
		`, kw)
		if err != nil {
			return fmt.Errorf("counting keyword %q: %w", kw, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing question: %w", err)
	}
	return nil
}

// AddFeedback adjusts one confusion matrix cell, clamped at zero.
func (s *statsStore) AddFeedback(ctx context.Context, outcome domain.FeedbackOutcome, delta int) error {
	if !outcome.IsValid() {
		return fmt.Errorf("%w: feedback outcome %q", domain.ErrInvalidInput, outcome)
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO feedback_counts (outcome, count) VALUES (?, MAX(0, ?))
		ON CONFLICT(outcome) DO UPDATE SET count = MAX(0, feedback_counts.count + ?)
	`, string(outcome), delta, delta)
	if err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}
	return nil
}

// Usage returns the question counters.
func (s *statsStore) Usage(ctx context.Context) (domain.UsageCounters, error) {
	var usage domain.UsageCounters

	rows, err := s.store.db.QueryContext(ctx, "SELECT name, value FROM usage_counters")
	if err != nil {
		return usage, fmt.Errorf("querying usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name  string
			value int
		)
		if err := rows.Scan(&name, &value); err != nil {
			return usage, fmt.Errorf("scanning usage: %w", err)
		}
		switch name {
		case counterQuestions:
			usage.Questions = value
		case counterAnswered:
			usage.Answered = value
		case counterDeclined:
			usage.Declined = value
		}
	}
	if err := rows.Err(); err != nil {
		return usage, fmt.Errorf("iterating usage: %w", err)
	}
	return usage, nil
}

// TopKeywords returns the most frequent keywords, ties in alphabetical order.
func (s *statsStore) TopKeywords(ctx context.Context, limit int) ([]domain.KeywordCount, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT keyword, count FROM keyword_counts
		ORDER BY count DESC, keyword ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying keywords: %w", err)
	}
	defer rows.Close()

	var out []domain.KeywordCount //nolint:prealloc // size unknown from query
	for rows.Next() {
		var kc domain.KeywordCount
		if err := rows.Scan(&kc.Keyword, &kc.Count); err != nil {
			return nil, fmt.Errorf("scanning keyword: %w", err)
		}
		out = append(out, kc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keywords: %w", err)
	}
	return out, nil
}

// Feedback returns the confusion matrix.
func (s *statsStore) Feedback(ctx context.Context) (domain.ConfusionMatrix, error) {
	var m domain.ConfusionMatrix

	rows, err := s.store.db.QueryContext(ctx, "SELECT outcome, count FROM feedback_counts")
	if err != nil {
		return m, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return m, fmt.Errorf("scanning feedback: %w", err)
		}
		switch domain.FeedbackOutcome(outcome) {
		case domain.TruePositive:
			m.TruePositive = count
		case domain.TrueNegative:
			m.TrueNegative = count
		case domain.FalsePositive:
			m.FalsePositive = count
		case domain.FalseNegative:
			m.FalseNegative = count
		}
	}
	if err := rows.Err(); err != nil {
		return m, fmt.Errorf("iterating feedback: %w", err)
	}
	return m, nil
}

// Reset clears all statistics.
func (s *statsStore) Reset(ctx context.Context) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"usage_counters", "keyword_counts", "feedback_counts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}
	return nil
}

func incrementCounter(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO usage_counters (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
	`, name)
	if err != nil {
		return fmt.Errorf("incrementing %s: %w", name, err)
	}
	return nil
}

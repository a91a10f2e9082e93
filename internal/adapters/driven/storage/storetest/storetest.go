// Package storetest holds behavioural tests shared by every storage backend.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

// Dimension is the vector size used by the shared tests.
const Dimension = 4

// Entry builds a passage with a fingerprint derived from text.
func Entry(text string) domain.Passage {
	return domain.Passage{
		Text:        text,
		Title:       "Title " + text,
		Source:      "https://example.com/" + text,
		Fingerprint: domain.Fingerprint(text),
	}
}

// Batch builds a batch from (text, vector) pairs.
func Batch(texts []string, vectors [][]float32) *domain.EntryBatch {
	b := domain.NewEntryBatch(len(texts))
	for i, text := range texts {
		b.Append(Entry(text), vectors[i])
	}
	return b
}

// RunVectorStoreTests exercises a VectorStore. newStore must return an empty store.
func RunVectorStoreTests(t *testing.T, newStore func(t *testing.T) driven.VectorStore) {
	ctx := context.Background()
	spec := domain.CollectionSpec{Name: "httpsexamplecom", Dimension: Dimension, Metric: domain.MetricL2}

	t.Run("create and open", func(t *testing.T) {
		s := newStore(t)

		exists, err := s.HasCollection(ctx, spec.Name)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = s.OpenCollection(ctx, spec.Name)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		created, err := s.CreateCollection(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, spec, created.Spec())

		exists, err = s.HasCollection(ctx, spec.Name)
		require.NoError(t, err)
		assert.True(t, exists)

		opened, err := s.OpenCollection(ctx, spec.Name)
		require.NoError(t, err)
		assert.Equal(t, spec, opened.Spec())

		again, err := s.OpenCollection(ctx, spec.Name)
		require.NoError(t, err)
		assert.Same(t, opened, again)

		_, err = s.CreateCollection(ctx, spec)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("insert list count delete", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateCollection(ctx, spec)
		require.NoError(t, err)

		batch := Batch(
			[]string{"alpha", "beta", "gamma"},
			[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}},
		)
		require.NoError(t, c.BulkInsert(ctx, batch))

		count, err := c.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		fps, err := c.ListFingerprints(ctx)
		require.NoError(t, err)
		assert.Len(t, fps, 3)
		assert.Contains(t, fps, domain.Fingerprint("beta"))

		require.NoError(t, c.Delete(ctx, domain.Fingerprint("beta")))
		require.NoError(t, c.Delete(ctx, domain.Fingerprint("missing")))

		fps, err = c.ListFingerprints(ctx)
		require.NoError(t, err)
		assert.Len(t, fps, 2)
		assert.NotContains(t, fps, domain.Fingerprint("beta"))

		require.NoError(t, c.BulkInsert(ctx, domain.NewEntryBatch(0)))
	})

	t.Run("duplicate fingerprint rejected", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateCollection(ctx, spec)
		require.NoError(t, err)

		require.NoError(t, c.BulkInsert(ctx, Batch([]string{"alpha"}, [][]float32{{1, 0, 0, 0}})))

		err = c.BulkInsert(ctx, Batch([]string{"alpha"}, [][]float32{{1, 0, 0, 0}}))
		assert.ErrorIs(t, err, domain.ErrDuplicateFingerprint)

		err = c.BulkInsert(ctx, Batch([]string{"beta", "beta"}, [][]float32{{1, 0, 0, 0}, {1, 0, 0, 0}}))
		assert.ErrorIs(t, err, domain.ErrDuplicateFingerprint)

		count, err := c.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("dimension mismatch rejected", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateCollection(ctx, spec)
		require.NoError(t, err)

		err = c.BulkInsert(ctx, Batch([]string{"alpha"}, [][]float32{{1, 0}}))
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("search requires load", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateCollection(ctx, spec)
		require.NoError(t, err)

		require.NoError(t, c.BulkInsert(ctx, Batch(
			[]string{"alpha", "beta", "gamma"},
			[][]float32{{1, 0, 0, 0}, {0.8, 0.6, 0, 0}, {0, 0, 0, 1}},
		)))

		assert.False(t, c.Loaded())
		hits, err := c.Search(ctx, []float32{1, 0, 0, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)

		require.NoError(t, c.Load(ctx))
		assert.True(t, c.Loaded())

		hits, err = c.Search(ctx, []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)

		assert.Equal(t, domain.Fingerprint("alpha"), hits[0].Fingerprint)
		assert.InDelta(t, 0, hits[0].Raw, 1e-4)
		require.NotNil(t, hits[0].Text)
		assert.Equal(t, "alpha", *hits[0].Text)
		require.NotNil(t, hits[0].Title)
		assert.Equal(t, "Title alpha", *hits[0].Title)
		require.NotNil(t, hits[0].Source)
		assert.Equal(t, "https://example.com/alpha", *hits[0].Source)

		assert.Equal(t, domain.Fingerprint("beta"), hits[1].Fingerprint)
		assert.Less(t, hits[0].Raw, hits[1].Raw)
	})

	t.Run("load reflects deletes", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateCollection(ctx, spec)
		require.NoError(t, err)

		require.NoError(t, c.BulkInsert(ctx, Batch(
			[]string{"alpha", "beta"},
			[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}},
		)))
		require.NoError(t, c.Load(ctx))
		require.NoError(t, c.Delete(ctx, domain.Fingerprint("alpha")))
		require.NoError(t, c.Load(ctx))

		hits, err := c.Search(ctx, []float32{1, 0, 0, 0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, domain.Fingerprint("beta"), hits[0].Fingerprint)
	})

	t.Run("missing metadata is nil", func(t *testing.T) {
		s := newStore(t)
		c, err := s.CreateCollection(ctx, spec)
		require.NoError(t, err)

		b := domain.NewEntryBatch(1)
		b.Append(domain.Passage{Text: "bare", Fingerprint: domain.Fingerprint("bare")}, []float32{1, 0, 0, 0})
		require.NoError(t, c.BulkInsert(ctx, b))
		require.NoError(t, c.Load(ctx))

		hits, err := c.Search(ctx, []float32{1, 0, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Nil(t, hits[0].Title)
		assert.Nil(t, hits[0].Source)

		resolved := hits[0].Resolve(1)
		assert.Equal(t, domain.DefaultTitle, resolved.Title)
		assert.Equal(t, domain.DefaultSource, resolved.Source)
	})

	t.Run("inner product metric", func(t *testing.T) {
		s := newStore(t)
		ipSpec := domain.CollectionSpec{Name: "ipcollection", Dimension: Dimension, Metric: domain.MetricIP}
		c, err := s.CreateCollection(ctx, ipSpec)
		require.NoError(t, err)

		require.NoError(t, c.BulkInsert(ctx, Batch(
			[]string{"alpha", "beta"},
			[][]float32{{0.6, 0.8, 0, 0}, {1, 0, 0, 0}},
		)))
		require.NoError(t, c.Load(ctx))

		hits, err := c.Search(ctx, []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, domain.Fingerprint("beta"), hits[0].Fingerprint)
		assert.InDelta(t, 1.0, hits[0].Raw, 1e-4)
		assert.InDelta(t, 0.6, hits[1].Raw, 1e-4)

		opened, err := s.OpenCollection(ctx, "ipcollection")
		require.NoError(t, err)
		assert.Equal(t, domain.MetricIP, opened.Spec().Metric)
	})

	t.Run("invalid spec rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateCollection(ctx, domain.CollectionSpec{Name: "x", Dimension: 0, Metric: domain.MetricL2})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

// RunStatsStoreTests exercises a StatsStore. newStore must return an empty store.
func RunStatsStoreTests(t *testing.T, newStore func(t *testing.T) driven.StatsStore) {
	ctx := context.Background()

	t.Run("usage and keywords", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.RecordQuestion(ctx, []string{"password", "reset"}, true))
		require.NoError(t, s.RecordQuestion(ctx, []string{"password", "wifi"}, false))
		require.NoError(t, s.RecordQuestion(ctx, nil, true))

		usage, err := s.Usage(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.UsageCounters{Questions: 3, Answered: 2, Declined: 1}, usage)

		top, err := s.TopKeywords(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []domain.KeywordCount{
			{Keyword: "password", Count: 2},
			{Keyword: "reset", Count: 1},
		}, top)
	})

	t.Run("feedback never negative", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.AddFeedback(ctx, domain.TruePositive, 1))
		require.NoError(t, s.AddFeedback(ctx, domain.TruePositive, 1))
		require.NoError(t, s.AddFeedback(ctx, domain.FalsePositive, 1))
		require.NoError(t, s.AddFeedback(ctx, domain.FalsePositive, -1))
		require.NoError(t, s.AddFeedback(ctx, domain.FalsePositive, -1))
		require.NoError(t, s.AddFeedback(ctx, domain.TrueNegative, -1))

		m, err := s.Feedback(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ConfusionMatrix{TruePositive: 2}, m)

		assert.ErrorIs(t, s.AddFeedback(ctx, domain.FeedbackOutcome("bogus"), 1), domain.ErrInvalidInput)
	})

	t.Run("reset", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.RecordQuestion(ctx, []string{"printing"}, true))
		require.NoError(t, s.AddFeedback(ctx, domain.FalseNegative, 1))
		require.NoError(t, s.Reset(ctx))

		usage, err := s.Usage(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.UsageCounters{}, usage)

		top, err := s.TopKeywords(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, top)

		m, err := s.Feedback(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ConfusionMatrix{}, m)
	})
}

// RunSyncHistoryStoreTests exercises a SyncHistoryStore.
func RunSyncHistoryStoreTests(t *testing.T, newStore func(t *testing.T) driven.SyncHistoryStore) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	run := func(i int, err error) domain.SyncRun {
		started := base.Add(time.Duration(i) * time.Hour)
		r := domain.SyncRun{
			Collection: "site",
			StartedAt:  started,
			EndedAt:    started.Add(time.Minute),
			Success:    err == nil,
		}
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Report = &domain.SyncReport{Mode: domain.SyncIncremental, Collection: "site", Inserted: i}
		}
		return r
	}

	t.Run("last run", func(t *testing.T) {
		s := newStore(t)

		last, err := s.LastRun(ctx, "site")
		require.NoError(t, err)
		assert.Nil(t, last)

		require.NoError(t, s.RecordRun(ctx, run(1, nil)))
		require.NoError(t, s.RecordRun(ctx, run(2, fmt.Errorf("crawl failed"))))

		last, err = s.LastRun(ctx, "site")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.False(t, last.Success)
		assert.Equal(t, "crawl failed", last.Error)
		assert.Nil(t, last.Report)
		assert.True(t, last.StartedAt.Equal(base.Add(2*time.Hour)))

		runs, err := s.ListRuns(ctx, "site", 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		require.NotNil(t, runs[1].Report)
		assert.Equal(t, 1, runs[1].Report.Inserted)
		assert.Equal(t, domain.SyncIncremental, runs[1].Report.Mode)
	})

	t.Run("prune", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, s.RecordRun(ctx, run(i, nil)))
		}
		other := run(0, nil)
		other.Collection = "other"
		require.NoError(t, s.RecordRun(ctx, other))

		require.NoError(t, s.PruneHistory(ctx, 2))

		runs, err := s.ListRuns(ctx, "site", 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, 4, runs[0].Report.Inserted)
		assert.Equal(t, 3, runs[1].Report.Inserted)

		runs, err = s.ListRuns(ctx, "other", 10)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})
}

package services

import (
	"cmp"
	"context"
	"slices"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/logger"
)

// ThresholdRetriever fetches the k nearest passages and keeps those whose
// normalised score reaches the threshold.
type ThresholdRetriever struct {
	k         int
	threshold float64
}

// NewThresholdRetriever creates a retriever. Non-positive k falls back to the
// default of 3.
func NewThresholdRetriever(k int, threshold float64) *ThresholdRetriever {
	if k <= 0 {
		k = domain.DefaultAppSettings().Retrieval.K
	}
	return &ThresholdRetriever{k: k, threshold: threshold}
}

// K returns the number of neighbours fetched.
func (r *ThresholdRetriever) K() int { return r.k }

// Threshold returns the minimum score kept.
func (r *ThresholdRetriever) Threshold() float64 { return r.threshold }

// Retrieve returns qualifying passages, best first. Ties keep fingerprint
// order. A failed search is logged and yields an empty result.
func (r *ThresholdRetriever) Retrieve(
	ctx context.Context,
	vector []float32,
	coll driven.Collection,
) []domain.RetrievedPassage {
	if coll == nil {
		return []domain.RetrievedPassage{}
	}

	hits, err := coll.Search(ctx, vector, r.k)
	if err != nil {
		logger.Error("search %s: %v", coll.Spec().Name, err)
		return []domain.RetrievedPassage{}
	}

	metric := coll.Spec().Metric
	out := make([]domain.RetrievedPassage, 0, len(hits))
	for _, hit := range hits {
		score := metric.Normalize(hit.Raw)
		if score < r.threshold {
			logger.Debug("dropped %s: score %.3f below %.3f", hit.Fingerprint, score, r.threshold)
			continue
		}
		out = append(out, hit.Resolve(score))
	}

	slices.SortStableFunc(out, func(a, b domain.RetrievedPassage) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Fingerprint, b.Fingerprint)
	})
	return out
}

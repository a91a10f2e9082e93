package flat

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// Result is one query match.
type Result struct {
	ID string
	// Raw is the L2 distance or the inner product, depending on the metric.
	Raw float64
}

// Index is an immutable snapshot of ids and vectors. Build replaces it.
// An Index is safe for concurrent queries once built.
type Index struct {
	metric domain.Metric
	ids    []string
	vecs   []search.Float32s
	dim    int
}

// New creates an empty index for the given metric.
func New(metric domain.Metric) *Index {
	return &Index{metric: metric}
}

// Metric returns the index metric.
func (i *Index) Metric() domain.Metric {
	return i.metric
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int {
	return len(i.ids)
}

// Build loads ids and vectors, replacing any previous contents.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if !i.metric.IsValid() {
		return fmt.Errorf("flat: unsupported metric %q", i.metric)
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("flat: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	vecs := make([]search.Float32s, len(vectors))
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("flat: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
		vecs[j] = search.Float32s(vectors[j])
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = vecs
	i.dim = dim
	return nil
}

// Query returns up to k nearest entries. An empty index returns no results.
func (i *Index) Query(query []float32, k int) ([]Result, error) {
	if i.dim == 0 || len(i.vecs) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != i.dim {
		return nil, fmt.Errorf("%w: query dim %d != index dim %d", domain.ErrDimensionMismatch, len(query), i.dim)
	}

	q := search.Float32s(query)
	results := make([]Result, 0, len(i.vecs))
	for j, v := range i.vecs {
		var raw float64
		if i.metric == domain.MetricIP {
			raw = dot(query, v)
		} else {
			raw = float64(q.EuclideanDistance(v))
		}
		if math.IsNaN(raw) {
			continue
		}
		results = append(results, Result{ID: i.ids[j], Raw: raw})
	}

	distance := i.metric.IsDistance()
	sort.Slice(results, func(a, b int) bool {
		ra, rb := results[a].Raw, results[b].Raw
		if ra != rb {
			if distance {
				return ra < rb
			}
			return ra > rb
		}
		return results[a].ID < results[b].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func dot(a, b []float32) float64 {
	var s float64
	for n := range a {
		s += float64(a[n]) * float64(b[n])
	}
	return s
}

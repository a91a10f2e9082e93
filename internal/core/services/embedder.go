package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

// Ensure SharedEmbedder implements the interface.
var _ driven.EmbeddingService = (*SharedEmbedder)(nil)

// EmbeddingFactory constructs the configured embedding service.
type EmbeddingFactory func() (driven.EmbeddingService, error)

// SharedEmbedder builds the embedding service on first use and hands the same
// instance to the synchronizer and the query path. Every vector it returns is
// scaled to unit length so L2 distances stay within [0, sqrt(2)] for vectors
// with non-negative cosine similarity.
type SharedEmbedder struct {
	factory EmbeddingFactory

	once sync.Once
	svc  driven.EmbeddingService
	err  error
}

// NewSharedEmbedder creates a lazily constructed embedder.
func NewSharedEmbedder(factory EmbeddingFactory) *SharedEmbedder {
	return &SharedEmbedder{factory: factory}
}

// NewSharedEmbedderFrom wraps an already constructed service.
func NewSharedEmbedderFrom(svc driven.EmbeddingService) *SharedEmbedder {
	return NewSharedEmbedder(func() (driven.EmbeddingService, error) { return svc, nil })
}

func (e *SharedEmbedder) service() (driven.EmbeddingService, error) {
	e.once.Do(func() {
		if e.factory == nil {
			e.err = domain.ErrEmbeddingUnavailable
			return
		}
		e.svc, e.err = e.factory()
		if e.err == nil && e.svc == nil {
			e.err = domain.ErrEmbeddingUnavailable
		}
	})
	return e.svc, e.err
}

// Embed returns the unit-length embedding of text.
func (e *SharedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	svc, err := e.service()
	if err != nil {
		return nil, err
	}
	vec, err := svc.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return normalizeVector(vec), nil
}

// EmbedBatch returns unit-length embeddings in input order.
func (e *SharedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	svc, err := e.service()
	if err != nil {
		return nil, err
	}
	vecs, err := svc.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for i := range vecs {
		vecs[i] = normalizeVector(vecs[i])
	}
	return vecs, nil
}

// Dimensions returns the vector size, or 0 if the service cannot be built.
func (e *SharedEmbedder) Dimensions() int {
	svc, err := e.service()
	if err != nil {
		return 0
	}
	return svc.Dimensions()
}

// ModelName returns the underlying model name.
func (e *SharedEmbedder) ModelName() string {
	svc, err := e.service()
	if err != nil {
		return ""
	}
	return svc.ModelName()
}

// Ping checks the underlying service.
func (e *SharedEmbedder) Ping(ctx context.Context) error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return svc.Ping(ctx)
}

// Close releases the underlying service if it was built. It waits for a
// construction already in progress; afterwards an unbuilt embedder stays
// unavailable.
func (e *SharedEmbedder) Close() error {
	e.once.Do(func() { e.err = domain.ErrEmbeddingUnavailable })
	if e.svc == nil {
		return nil
	}
	return e.svc.Close()
}

// normalizeVector returns v scaled to unit length. A zero vector is returned
// unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func TestNewEmbeddingService(t *testing.T) {
	s := NewEmbeddingService(0)
	assert.Equal(t, domain.DefaultDimension, s.Dimensions())
	assert.Equal(t, "hashing-v1", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestEmbed_DeterministicUnitVectors(t *testing.T) {
	s := NewEmbeddingService(64)
	ctx := context.Background()

	a, err := s.Embed(ctx, "How do I reset my password?")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "How do I reset my password?")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

func TestEmbed_SimilarTextIsCloser(t *testing.T) {
	s := NewEmbeddingService(256)
	ctx := context.Background()

	query, _ := s.Embed(ctx, "reset my campus password")
	near, _ := s.Embed(ctx, "To reset your campus password visit the portal")
	far, _ := s.Embed(ctx, "Parking permits are sold at the kiosk")

	assert.Less(t, distance(query, near), distance(query, far))
}

func TestEmbed_EmptyText(t *testing.T) {
	s := NewEmbeddingService(8)
	v, err := s.Embed(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestEmbedBatch(t *testing.T) {
	s := NewEmbeddingService(16)
	ctx := context.Background()

	vs, err := s.EmbedBatch(ctx, []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vs, 2)

	one, _ := s.Embed(ctx, "one")
	assert.Equal(t, one, vs[0])

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.EmbedBatch(cancelled, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

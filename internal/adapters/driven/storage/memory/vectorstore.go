package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/index/flat"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
type VectorStore struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{collections: make(map[string]*Collection)}
}

// HasCollection reports whether the named collection exists.
func (s *VectorStore) HasCollection(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[name]
	return ok, nil
}

// CreateCollection defines a new collection.
func (s *VectorStore) CreateCollection(_ context.Context, spec domain.CollectionSpec) (driven.Collection, error) {
	if spec.Name == "" || spec.Dimension <= 0 || !spec.Metric.IsValid() {
		return nil, fmt.Errorf("%w: collection spec %+v", domain.ErrInvalidInput, spec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[spec.Name]; ok {
		return nil, fmt.Errorf("collection %s: %w", spec.Name, domain.ErrAlreadyExists)
	}
	c := &Collection{spec: spec, rows: make(map[string]domain.IndexEntry)}
	s.collections[spec.Name] = c
	return c, nil
}

// OpenCollection returns the handle for an existing collection.
func (s *VectorStore) OpenCollection(_ context.Context, name string) (driven.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	return c, nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}

// Collection is an in-memory collection.
type Collection struct {
	spec domain.CollectionSpec

	mu       sync.RWMutex
	rows     map[string]domain.IndexEntry
	index    *flat.Index
	snapshot map[string]domain.IndexEntry
}

var _ driven.Collection = (*Collection)(nil)

// Spec returns the collection's schema.
func (c *Collection) Spec() domain.CollectionSpec {
	return c.spec
}

// BulkInsert adds all entries or none.
func (c *Collection) BulkInsert(_ context.Context, batch *domain.EntryBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := batch.Validate(c.spec.Dimension); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fp := range batch.Fingerprints {
		if _, ok := c.rows[fp]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateFingerprint, fp)
		}
	}
	for i := 0; i < batch.Len(); i++ {
		e := batch.Entry(i)
		e.Vector = append([]float32(nil), e.Vector...)
		e.Text = domain.Truncate(e.Text, domain.MaxTextLength)
		e.Title = domain.Truncate(e.Title, domain.MaxTitleLength)
		e.Source = domain.Truncate(e.Source, domain.MaxSourceLength)
		c.rows[e.Fingerprint] = e
	}
	return nil
}

// Delete removes one entry. Missing keys are ignored.
func (c *Collection) Delete(_ context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, fingerprint)
	return nil
}

// ListFingerprints returns every stored fingerprint.
func (c *Collection) ListFingerprints(_ context.Context) (map[string]struct{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]struct{}, len(c.rows))
	for fp := range c.rows {
		out[fp] = struct{}{}
	}
	return out, nil
}

// Count returns the number of stored entries.
func (c *Collection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows), nil
}

// Load snapshots the rows into a flat index.
func (c *Collection) Load(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.rows))
	for fp := range c.rows {
		ids = append(ids, fp)
	}
	sort.Strings(ids)

	vectors := make([][]float32, len(ids))
	snapshot := make(map[string]domain.IndexEntry, len(ids))
	for i, fp := range ids {
		vectors[i] = c.rows[fp].Vector
		snapshot[fp] = c.rows[fp]
	}

	index := flat.New(c.spec.Metric)
	if err := index.Build(ids, vectors); err != nil {
		return err
	}
	c.index = index
	c.snapshot = snapshot
	return nil
}

// Loaded reports whether Load has been called.
func (c *Collection) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index != nil
}

// Search queries the loaded snapshot.
func (c *Collection) Search(_ context.Context, vector []float32, k int) ([]domain.SearchHit, error) {
	c.mu.RLock()
	index, snapshot := c.index, c.snapshot
	c.mu.RUnlock()

	if index == nil {
		return nil, nil
	}
	if len(vector) != c.spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %d",
			domain.ErrDimensionMismatch, len(vector), c.spec.Dimension)
	}

	results, err := index.Query(vector, k)
	if err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, 0, len(results))
	for _, r := range results {
		e := snapshot[r.ID]
		hits = append(hits, domain.SearchHit{
			Fingerprint: r.ID,
			Raw:         r.Raw,
			Text:        &e.Text,
			Title:       optional(e.Title),
			Source:      optional(e.Source),
		})
	}
	return hits, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

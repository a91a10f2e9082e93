package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/index/flat"
)

var _ driven.VectorStore = (*Store)(nil)

// HasCollection reports whether the named collection exists.
func (s *Store) HasCollection(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	return n > 0, nil
}

// CreateCollection defines a new collection.
func (s *Store) CreateCollection(ctx context.Context, spec domain.CollectionSpec) (driven.Collection, error) {
	if spec.Name == "" || spec.Dimension <= 0 || !spec.Metric.IsValid() {
		return nil, fmt.Errorf("%w: collection spec %+v", domain.ErrInvalidInput, spec)
	}

	exists, err := s.HasCollection(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("collection %s: %w", spec.Name, domain.ErrAlreadyExists)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimension, metric) VALUES (?, ?, ?)",
		spec.Name, spec.Dimension, spec.Metric.String())
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := newCollection(s, spec)
	s.collections[spec.Name] = c
	return c, nil
}

// OpenCollection returns the cached handle for an existing collection.
func (s *Store) OpenCollection(ctx context.Context, name string) (driven.Collection, error) {
	s.mu.Lock()
	if c, ok := s.collections[name]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	var (
		spec   = domain.CollectionSpec{Name: name}
		metric string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension, metric FROM collections WHERE name = ?", name,
	).Scan(&spec.Dimension, &metric)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening collection: %w", err)
	}
	if spec.Metric, err = domain.ParseMetric(metric); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c := newCollection(s, spec)
	s.collections[name] = c
	return c, nil
}

// collection implements driven.Collection over the passages table.
type collection struct {
	store *Store
	spec  domain.CollectionSpec

	mu       sync.RWMutex
	loaded   bool
	index    *flat.Index
	payloads map[string]payload
}

// payload holds the nullable metadata of a loaded row.
type payload struct {
	text, title, source *string
}

var _ driven.Collection = (*collection)(nil)

func newCollection(s *Store, spec domain.CollectionSpec) *collection {
	return &collection{store: s, spec: spec}
}

func (c *collection) Spec() domain.CollectionSpec {
	return c.spec
}

// BulkInsert inserts the batch in one transaction.
func (c *collection) BulkInsert(ctx context.Context, batch *domain.EntryBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := batch.Validate(c.spec.Dimension); err != nil {
		return err
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (collection, fingerprint, vector, text, title, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < batch.Len(); i++ {
		e := batch.Entry(i)
		_, err := stmt.ExecContext(ctx, c.spec.Name, e.Fingerprint, float32SliceToBytes(e.Vector),
			domain.Truncate(e.Text, domain.MaxTextLength),
			nullString(domain.Truncate(e.Title, domain.MaxTitleLength)),
			nullString(domain.Truncate(e.Source, domain.MaxSourceLength)))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateFingerprint, e.Fingerprint)
			}
			return fmt.Errorf("inserting passage %s: %w", e.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing insert: %w", err)
	}
	return nil
}

// Delete removes one entry. Missing keys are ignored.
func (c *collection) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.store.db.ExecContext(ctx,
		"DELETE FROM passages WHERE collection = ? AND fingerprint = ?", c.spec.Name, fingerprint)
	if err != nil {
		return fmt.Errorf("deleting passage %s: %w", fingerprint, err)
	}
	return nil
}

// ListFingerprints returns every stored fingerprint.
func (c *collection) ListFingerprints(ctx context.Context) (map[string]struct{}, error) {
	rows, err := c.store.db.QueryContext(ctx,
		"SELECT fingerprint FROM passages WHERE collection = ?", c.spec.Name)
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scanning fingerprint: %w", err)
		}
		out[fp] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fingerprints: %w", err)
	}
	return out, nil
}

// Count returns the number of stored entries.
func (c *collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM passages WHERE collection = ?", c.spec.Name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// Load rebuilds the in-memory index from the table.
func (c *collection) Load(ctx context.Context) error {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT fingerprint, vector, text, title, source
		FROM passages WHERE collection = ?
		ORDER BY fingerprint
	`, c.spec.Name)
	if err != nil {
		return fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var (
		ids      []string
		vectors  [][]float32
		payloads = make(map[string]payload)
	)
	for rows.Next() {
		var (
			fp                  string
			blob                []byte
			text, title, source sql.NullString
		)
		if err := rows.Scan(&fp, &blob, &text, &title, &source); err != nil {
			return fmt.Errorf("scanning passage: %w", err)
		}
		ids = append(ids, fp)
		vectors = append(vectors, bytesToFloat32Slice(blob))
		payloads[fp] = payload{
			text:   nullableString(text),
			title:  nullableString(title),
			source: nullableString(source),
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating passages: %w", err)
	}

	index := flat.New(c.spec.Metric)
	if err := index.Build(ids, vectors); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	c.mu.Lock()
	c.index = index
	c.payloads = payloads
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Loaded reports whether Load has been called.
func (c *collection) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Search queries the loaded snapshot.
func (c *collection) Search(_ context.Context, vector []float32, k int) ([]domain.SearchHit, error) {
	c.mu.RLock()
	index, payloads := c.index, c.payloads
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
		p := payloads[r.ID]
		hits = append(hits, domain.SearchHit{
			Fingerprint: r.ID,
			Raw:         r.Raw,
			Text:        p.text,
			Title:       p.title,
			Source:      p.source,
		})
	}
	return hits, nil
}

// ==================== Helper Functions ====================

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

// nullString stores empty metadata as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

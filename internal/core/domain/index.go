package domain

import "fmt"

// DefaultDimension is the vector size of the default embedding model.
const DefaultDimension = 384

// IndexEntry is a persisted passage keyed by its fingerprint.
// Entries are never mutated in place: a content change is a delete of the
// old fingerprint plus an insert of the new one.
type IndexEntry struct {
	Fingerprint string
	Vector      []float32
	Text        string
	Title       string
	Source      string
}

// EntryBatch holds entries as five parallel slices for a single bulk insert.
type EntryBatch struct {
	Fingerprints []string
	Vectors      [][]float32
	Texts        []string
	Titles       []string
	Sources      []string
}

// NewEntryBatch creates a batch with room for n entries.
func NewEntryBatch(n int) *EntryBatch {
	return &EntryBatch{
		Fingerprints: make([]string, 0, n),
		Vectors:      make([][]float32, 0, n),
		Texts:        make([]string, 0, n),
		Titles:       make([]string, 0, n),
		Sources:      make([]string, 0, n),
	}
}

// Append adds a passage and its vector to the batch.
func (b *EntryBatch) Append(p Passage, vector []float32) {
	b.Fingerprints = append(b.Fingerprints, p.Fingerprint)
	b.Vectors = append(b.Vectors, vector)
	b.Texts = append(b.Texts, p.Text)
	b.Titles = append(b.Titles, p.Title)
	b.Sources = append(b.Sources, p.Source)
}

// Len returns the number of entries in the batch.
func (b *EntryBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Fingerprints)
}

// Entry returns the i-th entry.
func (b *EntryBatch) Entry(i int) IndexEntry {
	return IndexEntry{
		Fingerprint: b.Fingerprints[i],
		Vector:      b.Vectors[i],
		Text:        b.Texts[i],
		Title:       b.Titles[i],
		Source:      b.Sources[i],
	}
}

// Validate checks the parallel slices line up, every vector has the given
// dimension, and no fingerprint repeats.
func (b *EntryBatch) Validate(dimension int) error {
	n := len(b.Fingerprints)
	if len(b.Vectors) != n || len(b.Texts) != n || len(b.Titles) != n || len(b.Sources) != n {
		return fmt.Errorf("%w: batch slices have different lengths", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, n)
	for i, fp := range b.Fingerprints {
		if !IsFingerprint(fp) {
			return fmt.Errorf("%w: malformed fingerprint %q", ErrInvalidInput, fp)
		}
		if _, dup := seen[fp]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateFingerprint, fp)
		}
		seen[fp] = struct{}{}
		if len(b.Vectors[i]) != dimension {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(b.Vectors[i]), dimension)
		}
	}
	return nil
}

// CollectionSpec describes a collection's schema.
type CollectionSpec struct {
	// Name is the collection slug, see CollectionName.
	Name string

	// Dimension is the fixed vector size.
	Dimension int

	// Metric is the distance or similarity used by the index.
	Metric Metric
}

// SearchHit is a raw nearest-neighbour result.
// Optional fields are nil when the stored row lacks them.
type SearchHit struct {
	Fingerprint string

	// Raw is the distance (L2) or similarity (IP) reported by the index.
	Raw float64

	Text   *string
	Title  *string
	Source *string
}

// RetrievedPassage is a scored passage returned by a query.
type RetrievedPassage struct {
	Fingerprint string  `json:"fingerprint"`
	Text        string  `json:"text"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	Score       float64 `json:"score"`
}

// Resolve converts a hit into a passage, defaulting absent fields to
// "" / "Untitled" / "Unknown".
func (h SearchHit) Resolve(score float64) RetrievedPassage {
	p := RetrievedPassage{
		Fingerprint: h.Fingerprint,
		Title:       DefaultTitle,
		Source:      DefaultSource,
		Score:       score,
	}
	if h.Text != nil {
		p.Text = *h.Text
	}
	if h.Title != nil {
		p.Title = *h.Title
	}
	if h.Source != nil {
		p.Source = *h.Source
	}
	return p
}

package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Deterministic(t *testing.T) {
	text := "Reset your campus password from the self-service portal."

	first := Fingerprint(text)
	second := Fingerprint(text)

	assert.Equal(t, first, second)
	assert.Len(t, first, FingerprintLength)
	assert.True(t, IsFingerprint(first))
}

func TestFingerprint_KnownValue(t *testing.T) {
	// md5("hello")
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", Fingerprint("hello"))
}

func TestFingerprint_DifferentText(t *testing.T) {
	assert.NotEqual(t, Fingerprint("alpha"), Fingerprint("beta"))
}

func TestFingerprint_TruncatesBeforeHashing(t *testing.T) {
	prefix := strings.Repeat("a", MaxTextLength)

	assert.Equal(t, Fingerprint(prefix+"tail one"), Fingerprint(prefix+"tail two"))
	assert.Equal(t, Fingerprint(prefix), Fingerprint(prefix+"x"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than limit", "abc", 5, "abc"},
		{"exact limit", "abcde", 5, "abcde"},
		{"longer than limit", "abcdef", 3, "abc"},
		{"multibyte runes", "héllo wörld", 4, "héll"},
		{"zero", "abc", 0, ""},
		{"negative", "abc", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}

func TestIsFingerprint(t *testing.T) {
	assert.True(t, IsFingerprint("5d41402abc4b2a76b9719d911017c592"))
	assert.False(t, IsFingerprint("5d41402abc4b2a76b9719d911017c59"))
	assert.False(t, IsFingerprint("zz41402abc4b2a76b9719d911017c592"))
	assert.False(t, IsFingerprint(""))
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.csusb.edu/its", "httpswwwcsusbeduits"},
		{"https://example.com/a-b_c/", "httpsexamplecomab_c"},
		{"https://docs.example.org:8080/v2?x=1", "httpsdocsexampleorg8080v2x1"},
		{"https://例え.jp/ページ", "https例えjpページ"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectionName(tt.in))
		})
	}
}

func TestEntryBatch_AppendAndValidate(t *testing.T) {
	batch := NewEntryBatch(2)
	p1 := Passage{Text: "one", Title: "T1", Source: "https://s/1", Fingerprint: Fingerprint("one")}
	p2 := Passage{Text: "two", Title: "T2", Source: "https://s/2", Fingerprint: Fingerprint("two")}

	batch.Append(p1, []float32{1, 0})
	batch.Append(p2, []float32{0, 1})

	require.Equal(t, 2, batch.Len())
	assert.NoError(t, batch.Validate(2))

	entry := batch.Entry(1)
	assert.Equal(t, p2.Fingerprint, entry.Fingerprint)
	assert.Equal(t, "two", entry.Text)
	assert.Equal(t, "T2", entry.Title)
	assert.Equal(t, "https://s/2", entry.Source)
}

func TestEntryBatch_ValidateErrors(t *testing.T) {
	p := Passage{Text: "one", Fingerprint: Fingerprint("one")}

	t.Run("duplicate fingerprint", func(t *testing.T) {
		batch := NewEntryBatch(2)
		batch.Append(p, []float32{1})
		batch.Append(p, []float32{1})
		assert.ErrorIs(t, batch.Validate(1), ErrDuplicateFingerprint)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		batch := NewEntryBatch(1)
		batch.Append(p, []float32{1, 2, 3})
		assert.ErrorIs(t, batch.Validate(2), ErrDimensionMismatch)
	})

	t.Run("malformed fingerprint", func(t *testing.T) {
		batch := NewEntryBatch(1)
		batch.Append(Passage{Text: "x", Fingerprint: "nope"}, []float32{1})
		assert.ErrorIs(t, batch.Validate(1), ErrInvalidInput)
	})

	t.Run("nil batch has zero length", func(t *testing.T) {
		var batch *EntryBatch
		assert.Equal(t, 0, batch.Len())
	})
}

func TestSearchHit_Resolve(t *testing.T) {
	text, title, source := "body", "Title", "https://site/page"

	full := SearchHit{Fingerprint: "f", Text: &text, Title: &title, Source: &source}.Resolve(0.9)
	assert.Equal(t, RetrievedPassage{Fingerprint: "f", Text: "body", Title: "Title", Source: "https://site/page", Score: 0.9}, full)

	empty := SearchHit{Fingerprint: "g"}.Resolve(0.8)
	assert.Equal(t, "", empty.Text)
	assert.Equal(t, DefaultTitle, empty.Title)
	assert.Equal(t, DefaultSource, empty.Source)
}

func TestMetric_Normalize(t *testing.T) {
	assert.Equal(t, 1.0, MetricL2.Normalize(0))
	assert.InDelta(t, 0.0, MetricL2.Normalize(MaxL2Distance), 1e-12)
	assert.InDelta(t, 0.5, MetricL2.Normalize(MaxL2Distance/2), 1e-12)
	assert.Equal(t, 0.0, MetricL2.Normalize(2))
	assert.Equal(t, 1.0, MetricL2.Normalize(-0.1))

	assert.Equal(t, 0.75, MetricIP.Normalize(0.75))
	assert.Equal(t, 1.0, MetricIP.Normalize(1.2))
	assert.Equal(t, 0.0, MetricIP.Normalize(-0.3))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("l2")
	require.NoError(t, err)
	assert.Equal(t, MetricL2, m)

	m, err = ParseMetric("IP")
	require.NoError(t, err)
	assert.Equal(t, MetricIP, m)
	assert.False(t, m.IsDistance())

	_, err = ParseMetric("cosine")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnswerMessages(t *testing.T) {
	assert.Contains(t, GreetingMessage("https://x.org"), "powered by https://x.org")
	assert.Contains(t, InsufficientInformationMessage("https://x.org"), "only answer questions related to https://x.org")
	assert.Equal(t, "\n\nSource: [Line one Line two](https://x.org/p)", SourceAttribution("Line one\nLine two", "https://x.org/p"))

	assert.True(t, (&Answer{Kind: AnswerGenerated}).Answered())
	assert.False(t, (&Answer{Kind: AnswerInsufficient}).Answered())
	var nilAnswer *Answer
	assert.False(t, nilAnswer.Answered())
}

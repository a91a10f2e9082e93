// Package chunker provides a recursive character text splitter.
//
// Text is split on the first separator that occurs in it ("\n\n", then
// "\n", then " ", then between characters). Pieces shorter than the chunk
// size are merged back into windows of at most chunk size runes that
// overlap by up to overlap runes. Pieces that are still too long are split
// again with the next separator.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/logger"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Processor splits document content into overlapping passages.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator list.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) > 0 {
			p.separators = seps
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into passages.
// Input passages are ignored; this processor creates new ones from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Passage) ([]domain.Passage, error) {
	if doc.Content == "" {
		return nil, nil
	}

	texts := p.Split(doc.Content)
	passages := make([]domain.Passage, 0, len(texts))
	for i, text := range texts {
		passages = append(passages, domain.Passage{
			Text:     text,
			Title:    doc.Title,
			Source:   doc.URL,
			Position: i,
		})
	}
	return passages, nil
}

// Split returns the chunks of text in order.
func (p *Processor) Split(text string) []string {
	return p.split(text, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	// Pick the first separator present in the text.
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < p.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, p.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, strings.TrimSpace(piece))
		} else {
			final = append(final, p.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, p.merge(good)...)
	}
	return final
}

// merge joins small pieces into windows no longer than chunkSize, carrying
// up to overlap runes of trailing pieces into the next window.
func (p *Processor) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > p.chunkSize && len(current) > 0 {
			if total > p.chunkSize {
				logger.Warn("chunk of %d runes exceeds chunk size %d", total, p.chunkSize)
			}
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				out = append(out, chunk)
			}
			// Drop leading pieces until what remains fits the overlap and
			// leaves room for the incoming piece.
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		out = append(out, chunk)
	}
	return out
}

// splitKeepingSeparator splits text on sep and attaches each separator to the
// start of the piece that follows it. Empty pieces are dropped. An empty
// separator splits into runes.
func splitKeepingSeparator(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts = make([]string, 0, len(raw))
	for i, s := range raw {
		if i > 0 {
			s = sep + s
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

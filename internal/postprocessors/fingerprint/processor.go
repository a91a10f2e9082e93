// Package fingerprint assigns content fingerprints to passages.
package fingerprint

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// Processor truncates passage text to the storable length and sets the
// fingerprint of the truncated text. It implements the PostProcessor interface.
type Processor struct {
	maxLength int
}

// New creates a fingerprint processor that truncates to domain.MaxTextLength.
func New() *Processor {
	return &Processor{maxLength: domain.MaxTextLength}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "fingerprint"
}

// Process fingerprints every passage. Passages left empty are dropped.
func (p *Processor) Process(_ context.Context, doc *domain.Document, passages []domain.Passage) ([]domain.Passage, error) {
	out := passages[:0]
	for _, passage := range passages {
		passage.Text = domain.Truncate(passage.Text, p.maxLength)
		if passage.Text == "" {
			continue
		}
		if passage.Title == "" {
			passage.Title = doc.Title
		}
		if passage.Source == "" {
			passage.Source = doc.URL
		}
		passage.Title = domain.Truncate(passage.Title, domain.MaxTitleLength)
		passage.Source = domain.Truncate(passage.Source, domain.MaxSourceLength)
		passage.Fingerprint = domain.Fingerprint(passage.Text)
		out = append(out, passage)
	}
	return out, nil
}

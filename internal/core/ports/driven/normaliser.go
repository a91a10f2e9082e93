package driven

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// Normaliser turns raw markup into a cleaned document.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise extracts the title and the readable text of a page.
	// Chunking is handled by the PostProcessor pipeline.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

package driven

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// PostProcessor processes document content to produce passages.
// PostProcessors are chained in a pipeline (chunking, fingerprinting).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns passages.
	// If the processor creates passages (chunker), it receives nil and returns new ones.
	// If the processor modifies passages (fingerprint), it receives and returns them.
	Process(ctx context.Context, doc *domain.Document, passages []domain.Passage) ([]domain.Passage, error)
}

// PostProcessorPipeline chains PostProcessors over a whole crawl.
type PostProcessorPipeline interface {
	// Process runs one document through all processors in order.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Passage, error)

	// ProcessCorpus runs every document through the pipeline and removes
	// passages whose text or fingerprint already appeared earlier in the batch.
	ProcessCorpus(ctx context.Context, docs []domain.Document) ([]domain.Passage, error)
}

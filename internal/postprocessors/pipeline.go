// Package postprocessors provides document content processing implementations.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/logger"
)

// Pipeline chains multiple PostProcessors and runs them in order.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all processors in order.
// The first processor receives nil passages and should create them.
// Subsequent processors receive and may modify the passages.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Passage, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	var passages []domain.Passage

	for _, processor := range p.processors {
		var err error
		passages, err = processor.Process(ctx, doc, passages)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return passages, nil
}

// ProcessCorpus runs every document through the pipeline and concatenates the
// passages in document order. A passage whose text already appeared earlier
// in the batch is dropped, keeping the first occurrence. A passage whose
// fingerprint collides with an earlier passage of different text is dropped
// with a warning, since only one of them can be stored.
func (p *Pipeline) ProcessCorpus(ctx context.Context, docs []domain.Document) ([]domain.Passage, error) {
	var (
		out          []domain.Passage
		seenText     = make(map[string]struct{})
		seenPrint    = make(map[string]struct{})
		textDups     int
		collisionDup int
	)

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		passages, err := p.Process(ctx, &docs[i])
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", docs[i].URL, err)
		}

		for _, passage := range passages {
			if _, ok := seenText[passage.Text]; ok {
				textDups++
				continue
			}
			seenText[passage.Text] = struct{}{}

			if passage.Fingerprint != "" {
				if _, ok := seenPrint[passage.Fingerprint]; ok {
					collisionDup++
					logger.Warn("dropping passage from %s: fingerprint %s already used by different text",
						passage.Source, passage.Fingerprint)
					continue
				}
				seenPrint[passage.Fingerprint] = struct{}{}
			}

			out = append(out, passage)
		}
	}

	logger.Debug("processed %d documents into %d passages (%d duplicate texts, %d fingerprint collisions)",
		len(docs), len(out), textDups, collisionDup)
	return out, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

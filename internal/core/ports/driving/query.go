package driving

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// QueryService answers questions from the indexed corpus.
type QueryService interface {
	// Answer returns a reply for the question. Expected conditions (greetings,
	// no qualifying passages, rate limits) are reported through Answer.Kind;
	// only storage and embedding failures are errors.
	Answer(ctx context.Context, question string) (*domain.Answer, error)

	// Retrieve returns the passages that pass the relevance threshold,
	// best first, without generating an answer.
	Retrieve(ctx context.Context, question string) ([]domain.RetrievedPassage, error)
}

package driven

import "github.com/custodia-labs/sitesage/internal/core/domain"

// AIConfigValidator checks provider settings by constructing the service and
// pinging it. Unconfigured settings validate as nil.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}

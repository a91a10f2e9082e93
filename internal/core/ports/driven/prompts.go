package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return the built-in
	// default or an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerSystem holds the rules the model must follow when answering
	// from retrieved context. It has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser wraps the question and context. It expects two %s
	// placeholders: the question, then the context.
	PromptAnswerUser = "answer_user"
)

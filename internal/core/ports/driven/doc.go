// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Crawler: Fetches pages reachable from the seed URL
//   - Normaliser: Cleans raw markup into text
//   - PostProcessorPipeline: Chunks, deduplicates and fingerprints
//   - VectorStore / Collection: Persisted vector index
//   - EmbeddingService: Generates vector embeddings
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Text generation. Without it, only retrieval is available.
//   - PromptStore: User-editable prompts. Without it, built-in prompts are used.
//   - StatsStore: Usage statistics and feedback.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven

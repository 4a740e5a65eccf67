package driven

import "context"

// EmbeddingModel generates vector embeddings from text.
// This is an optional port - when nil, retrieval falls back to keyword scoring.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI-compatible servers (text-embedding-3-small, llama.cpp, LM Studio)
type EmbeddingModel interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the model is reachable and loaded.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

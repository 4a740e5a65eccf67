package domain

// ScoredChunk is a chunk with its retrieval score. Only exists at query time.
type ScoredChunk struct {
	Chunk

	// Score is strategy dependent: a length-normalised match count for
	// keyword retrieval, cosine similarity for semantic retrieval and the
	// weighted sum of both for hybrid retrieval.
	Score float64 `json:"score"`
}

// AugmentedPrompt is the result of composing retrieved context into a prompt.
type AugmentedPrompt struct {
	// Prompt is the text to send as the final user message.
	Prompt string `json:"prompt"`

	// Context lists the chunks that were spliced into Prompt.
	// Empty when nothing was retrieved, in which case Prompt is unchanged.
	Context []ScoredChunk `json:"context"`
}

// StoreStats summarises the contents of the document store.
type StoreStats struct {
	Documents         int  `json:"documents"`
	Chunks            int  `json:"chunks"`
	EmbeddedChunks    int  `json:"embeddedChunks"`
	EmbeddingsEnabled bool `json:"embeddingsEnabled"`
}

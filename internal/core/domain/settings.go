package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// ChunkingStrategy selects how documents are split into chunks.
type ChunkingStrategy string

// Available chunking strategies.
const (
	// ChunkingFixed slides a fixed-size character window over the content.
	ChunkingFixed ChunkingStrategy = "fixed"

	// ChunkingParagraph accumulates whole paragraphs up to the chunk size.
	ChunkingParagraph ChunkingStrategy = "paragraph"

	// ChunkingSemantic accumulates sentences, keeping paragraph breaks.
	ChunkingSemantic ChunkingStrategy = "semantic"
)

// IsValid returns true if the chunking strategy is recognised.
func (s ChunkingStrategy) IsValid() bool {
	switch s {
	case ChunkingFixed, ChunkingParagraph, ChunkingSemantic:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ChunkingStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s ChunkingStrategy) Description() string {
	switch s {
	case ChunkingFixed:
		return "Fixed (character window with overlap)"
	case ChunkingParagraph:
		return "Paragraph (groups paragraphs up to chunk size)"
	case ChunkingSemantic:
		return "Semantic (groups sentences up to chunk size)"
	default:
		return unknownDescription
	}
}

// RetrievalStrategy selects how chunks are scored against a query.
type RetrievalStrategy string

// Available retrieval strategies.
const (
	// RetrievalKeyword scores by length-normalised term occurrences.
	RetrievalKeyword RetrievalStrategy = "keyword"

	// RetrievalSemantic scores by embedding cosine similarity.
	RetrievalSemantic RetrievalStrategy = "semantic"

	// RetrievalHybrid sums weighted keyword and semantic scores.
	RetrievalHybrid RetrievalStrategy = "hybrid"
)

// IsValid returns true if the retrieval strategy is recognised.
func (s RetrievalStrategy) IsValid() bool {
	switch s {
	case RetrievalKeyword, RetrievalSemantic, RetrievalHybrid:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if this strategy needs an embedding model.
func (s RetrievalStrategy) RequiresEmbedding() bool {
	return s == RetrievalSemantic || s == RetrievalHybrid
}

// String returns the string representation.
func (s RetrievalStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s RetrievalStrategy) Description() string {
	switch s {
	case RetrievalKeyword:
		return "Keyword (term matching)"
	case RetrievalSemantic:
		return "Semantic (embedding similarity)"
	case RetrievalHybrid:
		return "Hybrid (keyword + semantic)"
	default:
		return unknownDescription
	}
}

// RetrievalSettings is the process-wide chunking and retrieval configuration.
type RetrievalSettings struct {
	// ChunkingStrategy selects the chunker.
	ChunkingStrategy ChunkingStrategy `json:"chunkingStrategy"`

	// ChunkSize is the target chunk length in characters.
	ChunkSize int `json:"chunkSize"`

	// ChunkOverlap is the overlap between consecutive chunks, < ChunkSize.
	ChunkOverlap int `json:"chunkOverlap"`

	// MinChunkLength drops candidate chunks shorter than this. 0 disables the floor.
	MinChunkLength int `json:"minChunkLength"`

	// RetrievalStrategy selects the scoring method.
	RetrievalStrategy RetrievalStrategy `json:"retrievalStrategy"`

	// TopK is the maximum number of chunks returned.
	TopK int `json:"topK"`

	// SimilarityThreshold drops chunks scoring below it. The unit depends on
	// the strategy; for hybrid it applies to the unnormalised fused score.
	SimilarityThreshold float64 `json:"similarityThreshold"`

	// KeywordWeight and SemanticWeight scale the hybrid components.
	// They are not required to sum to 1.
	KeywordWeight  float64 `json:"keywordWeight"`
	SemanticWeight float64 `json:"semanticWeight"`
}

// Validate checks the settings for internal consistency.
func (s RetrievalSettings) Validate() error {
	if !s.ChunkingStrategy.IsValid() {
		return fmt.Errorf("%w: unknown chunking strategy %q", ErrInvalidInput, s.ChunkingStrategy)
	}
	if !s.RetrievalStrategy.IsValid() {
		return fmt.Errorf("%w: unknown retrieval strategy %q", ErrInvalidInput, s.RetrievalStrategy)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", ErrInvalidInput)
	}
	if s.MinChunkLength < 0 {
		return fmt.Errorf("%w: minimum chunk length must not be negative", ErrInvalidInput)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive", ErrInvalidInput)
	}
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold must be in [0, 1]", ErrInvalidInput)
	}
	if s.KeywordWeight < 0 || s.SemanticWeight < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidInput)
	}
	return nil
}

// ChunkingChanged reports whether other differs in any field that affects
// how chunks are produced. Such a change invalidates every stored chunk.
func (s RetrievalSettings) ChunkingChanged(other RetrievalSettings) bool {
	return s.ChunkingStrategy != other.ChunkingStrategy ||
		s.ChunkSize != other.ChunkSize ||
		s.ChunkOverlap != other.ChunkOverlap ||
		s.MinChunkLength != other.MinChunkLength
}

// DefaultRetrievalSettings returns the settings used when nothing is configured.
func DefaultRetrievalSettings() RetrievalSettings {
	return RetrievalSettings{
		ChunkingStrategy:    ChunkingParagraph,
		ChunkSize:           500,
		ChunkOverlap:        50,
		MinChunkLength:      50,
		RetrievalStrategy:   RetrievalHybrid,
		TopK:                3,
		SimilarityThreshold: 0.1,
		KeywordWeight:       0.3,
		SemanticWeight:      0.7,
	}
}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderNone disables embeddings; retrieval falls back to keyword.
	AIProviderNone AIProvider = ""

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is any OpenAI-compatible embeddings endpoint.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	if p == AIProviderNone {
		return "none"
	}
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderNone:
		return "None (keyword retrieval only)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key, optional for local servers.
	APIKey string
}

// IsConfigured returns true if an embedding provider is selected.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.IsValid()
}

// InferenceSettings configures the OpenAI-compatible chat completion server.
type InferenceSettings struct {
	// ServerURL is the base URL; requests go to {ServerURL}/v1/chat/completions.
	ServerURL string

	// Model is the model name sent with each request.
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string

	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	MaxTokens        int
	Stop             []string

	// Timeout bounds a single request attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// SystemPrompt opens every conversation. Empty uses the chat_system
	// prompt template.
	SystemPrompt string
}

// DefaultInferenceSettings returns settings for a local llama.cpp style server.
func DefaultInferenceSettings() InferenceSettings {
	return InferenceSettings{
		ServerURL:   "http://localhost:8080",
		Model:       "local-model",
		Temperature: 0.7,
		TopP:        0.95,
		MaxTokens:   1024,
		Timeout:     120 * time.Second,
		MaxRetries:  2,
	}
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Retrieval holds chunking and retrieval settings.
	Retrieval RetrievalSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Inference holds chat completion server settings.
	Inference InferenceSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings are left unconfigured until the user selects a provider.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Retrieval: DefaultRetrievalSettings(),
		Embedding: EmbeddingSettings{},
		Inference: DefaultInferenceSettings(),
	}
}

// AllChunkingStrategies returns all chunking strategies.
func AllChunkingStrategies() []ChunkingStrategy {
	return []ChunkingStrategy{ChunkingFixed, ChunkingParagraph, ChunkingSemantic}
}

// AllRetrievalStrategies returns all retrieval strategies.
func AllRetrievalStrategies() []RetrievalStrategy {
	return []RetrievalStrategy{RetrievalKeyword, RetrievalSemantic, RetrievalHybrid}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

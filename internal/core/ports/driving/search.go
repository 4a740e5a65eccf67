package driving

import (
	"context"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// SearchService retrieves stored chunks relevant to a query.
type SearchService interface {
	// Search scores the stored chunks with the configured strategy and
	// returns at most TopK of them, best first.
	Search(ctx context.Context, query string) ([]domain.ScoredChunk, error)
}

// PromptService composes retrieved context into prompts.
type PromptService interface {
	// AugmentPromptWithRAG returns the prompt with retrieved context spliced in.
	// With nothing retrieved the prompt is returned unchanged.
	AugmentPromptWithRAG(ctx context.Context, prompt string) (*domain.AugmentedPrompt, error)
}

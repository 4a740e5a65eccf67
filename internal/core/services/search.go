package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// Ensure the services implement their interfaces.
var (
	_ driving.SearchService   = (*SearchService)(nil)
	_ driving.PromptService   = (*PromptAugmenter)(nil)
	_ driven.PromptStoreAware = (*PromptAugmenter)(nil)
)

// SearchService runs the retrieval engine over the document store's chunks.
type SearchService struct {
	docs   driving.DocumentService
	engine *RetrievalEngine
}

// NewSearchService creates a new search service.
func NewSearchService(docs driving.DocumentService, engine *RetrievalEngine) *SearchService {
	return &SearchService{docs: docs, engine: engine}
}

// Search retrieves the chunks most relevant to query.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	logger.Debug("Query: %q", query)
	return s.engine.Retrieve(ctx, query, s.docs.Chunks(ctx), s.docs.Settings())
}

// defaultAugmentTemplate is used when no prompt store is set or the stored
// template is unusable. It takes the context block, then the question.
const defaultAugmentTemplate = `Answer the question using the context below. If the context does not contain the answer, say so.

Context:
%s

Question: %s`

// PromptAugmenter splices retrieved chunks into a prompt.
type PromptAugmenter struct {
	search  driving.SearchService
	prompts driven.PromptStore
}

// NewPromptAugmenter creates a new prompt augmenter.
func NewPromptAugmenter(search driving.SearchService) *PromptAugmenter {
	return &PromptAugmenter{search: search}
}

// SetPromptStore sets where the augmentation template is loaded from.
func (a *PromptAugmenter) SetPromptStore(store driven.PromptStore) {
	a.prompts = store
}

// AugmentPromptWithRAG retrieves context for prompt and wraps it in the
// augmentation template. Retrieval failures are logged and the prompt is
// returned unchanged; augmentation never blocks a chat.
func (a *PromptAugmenter) AugmentPromptWithRAG(ctx context.Context, prompt string) (*domain.AugmentedPrompt, error) {
	unchanged := &domain.AugmentedPrompt{Prompt: prompt, Context: []domain.ScoredChunk{}}

	results, err := a.search.Search(ctx, prompt)
	if err != nil {
		logger.Warn("Retrieval failed, sending prompt without context: %v", err)
		return unchanged, nil
	}
	if len(results) == 0 {
		return unchanged, nil
	}

	augmented := fmt.Sprintf(a.template(), FormatContext(results), prompt)
	logger.Debug("Augmented prompt with %d chunks", len(results))
	return &domain.AugmentedPrompt{Prompt: augmented, Context: results}, nil
}

func (a *PromptAugmenter) template() string {
	if a.prompts == nil {
		return defaultAugmentTemplate
	}
	tmpl, err := a.prompts.Load(driven.PromptAugment)
	if err != nil {
		logger.Warn("Loading augment prompt: %v", err)
		return defaultAugmentTemplate
	}
	if strings.Count(tmpl, "%s") != 2 || strings.Count(tmpl, "%") != 2 {
		logger.Warn("Augment prompt must contain exactly two %%s placeholders; using the default")
		return defaultAugmentTemplate
	}
	return tmpl
}

// FormatContext renders chunks as numbered passages labelled with their
// source document.
func FormatContext(chunks []domain.ScoredChunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s", i+1, c.DocumentName, strings.TrimSpace(c.Content))
	}
	return sb.String()
}

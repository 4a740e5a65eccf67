package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
)

func TestSearchService_UsesStoreSettings(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, nil)
	_, err := store.AddDocument(ctx, textFile("harbour.txt", harbourText))
	require.NoError(t, err)

	s := store.Settings()
	s.RetrievalStrategy = domain.RetrievalKeyword
	s.ChunkSize = 150
	s.ChunkOverlap = 0
	s.SimilarityThreshold = 0
	s.TopK = 1
	require.NoError(t, store.UpdateSettings(ctx, s))

	search := NewSearchService(store, NewRetrievalEngine(nil))
	results, err := search.Search(ctx, "bakery oven")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "bakery")
	assert.Equal(t, "harbour.txt", results[0].DocumentName)
}

func TestFormatContext(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{DocumentName: "a.txt", Content: "  first  "}},
		{Chunk: domain.Chunk{DocumentName: "b.md", Content: "second"}},
	}
	assert.Equal(t, "[1] a.txt\nfirst\n\n[2] b.md\nsecond", FormatContext(chunks))
	assert.Empty(t, FormatContext(nil))
}

func TestAugmentPromptWithRAG(t *testing.T) {
	ctx := context.Background()
	hit := []domain.ScoredChunk{{Chunk: domain.Chunk{DocumentName: "sky.txt", Content: "The sky is blue."}, Score: 6.25}}

	t.Run("nothing retrieved returns prompt unchanged", func(t *testing.T) {
		a := NewPromptAugmenter(&mockSearchService{})
		got, err := a.AugmentPromptWithRAG(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Prompt)
		assert.NotNil(t, got.Context)
		assert.Empty(t, got.Context)
	})

	t.Run("retrieval error returns prompt unchanged", func(t *testing.T) {
		a := NewPromptAugmenter(&mockSearchService{err: errors.New("boom")})
		got, err := a.AugmentPromptWithRAG(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Prompt)
		assert.Empty(t, got.Context)
	})

	t.Run("default template", func(t *testing.T) {
		a := NewPromptAugmenter(&mockSearchService{results: hit})
		got, err := a.AugmentPromptWithRAG(ctx, "what colour is the sky?")
		require.NoError(t, err)
		assert.Contains(t, got.Prompt, "[1] sky.txt\nThe sky is blue.")
		assert.True(t, strings.HasSuffix(got.Prompt, "Question: what colour is the sky?"))
		assert.Equal(t, hit, got.Context)
	})

	t.Run("custom template", func(t *testing.T) {
		a := NewPromptAugmenter(&mockSearchService{results: hit})
		a.SetPromptStore(&mockPromptStore{prompts: map[string]string{
			driven.PromptAugment: "CTX<%s> Q<%s>",
		}})
		got, err := a.AugmentPromptWithRAG(ctx, "why?")
		require.NoError(t, err)
		assert.Equal(t, "CTX<[1] sky.txt\nThe sky is blue.> Q<why?>", got.Prompt)
	})

	t.Run("malformed template falls back", func(t *testing.T) {
		for _, tmpl := range []string{"only %s", "%s %s %d", "none"} {
			a := NewPromptAugmenter(&mockSearchService{results: hit})
			a.SetPromptStore(&mockPromptStore{prompts: map[string]string{driven.PromptAugment: tmpl}})
			got, err := a.AugmentPromptWithRAG(ctx, "why?")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got.Prompt, "Answer the question"), tmpl)
		}
	})

	t.Run("missing template falls back", func(t *testing.T) {
		a := NewPromptAugmenter(&mockSearchService{results: hit})
		a.SetPromptStore(&mockPromptStore{})
		got, err := a.AugmentPromptWithRAG(ctx, "why?")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got.Prompt, "Answer the question"))
	})
}

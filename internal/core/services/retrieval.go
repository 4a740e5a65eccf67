package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// minTermLength is the shortest query term that takes part in keyword scoring.
const minTermLength = 3

// RetrievalEngine scores chunks against a query.
type RetrievalEngine struct {
	embedder *EmbeddingProvider
}

// NewRetrievalEngine creates an engine. embedder may be nil, in which case
// every strategy degrades to keyword scoring.
func NewRetrievalEngine(embedder *EmbeddingProvider) *RetrievalEngine {
	return &RetrievalEngine{embedder: embedder}
}

// Retrieve scores chunks with the configured strategy, sorts them best
// first, drops those below the similarity threshold and keeps at most TopK.
// It never returns nil.
func (e *RetrievalEngine) Retrieve(
	ctx context.Context, query string, chunks []domain.Chunk, settings domain.RetrievalSettings,
) ([]domain.ScoredChunk, error) {
	logger.Section("Retrieval")

	if len(chunks) == 0 || strings.TrimSpace(query) == "" {
		logger.Debug("Nothing to retrieve (chunks=%d)", len(chunks))
		return []domain.ScoredChunk{}, nil
	}

	strategy := settings.RetrievalStrategy
	var queryVec []float32
	if strategy.RequiresEmbedding() {
		vec, err := e.embedQuery(ctx, query)
		if err != nil {
			logger.Warn("%s retrieval unavailable (%v), using keyword", strategy, err)
			strategy = domain.RetrievalKeyword
		} else {
			queryVec = vec
		}
	}
	logger.Debug("Strategy: %s, chunks: %d", strategy, len(chunks))

	var candidates []domain.ScoredChunk
	switch strategy {
	case domain.RetrievalSemantic:
		candidates = semanticCandidates(queryVec, chunks)
	case domain.RetrievalHybrid:
		candidates = hybridCandidates(query, queryVec, chunks, settings.KeywordWeight, settings.SemanticWeight)
	default:
		candidates = keywordCandidates(query, chunks)
	}
	logger.Debug("Candidates: %d", len(candidates))

	results := rank(candidates, settings.SimilarityThreshold, settings.TopK)
	logger.Info("Retrieved %d chunks", len(results))
	return results, nil
}

func (e *RetrievalEngine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if !e.embedder.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return e.embedder.EmbedQuery(ctx, query)
}

// rank sorts by descending score, applies the threshold and truncates to topK.
// Ties keep chunk order.
func rank(candidates []domain.ScoredChunk, threshold float64, topK int) []domain.ScoredChunk {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	results := make([]domain.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < threshold {
			// Sorted, so everything after is below too.
			break
		}
		results = append(results, c)
		if topK > 0 && len(results) == topK {
			break
		}
	}
	return results
}

// queryTerms lower-cases the query and keeps words of at least minTermLength
// characters. Punctuation separates words.
func queryTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minTermLength {
			terms = append(terms, w)
		}
	}
	return terms
}

// KeywordScore sums the occurrences of every term in the lower-cased
// content and divides by length/100, so a match in a short chunk weighs
// more than the same match in a long one.
func KeywordScore(terms []string, content string) float64 {
	length := utf8.RuneCountInString(content)
	if length == 0 || len(terms) == 0 {
		return 0
	}

	lower := strings.ToLower(content)
	count := 0
	for _, term := range terms {
		count += strings.Count(lower, term)
	}
	return float64(count) / (float64(length) / 100)
}

// keywordCandidates returns chunks with a positive keyword score.
func keywordCandidates(query string, chunks []domain.Chunk) []domain.ScoredChunk {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	var out []domain.ScoredChunk
	for _, c := range chunks {
		if score := KeywordScore(terms, c.Content); score > 0 {
			out = append(out, domain.ScoredChunk{Chunk: c, Score: score})
		}
	}
	return out
}

// semanticCandidates scores every chunk that carries an embedding.
func semanticCandidates(queryVec []float32, chunks []domain.Chunk) []domain.ScoredChunk {
	var out []domain.ScoredChunk
	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		out = append(out, domain.ScoredChunk{Chunk: c, Score: CosineSimilarity(queryVec, c.Embedding)})
	}
	return out
}

// hybridCandidates is the union of the weighted keyword and semantic
// candidate sets, summing the two scores for chunks present in both.
func hybridCandidates(
	query string, queryVec []float32, chunks []domain.Chunk, keywordWeight, semanticWeight float64,
) []domain.ScoredChunk {
	terms := queryTerms(query)

	var out []domain.ScoredChunk
	for _, c := range chunks {
		keyword := KeywordScore(terms, c.Content)
		inKeyword := keyword > 0
		inSemantic := c.HasEmbedding()
		if !inKeyword && !inSemantic {
			continue
		}

		var score float64
		if inKeyword {
			score += keyword * keywordWeight
		}
		if inSemantic {
			score += CosineSimilarity(queryVec, c.Embedding) * semanticWeight
		}
		out = append(out, domain.ScoredChunk{Chunk: c, Score: score})
	}
	return out
}

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either norm is zero
// or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// embedBatchSize bounds the number of texts sent per embedding call.
const embedBatchSize = 10

// EmbeddingProvider wraps an optional embedding model. Until LoadModel
// succeeds the provider is unavailable and callers fall back to keyword
// retrieval.
type EmbeddingProvider struct {
	mu      sync.Mutex
	model   driven.EmbeddingModel
	loaded  bool
	loadErr error
}

// NewEmbeddingProvider creates a provider. model may be nil.
func NewEmbeddingProvider(model driven.EmbeddingModel) *EmbeddingProvider {
	return &EmbeddingProvider{model: model}
}

// LoadModel checks that the model is reachable. It is idempotent once it
// succeeds; a failed load may be retried. The returned error wraps
// domain.ErrEmbeddingUnavailable.
func (p *EmbeddingProvider) LoadModel(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}
	if p.model == nil {
		p.loadErr = fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbeddingUnavailable)
		return p.loadErr
	}

	logger.Debug("Loading embedding model %s", p.model.ModelName())
	if err := p.model.Ping(ctx); err != nil {
		p.loadErr = fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		logger.Warn("Embedding model %s unavailable, retrieval falls back to keyword: %v", p.model.ModelName(), err)
		return p.loadErr
	}

	p.loaded = true
	p.loadErr = nil
	logger.Info("Embedding model %s loaded", p.model.ModelName())
	return nil
}

// Available reports whether LoadModel has succeeded.
func (p *EmbeddingProvider) Available() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// ModelName returns the model name, or "" when none is configured.
func (p *EmbeddingProvider) ModelName() string {
	if p == nil || p.model == nil {
		return ""
	}
	return p.model.ModelName()
}

// Embed returns one vector per text, in input order. Texts are sent in
// batches of embedBatchSize. A failing batch aborts the whole call.
func (p *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !p.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		batch, err := p.model.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %v", domain.ErrEmbedding, start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: batch %d-%d returned %d vectors", domain.ErrEmbedding, start, end, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	logger.Debug("Embedded %d texts with %s", len(texts), p.model.ModelName())
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (p *EmbeddingProvider) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := p.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Close releases the underlying model.
func (p *EmbeddingProvider) Close() error {
	if p == nil || p.model == nil {
		return nil
	}
	return p.model.Close()
}

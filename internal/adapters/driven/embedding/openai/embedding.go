// Package openai provides an embedding model adapter for OpenAI-compatible
// embeddings endpoints (OpenAI, llama.cpp, LM Studio, vLLM).
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
)

// Ensure EmbeddingModel implements the interface.
var _ driven.EmbeddingModel = (*EmbeddingModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the embedding model.
type Config struct {
	// APIKey is required for api.openai.com; local servers accept any value.
	APIKey string

	// BaseURL is the API base URL including /v1.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// RateLimit throttles requests (default: ratelimit.RemoteDefaults).
	RateLimit *ratelimit.Config
}

// EmbeddingModel generates embeddings through the go-openai client.
type EmbeddingModel struct {
	client  *openai.Client
	http    *http.Client
	limiter *ratelimit.Limiter
	model   string
}

// New creates an embedding model. An API key is only required when talking
// to the default OpenAI endpoint.
func New(cfg Config) (*EmbeddingModel, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" && cfg.BaseURL == DefaultBaseURL {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	limits := ratelimit.RemoteDefaults
	if cfg.RateLimit != nil {
		limits = *cfg.RateLimit
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = httpClient

	return &EmbeddingModel{
		client:  openai.NewClientWithConfig(clientCfg),
		http:    httpClient,
		limiter: ratelimit.New(limits),
		model:   cfg.Model,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (m *EmbeddingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch sends all texts in one request and returns vectors in input order.
func (m *EmbeddingModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := m.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			m.limiter.Throttled("")
		}
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	// Servers may return data out of order; Index is authoritative.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai embedding: index %d out of range", d.Index)
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("openai embedding: no vector for input %d", i)
		}
	}
	return embeddings, nil
}

// ModelName returns the name of the embedding model being used.
func (m *EmbeddingModel) ModelName() string {
	return m.model
}

// Ping lists models, which validates the endpoint and the key without
// running inference.
func (m *EmbeddingModel) Ping(ctx context.Context) error {
	if _, err := m.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (m *EmbeddingModel) Close() error {
	m.http.CloseIdleConnections()
	return nil
}

// Package ai builds the embedding and inference adapters from settings.
package ai

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	ollamaembed "github.com/custodia-labs/sercha-chat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-chat/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/inference/openai"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the adapters built from AppSettings.
type InitResult struct {
	EmbeddingModel driven.EmbeddingModel // nil when no provider is configured.
	Inference      driven.InferenceClient
	Warnings       []string // Non-fatal issues that caused fallback.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingModel != nil {
		_ = r.EmbeddingModel.Close()
	}
	if r.Inference != nil {
		_ = r.Inference.Close()
	}
}

// Init builds both adapters. A misconfigured embedding provider is not
// fatal: it is reported in Warnings and retrieval falls back to keyword.
// Nothing is pinged; the EmbeddingProvider does that when it loads.
func Init(settings *domain.AppSettings) *InitResult {
	result := &InitResult{Inference: CreateInferenceClient(settings.Inference)}

	model, err := CreateEmbeddingModel(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("embeddings disabled: %v. Run 'sercha-chat settings set embedding.provider ...' to fix", err))
		return result
	}
	result.EmbeddingModel = model
	return result
}

// CreateEmbeddingModel creates the embedding model for the configured
// provider. Returns nil if no provider is configured.
func CreateEmbeddingModel(settings *domain.EmbeddingSettings) (driven.EmbeddingModel, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		limits := RateLimitFor(settings.BaseURL)
		return ollamaembed.New(ollamaembed.Config{
			BaseURL:   settings.BaseURL,
			Model:     settings.Model,
			RateLimit: &limits,
		}), nil

	case domain.AIProviderOpenAI:
		baseURL := settings.BaseURL
		limits := ratelimit.RemoteDefaults
		if baseURL != "" {
			limits = RateLimitFor(baseURL)
		}
		model, err := openaiembed.New(openaiembed.Config{
			APIKey:    settings.APIKey,
			BaseURL:   baseURL,
			Model:     settings.Model,
			RateLimit: &limits,
		})
		if err != nil {
			return nil, err
		}
		return model, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateInferenceClient creates the chat completion client.
func CreateInferenceClient(settings domain.InferenceSettings) driven.InferenceClient {
	limits := RateLimitFor(settings.ServerURL)
	return openai.New(openai.Config{
		ServerURL:  settings.ServerURL,
		Model:      settings.Model,
		APIKey:     settings.APIKey,
		Timeout:    settings.Timeout,
		MaxRetries: settings.MaxRetries,
		RateLimit:  &limits,
	})
}

// ValidateEmbeddingConfig creates the embedding model and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	model, err := CreateEmbeddingModel(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if model == nil {
		return nil
	}
	defer model.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := model.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateInferenceConfig creates the inference client and pings it.
func ValidateInferenceConfig(ctx context.Context, settings domain.InferenceSettings) error {
	client := CreateInferenceClient(settings)
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return client.Ping(ctx)
}

// RateLimitFor picks the local budget for loopback hosts and the remote
// budget for everything else.
func RateLimitFor(rawURL string) ratelimit.Config {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ratelimit.LocalDefaults
	}
	host := u.Hostname()
	if host == "localhost" {
		return ratelimit.LocalDefaults
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return ratelimit.LocalDefaults
	}
	return ratelimit.RemoteDefaults
}

package driving

import (
	"context"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// SettingsService manages application settings stored in the config file.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetRetrieval validates and stores retrieval settings. When a document
	// service is attached, chunks are rebuilt if a chunking field changed.
	SetRetrieval(ctx context.Context, settings domain.RetrievalSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, baseURL, apiKey string) error

	// SetInferenceServer configures the chat completion server.
	SetInferenceServer(serverURL, model, apiKey string) error

	// SetValue parses and stores a single setting by its config key.
	SetValue(ctx context.Context, key, raw string) error

	// Keys lists the config keys SetValue accepts.
	Keys() []string

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig(ctx context.Context) error

	// ValidateInferenceConfig pings the configured inference server.
	ValidateInferenceConfig(ctx context.Context) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}

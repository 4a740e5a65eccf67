package driven

import (
	"context"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// AIConfigValidator checks that configured model servers are reachable
// before the settings are relied upon.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider. An unconfigured
	// provider is valid.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error

	// ValidateInference pings the chat completion server.
	ValidateInference(ctx context.Context, settings domain.InferenceSettings) error
}

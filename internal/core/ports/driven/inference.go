package driven

import (
	"context"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// InferenceClient talks to an OpenAI-compatible chat completion server.
type InferenceClient interface {
	// StreamChat sends messages with stream enabled. onDelta is called for
	// each content delta in order; returning an error from it aborts the
	// stream. The full reply text is returned on success.
	StreamChat(
		ctx context.Context,
		messages []domain.ChatMessage,
		opts ChatOptions,
		onDelta func(string) error,
	) (string, error)

	// ModelName returns the model requests are sent for.
	ModelName() string

	// Ping checks that the server is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatOptions carries the sampling parameters of a completion request.
// Zero values are omitted from the request.
type ChatOptions struct {
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	MaxTokens        int
	Stop             []string
}

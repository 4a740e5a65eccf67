package driving

import (
	"context"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// ChatService runs a conversation against the inference server.
type ChatService interface {
	// Send processes tool calls, augments the message with retrieved context
	// and streams the reply through onDelta. onDelta may be nil.
	Send(ctx context.Context, message string, onDelta func(string) error) (*domain.ChatReply, error)

	// History returns the conversation so far, including the system prompt.
	History() []domain.ChatMessage

	// Reset clears the conversation.
	Reset()
}

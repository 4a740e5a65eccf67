package driving

import (
	"context"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// ToolInfo describes a registered tool and the names that resolve to it.
type ToolInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
}

// AgentService resolves inline {{tool(...)}} calls in chat messages.
type AgentService interface {
	// Parse returns every tool call in message, in order of appearance.
	Parse(message string) []domain.ToolCall

	// Process executes every tool call and appends each result after its
	// call text. It never fails as a whole; per-call failures are rendered inline.
	Process(ctx context.Context, message string) (string, []domain.ToolResult)

	// Tools lists the registered tools.
	Tools() []ToolInfo
}

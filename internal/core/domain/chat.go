package domain

// Chat roles accepted by OpenAI-compatible servers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatReply is the outcome of sending one user message.
type ChatReply struct {
	// Sent is the final user message content after tool dispatch and augmentation.
	Sent string `json:"sent"`

	// Reply is the assistant's full response text.
	Reply string `json:"reply"`

	// Context lists the chunks used to augment the prompt.
	Context []ScoredChunk `json:"context,omitempty"`

	// Tools lists the tool calls that were executed.
	Tools []ToolResult `json:"tools,omitempty"`
}

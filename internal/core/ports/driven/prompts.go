package driven

// PromptStore provides access to user-editable prompt templates.
type PromptStore interface {
	// Load returns the prompt template for the given name. Implementations
	// fall back to a built-in default when the user has not customised it.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAugment wraps retrieved context around the user's question.
	// The template expects two %s placeholders: the context block, then the question.
	PromptAugment = "augment"

	// PromptChatSystem opens every conversation. No placeholders.
	PromptChatSystem = "chat_system"
)

// PromptStoreAware is implemented by services whose prompts can be customised
// after construction.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}

// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The RAG pipeline lives here: EmbeddingProvider, RetrievalEngine,
// DocumentStore and PromptAugmenter, plus the AgentDispatcher for inline
// tool calls and the ChatService that ties them to the inference server.
package services

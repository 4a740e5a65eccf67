package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// Ensure ChatService implements the interfaces.
var (
	_ driving.ChatService     = (*ChatService)(nil)
	_ driven.PromptStoreAware = (*ChatService)(nil)
)

const defaultSystemPrompt = "You are a helpful assistant."

// ChatService runs a single conversation: tool calls are resolved, the
// message is augmented with retrieved context and the reply is streamed.
type ChatService struct {
	client   driven.InferenceClient
	agent    driving.AgentService
	prompter driving.PromptService
	prompts  driven.PromptStore
	settings domain.InferenceSettings

	mu      sync.Mutex
	history []domain.ChatMessage
}

// NewChatService creates a chat service. agent and prompter are optional.
func NewChatService(
	client driven.InferenceClient,
	agent driving.AgentService,
	prompter driving.PromptService,
	settings domain.InferenceSettings,
) *ChatService {
	return &ChatService{
		client:   client,
		agent:    agent,
		prompter: prompter,
		settings: settings,
	}
}

// SetPromptStore sets where the system prompt is loaded from when the
// settings do not override it.
func (c *ChatService) SetPromptStore(store driven.PromptStore) {
	c.prompts = store
}

// Send runs one turn. The conversation history only grows when the server
// replies successfully.
func (c *ChatService) Send(ctx context.Context, message string, onDelta func(string) error) (*domain.ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}
	if c.client == nil {
		return nil, fmt.Errorf("%w: no inference server configured", domain.ErrInferenceUnavailable)
	}

	reply := &domain.ChatReply{}
	text := message

	if c.agent != nil {
		text, reply.Tools = c.agent.Process(ctx, text)
	}

	if c.prompter != nil {
		augmented, err := c.prompter.AugmentPromptWithRAG(ctx, text)
		if err != nil {
			logger.Warn("Augmentation failed: %v", err)
		} else {
			text = augmented.Prompt
			reply.Context = augmented.Context
		}
	}
	reply.Sent = text

	c.mu.Lock()
	messages := make([]domain.ChatMessage, 0, len(c.history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: c.systemPrompt()})
	messages = append(messages, c.history...)
	c.mu.Unlock()
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: text})

	logger.Debug("Sending %d messages to %s", len(messages), c.client.ModelName())
	answer, err := c.client.StreamChat(ctx, messages, c.options(), onDelta)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	reply.Reply = answer

	c.mu.Lock()
	c.history = append(c.history,
		domain.ChatMessage{Role: domain.RoleUser, Content: text},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: answer},
	)
	c.mu.Unlock()

	return reply, nil
}

func (c *ChatService) options() driven.ChatOptions {
	return driven.ChatOptions{
		Temperature:      c.settings.Temperature,
		TopP:             c.settings.TopP,
		FrequencyPenalty: c.settings.FrequencyPenalty,
		PresencePenalty:  c.settings.PresencePenalty,
		MaxTokens:        c.settings.MaxTokens,
		Stop:             c.settings.Stop,
	}
}

func (c *ChatService) systemPrompt() string {
	if c.settings.SystemPrompt != "" {
		return c.settings.SystemPrompt
	}
	if c.prompts != nil {
		if p, err := c.prompts.Load(driven.PromptChatSystem); err == nil && p != "" {
			return p
		}
	}
	return defaultSystemPrompt
}

// History returns the system prompt followed by every completed turn.
func (c *ChatService) History() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []domain.ChatMessage{{Role: domain.RoleSystem, Content: c.systemPrompt()}}
	return append(out, slices.Clone(c.history)...)
}

// Reset clears the conversation.
func (c *ChatService) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// Package tui provides an interactive terminal user interface for chatting
// with a local model over a document collection.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces the TUI uses.
type Ports struct {
	// Chat runs conversations against the inference server.
	Chat driving.ChatService

	// Search retrieves passages without chatting.
	Search driving.SearchService

	// Documents lists, shows and deletes stored documents. Optional.
	Documents driving.DocumentService

	// Settings edits retrieval settings. Optional.
	Settings driving.SettingsService

	// Model is the inference model name shown in the chat status bar.
	Model string
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

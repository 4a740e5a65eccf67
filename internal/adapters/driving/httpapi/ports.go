package httpapi

import (
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// Ports aggregates the driving ports the API serves.
// Routes whose port is nil answer 501.
type Ports struct {
	// Documents is required.
	Documents driving.DocumentService
	// Search is required.
	Search driving.SearchService

	Prompt driving.PromptService
	Agent  driving.AgentService
	Chat   driving.ChatService

	// Types rejects uploads no extractor can read before they reach
	// Documents. Without it the store reports unsupported types itself.
	Types FileTypes
}

// FileTypes reports which MIME types can be ingested.
type FileTypes interface {
	Supports(mimeType string) bool
	SupportedMIMETypes() []string
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

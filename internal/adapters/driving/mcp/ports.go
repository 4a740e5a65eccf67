package mcp

import (
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls into.
type Ports struct {
	// Search retrieves chunks. Required.
	Search driving.SearchService

	// Prompt backs the augment_prompt tool.
	Prompt driving.PromptService

	// Agent backs the run_tools tool.
	Agent driving.AgentService

	// Documents backs list_documents and the document resources.
	Documents driving.DocumentService
}

// Validate ensures all required ports are set.
// Optional ports only decide which tools are registered.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

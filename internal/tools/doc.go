// Package tools provides the handlers the AgentDispatcher runs for inline
// {{name(...)}} calls in chat messages.
//
// Handlers:
//   - search: retrieves chunks from the local document store
//   - calculate: evaluates an arithmetic expression
//   - time: reports the current time in an IANA zone
package tools

import (
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// Defaults returns every built-in handler. search may be nil, in which case
// the search tool is left out and calls to it render as unknown tools.
func Defaults(search driving.SearchService) []driven.ToolHandler {
	handlers := []driven.ToolHandler{NewCalculator(), NewClock()}
	if search != nil {
		handlers = append(handlers, NewSearch(search))
	}
	return handlers
}

package driven

import "context"

// ToolHandler executes one kind of inline tool call.
type ToolHandler interface {
	// Name is the canonical tool name.
	Name() string

	// Description is shown when listing tools.
	Description() string

	// Execute runs the tool with the call's string parameters.
	Execute(ctx context.Context, params map[string]string) (string, error)
}

package domain

// ToolCall is one inline {{name(key="value", ...)}} directive found in chat text.
type ToolCall struct {
	// Name is the tool name as written, before alias resolution.
	Name string `json:"name"`

	// Params holds the flat string parameters.
	Params map[string]string `json:"params"`

	// Raw is the exact matched substring, including the braces.
	Raw string `json:"raw"`
}

// ToolResult is the outcome of executing a single ToolCall.
type ToolResult struct {
	Call ToolCall `json:"call"`

	// Output is the handler's output. Empty when Err is set.
	Output string `json:"output,omitempty"`

	// Err is the handler or lookup failure, if any.
	Err error `json:"-"`
}

// Failed reports whether the call produced an error.
func (r ToolResult) Failed() bool {
	return r.Err != nil
}

package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFileType indicates no extractor handles a MIME type.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrExtraction indicates a parser failed on a supported file.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingUnavailable indicates no embedding model is loaded.
	// Not a hard error: retrieval falls back to keyword scoring.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

	// ErrEmbedding indicates an embedding call failed after the model loaded.
	ErrEmbedding = errors.New("embedding failed")

	// ErrToolExecution indicates a tool handler returned an error.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrUnknownTool indicates a tool name has no registered handler.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrStorage indicates persisted state could not be read or written.
	ErrStorage = errors.New("storage error")

	// ErrInferenceUnavailable indicates the chat completion server could not be reached.
	ErrInferenceUnavailable = errors.New("inference server unavailable")
)

// UnsupportedFileTypeError carries the MIME type that was refused.
type UnsupportedFileTypeError struct {
	MIMEType string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.MIMEType)
}

// Unwrap allows errors.Is(err, ErrUnsupportedFileType).
func (e *UnsupportedFileTypeError) Unwrap() error {
	return ErrUnsupportedFileType
}

// ExtractionError wraps a parser failure with the offending file name.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.FileName, e.Err)
}

// Unwrap returns both the sentinel and the cause, so errors.Is matches either.
func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

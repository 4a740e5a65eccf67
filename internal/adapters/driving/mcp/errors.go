// Package mcp exposes retrieval, prompt augmentation and inline tools over
// the Model Context Protocol so AI assistants can use the local document
// store.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// Package httpapi serves the document store, retrieval and chat over a JSON
// HTTP API for browser clients. Chat replies stream as server-sent events.
package httpapi

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("httpapi: document service is required")

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("httpapi: search service is required")

// Package domain defines the core entities for sercha-chat.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: an uploaded file's extracted text and provenance
//   - Chunk: a bounded span of a document, the unit of retrieval
//   - ScoredChunk: a chunk with a retrieval score (never persisted)
//   - RetrievalSettings: chunking and retrieval configuration
//   - ToolCall: an inline {{tool(...)}} directive parsed from chat text
//   - RawFile: opaque bytes plus MIME type, before extraction
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

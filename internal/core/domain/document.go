package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Document is an uploaded file after text extraction.
// Documents are never mutated after creation; delete and re-add to update.
type Document struct {
	// ID is the unique identifier, generated at ingestion time.
	ID string `json:"id"`

	// Name is the original file name.
	Name string `json:"name"`

	// MIMEType is the content type the file was extracted as.
	MIMEType string `json:"mimeType"`

	// ByteSize is the size of the uploaded file in bytes.
	ByteSize int64 `json:"byteSize"`

	// DateAdded is set once when the document is ingested.
	DateAdded time.Time `json:"dateAdded"`

	// Content is the full extracted text. It is dropped from the persisted
	// record, so documents restored from storage have no content.
	Content string `json:"content,omitempty"`

	// Metadata holds derived statistics.
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata holds statistics derived from a document's content.
type DocumentMetadata struct {
	WordCount int `json:"wordCount"`
	CharCount int `json:"charCount"`
}

// NewDocumentMetadata computes word and character counts for content.
func NewDocumentMetadata(content string) DocumentMetadata {
	return DocumentMetadata{
		WordCount: len(strings.Fields(content)),
		CharCount: utf8.RuneCountInString(content),
	}
}

// HasContent reports whether the document still carries its source text.
func (d *Document) HasContent() bool {
	return d.Content != ""
}

// Chunk is a bounded span of text from a document.
type Chunk struct {
	// ID is derived from the owning document and the chunk's ordinal.
	ID string `json:"id"`

	// DocumentID references the owning Document (lookup only).
	DocumentID string `json:"documentId"`

	// DocumentName is a denormalised copy of the document's name.
	DocumentName string `json:"documentName"`

	// Content is the chunk's text span.
	Content string `json:"content"`

	// StartIndex and EndIndex are character offsets into the document
	// content, end exclusive. Informational only.
	StartIndex int `json:"startIndex"`
	EndIndex   int `json:"endIndex"`

	// Embedding is nil until an embedding model has processed the chunk.
	Embedding []float32 `json:"embedding,omitempty"`
}

// HasEmbedding reports whether the chunk has a vector.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ChunkID derives the identifier of a document's ordinal-th chunk. IDs are
// stable for as long as the chunking settings do not change.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, ordinal)
}

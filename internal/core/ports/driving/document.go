package driving

import (
	"context"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// DocumentService owns the document and chunk collections.
// All mutating operations are serialised.
type DocumentService interface {
	// Load restores documents, chunks and retrieval settings from storage.
	Load(ctx context.Context) error

	// AddDocument extracts, chunks, embeds and persists a file.
	// Either all of it is committed or none of it is.
	AddDocument(ctx context.Context, file *domain.RawFile) (*domain.Document, error)

	// DeleteDocument removes a document and its chunks.
	// Returns false if the ID is unknown.
	DeleteDocument(ctx context.Context, documentID string) (bool, error)

	// ReprocessAll discards every chunk and rebuilds them from document content.
	ReprocessAll(ctx context.Context) error

	// UpdateSettings persists new retrieval settings and reprocesses
	// when a chunking field changed.
	UpdateSettings(ctx context.Context, settings domain.RetrievalSettings) error

	// Settings returns the current retrieval settings.
	Settings() domain.RetrievalSettings

	// ListDocuments returns all documents in insertion order.
	ListDocuments(ctx context.Context) []domain.Document

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)

	// Chunks returns a snapshot of every stored chunk.
	Chunks(ctx context.Context) []domain.Chunk

	// Stats summarises the store.
	Stats(ctx context.Context) domain.StoreStats
}

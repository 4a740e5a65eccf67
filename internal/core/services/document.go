package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-chat/internal/chunker"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// Ensure DocumentStore implements the interface.
var _ driving.DocumentService = (*DocumentStore)(nil)

// Fixed storage keys.
const (
	KeyDocuments         = "documents"
	KeyChunks            = "chunks"
	KeyRetrievalSettings = "retrieval_settings"
)

// recordVersion is written into every persisted record.
const recordVersion = 1

type documentsRecord struct {
	Version   int               `json:"version"`
	Documents []domain.Document `json:"documents"`
}

type chunksRecord struct {
	Version int            `json:"version"`
	Chunks  []domain.Chunk `json:"chunks"`
}

type settingsRecord struct {
	Version  int                      `json:"version"`
	Settings domain.RetrievalSettings `json:"settings"`
}

// DocumentStore owns the document and chunk collections and drives
// extraction, chunking and embedding when they change.
//
// Mutations are serialised by opMu and work on copies; the new collections
// are swapped in under mu only after they have been persisted, so readers
// never observe a half-applied change and a failed mutation leaves nothing
// behind.
type DocumentStore struct {
	opMu sync.Mutex

	mu        sync.RWMutex
	documents []domain.Document
	chunks    []domain.Chunk
	settings  domain.RetrievalSettings

	kv        driven.KVStore
	extractor driven.TextExtractor
	embedder  *EmbeddingProvider

	now   func() time.Time
	newID func() string
}

// NewDocumentStore creates a store with default retrieval settings.
// embedder may be nil.
func NewDocumentStore(kv driven.KVStore, extractor driven.TextExtractor, embedder *EmbeddingProvider) *DocumentStore {
	return &DocumentStore{
		kv:        kv,
		extractor: extractor,
		embedder:  embedder,
		settings:  domain.DefaultRetrievalSettings(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Load restores the collections and settings. Missing keys leave the
// defaults in place.
func (s *DocumentStore) Load(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	var docs documentsRecord
	if _, err := s.readRecord(ctx, KeyDocuments, &docs); err != nil {
		return err
	}
	var chunks chunksRecord
	if _, err := s.readRecord(ctx, KeyChunks, &chunks); err != nil {
		return err
	}

	settings := domain.DefaultRetrievalSettings()
	var rec settingsRecord
	found, err := s.readRecord(ctx, KeyRetrievalSettings, &rec)
	if err != nil {
		return err
	}
	if found {
		if err := rec.Settings.Validate(); err != nil {
			logger.Warn("Ignoring stored retrieval settings: %v", err)
		} else {
			settings = rec.Settings
		}
	}

	// Drop orphans left by older versions.
	live := make(map[string]bool, len(docs.Documents))
	for _, d := range docs.Documents {
		live[d.ID] = true
	}
	kept := chunks.Chunks[:0]
	for _, c := range chunks.Chunks {
		if live[c.DocumentID] {
			kept = append(kept, c)
		}
	}

	s.mu.Lock()
	s.documents = docs.Documents
	s.chunks = kept
	s.settings = settings
	s.mu.Unlock()

	logger.Info("Loaded %d documents, %d chunks", len(docs.Documents), len(kept))
	return nil
}

// readRecord decodes key into v. A missing key reports false with no error.
func (s *DocumentStore) readRecord(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: loading %s: %v", domain.ErrStorage, key, err)
	}

	var header struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return false, fmt.Errorf("%w: decoding %s: %v", domain.ErrStorage, key, err)
	}
	if header.Version > recordVersion {
		return false, fmt.Errorf("%w: %s has version %d, newer than supported %d",
			domain.ErrStorage, key, header.Version, recordVersion)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decoding %s: %v", domain.ErrStorage, key, err)
	}
	return true, nil
}

// AddDocument extracts, chunks and embeds file, then persists the new
// collections. Nothing is kept if any step fails.
func (s *DocumentStore) AddDocument(ctx context.Context, file *domain.RawFile) (*domain.Document, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: nil file", domain.ErrInvalidInput)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	logger.Section("Ingest " + file.Name)

	text, err := s.extractor.Extract(ctx, file)
	if err != nil {
		return nil, err
	}

	doc := domain.Document{
		ID:        s.newID(),
		Name:      file.Name,
		MIMEType:  file.MIMEType,
		ByteSize:  file.Size(),
		DateAdded: s.now().UTC(),
		Content:   text,
		Metadata:  domain.NewDocumentMetadata(text),
	}
	logger.Debug("Extracted %d characters (%d words)", doc.Metadata.CharCount, doc.Metadata.WordCount)

	settings := s.Settings()
	chunks, err := s.chunkAndEmbed(ctx, &doc, settings)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	documents := append(slices.Clone(s.documents), doc)
	allChunks := append(slices.Clone(s.chunks), chunks...)
	s.mu.RUnlock()

	if err := s.persist(ctx, documents, allChunks, nil); err != nil {
		return nil, err
	}
	s.commit(documents, allChunks, settings)

	logger.Info("Added %s: %d chunks", doc.Name, len(chunks))
	return &doc, nil
}

// chunkAndEmbed splits doc and, when a model is loaded, embeds the chunks.
func (s *DocumentStore) chunkAndEmbed(
	ctx context.Context, doc *domain.Document, settings domain.RetrievalSettings,
) ([]domain.Chunk, error) {
	chunks, err := chunker.Chunk(doc, settings)
	if err != nil {
		return nil, err
	}
	logger.Debug("%s: %d chunks (%s)", doc.Name, len(chunks), settings.ChunkingStrategy)

	if len(chunks) == 0 || !s.embedder.Available() {
		return chunks, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", doc.Name, err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return chunks, nil
}

// DeleteDocument removes a document and every chunk that references it.
func (s *DocumentStore) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	idx := slices.IndexFunc(s.documents, func(d domain.Document) bool { return d.ID == documentID })
	if idx < 0 {
		s.mu.RUnlock()
		return false, nil
	}
	documents := slices.Delete(slices.Clone(s.documents), idx, idx+1)
	chunks := make([]domain.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		if c.DocumentID != documentID {
			chunks = append(chunks, c)
		}
	}
	settings := s.settings
	s.mu.RUnlock()

	if err := s.persist(ctx, documents, chunks, nil); err != nil {
		return false, err
	}
	s.commit(documents, chunks, settings)

	logger.Info("Deleted document %s", documentID)
	return true, nil
}

// ReprocessAll rebuilds every chunk with the current settings.
func (s *DocumentStore) ReprocessAll(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	settings := s.Settings()
	chunks, err := s.rebuild(ctx, settings)
	if err != nil {
		return err
	}

	s.mu.RLock()
	documents := s.documents
	s.mu.RUnlock()

	if err := s.persist(ctx, documents, chunks, nil); err != nil {
		return err
	}
	s.commit(documents, chunks, settings)
	return nil
}

// rebuild chunks every document from its content. Documents restored from
// storage have no content; their existing chunks are carried over as is.
func (s *DocumentStore) rebuild(ctx context.Context, settings domain.RetrievalSettings) ([]domain.Chunk, error) {
	logger.Section("Reprocess")

	s.mu.RLock()
	documents := s.documents
	previous := s.chunks
	s.mu.RUnlock()

	var chunks []domain.Chunk
	for i := range documents {
		doc := &documents[i]
		if !doc.HasContent() {
			logger.Warn("%s has no stored content; re-add the file to rechunk it", doc.Name)
			for _, c := range previous {
				if c.DocumentID == doc.ID {
					chunks = append(chunks, c)
				}
			}
			continue
		}

		docChunks, err := s.chunkAndEmbed(ctx, doc, settings)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, docChunks...)
	}

	logger.Info("Reprocessed %d documents into %d chunks", len(documents), len(chunks))
	return chunks, nil
}

// UpdateSettings stores new retrieval settings. A change to any chunking
// field rebuilds all chunks before anything is committed.
func (s *DocumentStore) UpdateSettings(ctx context.Context, settings domain.RetrievalSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	current := s.settings
	documents := s.documents
	chunks := s.chunks
	s.mu.RUnlock()

	if current.ChunkingChanged(settings) {
		logger.Info("Chunking settings changed, reprocessing all documents")
		rebuilt, err := s.rebuild(ctx, settings)
		if err != nil {
			return err
		}
		chunks = rebuilt
	}

	if err := s.persist(ctx, documents, chunks, &settings); err != nil {
		return err
	}
	s.commit(documents, chunks, settings)
	return nil
}

// persist writes documents and chunks, and settings when non-nil, in one
// atomic SetMany. Document content is not stored.
func (s *DocumentStore) persist(
	ctx context.Context, documents []domain.Document, chunks []domain.Chunk, settings *domain.RetrievalSettings,
) error {
	stripped := make([]domain.Document, len(documents))
	for i, d := range documents {
		d.Content = ""
		stripped[i] = d
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}

	entries := make(map[string][]byte, 3)
	var err error
	if entries[KeyDocuments], err = json.Marshal(documentsRecord{Version: recordVersion, Documents: stripped}); err != nil {
		return fmt.Errorf("%w: encoding documents: %v", domain.ErrStorage, err)
	}
	if entries[KeyChunks], err = json.Marshal(chunksRecord{Version: recordVersion, Chunks: chunks}); err != nil {
		return fmt.Errorf("%w: encoding chunks: %v", domain.ErrStorage, err)
	}
	if settings != nil {
		if entries[KeyRetrievalSettings], err = json.Marshal(settingsRecord{Version: recordVersion, Settings: *settings}); err != nil {
			return fmt.Errorf("%w: encoding settings: %v", domain.ErrStorage, err)
		}
	}

	if err := s.kv.SetMany(ctx, entries); err != nil {
		logger.Error("Persisting document store failed: %v", err)
		if errors.Is(err, domain.ErrStorage) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *DocumentStore) commit(documents []domain.Document, chunks []domain.Chunk, settings domain.RetrievalSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = documents
	s.chunks = chunks
	s.settings = settings
}

// Settings returns the current retrieval settings.
func (s *DocumentStore) Settings() domain.RetrievalSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// ListDocuments returns all documents in insertion order, without content.
func (s *DocumentStore) ListDocuments(_ context.Context) []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Document, len(s.documents))
	for i, d := range s.documents {
		d.Content = ""
		out[i] = d
	}
	return out
}

// GetDocument retrieves a document by ID, including content when it is
// still held in memory.
func (s *DocumentStore) GetDocument(_ context.Context, documentID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.documents {
		if d.ID == documentID {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Chunks returns a snapshot of every stored chunk.
func (s *DocumentStore) Chunks(_ context.Context) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chunks)
}

// Stats summarises the store.
func (s *DocumentStore) Stats(_ context.Context) domain.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.StoreStats{
		Documents:         len(s.documents),
		Chunks:            len(s.chunks),
		EmbeddingsEnabled: s.embedder.Available(),
	}
	for _, c := range s.chunks {
		if c.HasEmbedding() {
			stats.EmbeddedChunks++
		}
	}
	return stats
}

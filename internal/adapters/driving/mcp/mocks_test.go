package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

type mockSearchService struct {
	results []domain.ScoredChunk
	err     error
	query   string
}

func (m *mockSearchService) Search(_ context.Context, query string) ([]domain.ScoredChunk, error) {
	m.query = query
	return m.results, m.err
}

type mockPromptService struct {
	err error
}

func (m *mockPromptService) AugmentPromptWithRAG(_ context.Context, prompt string) (*domain.AugmentedPrompt, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AugmentedPrompt{
		Prompt:  "Context: tides\n\nQuestion: " + prompt,
		Context: []domain.ScoredChunk{scored("doc-1", "tides.txt", "High tide at six.", 0.8)},
	}, nil
}

type mockAgentService struct{}

func (m *mockAgentService) Parse(_ string) []domain.ToolCall { return nil }

func (m *mockAgentService) Process(_ context.Context, message string) (string, []domain.ToolResult) {
	return message + " [done]", []domain.ToolResult{
		{Call: domain.ToolCall{Name: "calculate"}, Output: "4"},
		{Call: domain.ToolCall{Name: "teleport"}, Err: errors.New("unknown tool: teleport")},
	}
}

func (m *mockAgentService) Tools() []driving.ToolInfo {
	return []driving.ToolInfo{{Name: "calculate"}, {Name: "time"}}
}

// mockDocumentService implements only what the server reads.
type mockDocumentService struct {
	driving.DocumentService
	documents []domain.Document
}

func (m *mockDocumentService) ListDocuments(_ context.Context) []domain.Document {
	return m.documents
}

func (m *mockDocumentService) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.documents {
		if m.documents[i].ID == id {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Stats(_ context.Context) domain.StoreStats {
	return domain.StoreStats{Documents: len(m.documents), Chunks: 3}
}

func scored(docID, name, content string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			ID:           docID + "-c0",
			DocumentID:   docID,
			DocumentName: name,
			Content:      content,
			Embedding:    []float32{0.1, 0.2},
		},
		Score: score,
	}
}

func sampleDocuments() []domain.Document {
	return []domain.Document{{
		ID:        "doc-1",
		Name:      "tides.txt",
		MIMEType:  domain.MIMETypePlainText,
		DateAdded: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Content:   "High tide at six.",
		Metadata:  domain.DocumentMetadata{WordCount: 4, CharCount: 17},
	}}
}

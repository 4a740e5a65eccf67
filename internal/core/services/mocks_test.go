package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingModel implements driven.EmbeddingModel. Vectors come from
// vectorFn, which defaults to topicVector.
type mockEmbeddingModel struct {
	mu         sync.Mutex
	pingErr    error
	batchErr   error
	short      bool
	vectorFn   func(string) []float32
	batchSizes []int
	closed     bool
}

func (m *mockEmbeddingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbeddingModel) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	fn := m.vectorFn
	if fn == nil {
		fn = topicVector
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, fn(t))
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingModel) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingModel) Ping(_ context.Context) error { return m.pingErr }

func (m *mockEmbeddingModel) Close() error {
	m.closed = true
	return nil
}

// topicVector maps text onto three axes: sky, cooking and everything else.
func topicVector(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0, 0, 0.1}
	if strings.Contains(lower, "sky") || strings.Contains(lower, "blue") {
		v[0] = 1
	}
	if strings.Contains(lower, "bread") || strings.Contains(lower, "oven") {
		v[1] = 1
	}
	return v
}

// loadedProvider returns an EmbeddingProvider whose model is already loaded.
func loadedProvider(model *mockEmbeddingModel) *EmbeddingProvider {
	p := NewEmbeddingProvider(model)
	if err := p.LoadModel(context.Background()); err != nil {
		panic(err)
	}
	return p
}

// mockInferenceClient implements driven.InferenceClient by replaying deltas.
type mockInferenceClient struct {
	deltas   []string
	err      error
	received [][]domain.ChatMessage
	opts     []driven.ChatOptions
}

func (m *mockInferenceClient) StreamChat(
	_ context.Context, messages []domain.ChatMessage, opts driven.ChatOptions, onDelta func(string) error,
) (string, error) {
	m.received = append(m.received, append([]domain.ChatMessage(nil), messages...))
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	var sb strings.Builder
	for _, d := range m.deltas {
		if onDelta != nil {
			if err := onDelta(d); err != nil {
				return "", err
			}
		}
		sb.WriteString(d)
	}
	return sb.String(), nil
}

func (m *mockInferenceClient) ModelName() string { return "mock-chat" }

func (m *mockInferenceClient) Ping(_ context.Context) error { return nil }

func (m *mockInferenceClient) Close() error { return nil }

// mockTool implements driven.ToolHandler.
type mockTool struct {
	name   string
	output string
	err    error
	panics bool
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock " + m.name }

func (m *mockTool) Execute(_ context.Context, params map[string]string) (string, error) {
	if m.panics {
		panic("boom")
	}
	if m.err != nil {
		return "", m.err
	}
	if q, ok := params["query"]; ok {
		return m.output + ": " + q, nil
	}
	return m.output, nil
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("prompt not found")
}

func (m *mockPromptStore) Reload() {}

// mockSearchService implements driving.SearchService.
type mockSearchService struct {
	results []domain.ScoredChunk
	err     error
	queries []string
}

func (m *mockSearchService) Search(_ context.Context, query string) ([]domain.ScoredChunk, error) {
	m.queries = append(m.queries, query)
	return m.results, m.err
}

// mockPromptService implements driving.PromptService.
type mockPromptService struct {
	prefix string
	chunks []domain.ScoredChunk
	err    error
}

func (m *mockPromptService) AugmentPromptWithRAG(_ context.Context, prompt string) (*domain.AugmentedPrompt, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AugmentedPrompt{Prompt: m.prefix + prompt, Context: m.chunks}, nil
}

func textFile(name, content string) *domain.RawFile {
	return &domain.RawFile{Name: name, MIMEType: domain.MIMETypePlainText, Content: []byte(content)}
}

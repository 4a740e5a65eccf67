package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// mockDocumentService embeds the interface so only the methods the view
// calls need implementing.
type mockDocumentService struct {
	driving.DocumentService

	docs         []domain.Document
	deleted      []string
	deleteErr    error
	reprocessed  int
	reprocessErr error
}

func (m *mockDocumentService) ListDocuments(context.Context) []domain.Document {
	return m.docs
}

func (m *mockDocumentService) Stats(context.Context) domain.StoreStats {
	return domain.StoreStats{Documents: len(m.docs), Chunks: 7, EmbeddedChunks: 5, EmbeddingsEnabled: true}
}

func (m *mockDocumentService) DeleteDocument(_ context.Context, id string) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	for i, d := range m.docs {
		if d.ID == id {
			m.deleted = append(m.deleted, id)
			m.docs = append(m.docs[:i:i], m.docs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDocumentService) ReprocessAll(context.Context) error {
	m.reprocessed++
	return m.reprocessErr
}

func testDocuments() []domain.Document {
	added := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return []domain.Document{
		{ID: "d1", Name: "tides.txt", MIMEType: "text/plain", DateAdded: added, Metadata: domain.DocumentMetadata{WordCount: 120}},
		{ID: "d2", Name: "harbour.md", MIMEType: "text/markdown", DateAdded: added, Metadata: domain.DocumentMetadata{WordCount: 48}},
	}
}

// run feeds cmd's messages back into the view until none remain.
func run(t *testing.T, v *View, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 10)
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = v.Update(msg)
	}
}

func loadedView(t *testing.T, svc *mockDocumentService) *View {
	t.Helper()
	v := NewView(nil, svc)
	v.SetDimensions(100, 30)
	run(t, v, v.Init())
	return v
}

func press(v *View, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := v.Update(msg)
	return cmd
}

func TestView_Load(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments()})

	assert.Len(t, v.Documents(), 2)
	assert.Equal(t, 7, v.Stats().Chunks)
	out := v.View()
	assert.Contains(t, out, "Documents (2)")
	assert.Contains(t, out, "2 documents, 7 chunks, 5/7 embedded")
	assert.Contains(t, out, "tides.txt")
	assert.Contains(t, out, "120 words")
}

func TestView_Empty(t *testing.T) {
	v := loadedView(t, &mockDocumentService{})
	assert.Contains(t, v.View(), "No documents yet")
}

func TestView_NoService(t *testing.T) {
	v := NewView(nil, nil)
	run(t, v, v.Init())

	assert.ErrorIs(t, v.Err(), ErrNoDocumentService)
	assert.Contains(t, v.View(), "Error: document service not available")
}

func TestView_Navigate(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments()})

	press(v, "j")
	assert.Equal(t, 1, v.SelectedIndex())
	press(v, "j")
	assert.Equal(t, 1, v.SelectedIndex())
	press(v, "k")
	press(v, "k")
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_SelectDocument(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments()})
	press(v, "j")

	cmd := press(v, "enter")
	require.NotNil(t, cmd)

	sel, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "d2", sel.Document.ID)
}

func TestView_Delete(t *testing.T) {
	tests := []struct {
		name        string
		confirm     string
		wantDeleted []string
		wantDocs    int
	}{
		{"confirmed", "y", []string{"d1"}, 1},
		{"cancelled", "n", nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockDocumentService{docs: testDocuments()}
			v := loadedView(t, svc)

			assert.Nil(t, press(v, "d"))
			require.True(t, v.ConfirmingDelete())
			assert.Contains(t, v.View(), "Delete tides.txt and its chunks?")

			run(t, v, press(v, tt.confirm))

			assert.False(t, v.ConfirmingDelete())
			assert.Equal(t, tt.wantDeleted, svc.deleted)
			assert.Len(t, v.Documents(), tt.wantDocs)
		})
	}
}

func TestView_DeleteError(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments(), deleteErr: errors.New("disk full")})

	press(v, "d")
	run(t, v, press(v, "y"))

	assert.EqualError(t, v.Err(), "disk full")
}

func TestView_Reprocess(t *testing.T) {
	svc := &mockDocumentService{docs: testDocuments()}
	v := loadedView(t, svc)

	run(t, v, press(v, "R"))

	assert.Equal(t, 1, svc.reprocessed)
	assert.Contains(t, v.View(), "Chunks rebuilt")
}

func TestView_ReprocessError(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments(), reprocessErr: errors.New("embedding failed")})

	run(t, v, press(v, "R"))

	assert.EqualError(t, v.Err(), "embedding failed")
}

func TestView_Reload(t *testing.T) {
	svc := &mockDocumentService{docs: testDocuments()[:1]}
	v := loadedView(t, svc)
	require.Len(t, v.Documents(), 1)

	svc.docs = testDocuments()
	run(t, v, press(v, "r"))

	assert.Len(t, v.Documents(), 2)
}

func TestView_Esc(t *testing.T) {
	v := loadedView(t, &mockDocumentService{})

	cmd := press(v, "esc")
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

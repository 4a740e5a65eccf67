package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

type mockSearchService struct {
	results []domain.ScoredChunk
	err     error
	queries []string
}

func (m *mockSearchService) Search(_ context.Context, query string) ([]domain.ScoredChunk, error) {
	m.queries = append(m.queries, query)
	return m.results, m.err
}

func testPassages() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c1", DocumentName: "tides.txt", Content: "High tide is at six."}, Score: 0.91},
		{Chunk: domain.Chunk{ID: "c2", DocumentName: "harbour.md", Content: "The harbour opens at dawn."}, Score: 0.42},
	}
}

func newReadyView(svc *mockSearchService) *View {
	var v *View
	if svc == nil {
		v = NewView(nil, nil, nil)
	} else {
		v = NewView(nil, nil, svc)
	}
	v.SetDimensions(100, 40)
	return v
}

func typeText(v *View, text string) {
	for _, r := range text {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func submit(t *testing.T, v *View, query string) {
	t.Helper()
	typeText(v, query)
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	v.Update(cmd())
}

func TestView_Search(t *testing.T) {
	svc := &mockSearchService{results: testPassages()}
	v := newReadyView(svc)

	submit(t, v, "high tide")

	assert.Equal(t, []string{"high tide"}, svc.queries)
	assert.Equal(t, "high tide", v.Query())
	assert.Len(t, v.Results(), 2)
	assert.False(t, v.InputFocused())
	assert.Contains(t, v.View(), "tides.txt")
	assert.Contains(t, v.View(), `2 passages for "high tide"`)
}

func TestView_SearchNoResultsKeepsInputFocus(t *testing.T) {
	v := newReadyView(&mockSearchService{})

	submit(t, v, "nothing")

	assert.Empty(t, v.Results())
	assert.True(t, v.InputFocused())
	assert.Contains(t, v.View(), "No passages")
}

func TestView_SearchErrors(t *testing.T) {
	tests := []struct {
		name string
		svc  *mockSearchService
		want string
	}{
		{"service error", &mockSearchService{err: errors.New("embedding provider unreachable")}, "embedding provider unreachable"},
		{"no service", nil, ErrNoSearchService.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newReadyView(tt.svc)
			submit(t, v, "tide")

			require.Error(t, v.Err())
			assert.Contains(t, v.View(), "Error: "+tt.want)
		})
	}
}

func TestView_BlankQueryIgnored(t *testing.T) {
	svc := &mockSearchService{}
	v := newReadyView(svc)

	typeText(v, "  ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, svc.queries)
}

func TestView_NavigateAndExpand(t *testing.T) {
	v := newReadyView(&mockSearchService{results: testPassages()})
	submit(t, v, "tide")

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	require.NotNil(t, v.SelectedResult())
	assert.Equal(t, "c2", v.SelectedResult().ID)

	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, v.View(), "The harbour opens at dawn.")
}

func TestView_Esc(t *testing.T) {
	v := newReadyView(&mockSearchService{results: testPassages()})
	submit(t, v, "tide")
	require.False(t, v.InputFocused())

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, v.InputFocused())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_NewQuery(t *testing.T) {
	v := newReadyView(&mockSearchService{results: testPassages()})
	submit(t, v, "tide")

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.True(t, v.InputFocused())
	assert.Len(t, v.Results(), 2)
}

func TestView_Reset(t *testing.T) {
	v := newReadyView(&mockSearchService{results: testPassages()})
	submit(t, v, "tide")

	v.Reset()

	assert.Empty(t, v.Results())
	assert.Empty(t, v.Query())
	assert.NoError(t, v.Err())
	assert.True(t, v.InputFocused())
}

func TestView_NotReady(t *testing.T) {
	v := NewView(nil, nil, nil)
	assert.Equal(t, "Initialising...", v.View())
}

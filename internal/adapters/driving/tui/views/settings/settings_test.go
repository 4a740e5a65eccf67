package settings

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

type mockSettingsService struct {
	driving.SettingsService

	settings domain.AppSettings
	saved    []domain.RetrievalSettings
	saveErr  error
	getErr   error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) SetRetrieval(_ context.Context, r domain.RetrievalSettings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if err := r.Validate(); err != nil {
		return err
	}
	m.saved = append(m.saved, r)
	m.settings.Retrieval = r
	return nil
}

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

func loadedView(t *testing.T, svc *mockSettingsService) *View {
	t.Helper()
	v := NewView(nil, svc)
	v.SetDimensions(100, 40)
	run(t, v, v.Init())
	return v
}

func defaults() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func TestView_Load(t *testing.T) {
	v := loadedView(t, defaults())

	require.NoError(t, v.Err())
	assert.Equal(t, domain.DefaultRetrievalSettings(), v.Draft())
	out := v.View()
	assert.Contains(t, out, "Hybrid (keyword + semantic)")
	assert.Contains(t, out, "500 chars")
	assert.Contains(t, out, "local-model at http://localhost:8080")
	assert.Contains(t, out, "hybrid retrieval needs an embedding provider")
}

func TestView_LoadErrors(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		v := loadedView(t, &mockSettingsService{getErr: errors.New("config unreadable")})
		assert.Contains(t, v.View(), "Error: config unreadable")
	})
	t.Run("no service", func(t *testing.T) {
		v := NewView(nil, nil)
		run(t, v, v.Init())
		assert.ErrorIs(t, v.Err(), ErrNoSettingsService)
	})
}

func TestView_Adjust(t *testing.T) {
	tests := []struct {
		name   string
		field  int
		keys   []string
		assert func(t *testing.T, s domain.RetrievalSettings)
	}{
		{"retrieval strategy wraps forward", 0, []string{"l"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.Equal(t, domain.RetrievalKeyword, s.RetrievalStrategy)
		}},
		{"retrieval strategy backwards", 0, []string{"h"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.Equal(t, domain.RetrievalSemantic, s.RetrievalStrategy)
		}},
		{"chunking strategy", 1, []string{"l"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.Equal(t, domain.ChunkingSemantic, s.ChunkingStrategy)
		}},
		{"chunk size floor", 2, []string{"h", "h", "h", "h", "h", "h", "h", "h", "h", "h"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.Equal(t, 50, s.ChunkSize)
			assert.Equal(t, 49, s.ChunkOverlap, "overlap stays below size")
		}},
		{"overlap", 3, []string{"l", "l"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.Equal(t, 70, s.ChunkOverlap)
		}},
		{"top k floor", 5, []string{"h", "h", "h", "h"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.Equal(t, 1, s.TopK)
		}},
		{"threshold step", 6, []string{"l"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.InDelta(t, 0.15, s.SimilarityThreshold, 1e-9)
		}},
		{"threshold floor", 6, []string{"h", "h", "h"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.Equal(t, 0.0, s.SimilarityThreshold)
		}},
		{"semantic weight", 8, []string{"l"}, func(t *testing.T, s domain.RetrievalSettings) {
			assert.InDelta(t, 0.8, s.SemanticWeight, 1e-9)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := loadedView(t, defaults())
			for range tt.field {
				press(v, "j")
			}
			require.Equal(t, tt.field, v.Selected())

			for _, k := range tt.keys {
				press(v, k)
			}

			assert.True(t, v.Dirty())
			tt.assert(t, v.Draft())
		})
	}
}

func TestView_Save(t *testing.T) {
	svc := defaults()
	v := loadedView(t, svc)

	press(v, "j")
	press(v, "h")
	assert.Contains(t, v.View(), "Saving rebuilds every chunk.")

	run(t, v, press(v, "enter"))

	require.Len(t, svc.saved, 1)
	assert.Equal(t, domain.ChunkingFixed, svc.saved[0].ChunkingStrategy)
	assert.False(t, v.Dirty())
	assert.Contains(t, v.View(), "Settings saved")
}

func TestView_SaveUnchangedIsNoop(t *testing.T) {
	svc := defaults()
	v := loadedView(t, svc)

	assert.Nil(t, press(v, "enter"))
	assert.Empty(t, svc.saved)
}

func TestView_SaveError(t *testing.T) {
	svc := defaults()
	svc.saveErr = errors.New("read-only config")
	v := loadedView(t, svc)

	press(v, "l")
	run(t, v, press(v, "s"))

	assert.EqualError(t, v.Err(), "read-only config")
	assert.True(t, v.Dirty())
}

func TestView_Undo(t *testing.T) {
	v := loadedView(t, defaults())

	press(v, "l")
	require.True(t, v.Dirty())
	press(v, "u")

	assert.False(t, v.Dirty())
	assert.Equal(t, domain.DefaultRetrievalSettings(), v.Draft())
}

func TestView_AdjustBackToSavedIsClean(t *testing.T) {
	v := loadedView(t, defaults())

	press(v, "l")
	press(v, "h")

	assert.False(t, v.Dirty())
}

func TestView_Esc(t *testing.T) {
	v := loadedView(t, defaults())

	cmd := press(v, "esc")
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestCycle(t *testing.T) {
	all := []string{"a", "b", "c"}
	assert.Equal(t, "b", cycle(all, "a", 1))
	assert.Equal(t, "a", cycle(all, "c", 1))
	assert.Equal(t, "c", cycle(all, "a", -1))
	assert.Equal(t, "b", cycle(all, "missing", 1))
}

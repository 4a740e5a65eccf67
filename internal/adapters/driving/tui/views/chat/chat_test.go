package chat

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

type stubChat struct {
	deltas []string
	err    error
	resets int
	sent   []string
}

func (s *stubChat) Send(_ context.Context, message string, onDelta func(string) error) (*domain.ChatReply, error) {
	s.sent = append(s.sent, message)
	if s.err != nil {
		return nil, s.err
	}
	var reply string
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return nil, err
		}
		reply += d
	}
	return &domain.ChatReply{
		Reply:   reply,
		Context: []domain.ScoredChunk{{Chunk: domain.Chunk{DocumentName: "tides.txt"}, Score: 0.7}},
	}, nil
}

func (s *stubChat) History() []domain.ChatMessage { return nil }
func (s *stubChat) Reset()                        { s.resets++ }

func typeText(v *View, text string) {
	for _, r := range text {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// drain runs cmd and feeds each message back until the stream ends.
func drain(t *testing.T, v *View, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 100, "stream did not finish")
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = v.Update(msg)
	}
}

func newReadyView(chat *stubChat) *View {
	v := NewView(nil, nil, chat, "qwen")
	v.SetDimensions(100, 30)
	return v
}

func TestView_SendStreamsReply(t *testing.T) {
	chat := &stubChat{deltas: []string{"High ", "tide ", "is at six."}}
	v := newReadyView(chat)

	typeText(v, "When is high tide?")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, v.Busy())

	drain(t, v, cmd)

	assert.False(t, v.Busy())
	assert.Equal(t, []string{"When is high tide?"}, chat.sent)
	assert.Equal(t, []string{
		"user: When is high tide?",
		"assistant: High tide is at six.",
	}, v.Transcript())
	assert.Contains(t, v.View(), "High tide is at six.")
	assert.Contains(t, v.View(), "1 passages used")
}

func TestView_EmptyInputIsIgnored(t *testing.T) {
	chat := &stubChat{}
	v := newReadyView(chat)

	typeText(v, "   ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, chat.sent)
}

func TestView_SendError(t *testing.T) {
	chat := &stubChat{err: errors.New("connection refused")}
	v := newReadyView(chat)

	typeText(v, "hello")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, v, cmd)

	assert.False(t, v.Busy())
	assert.Contains(t, v.View(), "Error: connection refused")
	assert.Equal(t, "assistant: connection refused", v.Transcript()[1])
}

func TestView_NoService(t *testing.T) {
	v := NewView(nil, nil, nil, "")
	v.SetDimensions(100, 30)

	typeText(v, "hello")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, v, cmd)

	assert.Contains(t, v.View(), ErrNoChatService.Error())
}

func TestView_Reset(t *testing.T) {
	tests := []struct {
		name  string
		press func(v *View)
	}{
		{"ctrl+r", func(v *View) { v.Update(tea.KeyMsg{Type: tea.KeyCtrlR}) }},
		{"slash command", func(v *View) {
			typeText(v, "/reset")
			v.Update(tea.KeyMsg{Type: tea.KeyEnter})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &stubChat{deltas: []string{"ok"}}
			v := newReadyView(chat)
			typeText(v, "hello")
			_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
			drain(t, v, cmd)
			require.Len(t, v.Transcript(), 2)

			tt.press(v)

			assert.Empty(t, v.Transcript())
			assert.Equal(t, 1, chat.resets)
			assert.Contains(t, v.View(), "Conversation cleared")
		})
	}
}

func TestView_ToggleSources(t *testing.T) {
	chat := &stubChat{deltas: []string{"ok"}}
	v := newReadyView(chat)
	typeText(v, "hello")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, v, cmd)

	assert.NotContains(t, v.View(), "[1] tides.txt")

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.True(t, v.ShowingSources())
	assert.Contains(t, v.View(), "[1] tides.txt (0.70)")
}

func TestView_EscGoesToMenu(t *testing.T) {
	v := newReadyView(&stubChat{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_NotReady(t *testing.T) {
	v := NewView(nil, nil, &stubChat{}, "")
	assert.Equal(t, "Initialising...", v.View())
	assert.NotNil(t, v.Init())
}

// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// ErrNoChatService is reported when a message is sent without a chat service.
var ErrNoChatService = errors.New("chat service not available")

// entry is one rendered turn of the transcript.
type entry struct {
	role    string
	text    string
	sources []domain.ScoredChunk
	tools   int
	failed  bool
}

// View shows the transcript above an input line and streams replies into it.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Prompt
	viewport  viewport.Model
	statusbar *status.Bar

	chat driving.ChatService
	ctx  context.Context

	entries     []entry
	pending     strings.Builder
	stream      <-chan tea.Msg
	busy        bool
	showSources bool

	width  int
	height int
	ready  bool
}

// NewView creates a chat view. model is shown in the status bar.
func NewView(s *styles.Styles, km *keymap.KeyMap, chat driving.ChatService, model string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km.ChatHelp())
	if model != "" {
		bar.SetInfo("model: " + model)
	}

	return &View{
		styles:    s,
		keymap:    km,
		input:     input.NewPrompt(s, "You:", "Ask about your documents, or use {{tool(...)}}"),
		viewport:  viewport.New(80, 18),
		statusbar: bar,
		chat:      chat,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
}

// WithContext sets the context replies are requested under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init focuses the input.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Focus(), v.input.Init())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ChatDelta:
		v.statusbar.SetState(status.StateStreaming)
		v.pending.WriteString(msg.Text)
		v.refresh()
		return v, waitForStream(v.stream)

	case messages.ChatCompleted:
		v.finish(msg)
		return v, nil
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }

	case keymap.Matches(msg.String(), v.keymap.Reset):
		return v, v.reset()

	case keymap.Matches(msg.String(), v.keymap.Sources):
		v.showSources = !v.showSources
		v.refresh()
		return v, nil

	case keymap.Matches(msg.String(), v.keymap.ScrollUp),
		keymap.Matches(msg.String(), v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case msg.Type == tea.KeyEnter:
		text := strings.TrimSpace(v.input.Value())
		if text == "" || v.busy {
			return v, nil
		}
		v.input.Reset()
		if text == "/reset" {
			return v, v.reset()
		}
		return v, v.send(text)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// send starts a turn. Deltas arrive as ChatDelta messages through a
// channel drained one message per command.
func (v *View) send(text string) tea.Cmd {
	v.entries = append(v.entries, entry{role: domain.RoleUser, text: text})
	v.pending.Reset()
	v.busy = true
	v.statusbar.Clear()
	v.statusbar.SetState(status.StateThinking)
	v.refresh()

	if v.chat == nil {
		return func() tea.Msg { return messages.ChatCompleted{Err: ErrNoChatService} }
	}

	ch := make(chan tea.Msg, 64)
	v.stream = ch
	ctx := v.ctx
	go func() {
		defer close(ch)
		reply, err := v.chat.Send(ctx, text, func(delta string) error {
			select {
			case ch <- messages.ChatDelta{Text: delta}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		ch <- messages.ChatCompleted{Reply: reply, Err: err}
	}()
	return waitForStream(ch)
}

func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (v *View) finish(msg messages.ChatCompleted) {
	v.busy = false
	v.stream = nil

	if msg.Err != nil {
		v.entries = append(v.entries, entry{role: domain.RoleAssistant, text: msg.Err.Error(), failed: true})
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else {
		v.entries = append(v.entries, entry{
			role:    domain.RoleAssistant,
			text:    msg.Reply.Reply,
			sources: msg.Reply.Context,
			tools:   len(msg.Reply.Tools),
		})
		v.statusbar.Clear()
		if n := len(msg.Reply.Context); n > 0 {
			v.statusbar.SetMessage(fmt.Sprintf("%d passages used", n))
		}
	}
	v.pending.Reset()
	v.refresh()
}

func (v *View) reset() tea.Cmd {
	if v.busy {
		return nil
	}
	if v.chat != nil {
		v.chat.Reset()
	}
	v.entries = nil
	v.pending.Reset()
	v.statusbar.Clear()
	v.statusbar.SetMessage("Conversation cleared")
	v.refresh()
	return nil
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.entries) == 0 && !v.busy {
		return v.styles.Muted.Render("Ask a question. Passages from your documents are added automatically.")
	}

	width := max(v.width-2, 20)
	body := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, e := range v.entries {
		b.WriteString(v.renderEntry(e, body))
		b.WriteString("\n\n")
	}
	if v.busy {
		b.WriteString(v.styles.AssistantLabel.Render("Assistant"))
		b.WriteString("\n")
		if v.pending.Len() == 0 {
			b.WriteString(v.styles.Muted.Render("..."))
		} else {
			b.WriteString(body.Render(v.pending.String()))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *View) renderEntry(e entry, body lipgloss.Style) string {
	var b strings.Builder
	if e.role == domain.RoleUser {
		b.WriteString(v.styles.UserLabel.Render("You"))
	} else {
		b.WriteString(v.styles.AssistantLabel.Render("Assistant"))
		if e.tools > 0 {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  (%d tool calls)", e.tools)))
		}
	}
	b.WriteString("\n")

	if e.failed {
		b.WriteString(v.styles.Error.Render(body.Render(e.text)))
	} else {
		b.WriteString(body.Render(e.text))
	}

	if v.showSources && len(e.sources) > 0 {
		var src strings.Builder
		for i, c := range e.sources {
			if i > 0 {
				src.WriteString("\n")
			}
			fmt.Fprintf(&src, "[%d] %s (%.2f)", i+1, c.DocumentName, c.Score)
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Passage.Render(src.String()))
	}
	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("Chat"),
		v.viewport.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sizes the transcript to leave room for the title, input
// and status bar.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.viewport.Width = width
	v.viewport.Height = max(height-6, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Busy reports whether a reply is in flight.
func (v *View) Busy() bool {
	return v.busy
}

// Transcript returns the completed turns as plain text, oldest first.
func (v *View) Transcript() []string {
	out := make([]string, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.role + ": " + e.text
	}
	return out
}

// ShowingSources reports whether passages are listed under replies.
func (v *View) ShowingSources() bool {
	return v.showSources
}

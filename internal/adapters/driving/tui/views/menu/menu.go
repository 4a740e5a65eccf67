// Package menu is the landing screen of the TUI.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// Item is one entry of the menu. An item without a view quits.
type Item struct {
	Label string
	Hint  string
	View  messages.ViewType
	Quit  bool
}

var items = []Item{
	{Label: "Chat", Hint: "talk to the model, grounded in your documents", View: messages.ViewChat},
	{Label: "Search passages", Hint: "see what retrieval finds for a query", View: messages.ViewSearch},
	{Label: "Documents", Hint: "browse, inspect or delete ingested files", View: messages.ViewDocuments},
	{Label: "Retrieval settings", Hint: "chunking and ranking parameters", View: messages.ViewSettings},
	{Label: "Help", Hint: "keys and tool syntax", View: messages.ViewHelp},
	{Label: "Quit", Quit: true},
}

// View lists the screens. Digits jump straight to an item.
type View struct {
	styles   *styles.Styles
	selected int
	width    int
	height   int
	ready    bool

	model string
	stats *domain.StoreStats
}

// NewView creates the menu.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{styles: s, width: 80, height: 24}
}

// SetStatus sets the model and store summary shown under the title.
// stats may be nil when no document service is wired.
func (v *View) SetStatus(model string, stats *domain.StoreStats) {
	v.model = model
	v.stats = stats
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update moves the cursor or picks an item.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "up", "k":
			v.selected = (v.selected + len(items) - 1) % len(items)
		case "down", "j", "tab":
			v.selected = (v.selected + 1) % len(items)
		case "home", "g":
			v.selected = 0
		case "end", "G":
			v.selected = len(items) - 1
		case "enter", " ":
			return v, v.choose(v.selected)
		case "q":
			return v, tea.Quit
		default:
			if len(key) == 1 && key[0] >= '1' && int(key[0]-'0') <= len(items) {
				v.selected = int(key[0] - '1')
				return v, v.choose(v.selected)
			}
		}
	}
	return v, nil
}

func (v *View) choose(i int) tea.Cmd {
	item := items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Sercha Chat"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(v.status()))
	b.WriteString("\n\n")

	for i, item := range items {
		label := fmt.Sprintf("%d  %s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Subtitle.Render(label))
			if item.Hint != "" && v.width >= 60 {
				b.WriteString("  " + v.styles.Muted.Render(item.Hint))
			}
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] move  [1-6] jump  [enter] open  [q] quit"))
	return b.String()
}

func (v *View) status() string {
	parts := []string{}
	if v.model != "" {
		parts = append(parts, "model "+v.model)
	}
	if v.stats != nil {
		parts = append(parts, fmt.Sprintf("%d documents, %d chunks", v.stats.Documents, v.stats.Chunks))
		if !v.stats.EmbeddingsEnabled {
			parts = append(parts, "keyword retrieval only")
		}
	}
	if len(parts) == 0 {
		return "Chat with a local model over your documents"
	}
	return strings.Join(parts, " · ")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the cursor position.
func (v *View) Selected() int {
	return v.selected
}

// Items returns the menu entries.
func (v *View) Items() []Item {
	return items
}

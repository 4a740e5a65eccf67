// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// PassageList displays retrieved chunks in a navigable list. The selected
// passage can be expanded to its full text.
type PassageList struct {
	results  []domain.ScoredChunk
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewPassageList creates an empty list.
func NewPassageList(s *styles.Styles) *PassageList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &PassageList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Update handles list navigation messages.
func (r *PassageList) Update(msg tea.Msg) (*PassageList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		case "enter", " ":
			r.expanded = !r.expanded
		}
	}
	return r, nil
}

// View renders the list.
func (r *PassageList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No passages")
	}

	lines := make([]string, 0, len(r.results)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(r.results))), "")

	// Each passage takes two lines plus a gap.
	visible := (r.height - 4) / 3
	if visible < 1 {
		visible = 1
	}
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.results))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderPassage(i, &r.results[i]))
	}

	if r.expanded {
		if sel := r.SelectedResult(); sel != nil {
			body := r.styles.Passage.Width(max(r.width-4, 20)).Render(strings.TrimSpace(sel.Content))
			lines = append(lines, "", body)
		}
	}
	return strings.Join(lines, "\n")
}

func (r *PassageList) renderPassage(index int, result *domain.ScoredChunk) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	maxNameLen := max(r.width-20, 10)
	name := truncate(result.DocumentName, maxNameLen)
	score := fmt.Sprintf("%.3f", result.Score)

	var title string
	if index == r.selected {
		title = r.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxNameLen, name, score))
	} else {
		title = r.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxNameLen, name)) +
			r.styles.Muted.Render(score)
	}

	preview := strings.Join(strings.Fields(result.Content), " ")
	preview = truncate(preview, max(r.width-6, 20))
	return title + "\n" + r.styles.Muted.Render("    "+preview)
}

// truncate cuts s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the list and resets the selection.
func (r *PassageList) SetResults(results []domain.ScoredChunk) {
	r.results = results
	r.selected = 0
	r.expanded = false
}

// Results returns the current results.
func (r *PassageList) Results() []domain.ScoredChunk {
	return r.results
}

// Selected returns the index of the selected result.
func (r *PassageList) Selected() int {
	return r.selected
}

// Expanded reports whether the selected passage is shown in full.
func (r *PassageList) Expanded() bool {
	return r.expanded
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *PassageList) SelectedResult() *domain.ScoredChunk {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *PassageList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *PassageList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *PassageList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *PassageList) Count() int {
	return len(r.results)
}

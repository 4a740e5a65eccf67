// Package doccontent provides the document content view for the TUI.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// ErrNoDocumentService is reported when the view has no document service.
var ErrNoDocumentService = errors.New("document service not available")

// View shows a document's extracted text, or the chunks it was split into.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	ctx             context.Context

	document     *domain.Document
	content      string
	chunks       []domain.Chunk
	showChunks   bool
	lines        []string
	scrollOffset int
	width        int
	height       int
	err          error
	loading      bool
}

// NewView creates a new document content view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		ctx:             context.Background(),
		width:           80,
		height:          24,
	}
}

// WithContext sets the context content is loaded under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetDocument sets the document and loads its content.
func (v *View) SetDocument(doc *domain.Document) tea.Cmd {
	v.document = doc
	v.content = ""
	v.chunks = nil
	v.showChunks = false
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
	return v.loadContent()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

func (v *View) loadContent() tea.Cmd {
	svc, ctx, doc := v.documentService, v.ctx, v.document
	return func() tea.Msg {
		if doc == nil || svc == nil {
			return messages.DocumentContentLoaded{Err: ErrNoDocumentService}
		}

		full, err := svc.GetDocument(ctx, doc.ID)
		if err != nil {
			return messages.DocumentContentLoaded{DocumentID: doc.ID, Err: err}
		}

		var chunks []domain.Chunk
		for _, c := range svc.Chunks(ctx) {
			if c.DocumentID == doc.ID {
				chunks = append(chunks, c)
			}
		}
		return messages.DocumentContentLoaded{
			DocumentID: doc.ID,
			Content:    full.Content,
			Chunks:     chunks,
		}
	}
}

// Update handles messages for the document content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentContentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.content = msg.Content
		v.chunks = msg.Chunks
		// Restored documents carry no text; their chunks are all there is.
		v.showChunks = v.content == "" && len(v.chunks) > 0
		v.layout()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "tab", "c":
		if v.content != "" {
			v.showChunks = !v.showChunks
			v.scrollOffset = 0
			v.layout()
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	}

	return v, nil
}

// layout wraps whichever of content or chunks is showing to the view width.
func (v *View) layout() {
	width := max(v.width-4, 20)

	var raw []string
	if v.showChunks {
		for i, c := range v.chunks {
			if i > 0 {
				raw = append(raw, "")
			}
			header := fmt.Sprintf("#%d  [%d:%d]  %d chars", i+1, c.StartIndex, c.EndIndex, len([]rune(c.Content)))
			if c.HasEmbedding() {
				header += "  embedded"
			}
			raw = append(raw, header)
			raw = append(raw, strings.Split(c.Content, "\n")...)
		}
	} else if v.content != "" {
		raw = strings.Split(v.content, "\n")
	}

	v.lines = make([]string, 0, len(raw))
	for _, line := range raw {
		v.lines = append(v.lines, wrap(line, width)...)
	}
	v.scrollOffset = min(v.scrollOffset, v.maxScrollOffset())
}

// wrap splits line into pieces of at most width runes.
func wrap(line string, width int) []string {
	runes := []rune(line)
	if len(runes) <= width {
		return []string{line}
	}
	out := make([]string, 0, len(runes)/width+1)
	for len(runes) > width {
		out = append(out, string(runes[:width]))
		runes = runes[width:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func (v *View) visibleLines() int {
	return max(v.height-7, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the document content view.
func (v *View) View() string {
	var b strings.Builder

	title := "Document"
	if v.document != nil {
		title = v.document.Name
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")

	mode := "content"
	if v.showChunks {
		mode = "chunks"
	}
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s  %d chunks", mode, len(v.chunks))))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading content..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		b.WriteString(v.renderLines())
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[j/k/PgUp/PgDn] scroll  [g/G] top/bottom  [tab] content/chunks  [esc] back"))
	return b.String()
}

func (v *View) renderLines() string {
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))

	var b strings.Builder
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.styles.Normal.Render(v.lines[i]))
		b.WriteString("\n")
	}
	if len(v.lines) > visible {
		pct := 0
		if m := v.maxScrollOffset(); m > 0 {
			pct = v.scrollOffset * 100 / m
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			pct, v.scrollOffset+1, end, len(v.lines))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.layout()
}

// Document returns the current document.
func (v *View) Document() *domain.Document {
	return v.document
}

// Content returns the document content.
func (v *View) Content() string {
	return v.content
}

// Chunks returns the document's chunks.
func (v *View) Chunks() []domain.Chunk {
	return v.chunks
}

// ShowingChunks reports whether chunks are shown instead of the content.
func (v *View) ShowingChunks() bool {
	return v.showChunks
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

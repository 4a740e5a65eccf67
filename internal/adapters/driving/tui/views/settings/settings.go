// Package settings provides the retrieval settings view for the TUI.
package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// ErrNoSettingsService is reported when the view has no settings service.
var ErrNoSettingsService = errors.New("settings service not available")

// field is one editable retrieval setting.
type field struct {
	label  string
	value  func(s *domain.RetrievalSettings) string
	adjust func(s *domain.RetrievalSettings, dir int)
}

var fields = []field{
	{
		label: "Retrieval strategy",
		value: func(s *domain.RetrievalSettings) string { return s.RetrievalStrategy.Description() },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.RetrievalStrategy = cycle(domain.AllRetrievalStrategies(), s.RetrievalStrategy, dir)
		},
	},
	{
		label: "Chunking strategy",
		value: func(s *domain.RetrievalSettings) string { return s.ChunkingStrategy.Description() },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.ChunkingStrategy = cycle(domain.AllChunkingStrategies(), s.ChunkingStrategy, dir)
		},
	},
	{
		label: "Chunk size",
		value: func(s *domain.RetrievalSettings) string { return fmt.Sprintf("%d chars", s.ChunkSize) },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.ChunkSize = max(s.ChunkSize+dir*50, 50)
			s.ChunkOverlap = min(s.ChunkOverlap, s.ChunkSize-1)
		},
	},
	{
		label: "Chunk overlap",
		value: func(s *domain.RetrievalSettings) string { return fmt.Sprintf("%d chars", s.ChunkOverlap) },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.ChunkOverlap = min(max(s.ChunkOverlap+dir*10, 0), s.ChunkSize-1)
		},
	},
	{
		label: "Minimum chunk length",
		value: func(s *domain.RetrievalSettings) string { return fmt.Sprintf("%d chars", s.MinChunkLength) },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.MinChunkLength = max(s.MinChunkLength+dir*10, 0)
		},
	},
	{
		label: "Top K",
		value: func(s *domain.RetrievalSettings) string { return fmt.Sprintf("%d", s.TopK) },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.TopK = max(s.TopK+dir, 1)
		},
	},
	{
		label: "Similarity threshold",
		value: func(s *domain.RetrievalSettings) string { return fmt.Sprintf("%.2f", s.SimilarityThreshold) },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.SimilarityThreshold = math.Min(math.Max(step(s.SimilarityThreshold, dir, 0.05), 0), 1)
		},
	},
	{
		label: "Keyword weight",
		value: func(s *domain.RetrievalSettings) string { return fmt.Sprintf("%.2f", s.KeywordWeight) },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.KeywordWeight = math.Max(step(s.KeywordWeight, dir, 0.1), 0)
		},
	},
	{
		label: "Semantic weight",
		value: func(s *domain.RetrievalSettings) string { return fmt.Sprintf("%.2f", s.SemanticWeight) },
		adjust: func(s *domain.RetrievalSettings, dir int) {
			s.SemanticWeight = math.Max(step(s.SemanticWeight, dir, 0.1), 0)
		},
	},
}

func cycle[T comparable](all []T, current T, dir int) T {
	idx := 0
	for i, v := range all {
		if v == current {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(all)) % len(all)
	return all[idx]
}

// step moves v by dir*size, rounded to two decimals.
func step(v float64, dir int, size float64) float64 {
	return math.Round((v+float64(dir)*size)*100) / 100
}

// View edits retrieval settings. Embedding and inference settings are
// shown read-only; they are edited from the command line.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService
	ctx             context.Context

	settings *domain.AppSettings
	draft    domain.RetrievalSettings
	selected int
	dirty    bool
	saving   bool
	notice   string
	err      error

	width  int
	height int
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		settingsService: settingsService,
		ctx:             context.Background(),
		width:           80,
		height:          24,
	}
}

// WithContext sets the context settings are saved under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the current settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// Reset discards unsaved edits and moves the cursor to the top.
func (v *View) Reset() {
	v.selected = 0
	v.dirty = false
	v.saving = false
	v.notice = ""
	v.err = nil
	if v.settings != nil {
		v.draft = v.settings.Retrieval
	}
}

func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		settings, err := svc.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

func (v *View) save() tea.Cmd {
	svc, ctx, draft := v.settingsService, v.ctx, v.draft
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		return messages.SettingsSaved{Err: svc.SetRetrieval(ctx, draft)}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.settings = msg.Settings
		v.draft = msg.Settings.Retrieval
		v.dirty = false
		return v, nil

	case messages.SettingsSaved:
		v.saving = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.notice = "Settings saved"
		return v, v.loadSettings()

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.settings == nil || v.saving {
		return v, nil
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(fields)-1 {
			v.selected++
		}
	case "left", "h":
		v.adjust(-1)
	case "right", "l":
		v.adjust(1)
	case "u":
		v.draft = v.settings.Retrieval
		v.dirty = false
		v.err = nil
	case "enter", "s":
		if !v.dirty {
			return v, nil
		}
		v.saving = true
		v.notice = "Saving..."
		return v, v.save()
	}
	return v, nil
}

func (v *View) adjust(dir int) {
	fields[v.selected].adjust(&v.draft, dir)
	v.dirty = v.draft != v.settings.Retrieval
	v.notice = ""
	v.err = nil
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Retrieval settings"))
	b.WriteString("\n\n")

	if v.settings == nil {
		if v.err != nil {
			b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		} else {
			b.WriteString(v.styles.Muted.Render("Loading settings..."))
		}
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[esc] back"))
		return b.String()
	}

	for i, f := range fields {
		label := fmt.Sprintf("%-22s", f.label)
		value := f.value(&v.draft)
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + label + "< " + value + " >"))
		} else {
			b.WriteString(v.styles.Normal.Render("  "+label) + "  " + v.styles.Muted.Render(value))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderProviders())
	b.WriteString("\n\n")

	if v.draft.RetrievalStrategy.RequiresEmbedding() && !v.settings.Embedding.IsConfigured() {
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf(
			"%s retrieval needs an embedding provider; keyword scoring is used until one is set.",
			v.draft.RetrievalStrategy)))
		b.WriteString("\n")
	}
	if v.draft.ChunkingChanged(v.settings.Retrieval) {
		b.WriteString(v.styles.Warning.Render("Saving rebuilds every chunk."))
		b.WriteString("\n")
	}

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	case v.dirty:
		b.WriteString(v.styles.Warning.Render("Unsaved changes"))
		b.WriteString("\n")
	case v.notice != "":
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
	}

	b.WriteString(v.styles.Help.Render("[j/k] select  [h/l] change  [enter] save  [u] undo  [esc] back"))
	return b.String()
}

func (v *View) renderProviders() string {
	emb := v.settings.Embedding
	embedding := emb.Provider.Description()
	if emb.IsConfigured() {
		embedding = fmt.Sprintf("%s, %s", emb.Provider, emb.Model)
	}
	inf := v.settings.Inference
	lines := []string{
		v.styles.Subtitle.Render("Providers"),
		v.styles.Muted.Render("  Embedding  " + embedding),
		v.styles.Muted.Render(fmt.Sprintf("  Inference  %s at %s", inf.Model, inf.ServerURL)),
		v.styles.Help.Render("  Change with `sercha-chat settings embedding` or `settings inference`."),
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Draft returns the edited retrieval settings.
func (v *View) Draft() domain.RetrievalSettings {
	return v.draft
}

// Dirty reports whether the draft differs from the saved settings.
func (v *View) Dirty() bool {
	return v.dirty
}

// Selected returns the index of the highlighted field.
func (v *View) Selected() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

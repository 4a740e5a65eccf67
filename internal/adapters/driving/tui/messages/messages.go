// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the conversation view.
	ViewChat
	// ViewSearch retrieves passages without chatting.
	ViewSearch
	// ViewDocuments lists stored documents.
	ViewDocuments
	// ViewDocContent shows a document's text and chunks.
	ViewDocContent
	// ViewSettings edits retrieval settings.
	ViewSettings
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewSearch:
		return "search"
	case ViewDocuments:
		return "documents"
	case ViewDocContent:
		return "doc_content"
	case ViewSettings:
		return "settings"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ChatDelta carries one streamed piece of the assistant's reply.
type ChatDelta struct {
	Text string
}

// ChatCompleted ends a turn. Reply is nil when Err is set.
type ChatCompleted struct {
	Reply *domain.ChatReply
	Err   error
}

// SearchCompleted carries retrieval results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.ScoredChunk
	Err     error
}

// DocumentsLoaded carries the stored documents and store statistics.
type DocumentsLoaded struct {
	Documents []domain.Document
	Stats     domain.StoreStats
	Err       error
}

// DocumentSelected signals a document was chosen for viewing.
type DocumentSelected struct {
	Document domain.Document
}

// DocumentContentLoaded carries a document's text and its chunks.
type DocumentContentLoaded struct {
	DocumentID string
	Content    string
	Chunks     []domain.Chunk
	Err        error
}

// DocumentDeleted signals a delete finished.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// DocumentsReprocessed signals a rebuild of every chunk finished.
type DocumentsReprocessed struct {
	Err error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals settings were saved.
type SettingsSaved struct {
	Err error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

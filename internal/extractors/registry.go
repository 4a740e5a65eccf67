package extractors

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.TextExtractor = (*Registry)(nil)

// Registry dispatches extraction to the extractor registered for a MIME type.
type Registry struct {
	byType map[string]driven.TextExtractor
}

// NewRegistry creates a registry holding the given extractors.
// Later extractors win when two claim the same MIME type.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	r := &Registry{byType: make(map[string]driven.TextExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor for each of its MIME types.
func (r *Registry) Register(e driven.TextExtractor) {
	for _, t := range e.SupportedMIMETypes() {
		r.byType[NormaliseMIMEType(t)] = e
	}
}

// SupportedMIMETypes returns every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Supports reports whether a MIME type has an extractor.
func (r *Registry) Supports(mimeType string) bool {
	_, ok := r.byType[NormaliseMIMEType(mimeType)]
	return ok
}

// Extract returns the text of file. Parser failures are wrapped in
// *domain.ExtractionError carrying the file name.
func (r *Registry) Extract(ctx context.Context, file *domain.RawFile) (string, error) {
	if file == nil {
		return "", domain.ErrInvalidInput
	}

	e, ok := r.byType[NormaliseMIMEType(file.MIMEType)]
	if !ok {
		return "", &domain.UnsupportedFileTypeError{MIMEType: file.MIMEType}
	}

	text, err := e.Extract(ctx, file)
	if err != nil {
		var extractionErr *domain.ExtractionError
		if errors.As(err, &extractionErr) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &domain.ExtractionError{FileName: file.Name, Err: err}
	}
	return text, nil
}

// NormaliseMIMEType lowercases a MIME type and drops its parameters,
// so "Text/Plain; charset=utf-8" becomes "text/plain".
func NormaliseMIMEType(mimeType string) string {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

var extensionTypes = map[string]string{
	".txt":      domain.MIMETypePlainText,
	".text":     domain.MIMETypePlainText,
	".md":       domain.MIMETypeMarkdown,
	".markdown": domain.MIMETypeMarkdown,
	".html":     domain.MIMETypeHTML,
	".htm":      domain.MIMETypeHTML,
	".pdf":      domain.MIMETypePDF,
	".docx":     domain.MIMETypeDOCX,
}

// DetectMIMEType guesses a file's MIME type from its name, falling back to
// content sniffing.
func DetectMIMEType(name string, content []byte) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return NormaliseMIMEType(http.DetectContentType(content))
}

// Package pdf extracts text from PDF files through an injected parser.
package pdf

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

var errNoParser = errors.New("no PDF parser configured")

// Extractor joins each page's text runs with spaces and separates pages
// with a blank line.
type Extractor struct {
	parser driven.PdfParser
}

// New creates a PDF extractor backed by parser.
func New(parser driven.PdfParser) *Extractor {
	return &Extractor{parser: parser}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{domain.MIMETypePDF}
}

// Extract readies the parser on first use and returns the document text.
func (e *Extractor) Extract(ctx context.Context, file *domain.RawFile) (string, error) {
	if file == nil {
		return "", domain.ErrInvalidInput
	}
	if e.parser == nil {
		return "", errNoParser
	}

	if err := e.parser.Ready(ctx); err != nil {
		return "", err
	}

	pages, err := e.parser.Pages(ctx, file.Content)
	if err != nil {
		return "", err
	}
	logger.Debug("pdf %s: %d pages", file.Name, len(pages))

	texts := make([]string, 0, len(pages))
	for _, runs := range pages {
		texts = append(texts, strings.Join(runs, " "))
	}
	return strings.Join(texts, "\n\n"), nil
}

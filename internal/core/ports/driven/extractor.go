package driven

import (
	"context"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// TextExtractor converts an uploaded file into raw text.
// Each extractor handles specific MIME types (e.g., PDF, Markdown).
type TextExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract returns the file's text content.
	// Unknown MIME types fail with *domain.UnsupportedFileTypeError;
	// parser failures fail with *domain.ExtractionError.
	Extract(ctx context.Context, file *domain.RawFile) (string, error)
}

// PdfParser reads text runs out of a PDF.
// Ready performs any one-time initialisation and must be safe to call
// concurrently; it is called before the first Pages call.
type PdfParser interface {
	// Ready prepares the parser. Repeated calls return the first result.
	Ready(ctx context.Context) error

	// Pages returns the text runs of each page, in page order.
	Pages(ctx context.Context, data []byte) ([][]string, error)
}

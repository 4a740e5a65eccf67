package domain

// Supported MIME types.
const (
	MIMETypePlainText = "text/plain"
	MIMETypeMarkdown  = "text/markdown"
	MIMETypeHTML      = "text/html"
	MIMETypePDF       = "application/pdf"
	MIMETypeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// RawFile is an uploaded file before text extraction.
type RawFile struct {
	// Name is the file name, used for display and error context.
	Name string

	// MIMEType selects the extractor.
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// Size returns the file size in bytes.
func (f *RawFile) Size() int64 {
	return int64(len(f.Content))
}

// Package extractors turns uploaded files into raw text.
//
// Each subpackage implements driven.TextExtractor for one family of MIME
// types. Registry dispatches on the file's MIME type and is itself a
// driven.TextExtractor:
//
//   - plaintext: text/plain and text/markdown, read as UTF-8
//   - html: text/html reduced to its visible text
//   - pdf: application/pdf through an injected driven.PdfParser
//   - docx: Word-processing XML documents
//
// Any other type is refused with *domain.UnsupportedFileTypeError.
package extractors

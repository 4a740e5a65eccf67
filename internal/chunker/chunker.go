// Package chunker splits document content into overlapping chunks.
//
// Three strategies are available:
//
//   - fixed: a window of ChunkSize characters advanced by ChunkSize-Overlap
//   - paragraph: whole paragraphs packed greedily up to ChunkSize
//   - semantic: sentences packed greedily up to ChunkSize, paragraph breaks kept
//
// Lengths and offsets are measured in characters (runes), not bytes.
// Candidate chunks shorter than the minimum length are dropped, except a
// fixed-window tail that no earlier chunk covers.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// Default sizes, in characters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
	DefaultMinLength    = 50
)

// avgWordLength converts a character overlap into a word count for the
// paragraph and semantic strategies.
const avgWordLength = 5

// Splitter produces the chunks of a document under one strategy.
type Splitter interface {
	// Strategy identifies the splitter.
	Strategy() domain.ChunkingStrategy

	// Split returns the document's chunks in document order.
	Split(doc *domain.Document) []domain.Chunk
}

type config struct {
	chunkSize int
	overlap   int
	minLength int
}

// Option configures a splitter.
type Option func(*config)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *config) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinLength sets the minimum chunk length. 0 keeps every non-blank chunk.
func WithMinLength(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minLength = n
		}
	}
}

// OptionsFrom converts retrieval settings into splitter options.
func OptionsFrom(s domain.RetrievalSettings) []Option {
	return []Option{
		WithChunkSize(s.ChunkSize),
		WithOverlap(s.ChunkOverlap),
		WithMinLength(s.MinChunkLength),
	}
}

func newConfig(opts []Option) config {
	c := config{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		minLength: DefaultMinLength,
	}
	for _, opt := range opts {
		opt(&c)
	}

	// Ensure overlap doesn't reach chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Chunk splits doc using the strategy and sizes in settings.
func Chunk(doc *domain.Document, settings domain.RetrievalSettings) ([]domain.Chunk, error) {
	s, err := defaultRegistry.Build(settings.ChunkingStrategy, OptionsFrom(settings)...)
	if err != nil {
		return nil, err
	}
	return s.Split(doc), nil
}

// emitter assigns identity to accepted chunks and applies the length floor.
type emitter struct {
	doc       *domain.Document
	minLength int
	chunks    []domain.Chunk
}

func newEmitter(doc *domain.Document, minLength int) *emitter {
	return &emitter{doc: doc, minLength: minLength}
}

func (e *emitter) emit(content string, start, end int) {
	e.add(content, start, end, e.minLength)
}

// emitTail keeps the last piece of a document regardless of the floor when
// it reaches past every chunk emitted so far. Otherwise it is treated like
// any other chunk.
func (e *emitter) emitTail(content string, start, end int) {
	n := len(e.chunks)
	if n > 0 && e.chunks[n-1].EndIndex < end {
		e.add(content, start, end, 0)
		return
	}
	e.emit(content, start, end)
}

func (e *emitter) add(content string, start, end, minLength int) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || utf8.RuneCountInString(trimmed) < minLength {
		return
	}
	e.chunks = append(e.chunks, domain.Chunk{
		ID:           domain.ChunkID(e.doc.ID, len(e.chunks)),
		DocumentID:   e.doc.ID,
		DocumentName: e.doc.Name,
		Content:      content,
		StartIndex:   start,
		EndIndex:     end,
	})
}

// trimSpan narrows the byte range [s, e) of text to exclude surrounding whitespace.
func trimSpan(text string, s, e int) (int, int) {
	seg := text[s:e]
	left := strings.TrimLeftFunc(seg, unicode.IsSpace)
	s += len(seg) - len(left)
	return s, s + len(strings.TrimRightFunc(left, unicode.IsSpace))
}

// runeOffset converts a byte offset of text into a character offset.
func runeOffset(text string, b int) int {
	return utf8.RuneCountInString(text[:b])
}

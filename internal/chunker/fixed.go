package chunker

import "github.com/custodia-labs/sercha-chat/internal/core/domain"

// Fixed slides a window of chunkSize characters over the content,
// advancing by chunkSize-overlap until the window start passes the end.
type Fixed struct {
	cfg config
}

var _ Splitter = (*Fixed)(nil)

// NewFixed creates a fixed-window splitter.
func NewFixed(opts ...Option) *Fixed {
	return &Fixed{cfg: newConfig(opts)}
}

// Strategy returns domain.ChunkingFixed.
func (f *Fixed) Strategy() domain.ChunkingStrategy {
	return domain.ChunkingFixed
}

// Split cuts the content into windows. Consecutive windows share exactly
// overlap characters, except that the final window may be shorter.
func (f *Fixed) Split(doc *domain.Document) []domain.Chunk {
	runes := []rune(doc.Content)
	e := newEmitter(doc, f.cfg.minLength)
	step := f.cfg.chunkSize - f.cfg.overlap

	for start := 0; start < len(runes); start += step {
		end := min(start+f.cfg.chunkSize, len(runes))
		if end == len(runes) {
			e.emitTail(string(runes[start:end]), start, end)
			continue
		}
		e.emit(string(runes[start:end]), start, end)
	}
	return e.chunks
}

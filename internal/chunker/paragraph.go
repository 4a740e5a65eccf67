package chunker

import "github.com/custodia-labs/sercha-chat/internal/core/domain"

// Paragraph packs blank-line separated paragraphs into chunks.
// A paragraph longer than chunkSize becomes a chunk of its own.
type Paragraph struct {
	cfg config
}

var _ Splitter = (*Paragraph)(nil)

// NewParagraph creates a paragraph splitter.
func NewParagraph(opts ...Option) *Paragraph {
	return &Paragraph{cfg: newConfig(opts)}
}

// Strategy returns domain.ChunkingParagraph.
func (p *Paragraph) Strategy() domain.ChunkingStrategy {
	return domain.ChunkingParagraph
}

// Split returns the paragraph chunks of doc.
func (p *Paragraph) Split(doc *domain.Document) []domain.Chunk {
	e := newEmitter(doc, p.cfg.minLength)
	acc := newAccumulator(doc.Content, p.cfg, e)

	for _, para := range splitParagraphs(doc.Content) {
		acc.add(para)
	}
	acc.flush()
	return e.chunks
}

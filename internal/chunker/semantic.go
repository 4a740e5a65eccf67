package chunker

import "github.com/custodia-labs/sercha-chat/internal/core/domain"

// Semantic packs sentences into chunks. Sentences of one paragraph are
// joined by a space; a blank line separates sentences of different paragraphs.
type Semantic struct {
	cfg config
}

var _ Splitter = (*Semantic)(nil)

// NewSemantic creates a sentence-aware splitter.
func NewSemantic(opts ...Option) *Semantic {
	return &Semantic{cfg: newConfig(opts)}
}

// Strategy returns domain.ChunkingSemantic.
func (s *Semantic) Strategy() domain.ChunkingStrategy {
	return domain.ChunkingSemantic
}

// Split returns the sentence chunks of doc.
func (s *Semantic) Split(doc *domain.Document) []domain.Chunk {
	e := newEmitter(doc, s.cfg.minLength)
	acc := newAccumulator(doc.Content, s.cfg, e)

	for _, para := range splitParagraphs(doc.Content) {
		for _, sentence := range splitSentences(doc.Content, para) {
			acc.add(sentence)
		}
	}
	acc.flush()
	return e.chunks
}

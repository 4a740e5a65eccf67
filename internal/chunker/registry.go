package chunker

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// BuilderFunc creates a Splitter from options.
type BuilderFunc func(opts ...Option) Splitter

// Registry maps chunking strategies to their builders.
type Registry struct {
	builders map[domain.ChunkingStrategy]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[domain.ChunkingStrategy]BuilderFunc),
	}
}

// Register adds a builder, replacing any previous builder for the strategy.
func (r *Registry) Register(strategy domain.ChunkingStrategy, builder BuilderFunc) {
	r.builders[strategy] = builder
}

// Build creates the splitter for strategy.
func (r *Registry) Build(strategy domain.ChunkingStrategy, opts ...Option) (Splitter, error) {
	builder, ok := r.builders[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrInvalidInput, strategy)
	}
	return builder(opts...), nil
}

// Has returns true if a builder is registered for strategy.
func (r *Registry) Has(strategy domain.ChunkingStrategy) bool {
	_, ok := r.builders[strategy]
	return ok
}

// Strategies returns the registered strategies in sorted order.
func (r *Registry) Strategies() []domain.ChunkingStrategy {
	out := make([]domain.ChunkingStrategy, 0, len(r.builders))
	for s := range r.builders {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RegisterDefaults registers the built-in strategies.
func RegisterDefaults(r *Registry) {
	r.Register(domain.ChunkingFixed, func(opts ...Option) Splitter { return NewFixed(opts...) })
	r.Register(domain.ChunkingParagraph, func(opts ...Option) Splitter { return NewParagraph(opts...) })
	r.Register(domain.ChunkingSemantic, func(opts ...Option) Splitter { return NewSemantic(opts...) })
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}()

// Has reports whether strategy has a built-in splitter.
func Has(strategy domain.ChunkingStrategy) bool {
	return defaultRegistry.Has(strategy)
}

// Strategies returns the built-in strategies in sorted order.
func Strategies() []domain.ChunkingStrategy {
	return defaultRegistry.Strategies()
}

// Package pdf provides a PdfParser adapter using github.com/ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// Ensure Parser implements the interface.
var _ driven.PdfParser = (*Parser)(nil)

var errNotReady = errors.New("pdf parser not ready")

// Parser reads text runs with a pure-Go PDF reader. Ready is a gate: the
// reader needs no setup, but callers must pass it before Pages.
type Parser struct {
	mu    sync.RWMutex
	ready bool
}

// NewParser creates a parser. Nothing is loaded until Ready is called.
func NewParser() *Parser {
	return &Parser{}
}

// Ready opens the gate once. A call under a cancelled context fails
// without marking the parser, so a later call can still succeed.
func (p *Parser) Ready(ctx context.Context) error {
	p.mu.RLock()
	ready := p.ready
	p.mu.RUnlock()
	if ready {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		p.ready = true
		logger.Debug("pdf parser ready")
	}
	return nil
}

// Pages returns the text runs of each page. A page without content yields
// an empty slice so page numbering is preserved.
func (p *Parser) Pages(ctx context.Context, data []byte) (pages [][]string, err error) {
	p.mu.RLock()
	ready := p.ready
	p.mu.RUnlock()
	if !ready {
		return nil, errNotReady
	}

	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := reader.NumPage()
	pages = make([][]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, []string{})
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", i, err)
		}

		runs := []string{}
		for _, row := range rows {
			for _, text := range row.Content {
				if text.S != "" {
					runs = append(runs, text.S)
				}
			}
		}
		pages = append(pages, runs)
	}
	return pages, nil
}

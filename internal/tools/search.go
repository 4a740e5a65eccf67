package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

var _ driven.ToolHandler = (*Search)(nil)

// Search answers {{search(query="...")}} from the local document store.
type Search struct {
	search driving.SearchService
}

// NewSearch creates a search tool.
func NewSearch(search driving.SearchService) *Search {
	return &Search{search: search}
}

// Name returns "search".
func (s *Search) Name() string { return "search" }

// Description describes the tool.
func (s *Search) Description() string {
	return `Search uploaded documents: search(query="...", limit="3")`
}

// Execute runs the query. limit caps the number of passages below the
// configured top-k.
func (s *Search) Execute(ctx context.Context, params map[string]string) (string, error) {
	query := strings.TrimSpace(params["query"])
	if query == "" {
		return "", errors.New("missing query parameter")
	}

	results, err := s.search.Search(ctx, query)
	if err != nil {
		return "", err
	}

	if raw, ok := params["limit"]; ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return "", fmt.Errorf("limit must be a positive integer, got %q", raw)
		}
		if limit < len(results) {
			results = results[:limit]
		}
	}

	if len(results) == 0 {
		return fmt.Sprintf("No documents match %q.", query), nil
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s (score %.2f): %s", i+1, r.DocumentName, r.Score, oneLine(r.Content))
	}
	return sb.String(), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

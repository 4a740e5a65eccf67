package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

var (
	searchLimit  int
	searchOutput string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve passages from ingested documents",
	Long: `Scores every stored chunk against the query with the configured retrieval
strategy (keyword, semantic or hybrid) and prints the best matches.
Semantic and hybrid retrieval fall back to keyword scoring when no embedding
model is available.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = configured top-k)")
	addOutputFlag(searchCmd, &searchOutput)
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	results, err := searchService.Search(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchLimit > 0 && searchLimit < len(results) {
		results = results[:searchLimit]
	}

	if done, err := printStructured(cmd, searchOutput, stripEmbeddings(results)); done {
		return err
	}
	return outputSearchTable(cmd, results)
}

// stripEmbeddings drops vectors from results before they are printed.
func stripEmbeddings(results []domain.ScoredChunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(results))
	for i, r := range results {
		r.Embedding = nil
		out[i] = r
	}
	return out
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, results[i].DocumentName, results[i].Score)
		cmd.Printf("      %s\n", snippet(results[i].Content, 200))
		cmd.Println()
	}
	return nil
}

// snippet collapses whitespace and cuts s to at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

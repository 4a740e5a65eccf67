package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage ingested documents",
	Long:    `Add, list, inspect, delete or reprocess the documents used for retrieval.`,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [file...]",
	Short: "Ingest one or more files",
	Long: `Extracts, chunks and embeds each file and stores the result.

Supported formats: plain text, Markdown, HTML, PDF and DOCX. A file that
fails is reported and the remaining files are still ingested.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocumentAdd,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:     "delete [doc-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a document and its chunks",
	Args:    cobra.ExactArgs(1),
	RunE:    runDocumentDelete,
}

var documentReprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Rebuild all chunks with the current settings",
	Args:  cobra.NoArgs,
	RunE:  runDocumentReprocess,
}

var documentStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Args:  cobra.NoArgs,
	RunE:  runDocumentStats,
}

var (
	documentOutput string
	documentChunks bool
)

func init() {
	addOutputFlag(documentListCmd, &documentOutput)
	addOutputFlag(documentStatsCmd, &documentOutput)
	documentGetCmd.Flags().BoolVar(&documentChunks, "chunks", false, "also print the document's chunks")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentReprocessCmd)
	documentCmd.AddCommand(documentStatsCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	failed := 0
	for _, path := range args {
		doc, err := addFile(ctx, path)
		if err != nil {
			failed++
			cmd.PrintErrf("Skipped %s: %v\n", path, err)
			continue
		}
		cmd.Printf("Added %s (%s, %d words)\n", doc.Name, doc.ID, doc.Metadata.WordCount)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be added", failed, len(args))
	}
	return nil
}

func addFile(ctx context.Context, path string) (*domain.Document, error) {
	file, err := readRawFile(path)
	if err != nil {
		return nil, err
	}
	return documentService.AddDocument(ctx, file)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs := documentService.ListDocuments(context.Background())
	if done, err := printStructured(cmd, documentOutput, docs); done {
		return err
	}

	if len(docs) == 0 {
		cmd.Println("No documents. Add one with 'sercha-chat document add <file>'.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Name:  %s\n", docs[i].Name)
		cmd.Printf("    Type:  %s\n", docs[i].MIMEType)
		cmd.Printf("    Words: %d\n", docs[i].Metadata.WordCount)
		cmd.Printf("    Added: %s\n", docs[i].DateAdded.Local().Format("2006-01-02 15:04:05"))
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	ctx := context.Background()

	doc, err := documentService.GetDocument(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var chunks []domain.Chunk
	for _, c := range documentService.Chunks(ctx) {
		if c.DocumentID == doc.ID {
			chunks = append(chunks, c)
		}
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Name:       %s\n", doc.Name)
	cmd.Printf("  Type:       %s\n", doc.MIMEType)
	cmd.Printf("  Size:       %d bytes\n", doc.ByteSize)
	cmd.Printf("  Words:      %d\n", doc.Metadata.WordCount)
	cmd.Printf("  Characters: %d\n", doc.Metadata.CharCount)
	cmd.Printf("  Chunks:     %d\n", len(chunks))
	cmd.Printf("  Added:      %s\n", doc.DateAdded.Local().Format("2006-01-02 15:04:05"))

	if documentChunks {
		for _, c := range chunks {
			cmd.Printf("\n  [%s] %d-%d\n", c.ID, c.StartIndex, c.EndIndex)
			cmd.Printf("  %s\n", c.Content)
		}
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	deleted, err := documentService.DeleteDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !deleted {
		return fmt.Errorf("document %s: %w", args[0], domain.ErrNotFound)
	}
	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}

func runDocumentReprocess(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	ctx := context.Background()

	if err := documentService.ReprocessAll(ctx); err != nil {
		return fmt.Errorf("failed to reprocess documents: %w", err)
	}
	stats := documentService.Stats(ctx)
	cmd.Printf("Reprocessed %d documents into %d chunks\n", stats.Documents, stats.Chunks)
	return nil
}

func runDocumentStats(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	stats := documentService.Stats(context.Background())
	if done, err := printStructured(cmd, documentOutput, stats); done {
		return err
	}

	embeddings := "disabled (keyword retrieval only)"
	if stats.EmbeddingsEnabled {
		embeddings = "enabled"
	}
	cmd.Printf("Documents:       %d\n", stats.Documents)
	cmd.Printf("Chunks:          %d\n", stats.Chunks)
	cmd.Printf("Embedded chunks: %d\n", stats.EmbeddedChunks)
	cmd.Printf("Embeddings:      %s\n", embeddings)
	return nil
}

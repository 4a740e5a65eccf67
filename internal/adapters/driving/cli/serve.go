package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start a JSON API for browser clients.

Documents are uploaded as multipart forms to /api/v1/documents. Chat replies
are relayed as server-sent events when the request asks for a stream.

Examples:
  sercha-chat serve
  sercha-chat serve --port 9000 --origin http://localhost:5173`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort    int
	serveOrigins []string
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8081, "port to listen on")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origin", []string{"*"}, "allowed CORS origin (repeatable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	server, err := httpapi.NewServer(&httpapi.Ports{
		Documents: documentService,
		Search:    searchService,
		Prompt:    promptService,
		Agent:     agentService,
		Chat:      chatService,
		Types:     fileTypes,
	}, httpapi.WithAllowedOrigins(serveOrigins...))
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", servePort)
	cmd.Printf("API listening on http://localhost%s\n", addr)
	return server.Run(cmd.Context(), addr)
}

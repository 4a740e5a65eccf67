// Package cli implements the sercha-chat command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-chat/internal/extractors"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

var verbose bool

// Services wired in by main. Commands check for nil before use so the
// command tree can be exercised without a full setup.
var (
	documentService driving.DocumentService
	searchService   driving.SearchService
	promptService   driving.PromptService
	agentService    driving.AgentService
	chatService     driving.ChatService
	settingsService driving.SettingsService
	fileTypes       httpapi.FileTypes
)

// Services holds everything the commands need.
type Services struct {
	Documents driving.DocumentService
	Search    driving.SearchService
	Prompt    driving.PromptService
	Agent     driving.AgentService
	Chat      driving.ChatService
	Settings  driving.SettingsService
	// FileTypes lets the API refuse unreadable uploads early. Optional.
	FileTypes httpapi.FileTypes
}

// SetServices installs the services used by every command.
func SetServices(s *Services) {
	documentService = s.Documents
	searchService = s.Search
	promptService = s.Prompt
	agentService = s.Agent
	chatService = s.Chat
	settingsService = s.Settings
	fileTypes = s.FileTypes
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "sercha-chat",
	Short: "Chat with a local LLM over your own documents",
	Long: `sercha-chat ingests documents, retrieves the passages relevant to a
question and sends them, together with the question, to an OpenAI-compatible
inference server such as llama.cpp, LM Studio or Ollama.

Inline tool calls like {{calculate(expression="2^10")}} are resolved before
a message is sent.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline details to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx. Long-running commands
// such as serve and watch stop when ctx is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// readRawFile loads a file from disk and detects its MIME type.
func readRawFile(path string) (*domain.RawFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	return &domain.RawFile{
		Name:     name,
		MIMEType: extractors.DetectMIMEType(name, content),
		Content:  content,
	}, nil
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/services"
	"github.com/custodia-labs/sercha-chat/internal/extractors"
	"github.com/custodia-labs/sercha-chat/internal/extractors/plaintext"
	"github.com/custodia-labs/sercha-chat/internal/tools"
)

// stubInference replies with a fixed answer, streamed word by word.
type stubInference struct {
	reply    string
	err      error
	messages []domain.ChatMessage
}

func (s *stubInference) StreamChat(
	_ context.Context,
	messages []domain.ChatMessage,
	_ driven.ChatOptions,
	onDelta func(string) error,
) (string, error) {
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	for _, w := range strings.SplitAfter(s.reply, " ") {
		if onDelta != nil {
			if err := onDelta(w); err != nil {
				return "", err
			}
		}
	}
	return s.reply, nil
}

func (s *stubInference) ModelName() string           { return "stub" }
func (s *stubInference) Ping(_ context.Context) error { return s.err }
func (s *stubInference) Close() error                 { return nil }

// testEnv gives tests access to the services behind the commands.
type testEnv struct {
	docs      *services.DocumentStore
	settings  *services.SettingsService
	inference *stubInference
}

// setupTestServices wires real services over in-memory stores with keyword
// retrieval and a stub inference server. Services are cleared on cleanup.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	registry := extractors.NewRegistry(plaintext.New())
	docs := services.NewDocumentStore(memory.NewKVStore(), registry, nil)

	keyword := domain.DefaultRetrievalSettings()
	keyword.RetrievalStrategy = domain.RetrievalKeyword
	keyword.SimilarityThreshold = 0
	keyword.MinChunkLength = 0
	require.NoError(t, docs.UpdateSettings(context.Background(), keyword))

	search := services.NewSearchService(docs, services.NewRetrievalEngine(nil))
	prompt := services.NewPromptAugmenter(search)
	agent := services.NewAgentDispatcher(tools.Defaults(search)...)
	inference := &stubInference{reply: "The harbour opens at dawn."}
	chat := services.NewChatService(inference, agent, prompt, domain.DefaultInferenceSettings())

	settings := services.NewSettingsService(memory.NewConfigStore())
	settings.SetDocumentService(docs)

	SetServices(&Services{
		Documents: docs,
		Search:    search,
		Prompt:    prompt,
		Agent:     agent,
		Chat:      chat,
		Settings:  settings,
	})
	t.Cleanup(func() { SetServices(&Services{}) })

	return &testEnv{docs: docs, settings: settings, inference: inference}
}

// runCommand executes the root command with args and returns its output.
// Flags are reset afterwards so state does not leak between tests.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeFile creates a file under a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const harbourNotes = `The harbour opens at dawn when the tide is high.

Fishing boats unload their catch on the north quay before the market starts.

The lighthouse keeper logs every ship that passes the breakwater.`

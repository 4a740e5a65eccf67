package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/config/file"
	pdfparser "github.com/custodia-labs/sercha-chat/internal/adapters/driven/pdf"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-chat/internal/core/services"
	"github.com/custodia-labs/sercha-chat/internal/extractors"
	"github.com/custodia-labs/sercha-chat/internal/extractors/docx"
	"github.com/custodia-labs/sercha-chat/internal/extractors/html"
	"github.com/custodia-labs/sercha-chat/internal/extractors/pdf"
	"github.com/custodia-labs/sercha-chat/internal/extractors/plaintext"
	"github.com/custodia-labs/sercha-chat/internal/logger"
	"github.com/custodia-labs/sercha-chat/internal/tools"
)

// version is set by the release build with -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	promptStore, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("opening prompts: %w", err)
	}

	kv, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer kv.Close()

	settingsService := services.NewSettingsService(configStore)
	settingsService.SetValidator(ai.NewConfigValidator())

	appSettings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	adapters := ai.Init(appSettings)
	defer adapters.Close()
	for _, w := range adapters.Warnings {
		logger.Warn("%s", w)
	}

	embedder := services.NewEmbeddingProvider(adapters.EmbeddingModel)
	if adapters.EmbeddingModel != nil {
		// Failure is logged by the provider; retrieval falls back to keyword.
		_ = embedder.LoadModel(ctx) //nolint:errcheck // see above
	}

	registry := extractors.NewRegistry(
		plaintext.New(),
		html.New(),
		pdf.New(pdfparser.NewParser()),
		docx.New(),
	)

	documents := services.NewDocumentStore(kv, registry, embedder)
	if err := documents.Load(ctx); err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	settingsService.SetDocumentService(documents)
	reconcileRetrieval(ctx, settingsService, documents)

	search := services.NewSearchService(documents, services.NewRetrievalEngine(embedder))

	augmenter := services.NewPromptAugmenter(search)
	augmenter.SetPromptStore(promptStore)

	agent := services.NewAgentDispatcher(tools.Defaults(search)...)

	chat := services.NewChatService(adapters.Inference, agent, augmenter, appSettings.Inference)
	chat.SetPromptStore(promptStore)

	cli.SetVersion(version)
	cli.SetServices(&cli.Services{
		Documents: documents,
		Search:    search,
		Prompt:    augmenter,
		Agent:     agent,
		Chat:      chat,
		Settings:  settingsService,
		FileTypes: registry,
	})

	return cli.ExecuteContext(ctx)
}

// reconcileRetrieval pushes retrieval settings edited in config.toml into
// the document store, which rechunks when a chunking field changed.
func reconcileRetrieval(ctx context.Context, settings *services.SettingsService, documents *services.DocumentStore) {
	current, err := settings.Get()
	if err != nil {
		logger.Warn("Reading retrieval settings: %v", err)
		return
	}
	if current.Retrieval == documents.Settings() {
		return
	}
	if err := documents.UpdateSettings(ctx, current.Retrieval); err != nil {
		logger.Warn("Ignoring retrieval settings from config: %v", err)
	}
}

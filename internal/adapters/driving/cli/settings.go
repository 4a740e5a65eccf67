package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

var settingsOutput string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure retrieval, embedding and inference settings.

Settings are stored in ~/.sercha-chat/config.toml. API keys may instead be
supplied through SERCHA_INFERENCE_API_KEY, SERCHA_EMBEDDING_API_KEY or
OPENAI_API_KEY.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its config key, for example:

  sercha-chat settings set retrieval.strategy keyword
  sercha-chat settings set retrieval.chunk_size 800
  sercha-chat settings set inference.stop "</s>,User:"

Changing a chunking setting rebuilds the chunks of every document.
Run 'sercha-chat settings keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure retrieval, embeddings and the inference server.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for semantic and hybrid retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsInferenceCmd = &cobra.Command{
	Use:   "inference",
	Short: "Configure the inference server",
	Long:  `Configure the OpenAI-compatible server that chat completions are sent to.`,
	RunE:  runSettingsInference,
}

func init() {
	addOutputFlag(settingsCmd, &settingsOutput)
	addOutputFlag(settingsShowCmd, &settingsOutput)

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsInferenceCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingsView is the structured form of the settings, with keys masked.
type settingsView struct {
	Retrieval domain.RetrievalSettings `json:"retrieval" yaml:"retrieval"`
	Embedding struct {
		Provider string `json:"provider" yaml:"provider"`
		Model    string `json:"model,omitempty" yaml:"model,omitempty"`
		BaseURL  string `json:"baseUrl,omitempty" yaml:"base_url,omitempty"`
		APIKey   string `json:"apiKey,omitempty" yaml:"api_key,omitempty"`
	} `json:"embedding" yaml:"embedding"`
	Inference struct {
		ServerURL        string   `json:"serverUrl" yaml:"server_url"`
		Model            string   `json:"model" yaml:"model"`
		APIKey           string   `json:"apiKey,omitempty" yaml:"api_key,omitempty"`
		Temperature      float64  `json:"temperature" yaml:"temperature"`
		TopP             float64  `json:"topP" yaml:"top_p"`
		FrequencyPenalty float64  `json:"frequencyPenalty" yaml:"frequency_penalty"`
		PresencePenalty  float64  `json:"presencePenalty" yaml:"presence_penalty"`
		MaxTokens        int      `json:"maxTokens" yaml:"max_tokens"`
		Stop             []string `json:"stop,omitempty" yaml:"stop,omitempty"`
		TimeoutSeconds   int      `json:"timeoutSeconds" yaml:"timeout_seconds"`
		MaxRetries       int      `json:"maxRetries" yaml:"max_retries"`
	} `json:"inference" yaml:"inference"`
}

func newSettingsView(s *domain.AppSettings) settingsView {
	var v settingsView
	v.Retrieval = s.Retrieval

	v.Embedding.Provider = s.Embedding.Provider.String()
	v.Embedding.Model = s.Embedding.Model
	v.Embedding.BaseURL = s.Embedding.BaseURL
	if s.Embedding.APIKey != "" {
		v.Embedding.APIKey = maskAPIKey(s.Embedding.APIKey)
	}

	inf := s.Inference
	v.Inference.ServerURL = inf.ServerURL
	v.Inference.Model = inf.Model
	if inf.APIKey != "" {
		v.Inference.APIKey = maskAPIKey(inf.APIKey)
	}
	v.Inference.Temperature = inf.Temperature
	v.Inference.TopP = inf.TopP
	v.Inference.FrequencyPenalty = inf.FrequencyPenalty
	v.Inference.PresencePenalty = inf.PresencePenalty
	v.Inference.MaxTokens = inf.MaxTokens
	v.Inference.Stop = inf.Stop
	v.Inference.TimeoutSeconds = int(inf.Timeout.Seconds())
	v.Inference.MaxRetries = inf.MaxRetries
	return v
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if done, err := printStructured(cmd, settingsOutput, newSettingsView(settings)); done || err != nil {
		return err
	}

	r := settings.Retrieval
	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Chunking: %s\n", r.ChunkingStrategy.Description())
	cmd.Printf("  Chunk size: %d (overlap %d, minimum %d)\n", r.ChunkSize, r.ChunkOverlap, r.MinChunkLength)
	cmd.Printf("  Strategy: %s\n", r.RetrievalStrategy.Description())
	cmd.Printf("  Top K: %d\n", r.TopK)
	cmd.Printf("  Similarity threshold: %.2f (unitless, compared with the %s score)\n", r.SimilarityThreshold, r.RetrievalStrategy)
	if r.RetrievalStrategy == domain.RetrievalHybrid {
		cmd.Printf("  Weights: keyword %.2f, semantic %.2f\n", r.KeywordWeight, r.SemanticWeight)
	}
	cmd.Println()

	e := settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", e.Provider.Description())
	if e.IsConfigured() {
		cmd.Printf("  Model: %s\n", e.Model)
		cmd.Printf("  Base URL: %s\n", e.BaseURL)
		if e.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(e.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Println()

	i := settings.Inference
	cmd.Println("[Inference]")
	cmd.Printf("  Server: %s\n", i.ServerURL)
	cmd.Printf("  Model: %s\n", i.Model)
	if i.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(i.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Printf("  Temperature: %.2f, top-p: %.2f, max tokens: %d\n", i.Temperature, i.TopP, i.MaxTokens)
	if len(i.Stop) > 0 {
		cmd.Printf("  Stop: %s\n", strings.Join(i.Stop, ", "))
	}
	cmd.Printf("  Timeout: %s, retries: %d\n", i.Timeout, i.MaxRetries)
	cmd.Println()

	if r.RetrievalStrategy.RequiresEmbedding() && !e.IsConfigured() {
		cmd.Printf("Warning: %s retrieval needs an embedding provider; keyword scores are used instead.\n",
			r.RetrievalStrategy)
		cmd.Println("Run 'sercha-chat settings embedding' to configure one.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.SetValue(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}

	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("Sercha Chat Settings Wizard")
	cmd.Println("===========================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Retrieval")
	cmd.Println("-----------------")
	if err := configureRetrieval(cmd, reader); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.Retrieval.RetrievalStrategy.RequiresEmbedding() {
		cmd.Println("Step 2: Embedding Provider")
		cmd.Println("--------------------------")
		if err := configureEmbeddingProvider(cmd, reader); err != nil {
			return err
		}
	} else {
		cmd.Println("Step 2: Embedding Provider (skipped)")
		cmd.Println("------------------------------------")
		cmd.Println("Not required for keyword retrieval.")
		cmd.Println()
	}

	cmd.Println("Step 3: Inference Server")
	cmd.Println("------------------------")
	if err := configureInferenceServer(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsInference(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureInferenceServer(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func configureRetrieval(cmd *cobra.Command, reader *bufio.Reader) error {
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	r := settings.Retrieval

	strategies := domain.AllRetrievalStrategies()
	cmd.Println("Select retrieval strategy")
	for i, s := range strategies {
		cmd.Printf("  %d. %s\n", i+1, s.Description())
	}
	cmd.Printf("\nEnter choice [%d]: ", indexOf(strategies, r.RetrievalStrategy))
	r.RetrievalStrategy = strategies[parseChoice(readLine(reader), len(strategies), indexOf(strategies, r.RetrievalStrategy))-1]

	chunkers := domain.AllChunkingStrategies()
	cmd.Println("Select chunking strategy")
	for i, c := range chunkers {
		cmd.Printf("  %d. %s\n", i+1, c.Description())
	}
	cmd.Printf("\nEnter choice [%d]: ", indexOf(chunkers, r.ChunkingStrategy))
	r.ChunkingStrategy = chunkers[parseChoice(readLine(reader), len(chunkers), indexOf(chunkers, r.ChunkingStrategy))-1]

	cmd.Printf("Chunk size [%d]: ", r.ChunkSize)
	r.ChunkSize = parseIntDefault(readLine(reader), r.ChunkSize)
	cmd.Printf("Chunk overlap [%d]: ", r.ChunkOverlap)
	r.ChunkOverlap = parseIntDefault(readLine(reader), r.ChunkOverlap)
	cmd.Printf("Top K [%d]: ", r.TopK)
	r.TopK = parseIntDefault(readLine(reader), r.TopK)

	if err := settingsService.SetRetrieval(cmd.Context(), r); err != nil {
		return fmt.Errorf("failed to set retrieval settings: %w", err)
	}
	cmd.Printf("Retrieval set to %s over %s chunks\n\n", r.RetrievalStrategy, r.ChunkingStrategy)
	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	providers := []domain.AIProvider{domain.AIProviderOllama, domain.AIProviderOpenAI, domain.AIProviderNone}
	cmd.Println("Select Embedding Provider")
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	if selected == domain.AIProviderNone {
		if err := settingsService.SetEmbeddingProvider(selected, "", "", ""); err != nil {
			return fmt.Errorf("failed to configure embedding provider: %w", err)
		}
		cmd.Println("Embeddings disabled; retrieval will use keyword scores.")
		cmd.Println()
		return nil
	}

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	defaultURL := "http://localhost:11434"
	if selected == domain.AIProviderOpenAI {
		defaultURL = "https://api.openai.com/v1"
	}
	cmd.Printf("Enter base URL [%s]: ", defaultURL)
	baseURL := readLine(reader)
	if baseURL == "" {
		baseURL = defaultURL
	}

	var apiKey string
	if selected == domain.AIProviderOpenAI {
		cmd.Print("Enter API key (blank to use the environment): ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := settingsService.SetEmbeddingProvider(selected, model, baseURL, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selected.Description(), model)
	return nil
}

func configureInferenceServer(cmd *cobra.Command, reader *bufio.Reader) error {
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	current := settings.Inference

	cmd.Printf("Enter server URL [%s]: ", current.ServerURL)
	serverURL := readLine(reader)
	if serverURL == "" {
		serverURL = current.ServerURL
	}

	cmd.Printf("Enter model name [%s]: ", current.Model)
	model := readLine(reader)
	if model == "" {
		model = current.Model
	}

	cmd.Print("Enter API key (blank to keep the current one): ")
	apiKey := readPassword(cmd.InOrStdin(), reader)
	cmd.Println()
	if apiKey == "" {
		apiKey = current.APIKey
	}

	if err := settingsService.SetInferenceServer(serverURL, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure inference server: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateInferenceConfig(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("inference configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Inference server configured: %s (%s)\n\n", serverURL, model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func parseIntDefault(input string, defaultVal int) int {
	val, err := strconv.Atoi(input)
	if err != nil {
		return defaultVal
	}
	return val
}

// indexOf returns the 1-based position of v in list, or 1 if absent.
func indexOf[T comparable](list []T, v T) int {
	for i, item := range list {
		if item == v {
			return i + 1
		}
	}
	return 1
}

// readPassword reads without echo when in is the terminal, and falls back
// to a plain line read otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

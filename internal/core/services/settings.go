package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-chat/internal/chunker"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyChunkingStrategy    = "retrieval.chunking_strategy"
	KeyChunkSize           = "retrieval.chunk_size"
	KeyChunkOverlap        = "retrieval.chunk_overlap"
	KeyMinChunkLength      = "retrieval.min_chunk_length"
	KeyRetrievalStrategy   = "retrieval.strategy"
	KeyTopK                = "retrieval.top_k"
	KeySimilarityThreshold = "retrieval.similarity_threshold"
	KeyKeywordWeight       = "retrieval.keyword_weight"
	KeySemanticWeight      = "retrieval.semantic_weight"

	KeyEmbedProvider = "embedding.provider"
	KeyEmbedModel    = "embedding.model"
	KeyEmbedBaseURL  = "embedding.base_url"
	KeyEmbedAPIKey   = "embedding.api_key"

	KeyInferenceServerURL = "inference.server_url"
	KeyInferenceModel     = "inference.model"
	KeyInferenceAPIKey    = "inference.api_key"
	KeyTemperature        = "inference.temperature"
	KeyTopP               = "inference.top_p"
	KeyFrequencyPenalty   = "inference.frequency_penalty"
	KeyPresencePenalty    = "inference.presence_penalty"
	KeyMaxTokens          = "inference.max_tokens"
	KeyStop               = "inference.stop"
	KeyTimeoutSeconds     = "inference.timeout_seconds"
	KeyMaxRetries         = "inference.max_retries"
	KeySystemPrompt       = "inference.system_prompt"
)

// Environment variables consulted when the config file holds no API key.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvInferenceAPIKey = "SERCHA_INFERENCE_API_KEY"
	EnvEmbeddingAPIKey = "SERCHA_EMBEDDING_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService maps the config file onto typed settings.
type SettingsService struct {
	configStore driven.ConfigStore
	docs        driving.DocumentService
	validator   driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// SetDocumentService attaches the document store. Retrieval settings are
// then read on top of the store's persisted settings, and changes are
// pushed to it.
func (s *SettingsService) SetDocumentService(docs driving.DocumentService) {
	s.docs = docs
}

// SetValidator sets the validator used by the Validate*Config methods.
func (s *SettingsService) SetValidator(v driven.AIConfigValidator) {
	s.validator = v
}

// Get retrieves current application settings. Keys absent from the config
// file keep their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	base := defaults.Retrieval
	if s.docs != nil {
		base = s.docs.Settings()
	}

	settings := &domain.AppSettings{
		Retrieval: domain.RetrievalSettings{
			ChunkingStrategy:    domain.ChunkingStrategy(s.getString(KeyChunkingStrategy, string(base.ChunkingStrategy))),
			ChunkSize:           s.getInt(KeyChunkSize, base.ChunkSize),
			ChunkOverlap:        s.getInt(KeyChunkOverlap, base.ChunkOverlap),
			MinChunkLength:      s.getInt(KeyMinChunkLength, base.MinChunkLength),
			RetrievalStrategy:   domain.RetrievalStrategy(s.getString(KeyRetrievalStrategy, string(base.RetrievalStrategy))),
			TopK:                s.getInt(KeyTopK, base.TopK),
			SimilarityThreshold: s.getFloat(KeySimilarityThreshold, base.SimilarityThreshold),
			KeywordWeight:       s.getFloat(KeyKeywordWeight, base.KeywordWeight),
			SemanticWeight:      s.getFloat(KeySemanticWeight, base.SemanticWeight),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(),
			Model:    s.configStore.GetString(KeyEmbedModel),
			BaseURL:  s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:   s.configStore.GetString(KeyEmbedAPIKey),
		},
		Inference: domain.InferenceSettings{
			ServerURL:        s.getString(KeyInferenceServerURL, defaults.Inference.ServerURL),
			Model:            s.getString(KeyInferenceModel, defaults.Inference.Model),
			APIKey:           s.configStore.GetString(KeyInferenceAPIKey),
			Temperature:      s.getFloat(KeyTemperature, defaults.Inference.Temperature),
			TopP:             s.getFloat(KeyTopP, defaults.Inference.TopP),
			FrequencyPenalty: s.getFloat(KeyFrequencyPenalty, defaults.Inference.FrequencyPenalty),
			PresencePenalty:  s.getFloat(KeyPresencePenalty, defaults.Inference.PresencePenalty),
			MaxTokens:        s.getInt(KeyMaxTokens, defaults.Inference.MaxTokens),
			Stop:             s.configStore.GetStringSlice(KeyStop),
			Timeout:          time.Duration(s.getInt(KeyTimeoutSeconds, int(defaults.Inference.Timeout/time.Second))) * time.Second,
			MaxRetries:       s.getInt(KeyMaxRetries, defaults.Inference.MaxRetries),
			SystemPrompt:     s.configStore.GetString(KeySystemPrompt),
		},
	}

	if settings.Embedding.IsConfigured() && settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider == domain.AIProviderOpenAI {
		settings.Embedding.APIKey = s.firstEnv(EnvEmbeddingAPIKey, EnvOpenAIAPIKey)
	}
	if settings.Inference.APIKey == "" {
		settings.Inference.APIKey = s.firstEnv(EnvInferenceAPIKey, EnvOpenAIAPIKey)
	}

	return settings, nil
}

// Save persists application settings. Empty API keys are not written, so
// keys supplied through the environment never end up in the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Retrieval.Validate(); err != nil {
		return err
	}
	if err := s.saveRetrieval(settings.Retrieval); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{KeyEmbedProvider, settings.Embedding.Provider.String()},
		{KeyEmbedModel, settings.Embedding.Model},
		{KeyEmbedBaseURL, settings.Embedding.BaseURL},
		{KeyInferenceServerURL, settings.Inference.ServerURL},
		{KeyInferenceModel, settings.Inference.Model},
		{KeyTemperature, settings.Inference.Temperature},
		{KeyTopP, settings.Inference.TopP},
		{KeyFrequencyPenalty, settings.Inference.FrequencyPenalty},
		{KeyPresencePenalty, settings.Inference.PresencePenalty},
		{KeyMaxTokens, settings.Inference.MaxTokens},
		{KeyTimeoutSeconds, int(settings.Inference.Timeout / time.Second)},
		{KeyMaxRetries, settings.Inference.MaxRetries},
		{KeySystemPrompt, settings.Inference.SystemPrompt},
	}
	if len(settings.Inference.Stop) > 0 {
		values = append(values, struct {
			key   string
			value any
		}{KeyStop, settings.Inference.Stop})
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.firstEnv(EnvEmbeddingAPIKey, EnvOpenAIAPIKey) {
		if err := s.configStore.Set(KeyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.Inference.APIKey != "" && settings.Inference.APIKey != s.firstEnv(EnvInferenceAPIKey, EnvOpenAIAPIKey) {
		if err := s.configStore.Set(KeyInferenceAPIKey, settings.Inference.APIKey); err != nil {
			return fmt.Errorf("save inference api_key: %w", err)
		}
	}

	return nil
}

func (s *SettingsService) saveRetrieval(r domain.RetrievalSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{KeyChunkingStrategy, r.ChunkingStrategy.String()},
		{KeyChunkSize, r.ChunkSize},
		{KeyChunkOverlap, r.ChunkOverlap},
		{KeyMinChunkLength, r.MinChunkLength},
		{KeyRetrievalStrategy, r.RetrievalStrategy.String()},
		{KeyTopK, r.TopK},
		{KeySimilarityThreshold, r.SimilarityThreshold},
		{KeyKeywordWeight, r.KeywordWeight},
		{KeySemanticWeight, r.SemanticWeight},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetRetrieval validates and stores retrieval settings. The document store
// is updated first so a failed reprocess leaves the file untouched.
func (s *SettingsService) SetRetrieval(ctx context.Context, settings domain.RetrievalSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if s.docs != nil {
		if err := s.docs.UpdateSettings(ctx, settings); err != nil {
			return fmt.Errorf("update document store: %w", err)
		}
	}
	return s.saveRetrieval(settings)
}

// SetEmbeddingProvider configures the embedding provider. AIProviderNone
// disables embeddings.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, baseURL, apiKey string) error {
	if provider != domain.AIProviderNone && !provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, provider)
	}
	if baseURL != "" {
		if err := validateURL(baseURL); err != nil {
			return err
		}
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding = domain.EmbeddingSettings{Provider: provider, Model: model, BaseURL: baseURL, APIKey: apiKey}
	if provider.IsValid() && model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	if provider == domain.AIProviderOllama && baseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaURL
	}

	return s.Save(settings)
}

// SetInferenceServer configures the chat completion server.
func (s *SettingsService) SetInferenceServer(serverURL, model, apiKey string) error {
	if err := validateURL(serverURL); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Inference.ServerURL = strings.TrimRight(serverURL, "/")
	if model != "" {
		settings.Inference.Model = model
	}
	if apiKey != "" {
		settings.Inference.APIKey = apiKey
	}

	return s.Save(settings)
}

// SetValue parses raw for a single known key and stores it. Retrieval keys
// go through SetRetrieval.
func (s *SettingsService) SetValue(ctx context.Context, key, raw string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	r := &settings.Retrieval
	in := &settings.Inference
	var perr error
	switch key {
	case KeyChunkingStrategy:
		r.ChunkingStrategy = domain.ChunkingStrategy(raw)
		if !chunker.Has(r.ChunkingStrategy) {
			strategies := chunker.Strategies()
			names := make([]string, len(strategies))
			for i, st := range strategies {
				names[i] = st.String()
			}
			return fmt.Errorf("%w: unknown chunking strategy %q, choose one of: %s",
				domain.ErrInvalidInput, raw, strings.Join(names, ", "))
		}
	case KeyChunkSize:
		r.ChunkSize, perr = strconv.Atoi(raw)
	case KeyChunkOverlap:
		r.ChunkOverlap, perr = strconv.Atoi(raw)
	case KeyMinChunkLength:
		r.MinChunkLength, perr = strconv.Atoi(raw)
	case KeyRetrievalStrategy:
		r.RetrievalStrategy = domain.RetrievalStrategy(raw)
	case KeyTopK:
		r.TopK, perr = strconv.Atoi(raw)
	case KeySimilarityThreshold:
		r.SimilarityThreshold, perr = strconv.ParseFloat(raw, 64)
	case KeyKeywordWeight:
		r.KeywordWeight, perr = strconv.ParseFloat(raw, 64)
	case KeySemanticWeight:
		r.SemanticWeight, perr = strconv.ParseFloat(raw, 64)

	case KeyEmbedProvider:
		provider := domain.AIProvider(raw)
		if raw == "none" {
			provider = domain.AIProviderNone
		}
		return s.SetEmbeddingProvider(provider, "", settings.Embedding.BaseURL, settings.Embedding.APIKey)
	case KeyEmbedModel:
		settings.Embedding.Model = raw
	case KeyEmbedBaseURL:
		perr = validateURL(raw)
		settings.Embedding.BaseURL = raw
	case KeyEmbedAPIKey:
		settings.Embedding.APIKey = raw

	case KeyInferenceServerURL:
		return s.SetInferenceServer(raw, "", "")
	case KeyInferenceModel:
		in.Model = raw
	case KeyInferenceAPIKey:
		in.APIKey = raw
	case KeyTemperature:
		in.Temperature, perr = strconv.ParseFloat(raw, 64)
	case KeyTopP:
		in.TopP, perr = strconv.ParseFloat(raw, 64)
	case KeyFrequencyPenalty:
		in.FrequencyPenalty, perr = strconv.ParseFloat(raw, 64)
	case KeyPresencePenalty:
		in.PresencePenalty, perr = strconv.ParseFloat(raw, 64)
	case KeyMaxTokens:
		in.MaxTokens, perr = strconv.Atoi(raw)
	case KeyStop:
		in.Stop = splitList(raw)
	case KeyTimeoutSeconds:
		var secs int
		secs, perr = strconv.Atoi(raw)
		in.Timeout = time.Duration(secs) * time.Second
	case KeyMaxRetries:
		in.MaxRetries, perr = strconv.Atoi(raw)
	case KeySystemPrompt:
		in.SystemPrompt = raw
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if perr != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, perr)
	}

	if strings.HasPrefix(key, "retrieval.") {
		return s.SetRetrieval(ctx, settings.Retrieval)
	}
	return s.Save(settings)
}

// Keys lists every setting SetValue accepts.
func (s *SettingsService) Keys() []string {
	keys := []string{
		KeyChunkingStrategy, KeyChunkSize, KeyChunkOverlap, KeyMinChunkLength,
		KeyRetrievalStrategy, KeyTopK, KeySimilarityThreshold, KeyKeywordWeight, KeySemanticWeight,
		KeyEmbedProvider, KeyEmbedModel, KeyEmbedBaseURL, KeyEmbedAPIKey,
		KeyInferenceServerURL, KeyInferenceModel, KeyInferenceAPIKey, KeyTemperature, KeyTopP,
		KeyFrequencyPenalty, KeyPresencePenalty, KeyMaxTokens, KeyStop, KeyTimeoutSeconds,
		KeyMaxRetries, KeySystemPrompt,
	}
	slices.Sort(keys)
	return keys
}

// ValidateEmbeddingConfig pings the configured embedding provider.
// Without a validator it only checks that settings load.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if s.validator == nil {
		return nil
	}
	return s.validator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateInferenceConfig pings the configured inference server.
func (s *SettingsService) ValidateInferenceConfig(ctx context.Context) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if s.validator == nil {
		return nil
	}
	return s.validator.ValidateInference(ctx, settings.Inference)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (s *SettingsService) getString(key, def string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return def
}

func (s *SettingsService) getInt(key string, def int) int {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetInt(key)
	}
	return def
}

func (s *SettingsService) getFloat(key string, def float64) float64 {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetFloat(key)
	}
	return def
}

func (s *SettingsService) getProvider() domain.AIProvider {
	p := domain.AIProvider(s.configStore.GetString(KeyEmbedProvider))
	if p.IsValid() {
		return p
	}
	return domain.AIProviderNone
}

func (s *SettingsService) firstEnv(names ...string) string {
	for _, name := range names {
		if v := s.getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) URL", domain.ErrInvalidInput, raw)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

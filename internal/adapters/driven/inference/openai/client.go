// Package openai provides an InferenceClient for OpenAI-compatible chat
// completion servers (llama.cpp server, LM Studio, vLLM, Ollama's /v1, OpenAI).
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.InferenceClient = (*Client)(nil)

// Default configuration values.
const (
	DefaultServerURL  = "http://localhost:8080"
	DefaultModel      = "local-model"
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 2
)

// Config holds configuration for the inference client.
type Config struct {
	// ServerURL is the server root; requests go to {ServerURL}/v1/chat/completions.
	ServerURL string

	// Model is sent with every request.
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds one attempt, including reading the stream.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Negative means no retries.
	MaxRetries int

	// RateLimit throttles requests (default: ratelimit.LocalDefaults).
	RateLimit *ratelimit.Config
}

// Client streams chat completions through go-openai.
type Client struct {
	client     *openai.Client
	http       *http.Client
	limiter    *ratelimit.Limiter
	model      string
	timeout    time.Duration
	maxRetries int
}

// New creates an inference client.
func New(cfg Config) *Client {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limits := ratelimit.LocalDefaults
	if cfg.RateLimit != nil {
		limits = *cfg.RateLimit
	}

	// The per-attempt context carries the timeout; a client-level timeout
	// would cut long streams short.
	httpClient := &http.Client{}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.ServerURL, "/") + "/v1"
	clientCfg.HTTPClient = httpClient

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		http:       httpClient,
		limiter:    ratelimit.New(limits),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
	}
}

// streamAbortedError marks an error returned by the caller's onDelta.
type streamAbortedError struct{ err error }

func (e *streamAbortedError) Error() string { return "stream aborted: " + e.err.Error() }
func (e *streamAbortedError) Unwrap() error { return e.err }

// StreamChat sends messages with stream enabled and relays content deltas.
// Connection failures, 429 and 5xx responses are retried with exponential
// backoff as long as no delta has been delivered.
func (c *Client) StreamChat(
	ctx context.Context,
	messages []domain.ChatMessage,
	opts driven.ChatOptions,
	onDelta func(string) error,
) (string, error) {
	req := c.request(messages, opts)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := ratelimit.Backoff(attempt - 1)
			logger.Warn("inference attempt %d failed (%v), retrying in %s", attempt, lastErr, delay)
			if err := ratelimit.Sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		reply, started, err := c.attempt(ctx, req, onDelta)
		if err == nil {
			return reply, nil
		}

		var aborted *streamAbortedError
		if errors.As(err, &aborted) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		lastErr = err
		if started || !retryable(err) {
			break
		}
	}

	return "", fmt.Errorf("%w: %v", domain.ErrInferenceUnavailable, lastErr)
}

// attempt runs one request. started reports whether any delta reached onDelta.
func (c *Client) attempt(
	ctx context.Context,
	req openai.ChatCompletionRequest,
	onDelta func(string) error,
) (reply string, started bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", false, err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), started, nil
		}
		if err != nil {
			return "", started, err
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		started = true
		sb.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return "", started, &streamAbortedError{err: err}
			}
		}
	}
}

func (c *Client) request(messages []domain.ChatMessage, opts driven.ChatOptions) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	req := openai.ChatCompletionRequest{
		Model:            c.model,
		Messages:         msgs,
		Stream:           true,
		Temperature:      float32(opts.Temperature),
		TopP:             float32(opts.TopP),
		FrequencyPenalty: float32(opts.FrequencyPenalty),
		PresencePenalty:  float32(opts.PresencePenalty),
		MaxTokens:        opts.MaxTokens,
	}
	if len(opts.Stop) > 0 {
		req.Stop = opts.Stop
	}
	return req
}

// retryable reports whether err is transient: a transport failure, an
// attempt timeout, 429 or a 5xx status.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// ModelName returns the model requests are sent for.
func (c *Client) ModelName() string {
	return c.model
}

// Ping lists the server's models.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInferenceUnavailable, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Package gemini wraps the Google Gemini API for text completion and
// embeddings, with retries on transient server errors and a circuit
// breaker around the whole API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/baristabot/internal/config"
	"github.com/edgard/baristabot/internal/resilience"
)

// Client is the Gemini-backed completer and embedder.
type Client struct {
	genaiClient    *genai.Client
	log            *slog.Logger
	contentConfig  *genai.GenerateContentConfig
	modelName      string
	embeddingModel string
	maxRetries     int
	retryDelay     time.Duration
	breaker        *resilience.CircuitBreaker
}

// NewClient creates a Gemini client from configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	instruction := cfg.SystemInstruction
	if instruction == "" {
		instruction = DefaultSystemInstruction
	}

	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName, "embedding_model", cfg.EmbeddingModel)
	return &Client{
		genaiClient:    gi,
		log:            logger,
		contentConfig:  baseCfg,
		modelName:      cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     time.Duration(cfg.RetryDelaySeconds) * time.Second,
		breaker: resilience.NewCircuitBreaker(resilience.BreakerConfig{
			Name:        "gemini",
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
			IsFailure:   isServiceFailure,
			Logger:      log,
		}),
	}, nil
}

// isRetriable reports whether err is a Gemini server-side failure worth retrying.
func isRetriable(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && (apiErrPtr.Code == 500 || apiErrPtr.Code == 503) {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// isServiceFailure reports whether err says the API itself is unhealthy.
// Caller mistakes (4xx) and our own cancellations do not count.
func isServiceFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == 429
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code >= 500 || apiErrPtr.Code == 429
	}
	return true
}

// call runs fn with retries, guarded by the client's breaker.
func call[T any](ctx context.Context, c *Client, op string, fn func() (T, error)) (T, error) {
	res, err := resilience.Execute(c.breaker, func() (T, error) {
		return withRetries(ctx, c.log, op, c.maxRetries, c.retryDelay, fn)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.log.WarnContext(ctx, "Gemini circuit open, failing fast", "operation", op)
		return res, fmt.Errorf("gemini %s unavailable: %w", op, err)
	}
	return res, err
}

// withRetries calls fn until it succeeds, fails with a non-retriable error,
// or maxRetries retries have been spent. The wait between attempts honours ctx.
func withRetries[T any](ctx context.Context, log *slog.Logger, op string, maxRetries int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	for i := 0; ; i++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		log.WarnContext(ctx, "Gemini API call failed, checking for retry", "operation", op, "attempt", i+1, "max_retries", maxRetries, "error", err)

		code, retriable := isRetriable(err)
		if !retriable {
			log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "operation", op, "error", err)
			return zero, fmt.Errorf("gemini %s failed: %w", op, err)
		}
		if i >= maxRetries {
			log.ErrorContext(ctx, "Gemini API call failed after max retries", "operation", op, "code", code, "error", err)
			return zero, fmt.Errorf("gemini %s failed after %d retries (APIError code %d): %w", op, maxRetries, code, err)
		}

		log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "operation", op, "delay", delay, "code", code)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Complete sends a fully built prompt as a single user turn and returns the
// model's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	c.log.DebugContext(ctx, "Generating completion", "prompt_length", len(prompt))

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := call(ctx, c, "completion", func() (*genai.GenerateContentResponse, error) {
		return c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, c.contentConfig)
	})
	if err != nil {
		return "", err
	}

	return c.extractTextFromResponse(ctx, resp)
}

// EmbedDocuments embeds texts for storage in the retrieval index.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, taskRetrievalDocument)
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := call(ctx, c, "embedding", func() (*genai.EmbedContentResponse, error) {
		return c.genaiClient.Models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{TaskType: task})
	})
	if err != nil {
		return nil, err
	}

	return embeddingValues(resp, len(texts))
}

func embeddingValues(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", got, want)
	}

	out := make([][]float32, want)
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at index %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

func (c *Client) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("completion returned no response")
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("completion blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("completion returned no content, finish reason: %s", finishReason)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("completion returned empty text")
	}
	return text, nil
}

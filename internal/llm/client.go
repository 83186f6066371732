// Package llm wraps the OpenAI-compatible completion and embedding APIs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/observability"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

// ErrMissingAPIKey is returned when no credentials are configured.
var ErrMissingAPIKey = errors.New("llm: api key not configured")

// Request is a single chat completion.
type Request struct {
	Operation   string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	JSON        bool
}

// Completer produces one text completion per request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// OpenAIClient implements Completer and Embedder with go-openai.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
	logger         *zap.Logger
	metrics        *observability.Metrics
}

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger, metrics *observability.Metrics) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return NewOpenAIClientWithConfig(clientCfg, cfg.Model, cfg.EmbeddingModel, cfg.RequestTimeout(), logger, metrics), nil
}

// NewOpenAIClientWithConfig builds a client against any OpenAI-compatible endpoint.
func NewOpenAIClientWithConfig(clientCfg openai.ClientConfig, model, embeddingModel string, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *OpenAIClient {
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          model,
		embeddingModel: embeddingModel,
		timeout:        timeout,
		logger:         observability.Component(logger, "llm"),
		metrics:        metrics,
	}
}

// Model returns the embedding model name.
func (c *OpenAIClient) Model() string {
	return c.embeddingModel
}

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	op := req.Operation
	if op == "" {
		op = "completion"
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	}
	if req.System != "" {
		chatReq.Messages = append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
		}, chatReq.Messages...)
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.metrics.RecordLLMCall(c.model, op, "error", time.Since(start))
		c.logger.Warn("completion failed", zap.String("operation", op), zap.Error(err))
		return "", Classify(op, err)
	}
	c.metrics.RecordLLMCall(c.model, op, "ok", time.Since(start))
	c.metrics.RecordTokens(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", apperrors.Malformed(op, "", errors.New("completion returned no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed returns the embedding of text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "embedding"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		c.metrics.RecordLLMCall(c.embeddingModel, op, "error", time.Since(start))
		return nil, Classify(op, err)
	}
	c.metrics.RecordLLMCall(c.embeddingModel, op, "ok", time.Since(start))
	c.metrics.RecordTokens(c.embeddingModel, resp.Usage.PromptTokens, 0)

	if len(resp.Data) == 0 {
		return nil, apperrors.Malformed(op, "", errors.New("embedding response is empty"))
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Classify maps a client error to the analysis error taxonomy.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Fatal(op, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return byStatus(op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return byStatus(op, reqErr.HTTPStatusCode, err)
	}
	// Transport failures and per-call deadlines.
	return apperrors.Retryable(op, err)
}

func byStatus(op string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= http.StatusInternalServerError:
		return apperrors.Retryable(op, err)
	case status == 0:
		return apperrors.Retryable(op, err)
	default:
		return apperrors.Fatal(op, fmt.Errorf("status %d: %w", status, err))
	}
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/skyvisionhq/skyvision/domain/search"
)

// errEmbeddingCountMismatch indicates a response with fewer vectors than
// inputs. Retryable: overloaded endpoints shed load behind a 200 status.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// errUpstreamProviderFailure indicates an HTTP 200 whose body carries an
// error instead of embeddings. Routing services like OpenRouter respond this
// way when every upstream is down, and go-openai parses the body as an empty
// response. Not retryable.
var errUpstreamProviderFailure = errors.New("upstream provider failure")

// OpenAIProvider embeds texts through any OpenAI-compatible /v1/embeddings
// endpoint. It is text-only: image queries and image-preferred seeding need
// the CLIP provider instead.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
	retry     retryPolicy
}

// OpenAIOption is a functional option for OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) { p.model = model }
}

// WithDimension sets the requested embedding dimension. The
// text-embedding-3 family supports server-side shortening to this size.
func WithDimension(dim int) OpenAIOption {
	return func(p *OpenAIProvider) { p.dimension = dim }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) OpenAIOption {
	return func(p *OpenAIProvider) { p.retry.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) OpenAIOption {
	return func(p *OpenAIProvider) { p.retry.initialDelay = d }
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) OpenAIOption {
	return func(p *OpenAIProvider) { p.retry.backoffFactor = f }
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     "text-embedding-3-small",
		dimension: 512,
		retry:     defaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Dimension      int
	Timeout        time.Duration
	MaxRetries     int
	InitialDelay   time.Duration
	BackoffFactor  float64
	HTTPClient     *http.Client
}

// NewOpenAIProviderFromConfig creates a provider from configuration.
func NewOpenAIProviderFromConfig(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)

	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	client := openai.NewClientWithConfig(config)

	model := cfg.EmbeddingModel
	if model == "" {
		model = "text-embedding-3-small"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 512
	}

	return &OpenAIProvider{
		client:    client,
		model:     model,
		dimension: dimension,
		retry:     defaultRetryPolicy().withOverrides(cfg.MaxRetries, cfg.InitialDelay, cfg.BackoffFactor),
	}
}

// Dimension returns the requested embedding dimension.
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// ModelID returns the embedding model identifier.
func (p *OpenAIProvider) ModelID() string { return p.model }

// SupportsImages returns false; OpenAI embedding endpoints take text only.
func (p *OpenAIProvider) SupportsImages() bool { return false }

// Close is a no-op for the OpenAI provider.
func (p *OpenAIProvider) Close() error { return nil }

// EmbedTexts generates embeddings for the given texts in a single API call.
func (p *OpenAIProvider) EmbedTexts(ctx context.Context, texts []string) ([]search.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	openaiReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	}
	if p.dimension > 0 {
		openaiReq.Dimensions = p.dimension
	}

	var resp openai.EmbeddingResponse
	var err error

	err = p.retry.run(ctx, p.isRetryable, func() error {
		resp, err = p.client.CreateEmbeddings(ctx, openaiReq)
		if err != nil {
			return err
		}
		return validateEmbeddingResponse(resp, len(texts))
	})
	if err != nil {
		return nil, p.wrapError("embedding", err)
	}

	vectors := make([]search.Vector, len(resp.Data))
	for i, data := range resp.Data {
		floats := make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			floats[j] = float64(v)
		}
		vectors[i] = search.NewVector(floats)
	}
	return vectors, nil
}

// validateEmbeddingResponse rejects responses that came back 200 without the
// requested vectors. An entirely blank response, no model and no token usage
// either, means the upstream behind a routing provider is down; anything
// else with the wrong count is transient load shedding.
func validateEmbeddingResponse(resp openai.EmbeddingResponse, want int) error {
	if len(resp.Data) == 0 && string(resp.Model) == "" && resp.Usage.TotalTokens == 0 {
		return fmt.Errorf("%w: HTTP 200 with no embedding data, no model, and zero usage", errUpstreamProviderFailure)
	}
	if len(resp.Data) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), want)
	}
	return nil
}

// EmbedImages is unsupported on OpenAI embedding endpoints.
func (p *OpenAIProvider) EmbedImages(ctx context.Context, images [][]byte) ([]search.Vector, error) {
	return nil, search.ErrImagesUnsupported
}

// isRetryable determines if an error should be retried. Count mismatches,
// client timeouts, transport-level request errors, and the usual transient
// HTTP statuses qualify.
func (p *OpenAIProvider) isRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

// wrapError wraps an OpenAI error into a ProviderError.
func (p *OpenAIProvider) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

// Ensure OpenAIProvider implements the embedder interface.
var _ search.Embedder = (*OpenAIProvider)(nil)

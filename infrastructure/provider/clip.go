package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/skyvisionhq/skyvision/domain/search"
)

// ClipProvider embeds texts and images through a CLIP inference server over
// HTTP JSON. Both modalities land in the same vector space, which is what
// makes image queries against text-embedded entities work.
type ClipProvider struct {
	baseURL    string
	model      string
	dimension  int
	retry      retryPolicy
	httpClient *http.Client
}

// ClipOption is a functional option for ClipProvider.
type ClipOption func(*ClipProvider)

// WithClipModel sets the CLIP model identifier sent with each request.
func WithClipModel(model string) ClipOption {
	return func(p *ClipProvider) { p.model = model }
}

// WithClipDimension sets the expected embedding dimension.
func WithClipDimension(dim int) ClipOption {
	return func(p *ClipProvider) { p.dimension = dim }
}

// WithClipMaxRetries sets the maximum retry count.
func WithClipMaxRetries(n int) ClipOption {
	return func(p *ClipProvider) { p.retry.maxRetries = n }
}

// WithClipInitialDelay sets the initial retry delay.
func WithClipInitialDelay(d time.Duration) ClipOption {
	return func(p *ClipProvider) { p.retry.initialDelay = d }
}

// WithClipBackoffFactor sets the backoff multiplier.
func WithClipBackoffFactor(f float64) ClipOption {
	return func(p *ClipProvider) { p.retry.backoffFactor = f }
}

// WithClipTimeout sets the HTTP timeout.
func WithClipTimeout(d time.Duration) ClipOption {
	return func(p *ClipProvider) { p.httpClient.Timeout = d }
}

// WithClipHTTPClient sets the HTTP client, e.g. one carrying a
// CachingTransport.
func WithClipHTTPClient(client *http.Client) ClipOption {
	return func(p *ClipProvider) { p.httpClient = client }
}

// NewClipProvider creates a provider talking to the CLIP server at baseURL.
func NewClipProvider(baseURL string, opts ...ClipOption) *ClipProvider {
	p := &ClipProvider{
		baseURL:   baseURL,
		model:     "clip-ViT-B-32",
		dimension: 512,
		retry:     defaultRetryPolicy(),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ClipConfig holds configuration for the CLIP provider.
type ClipConfig struct {
	BaseURL       string
	Model         string
	Dimension     int
	Timeout       time.Duration
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	HTTPClient    *http.Client
}

// NewClipProviderFromConfig creates a provider from configuration.
func NewClipProviderFromConfig(cfg ClipConfig) *ClipProvider {
	model := cfg.Model
	if model == "" {
		model = "clip-ViT-B-32"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 512
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &ClipProvider{
		baseURL:    cfg.BaseURL,
		model:      model,
		dimension:  dimension,
		retry:      defaultRetryPolicy().withOverrides(cfg.MaxRetries, cfg.InitialDelay, cfg.BackoffFactor),
		httpClient: httpClient,
	}
}

// Dimension returns the expected embedding dimension.
func (p *ClipProvider) Dimension() int { return p.dimension }

// ModelID returns the model identifier.
func (p *ClipProvider) ModelID() string { return p.model }

// SupportsImages returns true; CLIP embeds both modalities.
func (p *ClipProvider) SupportsImages() bool { return true }

// Close is a no-op for the CLIP provider.
func (p *ClipProvider) Close() error { return nil }

// clipTextRequest is the /embed/text request body.
type clipTextRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

// clipImageRequest is the /embed/image request body. Images travel as
// standard base64.
type clipImageRequest struct {
	Model  string   `json:"model"`
	Images []string `json:"images"`
}

// clipResponse is the embedding response of both endpoints.
type clipResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
	Dim        int         `json:"dim"`
}

// clipError is the error body the inference server returns.
type clipError struct {
	Detail string `json:"detail"`
}

// EmbedTexts embeds the given texts in a single call.
func (p *ClipProvider) EmbedTexts(ctx context.Context, texts []string) ([]search.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := clipTextRequest{Model: p.model, Texts: texts}
	return p.embed(ctx, "embed_text", "/embed/text", req, len(texts))
}

// EmbedImages embeds the given image payloads in a single call.
func (p *ClipProvider) EmbedImages(ctx context.Context, images [][]byte) ([]search.Vector, error) {
	if len(images) == 0 {
		return nil, nil
	}

	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	req := clipImageRequest{Model: p.model, Images: encoded}
	return p.embed(ctx, "embed_image", "/embed/image", req, len(images))
}

func (p *ClipProvider) embed(ctx context.Context, operation, path string, payload any, want int) ([]search.Vector, error) {
	var resp clipResponse
	var err error

	err = p.retry.run(ctx, p.isRetryable, func() error {
		resp, err = p.doRequest(ctx, operation, path, payload)
		if err != nil {
			return err
		}
		if len(resp.Embeddings) != want {
			return fmt.Errorf("%w: got %d vectors for %d inputs", errEmbeddingCountMismatch, len(resp.Embeddings), want)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	vectors := make([]search.Vector, len(resp.Embeddings))
	for i, floats := range resp.Embeddings {
		vectors[i] = search.NewVector(floats)
	}
	return vectors, nil
}

// doRequest performs one HTTP request against the inference server.
func (p *ClipProvider) doRequest(ctx context.Context, operation, path string, payload any) (clipResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return clipResponse{}, NewProviderError(operation, 0, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return clipResponse{}, NewProviderError(operation, 0, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return clipResponse{}, NewProviderError(operation, 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return clipResponse{}, NewProviderError(operation, resp.StatusCode, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr clipError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Detail != "" {
			return clipResponse{}, NewProviderError(operation, resp.StatusCode, apiErr.Detail, nil)
		}
		return clipResponse{}, NewProviderError(operation, resp.StatusCode, string(respBody), nil)
	}

	var apiResp clipResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return clipResponse{}, NewProviderError(operation, 0, "failed to unmarshal response", err)
	}

	return apiResp, nil
}

// isRetryable determines if an error should be retried. Transport failures
// are retryable because the inference server may still be loading its model.
func (p *ClipProvider) isRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var provErr *ProviderError
	if !extractError(err, &provErr) {
		return false
	}
	return retryableStatus(provErr.StatusCode())
}

// Ensure ClipProvider implements the embedder interface.
var _ search.Embedder = (*ClipProvider)(nil)

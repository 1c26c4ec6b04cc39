package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClipServer returns an httptest.Server that mimics the CLIP inference
// server. Both endpoints return deterministic 4-dimensional vectors, one per
// input, and track how many requests they received via the counter.
func fakeClipServer(t *testing.T, counter *atomic.Int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)

		var body struct {
			Model  string   `json:"model"`
			Texts  []string `json:"texts"`
			Images []string `json:"images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"detail":"bad request"}`, http.StatusBadRequest)
			return
		}

		var n int
		switch r.URL.Path {
		case "/embed/text":
			n = len(body.Texts)
		case "/embed/image":
			n = len(body.Images)
		default:
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}

		embeddings := make([][]float64, n)
		for i := range embeddings {
			embeddings[i] = []float64{0.1, 0.2, 0.3, 0.4}
		}

		resp := map[string]interface{}{
			"embeddings": embeddings,
			"model":      body.Model,
			"dim":        4,
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClipProvider_EmbedTextsEmpty(t *testing.T) {
	var counter atomic.Int64
	srv := fakeClipServer(t, &counter)
	defer srv.Close()

	p := NewClipProvider(srv.URL)

	vectors, err := p.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, vectors)
	require.Equal(t, int64(0), counter.Load(), "no HTTP request for empty input")
}

func TestClipProvider_EmbedTexts(t *testing.T) {
	var counter atomic.Int64
	srv := fakeClipServer(t, &counter)
	defer srv.Close()

	p := NewClipProvider(srv.URL, WithClipModel("clip-test"))

	vectors, err := p.EmbedTexts(context.Background(), []string{"heathrow", "schiphol"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Equal(t, 4, vectors[0].Dim())
	require.InDelta(t, 0.1, vectors[0].Floats()[0], 1e-6)
	require.Equal(t, int64(1), counter.Load(), "both texts should travel in one request")
}

func TestClipProvider_EmbedTextsSendsModel(t *testing.T) {
	var got clipTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float64{{0.1}},
			"model":      got.Model,
			"dim":        1,
		})
	}))
	defer srv.Close()

	p := NewClipProvider(srv.URL, WithClipModel("clip-ViT-L-14"))

	_, err := p.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Equal(t, "clip-ViT-L-14", got.Model)
	require.Equal(t, []string{"hello"}, got.Texts)
}

func TestClipProvider_EmbedImages(t *testing.T) {
	payloads := [][]byte{
		{0xff, 0xd8, 0xff, 0xe0, 0x01},
		{0x89, 'P', 'N', 'G', 0x02},
	}

	var decoded [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed/image", r.URL.Path)

		var req clipImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, img := range req.Images {
			raw, err := base64.StdEncoding.DecodeString(img)
			require.NoError(t, err)
			decoded = append(decoded, raw)
		}

		embeddings := make([][]float64, len(req.Images))
		for i := range embeddings {
			embeddings[i] = []float64{0.5, 0.6}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": embeddings,
			"model":      req.Model,
			"dim":        2,
		})
	}))
	defer srv.Close()

	p := NewClipProvider(srv.URL)

	vectors, err := p.EmbedImages(context.Background(), payloads)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Equal(t, payloads, decoded, "server should receive the original bytes")
}

func TestClipProvider_EmbedImagesEmpty(t *testing.T) {
	var counter atomic.Int64
	srv := fakeClipServer(t, &counter)
	defer srv.Close()

	p := NewClipProvider(srv.URL)

	vectors, err := p.EmbedImages(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, vectors)
	require.Equal(t, int64(0), counter.Load())
}

func TestClipProvider_RetriesServerErrors(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := counter.Add(1)
		if n <= 2 {
			http.Error(w, `{"detail":"model is still loading"}`, http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float64{{0.1, 0.2}},
			"model":      "clip-ViT-B-32",
			"dim":        2,
		})
	}))
	defer srv.Close()

	p := NewClipProvider(srv.URL,
		WithClipMaxRetries(3),
		WithClipInitialDelay(time.Millisecond),
	)

	vectors, err := p.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Equal(t, int64(3), counter.Load(), "two failures then success")
}

func TestClipProvider_RetriesRateLimit(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if counter.Add(1) == 1 {
			http.Error(w, `{"detail":"too many requests"}`, http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float64{{0.1}},
			"model":      "clip-ViT-B-32",
			"dim":        1,
		})
	}))
	defer srv.Close()

	p := NewClipProvider(srv.URL,
		WithClipMaxRetries(2),
		WithClipInitialDelay(time.Millisecond),
	)

	_, err := p.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Equal(t, int64(2), counter.Load())
}

func TestClipProvider_BadRequestNotRetried(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		http.Error(w, `{"detail":"texts must not be empty"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewClipProvider(srv.URL, WithClipInitialDelay(time.Millisecond))

	_, err := p.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)
	require.Equal(t, int64(1), counter.Load(), "client errors should not be retried")

	var provErr *ProviderError
	require.True(t, extractError(err, &provErr))
	require.Equal(t, http.StatusBadRequest, provErr.StatusCode())
	require.Contains(t, provErr.Message(), "texts must not be empty")
}

func TestClipProvider_ErrorBodyWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewClipProvider(srv.URL)

	_, err := p.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)

	var provErr *ProviderError
	require.True(t, extractError(err, &provErr))
	require.Contains(t, provErr.Message(), "upstream exploded")
}

func TestClipProvider_CountMismatchExhaustsRetries(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		// One vector for two inputs, every time.
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float64{{0.1}},
			"model":      "clip-ViT-B-32",
			"dim":        1,
		})
	}))
	defer srv.Close()

	p := NewClipProvider(srv.URL,
		WithClipMaxRetries(1),
		WithClipInitialDelay(time.Millisecond),
	)

	_, err := p.EmbedTexts(context.Background(), []string{"hello", "world"})
	require.Error(t, err)
	require.ErrorIs(t, err, errEmbeddingCountMismatch)
	require.Equal(t, int64(2), counter.Load(), "mismatch is retried until retries run out")
}

func TestClipProvider_CancelledContext(t *testing.T) {
	var counter atomic.Int64
	srv := fakeClipServer(t, &counter)
	defer srv.Close()

	p := NewClipProvider(srv.URL, WithClipMaxRetries(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.EmbedTexts(ctx, []string{"hello"})
	require.Error(t, err)
}

func TestClipProvider_Defaults(t *testing.T) {
	p := NewClipProvider("http://localhost:8000")

	require.Equal(t, 512, p.Dimension())
	require.Equal(t, "clip-ViT-B-32", p.ModelID())
	require.True(t, p.SupportsImages())
	require.NoError(t, p.Close())
}

func TestNewClipProviderFromConfig_Defaults(t *testing.T) {
	p := NewClipProviderFromConfig(ClipConfig{BaseURL: "http://localhost:8000"})

	require.Equal(t, "clip-ViT-B-32", p.ModelID())
	require.Equal(t, 512, p.Dimension())
	require.Equal(t, 5, p.retry.maxRetries)
	require.Equal(t, 2*time.Second, p.retry.initialDelay)
	require.InDelta(t, 2.0, p.retry.backoffFactor, 1e-9)
}

func TestNewClipProviderFromConfig_Overrides(t *testing.T) {
	p := NewClipProviderFromConfig(ClipConfig{
		BaseURL:    "http://clip.internal:9000",
		Model:      "clip-ViT-L-14",
		Dimension:  768,
		MaxRetries: 2,
	})

	require.Equal(t, "clip-ViT-L-14", p.ModelID())
	require.Equal(t, 768, p.Dimension())
	require.Equal(t, 2, p.retry.maxRetries)
}

package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// countingServer starts a test server that tallies upstream hits and answers
// every request with the given status and body.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func postThrough(t *testing.T, rt http.RoundTripper, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	return resp
}

func TestCachingTransport_ReplaysIdenticalRequests(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, `{"vectors":[[1,0]]}`)
	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	for i := range 3 {
		resp := postThrough(t, transport, srv.URL+"/embed/text", `{"texts":["narita airport"]}`)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if string(body) != `{"vectors":[[1,0]]}` {
			t.Errorf("request %d: body = %s", i, body)
		}
	}

	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}
}

func TestCachingTransport_KeysOnRequestBody(t *testing.T) {
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	first := `{"texts":["heathrow"]}`
	second := `{"texts":["gatwick"]}`
	for _, b := range []string{first, second} {
		resp := postThrough(t, transport, srv.URL+"/embed/text", b)
		_ = resp.Body.Close()
	}
	if hits.Load() != 2 {
		t.Fatalf("upstream hits = %d, want 2 for distinct bodies", hits.Load())
	}

	// Repeating the first body must replay its cached response, not
	// the most recent one.
	resp := postThrough(t, transport, srv.URL+"/embed/text", first)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != first {
		t.Errorf("replayed body = %s, want %s", body, first)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2 after replay", hits.Load())
	}
}

func TestCachingTransport_SkipsBodylessRequests(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, "ok")
	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	for range 2 {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
		resp, err := transport.RoundTrip(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Body.Close()
	}

	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2 (no caching without a body)", hits.Load())
	}
}

func TestCachingTransport_ReplayPreservesStatusAndHeaders(t *testing.T) {
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "abc-123")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	resp := postThrough(t, transport, srv.URL+"/api", "body")
	_ = resp.Body.Close()

	resp = postThrough(t, transport, srv.URL+"/api", "body")
	defer func() { _ = resp.Body.Close() }()

	if hits.Load() != 1 {
		t.Fatalf("upstream hits = %d, want 1 (second response must come from cache)", hits.Load())
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q", got)
	}
}

func TestCachingTransport_UpstreamErrorPassesThrough(t *testing.T) {
	transport := NewCachingTransport(t.TempDir(), &erroringTransport{})

	req, _ := http.NewRequest(http.MethodPost, "http://localhost/api", strings.NewReader("body"))
	_, err := transport.RoundTrip(req)
	if !errors.Is(err, errUpstreamDown) {
		t.Fatalf("error = %v, want the upstream error", err)
	}
}

func TestCachingTransport_NonSuccessNotCached(t *testing.T) {
	srv, hits := countingServer(t, http.StatusInternalServerError, `{"detail":"fail"}`)
	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	for range 2 {
		resp := postThrough(t, transport, srv.URL+"/api", "body")
		_ = resp.Body.Close()
	}

	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2 (500s are not cached)", hits.Load())
	}
}

func TestCachingTransport_CorruptEntryFallsThrough(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, `{"ok":true}`)

	dir := t.TempDir()
	transport := NewCachingTransport(dir, srv.Client().Transport)

	resp := postThrough(t, transport, srv.URL+"/api", "body")
	_ = resp.Body.Close()
	if hits.Load() != 1 {
		t.Fatalf("upstream hits = %d, want 1", hits.Load())
	}

	key := transport.cacheKey(http.MethodPost, srv.URL+"/api", []byte("body"))
	if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte("not json{{{"), 0o644); err != nil {
		t.Fatalf("corrupt cache file: %v", err)
	}

	resp = postThrough(t, transport, srv.URL+"/api", "body")
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2 after corruption", hits.Load())
	}
}

func TestCachingTransport_UnderOpenAIProvider(t *testing.T) {
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		body, _ := io.ReadAll(r.Body)
		var req openai.EmbeddingRequest
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad request"}`))
			return
		}

		// go-openai marshals the input as a JSON array of strings.
		inputs, ok := req.Input.([]any)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, `{"error":"input not array: %T"}`, req.Input)
			return
		}

		data := make([]openai.Embedding, len(inputs))
		for i := range inputs {
			data[i] = openai.Embedding{
				Index:     i,
				Embedding: []float32{0.5, 0.25, 0.125},
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.EmbeddingResponse{
			Data:  data,
			Model: openai.SmallEmbedding3,
			Usage: openai.Usage{PromptTokens: 10, TotalTokens: 10},
		})
	}))
	t.Cleanup(srv.Close)

	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	p := NewOpenAIProviderFromConfig(OpenAIConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1",
		EmbeddingModel: "text-embedding-3-small",
		MaxRetries:     1,
		HTTPClient: &http.Client{
			Transport: transport,
		},
	})

	texts := []string{"Tokyo Narita", "Osaka Kansai"}
	ctx := t.Context()

	vecs, err := p.EmbedTexts(ctx, texts)
	if err != nil {
		t.Fatalf("first embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("embeddings = %d, want 2", len(vecs))
	}
	if hits.Load() != 1 {
		t.Fatalf("upstream hits = %d, want 1 after first embed", hits.Load())
	}

	// Identical inputs replay from cache.
	vecs, err = p.EmbedTexts(ctx, texts)
	if err != nil {
		t.Fatalf("second embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("cached embeddings = %d, want 2", len(vecs))
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1 (cached)", hits.Load())
	}

	// A new input misses the cache.
	if _, err := p.EmbedTexts(ctx, []string{"London Gatwick"}); err != nil {
		t.Fatalf("third embed: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2 after a new input", hits.Load())
	}
}

var errUpstreamDown = errors.New("upstream down")

// erroringTransport fails every request.
type erroringTransport struct{}

func (e *erroringTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errUpstreamDown
}

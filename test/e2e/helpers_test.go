package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/skyvisionhq/skyvision"
	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/infrastructure/api"
	apimiddleware "github.com/skyvisionhq/skyvision/infrastructure/api/middleware"
	"github.com/skyvisionhq/skyvision/infrastructure/persistence"
	"github.com/skyvisionhq/skyvision/internal/database"
)

// testDim is the embedding dimension the stub embedder produces.
const testDim = 4

// stubEmbedder embeds every text on axis 0 and every image on axis 1, so a
// text query is distance 0 from a text-seeded entity and distance 1 from an
// image-seeded one. Tests seed entity vectors directly and can predict every
// ranking exactly.
type stubEmbedder struct{}

func (stubEmbedder) axis(axis, n int) []search.Vector {
	vecs := make([]search.Vector, n)
	for i := range vecs {
		floats := make([]float64, testDim)
		floats[axis] = 1
		vecs[i] = search.NewVector(floats)
	}
	return vecs
}

func (s stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([]search.Vector, error) {
	return s.axis(0, len(texts)), nil
}

func (s stubEmbedder) EmbedImages(_ context.Context, images [][]byte) ([]search.Vector, error) {
	return s.axis(1, len(images)), nil
}

func (stubEmbedder) Dimension() int       { return testDim }
func (stubEmbedder) ModelID() string      { return "stub-e2e" }
func (stubEmbedder) SupportsImages() bool { return true }
func (stubEmbedder) Close() error         { return nil }

// textVec returns the vector the stub embedder assigns to any text.
func textVec() search.Vector {
	return search.NewVector([]float64{1, 0, 0, 0})
}

// imageVec returns the vector the stub embedder assigns to any image.
func imageVec() search.Vector {
	return search.NewVector([]float64{0, 1, 0, 0})
}

// fakeJPEG stands in for image bytes; the stub embedder never decodes them.
var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}

// TestServer runs the full HTTP API over a real listener for e2e testing.
type TestServer struct {
	t          *testing.T
	client     *skyvision.Client
	db         database.Database
	store      *persistence.SQLiteVectorStore
	httpServer *httptest.Server
}

// NewTestServer creates a test server with all routes and middleware wired
// the way the serve command wires them. A skyvision.Client backed by SQLite
// serves requests; a separate DB handle seeds catalog rows and vectors
// directly.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	ctx := context.Background()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	// The client creates the schema at construction, so the seed handle
	// below finds the tables ready.
	client, err := skyvision.New(
		skyvision.WithSQLite(dbPath),
		skyvision.WithDataDir(tmpDir),
		skyvision.WithEmbeddingProvider(stubEmbedder{}),
	)
	if err != nil {
		t.Fatalf("create skyvision client: %v", err)
	}

	// Open a separate DB handle for seeding test data
	db, err := database.NewDatabase(ctx, "sqlite:///"+dbPath)
	if err != nil {
		t.Fatalf("create database: %v", err)
	}
	store := persistence.NewSQLiteVectorStore(db, client.Logger())

	apiServer := api.NewAPIServer(client, nil)
	router := apiServer.Router()
	router.Use(apimiddleware.Logging(client.Logger()))
	router.Use(apimiddleware.CorrelationID)
	apiServer.MountRoutes()

	httpServer := httptest.NewServer(router)

	ts := &TestServer{
		t:          t,
		client:     client,
		db:         db,
		store:      store,
		httpServer: httpServer,
	}

	t.Cleanup(func() {
		ts.Close()
	})

	return ts
}

// URL returns the base URL of the test server.
func (ts *TestServer) URL() string {
	return ts.httpServer.URL
}

// Close shuts down the test server.
func (ts *TestServer) Close() {
	ts.httpServer.Close()
	_ = ts.client.Close()
	_ = ts.db.Close()
}

// GET performs a GET request and returns the response.
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()
	resp, err := http.Get(ts.URL() + path)
	if err != nil {
		ts.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with JSON body and returns the response.
func (ts *TestServer) POST(path string, body any) *http.Response {
	ts.t.Helper()
	jsonBody, err := json.Marshal(body)
	if err != nil {
		ts.t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(ts.URL()+path, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		ts.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// PostImage performs a multipart POST with an image file and extra form
// fields, matching what a browser upload sends to /search/image.
func (ts *TestServer) PostImage(path string, image []byte, fields map[string]string) *http.Response {
	ts.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "query.jpg")
	if err != nil {
		ts.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(image); err != nil {
		ts.t.Fatalf("write form file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			ts.t.Fatalf("write form field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		ts.t.Fatalf("close multipart writer: %v", err)
	}

	resp, err := http.Post(ts.URL()+path, writer.FormDataContentType(), &buf)
	if err != nil {
		ts.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// DecodeJSON decodes the response body as JSON into v.
func (ts *TestServer) DecodeJSON(resp *http.Response, v any) {
	ts.t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		ts.t.Fatalf("decode response: %v", err)
	}
}

// ReadBody reads and returns the response body as a string.
func (ts *TestServer) ReadBody(resp *http.Response) string {
	ts.t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.t.Fatalf("read body: %v", err)
	}
	return string(body)
}

// SeedAirports writes airports with their embeddings directly to the
// database, one vector per airport.
func (ts *TestServer) SeedAirports(airports []catalog.Airport, vectors []search.Vector) {
	ts.t.Helper()
	if _, err := ts.store.SaveEmbeddedAirports(context.Background(), airports, vectors); err != nil {
		ts.t.Fatalf("seed airports: %v", err)
	}
}

// SeedAirlines writes airlines with their embeddings directly to the
// database, one vector per airline.
func (ts *TestServer) SeedAirlines(airlines []catalog.Airline, vectors []search.Vector) {
	ts.t.Helper()
	if _, err := ts.store.SaveEmbeddedAirlines(context.Background(), airlines, vectors); err != nil {
		ts.t.Fatalf("seed airlines: %v", err)
	}
}

// WriteMedia places a file in the media cache and returns its public URL
// path under /media/.
func (ts *TestServer) WriteMedia(rel string, data []byte) string {
	ts.t.Helper()
	abs := filepath.Join(ts.client.MediaDir(), rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		ts.t.Fatalf("create media dir: %v", err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		ts.t.Fatalf("write media file: %v", err)
	}
	return "/media/" + filepath.ToSlash(rel)
}

package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skyvisionhq/skyvision/infrastructure/api"
)

func TestAPIServer_Endpoints(t *testing.T) {
	client := newMCPTestClient(t)
	apiServer := api.NewAPIServer(client, nil)
	router := apiServer.Router()

	apiServer.MountRoutes()

	docsRouter := apiServer.DocsRouter("/docs/openapi.json")
	router.Mount("/docs", docsRouter.Routes())

	handler := router

	t.Run("GET /healthz returns 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if !strings.Contains(w.Body.String(), "healthy") {
			t.Errorf("body = %s, want healthy status", w.Body.String())
		}
	})

	t.Run("GET /readyz returns 200 when the database answers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["status"] != "ready" {
			t.Errorf("status = %q, want ready", body["status"])
		}
	})

	t.Run("GET /docs returns 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/docs/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("GET /docs/openapi.json serves the spec", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/docs/openapi.json", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if !strings.Contains(w.Body.String(), "openapi") {
			t.Error("expected an OpenAPI document")
		}
	})

	t.Run("POST /api/v1/search/text returns an empty hit list on an empty catalog", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search/text", strings.NewReader(`{"q":"modern glass terminal"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"hits":[]`) {
			t.Errorf("body = %s, want an empty hits array", w.Body.String())
		}
	})

	t.Run("POST /api/v1/search/text with blank query returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search/text", strings.NewReader(`{"q":"   "}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
		}
	})

	t.Run("GET /api/v1/airports returns an empty page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/airports", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
		}
	})

	t.Run("GET /api/v1/airports/999 returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/airports/999", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusNotFound, w.Body.String())
		}
	})

	t.Run("GET /media/missing.jpg returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/missing.jpg", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestAPIServer_CORS(t *testing.T) {
	client := newMCPTestClient(t)
	apiServer := api.NewAPIServer(client, nil)
	handler := apiServer.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search/text", nil)
	req.Header.Set("Origin", "https://maps.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestAPIServer_CORSRestrictedOrigin(t *testing.T) {
	client := newMCPTestClient(t)
	apiServer := api.NewAPIServer(client, []string{"https://ops.example.com"})
	handler := apiServer.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search/text", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the configured origin", got)
	}
}

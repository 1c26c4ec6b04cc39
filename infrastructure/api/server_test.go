package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestNewServer(t *testing.T) {
	server := NewServer(":8714", nil)

	if server.Addr() != ":8714" {
		t.Errorf("Addr() = %v, want :8714", server.Addr())
	}
	if server.Router() == nil {
		t.Error("Router() returned nil")
	}
}

func TestServer_RequestIDMiddleware(t *testing.T) {
	server := NewServer(":0", nil)
	router := server.Router()

	var gotReqID string
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		gotReqID = chimiddleware.GetReqID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %v, want %v", w.Code, http.StatusOK)
	}
	if gotReqID == "" {
		t.Error("handler saw no request ID, want one assigned by the middleware stack")
	}
}

func TestServer_RecovererTurnsPanicInto500(t *testing.T) {
	server := NewServer(":0", nil)
	router := server.Router()

	router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status code = %v, want %v", w.Code, http.StatusInternalServerError)
	}
}

func TestServer_UnknownRouteReturns404(t *testing.T) {
	server := NewServer(":0", nil)

	req := httptest.NewRequest(http.MethodGet, "/no/such/route", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status code = %v, want %v", w.Code, http.StatusNotFound)
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	server := NewServer(":0", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v, want nil", err)
	}
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skyvisionhq/skyvision"
	apimiddleware "github.com/skyvisionhq/skyvision/infrastructure/api/middleware"
	v1 "github.com/skyvisionhq/skyvision/infrastructure/api/v1"
	mcpinternal "github.com/skyvisionhq/skyvision/internal/mcp"
)

// APIServer provides an HTTP API backed by a skyvision Client.
type APIServer struct {
	client       *skyvision.Client
	corsOrigins  []string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given skyvision Client.
// corsOrigins configures which origins may call the API from a browser; an
// empty list allows all origins.
func NewAPIServer(client *skyvision.Client, corsOrigins []string) *APIServer {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	return &APIServer{
		client:      client,
		corsOrigins: corsOrigins,
		logger:      client.Logger(),
	}
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all v1 API routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

// mountRoutes wires up all v1 API routes on the given router.
func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", apimiddleware.CorrelationIDHeader},
		MaxAge:         300,
	}))

	searchRouter := v1.NewSearchRouter(c)
	airportsRouter := v1.NewAirportsRouter(c)
	airlinesRouter := v1.NewAirlinesRouter(c)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Mount("/search", searchRouter.Routes())
		r.Mount("/airports", airportsRouter.Routes())
		r.Mount("/airlines", airlinesRouter.Routes())
	})

	// Liveness never touches the database; readiness pings it.
	router.Get("/healthz", a.healthz)
	router.Get("/readyz", a.readyz)

	// Localized entity images are served straight from the media cache.
	router.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(c.MediaDir()))))

	// MCP (Model Context Protocol) endpoint — no timeout middleware.
	// MCP uses streaming responses and manages its own session state via
	// response headers, which is incompatible with chi's Timeout middleware
	// that wraps the ResponseWriter.
	mcpSrv := mcpinternal.NewServer(c.Search, c.Catalog, "1.0.0", a.logger)
	httpHandler := server.NewStreamableHTTPServer(mcpSrv.MCPServer())
	router.Mount("/mcp", httpHandler)
}

// healthz reports process liveness.
func (a *APIServer) healthz(w http.ResponseWriter, _ *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readyz reports whether the database answers a ping.
func (a *APIServer) readyz(w http.ResponseWriter, req *http.Request) {
	if err := a.client.Ping(req.Context()); err != nil {
		a.logger.Warn("readiness probe failed", "error", err)
		apimiddleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// DocsRouter returns a router for Swagger UI and OpenAPI spec.
func (a *APIServer) DocsRouter(specURL string) *DocsRouter {
	return NewDocsRouter(specURL)
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = &server

	if a.routerCalled && a.router != nil {
		server.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(server.Router())
	}

	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}

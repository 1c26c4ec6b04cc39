// Package api provides HTTP server and API documentation.
package api

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed openapi.json
var openapiSpec embed.FS

// specServerURL is the servers[].url value baked into openapi.json; serveSpec
// rewrites it to match the incoming request.
const specServerURL = `"url": "//localhost:8714/api/v1"`

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>SkyVision API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
    <style>
        html { box-sizing: border-box; overflow: -moz-scrollbars-vertical; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin:0; background: #fafafa; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" charset="UTF-8"></script>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-standalone-preset.js" charset="UTF-8"></script>
    <script>
        window.onload = function() {
            const ui = SwaggerUIBundle({
                url: "%s",
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIStandalonePreset
                ],
                plugins: [
                    SwaggerUIBundle.plugins.DownloadUrl
                ],
                layout: "StandaloneLayout"
            });
            window.ui = ui;
        };
    </script>
</body>
</html>`

// DocsRouter serves Swagger UI and the OpenAPI document.
type DocsRouter struct {
	specURL string
}

// NewDocsRouter creates a documentation router whose UI loads the spec from
// specURL.
func NewDocsRouter(specURL string) *DocsRouter {
	return &DocsRouter{specURL: specURL}
}

// Routes returns the chi router for documentation endpoints.
func (d *DocsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", d.serveUI)
	router.Get("/openapi.json", d.serveSpec)
	return router
}

func (d *DocsRouter) serveUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, swaggerUIPage, d.specURL)
}

// serveSpec serves openapi.json with the server URL rewritten to the host the
// request arrived on, so "Try it out" works behind any proxy.
func (d *DocsRouter) serveSpec(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(openapiSpec, "openapi.json")
	if err != nil {
		http.Error(w, "Spec not found", http.StatusNotFound)
		return
	}

	serverURL := fmt.Sprintf(`"url": "%s/api/v1"`, requestBaseURL(r))
	data = bytes.ReplaceAll(data, []byte(specServerURL), []byte(serverURL))

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// requestBaseURL reconstructs scheme://host from the request, trusting
// X-Forwarded-* headers when a proxy set them.
func requestBaseURL(r *http.Request) string {
	scheme := "https"
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	} else if r.TLS == nil {
		scheme = "http"
	}

	host := r.Host
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}
	return fmt.Sprintf("%s://%s", scheme, host)
}

// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/internal/database"
)

// Searcher provides text search operations for MCP tools.
type Searcher interface {
	Text(ctx context.Context, q search.Query) (search.Result, error)
}

// CatalogReader provides entity lookups for MCP tools.
type CatalogReader interface {
	Airport(ctx context.Context, id int64) (catalog.Airport, error)
	Airline(ctx context.Context, id int64) (catalog.Airline, error)
	Count(ctx context.Context, kind catalog.Kind, opts ...catalog.Option) (int64, error)
}

// Server wraps the MCP server with skyvision-specific tools.
type Server struct {
	mcpServer     *server.MCPServer
	searchService Searcher
	catalog       CatalogReader
	version       string
	logger        *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(searchService Searcher, catalogService CatalogReader, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searchService: searchService,
		catalog:       catalogService,
		version:       version,
		logger:        logger,
	}

	// Create MCP server with server info
	mcpServer := server.NewMCPServer(
		"skyvision",
		version,
		server.WithToolCapabilities(true),
	)

	// Register tools
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

// registerTools registers all skyvision tools with the MCP server.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	// Search tool
	searchTool := mcp.NewTool("search",
		mcp.WithDescription("Search airports or airlines by free-text description, ranked by CLIP embedding similarity"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query, e.g. 'modern glass terminal with indoor gardens'"),
		),
		mcp.WithString("kind",
			mcp.Description("Entity kind to search: airports or airlines (default: airports)"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results to return (default: 10)"),
		),
		mcp.WithString("country",
			mcp.Description("Filter by exact country name"),
		),
		mcp.WithString("city",
			mcp.Description("Filter by exact city name"),
		),
		mcp.WithString("style",
			mcp.Description("Filter by image style keyword"),
		),
	)

	mcpServer.AddTool(searchTool, s.handleSearch)

	// Get entity tool
	getEntityTool := mcp.NewTool("get_entity",
		mcp.WithDescription("Get one airport or airline by its OpenFlights ID"),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Entity kind: airports or airlines"),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The numeric OpenFlights ID of the entity"),
		),
	)

	mcpServer.AddTool(getEntityTool, s.handleGetEntity)

	// Catalog stats tool
	statsTool := mcp.NewTool("catalog_stats",
		mcp.WithDescription("Count the stored airports and airlines"),
	)

	mcpServer.AddTool(statsTool, s.handleCatalogStats)

	// Version tool
	versionTool := mcp.NewTool("get_version",
		mcp.WithDescription("Get the running skyvision version"),
	)

	mcpServer.AddTool(versionTool, s.handleGetVersion)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract arguments using helper methods
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	kind, err := catalog.ParseKind(request.GetString("kind", string(catalog.KindAirport)))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid kind: %v", err)), nil
	}

	topK := request.GetInt("top_k", 10)

	// Build filters
	var opts []search.FiltersOption
	if country := request.GetString("country", ""); country != "" {
		opts = append(opts, search.WithCountry(country))
	}
	if city := request.GetString("city", ""); city != "" {
		opts = append(opts, search.WithCity(city))
	}
	if style := request.GetString("style", ""); style != "" {
		opts = append(opts, search.WithStyle(style))
	}

	q := search.NewQuery(kind, query).
		WithLimit(topK).
		WithFilters(search.NewFilters(opts...))

	// Execute search
	result, err := s.searchService.Text(ctx, q)
	if err != nil {
		s.logger.Error("search failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	// Format results
	type searchHit struct {
		ID       int64    `json:"id"`
		Name     string   `json:"name"`
		City     string   `json:"city,omitempty"`
		Country  string   `json:"country"`
		ImageURL string   `json:"image_url,omitempty"`
		Style    string   `json:"style,omitempty"`
		Tags     []string `json:"tags,omitempty"`
		Distance float64  `json:"distance"`
	}

	hits := result.Hits()
	results := make([]searchHit, len(hits))
	for i, h := range hits {
		results[i] = searchHit{
			ID:       h.ID(),
			Name:     h.Name(),
			City:     h.City(),
			Country:  h.Country(),
			ImageURL: h.URL(),
			Style:    h.Metadata().Style(),
			Tags:     h.Metadata().Tags(),
			Distance: h.Distance(),
		}
	}

	jsonBytes, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleGetEntity handles the get_entity tool invocation.
func (s *Server) handleGetEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindStr, err := request.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError("kind is required"), nil
	}
	kind, err := catalog.ParseKind(kindStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid kind: %v", err)), nil
	}

	idStr, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid id: %s", idStr)), nil
	}

	if kind == catalog.KindAirport {
		return s.airportResult(ctx, id)
	}
	return s.airlineResult(ctx, id)
}

func (s *Server) airportResult(ctx context.Context, id int64) (*mcp.CallToolResult, error) {
	a, err := s.catalog.Airport(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("airport %d not found", id)), nil
	}
	if err != nil {
		s.logger.Error("airport lookup failed", slog.Int64("id", id), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("get airport: %v", err)), nil
	}

	type position struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	type airportDoc struct {
		ID          int64     `json:"id"`
		Name        string    `json:"name"`
		City        string    `json:"city,omitempty"`
		Country     string    `json:"country"`
		IATA        string    `json:"iata,omitempty"`
		ICAO        string    `json:"icao,omitempty"`
		Position    *position `json:"position,omitempty"`
		ImageURL    string    `json:"image_url,omitempty"`
		Style       string    `json:"style,omitempty"`
		Tags        []string  `json:"tags,omitempty"`
		License     string    `json:"license,omitempty"`
		Attribution string    `json:"attribution,omitempty"`
	}

	doc := airportDoc{
		ID:          a.ID(),
		Name:        a.Name(),
		City:        a.City(),
		Country:     a.Country(),
		IATA:        a.IATA(),
		ICAO:        a.ICAO(),
		ImageURL:    a.ImageURL(),
		Style:       a.Metadata().Style(),
		Tags:        a.Metadata().Tags(),
		License:     a.Metadata().License(),
		Attribution: a.Metadata().Attribution(),
	}
	if coords := a.Coordinates(); !coords.IsZero() {
		doc.Position = &position{Latitude: coords.Lat(), Longitude: coords.Lon()}
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) airlineResult(ctx context.Context, id int64) (*mcp.CallToolResult, error) {
	a, err := s.catalog.Airline(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("airline %d not found", id)), nil
	}
	if err != nil {
		s.logger.Error("airline lookup failed", slog.Int64("id", id), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("get airline: %v", err)), nil
	}

	type airlineDoc struct {
		ID          int64    `json:"id"`
		Name        string   `json:"name"`
		Alias       string   `json:"alias,omitempty"`
		IATA        string   `json:"iata,omitempty"`
		ICAO        string   `json:"icao,omitempty"`
		Callsign    string   `json:"callsign,omitempty"`
		Country     string   `json:"country"`
		Active      bool     `json:"active"`
		LogoURL     string   `json:"logo_url,omitempty"`
		Style       string   `json:"style,omitempty"`
		Tags        []string `json:"tags,omitempty"`
		License     string   `json:"license,omitempty"`
		Attribution string   `json:"attribution,omitempty"`
	}

	doc := airlineDoc{
		ID:          a.ID(),
		Name:        a.Name(),
		Alias:       a.Alias(),
		IATA:        a.IATA(),
		ICAO:        a.ICAO(),
		Callsign:    a.Callsign(),
		Country:     a.Country(),
		Active:      a.Active(),
		LogoURL:     a.LogoURL(),
		Style:       a.Metadata().Style(),
		Tags:        a.Metadata().Tags(),
		License:     a.Metadata().License(),
		Attribution: a.Metadata().Attribution(),
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleCatalogStats handles the catalog_stats tool invocation.
func (s *Server) handleCatalogStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	airports, err := s.catalog.Count(ctx, catalog.KindAirport)
	if err != nil {
		s.logger.Error("airport count failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("count airports: %v", err)), nil
	}
	airlines, err := s.catalog.Count(ctx, catalog.KindAirline)
	if err != nil {
		s.logger.Error("airline count failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("count airlines: %v", err)), nil
	}

	stats := struct {
		Airports int64 `json:"airports"`
		Airlines int64 `json:"airlines"`
	}{Airports: airports, Airlines: airlines}

	jsonBytes, err := json.Marshal(stats)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleGetVersion handles the get_version tool invocation.
func (s *Server) handleGetVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.version), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/internal/database"
)

// fakeSearch implements Searcher with a canned result and records the last
// query so argument plumbing can be asserted.
type fakeSearch struct {
	result    search.Result
	err       error
	lastQuery search.Query
}

func (f *fakeSearch) Text(_ context.Context, q search.Query) (search.Result, error) {
	f.lastQuery = q
	if f.err != nil {
		return search.Result{}, f.err
	}
	return f.result, nil
}

// fakeCatalog implements CatalogReader with canned entities.
type fakeCatalog struct {
	airports map[int64]catalog.Airport
	airlines map[int64]catalog.Airline
}

func (f *fakeCatalog) Airport(_ context.Context, id int64) (catalog.Airport, error) {
	a, ok := f.airports[id]
	if !ok {
		return catalog.Airport{}, fmt.Errorf("%w: airport %d", database.ErrNotFound, id)
	}
	return a, nil
}

func (f *fakeCatalog) Airline(_ context.Context, id int64) (catalog.Airline, error) {
	a, ok := f.airlines[id]
	if !ok {
		return catalog.Airline{}, fmt.Errorf("%w: airline %d", database.ErrNotFound, id)
	}
	return a, nil
}

func (f *fakeCatalog) Count(_ context.Context, kind catalog.Kind, _ ...catalog.Option) (int64, error) {
	if kind == catalog.KindAirport {
		return int64(len(f.airports)), nil
	}
	return int64(len(f.airlines)), nil
}

// sendMessage marshals a JSON-RPC request, sends it through HandleMessage,
// and returns the JSONRPCResponse. It fatals on marshal failure or unexpected
// response type.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	result := srv.MCPServer().HandleMessage(context.Background(), raw)

	resp, ok := result.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T: %+v", result, result)
	}
	return resp
}

// resultJSON re-marshals the Result field through JSON into dst.
func resultJSON(t *testing.T, resp mcp.JSONRPCResponse, dst any) {
	t.Helper()
	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		t.Fatalf("unmarshal result into %T: %v", dst, err)
	}
}

func testAirport() catalog.Airport {
	return catalog.NewAirport(507, "Heathrow", "London", "United Kingdom").
		WithCodes("LHR", "EGLL").
		WithCoordinates(catalog.NewCoordinates(51.4706, -0.461941)).
		WithImageURL("/media/airport_507_8c736529.jpg").
		WithMetadata(catalog.NewMetadata("modern", []string{"terminal"}, "cc-by-sa", "Wikimedia"))
}

func testAirline() catalog.Airline {
	return catalog.NewAirline(324, "British Airways", "United Kingdom").
		WithCodes("BA", "BAW").
		WithCallsign("SPEEDBIRD").
		WithActive(true)
}

func testHit() search.Hit {
	return search.NewHit(507, "Heathrow", "London", "United Kingdom",
		"/media/airport_507_8c736529.jpg",
		catalog.NewMetadata("modern", []string{"terminal"}, "", ""), 0.12)
}

func testServer() (*Server, *fakeSearch) {
	fs := &fakeSearch{
		result: search.NewResult(search.ModeText, []search.Hit{testHit()}),
	}
	fc := &fakeCatalog{
		airports: map[int64]catalog.Airport{507: testAirport()},
		airlines: map[int64]catalog.Airline{324: testAirline()},
	}
	return NewServer(fs, fc, "0.3.0-test", nil), fs
}

func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "0.0.1",
		},
	}
}

func TestServer_Initialize(t *testing.T) {
	srv, _ := testServer()
	resp := sendMessage(t, srv, "initialize", 1, initializeParams())

	var result mcp.InitializeResult
	resultJSON(t, resp, &result)

	if result.ServerInfo.Name != "skyvision" {
		t.Errorf("expected server name skyvision, got %s", result.ServerInfo.Name)
	}
	if result.ServerInfo.Version != "0.3.0-test" {
		t.Errorf("expected version 0.3.0-test, got %s", result.ServerInfo.Version)
	}
	if result.Capabilities.Tools == nil {
		t.Error("expected tools capability to be present")
	}
}

func TestServer_ListTools(t *testing.T) {
	srv, _ := testServer()

	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/list", 2, nil)

	var result mcp.ListToolsResult
	resultJSON(t, resp, &result)

	if len(result.Tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(result.Tools))
	}

	tools := map[string]mcp.Tool{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}

	expected := []string{
		"search",
		"get_entity",
		"catalog_stats",
		"get_version",
	}
	for _, name := range expected {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing tool: %s", name)
		}
	}

	// Verify search tool parameters
	searchTool := tools["search"]
	props := searchTool.InputSchema.Properties
	if props == nil {
		t.Fatal("search tool has no properties")
	}
	for _, param := range []string{"query", "kind", "top_k", "country", "city", "style"} {
		if _, ok := props[param]; !ok {
			t.Errorf("search tool missing %s parameter", param)
		}
	}
	if !slices.Contains(searchTool.InputSchema.Required, "query") {
		t.Error("query should be required")
	}
}

func TestServer_Search(t *testing.T) {
	srv, fs := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "search",
		"arguments": map[string]any{
			"query":   "modern glass terminal",
			"kind":    "airports",
			"top_k":   5,
			"country": "United Kingdom",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content in response")
	}

	text := textFromContent(t, result)

	var items []struct {
		ID       int64   `json:"id"`
		Name     string  `json:"name"`
		Country  string  `json:"country"`
		ImageURL string  `json:"image_url"`
		Style    string  `json:"style"`
		Distance float64 `json:"distance"`
	}
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		t.Fatalf("unmarshal search results: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 result, got %d", len(items))
	}
	if items[0].ID != 507 {
		t.Errorf("expected id 507, got %d", items[0].ID)
	}
	if items[0].Style != "modern" {
		t.Errorf("expected style modern, got %s", items[0].Style)
	}
	if items[0].Distance != 0.12 {
		t.Errorf("expected distance 0.12, got %f", items[0].Distance)
	}

	// Arguments must reach the search query
	if fs.lastQuery.Kind() != catalog.KindAirport {
		t.Errorf("expected airports kind, got %s", fs.lastQuery.Kind())
	}
	if fs.lastQuery.Limit() != 5 {
		t.Errorf("expected limit 5, got %d", fs.lastQuery.Limit())
	}
	if fs.lastQuery.Filters().Country() != "United Kingdom" {
		t.Errorf("expected country filter, got %q", fs.lastQuery.Filters().Country())
	}
}

func TestServer_SearchMissingQuery(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      "search",
		"arguments": map[string]any{},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error response")
	}

	text := textFromContent(t, result)
	if text == "" || !strings.Contains(text, "query is required") {
		t.Errorf("expected error text containing 'query is required', got: %s", text)
	}
}

func TestServer_SearchInvalidKind(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "search",
		"arguments": map[string]any{
			"query": "busy hub",
			"kind":  "runways",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error response")
	}
	if !strings.Contains(textFromContent(t, result), "invalid kind") {
		t.Errorf("expected 'invalid kind' error, got: %s", textFromContent(t, result))
	}
}

func TestServer_GetEntityAirport(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "get_entity",
		"arguments": map[string]any{
			"kind": "airports",
			"id":   "507",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}

	text := textFromContent(t, result)

	var doc struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		IATA     string `json:"iata"`
		Position *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"position"`
		ImageURL string `json:"image_url"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("unmarshal entity: %v", err)
	}
	if doc.Name != "Heathrow" {
		t.Errorf("expected Heathrow, got %s", doc.Name)
	}
	if doc.IATA != "LHR" {
		t.Errorf("expected IATA LHR, got %s", doc.IATA)
	}
	if doc.Position == nil || doc.Position.Latitude != 51.4706 {
		t.Errorf("expected position with latitude 51.4706, got %+v", doc.Position)
	}
	if doc.ImageURL != "/media/airport_507_8c736529.jpg" {
		t.Errorf("unexpected image url: %s", doc.ImageURL)
	}
}

func TestServer_GetEntityAirline(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "get_entity",
		"arguments": map[string]any{
			"kind": "airline",
			"id":   "324",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}

	text := textFromContent(t, result)
	if !strings.Contains(text, "British Airways") {
		t.Errorf("expected airline name in output, got: %s", text)
	}
	if !strings.Contains(text, "SPEEDBIRD") {
		t.Errorf("expected callsign in output, got: %s", text)
	}
}

func TestServer_GetEntityNotFound(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "get_entity",
		"arguments": map[string]any{
			"kind": "airports",
			"id":   "99999",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error for unknown airport")
	}
	if !strings.Contains(textFromContent(t, result), "airport 99999 not found") {
		t.Errorf("expected not-found error, got: %s", textFromContent(t, result))
	}
}

func TestServer_GetEntityInvalidID(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "get_entity",
		"arguments": map[string]any{
			"kind": "airports",
			"id":   "heathrow",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error response")
	}
	if !strings.Contains(textFromContent(t, result), "invalid id") {
		t.Errorf("expected 'invalid id' error, got: %s", textFromContent(t, result))
	}
}

func TestServer_CatalogStats(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      "catalog_stats",
		"arguments": map[string]any{},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error")
	}

	var stats struct {
		Airports int64 `json:"airports"`
		Airlines int64 `json:"airlines"`
	}
	if err := json.Unmarshal([]byte(textFromContent(t, result)), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Airports != 1 || stats.Airlines != 1 {
		t.Errorf("expected 1 airport and 1 airline, got %+v", stats)
	}
}

func TestServer_GetVersion(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      "get_version",
		"arguments": map[string]any{},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error")
	}

	text := textFromContent(t, result)
	if text != "0.3.0-test" {
		t.Errorf("expected version 0.3.0-test, got %s", text)
	}
}

// textFromContent extracts the text string from the first content item
// of a CallToolResult. It round-trips through JSON because in-process
// responses may hold the content as a map rather than a typed struct.
func textFromContent(t *testing.T, result mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	b, err := json.Marshal(result.Content[0])
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	var tc struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &tc); err != nil {
		t.Fatalf("unmarshal text content: %v", err)
	}
	return tc.Text
}

// Ensure fakes satisfy interfaces at compile time.
var (
	_ Searcher      = (*fakeSearch)(nil)
	_ CatalogReader = (*fakeCatalog)(nil)
)

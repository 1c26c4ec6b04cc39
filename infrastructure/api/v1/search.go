package v1

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skyvisionhq/skyvision"
	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/infrastructure/api/middleware"
	"github.com/skyvisionhq/skyvision/infrastructure/api/v1/dto"
)

// maxUploadBytes caps multipart image uploads.
const maxUploadBytes = 16 << 20

// SearchRouter handles search API endpoints.
type SearchRouter struct {
	client *skyvision.Client
	logger *slog.Logger
}

// NewSearchRouter creates a new SearchRouter.
func NewSearchRouter(client *skyvision.Client) *SearchRouter {
	return &SearchRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for search endpoints.
func (r *SearchRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/text", r.Text)
	router.Post("/image", r.Image)
	router.Post("/hybrid", r.Hybrid)

	return router
}

// Text handles POST /api/v1/search/text.
//
//	@Summary		Search by text
//	@Description	Rank airports or airlines by similarity to a text query
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		dto.SearchRequest	true	"Search request"
//	@Success		200		{object}	dto.SearchResponse
//	@Failure		400		{object}	middleware.JSONAPIErrorResponse
//	@Failure		503		{object}	middleware.JSONAPIErrorResponse
//	@Router			/search/text [post]
func (r *SearchRouter) Text(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.SearchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	kind, err := parseEntity(body.Entity)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	query := search.NewQuery(kind, body.Q).
		WithFilters(buildFilters(body.Country, body.City, body.Style, body.HasImage)).
		WithLimit(body.K)

	result, err := r.client.Search.Text(ctx, query)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildSearchResponse(result))
}

// Image handles POST /api/v1/search/image.
//
//	@Summary		Search by image
//	@Description	Rank airports or airlines by similarity to an uploaded image
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"Query image"
//	@Param			entity		formData	string	false	"Entity kind (airports or airlines)"
//	@Param			k			formData	int		false	"Number of results"
//	@Param			country		formData	string	false	"Country filter"
//	@Param			city		formData	string	false	"City filter"
//	@Param			style		formData	string	false	"Style filter"
//	@Param			has_image	formData	bool	false	"Only entities with images"
//	@Success		200			{object}	dto.SearchResponse
//	@Failure		400			{object}	middleware.JSONAPIErrorResponse
//	@Failure		422			{object}	middleware.JSONAPIErrorResponse
//	@Router			/search/image [post]
func (r *SearchRouter) Image(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	file, _, err := req.FormFile("file")
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "missing image file", err), r.logger)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "reading image file", err), r.logger)
		return
	}

	kind, err := parseEntity(req.FormValue("entity"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	topK := 0
	if v := req.FormValue("k"); v != "" {
		topK, err = strconv.Atoi(v)
		if err != nil {
			middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid k", err), r.logger)
			return
		}
	}

	var hasImage *bool
	if v := req.FormValue("has_image"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid has_image", err), r.logger)
			return
		}
		hasImage = &b
	}

	query := search.NewQuery(kind, "").
		WithImage(data).
		WithFilters(buildFilters(req.FormValue("country"), req.FormValue("city"), req.FormValue("style"), hasImage)).
		WithLimit(topK)

	result, err := r.client.Search.Image(ctx, query)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildSearchResponse(result))
}

// Hybrid handles POST /api/v1/search/hybrid.
//
//	@Summary		Hybrid search
//	@Description	Rank airports or airlines by a weighted blend of text and image similarity
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		dto.HybridRequest	true	"Hybrid search request"
//	@Success		200		{object}	dto.SearchResponse
//	@Failure		400		{object}	middleware.JSONAPIErrorResponse
//	@Failure		503		{object}	middleware.JSONAPIErrorResponse
//	@Router			/search/hybrid [post]
func (r *SearchRouter) Hybrid(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.HybridRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	kind, err := parseEntity(body.Entity)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	query := search.NewQuery(kind, body.Q).
		WithFilters(buildFilters(body.Country, body.City, body.Style, body.HasImage)).
		WithLimit(body.K)

	if body.ImageB64 != "" {
		data, err := base64.StdEncoding.DecodeString(body.ImageB64)
		if err != nil {
			middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid image_b64", err), r.logger)
			return
		}
		query = query.WithImage(data)
	}
	if body.WeightText != nil {
		query = query.WithTextWeight(*body.WeightText)
	}

	result, err := r.client.Search.Hybrid(ctx, query)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildSearchResponse(result))
}

// parseEntity resolves the entity form of a request. Empty means airports.
func parseEntity(entity string) (catalog.Kind, error) {
	if entity == "" {
		return catalog.KindAirport, nil
	}
	kind, err := catalog.ParseKind(entity)
	if err != nil {
		return "", err
	}
	return kind, nil
}

func buildFilters(country, city, style string, hasImage *bool) search.Filters {
	var opts []search.FiltersOption
	if country != "" {
		opts = append(opts, search.WithCountry(country))
	}
	if city != "" {
		opts = append(opts, search.WithCity(city))
	}
	if style != "" {
		opts = append(opts, search.WithStyle(style))
	}
	if hasImage != nil {
		opts = append(opts, search.WithHasImage(*hasImage))
	}
	return search.NewFilters(opts...)
}

func buildSearchResponse(result search.Result) dto.SearchResponse {
	hits := result.Hits()

	data := make([]dto.Hit, len(hits))
	for i, h := range hits {
		data[i] = hitSchema(h)
	}

	return dto.SearchResponse{
		Count: len(data),
		Hits:  data,
	}
}

func hitSchema(h search.Hit) dto.Hit {
	out := dto.Hit{
		ID:       h.ID(),
		Name:     h.Name(),
		City:     h.City(),
		Country:  h.Country(),
		Distance: h.Distance(),
	}
	if h.HasURL() {
		out.URL = h.URL()
	}
	if m := h.Metadata(); !m.IsZero() {
		out.Metadata = &dto.MetadataSchema{
			Style:       m.Style(),
			Tags:        m.Tags(),
			License:     m.License(),
			Attribution: m.Attribution(),
		}
	}
	return out
}

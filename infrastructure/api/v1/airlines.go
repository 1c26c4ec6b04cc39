package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skyvisionhq/skyvision"
	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/infrastructure/api/jsonapi"
	"github.com/skyvisionhq/skyvision/infrastructure/api/middleware"
)

// AirlinesRouter handles airline API endpoints.
type AirlinesRouter struct {
	client     *skyvision.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewAirlinesRouter creates a new AirlinesRouter.
func NewAirlinesRouter(client *skyvision.Client) *AirlinesRouter {
	return &AirlinesRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for airline endpoints.
func (r *AirlinesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Get("/{id}", r.Get)

	return router
}

// List handles GET /api/v1/airlines.
//
//	@Summary		List airlines
//	@Description	List stored airlines, optionally filtered by country or active flag
//	@Tags			airlines
//	@Accept			json
//	@Produce		json
//	@Param			country		query	string	false	"Country filter"
//	@Param			active		query	bool	false	"Only active or defunct airlines"
//	@Param			page		query	int		false	"Page number (default: 1)"
//	@Param			page_size	query	int		false	"Results per page (default: 20, max: 100)"
//	@Success		200	{object}	jsonapi.Document
//	@Failure		400	{object}	middleware.JSONAPIErrorResponse
//	@Failure		500	{object}	middleware.JSONAPIErrorResponse
//	@Router			/airlines [get]
func (r *AirlinesRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	pagination := ParsePagination(req)

	var filterOpts []catalog.Option
	if country := req.URL.Query().Get("country"); country != "" {
		filterOpts = append(filterOpts, catalog.WithCountry(country))
	}
	if activeStr := req.URL.Query().Get("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid active", err), r.logger)
			return
		}
		filterOpts = append(filterOpts, catalog.WithActive(active))
	}

	// Stable ordering keeps page boundaries consistent between requests.
	listOpts := append(filterOpts, catalog.WithOrderAsc("id"))
	listOpts = append(listOpts, pagination.Options()...)

	airlines, err := r.client.Catalog.Airlines(ctx, listOpts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	total, err := r.client.Catalog.Count(ctx, catalog.KindAirline, filterOpts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	response := jsonapi.NewListResponse(r.serializer.AirlineResources(airlines))
	response.Meta = PaginationMeta(pagination, total)
	response.Links = PaginationLinks(req, pagination, total)

	middleware.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/v1/airlines/{id}.
//
//	@Summary		Get airline
//	@Description	Get an airline by its OpenFlights ID
//	@Tags			airlines
//	@Accept			json
//	@Produce		json
//	@Param			id	path		int	true	"Airline ID"
//	@Success		200	{object}	jsonapi.Document
//	@Failure		404	{object}	middleware.JSONAPIErrorResponse
//	@Failure		500	{object}	middleware.JSONAPIErrorResponse
//	@Router			/airlines/{id} [get]
func (r *AirlinesRouter) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	idStr := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid airline id", err), r.logger)
		return
	}

	airline, err := r.client.Catalog.Airline(ctx, id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.AirlineResource(airline)))
}

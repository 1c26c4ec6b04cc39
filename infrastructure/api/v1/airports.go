// Package v1 provides the v1 API routes.
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

// AirportsRouter handles airport API endpoints.
type AirportsRouter struct {
	client     *skyvision.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewAirportsRouter creates a new AirportsRouter.
func NewAirportsRouter(client *skyvision.Client) *AirportsRouter {
	return &AirportsRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for airport endpoints.
func (r *AirportsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Get("/{id}", r.Get)

	return router
}

// List handles GET /api/v1/airports.
//
//	@Summary		List airports
//	@Description	List stored airports, optionally filtered by country or city
//	@Tags			airports
//	@Accept			json
//	@Produce		json
//	@Param			country		query	string	false	"Country filter"
//	@Param			city		query	string	false	"City filter"
//	@Param			page		query	int		false	"Page number (default: 1)"
//	@Param			page_size	query	int		false	"Results per page (default: 20, max: 100)"
//	@Success		200	{object}	jsonapi.Document
//	@Failure		500	{object}	middleware.JSONAPIErrorResponse
//	@Router			/airports [get]
func (r *AirportsRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	pagination := ParsePagination(req)

	var filterOpts []catalog.Option
	if country := req.URL.Query().Get("country"); country != "" {
		filterOpts = append(filterOpts, catalog.WithCountry(country))
	}
	if city := req.URL.Query().Get("city"); city != "" {
		filterOpts = append(filterOpts, catalog.WithCity(city))
	}

	// Stable ordering keeps page boundaries consistent between requests.
	listOpts := append(filterOpts, catalog.WithOrderAsc("id"))
	listOpts = append(listOpts, pagination.Options()...)

	airports, err := r.client.Catalog.Airports(ctx, listOpts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	total, err := r.client.Catalog.Count(ctx, catalog.KindAirport, filterOpts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	response := jsonapi.NewListResponse(r.serializer.AirportResources(airports))
	response.Meta = PaginationMeta(pagination, total)
	response.Links = PaginationLinks(req, pagination, total)

	middleware.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/v1/airports/{id}.
//
//	@Summary		Get airport
//	@Description	Get an airport by its OpenFlights ID
//	@Tags			airports
//	@Accept			json
//	@Produce		json
//	@Param			id	path		int	true	"Airport ID"
//	@Success		200	{object}	jsonapi.Document
//	@Failure		404	{object}	middleware.JSONAPIErrorResponse
//	@Failure		500	{object}	middleware.JSONAPIErrorResponse
//	@Router			/airports/{id} [get]
func (r *AirportsRouter) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	idStr := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid airport id", err), r.logger)
		return
	}

	airport, err := r.client.Catalog.Airport(ctx, id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.AirportResource(airport)))
}

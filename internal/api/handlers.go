package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/connectorservice"
	"github.com/starford/connectorstore/internal/models"
)

// Page size bounds for GET /connectors.
const (
	DefaultLimit = 30
	MaxLimit     = 100
)

// Handler holds API route handlers.
type Handler struct {
	svc *connectorservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *connectorservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Search handles GET /api/connectors.
//
//	@Summary		Search connectors with facet filters and pagination
//	@Tags			connectors
//	@Produce		json
//	@Param			q		query		string	false	"Free-text query"
//	@Param			area	query		string	false	"Area filter, repeatable or comma-separated"
//	@Param			vendor	query		string	false	"Vendor filter, repeatable or comma-separated"
//	@Param			type	query		string	false	"Type filter, repeatable or comma-separated"
//	@Param			offset	query		int		false	"Result offset"
//	@Param			limit	query		int		false	"Page size"
//	@Param			sort	query		string	false	"Sort option"	Enums(name-asc, name-desc, pullCount-desc, pullCount-asc, date-desc, date-asc)
//	@Param			enrich	query		bool	false	"Fill in aggregate pull counts"
//	@Param			org		query		string	false	"Registry organization"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/connectors [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params, enrich, err := parseSearch(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	resp, err := h.svc.Search(r.Context(), params, enrich)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Filters handles GET /api/filters.
//
//	@Summary		Facet values available for filtering
//	@Description	Returns what is known now. When a background crawl completes, the full set is pushed as a filters.updated event on /api/events.
//	@Tags			connectors
//	@Produce		json
//	@Param			org	query		string	false	"Registry organization"
//	@Success		200	{object}	FilterOptions
//	@Router			/filters [get]
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.Filters(r.Context(), r.URL.Query().Get("org"))
	if err != nil {
		writeError(w, "filters", err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// Details handles GET /api/connectors/{org}/{name} and
// GET /api/connectors/{org}/{name}/{version}.
//
//	@Summary		Connector detail view
//	@Tags			connectors
//	@Produce		json
//	@Param			org		path		string	true	"Registry organization"
//	@Param			name	path		string	true	"Package name"
//	@Param			version	path		string	false	"Package version, newest when omitted"
//	@Success		200		{object}	PackageDetails
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/connectors/{org}/{name}/{version} [get]
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	org := pathParam(r, "org")
	name := pathParam(r, "name")
	version := pathParam(r, "version")

	d, err := h.svc.Details(r.Context(), org, name, version)
	if err != nil {
		writeError(w, "details", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func parseSearch(q url.Values) (models.SearchParams, bool, error) {
	params := models.SearchParams{
		Query:   strings.TrimSpace(q.Get("q")),
		Areas:   multi(q, "area"),
		Vendors: multi(q, "vendor"),
		Types:   multi(q, "type"),
		Limit:   DefaultLimit,
		Sort:    models.SortOption(q.Get("sort")),
		OrgName: q.Get("org"),
	}

	var err error
	if v := q.Get("offset"); v != "" {
		if params.Offset, err = strconv.Atoi(v); err != nil {
			return params, false, fmt.Errorf("%w: offset must be an integer", apperr.ErrInvalidArgument)
		}
	}
	if v := q.Get("limit"); v != "" {
		if params.Limit, err = strconv.Atoi(v); err != nil {
			return params, false, fmt.Errorf("%w: limit must be an integer", apperr.ErrInvalidArgument)
		}
		if params.Limit > MaxLimit {
			params.Limit = MaxLimit
		}
	}

	enrich := false
	if v := q.Get("enrich"); v != "" {
		if enrich, err = strconv.ParseBool(v); err != nil {
			return params, false, fmt.Errorf("%w: enrich must be a boolean", apperr.ErrInvalidArgument)
		}
	}
	return params, enrich, nil
}

// multi collects a repeatable parameter, also splitting comma-separated
// values. Blank entries and repeats are dropped.
func multi(q url.Values, key string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

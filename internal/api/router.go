package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/connectorstore/internal/connectorservice"
)

// NewRouter creates a chi router with all catalog routes mounted.
// events, if non-nil, is mounted at GET /events.
func NewRouter(svc *connectorservice.Service, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(Instrument)

	r.Get("/connectors", h.Search)
	r.Get("/connectors/{org}/{name}", h.Details)
	r.Get("/connectors/{org}/{name}/{version}", h.Details)

	r.Get("/filters", h.Filters)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}

package api

import (
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/sse"
)

// SearchResponse is one page of connectors (aliased from the domain layer).
type SearchResponse = models.SearchResponse

// FilterOptions lists the facet values available for filtering (aliased from the domain layer).
type FilterOptions = models.FilterOptions

// PackageDetails is the connector detail view (aliased from the domain layer).
type PackageDetails = models.PackageDetails

// FiltersUpdatedEvent is the payload of a filters.updated event on /api/events.
type FiltersUpdatedEvent = sse.FiltersUpdated

// CatalogReloadedEvent is the payload of a catalog.reloaded event on /api/events.
type CatalogReloadedEvent = sse.CatalogReloaded

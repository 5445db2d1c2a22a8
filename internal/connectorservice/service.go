// Package connectorservice coordinates search, filter options, enrichment
// and detail lookups for the HTTP and MCP front ends.
package connectorservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/metadata"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/readme"
	"github.com/starford/connectorstore/internal/search"
)

// Searcher answers catalog searches. *search.Engine and *catalog.Source
// implement it.
type Searcher interface {
	Search(ctx context.Context, params models.SearchParams) (models.SearchResponse, error)
}

// FilterLoader returns filter options, reporting complete options later
// through onUpdate. *facets.Loader implements it.
type FilterLoader interface {
	Get(ctx context.Context, org string, onUpdate func(models.FilterOptions)) (models.FilterOptions, error)
}

// Enricher adds aggregate pull counts to records. *enrich.Batcher
// implements it.
type Enricher interface {
	Enrich(ctx context.Context, org string, records []models.Package) []models.Package
}

// DetailSource fetches one package version with its README and the list of
// published versions.
type DetailSource interface {
	Details(ctx context.Context, org, name, version string) (Detail, error)
}

// Detail is what a DetailSource returns.
type Detail struct {
	Package  models.Package
	Readme   string
	Versions []string
}

// DocsLookup resolves a connector's external documentation link.
// *registry.DocsClient implements it.
type DocsLookup interface {
	DocumentationURL(ctx context.Context, name string) (string, error)
}

// FiltersPublisher receives complete filter options once a background crawl
// finishes. *sse.Broker implements it.
type FiltersPublisher interface {
	PublishFilters(org string, opts models.FilterOptions)
}

// Service is the application layer over the catalog sources.
type Service struct {
	search    Searcher
	filters   FilterLoader
	details   DetailSource
	enricher  Enricher
	docs      DocsLookup
	publisher FiltersPublisher
	org       string
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEnricher enables pull-count enrichment of search results.
func WithEnricher(e Enricher) Option {
	return func(s *Service) { s.enricher = e }
}

// WithDocs enables documentation links on detail views.
func WithDocs(d DocsLookup) Option {
	return func(s *Service) { s.docs = d }
}

// WithPublisher forwards completed filter options to p.
func WithPublisher(p FiltersPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithDefaultOrg sets the organization used when a request names none.
func WithDefaultOrg(org string) Option {
	return func(s *Service) {
		if org != "" {
			s.org = org
		}
	}
}

// WithLogger sets the service's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service.
func New(search Searcher, filters FilterLoader, details DetailSource, opts ...Option) *Service {
	s := &Service{
		search:  search,
		filters: filters,
		details: details,
		org:     models.DefaultOrg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultOrg returns the organization used for requests that name none.
func (s *Service) DefaultOrg() string {
	return s.org
}

// Search runs params and, when enrich is set and an enricher is configured,
// fills in aggregate pull counts on the returned page.
func (s *Service) Search(ctx context.Context, params models.SearchParams, enrich bool) (models.SearchResponse, error) {
	if params.OrgName == "" {
		params.OrgName = s.org
	}
	if err := search.Validate(params); err != nil {
		return models.SearchResponse{}, err
	}
	resp, err := s.search.Search(ctx, params)
	if err != nil {
		return models.SearchResponse{}, err
	}
	if resp.Packages == nil {
		resp.Packages = []models.Package{}
	}
	if enrich && s.enricher != nil && len(resp.Packages) > 0 {
		resp.Packages = s.enricher.Enrich(ctx, params.OrgName, resp.Packages)
	}
	return resp, nil
}

// Filters returns the filter options for org. Complete options computed in
// the background are handed to the configured publisher.
func (s *Service) Filters(ctx context.Context, org string) (models.FilterOptions, error) {
	if org == "" {
		org = s.org
	}
	var onUpdate func(models.FilterOptions)
	if s.publisher != nil {
		onUpdate = func(opts models.FilterOptions) {
			s.logger.Info("service: complete filter options ready",
				slog.String("org", org),
				slog.Int("areas", len(opts.Areas)),
				slog.Int("vendors", len(opts.Vendors)),
				slog.Int("types", len(opts.Types)))
			s.publisher.PublishFilters(org, opts)
		}
	}
	return s.filters.Get(ctx, org, onUpdate)
}

// Details returns the detail view of a package version. An empty version
// selects the newest one.
func (s *Service) Details(ctx context.Context, org, name, version string) (models.PackageDetails, error) {
	if org == "" {
		org = s.org
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.PackageDetails{}, fmt.Errorf("%w: package name is required", apperr.ErrInvalidArgument)
	}

	d, err := s.details.Details(ctx, org, name, version)
	if err != nil {
		return models.PackageDetails{}, err
	}

	meta := metadata.Parse(d.Package.Keywords)
	sections := readme.Extract(d.Readme)
	out := models.PackageDetails{
		Package:     d.Package,
		Org:         org,
		Readme:      d.Readme,
		Versions:    d.Versions,
		DisplayName: metadata.DisplayName(d.Package.Name, meta.Vendor),
		Metadata:    meta,
		Overview:    sections.Overview,
		Setup:       sections.Setup,
	}
	if out.Versions == nil {
		out.Versions = []string{}
	}

	if s.enricher != nil {
		out.Package = s.enricher.Enrich(ctx, org, []models.Package{out.Package})[0]
	}
	if s.docs != nil {
		url, err := s.docs.DocumentationURL(ctx, out.DisplayName)
		switch {
		case err == nil:
			out.DocsURL = url
		case errors.Is(err, apperr.ErrNotFound):
		default:
			s.logger.Warn("service: docs lookup failed",
				slog.String("name", name),
				slog.String("error", err.Error()))
		}
	}
	return out, nil
}

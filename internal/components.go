package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/connectorstore/internal/api"
	"github.com/starford/connectorstore/internal/cachestore"
	"github.com/starford/connectorstore/internal/catalog"
	"github.com/starford/connectorstore/internal/connectorservice"
	"github.com/starford/connectorstore/internal/enrich"
	"github.com/starford/connectorstore/internal/facets"
	"github.com/starford/connectorstore/internal/metrics"
	"github.com/starford/connectorstore/internal/registry"
	"github.com/starford/connectorstore/internal/retry"
	"github.com/starford/connectorstore/internal/search"
	"github.com/starford/connectorstore/internal/sse"
	"github.com/starford/connectorstore/internal/storage"
)

// components is the wired object graph shared by the HTTP server and the
// MCP server.
type components struct {
	cfg    *Config
	logger *slog.Logger

	client *registry.Client
	store  cachestore.Store
	files  *storage.FS
	source *catalog.Source
	loader *facets.Loader
	counts *enrich.Cache
	broker *sse.Broker
	svc    *connectorservice.Service
}

func registryPolicy(name string, rc RetryConfig, logger *slog.Logger) retry.Policy {
	return retry.Policy{Name: name, Attempts: rc.Attempts, BaseDelay: rc.BaseDelay, Logger: logger}
}

func newRegistryClient(cfg *Config) *registry.Client {
	return registry.New(
		registry.WithHTTPClient(&http.Client{Timeout: cfg.Registry.Timeout}),
		registry.WithRESTURL(cfg.Registry.RESTURL),
		registry.WithGraphQLURL(cfg.Registry.GraphQLURL),
	)
}

func build(ctx context.Context, cfg *Config, logger *slog.Logger) (*components, error) {
	c := &components{cfg: cfg, logger: logger}

	store, err := cachestore.Open(ctx, cfg.Cache.Options())
	if err != nil {
		return nil, fmt.Errorf("init cache store: %w", err)
	}
	c.store = store

	c.broker = sse.NewBroker(cfg.SSE.KeepAlive)

	var (
		searcher connectorservice.Searcher
		pager    facets.Pager
		details  connectorservice.DetailSource
		opts     []connectorservice.Option
	)

	switch cfg.Registry.Mode {
	case ModeSnapshot:
		files, err := storage.NewFS(cfg.Snapshot.Dir)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init snapshot dir: %w", err)
		}
		c.files = files
		c.source = catalog.NewSource(files, cfg.Snapshot.Name, logger)
		if _, err := c.source.Load(); err != nil {
			logger.Warn("catalog: snapshot not loaded, serving empty catalog until it appears",
				slog.String("dir", cfg.Snapshot.Dir),
				slog.String("error", err.Error()))
		}
		searcher, pager = c.source, c.source
		details = connectorservice.SnapshotDetails{Source: c.source}

	default:
		c.client = newRegistryClient(cfg)
		engine := search.New(c.client,
			search.WithRetryPolicy(registryPolicy("search", cfg.Registry.Retry, logger)),
			search.WithMaxCombinations(cfg.Search.MaxCombinations),
			search.WithMaxConcurrency(cfg.Search.MaxConcurrency),
			search.WithLogger(logger))
		searcher, pager = engine, engine
		details = connectorservice.RegistryDetails{
			Client: c.client,
			Policy: registryPolicy("details", cfg.Registry.Retry, logger),
		}

		if cfg.Enrich.Enabled {
			c.counts = enrich.NewCache(cfg.Enrich.CacheTTL, cfg.Enrich.CacheCapacity)
			opts = append(opts, connectorservice.WithEnricher(enrich.NewBatcher(c.client, c.counts,
				enrich.WithBatchSize(cfg.Enrich.BatchSize),
				enrich.WithRetryPolicy(registryPolicy("pull_counts", cfg.Enrich.Retry, logger)),
				enrich.WithLogger(logger))))
		}
		if cfg.Registry.DocsURL != "" {
			opts = append(opts, connectorservice.WithDocs(registry.NewDocsClient(c.client, cfg.Registry.DocsURL)))
		}
	}

	c.loader = facets.NewLoader(pager, store,
		facets.WithTTL(cfg.Cache.TTL),
		facets.WithPageSize(cfg.Cache.PageSize),
		facets.WithCrawlTimeout(cfg.Cache.CrawlTimeout),
		facets.WithLogger(logger))

	opts = append(opts,
		connectorservice.WithPublisher(c.broker),
		connectorservice.WithDefaultOrg(cfg.Registry.Org),
		connectorservice.WithLogger(logger))
	c.svc = connectorservice.New(searcher, c.loader, details, opts...)
	return c, nil
}

// ready reports whether the service can answer catalog requests.
func (c *components) ready() error {
	if c.source != nil && c.source.Snapshot().Org == "" {
		return errors.New("catalog snapshot not loaded")
	}
	return nil
}

// onSnapshotReload drops cached filter options derived from the previous
// snapshot and tells subscribers about the new one.
func (c *components) onSnapshotReload(ctx context.Context) func(catalog.Snapshot) {
	return func(snap catalog.Snapshot) {
		c.loader.Invalidate(ctx, snap.Org)
		c.broker.PublishCatalogReloaded(snap.Org, len(snap.Packages))
	}
}

// handler builds the root router: middleware, health checks, metrics and
// the API under /api.
func (c *components) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", api.NewRouter(c.svc, c.broker))
	return r
}

// Close stops background work and releases the cache store.
func (c *components) Close() {
	if c.loader != nil {
		c.loader.Close()
	}
	if c.broker != nil {
		c.broker.Close()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("cache store close failed", slog.String("error", err.Error()))
		}
	}
}

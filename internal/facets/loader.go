package facets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/connectorstore/internal/cachestore"
	"github.com/starford/connectorstore/internal/metrics"
	"github.com/starford/connectorstore/internal/models"
)

// CacheKey is the store key of the default organization's entry.
const CacheKey = "ballerina_connector_filters"

// Defaults.
const (
	DefaultTTL          = 24 * time.Hour
	DefaultPageSize     = 100
	DefaultCrawlTimeout = 5 * time.Minute
)

// State reports how complete the loader's most recent options are.
type State int

const (
	Cold State = iota
	FetchingPartial
	PartialReady
	FetchingFull
	FullReady
)

func (s State) String() string {
	switch s {
	case Cold:
		return "cold"
	case FetchingPartial:
		return "fetching_partial"
	case PartialReady:
		return "partial_ready"
	case FetchingFull:
		return "fetching_full"
	case FullReady:
		return "full_ready"
	}
	return "unknown"
}

// Pager fetches one page of search results. *search.Engine implements it.
type Pager interface {
	Search(ctx context.Context, params models.SearchParams) (models.SearchResponse, error)
}

// Entry is the persisted cache value. Timestamp is in Unix milliseconds.
type Entry struct {
	Filters   models.FilterOptions `json:"filters"`
	Timestamp int64                `json:"timestamp"`
}

// Loader returns filter options quickly from a first page of results and
// completes them with a background crawl of the whole catalog.
type Loader struct {
	src          Pager
	store        cachestore.Store
	ttl          time.Duration
	pageSize     int
	crawlTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	states  map[string]State
	waiters map[string][]func(models.FilterOptions) // keyed by org while its crawl runs
}

// Option configures a Loader.
type Option func(*Loader)

// WithTTL sets how long a cached entry is served.
func WithTTL(d time.Duration) Option {
	return func(l *Loader) { l.ttl = d }
}

// WithPageSize sets the page size of the first fetch and of the crawl.
func WithPageSize(n int) Option {
	return func(l *Loader) { l.pageSize = n }
}

// WithCrawlTimeout bounds one background crawl.
func WithCrawlTimeout(d time.Duration) Option {
	return func(l *Loader) { l.crawlTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// WithLogger sets the loader's logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

// NewLoader returns a Loader reading pages from src and caching in store.
func NewLoader(src Pager, store cachestore.Store, opts ...Option) *Loader {
	base, cancel := context.WithCancel(context.Background())
	l := &Loader{
		src:          src,
		store:        store,
		ttl:          DefaultTTL,
		pageSize:     DefaultPageSize,
		crawlTimeout: DefaultCrawlTimeout,
		now:          time.Now,
		logger:       slog.Default(),
		base:         base,
		cancel:       cancel,
		states:       make(map[string]State),
		waiters:      make(map[string][]func(models.FilterOptions)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the loader's current state for org.
func (l *Loader) State(org string) State {
	if org == "" {
		org = models.DefaultOrg
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[org]
}

func (l *Loader) setState(org string, s State) {
	l.mu.Lock()
	l.states[org] = s
	l.mu.Unlock()
}

// Key returns the store key for org.
func Key(org string) string {
	if org == "" || org == models.DefaultOrg {
		return CacheKey
	}
	return CacheKey + ":" + org
}

// Get returns filter options for org. A fresh cache entry is returned
// without touching the registry. Otherwise the first page is fetched and its
// options returned; when the catalog is larger than one page the rest is
// crawled in the background and onUpdate, if set, receives the complete
// options once the crawl ends. Callers that arrive while the org's crawl is
// running share it and are notified when it ends.
func (l *Loader) Get(ctx context.Context, org string, onUpdate func(models.FilterOptions)) (models.FilterOptions, error) {
	if org == "" {
		org = models.DefaultOrg
	}
	if opts, ok := l.cached(ctx, org); ok {
		l.setState(org, FullReady)
		return opts, nil
	}

	l.setState(org, FetchingPartial)
	first, err := l.src.Search(ctx, l.page(org, 0))
	if err != nil {
		l.setState(org, Cold)
		return models.FilterOptions{}, fmt.Errorf("facets: first page: %w", err)
	}
	opts := Extract(first.Packages)

	if first.Count <= l.pageSize {
		l.save(ctx, org, opts)
		l.setState(org, FullReady)
		return opts, nil
	}

	l.setState(org, PartialReady)
	l.startCrawl(org, first, onUpdate)
	return opts, nil
}

func (l *Loader) page(org string, offset int) models.SearchParams {
	return models.SearchParams{
		Offset:  offset,
		Limit:   l.pageSize,
		Sort:    models.SortDateDesc,
		OrgName: org,
	}
}

func (l *Loader) cached(ctx context.Context, org string) (models.FilterOptions, bool) {
	key := Key(org)
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, cachestore.ErrMiss) {
		metrics.FacetCache.WithLabelValues("miss").Inc()
		return models.FilterOptions{}, false
	}
	if err != nil {
		metrics.FacetCache.WithLabelValues("error").Inc()
		l.logger.Warn("facets: cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return models.FilterOptions{}, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		metrics.FacetCache.WithLabelValues("error").Inc()
		l.logger.Warn("facets: cache entry unreadable", slog.String("key", key), slog.String("error", err.Error()))
		l.drop(ctx, key)
		return models.FilterOptions{}, false
	}
	age := l.now().Sub(time.UnixMilli(e.Timestamp))
	if age >= l.ttl {
		metrics.FacetCache.WithLabelValues("expired").Inc()
		l.logger.Info("facets: cache entry expired", slog.String("key", key), slog.Duration("age", age))
		l.drop(ctx, key)
		return models.FilterOptions{}, false
	}
	metrics.FacetCache.WithLabelValues("hit").Inc()
	return e.Filters, true
}

// Invalidate drops the cached entry for org so the next Get recomputes it.
func (l *Loader) Invalidate(ctx context.Context, org string) {
	if org == "" {
		org = models.DefaultOrg
	}
	l.drop(ctx, Key(org))
	l.setState(org, Cold)
}

func (l *Loader) drop(ctx context.Context, key string) {
	if err := l.store.Delete(ctx, key); err != nil {
		l.logger.Warn("facets: cache delete failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (l *Loader) save(ctx context.Context, org string, opts models.FilterOptions) {
	key := Key(org)
	raw, err := json.Marshal(Entry{Filters: opts, Timestamp: l.now().UnixMilli()})
	if err == nil {
		err = l.store.Set(ctx, key, raw)
	}
	if err != nil {
		l.logger.Warn("facets: cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// startCrawl launches the background crawl for org unless one is running,
// in which case onUpdate joins the running crawl's waiters.
func (l *Loader) startCrawl(org string, first models.SearchResponse, onUpdate func(models.FilterOptions)) {
	l.mu.Lock()
	l.states[org] = FetchingFull
	waiting, running := l.waiters[org]
	if onUpdate != nil {
		waiting = append(waiting, onUpdate)
	}
	l.waiters[org] = waiting
	if running {
		l.mu.Unlock()
		l.logger.Debug("facets: crawl already running", slog.String("org", org))
		return
	}
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(l.base, l.crawlTimeout)
		defer cancel()

		records, complete := l.crawl(ctx, org, first)
		opts := Extract(records)
		if complete {
			l.save(ctx, org, opts)
		}

		l.mu.Lock()
		if complete {
			l.states[org] = FullReady
		} else {
			l.states[org] = PartialReady
		}
		notify := l.waiters[org]
		delete(l.waiters, org)
		l.mu.Unlock()

		for _, fn := range notify {
			fn(opts)
		}
	}()
}

// crawl fetches every page after first. It reports false when a page failed
// and the records are therefore incomplete.
func (l *Loader) crawl(ctx context.Context, org string, first models.SearchResponse) ([]models.Package, bool) {
	records := append([]models.Package(nil), first.Packages...)
	total := first.Count
	start := time.Now()

	for offset := l.pageSize; offset < total; offset += l.pageSize {
		resp, err := l.src.Search(ctx, l.page(org, offset))
		if err != nil {
			l.logger.Error("facets: crawl stopped",
				slog.String("org", org),
				slog.Int("offset", offset),
				slog.Int("fetched", len(records)),
				slog.String("error", err.Error()))
			return records, false
		}
		records = append(records, resp.Packages...)
		if len(resp.Packages) == 0 {
			break
		}
	}

	l.logger.Info("facets: crawl complete",
		slog.String("org", org),
		slog.Int("records", len(records)),
		slog.Int("count", total),
		slog.Duration("took", time.Since(start)))
	return records, true
}

// Wait blocks until running background crawls end.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close cancels running crawls and waits for them.
func (l *Loader) Close() {
	l.cancel()
	l.wg.Wait()
}

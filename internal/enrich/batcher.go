// Package enrich fills in aggregate pull counts for search results, asking
// the registry's GraphQL API for many packages per request.
package enrich

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/connectorstore/internal/metrics"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/registry"
	"github.com/starford/connectorstore/internal/retry"
)

// DefaultBatchSize is the number of packages per GraphQL request.
const DefaultBatchSize = 50

// Counter fetches aggregate pull counts in one request. *registry.Client
// implements it.
type Counter interface {
	PullCounts(ctx context.Context, org string, refs []registry.PackageRef) (map[string]int, error)
}

// Batcher enriches records with aggregate pull counts.
type Batcher struct {
	src       Counter
	cache     *Cache
	batchSize int
	policy    retry.Policy
	logger    *slog.Logger
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithBatchSize sets the number of packages per request.
func WithBatchSize(n int) Option {
	return func(b *Batcher) { b.batchSize = n }
}

// WithRetryPolicy overrides the per-batch retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(b *Batcher) { b.policy = p }
}

// WithLogger sets the batcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Batcher) { b.logger = l }
}

// NewBatcher returns a Batcher querying src and remembering counts in cache.
func NewBatcher(src Counter, cache *Cache, opts ...Option) *Batcher {
	b := &Batcher{
		src:       src,
		cache:     cache,
		batchSize: DefaultBatchSize,
		policy:    retry.Policy{Name: "pull_counts", Attempts: 2, BaseDelay: 500 * time.Millisecond},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.policy.Logger == nil {
		b.policy.Logger = b.logger
	}
	if b.batchSize <= 0 {
		b.batchSize = DefaultBatchSize
	}
	return b
}

// Enrich returns a copy of records, each carrying its aggregate pull count.
// Counts already cached are not fetched again. A batch that keeps failing
// leaves its records with their per-version count instead.
func (b *Batcher) Enrich(ctx context.Context, org string, records []models.Package) []models.Package {
	if org == "" {
		org = models.DefaultOrg
	}

	var missing []registry.PackageRef
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		if _, ok := b.cache.Get(org, r.Name); ok {
			continue
		}
		missing = append(missing, registry.PackageRef{Name: r.Name, Version: r.Version})
	}

	if len(missing) > 0 {
		b.fetch(ctx, org, missing)
	}

	out := make([]models.Package, len(records))
	for i, r := range records {
		if n, ok := b.cache.Get(org, r.Name); ok {
			out[i] = r.WithTotalPullCount(n)
			continue
		}
		if r.PullCount != nil {
			out[i] = r.WithTotalPullCount(*r.PullCount)
			continue
		}
		out[i] = r
	}
	return out
}

// fetch queries refs in parallel batches and merges the results into the
// cache.
func (b *Batcher) fetch(ctx context.Context, org string, refs []registry.PackageRef) {
	var mu sync.Mutex
	counts := make(map[string]int, len(refs))

	var g errgroup.Group
	batches := 0
	for start := 0; start < len(refs); start += b.batchSize {
		batch := refs[start:min(start+b.batchSize, len(refs))]
		batches++
		g.Go(func() error {
			got := retry.DoOr(ctx, b.policy, map[string]int(nil), func(ctx context.Context) (map[string]int, error) {
				return b.src.PullCounts(ctx, org, batch)
			})
			if got == nil {
				metrics.EnrichBatches.WithLabelValues("failed").Inc()
			} else {
				metrics.EnrichBatches.WithLabelValues("ok").Inc()
			}
			mu.Lock()
			for k, v := range got {
				counts[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for name, n := range counts {
		b.cache.Set(org, name, n)
	}
	b.logger.Debug("enrich: pull counts fetched",
		slog.String("org", org),
		slog.Int("requested", len(refs)),
		slog.Int("resolved", len(counts)),
		slog.Int("batches", batches))
}

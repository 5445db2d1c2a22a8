// Package search runs catalog searches against the registry, fanning
// multi-valued filters out into concurrent sub-queries and merging the
// results back into one page.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/metrics"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/query"
	"github.com/starford/connectorstore/internal/registry"
	"github.com/starford/connectorstore/internal/retry"
)

// DefaultMaxConcurrency bounds the sub-queries one search runs at a time.
const DefaultMaxConcurrency = 8

// MaxOffset is the largest accepted offset. offset+limit must stay
// representable when sub-queries fetch the whole window.
const MaxOffset = math.MaxInt32

// Searcher runs one provider-level search. *registry.Client implements it.
type Searcher interface {
	SearchPackages(ctx context.Context, r registry.SearchRequest) (models.SearchResponse, error)
}

// Engine executes SearchParams against a Searcher.
type Engine struct {
	src             Searcher
	policy          retry.Policy
	maxCombinations int
	maxConcurrency  int
	logger          *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryPolicy overrides the retry policy applied to every sub-query.
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithMaxCombinations sets the fan-out ceiling passed to query.Expand.
func WithMaxCombinations(n int) Option {
	return func(e *Engine) {
		e.maxCombinations = n
	}
}

// WithMaxConcurrency bounds how many sub-queries run at once.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		e.maxConcurrency = n
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New returns an Engine reading from src.
func New(src Searcher, opts ...Option) *Engine {
	e := &Engine{
		src:             src,
		policy:          retry.Default("search"),
		maxCombinations: query.DefaultMaxCombinations,
		maxConcurrency:  DefaultMaxConcurrency,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy.Logger == nil {
		e.policy.Logger = e.logger
	}
	return e
}

// Validate checks a request before it is sent upstream.
func Validate(params models.SearchParams) error {
	if params.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", apperr.ErrInvalidArgument)
	}
	if params.Offset > MaxOffset {
		return fmt.Errorf("%w: offset must not exceed %d", apperr.ErrInvalidArgument, MaxOffset)
	}
	if params.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", apperr.ErrInvalidArgument)
	}
	if params.Limit > MaxOffset {
		return fmt.Errorf("%w: limit must not exceed %d", apperr.ErrInvalidArgument, MaxOffset)
	}
	if params.Sort != "" {
		if err := params.Sort.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
		}
	}
	return nil
}

// Search returns one page of results for params. A request that expands to
// a single sub-query is answered by the provider as is. Otherwise every
// sub-query fetches the first offset+limit results, and the concatenation
// is deduplicated by name and version before the page is cut. Any sub-query
// that still fails after retries fails the whole search.
func (e *Engine) Search(ctx context.Context, params models.SearchParams) (models.SearchResponse, error) {
	if err := Validate(params); err != nil {
		return models.SearchResponse{}, err
	}
	if params.Sort == "" {
		params.Sort = models.DefaultSort
	}

	subs := query.Expand(params, e.maxCombinations, e.logger)
	metrics.SubQueries.Observe(float64(len(subs)))

	if len(subs) == 1 {
		resp, err := e.run(ctx, subs[0])
		if err != nil {
			return models.SearchResponse{}, e.upstream(ctx, err)
		}
		return resp, nil
	}

	e.logger.Debug("search: fanning out",
		slog.Int("sub_queries", len(subs)),
		slog.Int("offset", params.Offset),
		slog.Int("limit", params.Limit))

	window := params.Offset + params.Limit
	results := make([][]models.Package, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}
	for i, sub := range subs {
		sub.Offset = 0
		sub.Limit = window
		g.Go(func() error {
			resp, err := e.run(gctx, sub)
			if err != nil {
				return err
			}
			results[i] = resp.Packages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.SearchResponse{}, e.upstream(ctx, err)
	}

	return Merge(results, params.Offset, params.Limit), nil
}

func (e *Engine) run(ctx context.Context, params models.SearchParams) (models.SearchResponse, error) {
	sort, err := query.SortParam(params.Sort)
	if err != nil {
		return models.SearchResponse{}, retry.Permanent(err)
	}
	req := registry.SearchRequest{
		Query:  query.Build(params),
		Offset: params.Offset,
		Limit:  params.Limit,
		Sort:   sort,
	}
	return retry.Do(ctx, e.policy, func(ctx context.Context) (models.SearchResponse, error) {
		return e.src.SearchPackages(ctx, req)
	})
}

func (e *Engine) upstream(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if apperr.IsClientError(err) {
		return err
	}
	e.logger.Error("search: upstream failed", slog.String("error", err.Error()))
	return fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
}

// Merge concatenates per-sub-query results in order, drops repeated
// name-version pairs keeping the first, and cuts the page at offset/limit.
// Count is the size of the deduplicated set.
func Merge(results [][]models.Package, offset, limit int) models.SearchResponse {
	var all []models.Package
	for _, r := range results {
		all = append(all, r...)
	}
	deduped := Dedup(all)

	page := []models.Package{}
	if offset < len(deduped) {
		end := min(offset+limit, len(deduped))
		page = append(page, deduped[offset:end]...)
	}
	return models.SearchResponse{
		Packages: page,
		Count:    len(deduped),
		Offset:   offset,
		Limit:    limit,
	}
}

// Dedup returns records with repeated name-version pairs removed, keeping
// the first occurrence. The input is not modified.
func Dedup(records []models.Package) []models.Package {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.Package, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

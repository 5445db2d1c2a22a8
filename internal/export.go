package internal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/connectorstore/internal/catalog"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/retry"
	"github.com/starford/connectorstore/internal/search"
	"github.com/starford/connectorstore/internal/storage"
)

// exportPageSize is the GraphQL page size used while crawling the catalog.
const exportPageSize = 100

// CatalogPager pages through an organization's packages.
// *registry.Client implements it.
type CatalogPager interface {
	Packages(ctx context.Context, org string, limit, offset int) ([]models.Package, error)
}

// Export crawls the configured organization's catalog and writes it as a
// snapshot file for snapshot mode. Without WithExportPath the file goes to
// the configured snapshot location.
func Export(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	out := app.exportTo
	if out == "" {
		out = filepath.Join(cfg.Snapshot.Dir, cfg.Snapshot.Name)
	}

	policy := registryPolicy("export", cfg.Registry.Retry, logger)
	snap, err := crawlCatalog(ctx, newRegistryClient(cfg), policy, cfg.Registry.Org, logger)
	if err != nil {
		return err
	}
	if err := writeSnapshot(out, snap); err != nil {
		return err
	}

	logger.Info("export: snapshot written",
		slog.String("path", out),
		slog.String("org", snap.Org),
		slog.Int("packages", len(snap.Packages)))
	return nil
}

func crawlCatalog(ctx context.Context, src CatalogPager, policy retry.Policy, org string, logger *slog.Logger) (catalog.Snapshot, error) {
	var all []models.Package
	for offset := 0; ; offset += exportPageSize {
		page, err := retry.Do(ctx, policy, func(ctx context.Context) ([]models.Package, error) {
			return src.Packages(ctx, org, exportPageSize, offset)
		})
		if err != nil {
			return catalog.Snapshot{}, fmt.Errorf("export: page at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		logger.Debug("export: page fetched", slog.Int("offset", offset), slog.Int("packages", len(page)))
		if len(page) < exportPageSize {
			break
		}
	}
	return catalog.Snapshot{
		Org:         org,
		GeneratedAt: time.Now().UTC(),
		Packages:    search.Dedup(all),
	}, nil
}

func writeSnapshot(path string, snap catalog.Snapshot) error {
	files, err := storage.NewFS(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("export: encode snapshot: %w", err)
	}
	if err := files.Write(filepath.Base(path), data); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

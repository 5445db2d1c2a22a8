// Package testutil provides shared test helpers for setting up catalog
// snapshots and cache stores.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/connectorstore/internal/cachestore"
	"github.com/starford/connectorstore/internal/catalog"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/storage"
)

// QuietLogger returns a JSON logger that only reports errors.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func intp(n int) *int { return &n }

// Packages returns a small catalog covering three areas, two types and a
// package published in two versions.
func Packages() []models.Package {
	return []models.Package{
		{
			Name: "stripe", Version: "1.2.0", Summary: "Stripe payments API",
			Keywords:    []string{"Area/Finance", "Vendor/Stripe", "Type/Connector"},
			CreatedDate: "2024-03-01T10:00:00Z", PullCount: intp(1500),
		},
		{
			Name: "stripe", Version: "1.1.0", Summary: "Stripe payments API",
			Keywords:    []string{"Area/Finance", "Vendor/Stripe", "Type/Connector"},
			CreatedDate: "2023-11-20T10:00:00Z", PullCount: intp(300),
		},
		{
			Name: "openai.chat", Version: "3.0.1", Summary: "OpenAI chat completions",
			Keywords:    []string{"Area/AI", "Vendor/OpenAI", "Type/Connector"},
			CreatedDate: "2024-06-15T08:30:00Z", PullCount: intp(4200),
		},
		{
			Name: "quickbooks.online", Version: "2.0.0", Summary: "QuickBooks accounting",
			Keywords:    []string{"Area/Finance", "Vendor/Intuit", "Type/Trigger"},
			CreatedDate: "2022-01-05T00:00:00Z", PullCount: intp(80),
		},
	}
}

// TestSnapshot writes a snapshot of pkgs into a temporary directory and
// returns a Source that has loaded it.
func TestSnapshot(t *testing.T, org string, pkgs []models.Package) (*catalog.Source, *storage.FS) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	data, err := catalog.Snapshot{Org: org, Packages: pkgs}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(catalog.DefaultSnapshotName, data); err != nil {
		t.Fatal(err)
	}
	src := catalog.NewSource(store, catalog.DefaultSnapshotName, QuietLogger())
	if _, err := src.Load(); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return src, store
}

// TestCacheDB opens a temporary SQLite cache store that is closed on cleanup.
func TestCacheDB(t *testing.T) *cachestore.SQLite {
	t.Helper()
	db, err := cachestore.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

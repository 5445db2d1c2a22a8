package catalog

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeSnapshot(t *testing.T, store storage.Provider, snap Snapshot) {
	t.Helper()
	data, err := snap.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(DefaultSnapshotName, data); err != nil {
		t.Fatal(err)
	}
}

func loadedSource(t *testing.T) (*Source, *storage.FS) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	recs := append(fixture(), models.Package{Name: "stripe", Version: "1.1.0", Keywords: []string{"Area/Finance", "Vendor/Stripe"}})
	writeSnapshot(t, store, Snapshot{Org: "ballerinax", Packages: recs})
	src := NewSource(store, "", quietLogger())
	if changed, err := src.Load(); err != nil || !changed {
		t.Fatalf("Load = %v, %v", changed, err)
	}
	return src, store
}

func TestSource_Search(t *testing.T) {
	src, _ := loadedSource(t)
	resp, err := src.Search(context.Background(), models.SearchParams{
		Areas: []string{"Finance"}, Sort: models.SortNameAsc, Offset: 1, Limit: 1,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}
	if got := keys(resp.Packages); !reflect.DeepEqual(got, []string{"stripe"}) {
		t.Errorf("page = %v", got)
	}

	other, _ := src.Search(context.Background(), models.SearchParams{OrgName: "wso2", Limit: 10})
	if other.Count != 0 || len(other.Packages) != 0 {
		t.Errorf("other org returned %+v", other)
	}
}

func TestSource_LoadSkipsUnchanged(t *testing.T) {
	src, _ := loadedSource(t)
	changed, err := src.Load()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("unchanged file reported as changed")
	}
}

func TestSource_Package(t *testing.T) {
	src, _ := loadedSource(t)
	p, versions, err := src.Package("ballerinax", "stripe", "")
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if p.Version != "1.1.0" || !reflect.DeepEqual(versions, []string{"1.1.0", "1.0.0"}) {
		t.Errorf("got %s with versions %v", p.Version, versions)
	}
	if _, _, err := src.Package("ballerinax", "stripe", "9.9.9"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown version err = %v", err)
	}
	if _, _, err := src.Package("ballerinax", "nope", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown package err = %v", err)
	}
}

func TestSource_CorruptFileKeepsPrevious(t *testing.T) {
	src, store := loadedSource(t)
	_ = store.Write(DefaultSnapshotName, []byte("{broken"))
	if _, err := src.Load(); err == nil {
		t.Fatal("expected decode error")
	}
	if n := len(src.Snapshot().Packages); n != 4 {
		t.Errorf("packages = %d, previous snapshot should be kept", n)
	}
}

func TestWatch_ReloadsOnReplace(t *testing.T) {
	src, store := loadedSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var reloads []int
	go Watch(ctx, src, store.Root(), quietLogger(), func(s Snapshot) {
		mu.Lock()
		reloads = append(reloads, len(s.Packages))
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	writeSnapshot(t, store, Snapshot{Org: "ballerinax", Packages: fixture()[:1]})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(reloads)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(reloads) == 0 || reloads[len(reloads)-1] != 1 {
		t.Errorf("reloads = %v, want a reload with 1 package", reloads)
	}
}

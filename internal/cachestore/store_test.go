package cachestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// exercise runs the common Store contract against s.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get on empty store: err = %v, want ErrMiss", err)
	}
	if err := s.Set(ctx, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("got %q, want %q", got, `{"a":1}`)
	}

	if err := s.Set(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _ = s.Get(ctx, "k")
	if string(got) != "second" {
		t.Errorf("after overwrite got %q, want %q", got, "second")
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get after delete: err = %v, want ErrMiss", err)
	}
	if err := s.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete of absent key: %v", err)
	}
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	exercise(t, s)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.Get(context.Background(), "k")
	if err != nil || string(got) != "v" {
		t.Errorf("got %q, %v after reopen", got, err)
	}
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := OpenRedis(context.Background(), mr.Addr(), 0, "cs:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	exercise(t, s)

	_ = s.Set(context.Background(), "k", []byte("v"))
	if !mr.Exists("cs:k") {
		t.Errorf("prefixed key not found in redis; keys = %v", mr.Keys())
	}
}

func TestRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := OpenRedis(context.Background(), addr, 0, ""); err == nil {
		t.Error("expected error connecting to closed server")
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Backend: BackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("memory backend returned %T", s)
	}

	s, err = Open(ctx, Options{Backend: "SQLite", Path: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*SQLite); !ok {
		t.Errorf("sqlite backend returned %T", s)
	}

	if _, err := Open(ctx, Options{Backend: "etcd"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

// Package cachestore persists small keyed values between process runs. The
// facet cache keeps its single entry in one of these stores.
package cachestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMiss is returned by Get when no value is stored under the key.
var ErrMiss = errors.New("cachestore: miss")

// Store is a minimal key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names a Store implementation in configuration.
type Backend string

// Supported backends.
const (
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend   Backend
	Path      string
	RedisAddr string
	RedisDB   int
	Prefix    string
}

// Open returns the Store selected by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch Backend(strings.ToLower(string(opts.Backend))) {
	case BackendSQLite, "":
		return OpenSQLite(opts.Path)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisDB, opts.Prefix)
	case BackendMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("cachestore: unknown backend %q", opts.Backend)
}

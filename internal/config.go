package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/connectorstore/internal/cachestore"
	"github.com/starford/connectorstore/internal/catalog"
	"github.com/starford/connectorstore/internal/enrich"
	"github.com/starford/connectorstore/internal/facets"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/query"
	"github.com/starford/connectorstore/internal/registry"
	"github.com/starford/connectorstore/internal/search"
)

// Registry modes.
const (
	ModeRemote   = "remote"
	ModeSnapshot = "snapshot"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Registry RegistryConfig    `yaml:"registry"`
	Search   SearchConfig      `yaml:"search"`
	Cache    CacheConfig       `yaml:"cache"`
	Enrich   EnrichConfig      `yaml:"enrich"`
	Snapshot SnapshotConfig    `yaml:"snapshot"`
	SSE      SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Enrich.Validate(); err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	if c.Registry.Mode == ModeSnapshot {
		if err := c.Snapshot.Validate(); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
	}
	return c.SSE.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// RegistryConfig selects where catalog data comes from.
//
// Mode controls the data source:
//   - "remote" (default): the registry's REST and GraphQL APIs.
//   - "snapshot": a catalog file written by the export command.
type RegistryConfig struct {
	Mode       string        `yaml:"mode"`
	Org        string        `yaml:"org"`
	RESTURL    string        `yaml:"rest_url"`
	GraphQLURL string        `yaml:"graphql_url"`
	DocsURL    string        `yaml:"docs_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Retry      RetryConfig   `yaml:"retry"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = ModeRemote
	}
	remote := c.Mode == ModeRemote
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(ModeRemote, ModeSnapshot)),
		validation.Field(&c.Org, validation.Required),
		validation.Field(&c.RESTURL, validation.When(remote, validation.Required), validation.By(absoluteURL)),
		validation.Field(&c.GraphQLURL, validation.When(remote, validation.Required), validation.By(absoluteURL)),
		validation.Field(&c.DocsURL, validation.By(absoluteURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	return c.Retry.Validate()
}

// RetryConfig is the backoff applied to registry calls.
type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Attempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.BaseDelay, validation.Min(time.Duration(0))),
	)
}

// SearchConfig bounds the fan-out of multi-valued filter searches.
type SearchConfig struct {
	MaxCombinations int `yaml:"max_combinations"`
	MaxConcurrency  int `yaml:"max_concurrency"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxCombinations, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxConcurrency, validation.Required, validation.Min(1)),
	)
}

// CacheConfig holds the facet cache store configuration.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	Path         string        `yaml:"path"`
	RedisAddr    string        `yaml:"redis_addr"`
	RedisDB      int           `yaml:"redis_db"`
	Prefix       string        `yaml:"prefix"`
	TTL          time.Duration `yaml:"ttl"`
	PageSize     int           `yaml:"page_size"`
	CrawlTimeout time.Duration `yaml:"crawl_timeout"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = string(cachestore.BackendSQLite)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(
			string(cachestore.BackendSQLite), string(cachestore.BackendRedis), string(cachestore.BackendMemory))),
		validation.Field(&c.Path, validation.When(c.Backend == string(cachestore.BackendSQLite), validation.Required)),
		validation.Field(&c.RedisAddr, validation.When(c.Backend == string(cachestore.BackendRedis), validation.Required)),
		validation.Field(&c.RedisDB, validation.Min(0)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.CrawlTimeout, validation.Required, validation.Min(time.Second)),
	)
}

// Options returns the cachestore options for this configuration.
func (c *CacheConfig) Options() cachestore.Options {
	return cachestore.Options{
		Backend:   cachestore.Backend(c.Backend),
		Path:      c.Path,
		RedisAddr: c.RedisAddr,
		RedisDB:   c.RedisDB,
		Prefix:    c.Prefix,
	}
}

// EnrichConfig holds pull-count enrichment configuration.
type EnrichConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	CacheCapacity uint64        `yaml:"cache_capacity"`
	Retry         RetryConfig   `yaml:"retry"`
}

// Validate validates the enrichment configuration.
func (c *EnrichConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BatchSize, validation.Required, validation.Min(1), validation.Max(200)),
		validation.Field(&c.CacheTTL, validation.Required, validation.Min(time.Second)),
	); err != nil {
		return err
	}
	return c.Retry.Validate()
}

// SnapshotConfig locates the catalog snapshot used in snapshot mode and
// written by the export command.
type SnapshotConfig struct {
	Dir   string `yaml:"dir"`
	Name  string `yaml:"name"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the snapshot configuration.
func (c *SnapshotConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Name, validation.Required),
	)
}

// SSEConfig holds event stream configuration.
type SSEConfig struct {
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.KeepAlive, validation.Required, validation.Min(time.Second)),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Registry: RegistryConfig{
			Mode:       ModeRemote,
			Org:        models.DefaultOrg,
			RESTURL:    registry.DefaultRESTURL,
			GraphQLURL: registry.DefaultGraphQLURL,
			Timeout:    15 * time.Second,
			Retry: RetryConfig{
				Attempts:  3,
				BaseDelay: time.Second,
			},
		},
		Search: SearchConfig{
			MaxCombinations: query.DefaultMaxCombinations,
			MaxConcurrency:  search.DefaultMaxConcurrency,
		},
		Cache: CacheConfig{
			Backend:      string(cachestore.BackendSQLite),
			Path:         "./connectorstore.db",
			Prefix:       "connectorstore:",
			TTL:          facets.DefaultTTL,
			PageSize:     facets.DefaultPageSize,
			CrawlTimeout: facets.DefaultCrawlTimeout,
		},
		Enrich: EnrichConfig{
			Enabled:       true,
			BatchSize:     enrich.DefaultBatchSize,
			CacheTTL:      enrich.DefaultCacheTTL,
			CacheCapacity: 10000,
			Retry: RetryConfig{
				Attempts:  2,
				BaseDelay: 500 * time.Millisecond,
			},
		},
		Snapshot: SnapshotConfig{
			Dir:   "./data",
			Name:  catalog.DefaultSnapshotName,
			Watch: true,
		},
		SSE: SSEConfig{
			KeepAlive: 15 * time.Second,
		},
	}
}

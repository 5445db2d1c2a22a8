package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/connectorstore/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestRegistryConfig_EmptyModeDefaultsRemote(t *testing.T) {
	cfg := NewDefaultConfig().Registry
	cfg.Mode = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to remote: %v", err)
	}
	if cfg.Mode != ModeRemote {
		t.Errorf("mode = %q, want %q", cfg.Mode, ModeRemote)
	}
}

func TestRegistryConfig_InvalidMode(t *testing.T) {
	cfg := NewDefaultConfig().Registry
	cfg.Mode = "magic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestRegistryConfig_URLs(t *testing.T) {
	cfg := NewDefaultConfig().Registry
	cfg.DocsURL = "not a url"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "DocsURL") {
		t.Errorf("relative docs url err = %v", err)
	}

	cfg = NewDefaultConfig().Registry
	cfg.RESTURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("remote mode without rest_url should fail")
	}

	cfg.Mode = ModeSnapshot
	cfg.GraphQLURL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("snapshot mode needs no registry urls: %v", err)
	}
}

func TestCacheConfig_BackendRequirements(t *testing.T) {
	cfg := NewDefaultConfig().Cache
	cfg.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Error("redis backend without address should fail")
	}
	cfg.RedisAddr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Errorf("redis backend with address: %v", err)
	}

	cfg = NewDefaultConfig().Cache
	cfg.Backend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestEnrichConfig_DisabledSkipsChecks(t *testing.T) {
	cfg := EnrichConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled enrichment should pass: %v", err)
	}
	cfg.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("enabled enrichment without batch size should fail")
	}
}

func TestFullConfig_SnapshotValidatedInSnapshotMode(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Snapshot.Dir = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("snapshot section is unused in remote mode: %v", err)
	}
	cfg.Registry.Mode = ModeSnapshot
	if err := cfg.Validate(); err == nil {
		t.Fatal("snapshot mode without dir should fail")
	}
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	t.Setenv("CS_REDIS_ADDR", "cache:6379")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
registry:
  org: wso2
  timeout: 5s
cache:
  backend: redis
  redis_addr: ${CS_REDIS_ADDR}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Registry.Org != "wso2" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Registry.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Registry.Timeout)
	}
	if cfg.Cache.RedisAddr != "cache:6379" {
		t.Errorf("redis addr = %q, want env expansion", cfg.Cache.RedisAddr)
	}
	if cfg.Search.MaxConcurrency == 0 || cfg.Enrich.BatchSize == 0 {
		t.Error("defaults were lost")
	}
}

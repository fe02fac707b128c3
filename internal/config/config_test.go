package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleScenario = `
name: smoke
template_cache:
  backend: in_memory
  ttl: 2m
fetch:
  retry_max_attempts: 5
  retry_base_delay: 20ms
  retry_max_delay: 400ms
fallback: "/"
routes:
  - pattern: "/"
    template: views/home.html
    controller: HomeController
  - pattern: "/login"
    template: views/login.html
    controller: LoginController
stubs:
  - method: GET
    url: views/home.html
    body: "<h1>Home</h1>"
  - method: GET
    url: views/login.html
    body: "<form></form>"
checks:
  - navigate: "/login"
    controller: LoginController
  - navigate: "/a/non-existent/route"
    controller: HomeController
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoad_Sample(t *testing.T) {
	cfg, err := Load(writeScenario(t, sampleScenario))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "smoke" {
		t.Errorf("Name = %q, want smoke", cfg.Name)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want in_memory", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m", cfg.CacheTTL)
	}
	if cfg.RetryAttempts != 5 {
		t.Errorf("RetryAttempts = %d, want 5", cfg.RetryAttempts)
	}
	if cfg.RetryBaseDelay != 20*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 20ms", cfg.RetryBaseDelay)
	}
	if len(cfg.Routes) != 2 || len(cfg.Stubs) != 2 || len(cfg.Checks) != 2 {
		t.Errorf("counts = %d routes, %d stubs, %d checks; want 2/2/2",
			len(cfg.Routes), len(cfg.Stubs), len(cfg.Checks))
	}
	if cfg.Fallback != "/" {
		t.Errorf("Fallback = %q, want /", cfg.Fallback)
	}
}

func TestLoad_Defaults(t *testing.T) {
	minimal := `
routes:
  - pattern: "/"
    template: views/home.html
    controller: HomeController
checks:
  - navigate: "/"
    controller: HomeController
`
	cfg, err := Load(writeScenario(t, minimal))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "scenario" {
		t.Errorf("Name = %q, want default scenario", cfg.Name)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want default in_memory", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want default 5m", cfg.CacheTTL)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want default 3", cfg.RetryAttempts)
	}
	if cfg.Fallback != "/" {
		t.Errorf("Fallback = %q, want default /", cfg.Fallback)
	}
	if cfg.MemcachedAddrs != "localhost:11211" {
		t.Errorf("MemcachedAddrs = %q, want default", cfg.MemcachedAddrs)
	}
}

func TestLoad_EnvOverridesBackend(t *testing.T) {
	t.Setenv("TEMPLATE_CACHE_BACKEND", "memcached")
	t.Setenv("MEMCACHED_ADDRS", "cache1:11211,cache2:11211")

	cfg, err := Load(writeScenario(t, sampleScenario))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheBackend != "memcached" {
		t.Errorf("CacheBackend = %q, want env override memcached", cfg.CacheBackend)
	}
	if cfg.MemcachedAddrs != "cache1:11211,cache2:11211" {
		t.Errorf("MemcachedAddrs = %q, want env override", cfg.MemcachedAddrs)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not-found message", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no routes", `
checks:
  - navigate: "/"
    controller: HomeController
`},
		{"no checks", `
routes:
  - pattern: "/"
    template: views/home.html
    controller: HomeController
`},
		{"route missing controller", `
routes:
  - pattern: "/"
    template: views/home.html
checks:
  - navigate: "/"
    controller: HomeController
`},
		{"check missing navigate", `
routes:
  - pattern: "/"
    template: views/home.html
    controller: HomeController
checks:
  - controller: HomeController
`},
		{"bad backend", `
template_cache:
  backend: redis
routes:
  - pattern: "/"
    template: views/home.html
    controller: HomeController
checks:
  - navigate: "/"
    controller: HomeController
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeScenario(t, tc.content)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds a scenario file: the route table under test, stub responses,
// and the navigation checks to run, plus runner settings.
type Config struct {
	Name        string
	MetricsAddr string

	CacheBackend string // "in_memory" or "memcached"
	CacheTTL     time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	Fallback string
	Routes   []RouteConfig
	Stubs    []StubConfig
	Checks   []CheckConfig
}

// RouteConfig declares one route table entry.
type RouteConfig struct {
	Pattern    string `yaml:"pattern"`
	Template   string `yaml:"template"`
	Controller string `yaml:"controller"`
}

// StubConfig declares one stand-in response available to every check.
type StubConfig struct {
	Method string `yaml:"method"`
	URL    string `yaml:"url"`
	Status int    `yaml:"status"`
	Body   string `yaml:"body"`
}

// CheckConfig declares one navigation check: navigate, settle once, expect
// the named controller to be active.
type CheckConfig struct {
	Navigate   string `yaml:"navigate"`
	Controller string `yaml:"controller"`
}

type fileConfig struct {
	Name        string `yaml:"name"`
	MetricsAddr string `yaml:"metrics_addr"`

	TemplateCache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"template_cache"`

	Fetch struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
	} `yaml:"fetch"`

	Fallback string        `yaml:"fallback"`
	Routes   []RouteConfig `yaml:"routes"`
	Stubs    []StubConfig  `yaml:"stubs"`
	Checks   []CheckConfig `yaml:"checks"`
}

// Load reads a scenario file. TEMPLATE_CACHE_BACKEND, MEMCACHED_ADDRS, and
// METRICS_ADDR env vars override the file's values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario file not found: %s", path)
		}
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}

	cfg := &Config{
		Name:   fc.Name,
		Routes: fc.Routes,
		Stubs:  fc.Stubs,
		Checks: fc.Checks,
	}
	if cfg.Name == "" {
		cfg.Name = "scenario"
	}

	cfg.MetricsAddr = strings.TrimSpace(os.Getenv("METRICS_ADDR"))
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = strings.TrimSpace(fc.MetricsAddr)
	}

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("TEMPLATE_CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.TemplateCache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.TemplateCache.TTL, 5*time.Minute)

	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.TemplateCache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.TemplateCache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.TemplateCache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RetryAttempts = fc.Fetch.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Fetch.RetryBaseDelay, 10*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Fetch.RetryMaxDelay, 200*time.Millisecond)

	cfg.Fallback = strings.TrimSpace(fc.Fallback)
	if cfg.Fallback == "" {
		cfg.Fallback = "/"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of the scenario.
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("template_cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if len(cfg.Routes) == 0 {
		return fmt.Errorf("scenario declares no routes")
	}
	for i, r := range cfg.Routes {
		if r.Pattern == "" || r.Controller == "" || r.Template == "" {
			return fmt.Errorf("routes[%d]: pattern, template, and controller are required", i)
		}
	}
	if len(cfg.Checks) == 0 {
		return fmt.Errorf("scenario declares no checks")
	}
	for i, c := range cfg.Checks {
		if c.Navigate == "" || c.Controller == "" {
			return fmt.Errorf("checks[%d]: navigate and controller are required", i)
		}
	}
	return nil
}

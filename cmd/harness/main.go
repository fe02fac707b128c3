package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mledford/viewharness/internal/config"
	"github.com/mledford/viewharness/internal/observability"
	"github.com/mledford/viewharness/internal/scenario"
	"github.com/mledford/viewharness/internal/templatecache"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: harness <scenario.yaml>")
		os.Exit(2)
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var cache templatecache.Cache
	var memcacheCloser *templatecache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := templatecache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cache = mc
		logger.Info("template cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cache = templatecache.NewInMemoryCache()
		logger.Info("template cache backend: in_memory")
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		router := mux.NewRouter()
		router.Handle("/metrics", observability.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:         cfg.MetricsAddr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics server starting", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	runner := scenario.NewRunner(cfg, logger, scenario.WithCache(cache))
	results, err := runner.Run(context.Background())
	if err != nil {
		logger.Fatal("scenario", zap.String("name", cfg.Name), zap.Error(err))
	}

	failed := 0
	for _, res := range results {
		fmt.Println(res)
		if !res.Passed() {
			failed++
		}
	}
	fmt.Printf("%s: %d checks, %d failed\n", cfg.Name, len(results), failed)
	logger.Info("scenario finished",
		zap.String("name", cfg.Name),
		zap.Int("checks", len(results)),
		zap.Int("failed", failed))

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", zap.Error(err))
		}
		cancel()
	}
	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

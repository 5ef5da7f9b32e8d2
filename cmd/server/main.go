package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/ubreader/internal/api"
	"github.com/dgallion1/ubreader/internal/cache"
	"github.com/dgallion1/ubreader/internal/cms"
	"github.com/dgallion1/ubreader/internal/config"
	"github.com/dgallion1/ubreader/internal/metrics"
	"github.com/dgallion1/ubreader/internal/parser"
	"github.com/dgallion1/ubreader/internal/pipeline"
	"github.com/dgallion1/ubreader/internal/transform"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics.
	var rec metrics.Recorder = metrics.NoopRecorder{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		metricsHandler = metrics.HTTPHandler(reg)
	}

	// Document cache.
	var docCache cache.Cache
	var redisCache *cache.Redis
	switch cfg.CacheBackend {
	case "redis":
		redisCache, err = cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			log.Error("connect redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		docCache = redisCache
	default:
		docCache = cache.NewMemory(cfg.CacheTTL, cfg.CacheCapacity)
	}

	// CMS source, optional.
	var cmsClient *cms.Client
	if cfg.CMSURL != "" {
		retry := cms.DefaultRetryPolicy()
		retry.MaxRetries = uint64(cfg.CMSMaxRetries)
		cmsClient = cms.NewClient(cfg.CMSURL, cfg.CMSAPIKey, cfg.CMSTimeout, retry)
	}

	// Initialize pipeline.
	transformer := transform.New(log, rec, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	orch := pipeline.NewOrchestrator(cfg, transformer, docCache, cmsClient, rec, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, metricsHandler, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if cmsClient != nil {
			cmsClient.Close()
		}
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	log.Info("starting ubreader",
		"port", cfg.Port,
		"cache", cfg.CacheBackend,
		"cms", cmsClient != nil,
		"workers", cfg.WorkerCount,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}

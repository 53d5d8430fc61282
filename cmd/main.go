package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tipio/tipio/internal/adapters/http/api"
	"github.com/tipio/tipio/internal/adapters/store"
	app "github.com/tipio/tipio/internal/app"
	"github.com/tipio/tipio/internal/collector"
	"github.com/tipio/tipio/internal/config"
	"github.com/tipio/tipio/internal/engine"
	"github.com/tipio/tipio/internal/ledger"
	"github.com/tipio/tipio/internal/votes"
	"github.com/tipio/tipio/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 120 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		os.Stderr.WriteString("failed to create data dir: " + err.Error() + "\n")
		return
	}

	retention := store.WithRetention(time.Duration(cfg.RetentionHours) * time.Hour)
	collectionsStore := store.NewFileStore(filepath.Join(cfg.DataDir, "collections.json"), retention)
	// The history ring shares this file with the TTL-bound cache entries
	// and must outlive any retention window.
	predictionsStore := store.NewFileStore(filepath.Join(cfg.DataDir, "predictions.json"), retention,
		store.WithCompactExempt(app.HistoryKey))
	profilesStore := store.NewFileStore(filepath.Join(cfg.DataDir, "profiles.json"))
	votesStore := store.NewFileStore(filepath.Join(cfg.DataDir, "votes.json"))
	noticesStore := store.NewFileStore(filepath.Join(cfg.DataDir, "notices.json"))

	// Only the cache-bearing stores accumulate stale entries worth compacting.
	collectionsStore.StartCompaction(ctx)
	predictionsStore.StartCompaction(ctx)

	col := collector.New(
		collector.DefaultProviders(collector.Credentials{
			StatsBaseURL:    cfg.StatsBaseURL,
			StatsAPIKey:     cfg.StatsAPIKey,
			OfficialBaseURL: cfg.OfficialBaseURL,
			OfficialAPIKey:  cfg.OfficialAPIKey,
			OddsBaseURL:     cfg.OddsBaseURL,
			OddsAPIKey:      cfg.OddsAPIKey,
			ProviderTimeout: time.Duration(cfg.ProviderTimeoutSec) * time.Second,
		}),
		collectionsStore,
		collector.WithDeadline(time.Duration(cfg.CollectTimeoutSec)*time.Second),
		collector.WithCacheTTL(time.Duration(cfg.CollectionTTLMin)*time.Minute),
	)

	backend := engine.NewHTTPBackend(cfg.BackendBaseURL, cfg.BackendAPIKey, time.Duration(cfg.GenerateTimeoutSec)*time.Second)
	eng := engine.New(
		backend,
		predictionsStore,
		cfg.ModelChain,
		engine.WithCacheTTL(time.Duration(cfg.PredictionTTLMin)*time.Minute),
	)

	ldg := ledger.New(profilesStore)
	vst := votes.New(votesStore)

	// Create and start the service with configuration options
	svc := app.New(
		col,
		eng,
		ldg,
		vst,
		predictionsStore,
		noticesStore,
		app.WithLogger(log),
		app.WithHistoryCap(cfg.HistoryCap),
		app.WithNoticeQueueSize(cfg.NoticeQueueSize),
		app.WithWorkerCount(cfg.NoticeWorkerCount),
		app.WithLeaderboardLimit(cfg.MaxLeaderboardLimit),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc, cfg.MaxLeaderboardLimit)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

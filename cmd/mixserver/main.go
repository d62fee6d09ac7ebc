// Command mixserver is the mix pipeline's process entrypoint: it wires
// config, persistence, the object store, content acquisition, the
// catalogue provider and the job orchestrator behind a gin HTTP edge,
// grounded on the teacher's main.go environment-based configuration and
// graceful-shutdown signal handling (generalised from a raw net/http mux
// to gin).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vividhyeok/mixpipeline/internal/acquire"
	"github.com/vividhyeok/mixpipeline/internal/api"
	"github.com/vividhyeok/mixpipeline/internal/catalogue"
	"github.com/vividhyeok/mixpipeline/internal/config"
	"github.com/vividhyeok/mixpipeline/internal/objectstore"
	"github.com/vividhyeok/mixpipeline/internal/orchestrator"
	"github.com/vividhyeok/mixpipeline/internal/ratelimit"
	"github.com/vividhyeok/mixpipeline/internal/store"
	"github.com/vividhyeok/mixpipeline/internal/workerpool"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFor(cfg),
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		logger.Error("create cache dir", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	st := store.New(db)

	objStore := objectstore.NewS3Store(cfg.ObjectStoreRegion, cfg.ObjectStoreBucket, cfg.CDNDomain)
	limiter := ratelimit.NewDownloadLimiter(cfg.DownloadsPerMinute)
	acquirer := acquire.New(
		objStore,
		cfg.CacheDir,
		limiter,
		acquire.NewYtDlpDownloader(""),
		acquire.NewFFmpegNormaliser(cfg.FFmpegPath, cfg.DownloadTimeout),
	)

	cat := catalogue.NewStubDriver(catalogue.StubConfig{
		Config: catalogue.Config{
			ClientID:     cfg.CatalogueClientID,
			ClientSecret: cfg.CatalogueClientSecret,
			TokenURL:     cfg.CatalogueTokenURL,
		},
		BaseURL: cfg.CatalogueBaseURL,
	}, nil)

	pool := workerpool.New(cfg.WorkerCount, cfg.WorkerCount*4)
	defer pool.Close()

	orch := orchestrator.New(st, cat, acquirer, cfg.FFmpegPath, pool)
	orch.Logger = logger

	router := api.SetupRouter(orch, st, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("mixserver listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func levelFor(cfg *config.Config) slog.Level {
	if cfg.IsProduction() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

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
	_ "time/tzdata"

	"github.com/lysyi3m/rss-digest/app/api"
	"github.com/lysyi3m/rss-digest/app/cfg"
	"github.com/lysyi3m/rss-digest/app/delivery"
	"github.com/lysyi3m/rss-digest/app/document"
	"github.com/lysyi3m/rss-digest/app/extract"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/ingest"
	"github.com/lysyi3m/rss-digest/app/scheduler"
	"github.com/lysyi3m/rss-digest/app/watermark"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(appCfg); err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting RSS Digest", "version", appCfg.Version, "format", appCfg.Format, "sink", appCfg.Sink)

	secrets, err := cfg.LoadSecrets(appCfg.EnvFile)
	if err != nil {
		return err
	}

	sources, err := feed.LoadSources(appCfg.FeedsFile, secrets.Lookup)
	if err != nil {
		return fmt.Errorf("failed to load feeds from %s: %w", appCfg.FeedsFile, err)
	}
	slog.Info("Feeds loaded", "count", len(sources), "file", appCfg.FeedsFile)

	httpClient := &http.Client{}
	deps := extract.Deps{
		Pages:   extract.NewPageFetcher(httpClient, appCfg.UserAgent, appCfg.Timeout),
		Secrets: secrets,
	}

	registry, err := extract.BuildRegistry(sources, deps)
	if err != nil {
		return fmt.Errorf("failed to build extraction rules: %w", err)
	}
	for source, names := range registry.MissingSecrets(sources, secrets) {
		slog.Warn("Missing secrets, items will fail to extract", "source", source, "secrets", names)
	}

	store, err := openStore(ctx, appCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	assembler, err := document.NewAssembler(appCfg.Format, appCfg.OutputDir, appCfg.Author)
	if err != nil {
		return err
	}

	sink, err := delivery.NewSink(ctx, appCfg.Sink, delivery.Options{
		Dir:       appCfg.SinkDir,
		Bucket:    appCfg.S3Bucket,
		Prefix:    appCfg.S3Prefix,
		Region:    appCfg.S3Region,
		Profile:   appCfg.S3Profile,
		PathStyle: appCfg.S3PathStyle,
	})
	if err != nil {
		return err
	}

	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent, appCfg.Timeout)

	pipeline := ingest.NewPipeline(ingest.PipelineConfig{
		Sources:     sources,
		Store:       store,
		Coordinator: ingest.NewCoordinator(fetcher, registry, appCfg.PerFeedCap),
		Assembler:   assembler,
		Sink:        sink,
		TitleSuffix: appCfg.TitleSuffix,
		Location:    appCfg.Location,

		KeepArtifacts: appCfg.KeepOutput,
	})

	if !appCfg.Serve {
		_, err := pipeline.Run(ctx)
		return err
	}

	return serve(ctx, appCfg, pipeline, len(sources))
}

func openStore(ctx context.Context, appCfg *cfg.Cfg) (watermark.Store, error) {
	switch appCfg.StateBackend {
	case "sqlite":
		return watermark.NewSQLiteStore(appCfg.StatePath)
	case "redis":
		return watermark.NewRedisStore(ctx, appCfg.RedisAddr, appCfg.RedisKey)
	default:
		return watermark.NewFileStore(appCfg.StatePath), nil
	}
}

func serve(ctx context.Context, appCfg *cfg.Cfg, pipeline *ingest.Pipeline, sourceCount int) error {
	if appCfg.Interval > 0 {
		runScheduler := scheduler.NewScheduler(func(ctx context.Context) error {
			_, err := pipeline.Run(ctx)
			return err
		}, appCfg.Interval, ingest.ErrRunInProgress)
		runScheduler.Start()
		defer runScheduler.Stop()
	}

	handler := api.NewHandler(ctx, pipeline, sourceCount, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}

	slog.Info("RSS Digest stopped")

	return serveErr
}

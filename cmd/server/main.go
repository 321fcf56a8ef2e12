package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/clementcyberknight/simple-websocket-sol-price/internal/config"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/feed"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/logging"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/relay"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/server"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting price feed relay",
		"version", version.Version,
		"commit", version.Commit,
		"env", cfg.AppEnv,
		"port", cfg.Port,
	)

	catalog := loadCatalog(cfg)
	slog.Info("Feed catalog loaded", "feeds", len(catalog.Feeds), "publish_interval", cfg.PublishInterval)

	clock := clockwork.NewRealClock()
	registry := relay.NewRegistry(clock)
	dispatcher := relay.NewDispatcher(registry)
	generator := feed.NewGenerator(catalog, dispatcher, clock, cfg.PublishInterval)
	srv := server.New(cfg, registry, dispatcher, clock)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return generator.Run(ctx)
	})
	group.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func loadCatalog(cfg *config.Config) *feed.Catalog {
	if cfg.FeedsFile == "" {
		return feed.DefaultCatalog()
	}
	catalog, err := feed.LoadCatalog(cfg.FeedsFile)
	if err != nil {
		slog.Error("Failed to load feed catalog", "path", cfg.FeedsFile, "error", err)
		os.Exit(1)
	}
	return catalog
}

// Command skylight is the Sky event notifier: it computes which in-game
// events are happening or about to happen each minute and alerts every
// subscribed Discord guild.
//
// Usage:
//
//	skylight
//	ENVIRONMENT=production skylight
//
// All configuration comes from the environment; see internal/config.
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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/duskwing/skylight/internal/api"
	"github.com/duskwing/skylight/internal/config"
	"github.com/duskwing/skylight/internal/db"
	"github.com/duskwing/skylight/internal/discord"
	"github.com/duskwing/skylight/internal/dispatch"
	"github.com/duskwing/skylight/internal/event"
	"github.com/duskwing/skylight/internal/schedule"
	"github.com/duskwing/skylight/internal/shard"
	"github.com/duskwing/skylight/internal/spirit"
	"github.com/duskwing/skylight/internal/subscription"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "skylight",
		Short:         "Sky event schedule engine and notification dispatcher",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	if err := root.Execute(); err != nil {
		logger.Error("Startup failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	messenger, err := discord.New(cfg.DiscordToken, cfg.DiscordSendRate, logger)
	if err != nil {
		return fmt.Errorf("create discord client: %w", err)
	}

	store := subscription.NewStore(pool.Pool)
	queue := make(chan event.Occurrence, cfg.QueueCapacity)

	// Destination source: the in-memory replica fed by the change stream,
	// or direct store queries when configured.
	var source dispatch.Source = store
	var cache *subscription.Cache
	if cfg.SubscriptionMode == config.ModeCache {
		cache = subscription.NewCache()
		subs, err := store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load subscriptions: %w", err)
		}
		cache.ReplaceAll(subs)
		logger.Info("Subscriptions loaded", "rows", len(subs))

		go subscription.Listen(ctx, cfg.DatabaseURL, cache, logger)
		go subscription.Reload(ctx, store, cache, cfg.ReloadInterval, logger)
		source = cache
	}

	scheduler := schedule.New(shard.New(cfg.CDNURL), spirit.NewStore(pool.Pool, loc), queue, loc, logger)
	dispatcher := dispatch.New(queue, source, messenger, logger)

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	// Status surface.
	router := api.NewRouter(pool, cfg, func() api.Status {
		cached := 0
		if cache != nil {
			cached = cache.Len()
		}
		return api.Status{
			Environment:   cfg.Environment,
			Timezone:      cfg.Timezone,
			Mode:          cfg.SubscriptionMode,
			QueueDepth:    len(queue),
			QueueCapacity: cap(queue),
			CachedRows:    cached,
		}
	})

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Status server started", "addr", addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Status server failed", "error", err)
		}
	}()

	// Wait for termination
	<-ctx.Done()
	logger.Info("Shutting down...")

	// The scheduler stops producing and the dispatcher finishes any
	// occurrence it already dequeued before these close.
	<-schedulerDone
	<-dispatcherDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Stopped")
	return nil
}

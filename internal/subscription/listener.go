package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	channel          = "subscription_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Listen holds a dedicated connection (not from the pool) on the
// subscription change channel and applies each event to the cache. It
// reconnects automatically with doubling backoff on connection loss and
// blocks until ctx is cancelled. Intended to be called with `go`.
//
// The stream is eventually consistent: an event may be missed across a
// reconnect, which the periodic full reload heals.
func Listen(ctx context.Context, dbURL string, cache *Cache, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, cache, logger)
		if ctx.Err() != nil {
			logger.Info("Subscription listener stopped (context cancelled)")
			return
		}

		logger.Error("Subscription listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, cache *Cache, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Subscription listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		ev, err := DecodeChange([]byte(notification.Payload))
		if err != nil {
			// Malformed payloads are dropped; the stream must keep going.
			logger.Warn("Failed to parse subscription change",
				"payload", notification.Payload, "error", err)
			continue
		}

		cache.Apply(ev)
		logger.Info("Subscription change applied",
			"op", ev.Op,
			"guild_id", ev.Row.GuildID,
			"kind", ev.Row.Kind.String())
	}
}

// Reload runs periodic full reloads of the cache from the store, healing any
// change notifications missed across disconnects. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Reload(ctx context.Context, store *Store, cache *Cache, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("Subscription reload ticker started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			subs, err := store.LoadAll(ctx)
			if err != nil {
				logger.Error("Subscription reload failed", "error", err)
				continue
			}
			cache.ReplaceAll(subs)
			logger.Info("Subscriptions reloaded", "rows", len(subs))
		case <-ctx.Done():
			logger.Info("Subscription reload ticker stopped")
			return
		}
	}
}

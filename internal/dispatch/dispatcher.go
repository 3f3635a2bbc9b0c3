// Package dispatch drains the relay queue and fans each due occurrence out
// to every eligible destination. Sends within one occurrence run
// concurrently and are joined before the next occurrence is taken, so
// ordering across occurrences is preserved. A single destination's failure
// is logged and never blocks its siblings.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/duskwing/skylight/internal/event"
	"github.com/duskwing/skylight/internal/subscription"
)

// Source yields the destinations eligible for one (kind, lead) pair. Both
// the in-memory cache and the direct store satisfy it.
type Source interface {
	GetEligible(ctx context.Context, kind event.Kind, lead int) ([]subscription.Subscription, error)
}

// Messenger is the outbound delivery client.
type Messenger interface {
	Send(ctx context.Context, channelID, roleID, body, nonce string) error
}

// sendTimeout bounds the fan-out for one occurrence once it has been
// dequeued. Shutdown stops the queue from being read but does not abort
// sends already in flight; this deadline does.
const sendTimeout = 30 * time.Second

// Dispatcher is the relay-queue consumer. Create with New, run with Run.
type Dispatcher struct {
	queue     <-chan event.Occurrence
	source    Source
	messenger Messenger
	logger    *slog.Logger
}

// New creates a dispatcher consuming from queue.
func New(queue <-chan event.Occurrence, source Source, messenger Messenger, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:     queue,
		source:    source,
		messenger: messenger,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled or the queue is closed. Cancellation
// stops the queue from being read; an occurrence already dequeued is still
// fanned out in full before Run returns. Intended to be called with `go`.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Dispatcher started", "queue_capacity", cap(d.queue))

	for {
		select {
		case o, ok := <-d.queue:
			if !ok {
				d.logger.Info("Dispatcher stopped (queue closed)")
				return
			}
			d.fanOut(ctx, o)

			if queued := len(d.queue); queued == cap(d.queue) {
				d.logger.Warn("Relay queue at capacity, dispatch may be a bottleneck",
					"queued", queued, "last_kind", o.Kind.String())
			}
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped")
			return
		}
	}
}

// fanOut delivers one occurrence to every eligible destination. It always
// completes: errors and panics are contained here and surface only as logs.
// The occurrence has already been accepted from the queue, so delivery runs
// on a context detached from shutdown and bounded by sendTimeout instead.
func (d *Dispatcher) fanOut(ctx context.Context, o event.Occurrence) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Fan-out panicked", "kind", o.Kind.String(), "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	subs, err := d.source.GetEligible(ctx, o.Kind, o.Lead)
	if err != nil {
		d.logger.Error("Failed to resolve destinations",
			"kind", o.Kind.String(), "lead", o.Lead, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	body := o.Body()

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		sent, failed int
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub subscription.Subscription) {
			defer wg.Done()

			err := d.messenger.Send(ctx, *sub.ChannelID, *sub.RoleID, body, Nonce(o.Kind, *sub.ChannelID))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				d.logger.Error("Failed to send notification",
					"kind", o.Kind.String(),
					"guild_id", sub.GuildID,
					"channel_id", *sub.ChannelID,
					"error", err)
				return
			}
			sent++
		}(sub)
	}
	wg.Wait()

	d.logger.Info("Occurrence dispatched",
		"kind", o.Kind.String(), "lead", o.Lead, "sent", sent, "failed", failed)
}

// Nonce is the deterministic idempotency token for one occurrence and
// destination: the kind's wire code joined with the channel.
func Nonce(kind event.Kind, channelID string) string {
	return fmt.Sprintf("%d-%s", int16(kind), channelID)
}

package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskwing/skylight/internal/event"
	"github.com/duskwing/skylight/internal/subscription"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type sentMessage struct {
	ChannelID string
	RoleID    string
	Body      string
	Nonce     string
}

// fakeMessenger records sends and fails for channels listed in failing.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	failing map[string]bool
}

func (f *fakeMessenger) Send(_ context.Context, channelID, roleID, body, nonce string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[channelID] {
		return errors.New("delivery refused")
	}
	f.sent = append(f.sent, sentMessage{channelID, roleID, body, nonce})
	return nil
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type failingSource struct{}

func (failingSource) GetEligible(context.Context, event.Kind, int) ([]subscription.Subscription, error) {
	return nil, errors.New("store unavailable")
}

func strptr(s string) *string { return &s }

func sub(guild, ch, role string, kind event.Kind, offset int16) subscription.Subscription {
	return subscription.Subscription{
		GuildID:   guild,
		Kind:      kind,
		ChannelID: strptr(ch),
		RoleID:    strptr(role),
		Offset:    offset,
		Sendable:  true,
	}
}

func TestFanOutSendsOnlyToExactOffsetMatches(t *testing.T) {
	cache := subscription.NewCache()
	cache.ReplaceAll([]subscription.Subscription{
		sub("g1", "100", "200", event.Passage, 15),
		sub("g2", "101", "201", event.Passage, 5),
		sub("g3", "102", "202", event.Grandma, 15),
	})

	messenger := &fakeMessenger{}
	d := New(nil, cache, messenger, discardLogger())

	start := time.Date(2024, 6, 3, 8, 15, 0, 0, time.UTC)
	d.fanOut(context.Background(), event.New(event.Passage, start, 15))

	msgs := messenger.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "100", msgs[0].ChannelID)
	assert.Equal(t, "200", msgs[0].RoleID)
	assert.Equal(t, "10-100", msgs[0].Nonce)
	assert.Contains(t, msgs[0].Body, "Season of Passage")

	// One minute later the lead is 14; the offset-15 guild gets nothing.
	messenger.sent = nil
	d.fanOut(context.Background(), event.New(event.Passage, start, 14))
	assert.Empty(t, messenger.messages())
}

func TestFanOutPartialFailureDoesNotBlockSiblings(t *testing.T) {
	cache := subscription.NewCache()
	cache.ReplaceAll([]subscription.Subscription{
		sub("g1", "100", "200", event.DailyReset, 0),
		sub("g2", "101", "201", event.DailyReset, 0),
		sub("g3", "102", "202", event.DailyReset, 0),
	})

	messenger := &fakeMessenger{failing: map[string]bool{"101": true}}
	d := New(nil, cache, messenger, discardLogger())

	d.fanOut(context.Background(), event.New(event.DailyReset, time.Now(), 0))

	msgs := messenger.messages()
	assert.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.NotEqual(t, "101", m.ChannelID)
	}
}

func TestFanOutSurvivesSourceFailure(t *testing.T) {
	messenger := &fakeMessenger{}
	d := New(nil, failingSource{}, messenger, discardLogger())

	d.fanOut(context.Background(), event.New(event.Aurora, time.Now(), 0))
	assert.Empty(t, messenger.messages())
}

func TestDeletedGuildStopsReceiving(t *testing.T) {
	cache := subscription.NewCache()
	target := sub("g1", "100", "200", event.Turtle, 0)
	cache.ReplaceAll([]subscription.Subscription{target})

	messenger := &fakeMessenger{}
	d := New(nil, cache, messenger, discardLogger())

	d.fanOut(context.Background(), event.New(event.Turtle, time.Now(), 0))
	require.Len(t, messenger.messages(), 1)

	cache.Apply(subscription.ChangeEvent{Op: subscription.OpDelete, Row: target})
	d.fanOut(context.Background(), event.New(event.Turtle, time.Now(), 0))
	assert.Len(t, messenger.messages(), 1, "no further sends after delete")
}

func TestRunPreservesOccurrenceOrder(t *testing.T) {
	cache := subscription.NewCache()
	cache.ReplaceAll([]subscription.Subscription{
		sub("g1", "100", "200", event.DailyReset, 0),
		sub("g2", "110", "210", event.Aurora, 0),
	})

	messenger := &fakeMessenger{}
	queue := make(chan event.Occurrence, 4)
	d := New(queue, cache, messenger, discardLogger())

	queue <- event.New(event.DailyReset, time.Now(), 0)
	queue <- event.New(event.Aurora, time.Now(), 0)
	close(queue)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not drain the queue")
	}

	msgs := messenger.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "100", msgs[0].ChannelID, "first queued occurrence dispatches first")
	assert.Equal(t, "110", msgs[1].ChannelID)
}

// slowMessenger holds each send for delay, honouring the send context the
// way the real client's rate limiter and HTTP request do.
type slowMessenger struct {
	delay   time.Duration
	started chan struct{}
	mu      sync.Mutex
	results []error
}

func (m *slowMessenger) Send(ctx context.Context, _, _, _, _ string) error {
	close(m.started)
	var err error
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		err = ctx.Err()
	}
	m.mu.Lock()
	m.results = append(m.results, err)
	m.mu.Unlock()
	return err
}

func TestInFlightSendCompletesAfterShutdown(t *testing.T) {
	cache := subscription.NewCache()
	cache.ReplaceAll([]subscription.Subscription{
		sub("g1", "100", "200", event.Aurora, 0),
	})

	messenger := &slowMessenger{delay: 200 * time.Millisecond, started: make(chan struct{})}
	queue := make(chan event.Occurrence, 1)
	d := New(queue, cache, messenger, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	queue <- event.New(event.Aurora, time.Now(), 0)

	// Cancel mid-send, as a termination signal would.
	<-messenger.started
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	require.Len(t, messenger.results, 1)
	assert.NoError(t, messenger.results[0], "dequeued send must finish, not abort on shutdown")
}

func TestNonceDeterministic(t *testing.T) {
	assert.Equal(t, "0-123", Nonce(event.DailyReset, "123"))
	assert.Equal(t, Nonce(event.ShardStrong, "9"), Nonce(event.ShardStrong, "9"))
}

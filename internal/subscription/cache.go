package subscription

import (
	"context"
	"sync"

	"github.com/duskwing/skylight/internal/event"
)

// Cache is the in-memory read replica: any number of concurrent readers, one
// logical writer (the change-stream listener or reload ticker). Rows are
// keyed by (guild, kind) and replaced whole, so readers never observe a
// half-applied row.
type Cache struct {
	mu   sync.RWMutex
	rows map[cacheKey]Subscription
}

type cacheKey struct {
	guildID string
	kind    event.Kind
}

// NewCache returns an empty cache; call ReplaceAll to seed it.
func NewCache() *Cache {
	return &Cache{rows: make(map[cacheKey]Subscription)}
}

// GetEligible returns the cached rows eligible for (kind, lead). The ctx
// parameter keeps the signature interchangeable with Store's; reads never
// block on I/O.
func (c *Cache) GetEligible(_ context.Context, kind event.Kind, lead int) ([]Subscription, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var subs []Subscription
	for key, sub := range c.rows {
		if key.kind == kind && sub.Eligible(lead) {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// ReplaceAll swaps the entire cache contents in one step.
func (c *Cache) ReplaceAll(subs []Subscription) {
	rows := make(map[cacheKey]Subscription, len(subs))
	for _, sub := range subs {
		rows[cacheKey{sub.GuildID, sub.Kind}] = sub
	}

	c.mu.Lock()
	c.rows = rows
	c.mu.Unlock()
}

// Apply folds one change event into the cache.
func (c *Cache) Apply(ev ChangeEvent) {
	key := cacheKey{ev.Row.GuildID, ev.Row.Kind}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Op {
	case OpInsert, OpUpdate:
		c.rows[key] = ev.Row
	case OpDelete:
		delete(c.rows, key)
	}
}

// Len reports the number of cached rows.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

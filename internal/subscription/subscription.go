// Package subscription maintains the per-guild delivery preferences read by
// the dispatcher. The backing store owns the rows; this package is a read
// replica with two interchangeable strategies: direct queries (Store) or an
// in-memory cache kept current by a LISTEN/NOTIFY change stream plus a
// periodic full reload (Cache, Listener).
package subscription

import (
	"encoding/json"
	"fmt"

	"github.com/duskwing/skylight/internal/event"
)

// Subscription is one guild's delivery preference for one event kind.
// Channel and role may be unset; such a row is never eligible regardless of
// the sendable flag.
type Subscription struct {
	GuildID   string     `json:"guild_id"`
	Kind      event.Kind `json:"type"`
	ChannelID *string    `json:"channel_id"`
	RoleID    *string    `json:"role_id"`
	Offset    int16      `json:"offset"`
	Sendable  bool       `json:"sendable"`
}

// Eligible reports whether this row should receive an alert for the given
// lead time. The configured offset must match exactly.
func (s Subscription) Eligible(lead int) bool {
	return s.Sendable &&
		s.ChannelID != nil && *s.ChannelID != "" &&
		s.RoleID != nil && *s.RoleID != "" &&
		int(s.Offset) == lead
}

// filterEligible re-checks Eligible on rows a query returned, so both source
// strategies agree on edge cases regardless of how the SQL filters.
func filterEligible(subs []Subscription, lead int) []Subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.Eligible(lead) {
			out = append(out, s)
		}
	}
	return out
}

// Change operations carried by the store's change stream.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent is the JSON payload of one pg_notify on the subscription
// channel.
type ChangeEvent struct {
	Op  string       `json:"op"`
	Row Subscription `json:"row"`
}

// DecodeChange parses a change-stream payload.
func DecodeChange(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	switch ev.Op {
	case OpInsert, OpUpdate, OpDelete:
		return ev, nil
	default:
		return ChangeEvent{}, fmt.Errorf("unknown change operation %q", ev.Op)
	}
}

package subscription

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duskwing/skylight/internal/event"
)

// Store reads subscription rows straight from Postgres. It serves both as
// the cache's load source and as the query-per-dispatch strategy.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over the shared pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetEligible returns the rows for one event kind whose configured offset
// matches the lead time exactly, are sendable, and are fully configured.
// Eligible is re-applied after scanning so this strategy and the cache judge
// every row identically.
func (s *Store) GetEligible(ctx context.Context, kind event.Kind, lead int) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, "eligible_subscriptions", int16(kind), int16(lead))
	if err != nil {
		return nil, fmt.Errorf("eligible subscriptions: %w", err)
	}
	defer rows.Close()

	subs, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	return filterEligible(subs, lead), nil
}

// LoadAll returns every subscription row, used for the cache's full reload.
func (s *Store) LoadAll(ctx context.Context) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, "all_subscriptions")
	if err != nil {
		return nil, fmt.Errorf("all subscriptions: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows pgx.Rows) ([]Subscription, error) {
	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(
			&sub.GuildID, &sub.Kind, &sub.ChannelID,
			&sub.RoleID, &sub.Offset, &sub.Sendable,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

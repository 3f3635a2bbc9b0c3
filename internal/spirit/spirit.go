// Package spirit reads the travelling-spirit visit log maintained by the
// backing store. Only the most recent visit matters for alerting.
package spirit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Visit is one travelling-spirit arrival.
type Visit struct {
	Entity string
	Start  time.Time
}

// Store reads visits from Postgres.
type Store struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewStore creates a visit reader. Starts are converted into loc, the game's
// timezone.
func NewStore(pool *pgxpool.Pool, loc *time.Location) *Store {
	return &Store{pool: pool, loc: loc}
}

// Latest returns the most recent visit by visit ordinal. Visits occasionally
// fall outside the usual two-week rhythm, so callers re-read daily rather
// than assuming the cadence.
func (s *Store) Latest(ctx context.Context) (*Visit, error) {
	var v Visit
	if err := s.pool.QueryRow(ctx, "last_travelling_spirit").Scan(&v.Entity, &v.Start); err != nil {
		return nil, fmt.Errorf("latest travelling spirit: %w", err)
	}
	v.Start = v.Start.In(s.loc)
	return &v, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Upsert inserts an event or refreshes its mutable fields. Commence times do
// move when fixtures are rescheduled.
func (s *EventStore) Upsert(ctx context.Context, ev domain.Event) error {
	const query = `
		INSERT INTO events (id, sport_key, sport_title, home_team, away_team, commence_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			sport_title   = EXCLUDED.sport_title,
			home_team     = EXCLUDED.home_team,
			away_team     = EXCLUDED.away_team,
			commence_time = EXCLUDED.commence_time,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query,
		ev.ID, ev.SportKey, ev.SportTitle, ev.HomeTeam, ev.AwayTeam, ev.CommenceTime,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert event %s: %w", ev.ID, err)
	}
	return nil
}

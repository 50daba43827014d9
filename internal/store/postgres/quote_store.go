package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// QuoteStore implements domain.QuoteStore using PostgreSQL.
type QuoteStore struct {
	pool *pgxpool.Pool
}

// NewQuoteStore creates a new QuoteStore backed by the given connection pool.
func NewQuoteStore(pool *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

// UpsertBatch writes a cycle's quotes in one round trip. A newer observation
// of the same (event, market, outcome, bookmaker) replaces the stored row;
// stale observations are ignored.
func (s *QuoteStore) UpsertBatch(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	const query = `
		INSERT INTO quotes (
			event_id, market_key, outcome_key, outcome_name, outcome_point,
			bookmaker_key, bookmaker_title, american_odds, price, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id, market_key, outcome_key, bookmaker_key) DO UPDATE SET
			outcome_name    = EXCLUDED.outcome_name,
			outcome_point   = EXCLUDED.outcome_point,
			bookmaker_title = EXCLUDED.bookmaker_title,
			american_odds   = EXCLUDED.american_odds,
			price           = EXCLUDED.price,
			observed_at     = EXCLUDED.observed_at
		WHERE quotes.observed_at <= EXCLUDED.observed_at`

	batch := &pgx.Batch{}
	for _, q := range quotes {
		batch.Queue(query,
			q.EventID, q.MarketKey, q.Outcome.String(), q.Outcome.Name, q.Outcome.Point,
			q.BookmakerKey, q.BookmakerTitle, q.AmericanOdds, q.Price, q.ObservedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range quotes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert quotes: %w", err)
		}
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// UsageStore implements domain.UsageStore using PostgreSQL.
type UsageStore struct {
	pool *pgxpool.Pool
}

// NewUsageStore creates a new UsageStore backed by the given connection pool.
func NewUsageStore(pool *pgxpool.Pool) *UsageStore {
	return &UsageStore{pool: pool}
}

// Insert appends a quota snapshot.
func (s *UsageStore) Insert(ctx context.Context, snap domain.UsageSnapshot) error {
	const query = `
		INSERT INTO api_usage (remaining, reset_at, observed_at)
		VALUES ($1, $2, $3)`

	_, err := s.pool.Exec(ctx, query, snap.Remaining, snap.ResetAt, snap.ObservedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert usage: %w", err)
	}
	return nil
}

// Latest returns the most recently observed snapshot. ErrNotFound when none
// has been recorded.
func (s *UsageStore) Latest(ctx context.Context) (domain.UsageSnapshot, error) {
	const query = `
		SELECT remaining, reset_at, observed_at
		FROM api_usage
		ORDER BY observed_at DESC
		LIMIT 1`

	var snap domain.UsageSnapshot
	err := s.pool.QueryRow(ctx, query).Scan(&snap.Remaining, &snap.ResetAt, &snap.ObservedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UsageSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("postgres: latest usage: %w", err)
	}
	return snap, nil
}

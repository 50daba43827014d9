package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// ArbStore implements domain.ArbStore using PostgreSQL. Legs are stored as a
// JSONB document; they are only ever read back whole.
type ArbStore struct {
	pool *pgxpool.Pool
}

// NewArbStore creates a new ArbStore backed by the given connection pool.
func NewArbStore(pool *pgxpool.Pool) *ArbStore {
	return &ArbStore{pool: pool}
}

// legRow is the JSONB form of one planned leg.
type legRow struct {
	Outcome      string          `json:"outcome"`
	Point        *float64        `json:"point,omitempty"`
	BookmakerKey string          `json:"bookmaker_key"`
	Bookmaker    string          `json:"bookmaker"`
	URL          string          `json:"url,omitempty"`
	AmericanOdds int             `json:"american_odds"`
	Price        decimal.Decimal `json:"price"`
	Stake        decimal.Decimal `json:"stake"`
}

func legsJSON(legs []domain.PlannedLeg) ([]byte, error) {
	rows := make([]legRow, len(legs))
	for i, leg := range legs {
		rows[i] = legRow{
			Outcome:      leg.Outcome.Name,
			Point:        leg.Outcome.Point,
			BookmakerKey: leg.BookmakerKey,
			Bookmaker:    leg.BookmakerTitle,
			URL:          leg.BookmakerURL,
			AmericanOdds: leg.AmericanOdds,
			Price:        leg.Price,
			Stake:        leg.Stake,
		}
	}
	return json.Marshal(rows)
}

func legsFromJSON(data []byte) ([]domain.PlannedLeg, error) {
	var rows []legRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	legs := make([]domain.PlannedLeg, len(rows))
	for i, row := range rows {
		legs[i] = domain.PlannedLeg{
			Outcome:        domain.OutcomeKey{Name: row.Outcome, Point: row.Point},
			BookmakerKey:   row.BookmakerKey,
			BookmakerTitle: row.Bookmaker,
			BookmakerURL:   row.URL,
			AmericanOdds:   row.AmericanOdds,
			Price:          row.Price,
			Stake:          row.Stake,
		}
	}
	return legs, nil
}

const arbSelectCols = `id, created_at, event_id, event_name, sport_key,
	commence_time, market_key, edge, total_stake, payout, legs`

// Insert stores a new arbitrage record.
func (s *ArbStore) Insert(ctx context.Context, rec domain.ArbitrageRecord) error {
	const query = `
		INSERT INTO arbitrage (
			id, created_at, event_id, event_name, sport_key,
			commence_time, market_key, edge, total_stake, payout, legs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	legs, err := legsJSON(rec.Legs)
	if err != nil {
		return fmt.Errorf("postgres: marshal legs for %s: %w", rec.ID, err)
	}

	_, err = s.pool.Exec(ctx, query,
		rec.ID, rec.CreatedAt, rec.EventID, rec.EventName, rec.SportKey,
		rec.CommenceTime, rec.MarketKey, rec.Edge, rec.TotalStake, rec.Payout, legs,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert arbitrage %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns the newest records first.
func (s *ArbStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageRecord, error) {
	query := `SELECT ` + arbSelectCols + ` FROM arbitrage ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// ListBefore returns records older than cutoff, oldest first, for archival.
func (s *ArbStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbitrageRecord, error) {
	query := `SELECT ` + arbSelectCols + ` FROM arbitrage WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// DeleteBefore removes records older than cutoff and reports how many went.
func (s *ArbStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM arbitrage WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete arbitrage before %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

func (s *ArbStore) list(ctx context.Context, query string, args ...any) ([]domain.ArbitrageRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list arbitrage: %w", err)
	}
	defer rows.Close()

	var recs []domain.ArbitrageRecord
	for rows.Next() {
		var rec domain.ArbitrageRecord
		var legs []byte
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.EventID, &rec.EventName, &rec.SportKey,
			&rec.CommenceTime, &rec.MarketKey, &rec.Edge, &rec.TotalStake, &rec.Payout, &legs,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan arbitrage: %w", err)
		}
		if rec.Legs, err = legsFromJSON(legs); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal legs for %s: %w", rec.ID, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list arbitrage rows: %w", err)
	}
	return recs, nil
}

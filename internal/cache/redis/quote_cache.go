package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// defaultQuoteTTL keeps stale markets from lingering after a scan stops
// covering them.
const defaultQuoteTTL = 15 * time.Minute

// QuoteCache implements domain.QuoteCache using Redis string keys. Each
// (event, market) pair stores a JSON array of its latest quotes at key
// "quotes:{eventID}:{marketKey}".
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client. ttl <= 0
// selects the default.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = defaultQuoteTTL
	}
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(eventID, marketKey string) string {
	return "quotes:" + eventID + ":" + marketKey
}

// cachedQuote is the JSON form of one quote in the cache.
type cachedQuote struct {
	EventID      string          `json:"event_id"`
	SportKey     string          `json:"sport_key"`
	MarketKey    string          `json:"market_key"`
	Outcome      string          `json:"outcome"`
	Point        *float64        `json:"point,omitempty"`
	BookmakerKey string          `json:"bookmaker_key"`
	Bookmaker    string          `json:"bookmaker"`
	AmericanOdds int             `json:"american_odds"`
	Price        decimal.Decimal `json:"price"`
	ObservedAt   time.Time       `json:"observed_at"`
}

func toCached(q domain.Quote) cachedQuote {
	return cachedQuote{
		EventID:      q.EventID,
		SportKey:     q.SportKey,
		MarketKey:    q.MarketKey,
		Outcome:      q.Outcome.Name,
		Point:        q.Outcome.Point,
		BookmakerKey: q.BookmakerKey,
		Bookmaker:    q.BookmakerTitle,
		AmericanOdds: q.AmericanOdds,
		Price:        q.Price,
		ObservedAt:   q.ObservedAt,
	}
}

func fromCached(c cachedQuote) domain.Quote {
	return domain.Quote{
		EventID:        c.EventID,
		SportKey:       c.SportKey,
		MarketKey:      c.MarketKey,
		Outcome:        domain.OutcomeKey{Name: c.Outcome, Point: c.Point},
		BookmakerKey:   c.BookmakerKey,
		BookmakerTitle: c.Bookmaker,
		AmericanOdds:   c.AmericanOdds,
		Price:          c.Price,
		ObservedAt:     c.ObservedAt,
	}
}

// SetLatest replaces the cached quotes for every (event, market) pair present
// in the batch, using a single pipeline round trip.
func (qc *QuoteCache) SetLatest(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	grouped := make(map[string][]cachedQuote)
	for _, q := range quotes {
		key := quoteKey(q.EventID, q.MarketKey)
		grouped[key] = append(grouped[key], toCached(q))
	}

	pipe := qc.rdb.Pipeline()
	for key, group := range grouped {
		payload, err := json.Marshal(group)
		if err != nil {
			return fmt.Errorf("redis: marshal quotes %s: %w", key, err)
		}
		pipe.Set(ctx, key, payload, qc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quotes: %w", err)
	}
	return nil
}

// Latest returns the cached quotes for one (event, market) pair. It returns
// domain.ErrNotFound when the key is absent or expired.
func (qc *QuoteCache) Latest(ctx context.Context, eventID, marketKey string) ([]domain.Quote, error) {
	data, err := qc.rdb.Get(ctx, quoteKey(eventID, marketKey)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get quotes %s/%s: %w", eventID, marketKey, err)
	}

	var cached []cachedQuote
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("redis: unmarshal quotes %s/%s: %w", eventID, marketKey, err)
	}
	quotes := make([]domain.Quote, len(cached))
	for i, c := range cached {
		quotes[i] = fromCached(c)
	}
	return quotes, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)

package normalize

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
	"github.com/LavaaC/ArbiSport/internal/oddsapi"
)

// Decimal odds at or below 1.0 cannot pay out more than the stake.
var one = decimal.NewFromInt(1)

// Stats counts what a normalization pass kept and dropped. Dropped entries are
// never silently included; callers log the counts.
type Stats struct {
	Collected        int
	DroppedMalformed int
	DroppedFiltered  int
	Superseded       int
}

// Normalizer converts raw odds payloads into canonical quotes. It enforces
// the drop policy from the scan configuration: markets and bookmakers outside
// the active scan are dropped and counted, never included.
type Normalizer struct {
	names  *NameNormalizer
	logger *slog.Logger
}

// New creates a Normalizer.
func New(names *NameNormalizer, logger *slog.Logger) *Normalizer {
	if names == nil {
		names = NewNameNormalizer(nil)
	}
	return &Normalizer{
		names:  names,
		logger: logger.With(slog.String("component", "normalizer")),
	}
}

// Event converts a raw event header into the domain model. It fails with
// ErrMalformedPayload when the ID or commence time is absent or unparseable.
func (n *Normalizer) Event(raw oddsapi.RawEvent, sportKey string) (domain.Event, error) {
	if raw.ID == "" {
		return domain.Event{}, fmt.Errorf("event missing id: %w", domain.ErrMalformedPayload)
	}
	commence, err := parseTime(raw.CommenceTime)
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %s commence_time: %w", raw.ID, domain.ErrMalformedPayload)
	}
	if sportKey == "" {
		sportKey = raw.SportKey
	}
	return domain.Event{
		ID:           raw.ID,
		SportKey:     sportKey,
		SportTitle:   raw.SportTitle,
		HomeTeam:     raw.HomeTeam,
		AwayTeam:     raw.AwayTeam,
		CommenceTime: commence,
	}, nil
}

// Quotes flattens one event's bookmaker blocks into canonical quotes.
// Duplicate (event, market, outcome, bookmaker) keys resolve to the most
// recent observation. The returned sequence is order-irrelevant.
func (n *Normalizer) Quotes(ev domain.Event, bookmakers []oddsapi.RawBookmaker, spec domain.ScanSpec, observedAt time.Time) ([]domain.Quote, Stats) {
	var stats Stats
	byKey := make(map[string]domain.Quote)

	for _, book := range bookmakers {
		if book.Key == "" {
			stats.DroppedMalformed++
			continue
		}
		if !spec.BookmakerAllowed(book.Key) {
			stats.DroppedFiltered++
			continue
		}
		title := book.Title
		if title == "" {
			title = book.Key
		}
		var regions []string
		var bookURL string
		if info, ok := oddsapi.BookmakerByKey(book.Key); ok {
			regions = info.Regions
			bookURL = info.URL
		}

		for _, market := range book.Markets {
			if !spec.MarketAllowed(ev.SportKey, market.Key) {
				stats.DroppedFiltered++
				continue
			}
			seen := marketObservedAt(market, book, observedAt)

			for _, outcome := range market.Outcomes {
				if outcome.Name == "" {
					stats.DroppedMalformed++
					continue
				}
				price, err := domain.AmericanToDecimal(outcome.Price)
				if err != nil || price.LessThanOrEqual(one) {
					stats.DroppedMalformed++
					continue
				}
				quote := domain.Quote{
					EventID:          ev.ID,
					SportKey:         ev.SportKey,
					MarketKey:        market.Key,
					Outcome:          domain.OutcomeKey{Name: n.names.Canonicalize(outcome.Name), Point: outcome.Point},
					BookmakerKey:     book.Key,
					BookmakerTitle:   title,
					BookmakerRegions: regions,
					BookmakerURL:     bookURL,
					AmericanOdds:     outcome.Price,
					Price:            price,
					ObservedAt:       seen,
				}
				if prev, ok := byKey[quote.Key()]; ok {
					stats.Superseded++
					if !seen.After(prev.ObservedAt) {
						continue
					}
				}
				byKey[quote.Key()] = quote
			}
		}
	}

	quotes := make([]domain.Quote, 0, len(byKey))
	for _, q := range byKey {
		quotes = append(quotes, q)
	}
	stats.Collected = len(quotes)

	if stats.DroppedMalformed > 0 || stats.DroppedFiltered > 0 {
		n.logger.Debug("normalization dropped entries",
			slog.String("event_id", ev.ID),
			slog.Int("malformed", stats.DroppedMalformed),
			slog.Int("filtered", stats.DroppedFiltered),
		)
	}
	return quotes, stats
}

func marketObservedAt(market oddsapi.RawMarket, book oddsapi.RawBookmaker, fallback time.Time) time.Time {
	for _, raw := range []string{market.LastUpdate, book.LastUpdate} {
		if raw == "" {
			continue
		}
		if t, err := parseTime(raw); err == nil {
			return t
		}
	}
	return fallback
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", value)
}

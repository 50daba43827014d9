// Package domain defines the core data model for the arbitrage scanner:
// quotes, events, opportunities, stake plans, scan specifications, and the
// interfaces implemented by the persistence and cache layers.
package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// OutcomeKey identifies one outcome of a market. Point disambiguates lines on
// handicap/total markets where the same name appears at several points.
type OutcomeKey struct {
	Name  string
	Point *float64
}

// Label returns the display form, e.g. "Over (2.5)".
func (k OutcomeKey) Label() string {
	if k.Point == nil {
		return k.Name
	}
	return fmt.Sprintf("%s (%s)", k.Name, strconv.FormatFloat(*k.Point, 'f', -1, 64))
}

// String returns the canonical grouping key used by the solver. Outcomes with
// distinct points are distinct outcomes.
func (k OutcomeKey) String() string {
	if k.Point == nil {
		return k.Name
	}
	return k.Name + "|" + strconv.FormatFloat(*k.Point, 'f', -1, 64)
}

// Quote is one bookmaker's price for one outcome of one market, normalized to
// decimal odds. Quotes are immutable; a newer quote with the same Key
// supersedes this one on the next cycle.
type Quote struct {
	EventID   string
	SportKey  string
	MarketKey string
	Outcome   OutcomeKey

	BookmakerKey     string
	BookmakerTitle   string
	BookmakerRegions []string
	BookmakerURL     string

	AmericanOdds int
	Price        decimal.Decimal // decimal odds, > 1

	ObservedAt time.Time
}

// Key returns the identity used for supersede/dedup:
// (event, market, outcome, bookmaker).
func (q Quote) Key() string {
	return q.EventID + "|" + q.MarketKey + "|" + q.Outcome.String() + "|" + q.BookmakerKey
}

// ImpliedProbability returns 1/price.
func (q Quote) ImpliedProbability() decimal.Decimal {
	return decimal.NewFromInt(1).Div(q.Price)
}

// AmericanToDecimal converts American odds to decimal odds. Zero is not a
// valid American price.
func AmericanToDecimal(american int) (decimal.Decimal, error) {
	if american == 0 {
		return decimal.Zero, fmt.Errorf("american odds 0: %w", ErrOddsConversion)
	}
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	if american > 0 {
		return decimal.NewFromInt(int64(american)).Div(hundred).Add(one), nil
	}
	return hundred.Div(decimal.NewFromInt(int64(-american))).Add(one), nil
}

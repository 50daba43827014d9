// Package arb implements arbitrage detection and stake allocation over
// normalized quotes.
package arb

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

var one = decimal.NewFromInt(1)

const (
	// DefaultTopK bounds the per-outcome candidate list during the
	// combination fallback on deep markets.
	DefaultTopK = 3

	// exactSearchMaxOutcomes is the outcome-count bound under which the
	// fallback considers every quoted price per outcome instead of only the
	// top K. Markets above the bound are deep markets where exhaustive
	// enumeration blows up combinatorially; restricting those to top-K
	// trades a sliver of precision for bounded work.
	exactSearchMaxOutcomes = 4

	// maxCombinations caps the fallback search regardless of bounds.
	maxCombinations = 250_000
)

// Solver finds outcome-covering bookmaker combinations whose implied
// probabilities sum below one.
type Solver struct {
	topK   int
	logger *slog.Logger
}

// NewSolver creates a Solver. topK <= 0 selects DefaultTopK.
func NewSolver(topK int, logger *slog.Logger) *Solver {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Solver{
		topK:   topK,
		logger: logger.With(slog.String("component", "solver")),
	}
}

// FindOpportunity evaluates one event/market's quotes. It returns nil when no
// combination clears the edge threshold and the distinct-bookmaker minimum.
//
// The greedy per-outcome best price minimizes the implied sum, so it is
// checked first; the bounded combination search only runs when the greedy
// selection uses too few distinct bookmakers.
func (s *Solver) FindOpportunity(ev domain.Event, marketKey string, quotes []domain.Quote, bk domain.Bankroll) *domain.Opportunity {
	candidates := groupByOutcome(quotes)
	if len(candidates) < 2 {
		return nil
	}

	best := make([]domain.Quote, len(candidates))
	for i, list := range candidates {
		best[i] = list[0]
	}

	threshold := one.Sub(bk.MinEdge)
	impliedSum := sumImplied(best)
	if impliedSum.GreaterThanOrEqual(threshold) {
		return nil
	}

	if distinctBooks(best) < bk.MinBookCount {
		found, sum := s.searchCombinations(candidates, bk.MinBookCount, threshold)
		if found == nil {
			return nil
		}
		best, impliedSum = found, sum
	}

	legs := make([]domain.Leg, len(best))
	for i, q := range best {
		legs[i] = domain.Leg{
			Outcome:    q.Outcome,
			Quote:      q,
			Alternates: tiedAlternates(candidates[i], q),
		}
	}

	return &domain.Opportunity{
		ID:         uuid.NewString(),
		Event:      ev,
		MarketKey:  marketKey,
		Legs:       legs,
		ImpliedSum: impliedSum,
		Edge:       one.Sub(impliedSum),
		DetectedAt: time.Now().UTC(),
	}
}

// groupByOutcome buckets quotes per outcome key, each bucket sorted by price
// descending then bookmaker key ascending. The secondary ordering keeps
// results reproducible when books tie on price. Bucket order itself is sorted
// by outcome key for the same reason.
func groupByOutcome(quotes []domain.Quote) [][]domain.Quote {
	byOutcome := make(map[string][]domain.Quote)
	for _, q := range quotes {
		key := q.Outcome.String()
		byOutcome[key] = append(byOutcome[key], q)
	}

	keys := make([]string, 0, len(byOutcome))
	for key := range byOutcome {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([][]domain.Quote, 0, len(keys))
	for _, key := range keys {
		list := byOutcome[key]
		sort.Slice(list, func(i, j int) bool {
			if !list[i].Price.Equal(list[j].Price) {
				return list[i].Price.GreaterThan(list[j].Price)
			}
			return list[i].BookmakerKey < list[j].BookmakerKey
		})
		out = append(out, dedupeBooks(list))
	}
	return out
}

// dedupeBooks keeps only the best quote per bookmaker within an outcome.
func dedupeBooks(sorted []domain.Quote) []domain.Quote {
	seen := make(map[string]bool, len(sorted))
	out := sorted[:0]
	for _, q := range sorted {
		if seen[q.BookmakerKey] {
			continue
		}
		seen[q.BookmakerKey] = true
		out = append(out, q)
	}
	return out
}

// searchCombinations looks for the lowest implied-probability selection that
// still satisfies the distinct-bookmaker minimum. For small markets it
// considers every candidate per outcome; deep markets are restricted to the
// top K prices per outcome.
func (s *Solver) searchCombinations(candidates [][]domain.Quote, minBooks int, threshold decimal.Decimal) ([]domain.Quote, decimal.Decimal) {
	lists := candidates
	if len(candidates) > exactSearchMaxOutcomes {
		lists = make([][]domain.Quote, len(candidates))
		for i, list := range candidates {
			if len(list) > s.topK {
				list = list[:s.topK]
			}
			lists[i] = list
		}
	}

	total := 1
	for _, list := range lists {
		total *= len(list)
		if total > maxCombinations {
			s.logger.Warn("combination search truncated to top-k",
				slog.Int("outcomes", len(lists)),
			)
			return s.searchTopK(candidates, minBooks, threshold)
		}
	}

	return searchProduct(lists, minBooks, threshold)
}

// searchTopK is the hard fallback when even the exact bound explodes.
func (s *Solver) searchTopK(candidates [][]domain.Quote, minBooks int, threshold decimal.Decimal) ([]domain.Quote, decimal.Decimal) {
	lists := make([][]domain.Quote, len(candidates))
	for i, list := range candidates {
		if len(list) > s.topK {
			list = list[:s.topK]
		}
		lists[i] = list
	}
	return searchProduct(lists, minBooks, threshold)
}

// searchProduct enumerates the cartesian product of the candidate lists in
// deterministic order and returns the selection with the lowest implied sum
// that satisfies both constraints.
func searchProduct(lists [][]domain.Quote, minBooks int, threshold decimal.Decimal) ([]domain.Quote, decimal.Decimal) {
	indices := make([]int, len(lists))
	var (
		bestSel []domain.Quote
		bestSum decimal.Decimal
	)

	for {
		sel := make([]domain.Quote, len(lists))
		for i, idx := range indices {
			sel[i] = lists[i][idx]
		}
		sum := sumImplied(sel)
		if sum.LessThan(threshold) && distinctBooks(sel) >= minBooks {
			if bestSel == nil || sum.LessThan(bestSum) {
				bestSel, bestSum = sel, sum
			}
		}

		// Advance the odometer.
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(lists[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return bestSel, bestSum
}

// tiedAlternates returns other bookmakers quoting exactly the chosen price
// for the same outcome, in deterministic order.
func tiedAlternates(list []domain.Quote, chosen domain.Quote) []domain.Quote {
	var out []domain.Quote
	for _, q := range list {
		if q.BookmakerKey != chosen.BookmakerKey && q.Price.Equal(chosen.Price) {
			out = append(out, q)
		}
	}
	return out
}

func sumImplied(quotes []domain.Quote) decimal.Decimal {
	sum := decimal.Zero
	for _, q := range quotes {
		sum = sum.Add(q.ImpliedProbability())
	}
	return sum
}

func distinctBooks(quotes []domain.Quote) int {
	seen := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		seen[q.BookmakerKey] = struct{}{}
	}
	return len(seen)
}

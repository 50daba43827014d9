package arb

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// Allocator turns opportunities into rounded, validated stake plans.
type Allocator struct {
	logger *slog.Logger
}

// NewAllocator creates an Allocator.
func NewAllocator(logger *slog.Logger) *Allocator {
	return &Allocator{
		logger: logger.With(slog.String("component", "allocator")),
	}
}

// Plan splits the bankroll across the opportunity's legs in proportion to
// implied probability, so every outcome pays the same amount before rounding.
// Stakes round DOWN to the bankroll's increment; rounding up could silently
// overshoot the bankroll or flip the guarantee negative.
//
// When a bookmaker's summed stake exceeds the per-book limit, the allocator
// first tries to move legs onto tied-price alternate bookmakers with spare
// capacity, then rescales the whole plan to fit under the limit. A plan that
// cannot satisfy the payout guarantee or the minimum edge after rounding
// fails with ErrInfeasibleAllocation.
func (a *Allocator) Plan(opp domain.Opportunity, bk domain.Bankroll) (domain.StakePlan, error) {
	if len(opp.Legs) < 2 {
		return domain.StakePlan{}, fmt.Errorf("opportunity %s has %d legs: %w",
			opp.ID, len(opp.Legs), domain.ErrInfeasibleAllocation)
	}
	if !bk.Total.IsPositive() || !bk.Rounding.IsPositive() {
		return domain.StakePlan{}, fmt.Errorf("bankroll total %s rounding %s: %w",
			bk.Total, bk.Rounding, domain.ErrInfeasibleAllocation)
	}

	legs := make([]domain.PlannedLeg, len(opp.Legs))
	stakes := make([]decimal.Decimal, len(opp.Legs))
	for i, leg := range opp.Legs {
		legs[i] = plannedFrom(leg.Quote)
		stakes[i] = bk.Total.Mul(leg.Quote.ImpliedProbability()).Div(opp.ImpliedSum)
	}

	if bk.MaxStakePerBook.IsPositive() {
		a.relieveCapacity(opp, legs, stakes, bk.MaxStakePerBook)
		if scale := capScale(legs, stakes, bk.MaxStakePerBook); scale.LessThan(one) {
			a.logger.Debug("rescaling plan to per-book limit",
				slog.String("opportunity_id", opp.ID),
				slog.String("scale", scale.String()),
			)
			for i := range stakes {
				stakes[i] = stakes[i].Mul(scale)
			}
		}
	}

	total := decimal.Zero
	for i := range legs {
		legs[i].Stake = roundDown(stakes[i], bk.Rounding)
		if !legs[i].Stake.IsPositive() {
			return domain.StakePlan{}, fmt.Errorf("leg %s rounds to zero stake: %w",
				legs[i].Outcome.Label(), domain.ErrInfeasibleAllocation)
		}
		total = total.Add(legs[i].Stake)
	}

	minPayout, maxPayout := legs[0].Payout(), legs[0].Payout()
	for _, leg := range legs[1:] {
		p := leg.Payout()
		if p.LessThan(minPayout) {
			minPayout = p
		}
		if p.GreaterThan(maxPayout) {
			maxPayout = p
		}
	}

	if minPayout.LessThanOrEqual(total) {
		return domain.StakePlan{}, fmt.Errorf("min payout %s does not cover stake %s: %w",
			minPayout, total, domain.ErrInfeasibleAllocation)
	}
	profit := minPayout.Sub(total)
	realized := profit.Div(total)
	if realized.LessThan(bk.MinEdge) {
		return domain.StakePlan{}, fmt.Errorf("realized edge %s below minimum %s: %w",
			realized, bk.MinEdge, domain.ErrInfeasibleAllocation)
	}

	return domain.StakePlan{
		OpportunityID: opp.ID,
		Legs:          legs,
		TotalStake:    total,
		MinPayout:     minPayout,
		MaxPayout:     maxPayout,
		Profit:        profit,
		RealizedEdge:  realized,
	}, nil
}

// relieveCapacity moves legs from over-limit bookmakers onto tied-price
// alternates that still have headroom. Prices are identical by construction,
// so a swap never changes the payout math.
func (a *Allocator) relieveCapacity(opp domain.Opportunity, legs []domain.PlannedLeg, stakes []decimal.Decimal, limit decimal.Decimal) {
	totals := bookTotals(legs, stakes)
	for i, leg := range opp.Legs {
		book := legs[i].BookmakerKey
		if totals[book].LessThanOrEqual(limit) || len(leg.Alternates) == 0 {
			continue
		}
		for _, alt := range leg.Alternates {
			if totals[alt.BookmakerKey].Add(stakes[i]).GreaterThan(limit) {
				continue
			}
			a.logger.Debug("swapping leg to alternate bookmaker",
				slog.String("opportunity_id", opp.ID),
				slog.String("outcome", leg.Outcome.Label()),
				slog.String("from", book),
				slog.String("to", alt.BookmakerKey),
			)
			totals[book] = totals[book].Sub(stakes[i])
			legs[i] = plannedFrom(alt)
			totals[alt.BookmakerKey] = totals[alt.BookmakerKey].Add(stakes[i])
			break
		}
	}
}

// capScale returns the factor (<= 1) that shrinks the plan until every
// bookmaker's summed stake fits under the limit.
func capScale(legs []domain.PlannedLeg, stakes []decimal.Decimal, limit decimal.Decimal) decimal.Decimal {
	scale := one
	for _, total := range bookTotals(legs, stakes) {
		if total.GreaterThan(limit) {
			s := limit.Div(total)
			if s.LessThan(scale) {
				scale = s
			}
		}
	}
	return scale
}

func bookTotals(legs []domain.PlannedLeg, stakes []decimal.Decimal) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(legs))
	for i, leg := range legs {
		totals[leg.BookmakerKey] = totals[leg.BookmakerKey].Add(stakes[i])
	}
	return totals
}

func plannedFrom(q domain.Quote) domain.PlannedLeg {
	return domain.PlannedLeg{
		Outcome:        q.Outcome,
		BookmakerKey:   q.BookmakerKey,
		BookmakerTitle: q.BookmakerTitle,
		BookmakerURL:   q.BookmakerURL,
		AmericanOdds:   q.AmericanOdds,
		Price:          q.Price,
	}
}

func roundDown(v, increment decimal.Decimal) decimal.Decimal {
	return v.Div(increment).Floor().Mul(increment)
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Leg is one (bookmaker, outcome) component of an opportunity. Alternates
// lists bookmakers quoting the identical best price for the same outcome; the
// allocator may swap a leg to an alternate when per-book capacity is tight.
type Leg struct {
	Outcome    OutcomeKey
	Quote      Quote
	Alternates []Quote
}

// Opportunity is an outcome-covering set of quotes whose implied-probability
// sum is below one. It is immutable after creation; stake amounts live in the
// StakePlan computed from it.
type Opportunity struct {
	ID         string
	Event      Event
	MarketKey  string
	Legs       []Leg
	ImpliedSum decimal.Decimal
	Edge       decimal.Decimal // 1 - ImpliedSum, before rounding
	DetectedAt time.Time
}

// DistinctBookmakers counts distinct bookmaker keys among the chosen legs.
func (o Opportunity) DistinctBookmakers() int {
	seen := make(map[string]struct{}, len(o.Legs))
	for _, leg := range o.Legs {
		seen[leg.Quote.BookmakerKey] = struct{}{}
	}
	return len(seen)
}

// PlannedLeg is a leg with its allocated stake.
type PlannedLeg struct {
	Outcome        OutcomeKey
	BookmakerKey   string
	BookmakerTitle string
	BookmakerURL   string
	AmericanOdds   int
	Price          decimal.Decimal
	Stake          decimal.Decimal
}

// Payout returns Stake * Price for this leg.
func (l PlannedLeg) Payout() decimal.Decimal {
	return l.Stake.Mul(l.Price)
}

// StakePlan is the validated allocation for one opportunity. MinPayout is the
// guaranteed return: it strictly exceeds TotalStake for every plan the
// allocator emits.
type StakePlan struct {
	OpportunityID string
	Legs          []PlannedLeg
	TotalStake    decimal.Decimal
	MinPayout     decimal.Decimal
	MaxPayout     decimal.Decimal
	Profit        decimal.Decimal // MinPayout - TotalStake
	RealizedEdge  decimal.Decimal // Profit / TotalStake, after rounding
}

// StakedOpportunity pairs an opportunity with its accepted stake plan.
type StakedOpportunity struct {
	Opportunity Opportunity
	Plan        StakePlan
}

// CycleResult is the batch emitted to the persistence and presentation
// collaborators after each completed scan cycle. Results from cycle N are
// fully emitted before cycle N+1 starts fetching.
type CycleResult struct {
	ID         string
	ScanName   string
	Mode       ScanMode
	StartedAt  time.Time
	FinishedAt time.Time

	Events []Event
	Quotes []Quote

	EventsReceived   int
	EventsInWindow   int
	SkippedNoTime    int
	SkippedWindow    int
	MarketsEvaluated int
	QuotesCollected  int
	QuotesDropped    int

	Opportunities []StakedOpportunity
	Infeasible    int // opportunities dropped by the allocator this cycle

	Usage           UsageSnapshot
	WithinBurst     bool // some in-scope event starts within the burst window
	DeepFetches     int
	DeepUnavailable []string
}

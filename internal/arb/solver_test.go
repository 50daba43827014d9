package arb

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mkQuote(t *testing.T, book, outcome string, american int) domain.Quote {
	t.Helper()
	price, err := domain.AmericanToDecimal(american)
	if err != nil {
		t.Fatalf("AmericanToDecimal(%d): %v", american, err)
	}
	return domain.Quote{
		EventID:      "evt-1",
		SportKey:     "basketball_nba",
		MarketKey:    "h2h",
		Outcome:      domain.OutcomeKey{Name: outcome},
		BookmakerKey: book,
		AmericanOdds: american,
		Price:        price,
	}
}

func bankroll(minEdge string, minBooks int) domain.Bankroll {
	return domain.Bankroll{
		MinEdge:      decimal.RequireFromString(minEdge),
		Total:        decimal.NewFromInt(1000),
		Rounding:     decimal.NewFromInt(1),
		MinBookCount: minBooks,
	}
}

func TestFindOpportunityTwoWay(t *testing.T) {
	s := NewSolver(0, testLogger())
	ev := domain.Event{ID: "evt-1", HomeTeam: "Home", AwayTeam: "Away"}

	// +110 decimal 2.10 and +105 decimal 2.05: implied sum ~0.964.
	quotes := []domain.Quote{
		mkQuote(t, "draftkings", "Home", 110),
		mkQuote(t, "fanduel", "Home", -105),
		mkQuote(t, "fanduel", "Away", 105),
		mkQuote(t, "draftkings", "Away", -110),
	}

	opp := s.FindOpportunity(ev, "h2h", quotes, bankroll("0.01", 2))
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	if len(opp.Legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(opp.Legs))
	}
	if opp.Legs[0].Quote.BookmakerKey != "fanduel" || opp.Legs[1].Quote.BookmakerKey != "draftkings" {
		t.Errorf("selected books = %s/%s, want fanduel/draftkings",
			opp.Legs[0].Quote.BookmakerKey, opp.Legs[1].Quote.BookmakerKey)
	}
	if !opp.ImpliedSum.LessThan(decimal.NewFromInt(1)) {
		t.Errorf("implied sum = %s, want < 1", opp.ImpliedSum)
	}
	wantEdge := decimal.NewFromInt(1).Sub(opp.ImpliedSum)
	if !opp.Edge.Equal(wantEdge) {
		t.Errorf("edge = %s, want %s", opp.Edge, wantEdge)
	}
	if opp.ID == "" {
		t.Error("opportunity ID is empty")
	}
}

func TestFindOpportunityNoEdge(t *testing.T) {
	s := NewSolver(0, testLogger())
	ev := domain.Event{ID: "evt-1"}

	tests := []struct {
		name   string
		quotes []domain.Quote
		bk     domain.Bankroll
	}{
		{
			name: "vig on both sides",
			quotes: []domain.Quote{
				mkQuote(t, "draftkings", "Home", -110),
				mkQuote(t, "fanduel", "Away", -110),
			},
			bk: bankroll("0.01", 2),
		},
		{
			name: "edge below threshold",
			quotes: []domain.Quote{
				// 2.02 each: edge ~0.0099, under a 2% minimum.
				mkQuote(t, "draftkings", "Home", 102),
				mkQuote(t, "fanduel", "Away", 102),
			},
			bk: bankroll("0.02", 2),
		},
		{
			name: "single outcome",
			quotes: []domain.Quote{
				mkQuote(t, "draftkings", "Home", 110),
				mkQuote(t, "fanduel", "Home", 120),
			},
			bk: bankroll("0.01", 2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if opp := s.FindOpportunity(ev, "h2h", tt.quotes, tt.bk); opp != nil {
				t.Fatalf("expected nil, got edge %s", opp.Edge)
			}
		})
	}
}

func TestFindOpportunityMinBookFallback(t *testing.T) {
	s := NewSolver(0, testLogger())
	ev := domain.Event{ID: "evt-1"}

	// Pinnacle quotes the best price on both outcomes, but a single-book
	// selection is excluded by the two-book minimum. The cross-book pair
	// 2.10/2.05 still clears the threshold.
	quotes := []domain.Quote{
		mkQuote(t, "pinnacle", "Home", 115),
		mkQuote(t, "draftkings", "Home", 110),
		mkQuote(t, "pinnacle", "Away", 110),
		mkQuote(t, "fanduel", "Away", 105),
	}

	opp := s.FindOpportunity(ev, "h2h", quotes, bankroll("0.01", 2))
	if opp == nil {
		t.Fatal("expected an opportunity via combination fallback")
	}
	if got := opp.DistinctBookmakers(); got < 2 {
		t.Fatalf("distinct bookmakers = %d, want >= 2", got)
	}
	// The fallback keeps the lowest implied sum among valid selections:
	// pinnacle 2.10 on Away with draftkings 2.10 on Home beats the
	// pinnacle/fanduel pairing.
	books := []string{opp.Legs[0].Quote.BookmakerKey, opp.Legs[1].Quote.BookmakerKey}
	if books[0] != "pinnacle" || books[1] != "draftkings" {
		t.Errorf("selected books = %v, want [pinnacle draftkings]", books)
	}
}

func TestFindOpportunityMinBookInfeasible(t *testing.T) {
	s := NewSolver(0, testLogger())
	ev := domain.Event{ID: "evt-1"}

	// Only one book clears the threshold on its own; every cross-book
	// combination has too much vig.
	quotes := []domain.Quote{
		mkQuote(t, "pinnacle", "Home", 110),
		mkQuote(t, "draftkings", "Home", -120),
		mkQuote(t, "pinnacle", "Away", 105),
		mkQuote(t, "fanduel", "Away", -120),
	}

	if opp := s.FindOpportunity(ev, "h2h", quotes, bankroll("0.01", 2)); opp != nil {
		t.Fatalf("expected nil, got %v", opp.Legs)
	}
}

func TestFindOpportunityTiedAlternates(t *testing.T) {
	s := NewSolver(0, testLogger())
	ev := domain.Event{ID: "evt-1"}

	quotes := []domain.Quote{
		mkQuote(t, "draftkings", "Home", 110),
		mkQuote(t, "betmgm", "Home", 110),
		mkQuote(t, "caesars", "Home", 110),
		mkQuote(t, "fanduel", "Away", 105),
	}

	opp := s.FindOpportunity(ev, "h2h", quotes, bankroll("0.01", 2))
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	var homeLeg domain.Leg
	for _, leg := range opp.Legs {
		if leg.Outcome.Name == "Home" {
			homeLeg = leg
		}
	}
	// Tie broken by bookmaker key; the other tied books become alternates.
	if homeLeg.Quote.BookmakerKey != "betmgm" {
		t.Errorf("home leg book = %s, want betmgm", homeLeg.Quote.BookmakerKey)
	}
	if len(homeLeg.Alternates) != 2 {
		t.Fatalf("alternates = %d, want 2", len(homeLeg.Alternates))
	}
	if homeLeg.Alternates[0].BookmakerKey != "caesars" || homeLeg.Alternates[1].BookmakerKey != "draftkings" {
		t.Errorf("alternates = [%s %s], want [caesars draftkings]",
			homeLeg.Alternates[0].BookmakerKey, homeLeg.Alternates[1].BookmakerKey)
	}
}

func TestFindOpportunityDeterministic(t *testing.T) {
	s := NewSolver(0, testLogger())
	ev := domain.Event{ID: "evt-1"}
	quotes := []domain.Quote{
		mkQuote(t, "fanduel", "Away", 105),
		mkQuote(t, "caesars", "Home", 110),
		mkQuote(t, "draftkings", "Home", 110),
		mkQuote(t, "betmgm", "Home", 110),
	}
	bk := bankroll("0.01", 2)

	first := s.FindOpportunity(ev, "h2h", quotes, bk)
	if first == nil {
		t.Fatal("expected an opportunity")
	}
	for i := 0; i < 10; i++ {
		again := s.FindOpportunity(ev, "h2h", quotes, bk)
		if again == nil {
			t.Fatal("expected an opportunity on repeat")
		}
		for j := range first.Legs {
			if again.Legs[j].Quote.BookmakerKey != first.Legs[j].Quote.BookmakerKey {
				t.Fatalf("run %d leg %d book = %s, want %s",
					i, j, again.Legs[j].Quote.BookmakerKey, first.Legs[j].Quote.BookmakerKey)
			}
		}
		if !again.ImpliedSum.Equal(first.ImpliedSum) {
			t.Fatalf("run %d implied sum = %s, want %s", i, again.ImpliedSum, first.ImpliedSum)
		}
	}
}

func TestFindOpportunityThreeWay(t *testing.T) {
	s := NewSolver(0, testLogger())
	ev := domain.Event{ID: "evt-1"}

	// Soccer-style three-way market priced generously enough to arb:
	// 3.20, 3.90, 3.90 implies ~0.825.
	quotes := []domain.Quote{
		mkQuote(t, "pinnacle", "Home", 220),
		mkQuote(t, "bet365", "Draw", 290),
		mkQuote(t, "williamhill_uk", "Away", 290),
	}

	opp := s.FindOpportunity(ev, "h2h", quotes, bankroll("0.01", 2))
	if opp == nil {
		t.Fatal("expected a three-way opportunity")
	}
	if len(opp.Legs) != 3 {
		t.Fatalf("legs = %d, want 3", len(opp.Legs))
	}
}

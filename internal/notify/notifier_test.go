package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

type fakeSender struct {
	name     string
	titles   []string
	messages []string
	err      error
}

func (f *fakeSender) Send(_ context.Context, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stakedOpportunity(edge string) domain.StakedOpportunity {
	return domain.StakedOpportunity{
		Opportunity: domain.Opportunity{
			ID:        "opp-1",
			Event:     domain.Event{ID: "evt-1", HomeTeam: "Lakers", AwayTeam: "Celtics"},
			MarketKey: "h2h",
		},
		Plan: domain.StakePlan{
			OpportunityID: "opp-1",
			Legs: []domain.PlannedLeg{
				{Outcome: domain.OutcomeKey{Name: "Lakers"}, BookmakerTitle: "DraftKings", AmericanOdds: 110, Stake: decimal.NewFromInt(493)},
				{Outcome: domain.OutcomeKey{Name: "Celtics"}, BookmakerTitle: "FanDuel", AmericanOdds: 105, Stake: decimal.NewFromInt(506)},
			},
			TotalStake:   decimal.NewFromInt(999),
			Profit:       decimal.RequireFromString("36.3"),
			RealizedEdge: decimal.RequireFromString(edge),
		},
	}
}

func TestNotifyCycleFormatsOpportunities(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, decimal.Zero, testLogger())

	result := domain.CycleResult{
		ScanName:      "nba",
		Opportunities: []domain.StakedOpportunity{stakedOpportunity("0.0363")},
	}
	if err := n.NotifyCycle(context.Background(), result); err != nil {
		t.Fatalf("NotifyCycle: %v", err)
	}
	if len(sender.titles) != 1 {
		t.Fatalf("sends = %d, want 1", len(sender.titles))
	}
	if sender.titles[0] != "1 arbitrage opportunities (nba)" {
		t.Errorf("title = %q", sender.titles[0])
	}
	msg := sender.messages[0]
	for _, want := range []string{"Celtics @ Lakers", "[h2h]", "+110 @ DraftKings", "stake 493", "+105 @ FanDuel", "profit 36.3"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestNotifyCycleEdgeThreshold(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, decimal.RequireFromString("0.05"), testLogger())

	result := domain.CycleResult{
		ScanName:      "nba",
		Opportunities: []domain.StakedOpportunity{stakedOpportunity("0.0363")},
	}
	if err := n.NotifyCycle(context.Background(), result); err != nil {
		t.Fatalf("NotifyCycle: %v", err)
	}
	if len(sender.titles) != 0 {
		t.Errorf("sends = %d, want 0 below alert edge", len(sender.titles))
	}
}

func TestNotifyCycleEmpty(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, decimal.Zero, testLogger())

	if err := n.NotifyCycle(context.Background(), domain.CycleResult{ScanName: "nba"}); err != nil {
		t.Fatalf("NotifyCycle: %v", err)
	}
	if len(sender.titles) != 0 {
		t.Errorf("sends = %d, want 0 for empty cycle", len(sender.titles))
	}
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("webhook down")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, decimal.Zero, testLogger())

	result := domain.CycleResult{
		ScanName:      "nba",
		Opportunities: []domain.StakedOpportunity{stakedOpportunity("0.0363")},
	}
	err := n.NotifyCycle(context.Background(), result)
	if err == nil {
		t.Fatal("expected combined error from failing sender")
	}
	if len(good.titles) != 1 {
		t.Errorf("good sender sends = %d, want 1", len(good.titles))
	}
}

package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
	"github.com/LavaaC/ArbiSport/internal/normalize"
	"github.com/LavaaC/ArbiSport/internal/oddsapi"
	"github.com/LavaaC/ArbiSport/internal/usage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	odds       map[string][]oddsapi.RawEvent
	oddsErr    error
	oddsUsage  oddsapi.Usage
	oddsCalls  int
	deepEvent  *oddsapi.RawEvent
	deepErr    error
	deepCalls  int
	marketKeys []string
	marketsErr error
}

func (f *fakeSource) Odds(_ context.Context, sportKey string, _ oddsapi.ReqOpts) ([]oddsapi.RawEvent, oddsapi.Usage, error) {
	f.oddsCalls++
	if f.oddsErr != nil {
		return nil, f.oddsUsage, f.oddsErr
	}
	return f.odds[sportKey], f.oddsUsage, nil
}

func (f *fakeSource) EventOdds(_ context.Context, _, _ string, _ oddsapi.ReqOpts) (*oddsapi.RawEvent, oddsapi.Usage, error) {
	f.deepCalls++
	if f.deepErr != nil {
		return nil, f.oddsUsage, f.deepErr
	}
	return f.deepEvent, f.oddsUsage, nil
}

func (f *fakeSource) Markets(_ context.Context, _ string) ([]string, oddsapi.Usage, error) {
	if f.marketsErr != nil {
		return nil, oddsapi.Usage{}, f.marketsErr
	}
	return f.marketKeys, oddsapi.Usage{}, nil
}

var testCommence = time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)

func rawArbEvent(id string) oddsapi.RawEvent {
	return oddsapi.RawEvent{
		ID:           id,
		SportKey:     "basketball_nba",
		SportTitle:   "NBA",
		CommenceTime: testCommence.Format(time.RFC3339),
		HomeTeam:     "Lakers",
		AwayTeam:     "Celtics",
		Bookmakers: []oddsapi.RawBookmaker{
			{
				Key: "draftkings", Title: "DraftKings",
				Markets: []oddsapi.RawMarket{{
					Key: "h2h",
					Outcomes: []oddsapi.RawOutcome{
						{Name: "Lakers", Price: 110},
						{Name: "Celtics", Price: -120},
					},
				}},
			},
			{
				Key: "fanduel", Title: "FanDuel",
				Markets: []oddsapi.RawMarket{{
					Key: "h2h",
					Outcomes: []oddsapi.RawOutcome{
						{Name: "Lakers", Price: -115},
						{Name: "Celtics", Price: 105},
					},
				}},
			},
		},
	}
}

func testSpec() domain.ScanSpec {
	return domain.ScanSpec{
		Name:    "nba",
		Sports:  []string{"basketball_nba"},
		Regions: []string{"us"},
		Markets: []string{"h2h"},
		Window: domain.TimeWindow{
			Start: testCommence.Add(-24 * time.Hour),
			End:   testCommence.Add(24 * time.Hour),
		},
		Bankroll: domain.Bankroll{
			MinEdge:      decimal.RequireFromString("0.01"),
			Total:        decimal.NewFromInt(1000),
			Rounding:     decimal.NewFromInt(1),
			MinBookCount: 2,
		},
		Mode: domain.ScanModeSnapshot,
	}
}

func newTestRunner(source OddsSource) (*Runner, *usage.Tracker) {
	logger := testLogger()
	tracker := usage.New(func() time.Time { return testCommence.Add(-time.Hour) }, logger)
	normalizer := normalize.New(nil, logger)
	clock := func() time.Time { return testCommence.Add(-time.Hour) }
	return NewRunner(source, normalizer, tracker, clock, logger), tracker
}

func TestRunFindsOpportunity(t *testing.T) {
	remaining := 480
	source := &fakeSource{
		odds:      map[string][]oddsapi.RawEvent{"basketball_nba": {rawArbEvent("evt-1")}},
		oddsUsage: oddsapi.Usage{Remaining: &remaining},
	}
	runner, _ := newTestRunner(source)

	result, err := runner.Run(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.EventsReceived != 1 || result.EventsInWindow != 1 {
		t.Errorf("events received/in-window = %d/%d, want 1/1",
			result.EventsReceived, result.EventsInWindow)
	}
	if result.QuotesCollected != 4 {
		t.Errorf("quotes collected = %d, want 4", result.QuotesCollected)
	}
	if len(result.Opportunities) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(result.Opportunities))
	}

	staked := result.Opportunities[0]
	books := map[string]string{}
	for _, leg := range staked.Plan.Legs {
		books[leg.Outcome.Name] = leg.BookmakerKey
	}
	if books["Lakers"] != "draftkings" || books["Celtics"] != "fanduel" {
		t.Errorf("books = %v, want Lakers=draftkings Celtics=fanduel", books)
	}
	if staked.Plan.MinPayout.LessThanOrEqual(staked.Plan.TotalStake) {
		t.Errorf("min payout %s does not cover stake %s",
			staked.Plan.MinPayout, staked.Plan.TotalStake)
	}
	if result.Usage.Remaining == nil || *result.Usage.Remaining != 480 {
		t.Errorf("usage remaining = %v, want 480", result.Usage.Remaining)
	}
}

func TestRunQuotaExhaustedSkips(t *testing.T) {
	source := &fakeSource{}
	runner, tracker := newTestRunner(source)

	zero := 0
	reset := testCommence.Add(time.Hour)
	tracker.Record(&zero, &reset)

	_, err := runner.Run(context.Background(), testSpec())
	if !errors.Is(err, domain.ErrQuotaExhausted) {
		t.Fatalf("err = %v, want ErrQuotaExhausted", err)
	}
	if source.oddsCalls != 0 {
		t.Errorf("odds calls = %d, want 0", source.oddsCalls)
	}
}

func TestRunFetchFailureAbortsWholeCycle(t *testing.T) {
	source := &fakeSource{
		odds: map[string][]oddsapi.RawEvent{
			"basketball_nba": {rawArbEvent("evt-1")},
		},
	}
	runner, _ := newTestRunner(source)

	spec := testSpec()
	spec.Sports = []string{"basketball_nba", "basketball_wnba"}

	// Fail the second sport's fetch; nothing from the first may leak out.
	source.oddsErr = nil
	calls := 0
	failing := &switchSource{
		inner: source,
		onOdds: func(sport string) error {
			calls++
			if sport == "basketball_wnba" {
				return &domain.FetchError{Kind: domain.FetchNetwork, Err: errors.New("conn reset")}
			}
			return nil
		},
	}
	runner.source = failing

	result, err := runner.Run(context.Background(), spec)
	if domain.FetchKindOf(err) != domain.FetchNetwork {
		t.Fatalf("err = %v, want network fetch error", err)
	}
	if len(result.Events) != 0 || len(result.Opportunities) != 0 {
		t.Errorf("partial result leaked: %d events, %d opportunities",
			len(result.Events), len(result.Opportunities))
	}
	if calls != 2 {
		t.Errorf("odds calls = %d, want 2", calls)
	}
}

// switchSource lets one test vary failures per sport.
type switchSource struct {
	inner  *fakeSource
	onOdds func(sport string) error
}

func (s *switchSource) Odds(ctx context.Context, sportKey string, opts oddsapi.ReqOpts) ([]oddsapi.RawEvent, oddsapi.Usage, error) {
	if err := s.onOdds(sportKey); err != nil {
		return nil, oddsapi.Usage{}, err
	}
	return s.inner.Odds(ctx, sportKey, opts)
}

func (s *switchSource) EventOdds(ctx context.Context, sportKey, eventID string, opts oddsapi.ReqOpts) (*oddsapi.RawEvent, oddsapi.Usage, error) {
	return s.inner.EventOdds(ctx, sportKey, eventID, opts)
}

func (s *switchSource) Markets(ctx context.Context, sportKey string) ([]string, oddsapi.Usage, error) {
	return s.inner.Markets(ctx, sportKey)
}

func TestRunWindowFilter(t *testing.T) {
	late := rawArbEvent("evt-late")
	late.CommenceTime = testCommence.Add(72 * time.Hour).Format(time.RFC3339)
	broken := rawArbEvent("evt-broken")
	broken.CommenceTime = "not-a-time"

	source := &fakeSource{
		odds: map[string][]oddsapi.RawEvent{
			"basketball_nba": {rawArbEvent("evt-1"), late, broken},
		},
	}
	runner, _ := newTestRunner(source)

	result, err := runner.Run(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EventsReceived != 3 {
		t.Errorf("events received = %d, want 3", result.EventsReceived)
	}
	if result.EventsInWindow != 1 {
		t.Errorf("events in window = %d, want 1", result.EventsInWindow)
	}
	if result.SkippedWindow != 1 {
		t.Errorf("skipped window = %d, want 1", result.SkippedWindow)
	}
	if result.SkippedNoTime != 1 {
		t.Errorf("skipped no-time = %d, want 1", result.SkippedNoTime)
	}
}

func TestRunBurstDetection(t *testing.T) {
	source := &fakeSource{
		odds: map[string][]oddsapi.RawEvent{"basketball_nba": {rawArbEvent("evt-1")}},
	}
	runner, _ := newTestRunner(source)

	spec := testSpec()
	spec.Mode = domain.ScanModeBurst
	spec.BurstWindow = 2 * time.Hour // clock is one hour before commence

	result, err := runner.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.WithinBurst {
		t.Error("WithinBurst = false, want true")
	}

	spec.BurstWindow = 10 * time.Minute
	result, err = runner.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.WithinBurst {
		t.Error("WithinBurst = true, want false")
	}
}

func TestRunDeepMarketUnsupported(t *testing.T) {
	source := &fakeSource{
		odds:       map[string][]oddsapi.RawEvent{"basketball_nba": {rawArbEvent("evt-1")}},
		marketKeys: []string{"h2h", "player_points"},
		deepErr:    &domain.FetchError{Kind: domain.FetchMalformed, Status: 422, Err: errors.New("unknown market")},
	}
	runner, _ := newTestRunner(source)

	spec := testSpec()
	spec.DeepMarkets = []string{"player_points"}

	result, err := runner.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.DeepUnavailable) != 1 || result.DeepUnavailable[0] != "player_points" {
		t.Fatalf("deep unavailable = %v, want [player_points]", result.DeepUnavailable)
	}

	// Rejected markets are remembered; the next cycle skips the fetch.
	firstCalls := source.deepCalls
	if _, err := runner.Run(context.Background(), spec); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if source.deepCalls != firstCalls {
		t.Errorf("deep calls = %d after second cycle, want %d", source.deepCalls, firstCalls)
	}
}

func TestRunDeepMarketMergesQuotes(t *testing.T) {
	deepRaw := rawArbEvent("evt-1")
	deepRaw.Bookmakers = []oddsapi.RawBookmaker{{
		Key: "draftkings", Title: "DraftKings",
		Markets: []oddsapi.RawMarket{{
			Key: "team_totals",
			Outcomes: []oddsapi.RawOutcome{
				{Name: "Over", Price: 105, Point: floatPtr(110.5)},
				{Name: "Under", Price: -125, Point: floatPtr(110.5)},
			},
		}},
	}}
	source := &fakeSource{
		odds:       map[string][]oddsapi.RawEvent{"basketball_nba": {rawArbEvent("evt-1")}},
		marketKeys: []string{"h2h", "team_totals"},
		deepEvent:  &deepRaw,
	}
	runner, _ := newTestRunner(source)

	spec := testSpec()
	spec.DeepMarkets = []string{"team_totals"}

	result, err := runner.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if source.deepCalls != 1 {
		t.Errorf("deep calls = %d, want 1", source.deepCalls)
	}
	if result.DeepFetches != 1 {
		t.Errorf("deep fetches = %d, want 1", result.DeepFetches)
	}
	if result.QuotesCollected != 6 {
		t.Errorf("quotes collected = %d, want 6", result.QuotesCollected)
	}
	if result.MarketsEvaluated != 2 {
		t.Errorf("markets evaluated = %d, want 2", result.MarketsEvaluated)
	}
}

func floatPtr(v float64) *float64 { return &v }

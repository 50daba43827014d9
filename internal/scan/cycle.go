// Package scan runs fetch-normalize-solve cycles and schedules them across
// snapshot, continuous, and burst modes.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/LavaaC/ArbiSport/internal/arb"
	"github.com/LavaaC/ArbiSport/internal/domain"
	"github.com/LavaaC/ArbiSport/internal/normalize"
	"github.com/LavaaC/ArbiSport/internal/oddsapi"
	"github.com/LavaaC/ArbiSport/internal/usage"
)

// eventQuotes accumulates one event's quotes across the bulk and deep
// fetches of a cycle.
type eventQuotes struct {
	event  domain.Event
	quotes []domain.Quote
}

// OddsSource is the slice of the provider client a cycle needs.
type OddsSource interface {
	Odds(ctx context.Context, sportKey string, opts oddsapi.ReqOpts) ([]oddsapi.RawEvent, oddsapi.Usage, error)
	EventOdds(ctx context.Context, sportKey, eventID string, opts oddsapi.ReqOpts) (*oddsapi.RawEvent, oddsapi.Usage, error)
	Markets(ctx context.Context, sportKey string) ([]string, oddsapi.Usage, error)
}

// Runner executes one scan cycle: admit against quota, fetch every sport in
// scope, normalize, solve, allocate. A cycle is all-or-nothing; any fetch
// failure aborts it and nothing from the partial cycle is emitted.
type Runner struct {
	source     OddsSource
	normalizer *normalize.Normalizer
	tracker    *usage.Tracker
	support    *supportCache
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner creates a Runner. A nil clock uses time.Now.
func NewRunner(source OddsSource, normalizer *normalize.Normalizer, tracker *usage.Tracker, clock func() time.Time, logger *slog.Logger) *Runner {
	if clock == nil {
		clock = time.Now
	}
	return &Runner{
		source:     source,
		normalizer: normalizer,
		tracker:    tracker,
		support:    newSupportCache(),
		logger:     logger.With(slog.String("component", "scan")),
		now:        clock,
	}
}

// Run executes one cycle under the given spec. It fails with
// ErrQuotaExhausted when the tracker denies admission, and with the
// underlying FetchError when any fetch fails.
func (r *Runner) Run(ctx context.Context, spec domain.ScanSpec) (domain.CycleResult, error) {
	if err := r.tracker.Admit(); err != nil {
		return domain.CycleResult{}, fmt.Errorf("scan %s: %w", spec.Name, err)
	}

	now := r.now().UTC()
	result := domain.CycleResult{
		ID:        uuid.NewString(),
		ScanName:  spec.Name,
		Mode:      spec.Mode,
		StartedAt: now,
	}

	solver := arb.NewSolver(spec.TopK, r.logger)
	allocator := arb.NewAllocator(r.logger)

	var collected []eventQuotes

	for _, sport := range spec.Sports {
		raws, u, err := r.source.Odds(ctx, sport, oddsapi.ReqOpts{
			Regions:    spec.Regions,
			Bookmakers: spec.Bookmakers,
			Markets:    spec.Markets,
		})
		r.tracker.Record(u.Remaining, u.ResetAt)
		if err != nil {
			return domain.CycleResult{}, fmt.Errorf("scan %s sport %s: %w", spec.Name, sport, err)
		}

		for _, raw := range raws {
			result.EventsReceived++
			ev, err := r.normalizer.Event(raw, sport)
			if err != nil {
				result.SkippedNoTime++
				continue
			}
			if !spec.Window.Contains(ev.CommenceTime) {
				result.SkippedWindow++
				continue
			}
			result.EventsInWindow++
			result.Events = append(result.Events, ev)
			if ev.StartsWithin(now, spec.BurstWindow) {
				result.WithinBurst = true
			}

			quotes, stats := r.normalizer.Quotes(ev, raw.Bookmakers, spec, now)
			result.QuotesCollected += stats.Collected
			result.QuotesDropped += stats.DroppedMalformed + stats.DroppedFiltered
			collected = append(collected, eventQuotes{event: ev, quotes: quotes})
		}

		if deep := spec.DeepMarketsFor(sport); len(deep) > 0 {
			if err := r.fetchDeep(ctx, spec, sport, deep, collected, &result); err != nil {
				return domain.CycleResult{}, err
			}
		}
	}

	for i := range collected {
		ev := collected[i].event
		byMarket := groupByMarket(collected[i].quotes)
		for _, market := range sortedKeys(byMarket) {
			result.MarketsEvaluated++
			opp := solver.FindOpportunity(ev, market, byMarket[market], spec.Bankroll)
			if opp == nil {
				continue
			}
			plan, err := allocator.Plan(*opp, spec.Bankroll)
			if err != nil {
				if errors.Is(err, domain.ErrInfeasibleAllocation) {
					result.Infeasible++
					r.logger.Debug("opportunity not stakeable",
						slog.String("event", ev.Name()),
						slog.String("market", market),
						slog.String("edge", opp.Edge.String()),
					)
					continue
				}
				return domain.CycleResult{}, err
			}
			result.Opportunities = append(result.Opportunities, domain.StakedOpportunity{
				Opportunity: *opp,
				Plan:        plan,
			})
		}
		result.Quotes = append(result.Quotes, collected[i].quotes...)
	}

	result.Usage = r.tracker.Snapshot()
	result.FinishedAt = r.now().UTC()

	r.logger.Info("cycle complete",
		slog.String("scan", spec.Name),
		slog.String("cycle_id", result.ID),
		slog.Int("events", result.EventsInWindow),
		slog.Int("quotes", result.QuotesCollected),
		slog.Int("opportunities", len(result.Opportunities)),
		slog.Int("infeasible", result.Infeasible),
		slog.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

// fetchDeep pulls higher-cardinality markets per event. Markets the provider
// rejects as unsupported are remembered and skipped on later cycles instead
// of failing the scan.
func (r *Runner) fetchDeep(ctx context.Context, spec domain.ScanSpec, sport string, requested []string, collected []eventQuotes, result *domain.CycleResult) error {
	markets := r.support.filter(ctx, r.source, sport, requested)
	skipped := difference(requested, markets)
	if len(skipped) > 0 {
		result.DeepUnavailable = appendUnique(result.DeepUnavailable, skipped...)
	}
	if len(markets) == 0 {
		return nil
	}

	for i := range collected {
		ev := collected[i].event
		if ev.SportKey != sport {
			continue
		}
		raw, u, err := r.source.EventOdds(ctx, sport, ev.ID, oddsapi.ReqOpts{
			Regions:    spec.Regions,
			Bookmakers: spec.Bookmakers,
			Markets:    markets,
		})
		r.tracker.Record(u.Remaining, u.ResetAt)
		result.DeepFetches++
		if err != nil {
			if domain.FetchKindOf(err) == domain.FetchMalformed {
				// The provider rejected a market key for this sport.
				r.support.markUnsupported(sport, markets)
				result.DeepUnavailable = appendUnique(result.DeepUnavailable, markets...)
				r.logger.Warn("deep markets unsupported",
					slog.String("sport", sport),
					slog.Any("markets", markets),
				)
				return nil
			}
			return fmt.Errorf("scan %s deep fetch %s/%s: %w", spec.Name, sport, ev.ID, err)
		}

		quotes, stats := r.normalizer.Quotes(ev, raw.Bookmakers, spec, r.now().UTC())
		result.QuotesCollected += stats.Collected
		result.QuotesDropped += stats.DroppedMalformed + stats.DroppedFiltered
		collected[i].quotes = append(collected[i].quotes, quotes...)
	}
	return nil
}

func groupByMarket(quotes []domain.Quote) map[string][]domain.Quote {
	byMarket := make(map[string][]domain.Quote)
	for _, q := range quotes {
		byMarket[q.MarketKey] = append(byMarket[q.MarketKey], q)
	}
	return byMarket
}

func sortedKeys(m map[string][]domain.Quote) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func difference(all, keep []string) []string {
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	var out []string
	for _, k := range all {
		if !kept[k] {
			out = append(out, k)
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}

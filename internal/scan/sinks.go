package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// Channel names used on the signal bus.
const (
	ChannelCycles        = "arbisport:cycles"
	ChannelOpportunities = "arbisport:opportunities"
)

// Sink receives a fully completed cycle. EmitCycle runs between cycles of the
// owning loop, so implementations can assume no concurrent call per scan.
type Sink interface {
	EmitCycle(ctx context.Context, result domain.CycleResult) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, result domain.CycleResult) error

func (f SinkFunc) EmitCycle(ctx context.Context, result domain.CycleResult) error {
	return f(ctx, result)
}

// MultiSink fans a cycle out to several sinks in order. Every sink sees the
// cycle even when an earlier one fails; the first failure is reported.
type MultiSink []Sink

func (m MultiSink) EmitCycle(ctx context.Context, result domain.CycleResult) error {
	var firstErr error
	for _, s := range m {
		if err := s.EmitCycle(ctx, result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PersistenceSink writes a cycle's events, quotes, opportunities, and quota
// snapshot to durable storage.
type PersistenceSink struct {
	events domain.EventStore
	quotes domain.QuoteStore
	arbs   domain.ArbStore
	usage  domain.UsageStore
	logger *slog.Logger
}

// NewPersistenceSink creates a PersistenceSink. Any store may be nil to skip
// that concern.
func NewPersistenceSink(events domain.EventStore, quotes domain.QuoteStore, arbs domain.ArbStore, usageStore domain.UsageStore, logger *slog.Logger) *PersistenceSink {
	return &PersistenceSink{
		events: events,
		quotes: quotes,
		arbs:   arbs,
		usage:  usageStore,
		logger: logger.With(slog.String("component", "persistence_sink")),
	}
}

func (s *PersistenceSink) EmitCycle(ctx context.Context, result domain.CycleResult) error {
	if s.events != nil {
		for _, ev := range result.Events {
			if err := s.events.Upsert(ctx, ev); err != nil {
				return fmt.Errorf("persist event %s: %w", ev.ID, err)
			}
		}
	}
	if s.quotes != nil && len(result.Quotes) > 0 {
		if err := s.quotes.UpsertBatch(ctx, result.Quotes); err != nil {
			return fmt.Errorf("persist quotes: %w", err)
		}
	}
	if s.arbs != nil {
		for _, staked := range result.Opportunities {
			if err := s.arbs.Insert(ctx, RecordFromStaked(staked)); err != nil {
				return fmt.Errorf("persist opportunity %s: %w", staked.Opportunity.ID, err)
			}
		}
	}
	if s.usage != nil && result.Usage.Remaining != nil {
		if err := s.usage.Insert(ctx, result.Usage); err != nil {
			return fmt.Errorf("persist usage: %w", err)
		}
	}
	return nil
}

// PublishSink pushes a cycle to the presentation layer: latest quotes into
// the cache, summaries and opportunities onto the signal bus.
type PublishSink struct {
	cache  domain.QuoteCache
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewPublishSink creates a PublishSink. Cache or bus may be nil.
func NewPublishSink(cache domain.QuoteCache, bus domain.SignalBus, logger *slog.Logger) *PublishSink {
	return &PublishSink{
		cache:  cache,
		bus:    bus,
		logger: logger.With(slog.String("component", "publish_sink")),
	}
}

// CycleSummary is the wire form published on ChannelCycles.
type CycleSummary struct {
	ID            string          `json:"id"`
	ScanName      string          `json:"scan_name"`
	Mode          domain.ScanMode `json:"mode"`
	StartedAt     string          `json:"started_at"`
	FinishedAt    string          `json:"finished_at"`
	Events        int             `json:"events"`
	Quotes        int             `json:"quotes"`
	Opportunities int             `json:"opportunities"`
	Infeasible    int             `json:"infeasible"`
	QuotaLeft     *int            `json:"quota_left,omitempty"`
}

func (s *PublishSink) EmitCycle(ctx context.Context, result domain.CycleResult) error {
	if s.cache != nil && len(result.Quotes) > 0 {
		if err := s.cache.SetLatest(ctx, result.Quotes); err != nil {
			return fmt.Errorf("cache quotes: %w", err)
		}
	}
	if s.bus == nil {
		return nil
	}

	summary := CycleSummary{
		ID:            result.ID,
		ScanName:      result.ScanName,
		Mode:          result.Mode,
		StartedAt:     result.StartedAt.Format(time.RFC3339),
		FinishedAt:    result.FinishedAt.Format(time.RFC3339),
		Events:        result.EventsInWindow,
		Quotes:        result.QuotesCollected,
		Opportunities: len(result.Opportunities),
		Infeasible:    result.Infeasible,
		QuotaLeft:     result.Usage.Remaining,
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal cycle summary: %w", err)
	}
	if err := s.bus.Publish(ctx, ChannelCycles, payload); err != nil {
		return fmt.Errorf("publish cycle: %w", err)
	}

	for _, staked := range result.Opportunities {
		body, err := json.Marshal(RecordFromStaked(staked))
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", staked.Opportunity.ID, err)
		}
		if err := s.bus.Publish(ctx, ChannelOpportunities, body); err != nil {
			return fmt.Errorf("publish opportunity %s: %w", staked.Opportunity.ID, err)
		}
	}
	return nil
}

// Notifier delivers human-facing alerts for a completed cycle.
type Notifier interface {
	NotifyCycle(ctx context.Context, result domain.CycleResult) error
}

// NotifySink forwards cycles carrying opportunities to the notifier. Empty
// cycles are not announced.
type NotifySink struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewNotifySink creates a NotifySink.
func NewNotifySink(n Notifier, logger *slog.Logger) *NotifySink {
	return &NotifySink{
		notifier: n,
		logger:   logger.With(slog.String("component", "notify_sink")),
	}
}

func (s *NotifySink) EmitCycle(ctx context.Context, result domain.CycleResult) error {
	if s.notifier == nil || len(result.Opportunities) == 0 {
		return nil
	}
	// Alert delivery is best-effort; a flaky webhook must not count as a
	// failed cycle.
	if err := s.notifier.NotifyCycle(ctx, result); err != nil {
		s.logger.Warn("notification failed", slog.Any("error", err))
	}
	return nil
}

// CycleObserver records cycle telemetry.
type CycleObserver interface {
	ObserveCycle(result domain.CycleResult)
}

// MetricsSink feeds cycle telemetry to the observer.
type MetricsSink struct {
	observer CycleObserver
}

// NewMetricsSink creates a MetricsSink.
func NewMetricsSink(o CycleObserver) *MetricsSink {
	return &MetricsSink{observer: o}
}

func (s *MetricsSink) EmitCycle(_ context.Context, result domain.CycleResult) error {
	if s.observer != nil {
		s.observer.ObserveCycle(result)
	}
	return nil
}

// RecordFromStaked flattens a staked opportunity into its durable record.
func RecordFromStaked(staked domain.StakedOpportunity) domain.ArbitrageRecord {
	opp := staked.Opportunity
	commence := opp.Event.CommenceTime
	rec := domain.ArbitrageRecord{
		ID:         opp.ID,
		CreatedAt:  opp.DetectedAt,
		EventID:    opp.Event.ID,
		EventName:  opp.Event.Name(),
		SportKey:   opp.Event.SportKey,
		MarketKey:  opp.MarketKey,
		Edge:       staked.Plan.RealizedEdge,
		TotalStake: staked.Plan.TotalStake,
		Payout:     staked.Plan.MinPayout,
		Legs:       staked.Plan.Legs,
	}
	if !commence.IsZero() {
		rec.CommenceTime = &commence
	}
	return rec
}

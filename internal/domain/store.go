package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageRecord is the durable form of a detected opportunity plus its
// stake plan, as handed to the persistence collaborator.
type ArbitrageRecord struct {
	ID           string
	CreatedAt    time.Time
	EventID      string
	EventName    string
	SportKey     string
	CommenceTime *time.Time
	MarketKey    string
	Edge         decimal.Decimal
	TotalStake   decimal.Decimal
	Payout       decimal.Decimal
	Legs         []PlannedLeg
}

// EventStore persists scanned events.
type EventStore interface {
	Upsert(ctx context.Context, ev Event) error
}

// QuoteStore persists the latest quotes per (event, market, bookmaker).
type QuoteStore interface {
	UpsertBatch(ctx context.Context, quotes []Quote) error
}

// ArbStore persists arbitrage history.
type ArbStore interface {
	Insert(ctx context.Context, rec ArbitrageRecord) error
	ListRecent(ctx context.Context, limit int) ([]ArbitrageRecord, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]ArbitrageRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UsageStore persists quota snapshots.
type UsageStore interface {
	Insert(ctx context.Context, snap UsageSnapshot) error
	Latest(ctx context.Context) (UsageSnapshot, error)
}

// QuoteCache caches the latest normalized quotes for fast reads by the
// presentation layer.
type QuoteCache interface {
	SetLatest(ctx context.Context, quotes []Quote) error
	Latest(ctx context.Context, eventID, marketKey string) ([]Quote, error)
}

// SignalBus is the ephemeral messaging fabric used to hand completed cycle
// batches to presentation consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// ArchiveWriter stores a serialized batch of aged records in cold storage and
// returns the object key it wrote.
type ArchiveWriter interface {
	WriteArchive(ctx context.Context, prefix string, records []ArbitrageRecord) (string, error)
}
